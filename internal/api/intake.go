package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tremowaves/Videomaker/internal/config"
	fileutil "github.com/tremowaves/Videomaker/internal/file"
	"github.com/tremowaves/Videomaker/internal/job"
)

var (
	ErrUploadTooLarge = errors.New("upload too large")
	ErrBadRequest     = errors.New("invalid request")
)

// Intake validates a multipart submission and stashes the two uploads on
// disk under collision-free names. MIME/extension allow-listing and size
// ceilings live here, not in the pipeline.
type Intake struct {
	cfg config.Config
}

func NewIntake(cfg config.Config) *Intake { return &Intake{cfg: cfg} }

// Parse reads the form fields video, audio, loop_count and full_hd and
// returns a submission ready for the job manager. Nothing is written to
// disk unless every field validates.
func (in *Intake) Parse(c *gin.Context) (job.Submission, error) {
	// hard cap on the whole request body
	limit := in.cfg.MaxVideoBytes + in.cfg.MaxAudioBytes + (1 << 20)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	loopCount, err := strconv.Atoi(strings.TrimSpace(c.PostForm("loop_count")))
	if err != nil {
		return job.Submission{}, fmt.Errorf("%w: loop_count must be an integer", ErrBadRequest)
	}
	if loopCount < 1 || loopCount > in.cfg.MaxLoopCount {
		return job.Submission{}, fmt.Errorf("%w: loop_count %d out of range [1, %d]", ErrBadRequest, loopCount, in.cfg.MaxLoopCount)
	}
	fullHD := parseBool(c.PostForm("full_hd"))

	videoHeader, err := c.FormFile("video")
	if err != nil {
		return job.Submission{}, fmt.Errorf("%w: missing video file", ErrBadRequest)
	}
	audioHeader, err := c.FormFile("audio")
	if err != nil {
		return job.Submission{}, fmt.Errorf("%w: missing audio file", ErrBadRequest)
	}
	if err := checkUpload(videoHeader, in.cfg.AllowedVideoExts, in.cfg.MaxVideoBytes, "video"); err != nil {
		return job.Submission{}, err
	}
	if err := checkUpload(audioHeader, in.cfg.AllowedAudioExts, in.cfg.MaxAudioBytes, "audio"); err != nil {
		return job.Submission{}, err
	}

	videoPath, err := in.stash(videoHeader, "video")
	if err != nil {
		return job.Submission{}, err
	}
	audioPath, err := in.stash(audioHeader, "audio")
	if err != nil {
		return job.Submission{}, err
	}
	return job.Submission{
		VideoPath: videoPath,
		AudioPath: audioPath,
		LoopCount: loopCount,
		FullHD:    fullHD,
	}, nil
}

func checkUpload(header *multipart.FileHeader, allowedExts []string, maxBytes int64, field string) error {
	if header.Size > maxBytes {
		return fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrUploadTooLarge, field, header.Size, maxBytes)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, allowed := range allowedExts {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s extension %q not allowed", ErrBadRequest, field, ext)
}

// stash copies the upload into the uploads dir under a unique name, so
// concurrent jobs never collide and the original filename never touches
// the filesystem.
func (in *Intake) stash(header *multipart.FileHeader, kind string) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	name := fmt.Sprintf("%s_%s_%s%s", kind, time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8], ext)
	dest := filepath.Join(in.cfg.UploadsDir(), name)
	if err := fileutil.CopyAtomic(dest, src); err != nil {
		return "", fmt.Errorf("stash upload: %w", err)
	}
	return dest, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
