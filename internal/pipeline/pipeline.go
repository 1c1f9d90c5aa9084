package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/tremowaves/Videomaker/internal/ffmpeg"
)

const defaultMaxLoopCount = 1000

// Options configures a Pipeline.
type Options struct {
	FFmpegBin    string
	FFprobeBin   string
	TempDir      string
	OutputDir    string
	MaxLoopCount int
	Runner       ffmpeg.Runner
}

// Pipeline orchestrates the probe, loop and compose stages for one request
// at a time. Safe for concurrent use; per-job state lives on the stack.
type Pipeline struct {
	ffmpegBin    string
	tempDir      string
	outputDir    string
	maxLoopCount int
	run          ffmpeg.Runner
	probe        *ffmpeg.Prober
}

// New constructs a Pipeline. Zero-valued options fall back to ffmpeg and
// ffprobe on PATH, the OS temp dir and a loop ceiling of 1000.
func New(opts Options) *Pipeline {
	if opts.FFmpegBin == "" {
		opts.FFmpegBin = "ffmpeg"
	}
	if opts.FFprobeBin == "" {
		opts.FFprobeBin = "ffprobe"
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.MaxLoopCount < 1 {
		opts.MaxLoopCount = defaultMaxLoopCount
	}
	if opts.Runner == nil {
		opts.Runner = ffmpeg.NewRunner()
	}
	return &Pipeline{
		ffmpegBin:    opts.FFmpegBin,
		tempDir:      opts.TempDir,
		outputDir:    opts.OutputDir,
		maxLoopCount: opts.MaxLoopCount,
		run:          opts.Runner,
		probe:        ffmpeg.NewProber(opts.FFprobeBin, opts.Runner),
	}
}

// Run drives a request through probe, manifest, loop and compose. Stage
// transitions are reported through onStage (which may be nil). Validation
// failures abort before any subprocess starts, with zero side effects.
// Temp artifacts are removed before Run returns, success or not.
func (p *Pipeline) Run(ctx context.Context, req Request, onStage func(Stage)) (Output, error) {
	if err := p.validate(req); err != nil {
		return Output{}, err
	}

	jan := newJanitor()
	defer jan.cleanup()

	notify(onStage, StageProbing)
	probedDuration, err := p.probe.ProbeDuration(ctx, req.VideoPath)
	if err != nil {
		return Output{}, err
	}
	// Computed once; the compose duration cap derives from this value, not
	// from re-measuring the intermediate file.
	targetDuration := probedDuration * float64(req.LoopCount)
	log.Info().
		Float64("probed_duration", probedDuration).
		Int("loop_count", req.LoopCount).
		Float64("target_duration", targetDuration).
		Msg("source probed")

	manifestPath, err := writeManifest(p.tempDir, req.VideoPath, req.LoopCount)
	if err != nil {
		return Output{}, err
	}
	jan.register(manifestPath)
	notify(onStage, StageManifestBuilt)

	notify(onStage, StageLooping)
	intermediatePath := filepath.Join(p.tempDir, uniqueName("looped", ".mp4"))
	jan.register(intermediatePath)
	if err := p.loop(ctx, manifestPath, intermediatePath); err != nil {
		return Output{}, err
	}

	notify(onStage, StageComposing)
	fileName := uniqueName("video", ".mp4")
	outputPath := filepath.Join(p.outputDir, fileName)
	if err := p.compose(ctx, intermediatePath, req.AudioPath, targetDuration, req.Resolution, outputPath); err != nil {
		// a failed compose may leave a partial output behind
		jan.register(outputPath)
		return Output{}, err
	}
	if _, err := os.Stat(outputPath); err != nil {
		return Output{}, fmt.Errorf("compose produced no output at %s: %w", outputPath, err)
	}
	return Output{Path: outputPath, FileName: fileName}, nil
}

func (p *Pipeline) validate(req Request) error {
	if req.LoopCount < 1 || req.LoopCount > p.maxLoopCount {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidLoopCount, req.LoopCount, p.maxLoopCount)
	}
	for _, path := range []string{req.VideoPath, req.AudioPath} {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
	}
	return nil
}

// loop concatenates the manifest entries into a video-only intermediate.
// Stream copy keeps this lossless and fast, and avoids drift between
// probedDuration*loopCount and the intermediate's actual length.
func (p *Pipeline) loop(ctx context.Context, manifestPath, intermediatePath string) error {
	_, err := p.run.Run(ctx, p.ffmpegBin,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-an",
		"-c:v", "copy",
		intermediatePath,
	)
	return err
}

// compose muxes the looped video with the audio track. The audio input is
// stream-looped indefinitely and the explicit -t cap trims the output to
// the target, so audio shorter or longer than the video both come out at
// exactly targetDuration. Audio is always re-encoded to AAC for broad
// container compatibility.
func (p *Pipeline) compose(ctx context.Context, intermediatePath, audioPath string, targetDuration float64, mode ResolutionMode, outputPath string) error {
	args := []string{
		"-y",
		"-i", intermediatePath,
		"-stream_loop", "-1",
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
	}
	if mode == ResolutionFullHD {
		args = append(args,
			"-vf", "scale=1920:1080",
			"-c:v", "libx264",
			"-crf", "23",
			"-preset", "medium",
		)
	} else {
		args = append(args, "-c:v", "copy")
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", strconv.FormatFloat(targetDuration, 'f', 3, 64),
		outputPath,
	)
	_, err := p.run.Run(ctx, p.ffmpegBin, args...)
	return err
}

func notify(onStage func(Stage), stage Stage) {
	if onStage != nil {
		onStage(stage)
	}
}

const excerptBytes = 512

// StderrExcerpt extracts a short diagnostic tail from a stage failure, for
// inclusion in the single error message a caller receives.
func StderrExcerpt(err error) string {
	var cmdErr *ffmpeg.CommandError
	if errors.As(err, &cmdErr) {
		return ffmpeg.Tail(cmdErr.Stderr, excerptBytes)
	}
	var probeErr *ffmpeg.ProbeError
	if errors.As(err, &probeErr) {
		return ffmpeg.Tail(probeErr.Stderr, excerptBytes)
	}
	return ""
}
