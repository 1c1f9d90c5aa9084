package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ManifestError reports a concat manifest that could not be written.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("write concat manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// writeManifest produces the concat demuxer input list: exactly loopCount
// lines, each a file directive referencing the absolute video path. Each
// line maps 1:1 to one playback of the clip, so the count is load-bearing.
// Separators are forced to forward slashes; the concat parser expects them
// regardless of host platform.
func writeManifest(dir, videoPath string, loopCount int) (string, error) {
	absVideo, err := filepath.Abs(videoPath)
	if err != nil {
		return "", &ManifestError{Path: videoPath, Err: fmt.Errorf("resolve video path: %w", err)}
	}
	directive := "file '" + filepath.ToSlash(absVideo) + "'\n"
	var b strings.Builder
	b.Grow(len(directive) * loopCount)
	for i := 0; i < loopCount; i++ {
		b.WriteString(directive)
	}
	manifestPath := filepath.Join(dir, uniqueName("concat", ".txt"))
	if err := os.WriteFile(manifestPath, []byte(b.String()), 0o600); err != nil {
		return "", &ManifestError{Path: manifestPath, Err: err}
	}
	return manifestPath, nil
}

// uniqueName combines a timestamp with a random suffix so concurrent jobs
// never collide on manifest, intermediate or output names.
func uniqueName(prefix, ext string) string {
	stamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("%s_%s_%s%s", prefix, stamp, uuid.NewString()[:8], ext)
}
