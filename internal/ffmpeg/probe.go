package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Prober measures container-level media duration with ffprobe.
type Prober struct {
	bin string
	run Runner
}

// NewProber constructs a Prober invoking the given ffprobe binary.
func NewProber(bin string, runner Runner) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	if runner == nil {
		runner = NewRunner()
	}
	return &Prober{bin: bin, run: runner}
}

// ProbeDuration returns the container duration of path in seconds.
// ffprobe is asked for the bare format=duration value with no wrapper text.
func (p *Prober) ProbeDuration(ctx context.Context, path string) (float64, error) {
	res, err := p.run.Run(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, &ProbeError{Path: path, Stdout: res.Stdout, Stderr: res.Stderr, Err: err}
	}
	raw := strings.TrimSpace(res.Stdout)
	if raw == "" || raw == "N/A" {
		return 0, &ProbeError{Path: path, Stdout: res.Stdout, Stderr: res.Stderr, Err: fmt.Errorf("no duration in output %q", raw)}
	}
	seconds, parseErr := strconv.ParseFloat(raw, 64)
	if parseErr != nil {
		return 0, &ProbeError{Path: path, Stdout: res.Stdout, Stderr: res.Stderr, Err: fmt.Errorf("parse duration %q: %w", raw, parseErr)}
	}
	if seconds <= 0 {
		return 0, &ProbeError{Path: path, Stdout: res.Stdout, Stderr: res.Stderr, Err: fmt.Errorf("non-positive duration %v", seconds)}
	}
	return seconds, nil
}
