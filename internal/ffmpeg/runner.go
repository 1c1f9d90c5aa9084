// Package ffmpeg runs the external media tools the pipeline depends on.
// Arguments are always passed as discrete vectors, never as shell strings.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// Result holds the captured output of a finished invocation.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes an external tool once and reports the outcome.
// Implementations make no retry decisions; that belongs to callers.
type Runner interface {
	Run(ctx context.Context, tool string, args ...string) (Result, error)
}

type execRunner struct{}

// NewRunner returns the os/exec backed Runner used in production.
func NewRunner() Runner { return execRunner{} }

const stderrTailBytes = 2048

func (execRunner) Run(ctx context.Context, tool string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Info().Str("tool", tool).Strs("args", args).Msg("running external tool")
	start := time.Now()
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		log.Info().Str("tool", tool).Dur("elapsed", time.Since(start)).Msg("external tool finished")
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr := &CommandError{Tool: tool, ExitCode: exitErr.ExitCode(), Stdout: res.Stdout, Stderr: res.Stderr}
		log.Warn().
			Str("tool", tool).
			Int("exit_code", cmdErr.ExitCode).
			Str("stderr_tail", Tail(res.Stderr, stderrTailBytes)).
			Msg("external tool failed")
		return res, cmdErr
	}
	log.Warn().Str("tool", tool).Err(err).Msg("external tool could not be started")
	return res, &LaunchError{Tool: tool, Err: err}
}

// Tail returns at most limit trailing bytes of s, trimmed of surrounding
// whitespace. ffmpeg puts the actionable message at the end of stderr.
func Tail(s string, limit int) string {
	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) > limit {
		trimmed = trimmed[len(trimmed)-limit:]
	}
	return string(trimmed)
}
