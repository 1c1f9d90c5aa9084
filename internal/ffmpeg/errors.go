package ffmpeg

import "fmt"

// CommandError reports a tool that started but exited non-zero. The captured
// streams are kept whole so callers can surface a diagnostic excerpt.
type CommandError struct {
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

// LaunchError reports a tool binary that could not be started at all,
// typically because it is not on PATH.
type LaunchError struct {
	Tool string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Tool, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ProbeError reports a duration probe that failed or produced unusable
// output.
type ProbeError struct {
	Path   string
	Stdout string
	Stderr string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe duration of %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }
