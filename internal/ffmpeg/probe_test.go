package ffmpeg

import (
	"context"
	"errors"
	"testing"
)

type stubRunner struct {
	lastTool string
	lastArgs []string
	result   Result
	err      error
}

func (s *stubRunner) Run(_ context.Context, tool string, args ...string) (Result, error) {
	s.lastTool = tool
	s.lastArgs = args
	return s.result, s.err
}

func TestProbeDurationParsesSeconds(t *testing.T) {
	stub := &stubRunner{result: Result{Stdout: "2.500000\n"}}
	prober := NewProber("ffprobe", stub)

	seconds, err := prober.ProbeDuration(context.Background(), "/media/clip.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seconds != 2.5 {
		t.Fatalf("expected 2.5, got %v", seconds)
	}
	if stub.lastTool != "ffprobe" {
		t.Fatalf("expected ffprobe invocation, got %q", stub.lastTool)
	}
	// bare-value output mode and the media path as the positional argument
	wantArgs := []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", "/media/clip.mp4"}
	if len(stub.lastArgs) != len(wantArgs) {
		t.Fatalf("unexpected args: %v", stub.lastArgs)
	}
	for i := range wantArgs {
		if stub.lastArgs[i] != wantArgs[i] {
			t.Fatalf("arg %d: expected %q, got %q", i, wantArgs[i], stub.lastArgs[i])
		}
	}
}

func TestProbeDurationRejectsBadOutput(t *testing.T) {
	cases := []struct {
		name   string
		stdout string
	}{
		{"empty", ""},
		{"not_available", "N/A\n"},
		{"non_numeric", "duration=2.5\n"},
		{"zero", "0.0\n"},
		{"negative", "-1.25\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prober := NewProber("ffprobe", &stubRunner{result: Result{Stdout: tc.stdout}})
			_, err := prober.ProbeDuration(context.Background(), "clip.mp4")
			var probeErr *ProbeError
			if !errors.As(err, &probeErr) {
				t.Fatalf("expected ProbeError, got %T: %v", err, err)
			}
		})
	}
}

func TestProbeDurationWrapsCommandFailure(t *testing.T) {
	cmdErr := &CommandError{Tool: "ffprobe", ExitCode: 1, Stderr: "No such file or directory"}
	prober := NewProber("ffprobe", &stubRunner{result: Result{Stderr: cmdErr.Stderr}, err: cmdErr})

	_, err := prober.ProbeDuration(context.Background(), "missing.mp4")
	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected ProbeError, got %T: %v", err, err)
	}
	if probeErr.Stderr != "No such file or directory" {
		t.Fatalf("stderr not carried: %+v", probeErr)
	}
	var inner *CommandError
	if !errors.As(err, &inner) {
		t.Fatalf("expected wrapped CommandError")
	}
}
