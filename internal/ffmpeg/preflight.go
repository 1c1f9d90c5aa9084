package ffmpeg

import "os/exec"

// ToolStatus reports the availability of one external binary.
type ToolStatus struct {
	Tool      string
	Path      string
	Available bool
}

// Preflight resolves each binary on PATH. Jobs submitted while a tool is
// missing still fail cleanly with a launch error; this is for surfacing the
// problem at startup instead of on the first job.
func Preflight(bins ...string) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(bins))
	for _, bin := range bins {
		status := ToolStatus{Tool: bin}
		if resolved, err := exec.LookPath(bin); err == nil {
			status.Path = resolved
			status.Available = true
		}
		statuses = append(statuses, status)
	}
	return statuses
}
