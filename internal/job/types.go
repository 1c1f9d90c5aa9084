package job

import (
	"context"
	"time"

	"github.com/tremowaves/Videomaker/internal/pipeline"
)

// Status tracks a job through the pipeline state machine. The middle states
// mirror pipeline stages; completed and failed are terminal.
type Status string

const (
	StatusCreated       Status = "created"
	StatusProbing       Status = "probing"
	StatusManifestBuilt Status = "manifest_built"
	StatusLooping       Status = "looping"
	StatusComposing     Status = "composing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Job is one looped-video synthesis request and its outcome.
type Job struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	LoopCount      int       `json:"loop_count"`
	FullHD         bool      `json:"full_hd"`
	VideoPath      string    `json:"video_path"`
	AudioPath      string    `json:"audio_path"`
	OutputPath     string    `json:"output_path,omitempty"`
	OutputFileName string    `json:"output_file_name,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Submission carries the validated upload paths and knobs from the HTTP
// boundary into the manager.
type Submission struct {
	VideoPath string
	AudioPath string
	LoopCount int
	FullHD    bool
}

// PipelineFunc runs the synthesis sequence for one request. Injectable so
// tests can observe calls without spawning ffmpeg.
type PipelineFunc func(ctx context.Context, req pipeline.Request, onStage func(pipeline.Stage)) (pipeline.Output, error)

// Options configures a Manager.
type Options struct {
	DataDir           string
	MaxConcurrentJobs int
	Pipeline          PipelineFunc
}

const defaultMaxConcurrent = 2
