// Package pipeline implements the loop+mux synthesis sequence: probe the
// clip duration, write a concat manifest, loop the video losslessly, then
// mux in the audio with an exact duration cap. Temp artifacts are removed
// on every exit path.
package pipeline

import "errors"

// ResolutionMode selects how the compose stage treats the video stream.
type ResolutionMode string

const (
	// ResolutionPreserve stream-copies the looped video untouched.
	ResolutionPreserve ResolutionMode = "preserve"
	// ResolutionFullHD rescales to 1920x1080 and re-encodes.
	ResolutionFullHD ResolutionMode = "full_hd"
)

// Stage names the phase the pipeline is currently in. Reported through the
// Run callback so the caller can publish job progress.
type Stage string

const (
	StageProbing       Stage = "probing"
	StageManifestBuilt Stage = "manifest_built"
	StageLooping       Stage = "looping"
	StageComposing     Stage = "composing"
)

// Request is a validated unit of work: two source assets, a loop count and
// a resolution mode. Source files are never deleted by the pipeline.
type Request struct {
	VideoPath  string
	AudioPath  string
	LoopCount  int
	Resolution ResolutionMode
}

// Output describes the produced video on success.
type Output struct {
	Path     string
	FileName string
}

var (
	ErrInvalidLoopCount = errors.New("invalid loop count")
	ErrInputNotFound    = errors.New("input file not found")
)
