package job

import "errors"

var (
	ErrJobNotFound = errors.New("job not found")

	// ErrBusy means every processing slot is taken.
	ErrBusy = errors.New("all processing slots are busy")
)
