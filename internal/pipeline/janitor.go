package pipeline

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// janitor tracks the temp artifacts of one job and removes them exactly
// once when the job reaches a terminal state, whatever the exit path.
type janitor struct {
	mu    sync.Mutex
	paths []string
	done  bool
}

func newJanitor() *janitor { return &janitor{} }

// register records an artifact for later removal. Registering a path that
// never gets created is fine; cleanup checks existence first.
func (j *janitor) register(path string) {
	j.mu.Lock()
	j.paths = append(j.paths, path)
	j.mu.Unlock()
}

// cleanup removes every registered artifact that still exists. Only the
// first call does work. Removal failures are logged as warnings and never
// change the job outcome.
func (j *janitor) cleanup() {
	j.mu.Lock()
	if j.done {
		j.mu.Unlock()
		return
	}
	j.done = true
	paths := j.paths
	j.mu.Unlock()

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("temp artifact removal failed")
			continue
		}
		log.Debug().Str("path", path).Msg("temp artifact removed")
	}
}
