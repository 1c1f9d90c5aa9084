package job

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	fileutil "github.com/tremowaves/Videomaker/internal/file"
)

// Store abstracts persistence for job state. The default implementation is
// file-based; the interface allows plugging a DB-backed store later.
type Store interface {
	Save(ctx context.Context, j *Job) error
	LoadAll(ctx context.Context) ([]*Job, error)
}

// fileStore persists job state under <dataDir>/jobs/<id>/status.json.
type fileStore struct {
	dataDir string
}

func NewFileStore(dataDir string) Store { //nolint:ireturn
	if dataDir == "" {
		dataDir = "storage"
	}
	return &fileStore{dataDir: dataDir}
}

func (s *fileStore) jobDir(jobID string) string {
	return filepath.Join(s.dataDir, "jobs", jobID)
}

func (s *fileStore) statusPath(jobID string) string {
	return filepath.Join(s.jobDir(jobID), "status.json")
}

func (s *fileStore) Save(ctx context.Context, j *Job) error { //nolint:revive // context reserved for future use
	if err := fileutil.EnsureDir(s.jobDir(j.ID)); err != nil {
		return fmt.Errorf("ensure job dir: %w", err)
	}
	return fileutil.WriteJSONAtomic(s.statusPath(j.ID), j) //nolint:wrapcheck
}

func (s *fileStore) LoadAll(ctx context.Context) ([]*Job, error) { //nolint:revive // context reserved for future use
	root := filepath.Join(s.dataDir, "jobs")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	jobs := make([]*Job, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(s.statusPath(e.Name())) //nolint:gosec // path is controlled by application
		if err != nil {
			continue
		}
		var j Job
		if err := json.Unmarshal(b, &j); err != nil {
			continue
		}
		jj := j
		jobs = append(jobs, &jj)
	}
	return jobs, nil
}
