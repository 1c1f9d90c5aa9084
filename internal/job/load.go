package job

import (
	"context"
	"fmt"
)

// LoadFromDisk scans the jobs directory and loads jobs into memory. Jobs
// that were mid-pipeline when the previous process exited are marked
// failed; their temp artifacts were removed by the cleanup that runs on
// cancellation, and the encode cannot be resumed.
func (m *Manager) LoadFromDisk() error {
	if m.store == nil {
		return nil
	}
	loadedJobs, err := m.store.LoadAll(context.Background())
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	for _, jobEntity := range loadedJobs {
		if !jobEntity.Status.Terminal() {
			jobEntity.Status = StatusFailed
			jobEntity.Error = "interrupted by service restart"
			_ = m.persistJob(jobEntity)
		}
		m.mu.Lock()
		m.jobs[jobEntity.ID] = jobEntity
		m.mu.Unlock()
	}
	return nil
}
