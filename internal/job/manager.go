package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager keeps jobs in memory, persists their state to disk and runs the
// pipeline in the background with a bounded number of concurrent encodes.
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	semaphore chan struct{}
	pipeline  PipelineFunc
	workersWG sync.WaitGroup
	baseCtx   context.Context
	store     Store
}

// NewManager creates a manager with the provided configuration.
func NewManager(opts Options) *Manager {
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = defaultMaxConcurrent
	}
	return &Manager{
		jobs:      make(map[string]*Job),
		semaphore: make(chan struct{}, opts.MaxConcurrentJobs),
		pipeline:  opts.Pipeline,
		baseCtx:   context.Background(),
		store:     NewFileStore(opts.DataDir),
	}
}

// IsBusy reports whether every processing slot is taken. Each FullHD encode
// is CPU-heavy, so the boundary rejects new work instead of queueing it.
func (m *Manager) IsBusy() bool {
	return len(m.semaphore) >= cap(m.semaphore)
}

// Submit registers a job for the given submission and starts the pipeline
// in the background. The slot is acquired without blocking: when every slot
// is taken Submit fails with ErrBusy and no job is registered, so a busy
// check that raced another submission cannot stall the caller.
func (m *Manager) Submit(sub Submission) (Job, error) {
	select {
	case m.semaphore <- struct{}{}:
	default:
		return Job{}, ErrBusy
	}

	newJob := &Job{
		ID:        uuid.NewString(),
		Status:    StatusCreated,
		CreatedAt: time.Now(),
		LoopCount: sub.LoopCount,
		FullHD:    sub.FullHD,
		VideoPath: sub.VideoPath,
		AudioPath: sub.AudioPath,
	}

	m.mu.Lock()
	m.jobs[newJob.ID] = newJob
	m.mu.Unlock()

	if err := m.persistJob(newJob); err != nil { // best-effort
		log.Warn().Str("job_id", newJob.ID).Err(err).Msg("persist job failed")
	}
	log.Info().
		Str("job_id", newJob.ID).
		Int("loop_count", newJob.LoopCount).
		Bool("full_hd", newJob.FullHD).
		Msg("job submitted")

	// copy before the worker can mutate the live struct
	submitted := *newJob
	m.workersWG.Add(1)
	go func() {
		defer m.workersWG.Done()
		m.process(newJob.ID)
	}()
	return submitted, nil
}

// Get returns a point-in-time copy of a job by ID. Returning a copy keeps
// readers off the live struct the worker mutates under the lock.
func (m *Manager) Get(jobID string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if foundJob, ok := m.jobs[jobID]; ok {
		return *foundJob, true
	}
	return Job{}, false
}

// SetBaseContext sets the context that bounds in-flight encodes. Cancelled
// during shutdown; the active ffmpeg child is terminated and temp cleanup
// still runs.
func (m *Manager) SetBaseContext(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
}

// WaitAll blocks until all in-flight workers finish or the context is done.
// Returns true if all workers finished, false if timed out.
func (m *Manager) WaitAll(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		m.workersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// UsePipeline injects a fake pipeline for tests. Intended for test setup
// only, before any job is submitted.
func (m *Manager) UsePipeline(fn PipelineFunc) {
	m.mu.Lock()
	m.pipeline = fn
	m.mu.Unlock()
}

// persistJob writes a snapshot taken under the lock so the store never
// marshals fields the worker is changing.
func (m *Manager) persistJob(jobEntity *Job) error {
	if m.store == nil {
		return nil
	}
	m.mu.RLock()
	snapshot := *jobEntity
	m.mu.RUnlock()
	return m.store.Save(context.Background(), &snapshot) //nolint:wrapcheck
}
