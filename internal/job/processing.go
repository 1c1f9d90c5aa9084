package job

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tremowaves/Videomaker/internal/pipeline"
)

// process runs the pipeline for one job. The caller has already acquired a
// processing slot; it is released on return.
func (m *Manager) process(jobID string) {
	defer func() { <-m.semaphore }()

	m.mu.Lock()
	jobEntity, ok := m.jobs[jobID]
	processCtx := m.baseCtx
	runPipeline := m.pipeline
	m.mu.Unlock()
	if !ok {
		return
	}
	if processCtx == nil {
		processCtx = context.Background()
	}
	if runPipeline == nil {
		log.Error().Str("job_id", jobID).Msg("no pipeline configured")
		m.fail(jobEntity, "no pipeline configured", "")
		return
	}

	resolution := pipeline.ResolutionPreserve
	if jobEntity.FullHD {
		resolution = pipeline.ResolutionFullHD
	}
	req := pipeline.Request{
		VideoPath:  jobEntity.VideoPath,
		AudioPath:  jobEntity.AudioPath,
		LoopCount:  jobEntity.LoopCount,
		Resolution: resolution,
	}

	out, err := runPipeline(processCtx, req, func(stage pipeline.Stage) {
		m.setStatus(jobEntity, Status(stage))
	})

	// uploads were stashed for this job alone; drop them with the job
	m.removeUploads(jobEntity)

	if err != nil {
		log.Warn().Str("job_id", jobEntity.ID).Err(err).Msg("job failed")
		m.fail(jobEntity, err.Error(), pipeline.StderrExcerpt(err))
		return
	}

	m.mu.Lock()
	jobEntity.Status = StatusCompleted
	jobEntity.OutputPath = out.Path
	jobEntity.OutputFileName = out.FileName
	m.mu.Unlock()
	if err := m.persistJob(jobEntity); err != nil {
		log.Warn().Str("job_id", jobEntity.ID).Err(err).Msg("persist completed state failed")
	}
	log.Info().Str("job_id", jobEntity.ID).Str("output", out.Path).Msg("job completed")
}

func (m *Manager) setStatus(jobEntity *Job, status Status) {
	m.mu.Lock()
	jobEntity.Status = status
	m.mu.Unlock()
	if err := m.persistJob(jobEntity); err != nil {
		log.Warn().Str("job_id", jobEntity.ID).Str("status", string(status)).Err(err).Msg("persist status failed")
	}
}

func (m *Manager) fail(jobEntity *Job, msg, excerpt string) {
	if excerpt != "" {
		msg = msg + ": " + excerpt
	}
	m.mu.Lock()
	jobEntity.Status = StatusFailed
	jobEntity.Error = msg
	m.mu.Unlock()
	if err := m.persistJob(jobEntity); err != nil {
		log.Warn().Str("job_id", jobEntity.ID).Err(err).Msg("persist failed state failed")
	}
}

// removeUploads deletes the stashed source files once the job is done with
// them. Missing files are fine; failures are warnings only.
func (m *Manager) removeUploads(jobEntity *Job) {
	for _, path := range []string{jobEntity.VideoPath, jobEntity.AudioPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Str("job_id", jobEntity.ID).Str("path", path).Err(err).Msg("upload removal failed")
		}
	}
}
