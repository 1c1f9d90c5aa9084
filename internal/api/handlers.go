package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tremowaves/Videomaker/internal/job"
)

type submitResponse struct {
	JobID  string     `json:"job_id"`
	Status job.Status `json:"status"`
}

type jobResponse struct {
	ID        string     `json:"id"`
	Status    job.Status `json:"status"`
	CreatedAt string     `json:"created_at"`
	LoopCount int        `json:"loop_count"`
	FullHD    bool       `json:"full_hd"`
	Error     string     `json:"error,omitempty"`
	VideoURL  string     `json:"video_url,omitempty"`
}

type API struct {
	jobs   *job.Manager
	intake *Intake
}

func NewAPI(jobs *job.Manager, intake *Intake) *API {
	return &API{jobs: jobs, intake: intake}
}

// RegisterRoutes registers API routes on the provided gin engine.
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", a.Health)
	api := router.Group("/api/v1")
	{
		api.POST("/jobs", a.SubmitJob)
		api.GET("/jobs/:id", a.GetJob)
		api.GET("/jobs/:id/video", a.DownloadVideo)
	}
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SubmitJob accepts a multipart upload (video, audio, loop_count, full_hd)
// and starts a synthesis job.
func (a *API) SubmitJob(c *gin.Context) {
	if a.jobs.IsBusy() {
		log.Warn().Msg("rejecting job submission: server is at max concurrency")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server busy"})
		return
	}
	sub, err := a.intake.Parse(c)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUploadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		log.Warn().Err(err).Msg("invalid job submission")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	submitted, err := a.jobs.Submit(sub)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting job submission: no processing slot free")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server busy"})
		return
	}
	c.JSON(http.StatusAccepted, submitResponse{JobID: submitted.ID, Status: submitted.Status})
}

// GetJob returns job status.
func (a *API) GetJob(c *gin.Context) {
	id := c.Param("id")
	if foundJob, ok := a.jobs.Get(id); ok {
		c.JSON(http.StatusOK, toJobResponse(foundJob))
		return
	}
	log.Warn().Str("job_id", id).Msg("job not found on get")
	c.JSON(http.StatusNotFound, gin.H{"error": job.ErrJobNotFound.Error()})
}

// DownloadVideo serves the finished video when the job is completed.
func (a *API) DownloadVideo(c *gin.Context) {
	id := c.Param("id")
	foundJob, ok := a.jobs.Get(id)
	if !ok {
		log.Warn().Str("job_id", id).Msg("job not found on download")
		c.JSON(http.StatusNotFound, gin.H{"error": job.ErrJobNotFound.Error()})
		return
	}
	if foundJob.Status != job.StatusCompleted || foundJob.OutputPath == "" {
		log.Warn().Str("job_id", id).Str("status", string(foundJob.Status)).Msg("video not ready to download")
		c.JSON(http.StatusBadRequest, gin.H{"error": "video not ready"})
		return
	}
	log.Info().Str("job_id", id).Str("path", foundJob.OutputPath).Msg("serving video download")
	c.FileAttachment(foundJob.OutputPath, foundJob.OutputFileName)
}

func toJobResponse(jobEntity job.Job) jobResponse {
	resp := jobResponse{
		ID:        jobEntity.ID,
		Status:    jobEntity.Status,
		CreatedAt: jobEntity.CreatedAt.UTC().Format(time.RFC3339),
		LoopCount: jobEntity.LoopCount,
		FullHD:    jobEntity.FullHD,
		Error:     jobEntity.Error,
	}
	if jobEntity.Status == job.StatusCompleted {
		resp.VideoURL = "/api/v1/jobs/" + jobEntity.ID + "/video"
	}
	return resp
}
