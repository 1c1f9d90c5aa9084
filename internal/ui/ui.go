// Package ui serves a minimal no-JS browser form for submitting loop jobs
// and watching their progress.
package ui

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tremowaves/Videomaker/internal/api"
	"github.com/tremowaves/Videomaker/internal/job"
)

//go:embed templates/*
var templatesFS embed.FS

type UI struct {
	jobs      *job.Manager
	intake    *api.Intake
	templates *template.Template
}

func NewUI(jobs *job.Manager, intake *api.Intake) *UI {
	tmpl := template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))
	return &UI{jobs: jobs, intake: intake, templates: tmpl}
}

func (u *UI) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(u.templates)
	router.GET("/", u.Home)
	router.POST("/ui/jobs", u.SubmitJob)
	router.GET("/ui/jobs/:id", u.JobPage)
}

func (u *UI) Home(c *gin.Context) { c.HTML(http.StatusOK, "home", gin.H{}) }

func (u *UI) SubmitJob(c *gin.Context) {
	if u.jobs.IsBusy() {
		c.HTML(http.StatusServiceUnavailable, "home", gin.H{"Error": "server busy: try again later"})
		return
	}
	sub, err := u.intake.Parse(c)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, api.ErrUploadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.HTML(status, "home", gin.H{"Error": err.Error()})
		return
	}
	submitted, err := u.jobs.Submit(sub)
	if err != nil {
		c.HTML(http.StatusServiceUnavailable, "home", gin.H{"Error": "server busy: try again later"})
		return
	}
	c.Redirect(http.StatusFound, "/ui/jobs/"+submitted.ID)
}

func (u *UI) JobPage(c *gin.Context) {
	id := c.Param("id")
	if foundJob, ok := u.jobs.Get(id); ok {
		c.HTML(http.StatusOK, "job", gin.H{
			"Job":      foundJob,
			"Done":     foundJob.Status.Terminal(),
			"Ready":    foundJob.Status == job.StatusCompleted,
			"VideoURL": "/api/v1/jobs/" + foundJob.ID + "/video",
		})
		return
	}
	c.HTML(http.StatusNotFound, "home", gin.H{"Error": "job not found"})
}
