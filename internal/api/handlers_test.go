package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tremowaves/Videomaker/internal/config"
	"github.com/tremowaves/Videomaker/internal/job"
	"github.com/tremowaves/Videomaker/internal/pipeline"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	return cfg
}

func setupRouter(t *testing.T, cfg config.Config, fn job.PipelineFunc) (*gin.Engine, *job.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	manager := job.NewManager(job.Options{
		DataDir:           cfg.DataDir,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		Pipeline:          fn,
	})
	handler := NewAPI(manager, NewIntake(cfg))
	handler.RegisterRoutes(router)
	return router, manager
}

func okPipeline(t *testing.T) job.PipelineFunc {
	t.Helper()
	outputDir := t.TempDir()
	return func(ctx context.Context, req pipeline.Request, onStage func(pipeline.Stage)) (pipeline.Output, error) {
		out := filepath.Join(outputDir, "video_ready.mp4")
		if err := os.WriteFile(out, []byte("media"), 0o600); err != nil {
			return pipeline.Output{}, err
		}
		return pipeline.Output{Path: out, FileName: "video_ready.mp4"}, nil
	}
}

type formFile struct {
	field, name, content string
}

func multipartBody(t *testing.T, fields map[string]string, files []formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(f.content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func submitJob(t *testing.T, router *gin.Engine, loopCount string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t,
		map[string]string{"loop_count": loopCount, "full_hd": "on"},
		[]formFile{
			{field: "video", name: "clip.mp4", content: "video-bytes"},
			{field: "audio", name: "track.mp3", content: "audio-bytes"},
		})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitJobAccepted(t *testing.T) {
	cfg := testConfig(t)
	router, _ := setupRouter(t, cfg, okPipeline(t))

	w := submitJob(t, router, "4")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected %d, got %d: %s", http.StatusAccepted, w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	id, _ := resp["job_id"].(string)
	if id == "" {
		t.Fatalf("expected non-empty job_id")
	}

	// poll until the job completes and exposes a download link
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id, nil)
		got := httptest.NewRecorder()
		router.ServeHTTP(got, req)
		if got.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", got.Code)
		}
		var jr map[string]any
		if err := json.Unmarshal(got.Body.Bytes(), &jr); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if jr["status"] == string(job.StatusCompleted) {
			if jr["video_url"] == "" {
				t.Fatalf("completed job must expose video_url")
			}
			if jr["loop_count"] != float64(4) || jr["full_hd"] != true {
				t.Fatalf("job fields wrong: %v", jr)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for completion")
}

func TestSubmitJobRejectsBadLoopCount(t *testing.T) {
	cfg := testConfig(t)
	called := false
	router, _ := setupRouter(t, cfg, func(ctx context.Context, req pipeline.Request, onStage func(pipeline.Stage)) (pipeline.Output, error) {
		called = true
		return pipeline.Output{}, nil
	})

	for _, count := range []string{"0", "-5", "1001", "abc", ""} {
		w := submitJob(t, router, count)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("loop_count %q: expected 400, got %d", count, w.Code)
		}
	}
	if called {
		t.Fatalf("pipeline must not run for rejected submissions")
	}
	// nothing may be stashed for rejected submissions either
	if entries, err := os.ReadDir(cfg.UploadsDir()); err == nil && len(entries) != 0 {
		t.Fatalf("expected no stashed uploads, got %d", len(entries))
	}
}

func TestSubmitJobRejectsMissingFiles(t *testing.T) {
	cfg := testConfig(t)
	router, _ := setupRouter(t, cfg, okPipeline(t))

	body, contentType := multipartBody(t,
		map[string]string{"loop_count": "2"},
		[]formFile{{field: "video", name: "clip.mp4", content: "x"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing audio, got %d", w.Code)
	}
}

func TestSubmitJobRejectsBadExtension(t *testing.T) {
	cfg := testConfig(t)
	router, _ := setupRouter(t, cfg, okPipeline(t))

	body, contentType := multipartBody(t,
		map[string]string{"loop_count": "2"},
		[]formFile{
			{field: "video", name: "clip.exe", content: "x"},
			{field: "audio", name: "track.mp3", content: "x"},
		})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for disallowed extension, got %d", w.Code)
	}
}

func TestSubmitJobRejectsOversizedUpload(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxAudioBytes = 4
	router, _ := setupRouter(t, cfg, okPipeline(t))

	w := submitJob(t, router, "2") // audio content is longer than 4 bytes
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDownloadRules(t *testing.T) {
	cfg := testConfig(t)
	blocker := make(chan struct{})
	router, manager := setupRouter(t, cfg, func(ctx context.Context, req pipeline.Request, onStage func(pipeline.Stage)) (pipeline.Output, error) {
		<-blocker
		return pipeline.Output{}, context.Canceled
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/unknown/video", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", w.Code)
	}

	sub := submitJob(t, router, "2")
	if sub.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", sub.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(sub.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	id := resp["job_id"].(string)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id+"/video", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 while not ready, got %d", w.Code)
	}

	close(blocker)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	manager.WaitAll(ctx)
}

func TestServerBusyReturns503(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrentJobs = 1
	blocker := make(chan struct{})
	router, manager := setupRouter(t, cfg, func(ctx context.Context, req pipeline.Request, onStage func(pipeline.Stage)) (pipeline.Output, error) {
		<-blocker
		return pipeline.Output{}, context.Canceled
	})

	first := submitJob(t, router, "2")
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", first.Code)
	}
	second := submitJob(t, router, "2")
	if second.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while busy, got %d", second.Code)
	}

	close(blocker)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	manager.WaitAll(ctx)
}
