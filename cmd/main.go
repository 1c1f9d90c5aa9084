package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tremowaves/Videomaker/internal/api"
	"github.com/tremowaves/Videomaker/internal/config"
	"github.com/tremowaves/Videomaker/internal/ffmpeg"
	fileutil "github.com/tremowaves/Videomaker/internal/file"
	"github.com/tremowaves/Videomaker/internal/job"
	"github.com/tremowaves/Videomaker/internal/pipeline"
	"github.com/tremowaves/Videomaker/internal/ui"
)

func main() {

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load("config.yml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	for _, dir := range []string{cfg.DataDir, cfg.UploadsDir(), cfg.OutputDir(), cfg.TempDir()} {
		if err := fileutil.EnsureDir(dir); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("ensure dir")
		}
	}

	reportTooling(cfg)
	sweepLeftovers(cfg)

	jobManager := buildJobManager(cfg)
	router := setupRouter()
	wireHTTP(router, jobManager, cfg)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	jobManager.SetBaseContext(baseCtx)

	const (
		readHeaderTimeout = 5 * time.Second
		shutdownTimeout   = 15 * time.Second
	)

	srv := newHTTPServer(cfg.Port, router, readHeaderTimeout)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdownSignal()

	gracefulShutdown(srv, baseCancel, jobManager, shutdownTimeout)
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(api.RequestLogger())
	return r
}

// reportTooling surfaces missing ffmpeg/ffprobe binaries at startup rather
// than on the first submitted job.
func reportTooling(cfg config.Config) {
	for _, status := range ffmpeg.Preflight(cfg.FFmpegBin, cfg.FFprobeBin) {
		if status.Available {
			log.Info().Str("tool", status.Tool).Str("path", status.Path).Msg("external tool found")
			continue
		}
		log.Warn().Str("tool", status.Tool).Msg("external tool not found on PATH; jobs will fail until it is installed")
	}
}

// sweepLeftovers clears stashed uploads and temp artifacts left behind by a
// killed process. Runs before the server accepts submissions, so nothing in
// these dirs belongs to a live job.
func sweepLeftovers(cfg config.Config) {
	for _, dir := range []string{cfg.TempDir(), cfg.UploadsDir()} {
		if err := fileutil.RemoveContents(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("sweeping leftover artifacts failed")
		}
	}
}

func buildJobManager(cfg config.Config) *job.Manager {
	pipe := pipeline.New(pipeline.Options{
		FFmpegBin:    cfg.FFmpegBin,
		FFprobeBin:   cfg.FFprobeBin,
		TempDir:      cfg.TempDir(),
		OutputDir:    cfg.OutputDir(),
		MaxLoopCount: cfg.MaxLoopCount,
	})
	jm := job.NewManager(job.Options{
		DataDir:           cfg.DataDir,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		Pipeline:          pipe.Run,
	})

	if err := jm.LoadFromDisk(); err != nil {
		log.Warn().Err(err).Msg("loading persisted jobs failed")
	}
	return jm
}

func wireHTTP(router *gin.Engine, jm *job.Manager, cfg config.Config) {
	intake := api.NewIntake(cfg)

	apiHandler := api.NewAPI(jm, intake)
	apiHandler.RegisterRoutes(router)

	uiHandler := ui.NewUI(jm, intake)
	uiHandler.RegisterRoutes(router)
}

func newHTTPServer(port int, handler http.Handler, readHeaderTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func waitForShutdownSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}

func gracefulShutdown(srv *http.Server, cancelBase context.CancelFunc, jm *job.Manager, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	cancelBase()
	done := jm.WaitAll(ctx)
	if !done {
		log.Warn().Msg("background encodes did not finish before timeout")
	}
	log.Info().Msg("server exited cleanly")
}
