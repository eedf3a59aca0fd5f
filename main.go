package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"isl-announcer/internal/catalog"
	"isl-announcer/internal/compositor"
	"isl-announcer/internal/database"
	"isl-announcer/internal/events"
	"isl-announcer/internal/filesystem"
	"isl-announcer/internal/handlers"
	"isl-announcer/internal/logging"
	"isl-announcer/internal/media"
	"isl-announcer/internal/memory"
	"isl-announcer/internal/metrics"
	"isl-announcer/internal/middleware"
	"isl-announcer/internal/retention"
	"isl-announcer/internal/speech"
	"isl-announcer/internal/startup"
	"isl-announcer/internal/transcoder"
	"isl-announcer/internal/workers"
)

const (
	shutdownTimeout  = 30 * time.Second
	metricsInterval  = time.Minute
	maxEncodeThreads = 16
	maxThumbWorkers  = 4
)

func main() {
	startTime := time.Now()

	memLimit := memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media":  config.MediaDir,
		"work":   config.WorkDir,
		"output": config.OutputDir,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	database.SetSessionDuration(config.SessionDuration)
	if n, err := db.ResetStaleGenerations(ctx); err != nil {
		logging.Warn("Failed to reset interrupted generations: %v", err)
	} else if n > 0 {
		logging.Warn("Marked %d interrupted generations as failed", n)
	}

	// Encoder
	threads := workers.Pick(config.EncoderThreads, maxEncodeThreads, workers.ForCPU)
	encoderAvailable := startup.LogEncoderInit(threads)
	trans := transcoder.New(threads)

	// Sign library
	catalogs := catalog.NewCache()
	cat, libErr := catalogs.Get(config.MediaDir)
	if libErr == nil {
		videos, images := cat.Counts()
		_, hasDefault := catalog.NewResolver(cat).Default()
		startup.LogLibraryInit(config.MediaDir, videos, images, hasDefault, nil)
	} else {
		startup.LogLibraryInit(config.MediaDir, 0, 0, false, libErr)
	}

	// Speech recognition
	var transcriber speech.Transcriber
	if config.SpeechAPIKey != "" {
		transcriber = speech.NewGoogleRecognizer(speech.GoogleConfig{
			Endpoint:      config.SpeechEndpoint,
			APIKey:        config.SpeechAPIKey,
			Language:      config.SpeechLanguage,
			RatePerMinute: config.SpeechRatePerMinute,
			WorkDir:       config.WorkDir,
		}, trans)
		startup.LogSpeechInit(transcriber.Name(), true)
	} else {
		startup.LogSpeechInit("none", false)
	}

	// Thumbnails
	media.InitVips()
	defer media.ShutdownVips()
	thumbs := media.NewThumbnailGenerator(config.ThumbnailDir, config.ThumbnailsEnabled, trans,
		workers.ForMixed(maxThumbWorkers))

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	startup.LogMemoryInit(monitor.Limit(), memLimit.Source)

	generator := compositor.NewGenerator(compositor.Config{
		MediaDir:      config.MediaDir,
		WorkDir:       config.WorkDir,
		OutputDir:     config.OutputDir,
		CaptionPrefix: config.CaptionPrefix,
		ImageSeconds:  config.ImageSegmentSeconds,
		Gate:          monitor,
	}, trans)

	// Retention
	sweeper := retention.New(db, config.Retention)
	startup.LogRetentionInit(config.Retention, sweeper.Interval())
	sweeper.Start()

	h := handlers.New(handlers.Deps{
		DB:               db,
		Generator:        generator,
		Transcriber:      transcriber,
		Thumbnails:       thumbs,
		Hub:              events.NewHub(),
		Catalogs:         catalogs,
		Sweeper:          sweeper,
		Memory:           monitor,
		EncoderAvailable: encoderAvailable,
	}, config)

	collector := metrics.NewCollector(metrics.StatsFunc(func() metrics.Stats {
		return h.Stats(context.Background())
	}), db, metricsInterval)
	collector.Start()

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           buildHandler(router, h, config),
		ReadHeaderTimeout: 15 * time.Second,
		// Generation requests block until the video is encoded
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(srv) })
	if metricsSrv != nil {
		g.Go(func() error { return serve(metricsSrv) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdown(srv, metricsSrv, sweeper, monitor, collector, trans)
		return nil
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := g.Wait(); err != nil {
		logging.Error("Server error: %v", err)
		os.Exit(1)
	}
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildHandler wraps the router with auth, access logging and compression.
// Metrics are recorded inside the router so route templates are known.
func buildHandler(router *mux.Router, h *handlers.Handlers, config *startup.Config) http.Handler {
	authed := h.AuthMiddleware(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(authed)

	return middleware.Compression(middleware.DefaultCompressionConfig())(logged)
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/setup-required", h.CheckSetupRequired).Methods("GET")
	auth.HandleFunc("/setup", h.Setup).Methods("POST")
	auth.HandleFunc("/login", h.Login).Methods("POST")
	auth.HandleFunc("/logout", h.Logout).Methods("POST")
	auth.HandleFunc("/check", h.CheckAuth).Methods("GET")
	auth.HandleFunc("/password", h.ChangePassword).Methods("POST")
	auth.HandleFunc("/keepalive", h.Keepalive).Methods("POST")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/announcements", h.UploadAnnouncement).Methods("POST")
	api.HandleFunc("/announcements", h.ListAnnouncements).Methods("GET")
	api.HandleFunc("/announcements/{id}", h.GetAnnouncement).Methods("GET")
	api.HandleFunc("/announcements/{id}", h.DeleteAnnouncement).Methods("DELETE")
	api.HandleFunc("/announcements/{id}/transcript", h.UpdateTranscript).Methods("PUT")
	api.HandleFunc("/announcements/{id}/video", h.GenerateVideo).Methods("POST")
	api.HandleFunc("/announcements/{id}/video", h.GetVideo).Methods("GET", "HEAD")
	api.HandleFunc("/announcements/{id}/warnings", h.GetWarnings).Methods("GET")
	api.HandleFunc("/announcements/{id}/events", h.AnnouncementEvents).Methods("GET")
	api.HandleFunc("/preview", h.Preview).Methods("POST")
	api.HandleFunc("/library", h.ListLibrary).Methods("GET")
	api.HandleFunc("/library/file/{name}", h.GetLibraryFile).Methods("GET", "HEAD")
	api.HandleFunc("/library/thumbnail/{name}", h.GetLibraryThumbnail).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	return r
}

func shutdown(srv, metricsSrv *http.Server, sweeper *retention.Sweeper, monitor *memory.Monitor, collector *metrics.Collector, trans *transcoder.Transcoder) {
	startup.LogShutdownInitiated("signal")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping retention sweeper")
	sweeper.Stop()
	monitor.Stop()
	collector.Stop()
	startup.LogShutdownStepComplete("Background tasks stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownStep("Cleaning up encoder")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Encoder cleanup complete")

	startup.LogShutdownComplete()
}
