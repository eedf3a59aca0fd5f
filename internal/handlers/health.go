package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"isl-announcer/internal/catalog"
	"isl-announcer/internal/database"
	"isl-announcer/internal/metrics"
	"isl-announcer/internal/retention"
	"isl-announcer/internal/startup"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	healthTimeout = 2 * time.Second
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Database       bool   `json:"database"`
	Library        bool   `json:"library"`
	LibraryError   string `json:"libraryError,omitempty"`
	HasDefaultClip bool   `json:"hasDefaultClip"`
	Encoder        bool   `json:"encoder"`
	Speech         string `json:"speech"`
	Generating     bool   `json:"generating"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	Retention *retention.Status `json:"retention,omitempty"`
	Memory    *MemoryStatus     `json:"memory,omitempty"`
}

// MemoryStatus reports heap usage against the configured limit.
type MemoryStatus struct {
	LimitBytes int64   `json:"limitBytes"`
	Usage      float64 `json:"usage"`
	Paused     bool    `json:"paused"`
}

// StatsResponse summarizes announcements and the sign library.
type StatsResponse struct {
	Announcements map[string]int `json:"announcements"`
	LibraryVideos int            `json:"libraryVideos"`
	LibraryImages int            `json:"libraryImages"`
}

func (h *Handlers) speechBackend() string {
	if h.transcriber == nil {
		return "none"
	}
	return h.transcriber.Name()
}

// library returns the current catalog of the sign library.
func (h *Handlers) library() (*catalog.Catalog, error) {
	return h.catalogs.Get(h.mediaDir)
}

// HealthCheck returns the health status of the service. It answers 503
// only when the database is unusable; a missing library or encoder makes
// the service degraded.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	response := HealthResponse{
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Encoder:      h.encoderAvailable,
		Speech:       h.speechBackend(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	response.Database = h.db.Ping(ctx) == nil
	response.Ready = response.Database

	if cat, err := h.library(); err != nil {
		response.LibraryError = err.Error()
	} else {
		response.Library = true
		_, response.HasDefaultClip = catalog.NewResolver(cat).Default()
	}

	if response.Database {
		if counts, err := h.db.AnnouncementCounts(ctx); err == nil {
			response.Generating = counts[string(database.StatusGenerating)] > 0
		}
	}

	if h.sweeper != nil {
		status := h.sweeper.Status()
		response.Retention = &status
	}

	if h.memory != nil && h.memory.Limit() > 0 {
		response.Memory = &MemoryStatus{
			LimitBytes: h.memory.Limit(),
			Usage:      h.memory.Usage(),
			Paused:     h.memory.Paused(),
		}
	}

	statusCode := http.StatusOK
	switch {
	case !response.Database:
		response.Status = statusUnhealthy
		statusCode = http.StatusServiceUnavailable
	case !response.Library || !response.Encoder,
		response.Memory != nil && response.Memory.Paused:
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	writeJSONStatusCode(w, statusCode, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the database answers and the sign
// library can be read.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	_, libErr := h.library()
	if h.db.Ping(ctx) == nil && libErr == nil {
		writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}

// Stats collects announcement counts and library sizes. It backs both the
// stats endpoint and the metrics collector.
func (h *Handlers) Stats(ctx context.Context) metrics.Stats {
	stats := metrics.Stats{}

	counts, err := h.db.AnnouncementCounts(ctx)
	if err == nil {
		stats.Announcements = counts
	}

	if cat, err := h.library(); err == nil {
		stats.LibraryVideos, stats.LibraryImages = cat.Counts()
	}
	return stats
}

// GetStats returns announcement and library counts.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.Stats(r.Context())
	if stats.Announcements == nil {
		stats.Announcements = map[string]int{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, StatsResponse{
		Announcements: stats.Announcements,
		LibraryVideos: stats.LibraryVideos,
		LibraryImages: stats.LibraryImages,
	})
}

// MetricsHandler returns the Prometheus metrics handler
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
