package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isl_announcer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "isl_announcer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isl_announcer_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "isl_announcer_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Generation pipeline metrics
var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_generations_total",
			Help: "Total number of video generation requests by outcome",
		},
		[]string{"outcome"}, // "success", "partial", "failed"
	)

	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_generation_failures_total",
			Help: "Fatal generation failures by the stage that failed",
		},
		[]string{"stage"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "isl_announcer_generation_duration_seconds",
			Help:    "Wall-clock time to produce one announcement video",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	GenerationInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "isl_announcer_generation_in_progress",
			Help: "Whether a generation is currently running (1 = running, 0 = idle)",
		},
	)

	SegmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_segments_total",
			Help: "Rendered segments by source",
		},
		[]string{"source"}, // "matched", "fallback"
	)

	SegmentWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_segment_warnings_total",
			Help: "Segment warnings by kind",
		},
		[]string{"kind"},
	)

	SegmentEncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isl_announcer_segment_encode_duration_seconds",
			Help:    "FFmpeg time per encoded segment",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"}, // "video", "image"
	)

	OutputVideoSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "isl_announcer_output_video_seconds",
			Help:    "Duration of generated announcement videos",
			Buckets: []float64{5, 10, 20, 30, 60, 120, 300},
		},
	)
)

// Speech recognition metrics
var (
	SpeechRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_speech_requests_total",
			Help: "Speech recognition requests by result",
		},
		[]string{"backend", "result"}, // "ok", "unintelligible", "unreachable"
	)

	SpeechRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isl_announcer_speech_request_duration_seconds",
			Help:    "Speech recognition request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"backend"},
	)
)

// Sign library metrics
var (
	CatalogEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "isl_announcer_catalog_entries",
			Help: "Sign library assets by type",
		},
		[]string{"type"},
	)

	CatalogBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_catalog_builds_total",
			Help: "Catalog directory scans",
		},
		[]string{"status"},
	)

	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_thumbnail_generations_total",
			Help: "Total number of library thumbnail generations",
		},
		[]string{"type", "status"},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "isl_announcer_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "isl_announcer_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)
)

// Announcement store metrics
var (
	AnnouncementsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "isl_announcer_announcements",
			Help: "Stored announcements by status",
		},
		[]string{"status"},
	)

	AnnouncementsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "isl_announcer_announcements_expired_total",
			Help: "Announcements removed by retention cleanup",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isl_announcer_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_filesystem_retry_events_total",
			Help: "NFS stale file handle retries by outcome",
		},
		[]string{"volume", "operation", "event"},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isl_announcer_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "isl_announcer_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the Go memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "isl_announcer_memory_paused",
			Help: "Whether generation is paused for memory pressure (1 = paused)",
		},
	)

	MemoryWaitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "isl_announcer_memory_waits_total",
			Help: "Number of times a generation waited for memory pressure to ease",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "isl_announcer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
