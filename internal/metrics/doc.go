// Package metrics provides Prometheus instrumentation for the announcement service.
//
// All metrics are registered with promauto at package init and are prefixed
// with "isl_announcer_". They are exposed on the dedicated metrics port
// (METRICS_PORT) rather than the main application listener.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Database Metrics
//   - DBQueryTotal, DBQueryDuration, DBConnectionsOpen
//
// ## Generation Metrics
//
// One generation is one run of the compositor for a transcript:
//   - GenerationsTotal: by outcome (success/partial/failed)
//   - GenerationFailures: fatal failures by pipeline stage
//   - GenerationDuration, GenerationInProgress
//   - SegmentsTotal: rendered segments by source (matched/fallback)
//   - SegmentWarningsTotal: warnings by kind
//   - SegmentEncodeDuration, OutputVideoSeconds
//
// ## Speech Metrics
//   - SpeechRequestsTotal, SpeechRequestDuration
//
// ## Sign Library Metrics
//   - CatalogEntries, CatalogBuildsTotal
//   - ThumbnailGenerationsTotal, ThumbnailCacheHits, ThumbnailCacheMisses
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer returned by NewFilesystemObserver.
//
// # Collector
//
// Collector periodically refreshes gauges that are derived from stored
// state (announcement counts, library size, DB connections):
//
//	collector := metrics.NewCollector(provider, db, 30*time.Second)
//	collector.Start()
//	defer collector.Stop()
package metrics
