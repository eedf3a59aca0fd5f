package metrics

var announcementStatuses = []string{"transcribed", "transcription_failed", "generating", "generated", "generation_failed"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"success", "partial", "failed"} {
		GenerationsTotal.WithLabelValues(outcome)
	}

	for _, stage := range []string{"catalog_built", "resolving", "concatenating", "muxing_audio", "encoding"} {
		GenerationFailures.WithLabelValues(stage)
	}

	for _, source := range []string{"matched", "fallback"} {
		SegmentsTotal.WithLabelValues(source)
	}

	for _, kind := range []string{"fallback", "omitted", "render_failed"} {
		SegmentWarningsTotal.WithLabelValues(kind)
	}

	for _, kind := range []string{"video", "image"} {
		SegmentEncodeDuration.WithLabelValues(kind)
		CatalogEntries.WithLabelValues(kind)
		ThumbnailGenerationsTotal.WithLabelValues(kind, "success")
		ThumbnailGenerationsTotal.WithLabelValues(kind, "error")
	}

	for _, result := range []string{"ok", "unintelligible", "unreachable", "error"} {
		SpeechRequestsTotal.WithLabelValues("google", result)
	}

	for _, status := range announcementStatuses {
		AnnouncementsTotal.WithLabelValues(status)
	}

	for _, vol := range []string{"media", "work", "output", "unknown"} {
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			for _, event := range []string{"stale", "recovered", "exhausted"} {
				FilesystemRetryEvents.WithLabelValues(vol, op, event)
			}
		}
	}

	for _, op := range []string{"create_user", "validate_password", "create_session", "validate_session",
		"clean_expired_sessions", "update_password", "create_announcement", "get_announcement",
		"list_announcements", "update_announcement", "delete_announcement", "expired_announcements"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	CatalogBuildsTotal.WithLabelValues("success")
	CatalogBuildsTotal.WithLabelValues("error")
	AuthAttemptsTotal.WithLabelValues("success")
	AuthAttemptsTotal.WithLabelValues("failure")
}
