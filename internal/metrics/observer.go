package metrics

import "isl-announcer/internal/filesystem"

type filesystemObserver struct{}

// NewFilesystemObserver records filesystem operations and stale handle
// retries.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveOperation(volume, op string, seconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, op).Observe(seconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, op).Inc()
	}
}

func (filesystemObserver) ObserveRetry(volume, op string, event filesystem.RetryEvent) {
	FilesystemRetryEvents.WithLabelValues(volume, op, string(event)).Inc()
}
