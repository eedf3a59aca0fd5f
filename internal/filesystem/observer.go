package filesystem

// RetryEvent labels what happened during a retried operation.
type RetryEvent string

const (
	// RetryStale is an ESTALE result from one attempt.
	RetryStale RetryEvent = "stale"
	// RetryRecovered is success after at least one stale attempt.
	RetryRecovered RetryEvent = "recovered"
	// RetryExhausted is failure after every retry returned ESTALE.
	RetryExhausted RetryEvent = "exhausted"
)

// Observer receives filesystem metrics. metrics.NewFilesystemObserver is
// the production implementation.
type Observer interface {
	// ObserveOperation is called once per attempt. op is "stat", "open" or
	// "readdir".
	ObserveOperation(volume, op string, seconds float64, err error)
	ObserveRetry(volume, op string, event RetryEvent)
}

var defaultObserver Observer

// SetObserver installs o for all later operations. nil disables metrics.
func SetObserver(o Observer) {
	defaultObserver = o
}
