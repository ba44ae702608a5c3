package filesystem

// Observer records retry metrics. The metrics package provides the
// implementation so that filesystem does not import it.
type Observer interface {
	// op is the retried operation: "stat" or "read".
	// volume is the resolved mount label (e.g. "blobs", "renditions").
	ObserveRetryAttempt(op, volume string)
	ObserveRetrySuccess(op, volume string)
	ObserveRetryFailure(op, volume string)
	ObserveRetryDuration(op, volume string, durationSeconds float64)
	ObserveStaleError(op, volume string)
}

// noopObserver is used until SetObserver is called, which keeps tests quiet.
type noopObserver struct{}

func (noopObserver) ObserveRetryAttempt(string, string)           {}
func (noopObserver) ObserveRetrySuccess(string, string)           {}
func (noopObserver) ObserveRetryFailure(string, string)           {}
func (noopObserver) ObserveRetryDuration(string, string, float64) {}
func (noopObserver) ObserveStaleError(string, string)             {}

var defaultObserver Observer = noopObserver{}

// SetObserver sets the package-level metrics observer.
// Call this once at startup. Passing nil restores the no-op observer.
func SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	defaultObserver = o
}
