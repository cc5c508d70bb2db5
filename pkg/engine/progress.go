package engine

// ProgressSink receives a notification after each host completes.
// Report is always invoked from a single collector goroutine, so
// implementations need no locking of their own; they should return
// quickly and may coalesce updates, since delivery is lossy by
// contract.
type ProgressSink interface {
	Report(host string, processed, total int)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(host string, processed, total int)

// Report calls f.
func (f SinkFunc) Report(host string, processed, total int) {
	f(host, processed, total)
}

// NopSink discards progress events.
type NopSink struct{}

// Report does nothing.
func (NopSink) Report(string, int, int) {}
