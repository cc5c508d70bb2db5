package metrics

import (
	"time"
)

// Host scan outcomes recorded by RecordHostScan.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDeadline  = "deadline"
)

// ScanMetrics provides observability for scan runs.
//
// Implementations collect per-host and per-share counters plus storage
// flush outcomes. This interface is optional - pass nil to disable
// metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	scanMetrics := prometheus.NewScanMetrics()
//	eng, err := engine.New(cfg, source, factory, st, sink, scanMetrics)
//
//	// Without metrics (pass nil for zero overhead)
//	eng, err := engine.New(cfg, source, factory, st, sink, nil)
type ScanMetrics interface {
	// RecordHostScan records a finished host scan with its outcome
	// ("completed", "failed" or "deadline") and wall time.
	RecordHostScan(outcome string, duration time.Duration)

	// RecordHostScanStart increments the in-flight host gauge.
	// Should be called when a worker picks up a host.
	RecordHostScanStart()

	// RecordHostScanEnd decrements the in-flight host gauge.
	RecordHostScanEnd()

	// RecordShare counts one scanned share by its access level.
	RecordShare(accessLevel string)

	// RecordSensitiveFiles counts sensitive filename detections by
	// category.
	RecordSensitiveFiles(category string, count int)

	// SetSessionHosts publishes the host total of the current session.
	SetSessionHosts(total int)

	// RecordBatchFlush records one storage flush attempt with its size
	// and outcome.
	RecordBatchFlush(records int, duration time.Duration, err error)

	// RecordBatchDropped counts records lost when a flush exhausted its
	// retries.
	RecordBatchDropped(records int)
}

// RecordHostScan records a finished host scan. No-op when m is nil.
func RecordHostScan(m ScanMetrics, outcome string, duration time.Duration) {
	if m != nil {
		m.RecordHostScan(outcome, duration)
	}
}

// RecordHostScanStart increments the in-flight host gauge. No-op when m
// is nil.
func RecordHostScanStart(m ScanMetrics) {
	if m != nil {
		m.RecordHostScanStart()
	}
}

// RecordHostScanEnd decrements the in-flight host gauge. No-op when m is
// nil.
func RecordHostScanEnd(m ScanMetrics) {
	if m != nil {
		m.RecordHostScanEnd()
	}
}

// RecordShare counts one scanned share. No-op when m is nil.
func RecordShare(m ScanMetrics, accessLevel string) {
	if m != nil {
		m.RecordShare(accessLevel)
	}
}

// RecordSensitiveFiles counts detections by category. No-op when m is
// nil.
func RecordSensitiveFiles(m ScanMetrics, category string, count int) {
	if m != nil {
		m.RecordSensitiveFiles(category, count)
	}
}

// SetSessionHosts publishes the session host total. No-op when m is nil.
func SetSessionHosts(m ScanMetrics, total int) {
	if m != nil {
		m.SetSessionHosts(total)
	}
}

// RecordBatchFlush records one storage flush attempt. No-op when m is
// nil.
func RecordBatchFlush(m ScanMetrics, records int, duration time.Duration, err error) {
	if m != nil {
		m.RecordBatchFlush(records, duration, err)
	}
}

// RecordBatchDropped counts records lost to an exhausted flush. No-op
// when m is nil.
func RecordBatchDropped(m ScanMetrics, records int) {
	if m != nil {
		m.RecordBatchDropped(records)
	}
}
