// Package prometheus provides Prometheus implementations of the metrics
// interfaces.
package prometheus

import (
	"time"

	"github.com/bastionsec/sharescan/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scanMetrics is the Prometheus implementation of metrics.ScanMetrics.
type scanMetrics struct {
	hostsScanned       *prometheus.CounterVec
	hostScanDuration   prometheus.Histogram
	hostsInFlight      prometheus.Gauge
	sharesScanned      *prometheus.CounterVec
	sensitiveFiles     *prometheus.CounterVec
	sessionHosts       prometheus.Gauge
	batchFlushTotal    *prometheus.CounterVec
	batchFlushDuration prometheus.Histogram
	batchesDropped     prometheus.Counter
	recordsDropped     prometheus.Counter
}

// NewScanMetrics creates a new Prometheus-backed ScanMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewScanMetrics() metrics.ScanMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &scanMetrics{
		hostsScanned: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharescan_hosts_scanned_total",
				Help: "Total number of scanned hosts by outcome",
			},
			[]string{"outcome"},
		),
		hostScanDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "sharescan_host_scan_duration_seconds",
				Help: "Wall time per host scan in seconds",
				Buckets: []float64{
					0.5, // unreachable hosts fail fast
					1,
					5,   // few shares, no sensitive walk
					15,  // typical host
					30,  // one share deadline hit
					60,
					120,
					300, // host deadline
				},
			},
		),
		hostsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "sharescan_hosts_in_flight",
				Help: "Current number of hosts being scanned",
			},
		),
		sharesScanned: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharescan_shares_scanned_total",
				Help: "Total number of scanned shares by access level",
			},
			[]string{"access_level"},
		),
		sensitiveFiles: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharescan_sensitive_files_total",
				Help: "Total number of sensitive filename detections by category",
			},
			[]string{"category"},
		),
		sessionHosts: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "sharescan_session_hosts",
				Help: "Number of hosts enumerated for the current session",
			},
		),
		batchFlushTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharescan_batch_flush_records_total",
				Help: "Total number of records submitted to storage flushes by status",
			},
			[]string{"status"},
		),
		batchFlushDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "sharescan_batch_flush_duration_seconds",
				Help: "Duration of storage batch flushes in seconds",
				Buckets: []float64{
					0.01, // 10ms - small batches on a local store
					0.05, // 50ms
					0.1,  // 100ms
					0.5,  // 500ms - full 1000-record batches
					1,
					5,
					10, // retried flushes
				},
			},
		),
		batchesDropped: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "sharescan_batches_dropped_total",
				Help: "Total number of batches dropped after exhausting flush retries",
			},
		),
		recordsDropped: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "sharescan_records_dropped_total",
				Help: "Total number of records lost in dropped batches",
			},
		),
	}
}

func (m *scanMetrics) RecordHostScan(outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	m.hostsScanned.WithLabelValues(outcome).Inc()
	m.hostScanDuration.Observe(duration.Seconds())
}

func (m *scanMetrics) RecordHostScanStart() {
	if m == nil {
		return
	}
	m.hostsInFlight.Inc()
}

func (m *scanMetrics) RecordHostScanEnd() {
	if m == nil {
		return
	}
	m.hostsInFlight.Dec()
}

func (m *scanMetrics) RecordShare(accessLevel string) {
	if m == nil {
		return
	}
	m.sharesScanned.WithLabelValues(accessLevel).Inc()
}

func (m *scanMetrics) RecordSensitiveFiles(category string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sensitiveFiles.WithLabelValues(category).Add(float64(count))
}

func (m *scanMetrics) SetSessionHosts(total int) {
	if m == nil {
		return
	}
	m.sessionHosts.Set(float64(total))
}

func (m *scanMetrics) RecordBatchFlush(records int, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	m.batchFlushTotal.WithLabelValues(status).Add(float64(records))
	m.batchFlushDuration.Observe(duration.Seconds())
}

func (m *scanMetrics) RecordBatchDropped(records int) {
	if m == nil {
		return
	}
	m.batchesDropped.Inc()
	m.recordsDropped.Add(float64(records))
}
