package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastionsec/sharescan/pkg/metrics"
)

func TestScanMetrics(t *testing.T) {
	// Order matters: the disabled case must run before InitRegistry
	// flips the package-level state for the rest of the test.
	assert.Nil(t, NewScanMetrics(), "metrics disabled until InitRegistry")
	assert.False(t, metrics.IsEnabled())

	reg := metrics.InitRegistry()
	require.NotNil(t, reg)
	assert.Same(t, reg, metrics.GetRegistry())
	assert.Same(t, reg, metrics.InitRegistry(), "InitRegistry is idempotent")
	assert.True(t, metrics.IsEnabled())

	m := NewScanMetrics()
	require.NotNil(t, m)
	sm := m.(*scanMetrics)

	m.RecordHostScan(metrics.OutcomeCompleted, 12*time.Second)
	m.RecordHostScan(metrics.OutcomeCompleted, 3*time.Second)
	m.RecordHostScan(metrics.OutcomeFailed, 100*time.Millisecond)
	assert.Equal(t, float64(2), testutil.ToFloat64(sm.hostsScanned.WithLabelValues(metrics.OutcomeCompleted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(sm.hostsScanned.WithLabelValues(metrics.OutcomeFailed)))
	assert.Equal(t, 1, testutil.CollectAndCount(sm.hostScanDuration, "sharescan_host_scan_duration_seconds"))

	m.RecordHostScanStart()
	m.RecordHostScanStart()
	m.RecordHostScanEnd()
	assert.Equal(t, float64(1), testutil.ToFloat64(sm.hostsInFlight))

	m.RecordShare("FULL_ACCESS")
	m.RecordShare("FULL_ACCESS")
	m.RecordShare("DENIED")
	assert.Equal(t, float64(2), testutil.ToFloat64(sm.sharesScanned.WithLabelValues("FULL_ACCESS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(sm.sharesScanned.WithLabelValues("DENIED")))

	m.RecordSensitiveFiles("credential", 3)
	m.RecordSensitiveFiles("credential", 0) // ignored
	assert.Equal(t, float64(3), testutil.ToFloat64(sm.sensitiveFiles.WithLabelValues("credential")))

	m.SetSessionHosts(412)
	assert.Equal(t, float64(412), testutil.ToFloat64(sm.sessionHosts))

	m.RecordBatchFlush(1000, 80*time.Millisecond, nil)
	m.RecordBatchFlush(500, 2*time.Second, errors.New("connection refused"))
	assert.Equal(t, float64(1000), testutil.ToFloat64(sm.batchFlushTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(500), testutil.ToFloat64(sm.batchFlushTotal.WithLabelValues("error")))

	m.RecordBatchDropped(500)
	assert.Equal(t, float64(1), testutil.ToFloat64(sm.batchesDropped))
	assert.Equal(t, float64(500), testutil.ToFloat64(sm.recordsDropped))
}

func TestScanMetricsNilSafe(t *testing.T) {
	var m *scanMetrics

	// Nil receivers must not panic.
	m.RecordHostScan(metrics.OutcomeDeadline, time.Minute)
	m.RecordHostScanStart()
	m.RecordHostScanEnd()
	m.RecordShare("ERROR")
	m.RecordSensitiveFiles("key", 1)
	m.SetSessionHosts(1)
	m.RecordBatchFlush(1, time.Second, nil)
	m.RecordBatchDropped(1)

	// The package-level helpers swallow a nil interface too.
	metrics.RecordHostScan(nil, metrics.OutcomeCompleted, time.Second)
	metrics.RecordHostScanStart(nil)
	metrics.RecordHostScanEnd(nil)
	metrics.RecordShare(nil, "READ_ONLY")
	metrics.RecordSensitiveFiles(nil, "pii", 2)
	metrics.SetSessionHosts(nil, 10)
	metrics.RecordBatchFlush(nil, 10, time.Second, nil)
	metrics.RecordBatchDropped(nil, 10)
}
