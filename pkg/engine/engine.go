// Package engine drives a full scan run: enumerate computers from the
// directory, fan hosts out to a bounded worker pool, collect share
// records into storage batches, and seal the session with totals.
//
// The engine is transport-free. Callers hand it a host source, a
// scanner factory and a store behind small interfaces, plus an optional
// ProgressSink for live progress; serve mode and the CLI wire those to
// their own surfaces. Individual host and share failures are recorded
// as data and never fail the run; only pre-flight failures (directory
// bind, unreachable store, invalid configuration) abort.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/bastionsec/sharescan/pkg/metrics"
	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/patterns"
	"github.com/bastionsec/sharescan/pkg/scanner"
	"github.com/bastionsec/sharescan/pkg/store"
)

const (
	// DefaultThreads is the worker-pool size.
	DefaultThreads = 10

	// DefaultChunkSize is how many hosts are dispatched to the pool at a
	// time. The pool drains one chunk completely before the next starts.
	DefaultChunkSize = 1000

	// DefaultStorageBatch is the pending-buffer size that triggers a
	// store flush.
	DefaultStorageBatch = 1000

	// DefaultShutdownGrace bounds how long a cancelled run waits for
	// in-flight host scans before abandoning them.
	DefaultShutdownGrace = 30 * time.Second

	// DefaultFlushTimeout bounds one storage flush, including the
	// store's own retries.
	DefaultFlushTimeout = 2 * time.Minute
)

// Config holds the orchestration knobs for one run.
type Config struct {
	// Domain is recorded on the session row.
	Domain string

	// OU optionally narrows the computer search to one subtree.
	OU string

	// MaxComputers caps directory enumeration. Zero means the directory
	// source default.
	MaxComputers int

	// Threads is the number of concurrent host scans.
	Threads int

	// ChunkSize is the host partition size handed to the pool.
	ChunkSize int

	// StorageBatch is the number of buffered share records that
	// triggers a store flush.
	StorageBatch int

	// ScanSensitive enables the recursive sensitive-filename walk. When
	// off, shares are still probed and inventoried.
	ScanSensitive bool

	// ShutdownGrace is how long a cancelled run waits for in-flight
	// hosts.
	ShutdownGrace time.Duration

	// FlushTimeout bounds one storage flush.
	FlushTimeout time.Duration
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Threads <= 0 {
		c.Threads = DefaultThreads
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.StorageBatch <= 0 {
		c.StorageBatch = DefaultStorageBatch
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = DefaultFlushTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.MaxComputers < 0 {
		return fmt.Errorf("invalid computer cap: %d", c.MaxComputers)
	}
	return nil
}

// HostSource yields the computers to scan. *directory.Source implements
// it.
type HostSource interface {
	Connect(ctx context.Context) error
	Computers(ctx context.Context, ou string, limit int) ([]string, error)
	Close() error
}

// Store persists sessions and share records. *store.GORMStore
// implements it.
type Store interface {
	BeginSession(ctx context.Context, domain string) (*models.ScanSession, error)
	EndSession(ctx context.Context, sessionID string, status models.SessionStatus, totals models.SessionTotals) error
	StoreBatch(ctx context.Context, sessionID string, records []models.Share) (store.BatchResult, error)

	// ListPatterns makes the store usable as a patterns.Source.
	ListPatterns(ctx context.Context, enabledOnly bool) ([]models.Pattern, error)
}

// HostScanner scans one host end to end. *scanner.Scanner implements
// it.
type HostScanner interface {
	ScanHost(ctx context.Context, hostname string) scanner.HostResult
}

// ScannerFactory builds the host scanner for a run once the pattern set
// is frozen. The registry is nil when the sensitive walk is disabled.
type ScannerFactory func(registry *patterns.Registry) (HostScanner, error)

// Summary is what one run produced. Share and sensitive counts reflect
// persisted rows only; records in dropped batches are not included.
type Summary struct {
	SessionID      string               `json:"session_id"`
	Status         models.SessionStatus `json:"status"`
	Hosts          int                  `json:"hosts"`
	Shares         int                  `json:"shares"`
	Sensitive      int                  `json:"sensitive"`
	DroppedBatches int                  `json:"dropped_batches,omitempty"`
	Duration       time.Duration        `json:"duration"`
}

// Engine coordinates one scan run.
type Engine struct {
	cfg     *Config
	source  HostSource
	factory ScannerFactory
	store   Store
	sink    ProgressSink
	metrics metrics.ScanMetrics
}

// New creates an engine. A nil sink disables progress reporting and a
// nil metrics value disables instrumentation.
func New(cfg *Config, source HostSource, factory ScannerFactory, st Store, sink ProgressSink, m metrics.ScanMetrics) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine configuration is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("host source is required")
	}
	if factory == nil {
		return nil, fmt.Errorf("scanner factory is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if sink == nil {
		sink = NopSink{}
	}

	return &Engine{
		cfg:     cfg,
		source:  source,
		factory: factory,
		store:   st,
		sink:    sink,
		metrics: m,
	}, nil
}
