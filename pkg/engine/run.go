package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/internal/telemetry"
	"github.com/bastionsec/sharescan/pkg/metrics"
	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/patterns"
	"github.com/bastionsec/sharescan/pkg/scanner"
)

// runState accumulates one run's results. It is touched only from the
// collector goroutine, which also serializes every store flush.
type runState struct {
	sessionID string
	total     int

	processed        int
	buffer           []models.Share
	sharesWritten    int
	sensitiveWritten int
	droppedBatches   int
	droppedRecords   int
}

// Run executes one scan session: bind the directory, enumerate
// computers, scan them on the worker pool, batch results into the
// store, and seal the session. Cancelling ctx stops host submission,
// waits up to ShutdownGrace for in-flight hosts, flushes what was
// collected and seals the session as failed; the partial summary is
// still returned alongside ctx.Err().
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanScanRun)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.ScanDomain(e.cfg.Domain))

	if err := e.source.Connect(ctx); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("directory connect: %w", err)
	}
	defer e.source.Close()

	hosts, err := e.source.Computers(ctx, e.cfg.OU, e.cfg.MaxComputers)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("computer enumeration: %w", err)
	}
	if len(hosts) == 0 {
		logger.WarnCtx(ctx, "Directory returned no computers, nothing to scan",
			logger.Domain(e.cfg.Domain),
		)
		return &Summary{Status: models.SessionCompleted, Duration: time.Since(start)}, nil
	}

	// The pattern set is frozen here; pattern edits during a run do not
	// affect it.
	var registry *patterns.Registry
	if e.cfg.ScanSensitive {
		registry = patterns.Load(ctx, e.store)
	}
	sc, err := e.factory(registry)
	if err != nil {
		return nil, fmt.Errorf("host scanner: %w", err)
	}

	session, err := e.store.BeginSession(ctx, e.cfg.Domain)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}

	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext("")
	}
	ctx = logger.WithContext(ctx, lc.WithSession(session.ID))
	telemetry.SetAttributes(ctx, telemetry.SessionID(session.ID), telemetry.HostsTotal(len(hosts)))
	ctx = telemetry.InjectTraceContext(ctx)
	logger.InfoCtx(ctx, "Scan session started",
		logger.Domain(e.cfg.Domain),
		logger.Hosts(len(hosts)),
		"threads", e.cfg.Threads,
	)
	metrics.SetSessionHosts(e.metrics, len(hosts))

	state := &runState{sessionID: session.ID, total: len(hosts)}
	runErr := e.scanAll(ctx, sc, state, hosts)

	// The residual flush and the session seal must survive run
	// cancellation; detaching keeps the log fields but not the cancel.
	e.flush(context.WithoutCancel(ctx), state)

	status := models.SessionCompleted
	if runErr != nil {
		status = models.SessionFailed
	}
	totals := models.SessionTotals{
		Hosts:     state.processed,
		Shares:    state.sharesWritten,
		Sensitive: state.sensitiveWritten,
	}
	if err := e.store.EndSession(context.WithoutCancel(ctx), session.ID, status, totals); err != nil {
		logger.ErrorCtx(ctx, "Failed to seal scan session", logger.Err(err))
		if runErr == nil {
			runErr = fmt.Errorf("end session: %w", err)
		}
	}

	summary := &Summary{
		SessionID:      session.ID,
		Status:         status,
		Hosts:          state.processed,
		Shares:         state.sharesWritten,
		Sensitive:      state.sensitiveWritten,
		DroppedBatches: state.droppedBatches,
		Duration:       time.Since(start),
	}
	logger.InfoCtx(ctx, "Scan session finished",
		logger.Status(status.String()),
		logger.Hosts(summary.Hosts),
		logger.Shares(summary.Shares),
		logger.Sensitive(summary.Sensitive),
		logger.Dropped(state.droppedRecords),
		logger.DurationMs(float64(summary.Duration.Milliseconds())),
	)
	if runErr != nil {
		telemetry.RecordError(ctx, runErr)
	}
	return summary, runErr
}

// scanAll feeds hosts to the pool one chunk at a time. A chunk drains
// completely before the next starts, bounding how much the slowest host
// of a chunk can fall behind the batch flushes.
func (e *Engine) scanAll(ctx context.Context, sc HostScanner, state *runState, hosts []string) error {
	for begin := 0; begin < len(hosts); begin += e.cfg.ChunkSize {
		end := begin + e.cfg.ChunkSize
		if end > len(hosts) {
			end = len(hosts)
		}
		if err := e.scanChunk(ctx, sc, state, hosts[begin:end]); err != nil {
			return err
		}
	}
	return nil
}

// scanChunk runs one host chunk on the worker pool and collects every
// result. Returns non-nil only when the run was cancelled.
func (e *Engine) scanChunk(ctx context.Context, sc HostScanner, state *runState, chunk []string) error {
	jobs := make(chan string)
	// Buffered so workers never block on a collector that has given up
	// waiting; abandoned results are simply never read.
	results := make(chan scanner.HostResult, len(chunk))

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range jobs {
				results <- e.scanOne(ctx, sc, host)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for _, host := range chunk {
			select {
			case jobs <- host:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case res, ok := <-results:
			if !ok {
				return ctx.Err()
			}
			e.collect(ctx, state, res)
		case <-ctx.Done():
			return e.drain(ctx, state, results)
		}
	}
}

// drain keeps collecting after cancellation until the workers return or
// the grace period runs out. Hosts still in flight after that are
// abandoned and do not count as processed.
func (e *Engine) drain(ctx context.Context, state *runState, results <-chan scanner.HostResult) error {
	timer := time.NewTimer(e.cfg.ShutdownGrace)
	defer timer.Stop()

	for {
		select {
		case res, ok := <-results:
			if !ok {
				return ctx.Err()
			}
			e.collect(ctx, state, res)
		case <-timer.C:
			logger.WarnCtx(ctx, "Shutdown grace period expired with host scans still in flight",
				logger.Processed(state.processed),
				logger.Total(state.total),
			)
			return ctx.Err()
		}
	}
}

// scanOne runs a single host scan with instrumentation.
func (e *Engine) scanOne(ctx context.Context, sc HostScanner, hostname string) scanner.HostResult {
	ctx, span := telemetry.StartHostSpan(ctx, hostname)
	defer span.End()
	ctx = telemetry.InjectTraceContext(ctx)

	metrics.RecordHostScanStart(e.metrics)
	defer metrics.RecordHostScanEnd(e.metrics)

	start := time.Now()
	res := sc.ScanHost(ctx, hostname)
	if res.Err != nil {
		telemetry.RecordError(ctx, res.Err)
	}
	telemetry.SetAttributes(ctx, telemetry.ShareCount(len(res.Shares)))
	metrics.RecordHostScan(e.metrics, outcomeFor(res.Err), time.Since(start))
	return res
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCompleted
	case errors.Is(err, scanner.ErrHostDeadline):
		return metrics.OutcomeDeadline
	default:
		return metrics.OutcomeFailed
	}
}

// collect folds one host result into the run state and flushes the
// buffer when it reaches the storage batch size.
func (e *Engine) collect(ctx context.Context, state *runState, res scanner.HostResult) {
	state.processed++
	e.sink.Report(res.Hostname, state.processed, state.total)

	if res.Err != nil {
		switch {
		case errors.Is(res.Err, context.Canceled):
			// Partial results from a cancelled host are kept as they
			// are; the run-level status already says why.
		case errors.Is(res.Err, scanner.ErrHostDeadline):
			logger.WarnCtx(ctx, "Host deadline exceeded, keeping finished shares",
				logger.Host(res.Hostname),
				logger.Shares(len(res.Shares)),
			)
		default:
			// Host-level failures become a record so they show up in
			// reports next to the hosts that answered.
			res.Shares = append(res.Shares, models.Share{
				Hostname:     res.Hostname,
				AccessLevel:  models.AccessError.String(),
				ErrorMessage: res.Err.Error(),
				ScanTime:     time.Now().UTC(),
			})
		}
	}

	for i := range res.Shares {
		metrics.RecordShare(e.metrics, res.Shares[i].AccessLevel)
	}
	for category, count := range countByCategory(res.Shares) {
		metrics.RecordSensitiveFiles(e.metrics, category, count)
	}

	state.buffer = append(state.buffer, res.Shares...)
	if len(state.buffer) >= e.cfg.StorageBatch {
		e.flush(ctx, state)
	}
}

// flush hands the pending buffer to the store. A failed batch is logged
// and dropped; the run continues and the session totals only ever count
// persisted rows.
func (e *Engine) flush(ctx context.Context, state *runState) {
	if len(state.buffer) == 0 {
		return
	}
	batch := state.buffer
	state.buffer = nil

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.FlushTimeout)
	defer cancel()
	flushCtx, span := telemetry.StartBatchSpan(flushCtx, len(batch))
	defer span.End()

	start := time.Now()
	result, err := e.store.StoreBatch(flushCtx, state.sessionID, batch)
	metrics.RecordBatchFlush(e.metrics, len(batch), time.Since(start), err)
	if err != nil {
		state.droppedBatches++
		state.droppedRecords += len(batch)
		metrics.RecordBatchDropped(e.metrics, len(batch))
		telemetry.RecordError(flushCtx, err)
		logger.ErrorCtx(ctx, "Dropping result batch after store failure",
			logger.Rows(len(batch)),
			logger.Err(err),
		)
		return
	}

	telemetry.SetAttributes(flushCtx,
		telemetry.RowsWritten(result.SharesWritten),
		telemetry.RowsSkipped(result.Skipped))
	state.sharesWritten += result.SharesWritten
	state.sensitiveWritten += result.SensitiveWritten
	logger.DebugCtx(ctx, "Stored result batch",
		logger.Shares(result.SharesWritten),
		logger.Sensitive(result.SensitiveWritten),
		logger.Processed(state.processed),
		logger.Total(state.total),
	)
}

func countByCategory(shares []models.Share) map[string]int {
	var counts map[string]int
	for i := range shares {
		for j := range shares[i].SensitiveFiles {
			if counts == nil {
				counts = make(map[string]int)
			}
			counts[shares[i].SensitiveFiles[j].DetectionType]++
		}
	}
	return counts
}
