package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/pkg/api/handlers"
	"github.com/bastionsec/sharescan/pkg/api/sse"
	"github.com/bastionsec/sharescan/pkg/engine"
	"github.com/bastionsec/sharescan/pkg/status"
)

// RunFunc executes one scan to completion. Implementations translate
// the request into engine configuration, run the scan, and return its
// summary. A non-nil summary alongside an error carries the partial
// results of a cancelled run.
type RunFunc func(ctx context.Context, req handlers.ScanRequest, sink engine.ProgressSink) (*engine.Summary, error)

// ScanRunner launches scans in the background and tracks their
// lifecycle: status entries, progress updates, and event fan-out.
//
// A weighted semaphore caps concurrent scans. Each scan runs under its
// own context so Shutdown can cancel all of them without tearing down
// the HTTP server first.
type ScanRunner struct {
	run    RunFunc
	status *status.Store
	events *sse.Broadcaster
	slots  *semaphore.Weighted

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewScanRunner creates a runner that allows up to maxConcurrent
// simultaneous scans.
func NewScanRunner(run RunFunc, st *status.Store, events *sse.Broadcaster, maxConcurrent int64) *ScanRunner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ScanRunner{
		run:     run,
		status:  st,
		events:  events,
		slots:   semaphore.NewWeighted(maxConcurrent),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start registers a new scan and launches it in the background. The
// context covers only the synchronous setup; the scan itself runs under
// the runner's lifecycle. Returns handlers.ErrScanLimit when every slot
// is taken.
func (r *ScanRunner) Start(ctx context.Context, req handlers.ScanRequest) (string, error) {
	if !r.slots.TryAcquire(1) {
		return "", handlers.ErrScanLimit
	}

	now := time.Now()
	scanID := status.NewScanID(now)
	entry := &status.ScanStatus{
		ID:        scanID,
		State:     status.StateRunning,
		Domain:    req.Domain,
		StartedAt: now.UTC(),
	}
	if err := r.status.Put(ctx, entry); err != nil {
		r.slots.Release(1)
		return "", fmt.Errorf("failed to register scan: %w", err)
	}

	scanCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		r.slots.Release(1)
		return "", fmt.Errorf("server is shutting down")
	}
	// Ids have one-second granularity; a second scan in the same
	// second would clobber the first's tracking.
	if _, exists := r.cancels[scanID]; exists {
		r.mu.Unlock()
		cancel()
		r.slots.Release(1)
		return "", fmt.Errorf("scan %s is already running", scanID)
	}
	r.cancels[scanID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.slots.Release(1)
		defer func() {
			r.mu.Lock()
			delete(r.cancels, scanID)
			r.mu.Unlock()
			cancel()
		}()
		r.execute(scanCtx, scanID, req)
	}()

	return scanID, nil
}

// execute runs one scan and records its outcome.
func (r *ScanRunner) execute(ctx context.Context, scanID string, req handlers.ScanRequest) {
	ctx = logger.WithContext(ctx, logger.NewLogContext(scanID))
	logger.InfoCtx(ctx, "Scan started", "domain", req.Domain, "server", req.Server)

	sink := engine.SinkFunc(func(host string, processed, total int) {
		p := status.Progress{CurrentHost: host, Processed: processed, Total: total}
		// Progress writes use a fresh context so a cancelled scan can
		// still record its last state.
		if err := r.status.SetProgress(context.Background(), scanID, p); err != nil {
			logger.WarnCtx(ctx, "Failed to record scan progress", logger.Err(err))
		}
		r.events.Publish(scanID, sse.Event{Type: sse.EventProgress, Data: p})
	})

	summary, err := r.run(ctx, req, sink)

	finishCtx := context.WithoutCancel(ctx)
	if summary != nil {
		if rerr := r.status.SetResult(finishCtx, scanID, summary.SessionID, summary.Shares, summary.Sensitive); rerr != nil {
			logger.WarnCtx(ctx, "Failed to record scan result", logger.Err(rerr))
		}
	}

	state := status.StateCompleted
	errMsg := ""
	if err != nil {
		state = status.StateFailed
		errMsg = err.Error()
		logger.ErrorCtx(ctx, "Scan failed", logger.Err(err))
	} else {
		logger.InfoCtx(ctx, "Scan completed",
			"hosts", summaryHosts(summary), "shares", summaryShares(summary))
	}
	if ferr := r.status.Finish(finishCtx, scanID, state, errMsg); ferr != nil {
		logger.WarnCtx(ctx, "Failed to finish scan status", logger.Err(ferr))
	}

	final, gerr := r.status.Get(finishCtx, scanID)
	if gerr != nil {
		final = &status.ScanStatus{ID: scanID, State: state, Error: errMsg}
	}
	r.events.Publish(scanID, sse.Event{Type: sse.EventDone, Data: final})
}

// Shutdown cancels every running scan and waits for them to drain or
// the context to expire.
func (r *ScanRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scans still running at shutdown")
	}
}

func summaryHosts(s *engine.Summary) int {
	if s == nil {
		return 0
	}
	return s.Hosts
}

func summaryShares(s *engine.Summary) int {
	if s == nil {
		return 0
	}
	return s.Shares
}
