package status

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewScanID(t *testing.T) {
	now := time.Date(2026, 8, 26, 14, 22, 33, 0, time.UTC)
	if got := NewScanID(now); got != "scan_20260826_142233" {
		t.Errorf("NewScanID = %q", got)
	}
}

func TestPutGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	st := &ScanStatus{
		ID:        "scan_20260826_100000",
		State:     StateRunning,
		Domain:    "corp.example.com",
		Progress:  Progress{CurrentHost: "ws1", Processed: 3, Total: 10},
		StartedAt: started,
	}
	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, st.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateRunning || got.Domain != "corp.example.com" {
		t.Errorf("got %+v", got)
	}
	if got.Progress.Processed != 3 || got.Progress.CurrentHost != "ws1" {
		t.Errorf("progress = %+v", got.Progress)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started at = %v", got.StartedAt)
	}

	if _, err := s.Get(ctx, "scan_unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}

	if err := s.Put(ctx, &ScanStatus{}); err == nil {
		t.Error("empty id accepted")
	}
}

func TestSetProgress(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	st := &ScanStatus{ID: "scan_1", State: StateRunning, StartedAt: time.Now().UTC()}
	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := s.SetProgress(ctx, "scan_1", Progress{CurrentHost: "ws9", Processed: 9, Total: 10}); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	got, err := s.Get(ctx, "scan_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Progress.Processed != 9 || got.Progress.CurrentHost != "ws9" {
		t.Errorf("progress = %+v", got.Progress)
	}
	if got.State != StateRunning {
		t.Errorf("state changed to %q", got.State)
	}

	if err := s.SetProgress(ctx, "scan_unknown", Progress{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}
}

func TestFinish(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	st := &ScanStatus{ID: "scan_1", State: StateRunning, StartedAt: time.Now().UTC()}
	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := s.Finish(ctx, "scan_1", StateRunning, ""); err == nil {
		t.Error("non-terminal state accepted")
	}

	if err := s.Finish(ctx, "scan_1", StateFailed, "directory bind failed"); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, err := s.Get(ctx, "scan_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateFailed || got.Error != "directory bind failed" {
		t.Errorf("got %+v", got)
	}
	if got.EndedAt == nil {
		t.Error("EndedAt not set")
	}
	if !got.State.Terminal() {
		t.Error("failed state not terminal")
	}
}

func TestSetResult(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	st := &ScanStatus{ID: "scan_1", State: StateRunning, StartedAt: time.Now().UTC()}
	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := s.SetResult(ctx, "scan_1", "session-9", 42, 7); err != nil {
		t.Fatalf("SetResult: %v", err)
	}
	got, err := s.Get(ctx, "scan_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SessionID != "session-9" || got.Shares != 42 || got.Sensitive != 7 {
		t.Errorf("got %+v", got)
	}
	if got.State != StateRunning {
		t.Errorf("state changed to %q", got.State)
	}

	if err := s.SetResult(ctx, "scan_unknown", "s", 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}
}

func TestList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"scan_a", "scan_b", "scan_c"} {
		st := &ScanStatus{ID: id, State: StateRunning, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.Put(ctx, st); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	statuses, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses, want 3", len(statuses))
	}
	// Most recently started first.
	for i, want := range []string{"scan_c", "scan_b", "scan_a"} {
		if statuses[i].ID != want {
			t.Errorf("statuses[%d] = %s, want %s", i, statuses[i].ID, want)
		}
	}
}

func TestTTLExpiry(t *testing.T) {
	s, err := Open(Config{InMemory: true, TTL: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	st := &ScanStatus{ID: "scan_old", State: StateCompleted, StartedAt: time.Now().UTC()}
	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := s.Get(ctx, "scan_old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired entry: err = %v", err)
	}
	statuses, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("expired entry still listed: %+v", statuses)
	}
}
