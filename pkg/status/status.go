// Package status tracks in-flight and recent scans for the control API.
//
// Statuses live in an embedded Badger store so they survive server
// restarts without touching the result datastore. Every entry carries a
// TTL (default 24h); finished scans age out on their own and no sweep
// job is needed.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/bastionsec/sharescan/internal/logger"
)

// ErrNotFound is returned when a scan id has no status entry, either
// because it never existed or because its TTL expired.
var ErrNotFound = errors.New("scan status not found")

// DefaultTTL is how long a status entry is retained.
const DefaultTTL = 24 * time.Hour

// Key namespace: one prefix today, but keeping statuses under "scan:"
// leaves room for other control-plane state in the same store.
const prefixScan = "scan:"

func keyScan(id string) []byte {
	return []byte(prefixScan + id)
}

// NewScanID returns a scan identifier like scan_20260826_142233.
func NewScanID(now time.Time) string {
	return "scan_" + now.UTC().Format("20060102_150405")
}

// State is the lifecycle of one tracked scan.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal returns true once the scan can no longer change state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Progress is the lossy per-host progress of a running scan.
type Progress struct {
	CurrentHost string `json:"current_host,omitempty"`
	Processed   int    `json:"processed"`
	Total       int    `json:"total"`
}

// ScanStatus is one tracked scan run.
type ScanStatus struct {
	ID        string     `json:"id"`
	State     State      `json:"state"`
	Domain    string     `json:"domain,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Progress  Progress   `json:"progress"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`

	// Final counters, set when the scan reaches a terminal state.
	Shares    int `json:"shares,omitempty"`
	Sensitive int `json:"sensitive,omitempty"`
}

// Config holds the status store settings.
type Config struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path string

	// TTL is how long entries are retained. Zero means DefaultTTL.
	TTL time.Duration

	// InMemory keeps the store off disk. Used by tests and one-shot
	// CLI runs that have no server to share state with.
	InMemory bool
}

// Store persists scan statuses with a TTL.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens or creates the status store.
func Open(cfg Config) (*Store, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open status store: %w", err)
	}

	return &Store{db: db, ttl: cfg.TTL}, nil
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes a status entry, replacing any previous one and resetting
// its TTL.
func (s *Store) Put(ctx context.Context, st *ScanStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.ID == "" {
		return fmt.Errorf("scan status has no id")
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode scan status: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(keyScan(st.ID), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
}

// Get returns one status entry. Returns ErrNotFound for unknown or
// expired ids.
func (s *Store) Get(ctx context.Context, id string) (*ScanStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var st *ScanStatus
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyScan(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var decoded ScanStatus
			if err := json.Unmarshal(val, &decoded); err != nil {
				return fmt.Errorf("failed to decode scan status: %w", err)
			}
			st = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return st, nil
}

// List returns every live status entry, most recently started first.
func (s *Store) List(ctx context.Context) ([]ScanStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var statuses []ScanStatus
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixScan)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var st ScanStatus
				if err := json.Unmarshal(val, &st); err != nil {
					// A corrupt entry should not hide the rest.
					logger.Warn("Skipping undecodable scan status",
						"key", string(it.Item().Key()), logger.Err(err))
					return nil
				}
				statuses = append(statuses, st)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].StartedAt.After(statuses[j].StartedAt)
	})
	return statuses, nil
}

// SetProgress updates the progress of a running scan in place. The TTL
// is refreshed so a long scan does not expire mid-run. Unknown ids
// return ErrNotFound.
func (s *Store) SetProgress(ctx context.Context, id string, p Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(id, func(st *ScanStatus) {
		st.Progress = p
	})
}

// SetResult records the session a scan produced and its final
// counters. Unknown ids return ErrNotFound.
func (s *Store) SetResult(ctx context.Context, id, sessionID string, shares, sensitive int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(id, func(st *ScanStatus) {
		st.SessionID = sessionID
		st.Shares = shares
		st.Sensitive = sensitive
	})
}

// Finish marks a scan terminal with its outcome. The error message is
// recorded verbatim; pass "" on success.
func (s *Store) Finish(ctx context.Context, id string, state State, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !state.Terminal() {
		return fmt.Errorf("state %q is not terminal", state)
	}

	now := time.Now().UTC()
	return s.update(id, func(st *ScanStatus) {
		st.State = state
		st.EndedAt = &now
		st.Error = errMsg
	})
}

// update applies fn to one entry inside a single transaction.
func (s *Store) update(id string, fn func(*ScanStatus)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyScan(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var st ScanStatus
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &st)
		})
		if err != nil {
			return fmt.Errorf("failed to decode scan status: %w", err)
		}

		fn(&st)

		data, err := json.Marshal(&st)
		if err != nil {
			return fmt.Errorf("failed to encode scan status: %w", err)
		}
		entry := badger.NewEntry(keyScan(id), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
}
