// Package sse fans scan lifecycle events out to server-sent-event
// subscribers. The broadcaster is deliberately lossy: a subscriber that
// cannot keep up misses intermediate progress events rather than
// blocking the scan that produces them.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Event types emitted over a scan's stream.
const (
	// EventStatus carries a full ScanStatus snapshot. Sent once when a
	// subscriber attaches, so late joiners catch up immediately.
	EventStatus = "status"

	// EventProgress carries a Progress update after each host completes.
	EventProgress = "progress"

	// EventDone carries the final ScanStatus and terminates the stream.
	EventDone = "done"
)

// subscriberBuffer is the per-subscriber channel depth. Progress events
// beyond it are dropped for that subscriber.
const subscriberBuffer = 16

// Event is one server-sent event: a type tag and a JSON-encodable
// payload.
type Event struct {
	Type string
	Data any
}

// Broadcaster routes events to the subscribers of each scan.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers for events about one scan. The returned channel
// receives events until cancel is called; cancel is idempotent and must
// be called when the subscriber is done, or its channel leaks.
func (b *Broadcaster) Subscribe(scanID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	set := b.subs[scanID]
	if set == nil {
		set = make(map[chan Event]struct{})
		b.subs[scanID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		set := b.subs[scanID]
		if set == nil {
			return
		}
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		if len(set) == 0 {
			delete(b.subs, scanID)
		}
		close(ch)
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the scan. Slow
// subscribers are skipped, never waited for.
func (b *Broadcaster) Publish(scanID string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[scanID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// WriteEvent writes one event in text/event-stream framing.
func WriteEvent(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
