package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bastionsec/sharescan/pkg/api/sse"
	"github.com/bastionsec/sharescan/pkg/status"
)

// Events handles GET /api/v1/scans/{id}/events.
//
// Streams scan lifecycle events as server-sent events. The stream opens
// with a status snapshot, follows with progress events as hosts finish,
// and ends with a done event once the scan reaches a terminal state.
func (h *ScanHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Scan id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalServerError(w, "Streaming not supported")
		return
	}

	// Subscribe before the snapshot read so an event published in
	// between is not missed.
	ch, cancel := h.events.Subscribe(id)
	defer cancel()

	st, err := h.statuses.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			NotFound(w, "Scan not found or expired")
			return
		}
		InternalServerError(w, "Failed to get scan status")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The stream stays open for the scan's lifetime; the server-wide
	// write deadline would cut it off.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	if err := sse.WriteEvent(w, sse.Event{Type: sse.EventStatus, Data: st}); err != nil {
		return
	}
	flusher.Flush()

	if st.State.Terminal() {
		_ = sse.WriteEvent(w, sse.Event{Type: sse.EventDone, Data: st})
		flusher.Flush()
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := sse.WriteEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
			if ev.Type == sse.EventDone {
				return
			}
		}
	}
}
