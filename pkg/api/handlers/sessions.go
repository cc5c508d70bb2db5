package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/store"
)

// SessionStore is the result-store surface the session endpoints need.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (*models.ScanSession, error)
	ListSessions(ctx context.Context, limit, offset int) ([]models.ScanSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Summary(ctx context.Context, sessionID string) (*models.SessionSummary, error)
	ListShares(ctx context.Context, filter store.ShareFilter) ([]models.Share, error)
	ListFindings(ctx context.Context, filter store.FindingFilter) ([]models.Finding, error)
}

// SessionHandler handles scan session API endpoints.
type SessionHandler struct {
	store SessionStore
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s SessionStore) *SessionHandler {
	return &SessionHandler{store: s}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	sessions, err := h.store.ListSessions(r.Context(), limit, offset)
	if err != nil {
		InternalServerError(w, "Failed to list sessions")
		return
	}

	if sessions == nil {
		sessions = []models.ScanSession{}
	}
	WriteJSONOK(w, sessions)
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Session id is required")
		return
	}

	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			NotFound(w, "Session not found")
			return
		}
		InternalServerError(w, "Failed to get session")
		return
	}

	WriteJSONOK(w, session)
}

// Summary handles GET /api/v1/sessions/{id}/summary.
// Returns the session row with per-category and per-host rollups.
func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Session id is required")
		return
	}

	summary, err := h.store.Summary(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			NotFound(w, "Session not found")
			return
		}
		InternalServerError(w, "Failed to summarize session")
		return
	}

	WriteJSONOK(w, summary)
}

// Delete handles DELETE /api/v1/sessions/{id}.
// Removes the session and all of its shares and findings (admin only).
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Session id is required")
		return
	}

	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			NotFound(w, "Session not found")
			return
		}
		InternalServerError(w, "Failed to delete session")
		return
	}

	WriteNoContent(w)
}

// Shares handles GET /api/v1/sessions/{id}/shares.
// Supports hostname and access_level query filters.
func (h *SessionHandler) Shares(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Session id is required")
		return
	}

	// Look up the session first so an unknown id is a 404, not an
	// empty list.
	if _, err := h.store.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			NotFound(w, "Session not found")
			return
		}
		InternalServerError(w, "Failed to get session")
		return
	}

	limit, offset := pageParams(r)
	shares, err := h.store.ListShares(r.Context(), store.ShareFilter{
		SessionID:   id,
		Hostname:    r.URL.Query().Get("hostname"),
		AccessLevel: r.URL.Query().Get("access_level"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		InternalServerError(w, "Failed to list shares")
		return
	}

	if shares == nil {
		shares = []models.Share{}
	}
	WriteJSONOK(w, shares)
}

// Findings handles GET /api/v1/sessions/{id}/findings.
// Supports category and hostname query filters.
func (h *SessionHandler) Findings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Session id is required")
		return
	}

	if _, err := h.store.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			NotFound(w, "Session not found")
			return
		}
		InternalServerError(w, "Failed to get session")
		return
	}

	limit, offset := pageParams(r)
	findings, err := h.store.ListFindings(r.Context(), store.FindingFilter{
		SessionID: id,
		Category:  r.URL.Query().Get("category"),
		Hostname:  r.URL.Query().Get("hostname"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		InternalServerError(w, "Failed to list findings")
		return
	}

	if findings == nil {
		findings = []models.Finding{}
	}
	WriteJSONOK(w, findings)
}
