package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/bastionsec/sharescan/pkg/models"
)

// PatternStore is the result-store surface the pattern endpoints need.
type PatternStore interface {
	ListPatterns(ctx context.Context, enabledOnly bool) ([]models.Pattern, error)
	GetPattern(ctx context.Context, patternID string) (*models.Pattern, error)
	AddPattern(ctx context.Context, expr, category, description string) (*models.Pattern, error)
	UpdatePattern(ctx context.Context, patternID, expr, category, description string) error
	SetPatternEnabled(ctx context.Context, patternID string, enabled bool) error
	DeletePattern(ctx context.Context, patternID string) error
}

// PatternHandler handles detection pattern API endpoints.
//
// Pattern changes take effect on the next scan; running scans keep the
// pattern set they compiled at startup.
type PatternHandler struct {
	store PatternStore
}

// NewPatternHandler creates a new PatternHandler.
func NewPatternHandler(s PatternStore) *PatternHandler {
	return &PatternHandler{store: s}
}

// PatternRequest is the request body for pattern create and update.
type PatternRequest struct {
	Pattern     string `json:"pattern"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// validate checks required fields and that the expression compiles, so
// a malformed pattern is a 400 rather than a store error.
func (req *PatternRequest) validate() string {
	if req.Pattern == "" {
		return "Pattern is required"
	}
	if req.Category == "" {
		return "Category is required"
	}
	if _, err := regexp.Compile(req.Pattern); err != nil {
		return "Pattern is not a valid regular expression"
	}
	return ""
}

// List handles GET /api/v1/patterns.
// Supports an enabled=true query filter.
func (h *PatternHandler) List(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	patterns, err := h.store.ListPatterns(r.Context(), enabledOnly)
	if err != nil {
		InternalServerError(w, "Failed to list patterns")
		return
	}

	if patterns == nil {
		patterns = []models.Pattern{}
	}
	WriteJSONOK(w, patterns)
}

// Get handles GET /api/v1/patterns/{id}.
func (h *PatternHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Pattern id is required")
		return
	}

	pattern, err := h.store.GetPattern(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrPatternNotFound) {
			NotFound(w, "Pattern not found")
			return
		}
		InternalServerError(w, "Failed to get pattern")
		return
	}

	WriteJSONOK(w, pattern)
}

// Create handles POST /api/v1/patterns.
func (h *PatternHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PatternRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		BadRequest(w, msg)
		return
	}

	pattern, err := h.store.AddPattern(r.Context(), req.Pattern, req.Category, req.Description)
	if err != nil {
		if errors.Is(err, models.ErrDuplicatePattern) {
			Conflict(w, "Pattern already exists for this category")
			return
		}
		InternalServerError(w, "Failed to create pattern")
		return
	}

	WriteJSONCreated(w, pattern)
}

// Update handles PUT /api/v1/patterns/{id}.
func (h *PatternHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Pattern id is required")
		return
	}

	var req PatternRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		BadRequest(w, msg)
		return
	}

	err := h.store.UpdatePattern(r.Context(), id, req.Pattern, req.Category, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPatternNotFound):
			NotFound(w, "Pattern not found")
		case errors.Is(err, models.ErrDuplicatePattern):
			Conflict(w, "Pattern already exists for this category")
		default:
			InternalServerError(w, "Failed to update pattern")
		}
		return
	}

	pattern, err := h.store.GetPattern(r.Context(), id)
	if err != nil {
		InternalServerError(w, "Failed to get pattern")
		return
	}

	WriteJSONOK(w, pattern)
}

// Enable handles POST /api/v1/patterns/{id}/enable.
func (h *PatternHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// Disable handles POST /api/v1/patterns/{id}/disable.
func (h *PatternHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *PatternHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Pattern id is required")
		return
	}

	if err := h.store.SetPatternEnabled(r.Context(), id, enabled); err != nil {
		if errors.Is(err, models.ErrPatternNotFound) {
			NotFound(w, "Pattern not found")
			return
		}
		InternalServerError(w, "Failed to update pattern")
		return
	}

	WriteNoContent(w)
}

// Delete handles DELETE /api/v1/patterns/{id}.
func (h *PatternHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Pattern id is required")
		return
	}

	if err := h.store.DeletePattern(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrPatternNotFound) {
			NotFound(w, "Pattern not found")
			return
		}
		InternalServerError(w, "Failed to delete pattern")
		return
	}

	WriteNoContent(w)
}
