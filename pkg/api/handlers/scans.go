package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bastionsec/sharescan/pkg/api/sse"
	"github.com/bastionsec/sharescan/pkg/status"
)

// ErrScanLimit is returned by Starter implementations when the
// concurrent scan cap is reached.
var ErrScanLimit = errors.New("maximum concurrent scans reached")

// Starter launches scans in the background. The context covers only
// the synchronous setup; the scan itself outlives the request.
type Starter interface {
	Start(ctx context.Context, req ScanRequest) (string, error)
}

// StatusReader reads tracked scan statuses.
type StatusReader interface {
	Get(ctx context.Context, id string) (*status.ScanStatus, error)
	List(ctx context.Context) ([]status.ScanStatus, error)
}

// Subscriber attaches to the live event feed of one scan.
type Subscriber interface {
	Subscribe(scanID string) (<-chan sse.Event, func())
}

// ScanHandler handles scan lifecycle API endpoints.
type ScanHandler struct {
	starter  Starter
	statuses StatusReader
	events   Subscriber
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(starter Starter, statuses StatusReader, events Subscriber) *ScanHandler {
	return &ScanHandler{starter: starter, statuses: statuses, events: events}
}

// ScanRequest is the request body for POST /api/v1/scans.
//
// Timeouts are expressed in seconds to keep the payload plain JSON
// numbers. Zero values fall back to server-side defaults.
type ScanRequest struct {
	Domain   string `json:"domain"`
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`

	LDAPPort     int    `json:"ldap_port,omitempty"`
	Threads      int    `json:"threads,omitempty"`
	BatchSize    int    `json:"batch_size,omitempty"`
	MaxDepth     int    `json:"max_depth,omitempty"`
	ScanTimeout  int    `json:"scan_timeout,omitempty"`
	HostTimeout  int    `json:"host_timeout,omitempty"`
	MaxComputers int    `json:"max_computers,omitempty"`
	OU           string `json:"ou,omitempty"`

	// Schedule is reserved for recurring scans.
	Schedule string `json:"schedule,omitempty"`
}

// StartScanResponse is the response body for POST /api/v1/scans.
type StartScanResponse struct {
	Status string `json:"status"`
	ScanID string `json:"scan_id"`
}

// Start handles POST /api/v1/scans.
// Launches a background scan and returns its id immediately.
func (h *ScanHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Schedule != "" {
		NotImplemented(w, "Scheduled scans are not implemented")
		return
	}
	if req.Domain == "" {
		BadRequest(w, "Domain is required")
		return
	}
	if req.Server == "" {
		BadRequest(w, "Server is required")
		return
	}
	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	scanID, err := h.starter.Start(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrScanLimit) {
			Conflict(w, "Maximum concurrent scans reached")
			return
		}
		InternalServerError(w, "Failed to start scan")
		return
	}

	WriteJSONAccepted(w, StartScanResponse{Status: "started", ScanID: scanID})
}

// List handles GET /api/v1/scans.
// Returns every tracked scan, most recently started first.
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.List(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list scans")
		return
	}

	if statuses == nil {
		statuses = []status.ScanStatus{}
	}
	WriteJSONOK(w, statuses)
}

// Get handles GET /api/v1/scans/{id}.
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Scan id is required")
		return
	}

	st, err := h.statuses.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			NotFound(w, "Scan not found or expired")
			return
		}
		InternalServerError(w, "Failed to get scan status")
		return
	}

	WriteJSONOK(w, st)
}
