package apiclient

import (
	"fmt"

	"github.com/bastionsec/sharescan/pkg/api/handlers"
	"github.com/bastionsec/sharescan/pkg/status"
)

// HealthData is the payload of a liveness response.
type HealthData struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// HealthStatus is the envelope returned by GET /healthz.
type HealthStatus struct {
	Status    string     `json:"status"`
	Timestamp string     `json:"timestamp"`
	Data      HealthData `json:"data"`
	Error     string     `json:"error,omitempty"`
}

// Healthy returns true if the server reported itself healthy.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// Health checks the server liveness endpoint.
func (c *Client) Health() (*HealthStatus, error) {
	var resp HealthStatus
	if err := c.get("/healthz", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListScans returns every tracked scan, most recently started first.
func (c *Client) ListScans() ([]status.ScanStatus, error) {
	var scans []status.ScanStatus
	if err := c.get("/api/v1/scans", &scans); err != nil {
		return nil, err
	}
	return scans, nil
}

// GetScan returns one tracked scan by id.
func (c *Client) GetScan(scanID string) (*status.ScanStatus, error) {
	var scan status.ScanStatus
	if err := c.get(fmt.Sprintf("/api/v1/scans/%s", scanID), &scan); err != nil {
		return nil, err
	}
	return &scan, nil
}

// StartScan submits a scan to the server. Requires a token with the
// operator role.
func (c *Client) StartScan(req handlers.ScanRequest) (*handlers.StartScanResponse, error) {
	var resp handlers.StartScanResponse
	if err := c.post("/api/v1/scans", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
