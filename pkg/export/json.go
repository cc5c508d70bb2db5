package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bastionsec/sharescan/internal/telemetry"
	"github.com/bastionsec/sharescan/pkg/models"
)

// SessionDocument is the self-contained JSON dump of one session:
// the session row, its access-level breakdown, and every share record
// with root inventory and findings attached.
type SessionDocument struct {
	Session      models.ScanSession `json:"session"`
	AccessLevels map[string]int     `json:"access_levels"`
	Shares       []models.Share     `json:"shares"`
}

// SessionJSON writes the full-session JSON document.
func (e *Exporter) SessionJSON(ctx context.Context, sessionID string, w io.Writer) error {
	ctx, span := telemetry.StartExportSpan(ctx, "json", telemetry.SessionID(sessionID))
	defer span.End()

	summary, err := e.store.Summary(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("session summary: %w", err)
	}
	shares, err := e.sessionShares(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	doc := SessionDocument{
		Session:      summary.Session,
		AccessLevels: summary.AccessLevels,
		Shares:       shares,
	}

	telemetry.SetAttributes(ctx, telemetry.ExportRows(len(shares)))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&doc)
}
