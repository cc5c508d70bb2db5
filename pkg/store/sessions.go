package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bastionsec/sharescan/pkg/models"
)

// BeginSession creates a new scan session in the running state and
// returns it. The session ID is a generated UUID.
func (s *GORMStore) BeginSession(ctx context.Context, domain string) (*models.ScanSession, error) {
	session := &models.ScanSession{
		ID:        uuid.New().String(),
		Domain:    truncate(domain, maxNameLen),
		Status:    models.SessionRunning.String(),
		StartTime: time.Now().UTC(),
	}

	err := s.withRetry(ctx, "begin session", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(session).Error
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// EndSession seals a running session with its final status and totals.
// Sessions transition out of running exactly once. A second call returns
// ErrSessionSealed, an unknown ID returns ErrSessionNotFound.
func (s *GORMStore) EndSession(ctx context.Context, sessionID string, status models.SessionStatus, totals models.SessionTotals) error {
	if !status.Terminal() {
		return fmt.Errorf("session status %q is not terminal", status)
	}

	return s.withRetry(ctx, "end session", func(ctx context.Context) error {
		now := time.Now().UTC()

		result := s.db.WithContext(ctx).
			Model(&models.ScanSession{}).
			Where("id = ? AND status = ?", sessionID, models.SessionRunning.String()).
			Updates(map[string]any{
				"status":          status.String(),
				"end_time":        &now,
				"total_hosts":     clampCount(totals.Hosts),
				"total_shares":    clampCount(totals.Shares),
				"total_sensitive": clampCount(totals.Sensitive),
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// Distinguish a missing session from an already sealed one.
			var count int64
			if err := s.db.WithContext(ctx).
				Model(&models.ScanSession{}).
				Where("id = ?", sessionID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return models.ErrSessionNotFound
			}
			return models.ErrSessionSealed
		}

		return nil
	})
}

// GetSession retrieves a scan session by ID.
func (s *GORMStore) GetSession(ctx context.Context, sessionID string) (*models.ScanSession, error) {
	var session models.ScanSession

	err := s.withRetry(ctx, "get session", func(ctx context.Context) error {
		err := s.db.WithContext(ctx).
			Where("id = ?", sessionID).
			First(&session).Error
		return convertNotFoundError(err, models.ErrSessionNotFound)
	})
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// ListSessions returns sessions ordered by start time, newest first.
// A limit of 0 returns all sessions.
func (s *GORMStore) ListSessions(ctx context.Context, limit, offset int) ([]models.ScanSession, error) {
	var sessions []models.ScanSession

	err := s.withRetry(ctx, "list sessions", func(ctx context.Context) error {
		query := s.db.WithContext(ctx).
			Order("start_time DESC").
			Offset(offset)
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query.Find(&sessions).Error
	})
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// DeleteSession removes a session and, via foreign keys, all of its
// shares, root file listings and findings.
func (s *GORMStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.withRetry(ctx, "delete session", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Where("id = ?", sessionID).Delete(&models.ScanSession{})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return models.ErrSessionNotFound
			}
			return nil
		})
	})
}
