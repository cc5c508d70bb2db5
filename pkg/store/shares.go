package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/pkg/models"
)

// BatchResult reports what one StoreBatch call wrote.
type BatchResult struct {
	SharesWritten    int
	SensitiveWritten int
	Skipped          int
}

// StoreBatch persists a batch of share records under the given session.
// Each record inserts inside its own savepoint, so a record that violates
// a constraint is skipped without aborting the rest of the batch. The
// error is non-nil only when the batch as a whole could not be committed.
func (s *GORMStore) StoreBatch(ctx context.Context, sessionID string, records []models.Share) (BatchResult, error) {
	if len(records) == 0 {
		return BatchResult{}, nil
	}

	var result BatchResult

	err := s.withRetry(ctx, "store batch", func(ctx context.Context) error {
		result = BatchResult{}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for i := range records {
				if err := insertShare(tx, sessionID, &records[i]); err != nil {
					result.Skipped++
					logger.WarnCtx(ctx, "skipping share record",
						logger.Host(records[i].Hostname),
						logger.Share(records[i].ShareName),
						logger.Err(err),
					)
					continue
				}
				result.SharesWritten++
				result.SensitiveWritten += len(records[i].SensitiveFiles)
			}
			return nil
		})
	})
	if err != nil {
		return BatchResult{Skipped: len(records)}, err
	}

	return result, nil
}

// insertShare writes one share with its root inventory and findings inside
// a nested transaction. GORM turns the nested transaction into a SAVEPOINT,
// so a failure here rolls back only this record.
func insertShare(tx *gorm.DB, sessionID string, record *models.Share) error {
	return tx.Transaction(func(sub *gorm.DB) error {
		share := *record
		share.ID = uuid.New().String()
		share.SessionID = sessionID
		share.RootFiles = nil
		share.SensitiveFiles = nil
		sanitizeShare(&share)

		if err := sub.Create(&share).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.ErrDuplicateShare
			}
			return err
		}

		if len(record.RootFiles) > 0 {
			rootFiles := make([]models.RootFile, len(record.RootFiles))
			copy(rootFiles, record.RootFiles)
			for j := range rootFiles {
				rootFiles[j].ID = uuid.New().String()
				rootFiles[j].ShareID = share.ID
			}
			if err := sub.Create(&rootFiles).Error; err != nil {
				return err
			}
		}

		if len(record.SensitiveFiles) > 0 {
			sensitive := make([]models.SensitiveFile, len(record.SensitiveFiles))
			copy(sensitive, record.SensitiveFiles)
			for j := range sensitive {
				sensitive[j].ID = uuid.New().String()
				sensitive[j].ShareID = share.ID
			}
			if err := sub.Create(&sensitive).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// ShareFilter narrows ListShares results. Zero values mean no filtering.
type ShareFilter struct {
	SessionID   string
	Hostname    string
	AccessLevel string

	// WithFiles preloads root inventories and findings.
	WithFiles bool

	Limit  int
	Offset int
}

// ListShares returns share records matching the filter, newest scan first.
func (s *GORMStore) ListShares(ctx context.Context, filter ShareFilter) ([]models.Share, error) {
	var shares []models.Share

	err := s.withRetry(ctx, "list shares", func(ctx context.Context) error {
		query := s.db.WithContext(ctx).Model(&models.Share{})

		if filter.SessionID != "" {
			query = query.Where("session_id = ?", filter.SessionID)
		}
		if filter.Hostname != "" {
			query = query.Where("hostname = ?", filter.Hostname)
		}
		if filter.AccessLevel != "" {
			query = query.Where("access_level = ?", filter.AccessLevel)
		}
		if filter.WithFiles {
			query = query.
				Preload("RootFiles", func(db *gorm.DB) *gorm.DB {
					return db.Order("root_files.position ASC")
				}).
				Preload("SensitiveFiles")
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}

		return query.Order("scan_time DESC").Find(&shares).Error
	})
	if err != nil {
		return nil, err
	}

	return shares, nil
}

// GetShare retrieves one share record with its root inventory and findings.
func (s *GORMStore) GetShare(ctx context.Context, shareID string) (*models.Share, error) {
	var share models.Share

	err := s.withRetry(ctx, "get share", func(ctx context.Context) error {
		err := s.db.WithContext(ctx).
			Preload("RootFiles", func(db *gorm.DB) *gorm.DB {
				return db.Order("root_files.position ASC")
			}).
			Preload("SensitiveFiles").
			Where("id = ?", shareID).
			First(&share).Error
		return convertNotFoundError(err, models.ErrShareNotFound)
	})
	if err != nil {
		return nil, err
	}

	return &share, nil
}

// FindingFilter narrows ListFindings results.
type FindingFilter struct {
	SessionID string
	Category  string
	Hostname  string

	Limit  int
	Offset int
}

// ListFindings returns sensitive-file findings joined with their host and
// share, for reports and exports.
func (s *GORMStore) ListFindings(ctx context.Context, filter FindingFilter) ([]models.Finding, error) {
	var findings []models.Finding

	err := s.withRetry(ctx, "list findings", func(ctx context.Context) error {
		query := s.db.WithContext(ctx).
			Table("sensitive_files").
			Select("shares.hostname, shares.share_name, sensitive_files.file_path, sensitive_files.file_name, sensitive_files.detection_type, sensitive_files.description").
			Joins("JOIN shares ON shares.id = sensitive_files.share_id")

		if filter.SessionID != "" {
			query = query.Where("shares.session_id = ?", filter.SessionID)
		}
		if filter.Category != "" {
			query = query.Where("sensitive_files.detection_type = ?", filter.Category)
		}
		if filter.Hostname != "" {
			query = query.Where("shares.hostname = ?", filter.Hostname)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}

		return query.
			Order("shares.hostname, shares.share_name, sensitive_files.file_path").
			Scan(&findings).Error
	})
	if err != nil {
		return nil, err
	}

	return findings, nil
}

// topLimit caps the per-session leaderboards in summaries.
const topLimit = 10

// Summary aggregates one session for reporting: share counts by access
// level and the categories and hosts with the most findings.
func (s *GORMStore) Summary(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &models.SessionSummary{
		Session:      *session,
		AccessLevels: make(map[string]int),
	}

	err = s.withRetry(ctx, "session summary", func(ctx context.Context) error {
		type levelCount struct {
			AccessLevel string
			Count       int
		}
		var levels []levelCount
		if err := s.db.WithContext(ctx).
			Model(&models.Share{}).
			Select("access_level, COUNT(*) AS count").
			Where("session_id = ?", sessionID).
			Group("access_level").
			Scan(&levels).Error; err != nil {
			return err
		}

		summary.AccessLevels = make(map[string]int, len(levels))
		summary.ShareCount = 0
		for _, lc := range levels {
			summary.AccessLevels[lc.AccessLevel] = lc.Count
			summary.ShareCount += lc.Count
		}

		summary.TopCategories = summary.TopCategories[:0]
		if err := s.db.WithContext(ctx).
			Table("sensitive_files").
			Select("sensitive_files.detection_type AS category, COUNT(*) AS count").
			Joins("JOIN shares ON shares.id = sensitive_files.share_id").
			Where("shares.session_id = ?", sessionID).
			Group("sensitive_files.detection_type").
			Order("count DESC").
			Limit(topLimit).
			Scan(&summary.TopCategories).Error; err != nil {
			return err
		}

		summary.TopHosts = summary.TopHosts[:0]
		if err := s.db.WithContext(ctx).
			Table("sensitive_files").
			Select("shares.hostname, COUNT(*) AS count").
			Joins("JOIN shares ON shares.id = sensitive_files.share_id").
			Where("shares.session_id = ?", sessionID).
			Group("shares.hostname").
			Order("count DESC").
			Limit(topLimit).
			Scan(&summary.TopHosts).Error; err != nil {
			return err
		}

		var sensitive int64
		if err := s.db.WithContext(ctx).
			Table("sensitive_files").
			Joins("JOIN shares ON shares.id = sensitive_files.share_id").
			Where("shares.session_id = ?", sessionID).
			Count(&sensitive).Error; err != nil {
			return err
		}
		summary.SensitiveCount = int(sensitive)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}
