package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/pkg/models"
)

// ListPatterns returns detection patterns, optionally only enabled ones.
// This satisfies the pattern registry's source interface.
func (s *GORMStore) ListPatterns(ctx context.Context, enabledOnly bool) ([]models.Pattern, error) {
	var rows []models.Pattern

	err := s.withRetry(ctx, "list patterns", func(ctx context.Context) error {
		query := s.db.WithContext(ctx).Order("category, pattern")
		if enabledOnly {
			query = query.Where("enabled = ?", true)
		}
		return query.Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// GetPattern retrieves one detection pattern by ID.
func (s *GORMStore) GetPattern(ctx context.Context, patternID string) (*models.Pattern, error) {
	var row models.Pattern

	err := s.withRetry(ctx, "get pattern", func(ctx context.Context) error {
		err := s.db.WithContext(ctx).
			Where("id = ?", patternID).
			First(&row).Error
		return convertNotFoundError(err, models.ErrPatternNotFound)
	})
	if err != nil {
		return nil, err
	}

	return &row, nil
}

// AddPattern inserts a new detection pattern. The expression must compile
// as a regular expression and the pattern+category pair must be unique.
func (s *GORMStore) AddPattern(ctx context.Context, expr, category, description string) (*models.Pattern, error) {
	if _, err := regexp.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	if category == "" {
		return nil, fmt.Errorf("pattern category is required")
	}

	row := &models.Pattern{
		ID:          uuid.New().String(),
		Pattern:     truncate(expr, 512),
		Category:    truncate(category, maxDetectionLen),
		Description: truncate(description, maxDescriptionLen),
		Enabled:     true,
	}

	err := s.withRetry(ctx, "add pattern", func(ctx context.Context) error {
		if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.ErrDuplicatePattern
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return row, nil
}

// UpdatePattern replaces the expression, category and description of an
// existing pattern. The new expression must compile.
func (s *GORMStore) UpdatePattern(ctx context.Context, patternID, expr, category, description string) error {
	if _, err := regexp.Compile(expr); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", expr, err)
	}

	return s.withRetry(ctx, "update pattern", func(ctx context.Context) error {
		result := s.db.WithContext(ctx).
			Model(&models.Pattern{}).
			Where("id = ?", patternID).
			Updates(map[string]any{
				"pattern":     truncate(expr, 512),
				"category":    truncate(category, maxDetectionLen),
				"description": truncate(description, maxDescriptionLen),
			})
		if result.Error != nil {
			if isUniqueConstraintError(result.Error) {
				return models.ErrDuplicatePattern
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrPatternNotFound
		}
		return nil
	})
}

// SetPatternEnabled toggles a pattern without deleting its history.
func (s *GORMStore) SetPatternEnabled(ctx context.Context, patternID string, enabled bool) error {
	return s.withRetry(ctx, "toggle pattern", func(ctx context.Context) error {
		result := s.db.WithContext(ctx).
			Model(&models.Pattern{}).
			Where("id = ?", patternID).
			Update("enabled", enabled)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrPatternNotFound
		}
		return nil
	})
}

// DeletePattern removes a detection pattern.
func (s *GORMStore) DeletePattern(ctx context.Context, patternID string) error {
	return s.withRetry(ctx, "delete pattern", func(ctx context.Context) error {
		result := s.db.WithContext(ctx).
			Where("id = ?", patternID).
			Delete(&models.Pattern{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrPatternNotFound
		}
		return nil
	})
}

// SeedDefaultPatterns inserts the built-in pattern set when the table is
// empty. An operator who deletes individual defaults will not see them
// resurrected on the next startup.
func (s *GORMStore) SeedDefaultPatterns(ctx context.Context, defaults []models.Pattern) error {
	return s.withRetry(ctx, "seed patterns", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Pattern{}).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return nil
			}

			rows := make([]models.Pattern, len(defaults))
			copy(rows, defaults)
			for i := range rows {
				if rows[i].ID == "" {
					rows[i].ID = uuid.New().String()
				}
			}

			if err := tx.Create(&rows).Error; err != nil {
				return err
			}

			logger.Debug("seeded default detection patterns", logger.Count(len(rows)))
			return nil
		})
	})
}
