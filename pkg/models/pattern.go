package models

import "time"

// Pattern is one sensitivity detection rule. The registry compiles the
// enabled set once per run; rows are managed through the store's pattern
// CRUD and the patterns CLI.
type Pattern struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Pattern     string    `gorm:"not null;size:512;uniqueIndex:idx_patterns_pattern_category" json:"pattern"`
	Category    string    `gorm:"not null;size:50;index;uniqueIndex:idx_patterns_pattern_category" json:"category"`
	Description string    `gorm:"size:255" json:"description,omitempty"`
	Enabled     bool      `gorm:"default:true" json:"enabled"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Pattern.
func (Pattern) TableName() string {
	return "sensitive_patterns"
}
