package models

import "time"

// ScanSession brackets one orchestrator run. The engine creates the row
// with status running before the first host is scanned and seals it with
// totals and a terminal status when the run ends.
type ScanSession struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	Domain    string     `gorm:"not null;size:255" json:"domain"`
	Status    string     `gorm:"not null;size:20;default:running" json:"status"`
	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Final counts, set together with a terminal status.
	TotalHosts     int `gorm:"default:0" json:"total_hosts"`
	TotalShares    int `gorm:"default:0" json:"total_shares"`
	TotalSensitive int `gorm:"default:0" json:"total_sensitive"`

	// Relationships
	Shares []Share `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for ScanSession.
func (ScanSession) TableName() string {
	return "scan_sessions"
}

// GetStatus returns the session status as a SessionStatus type.
func (s *ScanSession) GetStatus() SessionStatus {
	return SessionStatus(s.Status)
}

// Duration returns the elapsed wall-clock time of the session, using the
// current time while the session is still running.
func (s *ScanSession) Duration() time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// SessionTotals carries the final counters handed to EndSession.
type SessionTotals struct {
	Hosts     int `json:"hosts"`
	Shares    int `json:"shares"`
	Sensitive int `json:"sensitive"`
}

// SessionSummary aggregates one session for reporting. It is computed by
// the store, not persisted.
type SessionSummary struct {
	Session        ScanSession    `json:"session"`
	AccessLevels   map[string]int `json:"access_levels"`
	TopCategories  []CategoryHits `json:"top_categories"`
	TopHosts       []HostHits     `json:"top_hosts"`
	ShareCount     int            `json:"share_count"`
	SensitiveCount int            `json:"sensitive_count"`
}

// CategoryHits counts sensitive findings for one detection category.
type CategoryHits struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// HostHits counts sensitive findings for one host.
type HostHits struct {
	Hostname string `json:"hostname"`
	Count    int    `json:"count"`
}
