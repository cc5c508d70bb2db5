package models

import "errors"

// Common errors for store and scan lifecycle operations.
var (
	// Session errors
	ErrSessionNotFound = errors.New("scan session not found")
	ErrSessionSealed   = errors.New("scan session already finalized")

	// Share errors
	ErrShareNotFound  = errors.New("share record not found")
	ErrDuplicateShare = errors.New("share record already exists")

	// Pattern errors
	ErrPatternNotFound  = errors.New("pattern not found")
	ErrDuplicatePattern = errors.New("pattern already exists")

	// Scan status errors
	ErrScanNotFound = errors.New("scan not found")
)
