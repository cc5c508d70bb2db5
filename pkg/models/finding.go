package models

// Finding is a sensitive file joined with its share context, as consumed
// by reports and exports. It is computed by the store, not persisted.
type Finding struct {
	Hostname      string `json:"hostname"`
	ShareName     string `json:"share_name"`
	FilePath      string `json:"file_path"`
	FileName      string `json:"file_name"`
	DetectionType string `json:"detection_type"`
	Description   string `json:"description,omitempty"`
}
