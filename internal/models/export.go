// internal/models/export.go
package models

import (
	"time"
)

// ExportResult is a rendered blueprint ready for download
type ExportResult struct {
	SessionID   string    `json:"session_id"`
	Format      string    `json:"format"`
	ContentType string    `json:"content_type"`
	FileName    string    `json:"file_name"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Blueprint is the exported document: the briefing and the finished result
type Blueprint struct {
	Briefing    BriefingInput  `json:"briefing" yaml:"briefing"`
	Steps       []Step         `json:"steps" yaml:"steps"`
	Result      WorkflowResult `json:"result" yaml:"result"`
	GeneratedAt string         `json:"generated_at" yaml:"generated_at"`
	Version     string         `json:"version" yaml:"version"`
}
