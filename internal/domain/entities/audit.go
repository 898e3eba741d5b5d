package entities

import "time"

// Audit actions recorded by the annotation store.
const (
	AuditActionSave   = "annotation.save"
	AuditActionDelete = "annotation.delete"
	AuditActionExport = "annotation.export"
)

// AuditEntry represents a logged action on an annotation.
type AuditEntry struct {
	ID           int64          `json:"id"`
	Action       string         `json:"action"`
	AnnotationID string         `json:"annotation_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
