package ports

import (
	"context"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// AnnotationStore persists finished annotations.
type AnnotationStore interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// SaveAnnotation stores the annotation with its entities and mappings.
	// It assigns ID and timestamps when they are empty.
	SaveAnnotation(ctx context.Context, a *entities.Annotation) error

	// FindAnnotation loads an annotation by ID. Returns nil when not found.
	FindAnnotation(ctx context.Context, id string) (*entities.Annotation, error)

	// ListAnnotations lists annotations newest first, without entities.
	ListAnnotations(ctx context.Context, limit, offset int) ([]entities.Annotation, error)

	// CountAnnotations returns the number of stored annotations.
	CountAnnotations(ctx context.Context) (int, error)

	// DeleteAnnotation removes an annotation and everything attached to it.
	DeleteAnnotation(ctx context.Context, id string) error

	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, annotationID string, details map[string]any) error

	// FindAuditLog finds audit log entries for an annotation.
	FindAuditLog(ctx context.Context, annotationID string) ([]entities.AuditEntry, error)
}
