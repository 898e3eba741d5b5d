package mocks

import (
	"context"
	"fmt"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// AnnotationStore is an in-memory mock of ports.AnnotationStore.
type AnnotationStore struct {
	Annotations map[string]*entities.Annotation
	Audit       []entities.AuditEntry
	Err         error
	LogErr      error

	SaveCallCount int
	nextID        int
}

// EnsureSchema does nothing.
func (m *AnnotationStore) EnsureSchema(ctx context.Context) error {
	return m.Err
}

// Close does nothing.
func (m *AnnotationStore) Close() error {
	return nil
}

// SaveAnnotation stores a copy of the annotation and assigns an ID.
func (m *AnnotationStore) SaveAnnotation(ctx context.Context, a *entities.Annotation) error {
	m.SaveCallCount++
	if m.Err != nil {
		return m.Err
	}
	if m.Annotations == nil {
		m.Annotations = make(map[string]*entities.Annotation)
	}
	if a.ID == "" {
		m.nextID++
		a.ID = fmt.Sprintf("ann-%d", m.nextID)
	}
	stored := *a
	m.Annotations[a.ID] = &stored
	return nil
}

// FindAnnotation returns the stored annotation, or nil.
func (m *AnnotationStore) FindAnnotation(ctx context.Context, id string) (*entities.Annotation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.Annotations[id]
	if !ok {
		return nil, nil
	}
	found := *a
	return &found, nil
}

// ListAnnotations returns the stored annotations in no particular order.
func (m *AnnotationStore) ListAnnotations(ctx context.Context, limit, offset int) ([]entities.Annotation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]entities.Annotation, 0, len(m.Annotations))
	for _, a := range m.Annotations {
		out = append(out, *a)
	}
	return out, nil
}

// CountAnnotations returns the number of stored annotations.
func (m *AnnotationStore) CountAnnotations(ctx context.Context) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.Annotations), nil
}

// DeleteAnnotation removes a stored annotation.
func (m *AnnotationStore) DeleteAnnotation(ctx context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Annotations, id)
	return nil
}

// LogAction records an audit entry.
func (m *AnnotationStore) LogAction(ctx context.Context, action, annotationID string, details map[string]any) error {
	if m.LogErr != nil {
		return m.LogErr
	}
	m.Audit = append(m.Audit, entities.AuditEntry{
		ID:           int64(len(m.Audit) + 1),
		Action:       action,
		AnnotationID: annotationID,
		Details:      details,
	})
	return nil
}

// FindAuditLog returns the entries recorded for an annotation.
func (m *AnnotationStore) FindAuditLog(ctx context.Context, annotationID string) ([]entities.AuditEntry, error) {
	var out []entities.AuditEntry
	for _, e := range m.Audit {
		if e.AnnotationID == annotationID {
			out = append(out, e)
		}
	}
	return out, nil
}
