package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/services"
	"github.com/ersonp/clinote/internal/infrastructure/exporters"
)

// AnnotationHandler handles stored annotations.
type AnnotationHandler struct {
	service *services.AnnotationService
}

// NewAnnotationHandler creates a new annotation handler.
func NewAnnotationHandler(service *services.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{
		service: service,
	}
}

// ListResult contains a page of stored annotations.
type ListResult struct {
	Annotations []entities.Annotation
	Total       int
}

// List returns stored annotations newest first.
func (h *AnnotationHandler) List(ctx context.Context, limit, offset int) (*ListResult, error) {
	list, total, err := h.service.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListResult{Annotations: list, Total: total}, nil
}

// ShowResult contains a stored annotation and its summary.
type ShowResult struct {
	Annotation *entities.Annotation
	Summary    services.Summary
}

// Show loads one annotation.
func (h *AnnotationHandler) Show(ctx context.Context, id string) (*ShowResult, error) {
	a, err := h.service.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ShowResult{Annotation: a, Summary: services.SummarizeAnnotation(a)}, nil
}

// Delete removes one annotation.
func (h *AnnotationHandler) Delete(ctx context.Context, id string) error {
	return h.service.Delete(ctx, id)
}

// Export writes a stored annotation to w in the given format.
func (h *AnnotationHandler) Export(ctx context.Context, id, format string, w io.Writer) error {
	exp := exporters.ForFormat(format)
	if exp == nil {
		return fmt.Errorf("invalid format %q, valid formats: %v", format, exporters.Formats)
	}

	a, err := h.service.Find(ctx, id)
	if err != nil {
		return err
	}

	if err := exp.Export(w, exporters.FromAnnotation(a)); err != nil {
		return fmt.Errorf("exporting annotation: %w", err)
	}

	h.service.RecordExport(ctx, id, format)
	return nil
}
