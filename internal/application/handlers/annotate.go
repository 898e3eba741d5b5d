package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/services"
	"github.com/ersonp/clinote/internal/infrastructure/exporters"
)

// AnnotateHandler handles annotation of clinical notes.
type AnnotateHandler struct {
	service *services.AnnotationService
}

// NewAnnotateHandler creates a new annotate handler.
func NewAnnotateHandler(service *services.AnnotationService) *AnnotateHandler {
	return &AnnotateHandler{
		service: service,
	}
}

// AnnotateRequest controls one annotation.
type AnnotateRequest struct {
	Options services.AnnotateOptions
	Save    bool
	Title   string
}

// AnnotateResult contains the result of an annotation.
type AnnotateResult struct {
	Result *services.AnnotationResult
	// Annotation is the saved annotation, or the unsaved form of Result.
	Annotation *entities.Annotation
	Saved      bool
	// SaveErr is set when saving failed. The result is still valid.
	SaveErr error
	// PipelineErr is set when a mapping stage failed part way.
	PipelineErr error
}

// Report returns the export-ready form of the result.
func (r *AnnotateResult) Report() exporters.Report {
	return exporters.NewReport(r.Annotation, r.Result.Summary)
}

// Handle annotates text and optionally saves it.
func (h *AnnotateHandler) Handle(ctx context.Context, text string, req AnnotateRequest) (*AnnotateResult, error) {
	result, err := h.service.Annotate(ctx, text, req.Options)
	if result == nil {
		return nil, fmt.Errorf("annotating text: %w", err)
	}

	out := &AnnotateResult{
		Result:      result,
		Annotation:  result.Annotation(req.Title),
		PipelineErr: err,
	}

	if req.Save {
		saved, saveErr := h.service.Save(ctx, result, req.Title)
		if saveErr != nil {
			out.SaveErr = saveErr
		} else {
			out.Annotation = saved
			out.Saved = true
		}
	}

	return out, nil
}

// Remap applies new thresholds to a previous result without new lookups.
func (h *AnnotateHandler) Remap(prev *AnnotateResult, snomedThreshold, hl7Threshold float64) (*AnnotateResult, error) {
	result, err := h.service.Remap(prev.Result, snomedThreshold, hl7Threshold)
	if err != nil {
		return nil, err
	}
	return &AnnotateResult{
		Result:     result,
		Annotation: result.Annotation(prev.Annotation.Title),
	}, nil
}
