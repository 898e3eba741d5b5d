package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/services"
)

// ExtractHandler handles entity recognition without terminology mapping.
type ExtractHandler struct {
	recognizer *services.EntityRecognizer
}

// NewExtractHandler creates a new extract handler.
func NewExtractHandler(recognizer *services.EntityRecognizer) *ExtractHandler {
	return &ExtractHandler{
		recognizer: recognizer,
	}
}

// ExtractResult contains the recognized entities.
type ExtractResult struct {
	Recognition *services.Recognition
	Summary     services.Summary
}

// Handle recognizes entities in text.
func (h *ExtractHandler) Handle(ctx context.Context, text string, mode entities.RecognitionMode) (*ExtractResult, error) {
	rec, err := h.recognizer.Recognize(ctx, text, mode)
	if err != nil {
		return nil, fmt.Errorf("recognizing entities: %w", err)
	}
	return &ExtractResult{
		Recognition: rec,
		Summary:     services.Aggregate(rec.Entities),
	}, nil
}
