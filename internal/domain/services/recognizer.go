package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// Recognition is the tagged outcome of entity recognition. Callers must look
// at Mode: a pattern fallback is never disguised as model output.
type Recognition struct {
	Mode           entities.RecognitionMode
	Model          string
	Entities       []entities.Entity
	FallbackReason string
}

// IsFallback reports whether the patterns stood in for a failed model.
func (r *Recognition) IsFallback() bool {
	return r.Mode == entities.ModePatternFallback
}

// EntityRecognizer chooses between the pattern extractor and the NER model.
type EntityRecognizer struct {
	patterns      *PatternExtractor
	ner           *NERService
	allowFallback bool
	logger        *zap.Logger
}

// NewEntityRecognizer creates a recognizer. ner may be nil when no model is
// configured. allowFallback permits using patterns when the model fails.
func NewEntityRecognizer(patterns *PatternExtractor, ner *NERService, allowFallback bool, logger *zap.Logger) *EntityRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityRecognizer{
		patterns:      patterns,
		ner:           ner,
		allowFallback: allowFallback,
		logger:        logger,
	}
}

// Recognize extracts entities from text in the requested mode.
func (r *EntityRecognizer) Recognize(ctx context.Context, text string, mode entities.RecognitionMode) (*Recognition, error) {
	switch mode {
	case "", entities.ModePatterns:
		return &Recognition{
			Mode:     entities.ModePatterns,
			Entities: r.patterns.Extract(text),
		}, nil
	case entities.ModeModel:
		return r.recognizeWithModel(ctx, text)
	default:
		return nil, fmt.Errorf("unknown recognition mode %q", mode)
	}
}

func (r *EntityRecognizer) recognizeWithModel(ctx context.Context, text string) (*Recognition, error) {
	var err error
	if r.ner == nil {
		err = fmt.Errorf("%w: no NER model configured", ErrModelUnavailable)
	} else {
		var ents []entities.Entity
		var model string
		ents, model, err = r.ner.Recognize(ctx, text)
		if err == nil {
			return &Recognition{Mode: entities.ModeModel, Model: model, Entities: ents}, nil
		}
	}

	if !r.allowFallback || errors.Is(err, context.Canceled) {
		return nil, err
	}

	r.logger.Warn("NER model failed, falling back to patterns", zap.Error(err))
	return &Recognition{
		Mode:           entities.ModePatternFallback,
		Entities:       r.patterns.Extract(text),
		FallbackReason: err.Error(),
	}, nil
}
