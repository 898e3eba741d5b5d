// Package ports defines interfaces for external service communication.
package ports

import (
	"context"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// NERModel is a loaded token-classification model.
type NERModel interface {
	// Name identifies the model that produced the predictions.
	Name() string

	// Predict returns raw sub-token predictions for the given text.
	// Offsets are byte offsets into text.
	Predict(ctx context.Context, text string) ([]entities.TokenPrediction, error)
}

// NERLoader initializes a NERModel. Loading may be slow and may fail.
type NERLoader interface {
	Load(ctx context.Context) (NERModel, error)
}
