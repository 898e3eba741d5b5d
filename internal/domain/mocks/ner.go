package mocks

import (
	"context"
	"sync/atomic"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
)

// NERModel is a mock implementation of ports.NERModel.
type NERModel struct {
	ModelName   string
	Predictions []entities.TokenPrediction
	Err         error
}

// Name returns the configured model name.
func (m *NERModel) Name() string {
	return m.ModelName
}

// Predict returns the configured predictions or error.
func (m *NERModel) Predict(ctx context.Context, text string) ([]entities.TokenPrediction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Predictions, nil
}

// NERLoader is a mock implementation of ports.NERLoader.
type NERLoader struct {
	Model *NERModel
	Err   error
	// Block, when set, is waited on before returning so tests can pile up
	// concurrent callers.
	Block chan struct{}

	calls atomic.Int32
}

// Load returns the configured model or error.
func (m *NERLoader) Load(ctx context.Context) (ports.NERModel, error) {
	m.calls.Add(1)
	if m.Block != nil {
		<-m.Block
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Model, nil
}

// LoadCount returns how many times Load ran.
func (m *NERLoader) LoadCount() int {
	return int(m.calls.Load())
}
