package mocks

import (
	"context"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
)

// ConceptIndex is a mock implementation of ports.ConceptIndex and
// ports.CollectionManager.
type ConceptIndex struct {
	Concepts []entities.Concept
	Err      error

	// Collection errors (separate from Err for fine-grained control)
	EnsureCollectionErr error
	DeleteCollectionErr error

	// Call tracking
	SaveBatchCallCount        int
	SaveBatchLastConcepts     []ports.IndexedConcept
	SearchCallCount           int
	EnsureCollectionCallCount int
	DeleteCollectionCallCount int
}

// EnsureCollection creates the collection if it doesn't exist.
func (m *ConceptIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	m.EnsureCollectionCallCount++
	return m.EnsureCollectionErr
}

// DeleteCollection removes the collection.
func (m *ConceptIndex) DeleteCollection(ctx context.Context) error {
	m.DeleteCollectionCallCount++
	return m.DeleteCollectionErr
}

// SaveBatch records the concepts it receives.
func (m *ConceptIndex) SaveBatch(ctx context.Context, concepts []ports.IndexedConcept) error {
	m.SaveBatchCallCount++
	m.SaveBatchLastConcepts = append(m.SaveBatchLastConcepts, concepts...)
	return m.Err
}

// Search returns up to limit configured concepts.
func (m *ConceptIndex) Search(ctx context.Context, embedding []float32, limit int) ([]entities.Concept, error) {
	m.SearchCallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	if limit > 0 && len(m.Concepts) > limit {
		return m.Concepts[:limit], nil
	}
	return m.Concepts, nil
}

// Count returns the number of configured concepts.
func (m *ConceptIndex) Count(ctx context.Context) (uint64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return uint64(len(m.Concepts)), nil
}
