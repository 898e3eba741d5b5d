package ports

import (
	"context"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// IndexedConcept is a concept with the embedding of its display text.
type IndexedConcept struct {
	ID        string
	Concept   entities.Concept
	Embedding []float32
}

// ConceptIndex stores concept embeddings for semantic terminology search.
type ConceptIndex interface {
	// SaveBatch stores multiple concepts.
	SaveBatch(ctx context.Context, concepts []IndexedConcept) error

	// Search returns the concepts closest to the embedding.
	Search(ctx context.Context, embedding []float32, limit int) ([]entities.Concept, error)

	// Count returns the number of indexed concepts.
	Count(ctx context.Context) (uint64, error)
}
