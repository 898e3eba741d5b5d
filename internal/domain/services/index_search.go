package services

import (
	"context"
	"fmt"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
)

// IndexSearcher adapts the semantic concept index to a terminology
// searcher. The index only proposes concepts; TerminologyMatcher scores them
// with the same string policy as any other source.
type IndexSearcher struct {
	embedder ports.Embedder
	index    ports.ConceptIndex
}

// NewIndexSearcher creates a new index searcher.
func NewIndexSearcher(embedder ports.Embedder, index ports.ConceptIndex) *IndexSearcher {
	return &IndexSearcher{
		embedder: embedder,
		index:    index,
	}
}

// Search returns indexed concepts semantically close to term.
func (s *IndexSearcher) Search(ctx context.Context, term string, limit int) ([]entities.Concept, error) {
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	embedding, err := s.embedder.Embed(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("generating term embedding: %w", err)
	}

	concepts, err := s.index.Search(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching concept index: %w", err)
	}

	return concepts, nil
}
