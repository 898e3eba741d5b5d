package ports

import (
	"context"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// TerminologySearcher is an external terminology search capability.
// Results carry no ranking guarantee; callers re-score them.
type TerminologySearcher interface {
	Search(ctx context.Context, term string, limit int) ([]entities.Concept, error)
}

// TerminologyMatcher returns scored candidates for a term, best first.
type TerminologyMatcher interface {
	Match(ctx context.Context, term string, maxResults int) ([]entities.Candidate, error)
}
