package services

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
)

// Search limits.
const (
	DefaultMaxResults   = 10
	MapperMaxResults    = 5
	VariationMaxResults = 5
	MinPrimaryResults   = 3
)

// TerminologyMatcher scores the raw concepts returned by a terminology
// searcher against the search term and ranks them.
type TerminologyMatcher struct {
	searcher ports.TerminologySearcher
	fallback *LocalTerminology
	logger   *zap.Logger
}

// NewTerminologyMatcher creates a matcher. fallback may be nil, in which
// case an unreachable searcher yields no candidates.
func NewTerminologyMatcher(searcher ports.TerminologySearcher, fallback *LocalTerminology, logger *zap.Logger) *TerminologyMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TerminologyMatcher{
		searcher: searcher,
		fallback: fallback,
		logger:   logger,
	}
}

// Match returns up to maxResults candidates for term, best first.
// Service failures never surface as errors: the matcher degrades to the
// fallback table, or to no candidates.
func (m *TerminologyMatcher) Match(ctx context.Context, term string, maxResults int) ([]entities.Candidate, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if normalizeTerm(term) == "" {
		return nil, nil
	}

	concepts, err := m.searcher.Search(ctx, term, maxResults)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		m.logger.Warn("terminology search failed, using fallback table",
			zap.String("term", term),
			zap.Error(err),
		)
		return m.fallbackMatch(term), nil
	}

	candidates := scoreConcepts(term, concepts)

	if len(candidates) < MinPrimaryResults {
		for _, variation := range termVariations(term) {
			extra, err := m.searcher.Search(ctx, variation, VariationMaxResults)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break
				}
				m.logger.Debug("variation search failed",
					zap.String("term", term),
					zap.String("variation", variation),
					zap.Error(err),
				)
				continue
			}
			candidates = append(candidates, scoreConcepts(term, extra)...)
		}
	}

	return rankCandidates(candidates, maxResults), nil
}

func (m *TerminologyMatcher) fallbackMatch(term string) []entities.Candidate {
	if m.fallback == nil {
		return nil
	}
	if c, ok := m.fallback.Lookup(term); ok {
		return []entities.Candidate{c}
	}
	return nil
}

func scoreConcepts(term string, concepts []entities.Concept) []entities.Candidate {
	out := make([]entities.Candidate, 0, len(concepts))
	for _, c := range concepts {
		out = append(out, entities.Candidate{Concept: c, Score: Similarity(term, c.Display)})
	}
	return out
}

// rankCandidates drops duplicate codes (first occurrence wins), sorts by
// score descending and truncates.
func rankCandidates(candidates []entities.Candidate, maxResults int) []entities.Candidate {
	seen := make(map[string]bool, len(candidates))
	unique := make([]entities.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.Concept.System + "|" + c.Concept.Code
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})

	if maxResults > 0 && len(unique) > maxResults {
		unique = unique[:maxResults]
	}
	return unique
}
