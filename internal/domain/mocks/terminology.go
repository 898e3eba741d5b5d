package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// TerminologySearcher is a mock implementation of ports.TerminologySearcher.
// Results maps a search term to the concepts returned for it; terms absent
// from the map return nothing.
type TerminologySearcher struct {
	Results map[string][]entities.Concept
	Err     error
	// Errs fails individual terms.
	Errs map[string]error

	mu    sync.Mutex
	Terms []string
}

// Search records the term and returns the configured concepts.
func (m *TerminologySearcher) Search(ctx context.Context, term string, limit int) ([]entities.Concept, error) {
	m.mu.Lock()
	m.Terms = append(m.Terms, term)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if err, ok := m.Errs[term]; ok {
		return nil, err
	}
	concepts := m.Results[term]
	if limit > 0 && len(concepts) > limit {
		concepts = concepts[:limit]
	}
	return concepts, nil
}

// CallCount returns the number of searches made.
func (m *TerminologySearcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Terms)
}

// TerminologyMatcher is a mock implementation of ports.TerminologyMatcher.
type TerminologyMatcher struct {
	Candidates map[string][]entities.Candidate
	Errs       map[string]error
	// OnMatch runs before every match; tests use it to cancel contexts.
	OnMatch func(term string)

	mu    sync.Mutex
	Terms []string
}

// Match records the term and returns the configured candidates.
func (m *TerminologyMatcher) Match(ctx context.Context, term string, maxResults int) ([]entities.Candidate, error) {
	m.mu.Lock()
	m.Terms = append(m.Terms, term)
	m.mu.Unlock()

	if m.OnMatch != nil {
		m.OnMatch(term)
	}
	if err, ok := m.Errs[term]; ok {
		return nil, err
	}
	return m.Candidates[term], nil
}

// CallCount returns the number of matches made.
func (m *TerminologyMatcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Terms)
}
