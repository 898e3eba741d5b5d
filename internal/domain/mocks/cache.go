package mocks

import (
	"context"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// CandidateCache is a map-backed mock of ports.CandidateCache.
type CandidateCache struct {
	Data   map[string][]entities.Candidate
	GetErr error
	SetErr error

	GetCallCount int
	SetCallCount int
}

// Get returns the stored candidates.
func (m *CandidateCache) Get(ctx context.Context, key string) ([]entities.Candidate, bool, error) {
	m.GetCallCount++
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	c, ok := m.Data[key]
	return c, ok, nil
}

// Set stores the candidates.
func (m *CandidateCache) Set(ctx context.Context, key string, candidates []entities.Candidate) error {
	m.SetCallCount++
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.Data == nil {
		m.Data = make(map[string][]entities.Candidate)
	}
	m.Data[key] = candidates
	return nil
}
