package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
)

// SearchHandler handles direct terminology searches.
type SearchHandler struct {
	matchers map[entities.Terminology]ports.TerminologyMatcher
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(snomed, hl7 ports.TerminologyMatcher) *SearchHandler {
	return &SearchHandler{
		matchers: map[entities.Terminology]ports.TerminologyMatcher{
			entities.TerminologySNOMED: snomed,
			entities.TerminologyHL7:    hl7,
		},
	}
}

// SearchResult contains the scored candidates for a term.
type SearchResult struct {
	Term        string
	Terminology entities.Terminology
	Candidates  []entities.Candidate
}

// Handle searches one terminology for term.
func (h *SearchHandler) Handle(ctx context.Context, terminology entities.Terminology, term string, limit int) (*SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("search term is required")
	}

	matcher, ok := h.matchers[terminology]
	if !ok || matcher == nil {
		return nil, fmt.Errorf("unknown terminology %q", terminology)
	}

	candidates, err := matcher.Match(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", terminology, err)
	}

	return &SearchResult{
		Term:        term,
		Terminology: terminology,
		Candidates:  candidates,
	}, nil
}
