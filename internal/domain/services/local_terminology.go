package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// LocalTerminology is an in-memory terminology table keyed by normalized
// term. It serves as the HL7 coding table, the SNOMED fallback and a fully
// offline SNOMED source.
type LocalTerminology struct {
	name    string
	entries []entities.TableEntry
	byKey   map[string]int
}

// NewLocalTerminology builds a table. Later entries with an already used
// key are rejected.
func NewLocalTerminology(name string, entries []entities.TableEntry) (*LocalTerminology, error) {
	t := &LocalTerminology{
		name:    name,
		entries: make([]entities.TableEntry, 0, len(entries)),
		byKey:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		key := normalizeTerm(e.Term)
		if key == "" {
			return nil, fmt.Errorf("%s entry %d: term is required", name, i+1)
		}
		if e.Concept.Code == "" {
			return nil, fmt.Errorf("%s entry %d (%s): code is required", name, i+1, e.Term)
		}
		if _, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("%s entry %d: duplicate term %q", name, i+1, e.Term)
		}
		if e.Score <= 0 {
			e.Score = 1.0
		}
		e.Term = key
		t.byKey[key] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// MustLocalTerminology is like NewLocalTerminology but panics on error.
// It is meant for the built-in tables.
func MustLocalTerminology(name string, entries []entities.TableEntry) *LocalTerminology {
	t, err := NewLocalTerminology(name, entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the table name.
func (t *LocalTerminology) Name() string {
	return t.name
}

// Len returns the number of entries.
func (t *LocalTerminology) Len() int {
	return len(t.entries)
}

// Lookup returns the entry whose key equals the normalized term.
func (t *LocalTerminology) Lookup(term string) (entities.Candidate, bool) {
	idx, ok := t.byKey[normalizeTerm(term)]
	if !ok {
		return entities.Candidate{}, false
	}
	e := t.entries[idx]
	return entities.Candidate{Concept: e.Concept, Score: e.Score}, true
}

// Match implements ports.TerminologyMatcher. An exact key is returned alone,
// whatever partial hits would score. Otherwise every entry is scored by
// containment against its key and display (base*0.9) or any synonym
// (base*0.85), and the best are returned.
func (t *LocalTerminology) Match(ctx context.Context, term string, maxResults int) ([]entities.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	key := normalizeTerm(term)
	if key == "" {
		return nil, nil
	}

	if exact, ok := t.Lookup(key); ok {
		return []entities.Candidate{exact}, nil
	}

	var candidates []entities.Candidate
	for _, e := range t.entries {
		if score := partialScore(key, e); score > 0 {
			candidates = append(candidates, entities.Candidate{Concept: e.Concept, Score: score})
		}
	}

	return rankCandidates(candidates, maxResults), nil
}

// Search implements ports.TerminologySearcher so that the table can stand in
// for a remote service.
func (t *LocalTerminology) Search(ctx context.Context, term string, limit int) ([]entities.Concept, error) {
	candidates, err := t.Match(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && len(t.entries) == 0 {
		return nil, errors.New("terminology table is empty")
	}
	out := make([]entities.Concept, len(candidates))
	for i, c := range candidates {
		out[i] = c.Concept
	}
	return out, nil
}

// Entries returns a copy of the table ordered by key.
func (t *LocalTerminology) Entries() []entities.TableEntry {
	out := make([]entities.TableEntry, len(t.entries))
	copy(out, t.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}

func partialScore(key string, e entities.TableEntry) float64 {
	if containsEither(key, e.Term) || containsEither(key, normalizeTerm(e.Concept.Display)) {
		return e.Score * localContainFactor
	}
	for _, syn := range e.Concept.Synonyms {
		if containsEither(key, normalizeTerm(syn)) {
			return e.Score * localSynonymFactor
		}
	}
	return 0
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
