package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/infrastructure/parsers"
)

// importBatchSize bounds the number of concepts embedded per request.
const importBatchSize = 100

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun        bool   // Validate and embed without saving
	DefaultSystem string // System URI for rows that leave it empty
}

// ImportError represents an error for a specific concept row.
type ImportError struct {
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	Errors   []ImportError
}

// ConceptImportService loads concept tables into the semantic concept index.
type ConceptImportService struct {
	embedder ports.Embedder
	index    ports.ConceptIndex
}

// NewConceptImportService creates a new import service.
func NewConceptImportService(embedder ports.Embedder, index ports.ConceptIndex) *ConceptImportService {
	return &ConceptImportService{
		embedder: embedder,
		index:    index,
	}
}

// Import validates raw concepts, embeds their display text and upserts them.
// Point IDs derive from system and code, so importing a table twice
// overwrites instead of duplicating.
func (s *ConceptImportService) Import(ctx context.Context, raw []parsers.RawConcept, opts ImportOptions) (*ImportResult, error) {
	entries, validationErrors := BuildTableEntries(raw, opts.DefaultSystem)
	result := &ImportResult{Errors: validationErrors}
	if len(entries) == 0 {
		return result, nil
	}

	for start := 0; start < len(entries); start += importBatchSize {
		end := min(start+importBatchSize, len(entries))
		batch, err := s.embedBatch(ctx, entries[start:end])
		if err != nil {
			return nil, fmt.Errorf("generating embeddings: %w", err)
		}
		if opts.DryRun {
			result.Imported += len(batch)
			continue
		}
		if err := s.index.SaveBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("saving concepts: %w", err)
		}
		result.Imported += len(batch)
	}

	return result, nil
}

func (s *ConceptImportService) embedBatch(ctx context.Context, entries []entities.TableEntry) ([]ports.IndexedConcept, error) {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = conceptToText(e)
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(entries) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d concepts", len(embeddings), len(entries))
	}

	out := make([]ports.IndexedConcept, len(entries))
	for i, e := range entries {
		out[i] = ports.IndexedConcept{
			ID:        ConceptID(e.Concept),
			Concept:   e.Concept,
			Embedding: embeddings[i],
		}
	}
	return out, nil
}

// ConceptID returns the stable index ID of a concept.
func ConceptID(c entities.Concept) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.System+"|"+c.Code)).String()
}

// conceptToText is the text embedded for a concept: display and synonyms.
func conceptToText(e entities.TableEntry) string {
	parts := []string{e.Concept.Display}
	for _, syn := range e.Concept.Synonyms {
		if !strings.EqualFold(syn, e.Concept.Display) {
			parts = append(parts, syn)
		}
	}
	return strings.Join(parts, "; ")
}

// BuildTableEntries validates raw rows and turns them into table entries.
// Invalid rows are reported and skipped.
func BuildTableEntries(raw []parsers.RawConcept, defaultSystem string) ([]entities.TableEntry, []ImportError) {
	entries := make([]entities.TableEntry, 0, len(raw))
	var errs []ImportError

	for i := range raw {
		r := &raw[i]
		lineNum := r.LineNum
		if lineNum == 0 {
			lineNum = i + 1
		}

		if err := validateRawConcept(r, lineNum); err != nil {
			errs = append(errs, *err)
			continue
		}

		system := r.System
		if system == "" {
			system = defaultSystem
		}
		term := r.Term
		if term == "" {
			term = r.Display
		}
		score := 1.0
		if r.Score != nil {
			score = *r.Score
		}

		entries = append(entries, entities.TableEntry{
			Term:  term,
			Score: score,
			Concept: entities.Concept{
				Code:         r.Code,
				Display:      r.Display,
				System:       system,
				Synonyms:     r.Synonyms,
				Hierarchy:    r.Hierarchy,
				SystemName:   r.SystemName,
				Version:      r.Version,
				ResourceType: r.ResourceType,
			},
		})
	}

	return entries, errs
}

// validateRawConcept validates a single row and returns an error if invalid.
func validateRawConcept(raw *parsers.RawConcept, lineNum int) *ImportError {
	if strings.TrimSpace(raw.Code) == "" {
		return &ImportError{Line: lineNum, Field: "code", Message: "missing required field: code"}
	}
	if strings.TrimSpace(raw.Display) == "" {
		return &ImportError{Line: lineNum, Field: "display", Message: "missing required field: display"}
	}
	if raw.Score != nil && (*raw.Score <= 0 || *raw.Score > 1) {
		return &ImportError{
			Line:    lineNum,
			Field:   "score",
			Value:   fmt.Sprintf("%f", *raw.Score),
			Message: "score must be greater than 0 and at most 1",
		}
	}
	return nil
}
