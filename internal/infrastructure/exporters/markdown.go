package exporters

import (
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// MarkdownExporter writes a human-readable table.
type MarkdownExporter struct{}

// Export writes r as Markdown.
func (e *MarkdownExporter) Export(w io.Writer, r Report) error {
	a := r.Annotation
	title := a.Title
	if title == "" {
		title = "Clinical Annotation"
	}

	if _, err := fmt.Fprintf(w, "# %s\n\nEntities: %d | SNOMED mapped: %d (%s) | Coverage: %.1f%%\n\n",
		escapeMarkdown(title), len(a.Entities), r.MappedEntities(), r.MappingRate(), r.Summary.OverallCoverage*100); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, "| # | Entity | Label | Span | Confidence | SNOMED | HL7 |\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "|---|--------|-------|------|------------|--------|-----|\n"); err != nil {
		return err
	}

	for _, rw := range r.rows() {
		if _, err := fmt.Fprintf(w, "| %d | %s | %s | %d-%d | %.2f | %s | %s |\n",
			rw.Index,
			escapeMarkdown(rw.Entity.Text),
			rw.Entity.Label,
			rw.Entity.Start, rw.Entity.End,
			rw.Entity.Confidence,
			mappingCell(rw.SNOMED),
			mappingCell(rw.HL7),
		); err != nil {
			return err
		}
	}

	if len(r.Summary.Categories) > 0 {
		if _, err := fmt.Fprint(w, "\n## Categories\n\n"); err != nil {
			return err
		}
		for _, c := range r.Summary.Categories {
			if _, err := fmt.Fprintf(w, "- %s: %d\n", c.Category, c.Count); err != nil {
				return err
			}
		}
	}

	return nil
}

func mappingCell(m *entities.Mapping) string {
	if m == nil {
		return "-"
	}
	return fmt.Sprintf("%s %s (%.2f)", m.Concept.Code, escapeMarkdown(m.Concept.Display), m.SimilarityScore)
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
