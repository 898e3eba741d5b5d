// Package exporters writes annotations as JSON, CSV, XML or Markdown.
package exporters

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/services"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "xml", "markdown"}

// Exporter defines the interface for writing a report.
type Exporter interface {
	Export(w io.Writer, r Report) error
}

// ForFormat returns the exporter for the given format, or nil.
func ForFormat(format string) Exporter {
	switch strings.ToLower(format) {
	case "json":
		return &JSONExporter{}
	case "csv":
		return &CSVExporter{}
	case "xml":
		return &XMLExporter{}
	case "markdown", "md":
		return &MarkdownExporter{}
	default:
		return nil
	}
}

// FormatForFile guesses the export format from a file extension,
// defaulting to json.
func FormatForFile(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ForFormat(ext) != nil {
		return ext
	}
	return "json"
}

// Report is an annotation with its summary, ready to be written.
type Report struct {
	Annotation *entities.Annotation
	Summary    services.Summary
}

// NewReport pairs an annotation with the summary of its run.
func NewReport(a *entities.Annotation, summary services.Summary) Report {
	return Report{Annotation: a, Summary: summary}
}

// FromAnnotation builds a report for a stored annotation.
func FromAnnotation(a *entities.Annotation) Report {
	return NewReport(a, services.SummarizeAnnotation(a))
}

// ProcessedAt is the time the annotation was last produced or saved.
func (r Report) ProcessedAt() time.Time {
	if !r.Annotation.UpdatedAt.IsZero() {
		return r.Annotation.UpdatedAt
	}
	return r.Annotation.CreatedAt
}

// MappedEntities is the number of entities with a SNOMED mapping.
func (r Report) MappedEntities() int {
	set, _ := r.Summary.Set(entities.TerminologySNOMED)
	return set.Mapped
}

// MappingRate formats the SNOMED mapping rate as a percentage, e.g. "87.5%".
func (r Report) MappingRate() string {
	total := len(r.Annotation.Entities)
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(r.MappedEntities())*100/float64(total))
}

// row is one entity with its best mapping in each set.
type row struct {
	Index  int
	Entity entities.Entity
	SNOMED *entities.Mapping
	HL7    *entities.Mapping
}

func (r Report) rows() []row {
	out := make([]row, 0, len(r.Annotation.Entities))
	for i, e := range r.Annotation.Entities {
		rw := row{Index: i, Entity: e}
		if m, ok := entities.MappingFor(r.Annotation.SNOMEDMappings, i); ok {
			rw.SNOMED = &m
		}
		if m, ok := entities.MappingFor(r.Annotation.HL7Mappings, i); ok {
			rw.HL7 = &m
		}
		out = append(out, rw)
	}
	return out
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
