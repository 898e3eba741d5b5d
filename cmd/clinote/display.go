package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/services"
)

func printEntities(w io.Writer, ents []entities.Entity) {
	if len(ents) == 0 {
		fmt.Fprintln(w, "No entities found.")
		return
	}
	for i, e := range ents {
		fmt.Fprintf(w, "%3d. [%s] %s (%d-%d, %.2f)\n", i+1, e.Label, e.Text, e.Start, e.End, e.Confidence)
	}
}

func printSummary(w io.Writer, s services.Summary) {
	fmt.Fprintf(w, "\nEntities: %d\n", s.TotalEntities)
	for _, set := range s.Sets {
		fmt.Fprintf(w, "%s: %d mapped, %d unmapped (%.1f%%, avg similarity %.2f)\n",
			strings.ToUpper(string(set.Terminology)), set.Mapped, set.Unmapped, set.MappingRate*100, set.AverageSimilarity)
	}
	if len(s.Sets) > 0 {
		fmt.Fprintf(w, "Overall coverage: %.1f%%\n", s.OverallCoverage*100)
	}
	if len(s.Categories) > 0 {
		parts := make([]string, len(s.Categories))
		for i, c := range s.Categories {
			parts[i] = fmt.Sprintf("%s=%d", c.Category, c.Count)
		}
		fmt.Fprintf(w, "Categories: %s\n", strings.Join(parts, ", "))
	}
}

// printAnnotation prints every entity with its accepted mappings.
func printAnnotation(w io.Writer, a *entities.Annotation) {
	if a.ID != "" {
		fmt.Fprintf(w, "ID:    %s\n", a.ID)
	}
	fmt.Fprintf(w, "Title: %s\n", a.Title)
	mode := string(a.Mode)
	if a.Model != "" {
		mode += " (" + a.Model + ")"
	}
	fmt.Fprintf(w, "Mode:  %s\n\n", mode)

	if len(a.Entities) == 0 {
		fmt.Fprintln(w, "No entities found.")
		return
	}
	for i, e := range a.Entities {
		fmt.Fprintf(w, "%3d. [%s] %s (%d-%d, %.2f)\n", i+1, e.Label, e.Text, e.Start, e.End, e.Confidence)
		if m, ok := entities.MappingFor(a.SNOMEDMappings, i); ok {
			fmt.Fprintf(w, "     SNOMED %s %s (%.2f)\n", m.Concept.Code, m.Concept.Display, m.SimilarityScore)
		}
		if m, ok := entities.MappingFor(a.HL7Mappings, i); ok {
			fmt.Fprintf(w, "     HL7    %s %s [%s] (%.2f)\n", m.Concept.Code, m.Concept.Display, m.Concept.System, m.SimilarityScore)
		}
	}
}
