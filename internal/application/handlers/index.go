package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/clinote/internal/domain/services"
	"github.com/ersonp/clinote/internal/infrastructure/parsers"
)

// IndexHandler handles loading concept tables into the semantic index.
type IndexHandler struct {
	service *services.ConceptImportService
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(service *services.ConceptImportService) *IndexHandler {
	return &IndexHandler{
		service: service,
	}
}

// IndexOptions controls index behavior.
type IndexOptions struct {
	Format        string // "json", "csv", or "auto"
	DryRun        bool   // Validate and embed without saving
	DefaultSystem string // System URI for rows that leave it empty
}

// IndexResult contains the result of an index operation.
type IndexResult struct {
	Imported int
	Errors   []services.ImportError
}

// Handle indexes the concepts of a table file.
func (h *IndexHandler) Handle(ctx context.Context, filePath string, opts IndexOptions) (*IndexResult, error) {
	raw, err := ReadConceptTable(filePath, opts.Format)
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return &IndexResult{}, nil
	}

	serviceResult, err := h.service.Import(ctx, raw, services.ImportOptions{
		DryRun:        opts.DryRun,
		DefaultSystem: opts.DefaultSystem,
	})
	if err != nil {
		return nil, err
	}

	return &IndexResult{
		Imported: serviceResult.Imported,
		Errors:   serviceResult.Errors,
	}, nil
}

// ReadConceptTable parses a JSON or CSV concept table. An empty or "auto"
// format is guessed from the file extension.
func ReadConceptTable(filePath, format string) ([]parsers.RawConcept, error) {
	var parser parsers.Parser
	if format == "" || format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(format)
	}

	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	raw, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}
	return raw, nil
}
