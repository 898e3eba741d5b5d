// Package parsers reads terminology concept tables from JSON and CSV files.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawConcept is a concept row parsed from an external table before validation.
type RawConcept struct {
	ID           string   `json:"id,omitempty"`
	Term         string   `json:"term"`
	Code         string   `json:"code"`
	Display      string   `json:"display"`
	System       string   `json:"system,omitempty"`
	Synonyms     []string `json:"synonyms,omitempty"`
	Hierarchy    []string `json:"hierarchy,omitempty"`
	SystemName   string   `json:"system_name,omitempty"`
	Version      string   `json:"version,omitempty"`
	ResourceType string   `json:"resource_type,omitempty"`
	Score        *float64 `json:"score,omitempty"` // Pointer to distinguish 0 from unset
	LineNum      int      `json:"-"`               // Line number in source file (set by parser)
}

// Parser defines the interface for parsing concept tables.
type Parser interface {
	Parse(r io.Reader) ([]RawConcept, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	return ForFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."))
}
