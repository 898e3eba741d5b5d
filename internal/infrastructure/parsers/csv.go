package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// listSeparator splits multi-valued CSV cells (synonyms, hierarchy).
const listSeparator = "|"

// CSVParser parses concepts from CSV format.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed concepts.
// Required columns: term, code, display. Optional: id, system, synonyms,
// hierarchy, system_name, version, resource_type, score. Synonyms and
// hierarchy hold "|" separated values.
func (p *CSVParser) Parse(r io.Reader) ([]RawConcept, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range []string{"term", "code", "display"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawConcepts.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawConcept, error) {
	var concepts []RawConcept
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		concept, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, concept)
	}

	return concepts, nil
}

// parseRecord converts a CSV record to a RawConcept.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (RawConcept, error) {
	concept := RawConcept{
		ID:           getColumn(record, colIndex, "id"),
		Term:         getColumn(record, colIndex, "term"),
		Code:         getColumn(record, colIndex, "code"),
		Display:      getColumn(record, colIndex, "display"),
		System:       getColumn(record, colIndex, "system"),
		Synonyms:     splitList(getColumn(record, colIndex, "synonyms")),
		Hierarchy:    splitList(getColumn(record, colIndex, "hierarchy")),
		SystemName:   getColumn(record, colIndex, "system_name"),
		Version:      getColumn(record, colIndex, "version"),
		ResourceType: getColumn(record, colIndex, "resource_type"),
		LineNum:      lineNum,
	}

	scoreStr := getColumn(record, colIndex, "score")
	if scoreStr != "" {
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return RawConcept{}, fmt.Errorf("line %d: invalid score value %q: %w", lineNum, scoreStr, err)
		}
		concept.Score = &score
	}

	return concept, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, listSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
