package exporters

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CSVExporter writes one row per entity with its best mappings.
type CSVExporter struct{}

var csvHeader = []string{
	"Entity", "Label", "Start", "End", "NER_Confidence",
	"SNOMED_Code", "SNOMED_Term", "Similarity_Score",
	"HL7_Code", "HL7_Display", "HL7_System", "HL7_Similarity_Score",
}

// Export writes r as CSV.
func (e *CSVExporter) Export(w io.Writer, r Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, rw := range r.rows() {
		record := []string{
			rw.Entity.Text,
			string(rw.Entity.Label),
			strconv.Itoa(rw.Entity.Start),
			strconv.Itoa(rw.Entity.End),
			formatScore(rw.Entity.Confidence),
			"", "", "",
			"", "", "", "",
		}
		if m := rw.SNOMED; m != nil {
			record[5] = m.Concept.Code
			record[6] = m.Concept.Display
			record[7] = formatScore(m.SimilarityScore)
		}
		if m := rw.HL7; m != nil {
			record[8] = m.Concept.Code
			record[9] = m.Concept.Display
			record[10] = m.Concept.System
			record[11] = formatScore(m.SimilarityScore)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
