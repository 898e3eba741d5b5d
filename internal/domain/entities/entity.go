// Package entities contains core domain data structures.
package entities

import (
	"strings"
	"unicode"
)

// Category is the clinical class assigned to an extracted entity.
type Category string

// Clinical categories in declaration order. The order is significant: it
// breaks ties between overlapping spans and orders category histograms.
const (
	CategorySymptom    Category = "SYMPTOM"
	CategoryDisease    Category = "DISEASE"
	CategoryMedication Category = "MEDICATION"
	CategoryProcedure  Category = "PROCEDURE"
	CategoryAnatomy    Category = "ANATOMY"

	// CategoryOther is an extraction-only bucket. It never leaves the
	// recognizer.
	CategoryOther Category = "OTHER"
)

// Categories lists the user-visible categories in declaration order.
var Categories = []Category{
	CategorySymptom,
	CategoryDisease,
	CategoryMedication,
	CategoryProcedure,
	CategoryAnatomy,
}

// IsValid reports whether c is one of the user-visible categories.
func (c Category) IsValid() bool {
	return c.Rank() >= 0
}

// Rank returns the declaration index of c, or -1 for OTHER and unknown values.
func (c Category) Rank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return -1
}

// ParseCategory converts a user supplied label into a Category.
// Portuguese labels used by clinical staff are accepted as aliases.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SYMPTOM", "SINTOMA":
		return CategorySymptom, true
	case "DISEASE", "DOENCA", "DOENÇA":
		return CategoryDisease, true
	case "MEDICATION", "MEDICAMENTO":
		return CategoryMedication, true
	case "PROCEDURE", "PROCEDIMENTO":
		return CategoryProcedure, true
	case "ANATOMY", "ANATOMIA":
		return CategoryAnatomy, true
	default:
		return "", false
	}
}

// Entity is a labeled span of a clinical narrative.
// Start and End are half-open byte offsets into the original text, so
// originalText[Start:End] == Text.
type Entity struct {
	Text       string   `json:"text"`
	Label      Category `json:"label"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Confidence float64  `json:"confidence"`
}

// Len returns the span length in bytes.
func (e Entity) Len() int {
	return e.End - e.Start
}

// Overlaps reports whether the two spans share at least one byte.
func (e Entity) Overlaps(other Entity) bool {
	return e.Start < other.End && other.Start < e.End
}

// TokenPrediction is a raw sub-token prediction produced by a NER model.
type TokenPrediction struct {
	Word  string  `json:"word"`
	Tag   string  `json:"entity"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// NormalizeTerm lowercases a term and collapses inner whitespace. It is the
// key used by local terminology tables and candidate caches.
func NormalizeTerm(term string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(term), unicode.IsSpace), " ")
}
