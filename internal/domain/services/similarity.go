package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// Scores assigned by Similarity.
const (
	ExactMatchScore    = 1.0
	ContainmentScore   = 0.8
	localContainFactor = 0.9
	localSynonymFactor = 0.85
)

// normalizeTerm puts a term in NFC, lowercases it and collapses whitespace.
func normalizeTerm(s string) string {
	return entities.NormalizeTerm(norm.NFC.String(s))
}

// StripAccents removes combining marks, so "hipertensão" becomes "hipertensao".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Similarity scores how close a candidate display is to a search term.
// Exact match after normalization scores 1.0, containment in either
// direction 0.8, anything else 1 - levenshtein/maxLen clamped at 0.
func Similarity(term, candidate string) float64 {
	a := normalizeTerm(term)
	b := normalizeTerm(candidate)

	if a == b {
		return ExactMatchScore
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return ContainmentScore
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	d := levenshtein.ComputeDistance(a, b)
	return max(0, 1-float64(d)/float64(maxLen))
}

// termVariations returns the supplementary queries tried when the primary
// search is too thin: accent-stripped form, singular/plural toggle and the
// first and last word of multi-word terms. The term itself is excluded.
func termVariations(term string) []string {
	base := normalizeTerm(term)
	if base == "" {
		return nil
	}
	seen := map[string]bool{base: true}
	var out []string
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	add(StripAccents(base))
	if strings.HasSuffix(base, "s") {
		add(strings.TrimSuffix(base, "s"))
	} else {
		add(base + "s")
	}

	words := strings.Fields(base)
	if len(words) > 1 {
		add(words[0])
		add(words[len(words)-1])
	}
	return out
}
