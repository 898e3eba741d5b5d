package services

import (
	"strings"
	"unicode"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// MaxMergeGap is the largest number of bytes allowed between two same-label
// spans for them to be merged.
const MaxMergeGap = 2

// Consolidate merges runs of adjacent same-label entities, such as the
// sub-word fragments of a tokenizer, into single entities. The input must be
// sorted by start. Merged text is re-sliced from originalText and confidence
// is the mean of all merged members. Emitted entities are trimmed of
// surrounding whitespace with their offsets adjusted to match.
func Consolidate(ents []entities.Entity, originalText string) []entities.Entity {
	out := make([]entities.Entity, 0, len(ents))
	if len(ents) == 0 {
		return out
	}

	current := ents[0]
	sum := current.Confidence
	count := 1

	emit := func() {
		current.Confidence = sum / float64(count)
		if e, ok := trimEntity(current, originalText); ok {
			out = append(out, e)
		}
	}

	for _, next := range ents[1:] {
		if next.Label == current.Label && next.Start <= current.End+MaxMergeGap {
			end := max(current.End, next.End)
			current.End = end
			current.Text = sliceText(originalText, current.Start, end, current.Text+next.Text)
			sum += next.Confidence
			count++
			continue
		}
		emit()
		current = next
		sum = next.Confidence
		count = 1
	}
	emit()

	return out
}

// sliceText returns originalText[start:end] when the offsets are valid, or
// fallback when they do not address the text.
func sliceText(originalText string, start, end int, fallback string) string {
	if start < 0 || end > len(originalText) || start >= end {
		return fallback
	}
	return originalText[start:end]
}

// trimEntity strips surrounding whitespace and moves the offsets with it.
// Entities that are only whitespace are dropped.
func trimEntity(e entities.Entity, originalText string) (entities.Entity, bool) {
	left := len(e.Text) - len(strings.TrimLeftFunc(e.Text, unicode.IsSpace))
	trimmed := strings.TrimFunc(e.Text, unicode.IsSpace)
	if trimmed == "" {
		return entities.Entity{}, false
	}

	// Only shift offsets when the text really is the addressed slice.
	if sliceText(originalText, e.Start, e.End, "") == e.Text {
		e.Start += left
		e.End = e.Start + len(trimmed)
	}
	e.Text = trimmed
	return e, true
}
