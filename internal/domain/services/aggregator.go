package services

import "github.com/ersonp/clinote/internal/domain/entities"

// MappingSet is one terminology's accepted mappings.
type MappingSet struct {
	Terminology entities.Terminology
	Mappings    []entities.Mapping
}

// SetSummary holds the counts of one mapping set.
type SetSummary struct {
	Terminology       entities.Terminology `json:"terminology"`
	Mapped            int                  `json:"mapped"`
	Unmapped          int                  `json:"unmapped"`
	MappingRate       float64              `json:"mapping_rate"`
	AverageSimilarity float64              `json:"average_similarity"`
}

// CategoryCount is one bar of the category histogram.
type CategoryCount struct {
	Category entities.Category `json:"category"`
	Count    int               `json:"count"`
}

// Summary is the export-ready digest of a pipeline run.
type Summary struct {
	TotalEntities   int             `json:"total_entities"`
	Sets            []SetSummary    `json:"sets"`
	OverallCoverage float64         `json:"overall_coverage"`
	Categories      []CategoryCount `json:"categories"`
}

// Set returns the summary of the named terminology.
func (s Summary) Set(t entities.Terminology) (SetSummary, bool) {
	for _, set := range s.Sets {
		if set.Terminology == t {
			return set, true
		}
	}
	return SetSummary{}, false
}

// Aggregate summarizes entities and their mapping sets. Mapped counts are
// distinct entity indices, so a set holding two mappings for the same entity
// still counts it once. Overall coverage is the sum of mapped counts over
// totalEntities times the number of sets, and 0 when either is 0. The
// category histogram follows category declaration order and omits empty
// categories.
func Aggregate(ents []entities.Entity, sets ...MappingSet) Summary {
	total := len(ents)
	summary := Summary{
		TotalEntities: total,
		Sets:          make([]SetSummary, 0, len(sets)),
		Categories:    categoryHistogram(ents),
	}

	mappedSum := 0
	for _, set := range sets {
		distinct := make(map[int]bool, len(set.Mappings))
		var scoreSum float64
		for _, m := range set.Mappings {
			if m.EntityIndex < 0 || m.EntityIndex >= total || distinct[m.EntityIndex] {
				continue
			}
			distinct[m.EntityIndex] = true
			scoreSum += m.SimilarityScore
		}

		s := SetSummary{
			Terminology: set.Terminology,
			Mapped:      len(distinct),
			Unmapped:    total - len(distinct),
		}
		if total > 0 {
			s.MappingRate = float64(s.Mapped) / float64(total)
		}
		if s.Mapped > 0 {
			s.AverageSimilarity = scoreSum / float64(s.Mapped)
		}
		mappedSum += s.Mapped
		summary.Sets = append(summary.Sets, s)
	}

	if total > 0 && len(sets) > 0 {
		summary.OverallCoverage = float64(mappedSum) / float64(total*len(sets))
	}
	return summary
}

func categoryHistogram(ents []entities.Entity) []CategoryCount {
	counts := make(map[entities.Category]int, len(entities.Categories))
	for _, e := range ents {
		counts[e.Label]++
	}
	out := make([]CategoryCount, 0, len(entities.Categories))
	for _, c := range entities.Categories {
		if n := counts[c]; n > 0 {
			out = append(out, CategoryCount{Category: c, Count: n})
		}
	}
	return out
}
