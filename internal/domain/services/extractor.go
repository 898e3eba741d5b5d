package services

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// Confidence range assigned to pattern matches.
const (
	PatternConfidenceMin   = 0.85
	PatternConfidenceRange = 0.15
)

// OverlapPolicy decides what happens to overlapping spans of different
// lengths or categories. Exact (start, end) duplicates are always dropped.
type OverlapPolicy string

const (
	// OverlapLongestMatch keeps the longest span of each overlapping group.
	// Ties go to the earlier category, then to the earlier start.
	OverlapLongestMatch OverlapPolicy = "longest"
	// OverlapKeepAll keeps every overlapping span.
	OverlapKeepAll OverlapPolicy = "keep_all"
)

type compiledSet struct {
	category entities.Category
	patterns []*regexp.Regexp
}

// PatternExtractor finds clinical entities with category pattern sets.
// It is safe for concurrent use.
type PatternExtractor struct {
	sets   []compiledSet
	policy OverlapPolicy

	mu  sync.Mutex
	rng *rand.Rand
}

// ExtractorOption configures a PatternExtractor.
type ExtractorOption func(*extractorOptions)

type extractorOptions struct {
	patterns []PatternSet
	policy   OverlapPolicy
	rng      *rand.Rand
}

// WithPatterns replaces the built-in pattern sets.
func WithPatterns(sets []PatternSet) ExtractorOption {
	return func(o *extractorOptions) { o.patterns = sets }
}

// WithOverlapPolicy sets the overlap policy.
func WithOverlapPolicy(p OverlapPolicy) ExtractorOption {
	return func(o *extractorOptions) { o.policy = p }
}

// WithRand sets the confidence source. Tests pass a seeded generator.
func WithRand(r *rand.Rand) ExtractorOption {
	return func(o *extractorOptions) { o.rng = r }
}

// NewPatternExtractor compiles the pattern sets once.
func NewPatternExtractor(opts ...ExtractorOption) (*PatternExtractor, error) {
	o := extractorOptions{
		patterns: DefaultPatterns,
		policy:   OverlapLongestMatch,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		seed := uint64(time.Now().UnixNano())
		o.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	switch o.policy {
	case OverlapLongestMatch, OverlapKeepAll:
	default:
		return nil, fmt.Errorf("unknown overlap policy %q", o.policy)
	}

	sets := make([]compiledSet, 0, len(o.patterns))
	for _, ps := range o.patterns {
		cs := compiledSet{category: ps.Category, patterns: make([]*regexp.Regexp, 0, len(ps.Patterns))}
		for _, p := range ps.Patterns {
			re, err := compileBounded(p)
			if err != nil {
				return nil, fmt.Errorf("compiling %s pattern %q: %w", ps.Category, p, err)
			}
			cs.patterns = append(cs.patterns, re)
		}
		sets = append(sets, cs)
	}

	return &PatternExtractor{sets: sets, policy: o.policy, rng: o.rng}, nil
}

// compileBounded wraps a pattern so that it only matches whole words.
// Go's \b only knows ASCII letters, which splits words like "torácica".
// The boundary characters are matched outside group 1.
func compileBounded(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}_])(` + pattern + `)(?:[^\p{L}\p{N}_]|$)`)
}

// Extract returns the entities found in text, sorted by start offset.
func (x *PatternExtractor) Extract(text string) []entities.Entity {
	if strings.TrimSpace(text) == "" {
		return []entities.Entity{}
	}

	var found []entities.Entity
	seen := make(map[[2]int]bool)

	for _, set := range x.sets {
		for _, re := range set.patterns {
			for _, span := range findWords(re, text) {
				key := [2]int{span[0], span[1]}
				if seen[key] {
					continue
				}
				seen[key] = true
				found = append(found, entities.Entity{
					Text:       text[span[0]:span[1]],
					Label:      set.category,
					Start:      span[0],
					End:        span[1],
					Confidence: x.confidence(),
				})
			}
		}
	}

	found = dropOther(found)
	if x.policy == OverlapLongestMatch {
		found = resolveOverlaps(found)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Start < found[j].Start
	})
	if found == nil {
		return []entities.Entity{}
	}
	return found
}

// findWords returns the non-overlapping group-1 spans of re in text.
func findWords(re *regexp.Regexp, text string) [][2]int {
	var spans [][2]int
	pos := 0
	for pos < len(text) {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[2], pos+loc[3]
		if start == pos && pos > 0 && isWordRuneBefore(text, pos) {
			// ^ matched at the resume point, which is not a real boundary.
			_, size := utf8.DecodeRuneInString(text[pos:])
			pos += size
			continue
		}
		if end <= start {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + max(size, 1)
			continue
		}
		spans = append(spans, [2]int{start, end})
		pos = end
	}
	return spans
}

func isWordRuneBefore(text string, pos int) bool {
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (x *PatternExtractor) confidence() float64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return PatternConfidenceMin + x.rng.Float64()*PatternConfidenceRange
}

func dropOther(in []entities.Entity) []entities.Entity {
	out := in[:0]
	for _, e := range in {
		if e.Label.IsValid() {
			out = append(out, e)
		}
	}
	return out
}

// resolveOverlaps keeps the longest span of every overlapping group.
func resolveOverlaps(in []entities.Entity) []entities.Entity {
	ranked := make([]entities.Entity, len(in))
	copy(ranked, in)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.Label.Rank() != b.Label.Rank() {
			return a.Label.Rank() < b.Label.Rank()
		}
		return a.Start < b.Start
	})

	kept := make([]entities.Entity, 0, len(ranked))
	for _, e := range ranked {
		overlaps := false
		for _, k := range kept {
			if e.Overlaps(k) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, e)
		}
	}
	return kept
}
