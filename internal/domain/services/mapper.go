package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
)

// Threshold defaults.
const (
	DefaultSNOMEDThreshold = 0.7
	DefaultHL7Threshold    = 0.8
	DefaultThresholdFloor  = 0.5
)

// ValidateThreshold checks that t lies in [floor, 1]. NaN is rejected.
func ValidateThreshold(t, floor float64) error {
	if math.IsNaN(floor) || floor < 0 || floor > 1 {
		return fmt.Errorf("%w: floor %.2f outside [0, 1]", ErrInvalidThreshold, floor)
	}
	if math.IsNaN(t) || t < floor || t > 1 {
		return fmt.Errorf("%w: %.2f outside [%.2f, 1]", ErrInvalidThreshold, t, floor)
	}
	return nil
}

// MappingStats summarizes one mapping run.
type MappingStats struct {
	TotalEntities     int     `json:"total_entities"`
	MappedCount       int     `json:"mapped_count"`
	FailedCount       int     `json:"failed_count"`
	MappingRate       float64 `json:"mapping_rate"`
	AverageSimilarity float64 `json:"average_similarity"`
}

// MappingRun is the outcome of mapping a list of entities to one
// terminology. Candidates are retained per entity so the run can be
// re-gated with another threshold.
type MappingRun struct {
	Terminology entities.Terminology
	Threshold   float64
	Entities    []entities.Entity
	Mappings    []entities.Mapping
	Stats       MappingStats
	Candidates  [][]entities.Candidate
	Failed      []int // indices of entities whose lookup failed
}

// Mapper maps entities to terminology concepts one at a time, in order.
type Mapper struct {
	cache      ports.CandidateCache
	logger     *zap.Logger
	floor      float64
	maxResults int
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithCandidateCache shares ranked candidates across runs.
func WithCandidateCache(c ports.CandidateCache) MapperOption {
	return func(m *Mapper) { m.cache = c }
}

// WithThresholdFloor sets the lowest accepted threshold.
func WithThresholdFloor(floor float64) MapperOption {
	return func(m *Mapper) { m.floor = floor }
}

// WithMaxResults sets how many candidates are requested per entity.
func WithMaxResults(n int) MapperOption {
	return func(m *Mapper) { m.maxResults = n }
}

// NewMapper creates a mapper.
func NewMapper(logger *zap.Logger, opts ...MapperOption) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mapper{
		logger:     logger,
		floor:      0,
		maxResults: MapperMaxResults,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Floor returns the lowest threshold this mapper accepts.
func (m *Mapper) Floor() float64 {
	return m.floor
}

// MapEntities looks up every entity with matcher and accepts the best
// candidate when its score reaches threshold. A failing lookup leaves the
// entity unmapped and the run continues. If every lookup fails the run is
// returned together with ErrMatcherUnavailable. On cancellation the partial
// run is returned with the context error.
func (m *Mapper) MapEntities(
	ctx context.Context,
	terminology entities.Terminology,
	ents []entities.Entity,
	threshold float64,
	matcher ports.TerminologyMatcher,
) (*MappingRun, error) {
	if err := ValidateThreshold(threshold, m.floor); err != nil {
		return nil, err
	}

	candidates := make([][]entities.Candidate, 0, len(ents))
	var failed []int

	for i, e := range ents {
		if err := ctx.Err(); err != nil {
			run := buildRun(terminology, ents, candidates, failed, threshold)
			return run, fmt.Errorf("mapping interrupted after %d of %d entities: %w", i, len(ents), err)
		}

		found, err := m.lookup(ctx, terminology, e.Text, matcher)
		if err != nil {
			m.logger.Warn("terminology lookup failed",
				zap.String("terminology", string(terminology)),
				zap.String("entity", e.Text),
				zap.Int("index", i),
				zap.Error(err),
			)
			failed = append(failed, i)
			found = nil
		}
		candidates = append(candidates, found)
	}

	run := buildRun(terminology, ents, candidates, failed, threshold)

	m.logger.Info("mapping run finished",
		zap.String("terminology", string(terminology)),
		zap.Float64("threshold", threshold),
		zap.Int("entities", run.Stats.TotalEntities),
		zap.Int("mapped", run.Stats.MappedCount),
		zap.Int("failed", run.Stats.FailedCount),
	)

	if len(ents) > 0 && len(failed) == len(ents) {
		return run, fmt.Errorf("%s: all %d lookups failed: %w", terminology, len(ents), ErrMatcherUnavailable)
	}
	return run, nil
}

// Remap re-gates a previous run with a new threshold without any lookup.
func (m *Mapper) Remap(run *MappingRun, threshold float64) (*MappingRun, error) {
	if err := ValidateThreshold(threshold, m.floor); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, errors.New("remapping: no previous run")
	}
	return buildRun(run.Terminology, run.Entities, run.Candidates, run.Failed, threshold), nil
}

// lookup queries matcher with the normalized text, the same form the cache
// is keyed by.
func (m *Mapper) lookup(ctx context.Context, terminology entities.Terminology, text string, matcher ports.TerminologyMatcher) ([]entities.Candidate, error) {
	term := normalizeTerm(text)
	key := CacheKey(terminology, m.maxResults, term)
	if m.cache != nil {
		cached, ok, err := m.cache.Get(ctx, key)
		if err != nil {
			m.logger.Debug("candidate cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	found, err := matcher.Match(ctx, term, m.maxResults)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, found); err != nil {
			m.logger.Debug("candidate cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return found, nil
}

// CacheKey identifies the candidates of one entity text in a terminology.
func CacheKey(terminology entities.Terminology, maxResults int, text string) string {
	return string(terminology) + ":" + strconv.Itoa(maxResults) + ":" + normalizeTerm(text)
}

func buildRun(
	terminology entities.Terminology,
	ents []entities.Entity,
	candidates [][]entities.Candidate,
	failed []int,
	threshold float64,
) *MappingRun {
	run := &MappingRun{
		Terminology: terminology,
		Threshold:   threshold,
		Entities:    ents,
		Mappings:    []entities.Mapping{},
		Candidates:  candidates,
		Failed:      failed,
	}

	var scoreSum float64
	for i, e := range ents {
		if i >= len(candidates) {
			break
		}
		best, ok := bestCandidate(candidates[i])
		if !ok || best.Score < threshold {
			continue
		}
		run.Mappings = append(run.Mappings, entities.NewMapping(i, e, best))
		scoreSum += best.Score
	}

	run.Stats = MappingStats{
		TotalEntities: len(ents),
		MappedCount:   len(run.Mappings),
		FailedCount:   len(failed),
	}
	if len(ents) > 0 {
		run.Stats.MappingRate = float64(len(run.Mappings)) / float64(len(ents))
	}
	if len(run.Mappings) > 0 {
		run.Stats.AverageSimilarity = scoreSum / float64(len(run.Mappings))
	}
	return run
}

// bestCandidate returns the score-maximal candidate; ties keep the first.
func bestCandidate(cs []entities.Candidate) (entities.Candidate, bool) {
	if len(cs) == 0 {
		return entities.Candidate{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}
