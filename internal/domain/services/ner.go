package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
)

// DefaultNERConfidenceFloor is the score a prediction must exceed.
const DefaultNERConfidenceFloor = 0.7

// TagMapping maps model tags, without their B-/I- prefix, to categories.
// Tags missing from the mapping or mapped to OTHER are dropped.
type TagMapping map[string]entities.Category

// DefaultTagMapping covers general-purpose multilingual NER tag sets and
// models that emit the clinical categories directly.
func DefaultTagMapping() TagMapping {
	return TagMapping{
		"MISC":         entities.CategoryMedication,
		"PER":          entities.CategoryOther,
		"ORG":          entities.CategoryOther,
		"LOC":          entities.CategoryOther,
		"SYMPTOM":      entities.CategorySymptom,
		"SINTOMA":      entities.CategorySymptom,
		"DISEASE":      entities.CategoryDisease,
		"DOENCA":       entities.CategoryDisease,
		"MEDICATION":   entities.CategoryMedication,
		"MEDICAMENTO":  entities.CategoryMedication,
		"PROCEDURE":    entities.CategoryProcedure,
		"PROCEDIMENTO": entities.CategoryProcedure,
		"ANATOMY":      entities.CategoryAnatomy,
		"ANATOMIA":     entities.CategoryAnatomy,
	}
}

// Category resolves a raw model tag such as "B-MISC".
func (m TagMapping) Category(tag string) (entities.Category, bool) {
	t := strings.ToUpper(strings.TrimSpace(tag))
	t = strings.TrimPrefix(strings.TrimPrefix(t, "B-"), "I-")
	c, ok := m[t]
	if !ok || !c.IsValid() {
		return "", false
	}
	return c, true
}

// NERService owns the NER model handle. The model is loaded lazily, at most
// once at a time: concurrent callers share the same load and observe the
// same handle or the same failure. A failed load is retried on a later call.
type NERService struct {
	loader ports.NERLoader
	tags   TagMapping
	floor  float64
	logger *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	model ports.NERModel
}

// NewNERService creates a NER service. A nil tag mapping selects the
// default mapping and a non-positive floor the default floor.
func NewNERService(loader ports.NERLoader, tags TagMapping, floor float64, logger *zap.Logger) *NERService {
	if tags == nil {
		tags = DefaultTagMapping()
	}
	if floor <= 0 {
		floor = DefaultNERConfidenceFloor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NERService{
		loader: loader,
		tags:   tags,
		floor:  floor,
		logger: logger,
	}
}

// Model returns the loaded model, loading it on first use.
func (s *NERService) Model(ctx context.Context) (ports.NERModel, error) {
	s.mu.RLock()
	model := s.model
	s.mu.RUnlock()
	if model != nil {
		return model, nil
	}

	v, err, shared := s.group.Do("load", func() (any, error) {
		s.mu.RLock()
		loaded := s.model
		s.mu.RUnlock()
		if loaded != nil {
			return loaded, nil
		}

		m, err := s.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.model = m
		s.mu.Unlock()
		s.logger.Info("NER model loaded", zap.String("model", m.Name()))
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w (check the ner section of the config and the API key, or run with --mode patterns)", ErrModelUnavailable, err)
	}
	if shared {
		s.logger.Debug("NER model load shared between callers")
	}
	return v.(ports.NERModel), nil
}

// Recognize runs the model over text and returns consolidated entities.
func (s *NERService) Recognize(ctx context.Context, text string) ([]entities.Entity, string, error) {
	model, err := s.Model(ctx)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(text) == "" {
		return []entities.Entity{}, model.Name(), nil
	}

	preds, err := model.Predict(ctx, text)
	if err != nil {
		return nil, model.Name(), fmt.Errorf("running NER model %s: %w", model.Name(), err)
	}

	ents := s.toEntities(preds, text)
	return ents, model.Name(), nil
}

// toEntities filters, relabels and consolidates raw predictions. A B- tag
// opens a new entity: it is never merged into the span before it, so whole
// entities listed side by side ("febre, tosse") stay apart. Untagged and I-
// predictions follow the Consolidate gap rule.
func (s *NERService) toEntities(preds []entities.TokenPrediction, text string) []entities.Entity {
	type tagged struct {
		entity entities.Entity
		begin  bool
	}

	kept := make([]tagged, 0, len(preds))
	for _, p := range preds {
		if p.Score <= s.floor {
			continue
		}
		label, ok := s.tags.Category(p.Tag)
		if !ok {
			continue
		}
		word := strings.TrimPrefix(p.Word, "##")
		if p.Start >= 0 && p.End <= len(text) && p.Start < p.End {
			word = text[p.Start:p.End]
		}
		kept = append(kept, tagged{
			entity: entities.Entity{
				Text:       word,
				Label:      label,
				Start:      p.Start,
				End:        p.End,
				Confidence: p.Score,
			},
			begin: isBeginTag(p.Tag),
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].entity.Start < kept[j].entity.Start
	})

	out := make([]entities.Entity, 0, len(kept))
	var segment []entities.Entity
	for _, k := range kept {
		if k.begin && len(segment) > 0 {
			out = append(out, Consolidate(segment, text)...)
			segment = nil
		}
		segment = append(segment, k.entity)
	}
	out = append(out, Consolidate(segment, text)...)

	return dedupeSpans(out)
}

func isBeginTag(tag string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(tag)), "B-")
}

func dedupeSpans(ents []entities.Entity) []entities.Entity {
	seen := make(map[[2]int]bool, len(ents))
	out := ents[:0]
	for _, e := range ents {
		key := [2]int{e.Start, e.End}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
