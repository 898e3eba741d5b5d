package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
)

// AnnotateOptions controls one pipeline run.
type AnnotateOptions struct {
	Mode            entities.RecognitionMode
	SNOMEDThreshold float64
	HL7Threshold    float64
	SkipSNOMED      bool
	SkipHL7         bool
}

// AnnotationResult holds everything one run produced. After a pipeline
// error it still holds whatever stages completed.
type AnnotationResult struct {
	Text        string
	Recognition *Recognition
	SNOMED      *MappingRun
	HL7         *MappingRun
	Summary     Summary
	ProcessedAt time.Time
}

// Entities returns the recognized entities.
func (r *AnnotationResult) Entities() []entities.Entity {
	if r.Recognition == nil {
		return nil
	}
	return r.Recognition.Entities
}

// Annotation converts the result into the stored form.
func (r *AnnotationResult) Annotation(title string) *entities.Annotation {
	a := &entities.Annotation{
		Title:          strings.TrimSpace(title),
		OriginalText:   r.Text,
		Entities:       r.Entities(),
		SNOMEDMappings: mappingsOf(r.SNOMED),
		HL7Mappings:    mappingsOf(r.HL7),
		CreatedAt:      r.ProcessedAt,
		UpdatedAt:      r.ProcessedAt,
	}
	if a.Title == "" {
		a.Title = entities.DefaultAnnotationTitle
	}
	if r.Recognition != nil {
		a.Mode = r.Recognition.Mode
		a.Model = r.Recognition.Model
	}
	return a
}

// SummarizeAnnotation aggregates a stored annotation.
func SummarizeAnnotation(a *entities.Annotation) Summary {
	return Aggregate(a.Entities,
		MappingSet{Terminology: entities.TerminologySNOMED, Mappings: a.SNOMEDMappings},
		MappingSet{Terminology: entities.TerminologyHL7, Mappings: a.HL7Mappings},
	)
}

func mappingsOf(run *MappingRun) []entities.Mapping {
	if run == nil {
		return []entities.Mapping{}
	}
	return run.Mappings
}

// AnnotationService runs the annotation pipeline: recognition, SNOMED
// mapping, HL7 mapping and aggregation. It also fronts the annotation store.
type AnnotationService struct {
	recognizer *EntityRecognizer
	mapper     *Mapper
	snomed     ports.TerminologyMatcher
	hl7        ports.TerminologyMatcher
	store      ports.AnnotationStore
	logger     *zap.Logger
}

// NewAnnotationService creates an annotation service. store may be nil when
// persistence is not needed.
func NewAnnotationService(
	recognizer *EntityRecognizer,
	mapper *Mapper,
	snomed ports.TerminologyMatcher,
	hl7 ports.TerminologyMatcher,
	store ports.AnnotationStore,
	logger *zap.Logger,
) *AnnotationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnotationService{
		recognizer: recognizer,
		mapper:     mapper,
		snomed:     snomed,
		hl7:        hl7,
		store:      store,
		logger:     logger,
	}
}

// Validate checks the thresholds of opts before any work is done.
func (s *AnnotationService) Validate(opts AnnotateOptions) error {
	if !opts.SkipSNOMED {
		if err := ValidateThreshold(opts.SNOMEDThreshold, s.mapper.Floor()); err != nil {
			return fmt.Errorf("snomed threshold: %w", err)
		}
	}
	if !opts.SkipHL7 {
		if err := ValidateThreshold(opts.HL7Threshold, s.mapper.Floor()); err != nil {
			return fmt.Errorf("hl7 threshold: %w", err)
		}
	}
	return nil
}

// Annotate runs the whole pipeline over text. Mapping failures do not
// discard the result: it is returned together with the joined errors.
func (s *AnnotationService) Annotate(ctx context.Context, text string, opts AnnotateOptions) (*AnnotationResult, error) {
	if err := s.Validate(opts); err != nil {
		return nil, err
	}

	rec, err := s.recognizer.Recognize(ctx, text, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("recognizing entities: %w", err)
	}

	result := &AnnotationResult{
		Text:        text,
		Recognition: rec,
		ProcessedAt: time.Now().UTC(),
	}

	var errs []error
	if !opts.SkipSNOMED {
		run, err := s.mapper.MapEntities(ctx, entities.TerminologySNOMED, rec.Entities, opts.SNOMEDThreshold, s.snomed)
		result.SNOMED = run
		if err != nil {
			errs = append(errs, fmt.Errorf("mapping to SNOMED CT: %w", err))
		}
	}
	if !opts.SkipHL7 && ctx.Err() == nil {
		run, err := s.mapper.MapEntities(ctx, entities.TerminologyHL7, rec.Entities, opts.HL7Threshold, s.hl7)
		result.HL7 = run
		if err != nil {
			errs = append(errs, fmt.Errorf("mapping to HL7: %w", err))
		}
	}

	result.Summary = s.summarize(result)
	return result, errors.Join(errs...)
}

// Remap re-gates a previous result with new thresholds. No terminology
// lookup is made.
func (s *AnnotationService) Remap(prev *AnnotationResult, snomedThreshold, hl7Threshold float64) (*AnnotationResult, error) {
	if prev == nil {
		return nil, errors.New("remapping: no previous result")
	}
	next := *prev
	if prev.SNOMED != nil {
		run, err := s.mapper.Remap(prev.SNOMED, snomedThreshold)
		if err != nil {
			return nil, fmt.Errorf("snomed threshold: %w", err)
		}
		next.SNOMED = run
	}
	if prev.HL7 != nil {
		run, err := s.mapper.Remap(prev.HL7, hl7Threshold)
		if err != nil {
			return nil, fmt.Errorf("hl7 threshold: %w", err)
		}
		next.HL7 = run
	}
	next.Summary = s.summarize(&next)
	return &next, nil
}

func (s *AnnotationService) summarize(r *AnnotationResult) Summary {
	var sets []MappingSet
	if r.SNOMED != nil {
		sets = append(sets, MappingSet{Terminology: entities.TerminologySNOMED, Mappings: r.SNOMED.Mappings})
	}
	if r.HL7 != nil {
		sets = append(sets, MappingSet{Terminology: entities.TerminologyHL7, Mappings: r.HL7.Mappings})
	}
	return Aggregate(r.Entities(), sets...)
}

// Save stores the result. A storage failure leaves the result untouched.
func (s *AnnotationService) Save(ctx context.Context, result *AnnotationResult, title string) (*entities.Annotation, error) {
	if s.store == nil {
		return nil, errors.New("annotation store is not configured")
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, errors.New("cannot save an annotation without text")
	}

	a := result.Annotation(title)
	if err := s.store.SaveAnnotation(ctx, a); err != nil {
		return nil, fmt.Errorf("saving annotation: %w", err)
	}

	details := map[string]any{
		"entities": len(a.Entities),
		"snomed":   len(a.SNOMEDMappings),
		"hl7":      len(a.HL7Mappings),
		"mode":     string(a.Mode),
	}
	if err := s.store.LogAction(ctx, entities.AuditActionSave, a.ID, details); err != nil {
		s.logger.Warn("writing audit log failed", zap.String("annotation_id", a.ID), zap.Error(err))
	}

	s.logger.Info("annotation saved", zap.String("annotation_id", a.ID), zap.Int("entities", len(a.Entities)))
	return a, nil
}

// Find loads a stored annotation.
func (s *AnnotationService) Find(ctx context.Context, id string) (*entities.Annotation, error) {
	if s.store == nil {
		return nil, errors.New("annotation store is not configured")
	}
	a, err := s.store.FindAnnotation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding annotation: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAnnotationNotFound, id)
	}
	return a, nil
}

// List returns stored annotations newest first.
func (s *AnnotationService) List(ctx context.Context, limit, offset int) ([]entities.Annotation, int, error) {
	if s.store == nil {
		return nil, 0, errors.New("annotation store is not configured")
	}
	list, err := s.store.ListAnnotations(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing annotations: %w", err)
	}
	total, err := s.store.CountAnnotations(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("counting annotations: %w", err)
	}
	return list, total, nil
}

// Delete removes a stored annotation.
func (s *AnnotationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Find(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteAnnotation(ctx, id); err != nil {
		return fmt.Errorf("deleting annotation: %w", err)
	}
	if err := s.store.LogAction(ctx, entities.AuditActionDelete, id, nil); err != nil {
		s.logger.Warn("writing audit log failed", zap.String("annotation_id", id), zap.Error(err))
	}
	return nil
}

// RecordExport writes an audit entry for an exported annotation.
func (s *AnnotationService) RecordExport(ctx context.Context, id, format string) {
	if s.store == nil || id == "" {
		return
	}
	if err := s.store.LogAction(ctx, entities.AuditActionExport, id, map[string]any{"format": format}); err != nil {
		s.logger.Warn("writing audit log failed", zap.String("annotation_id", id), zap.Error(err))
	}
}
