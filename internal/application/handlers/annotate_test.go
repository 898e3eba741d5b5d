package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/mocks"
	"github.com/ersonp/clinote/internal/domain/services"
)

func TestAnnotateHandler_Handle(t *testing.T) {
	handler := NewAnnotateHandler(newTestService(t, nil, nil))

	result, err := handler.Handle(t.Context(), note, defaultRequest())

	require.NoError(t, err)
	assert.NoError(t, result.PipelineErr)
	assert.False(t, result.Saved)
	assert.Equal(t, []string{"febre", "dispneia"}, texts(result.Annotation.Entities))
	assert.Equal(t, entities.DefaultAnnotationTitle, result.Annotation.Title)

	hl7, ok := entities.MappingFor(result.Annotation.HL7Mappings, 1)
	require.True(t, ok)
	assert.Equal(t, "267036007", hl7.Concept.Code)
	snomed, ok := entities.MappingFor(result.Annotation.SNOMEDMappings, 0)
	require.True(t, ok)
	assert.Equal(t, "386661006", snomed.Concept.Code)

	report := result.Report()
	assert.Equal(t, 2, report.Summary.TotalEntities)
	assert.Same(t, result.Annotation, report.Annotation)
}

func TestAnnotateHandler_Handle_Save(t *testing.T) {
	store := &mocks.AnnotationStore{}
	handler := NewAnnotateHandler(newTestService(t, nil, store))

	req := defaultRequest()
	req.Save = true
	req.Title = "Plantão"
	result, err := handler.Handle(t.Context(), note, req)

	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.NoError(t, result.SaveErr)
	assert.Equal(t, "ann-1", result.Annotation.ID)
	assert.Equal(t, "Plantão", store.Annotations["ann-1"].Title)
	require.Len(t, store.Audit, 1)
	assert.Equal(t, entities.AuditActionSave, store.Audit[0].Action)
}

func TestAnnotateHandler_Handle_SaveFailureKeepsResult(t *testing.T) {
	store := &mocks.AnnotationStore{Err: errors.New("disk full")}
	handler := NewAnnotateHandler(newTestService(t, nil, store))

	req := defaultRequest()
	req.Save = true
	result, err := handler.Handle(t.Context(), note, req)

	require.NoError(t, err)
	assert.False(t, result.Saved)
	require.Error(t, result.SaveErr)
	assert.Contains(t, result.SaveErr.Error(), "disk full")
	assert.Len(t, result.Annotation.Entities, 2)
	assert.Empty(t, result.Annotation.ID)
}

func TestAnnotateHandler_Handle_PartialResult(t *testing.T) {
	handler := NewAnnotateHandler(newTestService(t, failingMatcher{}, nil))

	result, err := handler.Handle(t.Context(), note, defaultRequest())

	require.NoError(t, err)
	assert.ErrorIs(t, result.PipelineErr, services.ErrMatcherUnavailable)
	assert.Empty(t, result.Annotation.SNOMEDMappings)
	assert.NotEmpty(t, result.Annotation.HL7Mappings, "HL7 mapping still ran")
}

func TestAnnotateHandler_Handle_InvalidThreshold(t *testing.T) {
	handler := NewAnnotateHandler(newTestService(t, nil, nil))

	req := defaultRequest()
	req.Options.SNOMEDThreshold = 1.2
	result, err := handler.Handle(t.Context(), note, req)

	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidThreshold)
	assert.Nil(t, result)
}

func TestAnnotateHandler_Remap(t *testing.T) {
	handler := NewAnnotateHandler(newTestService(t, nil, nil))
	req := defaultRequest()
	req.Title = "Consulta"
	first, err := handler.Handle(t.Context(), note, req)
	require.NoError(t, err)
	require.NotEmpty(t, first.Annotation.HL7Mappings)

	strict, err := handler.Remap(first, 1, 1)

	require.NoError(t, err)
	assert.Empty(t, strict.Annotation.SNOMEDMappings)
	assert.Empty(t, strict.Annotation.HL7Mappings)
	assert.Equal(t, "Consulta", strict.Annotation.Title)

	_, err = handler.Remap(first, 0.2, 0.8)
	assert.ErrorIs(t, err, services.ErrInvalidThreshold)
}
