package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/domain/services"
)

const note = "Refere febre e dispneia."

// failingMatcher fails every lookup.
type failingMatcher struct{}

func (failingMatcher) Match(ctx context.Context, term string, maxResults int) ([]entities.Candidate, error) {
	return nil, errors.New("terminology server down")
}

func newTestRecognizer(t *testing.T) *services.EntityRecognizer {
	t.Helper()
	x, err := services.NewPatternExtractor()
	require.NoError(t, err)
	return services.NewEntityRecognizer(x, nil, false, nil)
}

func newTestService(t *testing.T, snomed ports.TerminologyMatcher, store ports.AnnotationStore) *services.AnnotationService {
	t.Helper()
	if snomed == nil {
		snomed = services.MustLocalTerminology("snomed", entities.DefaultSNOMEDFallback)
	}
	hl7 := services.MustLocalTerminology("hl7", entities.DefaultHL7Table)
	mapper := services.NewMapper(nil, services.WithThresholdFloor(services.DefaultThresholdFloor))
	return services.NewAnnotationService(newTestRecognizer(t), mapper, snomed, hl7, store, nil)
}

func defaultRequest() AnnotateRequest {
	return AnnotateRequest{
		Options: services.AnnotateOptions{
			Mode:            entities.ModePatterns,
			SNOMEDThreshold: services.DefaultSNOMEDThreshold,
			HL7Threshold:    services.DefaultHL7Threshold,
		},
	}
}

func texts(ents []entities.Entity) []string {
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Text)
	}
	return out
}
