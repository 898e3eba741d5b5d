package qdrant

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/infrastructure/config"
)

// Compile-time interface checks.
var (
	_ ports.ConceptIndex      = (*Repository)(nil)
	_ ports.CollectionManager = (*Repository)(nil)
)

func TestConceptPayload_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		concept entities.Concept
	}{
		{
			name: "SNOMED concept with synonyms and hierarchy",
			concept: entities.Concept{
				Code:      "267036007",
				Display:   "Dispneia",
				System:    entities.SystemSNOMED,
				Synonyms:  []string{"Falta de ar", "Dispneia"},
				Hierarchy: []string{"Clinical finding", "Respiratory finding"},
			},
		},
		{
			name: "HL7 coding attributes",
			concept: entities.Concept{
				Code:         "I21",
				Display:      "Acute myocardial infarction",
				System:       entities.SystemICD10,
				SystemName:   "ICD-10",
				Version:      "4.0.1",
				ResourceType: "Condition",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.concept, payloadToConcept(conceptPayload(tt.concept)))
		})
	}
}

func TestPayloadToConcept_MissingKeys(t *testing.T) {
	c := payloadToConcept(map[string]*pb.Value{
		"code": stringValue("1"),
	})

	assert.Equal(t, "1", c.Code)
	assert.Empty(t, c.Display)
	assert.Nil(t, c.Synonyms)
}

func TestNewRepository(t *testing.T) {
	repo, err := NewRepository(config.QdrantConfig{Host: "localhost", Port: 6334, Collection: "test"})
	require.NoError(t, err)
	assert.Equal(t, "test", repo.collection)
	assert.NoError(t, repo.Close())

	secured, err := NewRepository(config.QdrantConfig{Host: "cloud.example", Port: 6334, Collection: "test", APIKey: "key"})
	require.NoError(t, err)
	assert.NoError(t, secured.Close())
}
