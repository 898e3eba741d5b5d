package qdrant

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/domain/services"
	"github.com/ersonp/clinote/internal/infrastructure/config"
)

const (
	testQdrantHost = "localhost"
	testQdrantPort = 6334
	testCollection = "clinote_integration_test"
	testVectorSize = 4
)

// setupIntegrationRepo connects to a local Qdrant. It skips unless
// INTEGRATION_TEST=1.
func setupIntegrationRepo(t *testing.T) *Repository {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("set INTEGRATION_TEST=1 to run against a local Qdrant")
	}

	repo, err := NewRepository(config.QdrantConfig{
		Host:       testQdrantHost,
		Port:       testQdrantPort,
		Collection: testCollection,
	})
	require.NoError(t, err)

	ctx := t.Context()
	_ = repo.DeleteCollection(ctx) // may not exist yet
	require.NoError(t, repo.EnsureCollection(ctx, testVectorSize))

	t.Cleanup(func() {
		_ = repo.DeleteCollection(t.Context())
		repo.Close()
	})
	return repo
}

func indexed(c entities.Concept, vector ...float32) ports.IndexedConcept {
	return ports.IndexedConcept{ID: services.ConceptID(c), Concept: c, Embedding: vector}
}

func TestIntegration_CollectionLifecycle(t *testing.T) {
	repo := setupIntegrationRepo(t)

	count, err := repo.Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, repo.EnsureCollection(t.Context(), testVectorSize), "idempotent")
}

func TestIntegration_SaveBatchAndSearch(t *testing.T) {
	repo := setupIntegrationRepo(t)
	ctx := t.Context()

	dyspnea := entities.Concept{
		Code: "267036007", Display: "Dispneia", System: entities.SystemSNOMED,
		Synonyms: []string{"Dispneia", "Falta de ar"},
	}
	fever := entities.Concept{Code: "386661006", Display: "Febre", System: entities.SystemSNOMED}

	require.NoError(t, repo.SaveBatch(ctx, []ports.IndexedConcept{
		indexed(dyspnea, 1, 0, 0, 0),
		indexed(fever, 0, 1, 0, 0),
	}))

	found, err := repo.Search(ctx, []float32{0.9, 0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, dyspnea, found[0])

	// Same system and code overwrite instead of duplicating.
	require.NoError(t, repo.SaveBatch(ctx, []ports.IndexedConcept{indexed(fever, 0, 1, 0, 0)}))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}
