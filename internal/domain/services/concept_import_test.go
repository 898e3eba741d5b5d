package services

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/mocks"
	"github.com/ersonp/clinote/internal/infrastructure/parsers"
)

func score(v float64) *float64 {
	return &v
}

func TestConceptImportService_Import(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.1, 0.2}}
	index := &mocks.ConceptIndex{}
	svc := NewConceptImportService(embedder, index)

	raw := []parsers.RawConcept{
		{Term: "febre", Code: "386661006", Display: "Febre", Synonyms: []string{"Pirexia", "febre"}, LineNum: 2},
		{Code: "49727002", Display: "Tosse", System: entities.SystemSNOMED, LineNum: 3},
		{Term: "sem código", Display: "Nada", LineNum: 4},
	}

	result, err := svc.Import(t.Context(), raw, ImportOptions{DefaultSystem: entities.SystemSNOMED})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Line)
	assert.Equal(t, "code", result.Errors[0].Field)

	assert.Equal(t, 1, index.SaveBatchCallCount)
	require.Len(t, index.SaveBatchLastConcepts, 2)
	first := index.SaveBatchLastConcepts[0]
	assert.Equal(t, entities.SystemSNOMED, first.Concept.System)
	assert.Equal(t, ConceptID(first.Concept), first.ID)
	assert.Equal(t, []float32{0.1, 0.2}, first.Embedding)

	assert.Equal(t, []string{"Febre; Pirexia", "Tosse"}, embedder.LastTexts)
}

func TestConceptImportService_Import_DryRun(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.1}}
	index := &mocks.ConceptIndex{}
	svc := NewConceptImportService(embedder, index)

	result, err := svc.Import(t.Context(), []parsers.RawConcept{
		{Term: "febre", Code: "386661006", Display: "Febre"},
	}, ImportOptions{DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 0, index.SaveBatchCallCount)
}

func TestConceptImportService_Import_Batches(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.1}}
	index := &mocks.ConceptIndex{}
	svc := NewConceptImportService(embedder, index)

	raw := make([]parsers.RawConcept, importBatchSize+1)
	for i := range raw {
		raw[i] = parsers.RawConcept{Code: strconv.Itoa(i), Display: "x"}
	}

	result, err := svc.Import(t.Context(), raw, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, importBatchSize+1, result.Imported)
	assert.Equal(t, 2, embedder.BatchCallCount)
	assert.Equal(t, 2, index.SaveBatchCallCount)
}

func TestConceptImportService_Import_Errors(t *testing.T) {
	raw := []parsers.RawConcept{{Code: "1", Display: "Febre"}}

	t.Run("embedder failure", func(t *testing.T) {
		svc := NewConceptImportService(&mocks.Embedder{Err: errors.New("rate limited")}, &mocks.ConceptIndex{})
		_, err := svc.Import(t.Context(), raw, ImportOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "generating embeddings")
	})

	t.Run("index failure", func(t *testing.T) {
		svc := NewConceptImportService(&mocks.Embedder{EmbeddingResult: []float32{1}}, &mocks.ConceptIndex{Err: errors.New("qdrant down")})
		_, err := svc.Import(t.Context(), raw, ImportOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "saving concepts")
	})
}

func TestBuildTableEntries(t *testing.T) {
	raw := []parsers.RawConcept{
		{Code: "I10", Display: "Essential hypertension", Score: score(0.97)},
		{Term: "dm2", Code: "E11", Display: "Type 2 diabetes mellitus", System: entities.SystemICD10},
		{Code: "X", Display: "Bad", Score: score(1.5)},
		{Code: "Y", Display: " "},
	}

	entries, errs := BuildTableEntries(raw, entities.SystemSNOMED)

	require.Len(t, entries, 2)
	assert.Equal(t, "Essential hypertension", entries[0].Term, "term defaults to display")
	assert.Equal(t, 0.97, entries[0].Score)
	assert.Equal(t, entities.SystemSNOMED, entries[0].Concept.System)
	assert.Equal(t, 1.0, entries[1].Score)
	assert.Equal(t, entities.SystemICD10, entries[1].Concept.System)

	require.Len(t, errs, 2)
	assert.Equal(t, "score", errs[0].Field)
	assert.Equal(t, 3, errs[0].Line)
	assert.Equal(t, "display", errs[1].Field)
	assert.Equal(t, "line 4: missing required field: display", errs[1].Error())
}

func TestConceptID_IsStable(t *testing.T) {
	a := entities.Concept{Code: "386661006", System: entities.SystemSNOMED}
	b := entities.Concept{Code: "386661006", System: entities.SystemSNOMED, Display: "Febre"}
	c := entities.Concept{Code: "386661006", System: entities.SystemICD10}

	assert.Equal(t, ConceptID(a), ConceptID(b))
	assert.NotEqual(t, ConceptID(a), ConceptID(c))
}

func TestIndexSearcher_Search(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.3}}
	index := &mocks.ConceptIndex{Concepts: []entities.Concept{
		{Code: "1", Display: "Febre"},
		{Code: "2", Display: "Pirexia"},
	}}
	searcher := NewIndexSearcher(embedder, index)

	concepts, err := searcher.Search(t.Context(), "febre", 1)

	require.NoError(t, err)
	assert.Len(t, concepts, 1)
	assert.Equal(t, []string{"febre"}, embedder.LastTexts)
	assert.Equal(t, 1, index.SearchCallCount)
}

func TestIndexSearcher_Search_Errors(t *testing.T) {
	searcher := NewIndexSearcher(&mocks.Embedder{Err: errors.New("no key")}, &mocks.ConceptIndex{})
	_, err := searcher.Search(t.Context(), "febre", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating term embedding")

	searcher = NewIndexSearcher(&mocks.Embedder{}, &mocks.ConceptIndex{Err: errors.New("down")})
	_, err = searcher.Search(t.Context(), "febre", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "searching concept index")
}

func TestIndexSearcher_FeedsMatcher(t *testing.T) {
	index := &mocks.ConceptIndex{Concepts: []entities.Concept{
		{Code: "2", Display: "Pirexia", System: entities.SystemSNOMED},
		{Code: "1", Display: "Febre", System: entities.SystemSNOMED},
		{Code: "3", Display: "Febre reumática", System: entities.SystemSNOMED},
	}}
	matcher := NewTerminologyMatcher(NewIndexSearcher(&mocks.Embedder{}, index), nil, nil)

	result, err := matcher.Match(t.Context(), "febre", 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2"}, codes(result))
}
