package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory_Rank(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		expected int
	}{
		{name: "symptom first", category: CategorySymptom, expected: 0},
		{name: "anatomy last", category: CategoryAnatomy, expected: 4},
		{name: "other has no rank", category: CategoryOther, expected: -1},
		{name: "unknown has no rank", category: Category("FOO"), expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.category.Rank())
			assert.Equal(t, tt.expected >= 0, tt.category.IsValid())
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected Category
		ok       bool
	}{
		{input: "symptom", expected: CategorySymptom, ok: true},
		{input: "SINTOMA", expected: CategorySymptom, ok: true},
		{input: "doença", expected: CategoryDisease, ok: true},
		{input: " medicamento ", expected: CategoryMedication, ok: true},
		{input: "PROCEDIMENTO", expected: CategoryProcedure, ok: true},
		{input: "anatomia", expected: CategoryAnatomy, ok: true},
		{input: "OTHER", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCategory(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEntity_Overlaps(t *testing.T) {
	a := Entity{Start: 0, End: 5}

	assert.True(t, a.Overlaps(Entity{Start: 4, End: 8}))
	assert.True(t, a.Overlaps(Entity{Start: 1, End: 2}))
	assert.False(t, a.Overlaps(Entity{Start: 5, End: 8}), "half-open spans touching at 5 do not overlap")
	assert.Equal(t, 5, a.Len())
}

func TestNormalizeTerm(t *testing.T) {
	assert.Equal(t, "dor torácica aguda", NormalizeTerm("  Dor   Torácica\tAGUDA "))
	assert.Equal(t, "", NormalizeTerm("   "))
}

func TestNewMapping(t *testing.T) {
	e := Entity{Text: "febre", Label: CategorySymptom, Start: 3, End: 8}
	c := Candidate{Concept: Concept{Code: "386661006", Display: "Febre"}, Score: 0.75}

	m := NewMapping(2, e, c)

	assert.Equal(t, 2, m.EntityIndex)
	assert.Equal(t, "febre", m.EntityText)
	assert.Equal(t, CategorySymptom, m.EntityLabel)
	assert.InDelta(t, 0.25, m.EmbeddingDistance, 1e-9)

	got, ok := MappingFor([]Mapping{m}, 2)
	assert.True(t, ok)
	assert.Equal(t, m, got)

	_, ok = MappingFor([]Mapping{m}, 0)
	assert.False(t, ok)
}
