package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONParser_Parse_ValidInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []RawConcept
	}{
		{
			name:  "single concept",
			input: `[{"term": "febre", "code": "386661006", "display": "Febre"}]`,
			expected: []RawConcept{
				{Term: "febre", Code: "386661006", Display: "Febre", LineNum: 1},
			},
		},
		{
			name:     "empty array",
			input:    "[]",
			expected: []RawConcept{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &JSONParser{}
			result, err := parser.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestJSONParser_Parse_AllFields(t *testing.T) {
	input := `[{
		"id": "c-1",
		"term": "diabetes mellitus tipo 2",
		"code": "E11",
		"display": "Type 2 diabetes mellitus",
		"system": "http://hl7.org/fhir/sid/icd-10",
		"synonyms": ["DM2"],
		"hierarchy": ["Endocrine", "Diabetes"],
		"system_name": "ICD-10",
		"version": "4.0.1",
		"resource_type": "Condition",
		"score": 0.99
	}]`

	parser := &JSONParser{}
	result, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result, 1)

	c := result[0]
	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, "E11", c.Code)
	assert.Equal(t, []string{"DM2"}, c.Synonyms)
	assert.Equal(t, []string{"Endocrine", "Diabetes"}, c.Hierarchy)
	assert.Equal(t, "Condition", c.ResourceType)
	require.NotNil(t, c.Score)
	assert.Equal(t, 0.99, *c.Score)
}

func TestJSONParser_Parse_InvalidInput(t *testing.T) {
	parser := &JSONParser{}
	_, err := parser.Parse(strings.NewReader("not json"))
	require.Error(t, err)
}

func TestCSVParser_Parse_ValidInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []RawConcept
	}{
		{
			name:  "required columns only",
			input: "term,code,display\nfebre,386661006,Febre\n",
			expected: []RawConcept{
				{Term: "febre", Code: "386661006", Display: "Febre", LineNum: 2},
			},
		},
		{
			name:     "empty CSV (header only)",
			input:    "term,code,display\n",
			expected: nil,
		},
		{
			name:  "columns in different order and case",
			input: "Display,CODE,term\nTosse,49727002,tosse\n",
			expected: []RawConcept{
				{Term: "tosse", Code: "49727002", Display: "Tosse", LineNum: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &CSVParser{}
			result, err := parser.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCSVParser_Parse_ListColumns(t *testing.T) {
	input := "term,code,display,synonyms,hierarchy,score\n" +
		"dispneia,267036007,Dyspnea,Falta de ar | Dispneia,Clinical finding|Respiratory finding,0.96\n"

	parser := &CSVParser{}
	result, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result, 1)

	c := result[0]
	assert.Equal(t, []string{"Falta de ar", "Dispneia"}, c.Synonyms)
	assert.Equal(t, []string{"Clinical finding", "Respiratory finding"}, c.Hierarchy)
	require.NotNil(t, c.Score)
	assert.Equal(t, 0.96, *c.Score)
}

func TestCSVParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{name: "missing code column", input: "term,display\nfebre,Febre\n", errMsg: "missing required column: code"},
		{name: "invalid score", input: "term,code,display,score\nfebre,1,Febre,high\n", errMsg: "line 2: invalid score"},
		{name: "empty input", input: "", errMsg: "reading CSV header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &CSVParser{}
			_, err := parser.Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestForFormat(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFormat("JSON"))
	assert.IsType(t, &CSVParser{}, ForFormat("csv"))
	assert.Nil(t, ForFormat("xml"))
}

func TestForFile(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFile("hl7.json"))
	assert.IsType(t, &CSVParser{}, ForFile("/tmp/SNOMED.CSV"))
	assert.Nil(t, ForFile("notes.txt"))
}
