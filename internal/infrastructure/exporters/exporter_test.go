package exporters

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/domain/entities"
)

func sampleReport() Report {
	a := &entities.Annotation{
		ID:           "ann-1",
		Title:        "Consulta | PS",
		OriginalText: "Infarto agudo do miocárdio, uso de aspirina.",
		Mode:         entities.ModePatterns,
		Entities: []entities.Entity{
			{Text: "Infarto agudo do miocárdio", Label: entities.CategoryDisease, Start: 0, End: 27, Confidence: 0.8},
			{Text: "aspirina", Label: entities.CategoryMedication, Start: 36, End: 44, Confidence: 0.8},
		},
		SNOMEDMappings: []entities.Mapping{{
			EntityIndex: 0, EntityText: "Infarto agudo do miocárdio", EntityLabel: entities.CategoryDisease,
			Concept: entities.Concept{
				Code: "57054005", Display: "Infarto agudo do miocárdio", System: entities.SystemSNOMED,
				Synonyms: []string{"IAM", "Ataque cardíaco"}, Hierarchy: []string{"Clinical finding", "Disease"},
			},
			SimilarityScore: 0.875, EmbeddingDistance: 0.125,
		}},
		HL7Mappings: []entities.Mapping{{
			EntityIndex: 1, EntityText: "aspirina", EntityLabel: entities.CategoryMedication,
			Concept: entities.Concept{
				Code: "1191", Display: "Aspirin", System: "http://www.nlm.nih.gov/research/umls/rxnorm",
				SystemName: "RxNorm", Version: "2023", ResourceType: "Medication",
			},
			SimilarityScore: 0.9, EmbeddingDistance: 0.1,
		}},
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	return FromAnnotation(a)
}

func TestForFormat(t *testing.T) {
	for _, f := range Formats {
		assert.NotNil(t, ForFormat(f), f)
	}
	assert.IsType(t, &MarkdownExporter{}, ForFormat("MD"))
	assert.Nil(t, ForFormat("pdf"))
}

func TestFormatForFile(t *testing.T) {
	assert.Equal(t, "csv", FormatForFile("out/notes.CSV"))
	assert.Equal(t, "xml", FormatForFile("a.xml"))
	assert.Equal(t, "json", FormatForFile("a.txt"))
	assert.Equal(t, "json", FormatForFile(""))
}

func TestReport_MappingRate(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 1, r.MappedEntities())
	assert.Equal(t, "50.0%", r.MappingRate())
	assert.Equal(t, r.Annotation.CreatedAt, r.ProcessedAt())

	empty := FromAnnotation(&entities.Annotation{})
	assert.Equal(t, "0.0%", empty.MappingRate())
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Export(&buf, sampleReport()))

	var doc jsonDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "2026-03-01T09:00:00Z", doc.Metadata.ProcessedAt)
	assert.Equal(t, 2, doc.Metadata.TotalEntities)
	assert.Equal(t, 1, doc.Metadata.MappedEntities)
	assert.Equal(t, "50.0%", doc.Metadata.MappingRate)
	assert.Equal(t, sampleReport().Annotation.OriginalText, doc.Metadata.OriginalText)
	assert.Equal(t, 0.5, doc.Summary.OverallCoverage)

	require.Len(t, doc.Entities, 2)
	first := doc.Entities[0]
	assert.Equal(t, jsonPosition{Start: 0, End: 27}, first.Position)
	require.NotNil(t, first.SNOMEDMapping)
	assert.Equal(t, "57054005", first.SNOMEDMapping.Code)
	assert.Equal(t, []string{"IAM", "Ataque cardíaco"}, first.SNOMEDMapping.Synonyms)
	assert.Equal(t, 0.125, first.SNOMEDMapping.EmbeddingDistance)
	assert.Nil(t, first.HL7Mapping)

	second := doc.Entities[1]
	assert.Nil(t, second.SNOMEDMapping)
	require.NotNil(t, second.HL7Mapping)
	assert.Equal(t, "Medication", second.HL7Mapping.ResourceType)
	assert.Equal(t, "RxNorm", second.HL7Mapping.SystemName)
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVExporter{}).Export(&buf, sampleReport()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Entity,Label,Start,End,NER_Confidence,SNOMED_Code,SNOMED_Term,Similarity_Score,HL7_Code,HL7_Display,HL7_System,HL7_Similarity_Score",
		strings.Join(records[0], ","))
	assert.Equal(t, []string{"Infarto agudo do miocárdio", "DISEASE", "0", "27", "0.8", "57054005", "Infarto agudo do miocárdio", "0.875", "", "", "", ""}, records[1])
	assert.Equal(t, "aspirina", records[2][0])
	assert.Empty(t, records[2][5])
	assert.Equal(t, "1191", records[2][8])
	assert.Equal(t, "0.9", records[2][11])
}

func TestXMLExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&XMLExporter{}).Export(&buf, sampleReport()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, "<mappingRate>50.0%</mappingRate>")
	assert.Contains(t, out, `<category name="DISEASE">1</category>`)

	var doc xmlDocument
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 2, doc.Metadata.TotalEntities)
	require.Len(t, doc.Summary.Sets, 2)
	assert.Equal(t, "snomed", doc.Summary.Sets[0].Terminology)
	require.Len(t, doc.Entities, 2)
	require.NotNil(t, doc.Entities[0].SNOMEDMapping)
	assert.Equal(t, []string{"IAM", "Ataque cardíaco"}, doc.Entities[0].SNOMEDMapping.Synonyms)
	assert.Equal(t, []string{"Clinical finding", "Disease"}, doc.Entities[0].SNOMEDMapping.Hierarchy)
	assert.Nil(t, doc.Entities[0].HL7Mapping)
	assert.Equal(t, 1, doc.Entities[1].Index)
	assert.Equal(t, "2023", doc.Entities[1].HL7Mapping.Version)
}

func TestMarkdownExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Export(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, `# Consulta \| PS`)
	assert.Contains(t, out, "Entities: 2 | SNOMED mapped: 1 (50.0%) | Coverage: 50.0%")
	assert.Contains(t, out, "| 0 | Infarto agudo do miocárdio | DISEASE | 0-27 | 0.80 | 57054005 Infarto agudo do miocárdio (0.88) | - |")
	assert.Contains(t, out, "| 1 | aspirina | MEDICATION | 36-44 | 0.80 | - | 1191 Aspirin (0.90) |")
	assert.Contains(t, out, "- DISEASE: 1\n- MEDICATION: 1\n")
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "pipe escaped", input: "value|with|pipes", expected: "value\\|with\\|pipes"},
		{name: "newline replaced", input: "line1\nline2", expected: "line1 line2"},
		{name: "no change needed", input: "simple text", expected: "simple text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeMarkdown(tt.input))
		})
	}
}
