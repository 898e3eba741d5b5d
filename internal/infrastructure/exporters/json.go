package exporters

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/services"
)

// JSONExporter writes the full structured dump.
type JSONExporter struct{}

type jsonMetadata struct {
	ID             string                   `json:"id,omitempty"`
	Title          string                   `json:"title,omitempty"`
	ProcessedAt    string                   `json:"processedAt"`
	Mode           entities.RecognitionMode `json:"mode,omitempty"`
	Model          string                   `json:"model,omitempty"`
	TotalEntities  int                      `json:"totalEntities"`
	MappedEntities int                      `json:"mappedEntities"`
	MappingRate    string                   `json:"mappingRate"`
	OriginalText   string                   `json:"originalText"`
}

type jsonPosition struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type jsonMapping struct {
	Code              string   `json:"code"`
	Term              string   `json:"term"`
	System            string   `json:"system"`
	Synonyms          []string `json:"synonyms,omitempty"`
	Hierarchy         []string `json:"hierarchy,omitempty"`
	SystemName        string   `json:"systemName,omitempty"`
	Version           string   `json:"version,omitempty"`
	ResourceType      string   `json:"resourceType,omitempty"`
	SimilarityScore   float64  `json:"similarityScore"`
	EmbeddingDistance float64  `json:"embeddingDistance"`
}

type jsonEntity struct {
	Index         int               `json:"index"`
	Text          string            `json:"text"`
	Label         entities.Category `json:"label"`
	Position      jsonPosition      `json:"position"`
	NERConfidence float64           `json:"nerConfidence"`
	SNOMEDMapping *jsonMapping      `json:"snomedMapping"`
	HL7Mapping    *jsonMapping      `json:"hl7Mapping"`
}

type jsonDocument struct {
	Metadata jsonMetadata     `json:"metadata"`
	Summary  services.Summary `json:"summary"`
	Entities []jsonEntity     `json:"entities"`
}

// Export writes r as indented JSON.
func (e *JSONExporter) Export(w io.Writer, r Report) error {
	a := r.Annotation
	doc := jsonDocument{
		Metadata: jsonMetadata{
			ID:             a.ID,
			Title:          a.Title,
			ProcessedAt:    r.ProcessedAt().UTC().Format(time.RFC3339),
			Mode:           a.Mode,
			Model:          a.Model,
			TotalEntities:  len(a.Entities),
			MappedEntities: r.MappedEntities(),
			MappingRate:    r.MappingRate(),
			OriginalText:   a.OriginalText,
		},
		Summary:  r.Summary,
		Entities: make([]jsonEntity, 0, len(a.Entities)),
	}

	for _, rw := range r.rows() {
		doc.Entities = append(doc.Entities, jsonEntity{
			Index:         rw.Index,
			Text:          rw.Entity.Text,
			Label:         rw.Entity.Label,
			Position:      jsonPosition{Start: rw.Entity.Start, End: rw.Entity.End},
			NERConfidence: rw.Entity.Confidence,
			SNOMEDMapping: toJSONMapping(rw.SNOMED),
			HL7Mapping:    toJSONMapping(rw.HL7),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func toJSONMapping(m *entities.Mapping) *jsonMapping {
	if m == nil {
		return nil
	}
	return &jsonMapping{
		Code:              m.Concept.Code,
		Term:              m.Concept.Display,
		System:            m.Concept.System,
		Synonyms:          m.Concept.Synonyms,
		Hierarchy:         m.Concept.Hierarchy,
		SystemName:        m.Concept.SystemName,
		Version:           m.Concept.Version,
		ResourceType:      m.Concept.ResourceType,
		SimilarityScore:   m.SimilarityScore,
		EmbeddingDistance: m.EmbeddingDistance,
	}
}
