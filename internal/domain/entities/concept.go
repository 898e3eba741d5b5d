package entities

import "time"

// Terminology names an independent mapping set.
type Terminology string

// Supported terminologies.
const (
	TerminologySNOMED Terminology = "snomed"
	TerminologyHL7    Terminology = "hl7"
)

// Code system URIs.
const (
	SystemSNOMED = "http://snomed.info/sct"
	SystemICD10  = "http://hl7.org/fhir/sid/icd-10"
)

// Concept is a coded term owned by a terminology source.
type Concept struct {
	Code      string   `json:"code"`
	Display   string   `json:"display"`
	System    string   `json:"system"`
	Synonyms  []string `json:"synonyms,omitempty"`
	Hierarchy []string `json:"hierarchy,omitempty"` // root to leaf

	// HL7 FHIR attributes, empty for plain SNOMED concepts.
	SystemName   string `json:"system_name,omitempty"`
	Version      string `json:"version,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
}

// Candidate is a concept scored against a search term.
type Candidate struct {
	Concept Concept `json:"concept"`
	Score   float64 `json:"score"`
}

// Mapping is an accepted association between an entity and a concept.
type Mapping struct {
	EntityIndex       int      `json:"entity_index"`
	EntityText        string   `json:"entity_text"`
	EntityLabel       Category `json:"entity_label"`
	Concept           Concept  `json:"concept"`
	SimilarityScore   float64  `json:"similarity_score"`
	EmbeddingDistance float64  `json:"embedding_distance"`
}

// NewMapping builds a mapping for the entity at index idx.
func NewMapping(idx int, e Entity, c Candidate) Mapping {
	return Mapping{
		EntityIndex:       idx,
		EntityText:        e.Text,
		EntityLabel:       e.Label,
		Concept:           c.Concept,
		SimilarityScore:   c.Score,
		EmbeddingDistance: 1 - c.Score,
	}
}

// RecognitionMode tells how the entities of an annotation were produced.
type RecognitionMode string

// Recognition modes.
const (
	ModePatterns        RecognitionMode = "patterns"
	ModeModel           RecognitionMode = "model"
	ModePatternFallback RecognitionMode = "pattern_fallback"
)

// DefaultAnnotationTitle is used when an annotation is saved without a title.
const DefaultAnnotationTitle = "Anotação Clínica"

// Annotation is a finished pipeline run as stored by the annotation store.
type Annotation struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	OriginalText   string          `json:"original_text"`
	Mode           RecognitionMode `json:"mode"`
	Model          string          `json:"model,omitempty"`
	Entities       []Entity        `json:"entities"`
	SNOMEDMappings []Mapping       `json:"snomed_mappings"`
	HL7Mappings    []Mapping       `json:"hl7_mappings"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MappingFor returns the mapping of the entity at idx in the given set.
func MappingFor(mappings []Mapping, idx int) (Mapping, bool) {
	for _, m := range mappings {
		if m.EntityIndex == idx {
			return m, true
		}
	}
	return Mapping{}, false
}
