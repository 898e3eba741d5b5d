package exporters

import (
	"encoding/xml"
	"io"
	"time"
)

// XMLExporter writes the clinicalAnnotation document.
type XMLExporter struct{}

type xmlDocument struct {
	XMLName  xml.Name    `xml:"clinicalAnnotation"`
	Metadata xmlMetadata `xml:"metadata"`
	Summary  xmlSummary  `xml:"summary"`
	Entities []xmlEntity `xml:"entities>entity"`
}

type xmlMetadata struct {
	ID             string `xml:"id,omitempty"`
	Title          string `xml:"title,omitempty"`
	ProcessedAt    string `xml:"processedAt"`
	Mode           string `xml:"mode,omitempty"`
	Model          string `xml:"model,omitempty"`
	TotalEntities  int    `xml:"totalEntities"`
	MappedEntities int    `xml:"mappedEntities"`
	MappingRate    string `xml:"mappingRate"`
	OriginalText   string `xml:"originalText"`
}

type xmlSummary struct {
	OverallCoverage float64       `xml:"overallCoverage"`
	Sets            []xmlSet      `xml:"sets>set"`
	Categories      []xmlCategory `xml:"categories>category"`
}

type xmlSet struct {
	Terminology       string  `xml:"terminology,attr"`
	Mapped            int     `xml:"mapped"`
	Unmapped          int     `xml:"unmapped"`
	MappingRate       float64 `xml:"mappingRate"`
	AverageSimilarity float64 `xml:"averageSimilarity"`
}

type xmlCategory struct {
	Name  string `xml:"name,attr"`
	Count int    `xml:",chardata"`
}

type xmlEntity struct {
	Index         int         `xml:"index,attr"`
	Text          string      `xml:"text"`
	Label         string      `xml:"label"`
	Start         int         `xml:"start"`
	End           int         `xml:"end"`
	NERConfidence float64     `xml:"nerConfidence"`
	SNOMEDMapping *xmlMapping `xml:"snomedMapping,omitempty"`
	HL7Mapping    *xmlMapping `xml:"hl7Mapping,omitempty"`
}

type xmlMapping struct {
	Code              string   `xml:"code"`
	Term              string   `xml:"term"`
	System            string   `xml:"system"`
	Synonyms          []string `xml:"synonyms>synonym,omitempty"`
	Hierarchy         []string `xml:"hierarchy>level,omitempty"`
	SystemName        string   `xml:"systemName,omitempty"`
	Version           string   `xml:"version,omitempty"`
	ResourceType      string   `xml:"resourceType,omitempty"`
	SimilarityScore   float64  `xml:"similarityScore"`
	EmbeddingDistance float64  `xml:"embeddingDistance"`
}

// Export writes r as an XML document.
func (e *XMLExporter) Export(w io.Writer, r Report) error {
	a := r.Annotation
	doc := xmlDocument{
		Metadata: xmlMetadata{
			ID:             a.ID,
			Title:          a.Title,
			ProcessedAt:    r.ProcessedAt().UTC().Format(time.RFC3339),
			Mode:           string(a.Mode),
			Model:          a.Model,
			TotalEntities:  len(a.Entities),
			MappedEntities: r.MappedEntities(),
			MappingRate:    r.MappingRate(),
			OriginalText:   a.OriginalText,
		},
		Summary: xmlSummary{OverallCoverage: r.Summary.OverallCoverage},
	}

	for _, s := range r.Summary.Sets {
		doc.Summary.Sets = append(doc.Summary.Sets, xmlSet{
			Terminology:       string(s.Terminology),
			Mapped:            s.Mapped,
			Unmapped:          s.Unmapped,
			MappingRate:       s.MappingRate,
			AverageSimilarity: s.AverageSimilarity,
		})
	}
	for _, c := range r.Summary.Categories {
		doc.Summary.Categories = append(doc.Summary.Categories, xmlCategory{Name: string(c.Category), Count: c.Count})
	}

	for _, rw := range r.rows() {
		entity := xmlEntity{
			Index:         rw.Index,
			Text:          rw.Entity.Text,
			Label:         string(rw.Entity.Label),
			Start:         rw.Entity.Start,
			End:           rw.Entity.End,
			NERConfidence: rw.Entity.Confidence,
		}
		if j := toJSONMapping(rw.SNOMED); j != nil {
			entity.SNOMEDMapping = (*xmlMapping)(j)
		}
		if j := toJSONMapping(rw.HL7); j != nil {
			entity.HL7Mapping = (*xmlMapping)(j)
		}
		doc.Entities = append(doc.Entities, entity)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
