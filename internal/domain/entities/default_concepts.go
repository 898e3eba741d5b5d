package entities

// TableEntry is one row of a local terminology table.
type TableEntry struct {
	Term    string  `json:"term"`
	Concept Concept `json:"concept"`
	Score   float64 `json:"score"` // base score; 0 means 1.0
}

// FallbackScore is the fixed score of a SNOMED fallback hit.
const FallbackScore = 0.9

// DefaultSNOMEDFallback is consulted when the SNOMED search service is
// unreachable. Only exact normalized keys match.
var DefaultSNOMEDFallback = []TableEntry{
	{Term: "dor", Score: FallbackScore, Concept: snomed("22253000", "Dor")},
	{Term: "febre", Score: FallbackScore, Concept: snomed("386661006", "Febre")},
	{Term: "tosse", Score: FallbackScore, Concept: snomed("49727002", "Tosse")},
	{Term: "dispneia", Score: FallbackScore, Concept: snomed("267036007", "Dispneia")},
	{Term: "hipertensão", Score: FallbackScore, Concept: snomed("38341003", "Hipertensão arterial")},
	{Term: "diabetes", Score: FallbackScore, Concept: snomed("73211009", "Diabetes mellitus")},
}

// DefaultHL7Table is the built-in HL7 FHIR coding table.
var DefaultHL7Table = []TableEntry{
	{Term: "dor torácica aguda", Score: 0.94, Concept: hl7SNOMED("29857009", "Chest pain", "Observation")},
	{Term: "dispneia", Score: 0.96, Concept: hl7SNOMED("267036007", "Dyspnea", "Observation")},
	{Term: "sudorese", Score: 0.93, Concept: hl7SNOMED("415690000", "Sweating", "Observation")},
	{Term: "hipertensão arterial sistêmica", Score: 0.97, Concept: hl7ICD10("I10", "Essential (primary) hypertension")},
	{Term: "diabetes mellitus tipo 2", Score: 0.99, Concept: hl7ICD10("E11", "Type 2 diabetes mellitus")},
	{Term: "taquicardia", Score: 0.95, Concept: hl7SNOMED("3424008", "Tachycardia", "Observation")},
	{Term: "estertores pulmonares", Score: 0.91, Concept: hl7SNOMED("48409008", "Respiratory adventitious sound", "Observation")},
	{Term: "infarto agudo do miocárdio", Score: 0.98, Concept: hl7ICD10("I21", "Acute myocardial infarction")},
}

const fhirVersion = "4.0.1"

func snomed(code, display string) Concept {
	return Concept{Code: code, Display: display, System: SystemSNOMED, Synonyms: []string{display}}
}

func hl7SNOMED(code, display, resourceType string) Concept {
	return Concept{
		Code:         code,
		Display:      display,
		System:       SystemSNOMED,
		SystemName:   "SNOMED CT",
		Version:      fhirVersion,
		ResourceType: resourceType,
	}
}

func hl7ICD10(code, display string) Concept {
	return Concept{
		Code:         code,
		Display:      display,
		System:       SystemICD10,
		SystemName:   "ICD-10",
		Version:      fhirVersion,
		ResourceType: "Condition",
	}
}
