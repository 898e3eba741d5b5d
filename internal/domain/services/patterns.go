package services

import "github.com/ersonp/clinote/internal/domain/entities"

// PatternSet is an ordered list of case-insensitive regular expressions for
// one category. Patterns must not use \b: word boundaries are checked by the
// extractor with Unicode letters in mind.
type PatternSet struct {
	Category entities.Category
	Patterns []string
}

// DefaultPatterns is the built-in Portuguese clinical pattern set, in
// category declaration order.
var DefaultPatterns = []PatternSet{
	{
		Category: entities.CategorySymptom,
		Patterns: []string{
			`dor|dispneia|sudorese|taquicardia|bradicardia|náusea|vômito|febre|cefaleia|tontura|fadiga|fraqueza|mal-estar|cansaço`,
			`dor\s+(?:torácica|abdominal|cervical|lombar|muscular|articular|de\s+cabeça)(?:\s+(?:aguda|crônica))?`,
			`estertores?\s+(?:pulmonares?|crepitantes?)`,
			`chiado|sibilos?|roncos?`,
			`edema|inchaço`,
			`palpitações?|palpitação|batimentos?\s+cardíacos?\s+irregulares?`,
			`tosse(?:\s+(?:seca|produtiva))?`,
			`sangramento|hemorragia`,
		},
	},
	{
		Category: entities.CategoryDisease,
		Patterns: []string{
			`diabetes\s+mellitus(?:\s+tipo\s+[12])?`,
			`hipertensão\s+arterial(?:\s+sistêmica)?`,
			`infarto(?:\s+agudo)?\s+do\s+miocárdio`,
			`insuficiência\s+(?:cardíaca|renal|hepática)`,
			`pneumonia|bronquite|asma`,
			`acidente\s+vascular\s+cerebral|AVC`,
			`depressão|ansiedade|transtorno\s+bipolar`,
			`artrite|artrose|osteoporose`,
			`câncer|tumor|neoplasia`,
			`covid-19|coronavirus|sars-cov-2`,
		},
	},
	{
		Category: entities.CategoryMedication,
		Patterns: []string{
			`aspirina|ácido\s+acetilsalicílico`,
			`paracetamol|acetaminofeno`,
			`ibuprofeno|diclofenaco|nimesulida`,
			`atenolol|propranolol|metoprolol`,
			`losartana?|enalapril|captopril`,
			`metformina|glibenclamida|insulina`,
			`omeprazol|ranitidina|pantoprazol`,
			`dipirona|metamizol`,
			`amoxicilina|azitromicina|ciprofloxacino`,
			`sinvastatina|atorvastatina`,
		},
	},
	{
		Category: entities.CategoryProcedure,
		Patterns: []string{
			`eletrocardiograma|ECG`,
			`ecocardiograma|eco`,
			`radiografia|raio-x|RX`,
			`tomografia(?:\s+computadorizada)?|TC`,
			`ressonância\s+magnética|RM`,
			`ultrassonografia|ultrassom|USG`,
			`endoscopia|colonoscopia`,
			`cirurgia|operação|intervenção\s+cirúrgica`,
			`cateterismo\s+cardíaco`,
			`biópsia|punção`,
		},
	},
	{
		Category: entities.CategoryAnatomy,
		Patterns: []string{
			`coração|cardíaco|miocárdio`,
			`pulmão|pulmonar|brônquios?|alvéolos?`,
			`fígado|hepático|hepato`,
			`rim|renal|néfrico`,
			`cérebro|cerebral|neurológico`,
			`estômago|gástrico|gastro`,
			`intestino|intestinal|cólon`,
			`artéria|veia|vascular`,
			`osso|ósseo|esquelético`,
			`músculo|muscular|tendão`,
		},
	},
}
