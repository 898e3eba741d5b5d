package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# clinote configuration

log:
  level: info
  format: console   # json for machine-readable logs

ner:
  provider: openai
  model: gpt-4o-mini
  confidence_floor: 0.7
  allow_fallback: false
  # api_key: your-api-key (or set OPENAI_API_KEY env var)
  # tags:
  #   B-DOENCA: DISEASE

embedder:
  provider: openai
  model: text-embedding-3-small
  # api_key: your-api-key (or set OPENAI_API_KEY env var)

qdrant:
  host: localhost
  port: 6334
  collection: clinote_concepts
  # api_key: your-api-key (for Qdrant Cloud)

# sqlite:
#   path: .clinote/clinote.db

terminology:
  snomed:
    source: fhir        # fhir, index or local
    servers:
      - https://r4.ontoserver.csiro.au/fhir
    timeout_seconds: 10
    requests_per_second: 5
    fallback: true
    # table: snomed.csv
  # hl7:
  #   table: hl7.json

mapping:
  snomed_threshold: 0.7
  hl7_threshold: 0.8
  threshold_floor: 0.5
  max_results: 5

cache:
  backend: memory     # none, memory or redis
  ttl_seconds: 3600
  redis:
    addr: localhost:6379
    prefix: "clinote:candidates:"
    # password: (or set CLINOTE_REDIS_PASSWORD env var)
`

// WriteDefault creates the .clinote directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := filepath.Join(configDir, DefaultConfigFile)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	configDir := ConfigDir(basePath)
	configFile := filepath.Join(configDir, DefaultConfigFile)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Exists checks if a clinote config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
