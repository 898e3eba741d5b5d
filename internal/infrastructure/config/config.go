// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for clinote configuration.
	DefaultConfigDir = ".clinote"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the default annotation store file name.
	DefaultDatabaseFile = "clinote.db"
	// DefaultFHIRServer is the public terminology server queried for SNOMED CT.
	DefaultFHIRServer = "https://r4.ontoserver.csiro.au/fhir"
)

// SNOMED search sources.
const (
	SourceFHIR  = "fhir"  // FHIR ValueSet/$expand servers
	SourceIndex = "index" // semantic concept index (embedder + Qdrant)
	SourceLocal = "local" // built-in or configured local table only
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Log         LogConfig         `yaml:"log,omitempty"`
	NER         NERConfig         `yaml:"ner,omitempty"`
	Embedder    EmbedderConfig    `yaml:"embedder,omitempty"`
	Qdrant      QdrantConfig      `yaml:"qdrant,omitempty"`
	SQLite      SQLiteConfig      `yaml:"sqlite,omitempty"`
	Terminology TerminologyConfig `yaml:"terminology,omitempty"`
	Mapping     MappingConfig     `yaml:"mapping,omitempty"`
	Cache       CacheConfig       `yaml:"cache,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // json or console
}

// NERConfig holds configuration for the NER model collaborator.
type NERConfig struct {
	Provider        string            `yaml:"provider,omitempty"`
	Model           string            `yaml:"model,omitempty"`
	Alternatives    []string          `yaml:"alternatives,omitempty"` // tried in order when model is unavailable
	APIKey          string            `yaml:"api_key,omitempty"`
	BaseURL         string            `yaml:"base_url,omitempty"` // OpenAI-compatible endpoint
	ConfidenceFloor float64           `yaml:"confidence_floor,omitempty"`
	AllowFallback   bool              `yaml:"allow_fallback,omitempty"`
	Tags            map[string]string `yaml:"tags,omitempty"` // extra tag → category entries
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant vector database.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite annotation store.
type SQLiteConfig struct {
	// Path is the database file. Relative paths resolve against the
	// directory holding .clinote. Empty selects .clinote/clinote.db.
	Path string `yaml:"path,omitempty"`
}

// TerminologyConfig selects and tunes the terminology sources.
type TerminologyConfig struct {
	SNOMED SNOMEDConfig `yaml:"snomed,omitempty"`
	HL7    HL7Config    `yaml:"hl7,omitempty"`
}

// SNOMEDConfig configures SNOMED CT search.
type SNOMEDConfig struct {
	Source            string   `yaml:"source,omitempty"`
	Servers           []string `yaml:"servers,omitempty"`
	TimeoutSeconds    int      `yaml:"timeout_seconds,omitempty"`
	RequestsPerSecond float64  `yaml:"requests_per_second,omitempty"`
	// Fallback enables the built-in table when the search source fails.
	Fallback *bool `yaml:"fallback,omitempty"`
	// Table replaces the local table used by the "local" source.
	Table string `yaml:"table,omitempty"`
}

// FallbackEnabled reports whether the fallback table is consulted.
func (c SNOMEDConfig) FallbackEnabled() bool {
	return c.Fallback == nil || *c.Fallback
}

// HL7Config configures the HL7 FHIR coding table.
type HL7Config struct {
	// Table is a JSON or CSV concept table replacing the built-in one.
	Table string `yaml:"table,omitempty"`
}

// MappingConfig holds the similarity thresholds.
type MappingConfig struct {
	SNOMEDThreshold float64 `yaml:"snomed_threshold,omitempty"`
	HL7Threshold    float64 `yaml:"hl7_threshold,omitempty"`
	ThresholdFloor  float64 `yaml:"threshold_floor,omitempty"`
	MaxResults      int     `yaml:"max_results,omitempty"`
}

// CacheConfig selects the candidate cache.
type CacheConfig struct {
	Backend    string      `yaml:"backend,omitempty"`
	TTLSeconds int         `yaml:"ttl_seconds,omitempty"`
	Redis      RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig holds connection settings for the Redis cache.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		NER: NERConfig{
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			ConfidenceFloor: 0.7,
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "clinote_concepts",
		},
		Terminology: TerminologyConfig{
			SNOMED: SNOMEDConfig{
				Source:            SourceFHIR,
				Servers:           []string{DefaultFHIRServer},
				TimeoutSeconds:    10,
				RequestsPerSecond: 5,
			},
		},
		Mapping: MappingConfig{
			SNOMEDThreshold: 0.7,
			HL7Threshold:    0.8,
			ThresholdFloor:  0.5,
			MaxResults:      5,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			TTLSeconds: 3600,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "clinote:candidates:",
			},
		},
	}
}

// Load loads configuration from the .clinote directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'clinote init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes config YAML over the defaults, applies environment
// overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.NER.APIKey == "" {
			c.NER.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Qdrant.APIKey == "" {
			c.Qdrant.APIKey = key
		}
	}
	if pw := os.Getenv("CLINOTE_REDIS_PASSWORD"); pw != "" {
		if c.Cache.Redis.Password == "" {
			c.Cache.Redis.Password = pw
		}
	}
	if level := os.Getenv("CLINOTE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	m := c.Mapping
	if outside(m.ThresholdFloor, 0, 1) {
		errs = append(errs, fmt.Errorf("mapping.threshold_floor %s outside [0, 1]", formatFloat(m.ThresholdFloor)))
	}
	if outside(m.SNOMEDThreshold, m.ThresholdFloor, 1) {
		errs = append(errs, fmt.Errorf("mapping.snomed_threshold %s outside [%s, 1]", formatFloat(m.SNOMEDThreshold), formatFloat(m.ThresholdFloor)))
	}
	if outside(m.HL7Threshold, m.ThresholdFloor, 1) {
		errs = append(errs, fmt.Errorf("mapping.hl7_threshold %s outside [%s, 1]", formatFloat(m.HL7Threshold), formatFloat(m.ThresholdFloor)))
	}
	if m.MaxResults < 1 {
		errs = append(errs, errors.New("mapping.max_results must be at least 1"))
	}

	if math.IsNaN(c.NER.ConfidenceFloor) || c.NER.ConfidenceFloor < 0 || c.NER.ConfidenceFloor >= 1 {
		errs = append(errs, fmt.Errorf("ner.confidence_floor %s outside [0, 1)", formatFloat(c.NER.ConfidenceFloor)))
	}

	s := c.Terminology.SNOMED
	switch s.Source {
	case SourceFHIR:
		if len(s.Servers) == 0 {
			errs = append(errs, errors.New("terminology.snomed.servers is empty"))
		}
	case SourceIndex, SourceLocal:
	default:
		errs = append(errs, fmt.Errorf("terminology.snomed.source %q is not one of fhir, index, local", s.Source))
	}
	if s.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("terminology.snomed.requests_per_second must not be negative"))
	}

	switch c.Cache.Backend {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of none, memory, redis", c.Cache.Backend))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, console", c.Log.Format))
	}

	return errors.Join(errs...)
}

// outside reports whether v is NaN or not in [lo, hi].
func outside(v, lo, hi float64) bool {
	return math.IsNaN(v) || v < lo || v > hi
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ConfigDir returns the path to the .clinote config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// SQLitePath returns the annotation store path for the given base path.
func (c *Config) SQLitePath(basePath string) string {
	if c.SQLite.Path == "" {
		return filepath.Join(basePath, DefaultConfigDir, DefaultDatabaseFile)
	}
	if filepath.IsAbs(c.SQLite.Path) {
		return c.SQLite.Path
	}
	return filepath.Join(basePath, c.SQLite.Path)
}

// ResolvePath resolves a path from the config file against basePath.
func ResolvePath(basePath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, p)
}
