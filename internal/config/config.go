package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"bioterms/internal/logging"
)

// Config holds all bioterms configuration.
type Config struct {
	// ProcessLimit bounds worker-pool concurrency across ingestion,
	// similarity, and embedding pipelines. Zero means derive from
	// runtime.NumCPU() at call sites.
	ProcessLimit int `yaml:"process_limit"`

	// AutoCompleteMinLength is the shortest query the auto-complete
	// engine will search for (default 3).
	AutoCompleteMinLength int `yaml:"auto_complete_min_length"`

	// DataDir is the root directory for downloaded vocabulary files,
	// status sidecars, the sqlite fallback databases, and log files.
	DataDir string `yaml:"data_dir"`

	DocumentStore StoreConfig `yaml:"document_store"`
	GraphStore    StoreConfig `yaml:"graph_store"`
	VectorStore   StoreConfig `yaml:"vector_store"`
	Cache         StoreConfig `yaml:"cache"`

	Embedding EmbeddingConfig `yaml:"embedding"`

	// TorchDevice holds the configured compute device name (cpu, cuda,
	// mps). No embedding or similarity backend in this module reads it.
	TorchDevice string `yaml:"torch_device"`

	// Per-vocabulary credentials for restricted ontology downloads.
	NHSTrudAPIKey   string `yaml:"-"`
	BioPortalAPIKey string `yaml:"-"`
	NIHUMLSAPIKey   string `yaml:"-"`

	VerbosePrint       bool `yaml:"verbose_print"`
	DisableProgressBar bool `yaml:"disable_progress_bar"`

	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig names a backend driver and its connection string. Driver
// selects between a primary networked backend and the embedded sqlite
// fallback; DSN is interpreted by that driver.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// EmbeddingConfig configures the embedding engine used for vector search.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama, genai
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"-"`
	GenAIModel     string `yaml:"genai_model"`
	TaskType       string `yaml:"task_type"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ProcessLimit:          0,
		AutoCompleteMinLength: 3,
		DataDir:               "data",

		DocumentStore: StoreConfig{Driver: "sqlite", DSN: "data/document.db"},
		GraphStore:    StoreConfig{Driver: "sqlite", DSN: "data/graph.db"},
		VectorStore:   StoreConfig{Driver: "sqlitevec", DSN: "data/vector.db"},
		Cache:         StoreConfig{Driver: "memory", DSN: ""},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
		},

		TorchDevice: "cpu",

		VerbosePrint:       false,
		DisableProgressBar: false,

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// (plus environment overrides) if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: data_dir=%s document_store=%s graph_store=%s vector_store=%s",
		cfg.DataDir, cfg.DocumentStore.Driver, cfg.GraphStore.Driver, cfg.VectorStore.Driver)

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides on top of
// whatever was loaded from YAML (or the defaults).
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BIOTERMS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("BIOTERMS_PROCESS_LIMIT"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			c.ProcessLimit = n
		}
	}

	if v := os.Getenv("BIOTERMS_DOCUMENT_STORE_DSN"); v != "" {
		c.DocumentStore.DSN = v
	}
	if v := os.Getenv("BIOTERMS_GRAPH_STORE_DSN"); v != "" {
		c.GraphStore.DSN = v
	}
	if v := os.Getenv("BIOTERMS_VECTOR_STORE_DSN"); v != "" {
		c.VectorStore.DSN = v
	}
	if v := os.Getenv("BIOTERMS_CACHE_DSN"); v != "" {
		c.Cache.DSN = v
	}

	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
		if c.Embedding.Provider == "" || c.Embedding.Provider == "ollama" {
			c.Embedding.Provider = "genai"
		}
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("OLLAMA_EMBEDDING_MODEL"); v != "" {
		c.Embedding.OllamaModel = v
	}

	if v := os.Getenv("NHS_TRUD_API_KEY"); v != "" {
		c.NHSTrudAPIKey = v
	}
	if v := os.Getenv("BIOPORTAL_API_KEY"); v != "" {
		c.BioPortalAPIKey = v
	}
	if v := os.Getenv("NIH_UMLS_API_KEY"); v != "" {
		c.NIHUMLSAPIKey = v
	}

	if v := os.Getenv("BIOTERMS_VERBOSE"); v == "1" || v == "true" {
		c.VerbosePrint = true
		c.Logging.DebugMode = true
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer: %s", s)
	}
	return n, nil
}

// EmbeddingTimeout is the default per-request embedding call timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return 30 * time.Second
}

// Validate checks the configuration for obvious misconfiguration before
// the application wires up store adapters.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if c.AutoCompleteMinLength < 1 {
		return fmt.Errorf("auto_complete_min_length must be >= 1")
	}

	validEmbeddingProviders := map[string]bool{"ollama": true, "genai": true}
	if !validEmbeddingProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Provider == "genai" && c.Embedding.GenAIAPIKey == "" {
		return fmt.Errorf("genai embedding provider requires GENAI_API_KEY")
	}

	return nil
}
