// Package config resolves the runtime configuration for the Orion pipeline.
//
// Precedence: command-line flags (applied by the caller) > environment
// variables > optional config.yaml overlay > built-in defaults. The Config
// value is constructed once in main and passed explicitly to every component.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"
)

// Defaults used when neither the environment nor config.yaml provide a value.
const (
	DefaultDataDir    = "./data"
	DefaultNeo4jURI   = "bolt://localhost:7687"
	DefaultNeo4jUser  = "neo4j"
	DefaultNeo4jPass  = "orion123"
	DefaultOllamaURL  = "http://localhost:11434"
	DefaultModel      = "llama3.2"
	DefaultUserAgent  = "Orion Research sambitsrcm@gmail.com"
	DefaultMaxWorkers = 5
)

// Config carries every externally tunable setting.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`

	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	OracleDSN string `yaml:"oracle_dsn"`

	UserAgent  string `yaml:"user_agent"`
	MaxWorkers int    `yaml:"max_workers"`
}

// Load builds a Config from defaults, an optional config.yaml sitting next to
// the working directory, and the environment (highest precedence).
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:       DefaultDataDir,
		Neo4jURI:      DefaultNeo4jURI,
		Neo4jUser:     DefaultNeo4jUser,
		Neo4jPassword: DefaultNeo4jPass,
		OllamaURL:     DefaultOllamaURL,
		OllamaModel:   DefaultModel,
		UserAgent:     DefaultUserAgent,
		MaxWorkers:    DefaultMaxWorkers,
	}

	if err := cfg.applyYAML("config.yaml"); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

// applyYAML overlays values from a YAML file when it exists. A missing file
// is not an error; a malformed one is.
func (c *Config) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setIfPresent := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setIfPresent("ORION_DATA_DIR", &c.DataDir)
	setIfPresent("NEO4J_URI", &c.Neo4jURI)
	setIfPresent("NEO4J_USER", &c.Neo4jUser)
	setIfPresent("NEO4J_PASSWORD", &c.Neo4jPassword)
	setIfPresent("OLLAMA_URL", &c.OllamaURL)
	setIfPresent("OLLAMA_MODEL", &c.OllamaModel)
	setIfPresent("ORACLE_DSN", &c.OracleDSN)
	setIfPresent("SEC_USER_AGENT", &c.UserAgent)
}

// EdgarFilingsDir is the nested per-company download layout.
func (c *Config) EdgarFilingsDir() string {
	return filepath.Join(c.DataDir, "edgar_filings")
}

// FilingsDir is the flat per-year corpus consumed by the graph loader.
func (c *Config) FilingsDir() string {
	return filepath.Join(c.DataDir, "filings")
}

// MetadataDir holds the quarterly index caches and analysis reports.
func (c *Config) MetadataDir() string {
	return filepath.Join(c.DataDir, "metadata")
}

// QueueDir is the root of the four queue state directories.
func (c *Config) QueueDir() string {
	return filepath.Join(c.DataDir, "queue")
}

// EnsureDataDirs creates the on-disk layout.
func (c *Config) EnsureDataDirs() error {
	for _, dir := range []string{
		c.EdgarFilingsDir(),
		c.FilingsDir(),
		c.MetadataDir(),
		c.QueueDir(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	return nil
}
