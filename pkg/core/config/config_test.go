package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ORION_DATA_DIR", "NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD", "OLLAMA_URL", "OLLAMA_MODEL", "SEC_USER_AGENT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DataDir != DefaultDataDir {
		t.Errorf("Expected data dir %q, got %q", DefaultDataDir, cfg.DataDir)
	}
	if cfg.Neo4jURI != DefaultNeo4jURI {
		t.Errorf("Expected Neo4j URI %q, got %q", DefaultNeo4jURI, cfg.Neo4jURI)
	}
	if cfg.OllamaModel != DefaultModel {
		t.Errorf("Expected model %q, got %q", DefaultModel, cfg.OllamaModel)
	}
	if cfg.MaxWorkers != DefaultMaxWorkers {
		t.Errorf("Expected max workers %d, got %d", DefaultMaxWorkers, cfg.MaxWorkers)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ORION_DATA_DIR", "/var/orion")
	t.Setenv("NEO4J_URI", "neo4j://db.internal:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DataDir != "/var/orion" {
		t.Errorf("Expected env data dir, got %q", cfg.DataDir)
	}
	if cfg.Neo4jURI != "neo4j://db.internal:7687" {
		t.Errorf("Expected env Neo4j URI, got %q", cfg.Neo4jURI)
	}
	if cfg.Neo4jPassword != "secret" {
		t.Errorf("Expected env password, got %q", cfg.Neo4jPassword)
	}
}

func TestApplyYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "data_dir: /mnt/filings\nollama_model: mistral\nmax_workers: 12\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config.yaml: %v", err)
	}

	cfg := &Config{DataDir: DefaultDataDir, OllamaModel: DefaultModel, MaxWorkers: DefaultMaxWorkers}
	if err := cfg.applyYAML(path); err != nil {
		t.Fatalf("applyYAML failed: %v", err)
	}

	if cfg.DataDir != "/mnt/filings" {
		t.Errorf("Expected yaml data dir, got %q", cfg.DataDir)
	}
	if cfg.OllamaModel != "mistral" {
		t.Errorf("Expected yaml model, got %q", cfg.OllamaModel)
	}
	if cfg.MaxWorkers != 12 {
		t.Errorf("Expected yaml max workers 12, got %d", cfg.MaxWorkers)
	}
}

func TestApplyYAMLMissingFileIsFine(t *testing.T) {
	cfg := &Config{}
	if err := cfg.applyYAML(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("missing yaml should not error, got %v", err)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /from/yaml\n"), 0644); err != nil {
		t.Fatalf("writing config.yaml: %v", err)
	}
	t.Setenv("ORION_DATA_DIR", "/from/env")

	cfg := &Config{DataDir: DefaultDataDir}
	if err := cfg.applyYAML(path); err != nil {
		t.Fatalf("applyYAML failed: %v", err)
	}
	cfg.applyEnv()

	if cfg.DataDir != "/from/env" {
		t.Errorf("Expected env to win over yaml, got %q", cfg.DataDir)
	}
}

func TestDirHelpers(t *testing.T) {
	cfg := &Config{DataDir: "/data"}

	cases := []struct {
		got, want string
	}{
		{cfg.EdgarFilingsDir(), filepath.Join("/data", "edgar_filings")},
		{cfg.FilingsDir(), filepath.Join("/data", "filings")},
		{cfg.MetadataDir(), filepath.Join("/data", "metadata")},
		{cfg.QueueDir(), filepath.Join("/data", "queue")},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("Expected %q, got %q", c.want, c.got)
		}
	}
}

func TestEnsureDataDirs(t *testing.T) {
	cfg := &Config{DataDir: filepath.Join(t.TempDir(), "orion")}
	if err := cfg.EnsureDataDirs(); err != nil {
		t.Fatalf("EnsureDataDirs failed: %v", err)
	}
	for _, dir := range []string{cfg.EdgarFilingsDir(), cfg.FilingsDir(), cfg.MetadataDir(), cfg.QueueDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s to exist", dir)
		}
	}
}
