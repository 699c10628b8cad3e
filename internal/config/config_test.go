package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, env, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config", env+".yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "local", `
http:
  port: 8080
database:
  driver: redis
  addrs: ["127.0.0.1:6379"]
`)

	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry.MaxPatterns != 500 {
		t.Errorf("registry.max_patterns default = %d, want 500", cfg.Registry.MaxPatterns)
	}
	if cfg.Predictor.MaxPollIntervalMs != 24*60*60*1000 {
		t.Errorf("predictor.max_poll_interval_ms default = %d", cfg.Predictor.MaxPollIntervalMs)
	}
	if cfg.Vector.Dimensions != 384 {
		t.Errorf("vector.dimensions default = %d, want 384", cfg.Vector.Dimensions)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "local", `
http:
  port: 8080
database:
  driver: redis
  addrs: ["127.0.0.1:6379"]
embedding:
  api_key: ${TEST_EMBED_KEY}
`)

	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_EMBED_KEY", "secret-123")

	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.APIKey != "secret-123" {
		t.Errorf("embedding.api_key = %q, want secret-123", cfg.Embedding.APIKey)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{Addrs: []string{"x"}}}
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidateRejectsMissingAddrs(t *testing.T) {
	cfg := Config{}
	cfg.HTTP.Port = 8080
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}
