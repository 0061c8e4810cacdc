package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  rate_limit_per_window: 30
  rate_limit_window_seconds: 10
minio:
  endpoint: "minio:9000"
  access_key: "key"
  secret_key: "secret"
  bucket: "docs"
  expire_hours: 12
extractor:
  api_url: "https://extract.example.com"
  poll_interval_seconds: 3
  timeout_seconds: 60
  min_text_length: 80
llm:
  base_url: "https://llm.example.com/v1"
  model: "test-model"
  temperature: 0.5
  max_tokens: 2048
tools:
  law_lookup_url: "http://localhost:9090/api/tools/law_lookup"
  classifier_url: "http://localhost:9090/api/tools/classify_clauses"
agent:
  max_turns: 7
  context_chars: 4000
laws:
  dir: "testdata/laws"
store:
  max_contracts: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimitPerWindow != 30 || cfg.Server.RateLimitWindowSeconds != 10 {
		t.Errorf("Unexpected rate limit config: %+v", cfg.Server)
	}
	if cfg.Minio.ExpireHours != 12 {
		t.Errorf("Expected expire_hours 12, got %d", cfg.Minio.ExpireHours)
	}
	if cfg.Extractor.MinTextLength != 80 {
		t.Errorf("Expected min_text_length 80, got %d", cfg.Extractor.MinTextLength)
	}
	if cfg.LLM.Temperature != 0.5 {
		t.Errorf("Expected temperature 0.5, got %f", cfg.LLM.Temperature)
	}
	if cfg.Agent.MaxTurns != 7 || cfg.Agent.ContextChars != 4000 {
		t.Errorf("Unexpected agent config: %+v", cfg.Agent)
	}
	if cfg.Laws.Dir != "testdata/laws" {
		t.Errorf("Unexpected laws dir: %s", cfg.Laws.Dir)
	}
	if cfg.Store.MaxContracts != 10 {
		t.Errorf("Expected max_contracts 10, got %d", cfg.Store.MaxContracts)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
minio:
  endpoint: "localhost:9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimitPerWindow != 100 || cfg.Server.RateLimitWindowSeconds != 60 {
		t.Errorf("Unexpected rate limit defaults: %+v", cfg.Server)
	}
	if cfg.Minio.ExpireHours != 24 {
		t.Errorf("Expected default expire_hours 24, got %d", cfg.Minio.ExpireHours)
	}
	if cfg.Extractor.PollIntervalSeconds != 2 || cfg.Extractor.TimeoutSeconds != 120 {
		t.Errorf("Unexpected extractor defaults: %+v", cfg.Extractor)
	}
	if cfg.Extractor.MinTextLength != 50 {
		t.Errorf("Expected default min_text_length 50, got %d", cfg.Extractor.MinTextLength)
	}
	if cfg.LLM.Temperature != 0.1 || cfg.LLM.TimeoutSeconds != 120 {
		t.Errorf("Unexpected LLM defaults: %+v", cfg.LLM)
	}
	if cfg.Tools.TimeoutSeconds != 10 {
		t.Errorf("Expected default tools timeout 10, got %d", cfg.Tools.TimeoutSeconds)
	}
	if cfg.Agent.MaxTurns != 5 || cfg.Agent.ContextChars != 8000 {
		t.Errorf("Unexpected agent defaults: %+v", cfg.Agent)
	}
	if cfg.Laws.Dir != "data/laws" {
		t.Errorf("Expected default laws dir, got %s", cfg.Laws.Dir)
	}
	if cfg.Store.MaxContracts != 100 {
		t.Errorf("Expected default max_contracts 100, got %d", cfg.Store.MaxContracts)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: "file-key"
extractor:
  api_token: "file-token"
`)

	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("EXTRACTOR_API_TOKEN", "env-token")
	t.Setenv("MINIO_ACCESS_KEY", "env-access")
	t.Setenv("MINIO_SECRET_KEY", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("Expected env override for LLM key, got %s", cfg.LLM.APIKey)
	}
	if cfg.Extractor.APIToken != "env-token" {
		t.Errorf("Expected env override for extractor token, got %s", cfg.Extractor.APIToken)
	}
	if cfg.Minio.AccessKey != "env-access" || cfg.Minio.SecretKey != "env-secret" {
		t.Errorf("Expected env overrides for minio credentials")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}
