package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("AI_MAX_RETRIES", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.BaseURL != "http://localhost:8080/" {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Store.Backend != BackendFile || cfg.File.Path == "" {
		t.Fatalf("unexpected store defaults %+v %+v", cfg.Store, cfg.File)
	}
	if cfg.AI.MaxRetries == nil || *cfg.AI.MaxRetries != 1 {
		t.Fatalf("expected one retry by default")
	}
}

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
store:
  backend: memory
ai:
  api_key: from-file
  max_retries: 0
exam:
  duration: 30m
  auto_submit_on_expiry: true
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("AI_MAX_RETRIES", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AI.APIKey != "from-env" {
		t.Fatalf("expected env api key, got %q", cfg.AI.APIKey)
	}
	if cfg.Store.Backend != BackendRedis {
		t.Fatalf("expected env backend, got %q", cfg.Store.Backend)
	}
	if cfg.Server.BaseURL != "http://localhost:9090/" {
		t.Fatalf("unexpected base url %q", cfg.Server.BaseURL)
	}
	if *cfg.AI.MaxRetries != 0 {
		t.Fatalf("explicit zero retries must be kept, got %d", *cfg.AI.MaxRetries)
	}
	if TTLDuration(cfg.Exam.Duration, time.Hour) != 30*time.Minute || !cfg.Exam.AutoSubmitOnExpiry {
		t.Fatalf("unexpected exam config %+v", cfg.Exam)
	}
}

func TestTTLDuration(t *testing.T) {
	if TTLDuration("", time.Second) != time.Second {
		t.Fatalf("expected fallback for empty")
	}
	if TTLDuration("bogus", time.Second) != time.Second {
		t.Fatalf("expected fallback for invalid")
	}
	if TTLDuration("90s", time.Second) != 90*time.Second {
		t.Fatalf("expected parsed duration")
	}
}
