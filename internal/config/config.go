package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Store struct {
		Backend string `yaml:"backend"`
		Key     string `yaml:"key"`
	} `yaml:"store"`
	File struct {
		Path string `yaml:"path"`
	} `yaml:"file"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI        string `yaml:"uri"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`
	AI struct {
		APIKey          string `yaml:"api_key"`
		BaseURL         string `yaml:"base_url"`
		GenerationModel string `yaml:"generation_model"`
		EvaluationModel string `yaml:"evaluation_model"`
		Timeout         string `yaml:"timeout"`
		MaxRetries      *int   `yaml:"max_retries"`
		QuestionCount   int    `yaml:"question_count"`
	} `yaml:"ai"`
	Exam struct {
		Duration           string `yaml:"duration"`
		Tick               string `yaml:"tick"`
		AutoSubmitOnExpiry bool   `yaml:"auto_submit_on_expiry"`
	} `yaml:"exam"`
}

// Backends accepted by store.backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Load reads YAML config from path. A missing file is not an error: defaults
// apply. A .env file in the working directory is loaded first, and
// GEMINI_API_KEY, LOG_LEVEL and STORE_BACKEND override the file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("AI_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AI.MaxRetries = &n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:" + cfg.Server.Port + "/"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendFile
	}
	if cfg.File.Path == "" {
		cfg.File.Path = "data/sessions.json"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "talent"
	}
	if cfg.AI.MaxRetries == nil {
		one := 1
		cfg.AI.MaxRetries = &one
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
