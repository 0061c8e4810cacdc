package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Minio     MinioConfig     `yaml:"minio"`
	Extractor ExtractorConfig `yaml:"extractor"`
	LLM       LLMConfig       `yaml:"llm"`
	Tools     ToolsConfig     `yaml:"tools"`
	Agent     AgentConfig     `yaml:"agent"`
	Laws      LawsConfig      `yaml:"laws"`
	Store     StoreConfig     `yaml:"store"`
}

type ServerConfig struct {
	Port                   int `yaml:"port"`
	RateLimitPerWindow     int `yaml:"rate_limit_per_window"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type MinioConfig struct {
	Endpoint    string `yaml:"endpoint"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	Bucket      string `yaml:"bucket"`
	UseSSL      bool   `yaml:"use_ssl"`
	ExpireHours int    `yaml:"expire_hours"`
}

type ExtractorConfig struct {
	APIURL              string `yaml:"api_url"`
	APIToken            string `yaml:"api_token"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	MinTextLength       int    `yaml:"min_text_length"`
}

type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type ToolsConfig struct {
	LawLookupURL   string `yaml:"law_lookup_url"`
	ClassifierURL  string `yaml:"classifier_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AgentConfig struct {
	MaxTurns     int `yaml:"max_turns"`
	ContextChars int `yaml:"context_chars"`
}

type LawsConfig struct {
	Dir string `yaml:"dir"`
}

type StoreConfig struct {
	MaxContracts int `yaml:"max_contracts"`
}

// Load reads the YAML config file and applies defaults. Secrets can live in
// a .env file or the environment; env values override the file.
func Load(path string) (*Config, error) {
	// Missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerWindow == 0 {
		cfg.Server.RateLimitPerWindow = 100
	}
	if cfg.Server.RateLimitWindowSeconds == 0 {
		cfg.Server.RateLimitWindowSeconds = 60
	}
	if cfg.Minio.ExpireHours == 0 {
		cfg.Minio.ExpireHours = 24
	}
	if cfg.Extractor.PollIntervalSeconds == 0 {
		cfg.Extractor.PollIntervalSeconds = 2
	}
	if cfg.Extractor.TimeoutSeconds == 0 {
		cfg.Extractor.TimeoutSeconds = 120
	}
	if cfg.Extractor.MinTextLength == 0 {
		cfg.Extractor.MinTextLength = 50
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.Tools.TimeoutSeconds == 0 {
		cfg.Tools.TimeoutSeconds = 10
	}
	if cfg.Agent.MaxTurns == 0 {
		cfg.Agent.MaxTurns = 5
	}
	if cfg.Agent.ContextChars == 0 {
		cfg.Agent.ContextChars = 8000
	}
	if cfg.Laws.Dir == "" {
		cfg.Laws.Dir = "data/laws"
	}
	if cfg.Store.MaxContracts == 0 {
		cfg.Store.MaxContracts = 100
	}

	// Environment overrides for secrets
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("EXTRACTOR_API_TOKEN"); v != "" {
		cfg.Extractor.APIToken = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}

	return &cfg, nil
}
