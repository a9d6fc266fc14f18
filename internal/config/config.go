package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	LLM      LLMConfig      `yaml:"llm" validate:"required"`
	Pipeline PipelineConfig `yaml:"pipeline" validate:"required"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port         string        `yaml:"port" validate:"required,numeric"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"min=1s"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"min=1s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" validate:"min=1s"`
}

type LLMConfig struct {
	APIKey            string        `yaml:"api_key" validate:"required"`
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Model             string        `yaml:"model" validate:"required"`
	MaxTokens         int           `yaml:"max_tokens" validate:"min=256,max=64000"`
	Temperature       float64       `yaml:"temperature" validate:"gte=0,lte=1"`
	Timeout           time.Duration `yaml:"timeout" validate:"min=1s"`
	MaxRetries        int           `yaml:"max_retries" validate:"min=0,max=10"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"min=1,max=1000"`
	BurstSize         int           `yaml:"burst_size" validate:"min=1,max=100"`
	CacheSize         int           `yaml:"cache_size" validate:"min=0"`
}

type PipelineConfig struct {
	SpecialistConcurrency int `yaml:"specialist_concurrency" validate:"min=1,max=16"`
	FileConcurrency       int `yaml:"file_concurrency" validate:"min=1,max=16"`
	MaxContinuations      int `yaml:"max_continuations" validate:"min=0,max=50"`
	ContinuationTailChars int `yaml:"continuation_tail_chars" validate:"min=100"`
}

type DatabaseConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" validate:"omitempty,min=16"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns a configuration with every optional field populated.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 10 * time.Minute, // level 3 runs synchronously
			IdleTimeout:  60 * time.Second,
		},
		LLM: LLMConfig{
			Model:             "claude-sonnet-4-5-20250929",
			MaxTokens:         8192,
			Temperature:       0.7,
			Timeout:           5 * time.Minute,
			MaxRetries:        3,
			RetryBaseDelay:    1 * time.Second,
			RetryMaxDelay:     30 * time.Second,
			RequestsPerMinute: 50,
			BurstSize:         5,
			CacheSize:         256,
		},
		Pipeline: PipelineConfig{
			SpecialistConcurrency: 1,
			FileConcurrency:       1,
			MaxContinuations:      5,
			ContinuationTailChars: 2000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads .env, the optional YAML file at path (or $ARCHITECT_CONFIG),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("ARCHITECT_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.LLM.BaseURL, "ANTHROPIC_BASE_URL")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.Server.Port, "PORT")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LLM_MAX_RETRIES: %w", err)
		}
		c.LLM.MaxRetries = n
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LLM_TEMPERATURE: %w", err)
		}
		c.LLM.Temperature = f
	}
	return nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// SlogLevel maps the configured level to slog.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
