package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines attributor configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Fallback FallbackConfig `yaml:"fallback"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
}

// LLMConfig is the primary, self-hosted OpenAI-compatible endpoint.
type LLMConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Enabled    bool          `yaml:"enabled"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Timeout    time.Duration `yaml:"timeout"`
	// APIKey is only needed when the runtime sits behind auth.
	APIKey     string        `yaml:"-"`
}

// FallbackConfig is the hosted fallback model.
type FallbackConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`
}

type PipelineConfig struct {
	Timezone          string        `yaml:"timezone"`
	BackfillDays      int           `yaml:"backfill_days"`
	DeveloperInterval time.Duration `yaml:"developer_interval"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "qwen3:14b",
			Enabled:    true,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
			Timeout:    180 * time.Second,
		},
		Fallback: FallbackConfig{
			Model:   "claude-3-5-haiku-latest",
			BaseURL: "https://api.anthropic.com",
		},
		Pipeline: PipelineConfig{
			Timezone:          "UTC",
			BackfillDays:      7,
			DeveloperInterval: 2 * time.Second,
		},
		DB: DBConfig{
			Path: "captime.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the YAML file named by CAPTIME_CONFIG_PATH,
// if any, and environment variables.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("CAPTIME_CONFIG_PATH"))
}

// LoadFrom is Load with an explicit file path. An empty path skips the file.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("CAPTIME_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("CAPTIME_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CAPTIME_LLM_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CAPTIME_LLM_ENABLED: %w", err)
		}
		cfg.LLM.Enabled = enabled
	}
	if v := os.Getenv("CAPTIME_LLM_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CAPTIME_LLM_MAX_RETRIES: %w", err)
		}
		cfg.LLM.MaxRetries = n
	}
	if v := os.Getenv("CAPTIME_LLM_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CAPTIME_LLM_RETRY_DELAY: %w", err)
		}
		cfg.LLM.RetryDelay = d
	}
	if v := os.Getenv("CAPTIME_LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CAPTIME_LLM_TIMEOUT: %w", err)
		}
		cfg.LLM.Timeout = d
	}
	if v := os.Getenv("CAPTIME_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CAPTIME_FALLBACK_MODEL"); v != "" {
		cfg.Fallback.Model = v
	}
	if v := os.Getenv("CAPTIME_FALLBACK_BASE_URL"); v != "" {
		cfg.Fallback.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Fallback.APIKey = v
	}
	if v := os.Getenv("CAPTIME_TIMEZONE"); v != "" {
		cfg.Pipeline.Timezone = v
	}
	if v := os.Getenv("CAPTIME_BACKFILL_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CAPTIME_BACKFILL_DAYS: %w", err)
		}
		cfg.Pipeline.BackfillDays = n
	}
	if v := os.Getenv("CAPTIME_DEVELOPER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CAPTIME_DEVELOPER_INTERVAL: %w", err)
		}
		cfg.Pipeline.DeveloperInterval = d
	}
	if v := os.Getenv("CAPTIME_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("CAPTIME_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CAPTIME_LOG_PATH"); v != "" {
		cfg.Log.Path = v
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Pipeline.Timezone, err))
	}
	if c.Fallback.Model == "" {
		errs = append(errs, errors.New("fallback model is required"))
	}
	if c.LLM.Enabled && (c.LLM.BaseURL == "" || c.LLM.Model == "") {
		errs = append(errs, errors.New("primary model base URL and model are required when enabled"))
	}
	if c.LLM.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("max retries must be positive, got %d", c.LLM.MaxRetries))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.LLM.Timeout))
	}
	if c.LLM.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative, got %s", c.LLM.RetryDelay))
	}
	if c.Pipeline.BackfillDays < 0 {
		errs = append(errs, fmt.Errorf("backfill days must not be negative, got %d", c.Pipeline.BackfillDays))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the pipeline's time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Pipeline.Timezone)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
