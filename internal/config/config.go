// Package config provides YAML configuration with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for
// zero-downtime updates.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tidemill/llmgate/internal/cache"
	"github.com/tidemill/llmgate/internal/egress"
	"github.com/tidemill/llmgate/internal/observability"
	"github.com/tidemill/llmgate/internal/policy"
	"github.com/tidemill/llmgate/internal/provider/openailike"
	"github.com/tidemill/llmgate/internal/router"
)

// Config is the complete gateway configuration.
type Config struct {
	Logging   LoggingConfig       `yaml:"logging"`
	Cache     cache.Config        `yaml:"cache"`
	Policy    policy.StoreConfig  `yaml:"policy"`
	Providers []openailike.Config `yaml:"providers"`
	Egress    EgressConfig        `yaml:"egress"`
	Router    router.Config       `yaml:"router"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// EgressConfig configures the guard pipeline.
type EgressConfig struct {
	AllowedProviders []string               `yaml:"allowed_providers"`
	RateLimit        egress.RateLimitConfig `yaml:"rate_limit"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache:  cache.DefaultConfig(),
		Policy: policy.StoreConfig{Backend: "memory"},
		Router: router.Config{
			BaseEgressMode: policy.ModeEnforce,
		},
	}
}

// LoadFromFile reads and parses a YAML configuration file. Environment
// variables in the format ${VAR_NAME} are expanded before parsing.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}

	switch c.Cache.Type {
	case "", cache.BackendRedis, cache.BackendMemory, cache.BackendPassthrough:
	default:
		return fmt.Errorf("invalid cache type: %q", c.Cache.Type)
	}

	switch c.Policy.Backend {
	case "", "memory", "postgres":
	default:
		return fmt.Errorf("invalid policy backend: %q", c.Policy.Backend)
	}
	if c.Policy.Backend == "postgres" {
		if c.Policy.Postgres.Host == "" || c.Policy.Postgres.Database == "" {
			return fmt.Errorf("policy backend postgres requires host and database")
		}
	}

	names := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider[%d]: name is required", i)
		}
		if p.BaseURL == "" {
			return fmt.Errorf("provider[%d] %q: base_url is required", i, p.Name)
		}
		if names[p.Name] {
			return fmt.Errorf("provider %q configured twice", p.Name)
		}
		names[p.Name] = true
	}

	if c.Router.DefaultProvider != "" && len(c.Providers) > 0 && !names[c.Router.DefaultProvider] {
		return fmt.Errorf("default provider %q is not configured", c.Router.DefaultProvider)
	}
	if c.Router.BaseEgressMode != "" && !c.Router.BaseEgressMode.Valid() {
		return fmt.Errorf("invalid base egress mode: %q", c.Router.BaseEgressMode)
	}

	return nil
}

// LoggerConfig maps the logging section to logger options.
func (c *Config) LoggerConfig() observability.LoggerConfig {
	var level slog.Level
	switch c.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return observability.LoggerConfig{
		Level:      level,
		JSONFormat: c.Logging.Format != "text",
	}
}
