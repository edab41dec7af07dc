// Package config loads TutorFlow settings from a YAML file with environment
// overrides for secrets. The zero config is usable: a local provider, an
// in-memory store and default retry settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Engine    EngineConfig    `yaml:"engine"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ProvidersConfig configures the provider chain in fallback order.
type ProvidersConfig struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
}

// AnthropicConfig configures the primary provider. The API key comes from
// the ANTHROPIC_API_KEY environment variable, never from the file.
type AnthropicConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Model       string   `yaml:"model"`
	MaxTokens   int64    `yaml:"max_tokens"`
	Temperature float64  `yaml:"temperature"`
	Timeout     Duration `yaml:"timeout"`
	APIKey      string   `yaml:"-"`
}

// OpenAIConfig configures the fallback provider. The API key comes from the
// OPENAI_API_KEY environment variable.
type OpenAIConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Model       string   `yaml:"model"`
	MaxTokens   int64    `yaml:"max_tokens"`
	Temperature float64  `yaml:"temperature"`
	Timeout     Duration `yaml:"timeout"`
	APIKey      string   `yaml:"-"`
}

// DispatchConfig configures retry and backoff.
type DispatchConfig struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	BaseDelay      Duration `yaml:"base_delay"`
	MaxDelay       Duration `yaml:"max_delay"`
	JitterFraction float64  `yaml:"jitter_fraction"`
}

// EngineConfig configures run execution.
type EngineConfig struct {
	MaxSteps      int `yaml:"max_steps"`
	RetrieveLimit int `yaml:"retrieve_limit"`
}

// SessionConfig selects the session backend.
type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis session backend.
type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"-"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a runnable zero-dependency configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Providers: ProvidersConfig{
			Anthropic: AnthropicConfig{
				Enabled:     false,
				Model:       "claude-3-5-sonnet-20241022",
				MaxTokens:   4096,
				Temperature: 0.7,
				Timeout:     Duration(60 * time.Second),
			},
			OpenAI: OpenAIConfig{
				Enabled:     false,
				Model:       "gpt-4o-mini",
				MaxTokens:   4096,
				Temperature: 0.7,
				Timeout:     Duration(60 * time.Second),
			},
		},
		Dispatch: DispatchConfig{
			MaxAttempts:    3,
			BaseDelay:      Duration(200 * time.Millisecond),
			MaxDelay:       Duration(5 * time.Second),
			JitterFraction: 0.2,
		},
		Engine: EngineConfig{MaxSteps: 32, RetrieveLimit: 3},
		Session: SessionConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: "localhost:6379", TTL: Duration(24 * time.Hour)},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML file over the defaults, then applies environment
// secrets. A missing file is not an error: defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Providers.Anthropic.APIKey = key
		c.Providers.Anthropic.Enabled = true
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Providers.OpenAI.APIKey = key
		c.Providers.OpenAI.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		c.Session.Redis.Password = pw
	}
}

// Validate rejects configurations the runtime cannot honor.
func (c *Config) Validate() error {
	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("dispatch.max_attempts must be at least 1")
	}
	if c.Dispatch.JitterFraction < 0 || c.Dispatch.JitterFraction > 1 {
		return fmt.Errorf("dispatch.jitter_fraction must be in [0, 1]")
	}
	if c.Engine.MaxSteps < 1 {
		return fmt.Errorf("engine.max_steps must be at least 1")
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend)
	}
	return nil
}
