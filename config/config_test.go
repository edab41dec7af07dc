package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 3, cfg.Dispatch.MaxAttempts)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
dispatch:
  max_attempts: 5
  base_delay: 100ms
session:
  backend: redis
  redis:
    addr: "redis:6379"
    ttl: 1h
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Dispatch.BaseDelay.Std())
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, time.Hour, cfg.Session.Redis.TTL.Std())
	// Untouched sections keep their defaults.
	assert.Equal(t, 32, cfg.Engine.MaxSteps)
}

func TestLoadAppliesEnvKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-oai-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Providers.Anthropic.Enabled)
	assert.Equal(t, "sk-ant-test", cfg.Providers.Anthropic.APIKey)
	assert.True(t, cfg.Providers.OpenAI.Enabled)
	assert.Equal(t, "sk-oai-test", cfg.Providers.OpenAI.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Dispatch.MaxAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Dispatch.JitterFraction = 2
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Session.Backend = "dynamo"
	assert.Error(t, cfg.Validate())
}
