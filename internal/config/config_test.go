package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fboiero/MIESC-sub012/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, NewValidator().Validate(cfg))

	assert.Equal(t, 10*time.Minute, cfg.Session.DefaultDeadline)
	assert.Equal(t, 2*time.Minute, cfg.Session.AgentTimeout)
	assert.Equal(t, 64, cfg.Bus.BufferSize)
	assert.Equal(t, 2, cfg.Correlation.AdjacencySlack)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
core:
  registry_path: /etc/miesc/agents.yaml
  standards_path: /etc/miesc/standards.yaml
session:
  default_deadline: 5m
  agent_timeout: 90s
  drain_grace: 3s
bus:
  buffer_size: 128
correlation:
  adjacency_slack: 4
logging:
  level: debug
  format: text
tracing:
  enabled: true
  endpoint: http://localhost:4318
`)

	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/etc/miesc/agents.yaml", cfg.Core.RegistryPath)
	assert.Equal(t, 5*time.Minute, cfg.Session.DefaultDeadline)
	assert.Equal(t, 90*time.Second, cfg.Session.AgentTimeout)
	assert.Equal(t, 128, cfg.Bus.BufferSize)
	assert.Equal(t, 4, cfg.Correlation.AdjacencySlack)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:4318", cfg.Tracing.Endpoint)
}

func TestLoadPartialConfigInheritsDefaults(t *testing.T) {
	path := writeConfig(t, `
core:
  registry_path: /etc/miesc/agents.yaml
logging:
  level: warn
`)

	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2*time.Minute, cfg.Session.AgentTimeout)
	assert.Equal(t, 64, cfg.Bus.BufferSize)
}

func TestLoadInterpolatesEnvVars(t *testing.T) {
	t.Setenv("MIESC_TEST_REGISTRY", "/opt/agents.yaml")

	path := writeConfig(t, `
core:
  registry_path: ${MIESC_TEST_REGISTRY}
`)

	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/agents.yaml", cfg.Core.RegistryPath)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := NewLoader(NewValidator()).Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.NewError(types.CONFIG_LOAD_FAILED, ""))
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := NewLoader(NewValidator()).LoadWithDefaults("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Session, cfg.Session)
}

func TestValidationRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero buffer", func(c *Config) { c.Bus.BufferSize = 0 }},
		{"negative slack", func(c *Config) { c.Correlation.AdjacencySlack = -1 }},
		{"timeout above deadline", func(c *Config) { c.Session.AgentTimeout = time.Hour }},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true }},
		{"missing registry path", func(c *Config) { c.Core.RegistryPath = "" }},
	}

	v := NewValidator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := v.Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.NewError(types.CONFIG_VALIDATION_FAILED, ""))
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	err := NewValidator().Validate(nil)
	require.Error(t, err)
}
