// Package config loads and validates the engine configuration from YAML
// files with environment variable interpolation and sensible defaults.
package config

import (
	"time"
)

// Config is the root configuration for the analysis engine.
type Config struct {
	Core        CoreConfig        `mapstructure:"core" yaml:"core"`
	Session     SessionConfig     `mapstructure:"session" yaml:"session"`
	Bus         BusConfig         `mapstructure:"bus" yaml:"bus"`
	Correlation CorrelationConfig `mapstructure:"correlation" yaml:"correlation"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Tracing     TracingConfig     `mapstructure:"tracing" yaml:"tracing"`
}

// CoreConfig holds paths to the static data files the engine loads at
// startup.
type CoreConfig struct {
	// RegistryPath points to the YAML agent registry.
	RegistryPath string `mapstructure:"registry_path" yaml:"registry_path" validate:"required"`

	// StandardsPath points to an optional YAML standards table overriding
	// the built-in SWC/CWE/OWASP mapping.
	StandardsPath string `mapstructure:"standards_path" yaml:"standards_path"`
}

// SessionConfig bounds session and agent execution.
type SessionConfig struct {
	// DefaultDeadline is applied when a request carries no deadline.
	DefaultDeadline time.Duration `mapstructure:"default_deadline" yaml:"default_deadline" validate:"min=1s"`

	// AgentTimeout is the per-agent time bound, clamped to the session
	// deadline.
	AgentTimeout time.Duration `mapstructure:"agent_timeout" yaml:"agent_timeout" validate:"min=1s"`

	// DrainGrace bounds how long teardown waits for queued findings.
	DrainGrace time.Duration `mapstructure:"drain_grace" yaml:"drain_grace" validate:"min=100ms"`
}

// BusConfig tunes the session bus.
type BusConfig struct {
	// BufferSize is the default subscriber channel buffer.
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size" validate:"min=1,max=65536"`
}

// CorrelationConfig tunes the finding correlator.
type CorrelationConfig struct {
	// AdjacencySlack is the line distance within which two findings of the
	// same class in the same file are considered the same defect.
	AdjacencySlack int `mapstructure:"adjacency_slack" yaml:"adjacency_slack" validate:"min=0,max=50"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}
