package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := getDefaultHomeDir()

	return &Config{
		Core: CoreConfig{
			RegistryPath:  filepath.Join(homeDir, "agents.yaml"),
			StandardsPath: "",
		},
		Session: SessionConfig{
			DefaultDeadline: 10 * time.Minute,
			AgentTimeout:    2 * time.Minute,
			DrainGrace:      5 * time.Second,
		},
		Bus: BusConfig{
			BufferSize: 64,
		},
		Correlation: CorrelationConfig{
			AdjacencySlack: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "",
		},
	}
}

// getDefaultHomeDir returns the default engine home directory.
// It uses ~/.miesc or falls back to a temporary directory if the user home
// cannot be determined.
func getDefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".miesc")
	}
	return filepath.Join(userHome, ".miesc")
}
