// Package observability wires structured logging and distributed tracing
// for the analysis engine.
package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/fboiero/MIESC-sub012/internal/config"
)

// NewLogger creates a structured logger from the logging configuration.
// Format "json" produces machine-readable output; "text" is for humans.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// SessionLogger returns a child logger carrying the session identifier so
// every entry from one session is attributable.
func SessionLogger(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With(slog.String("session_id", sessionID))
}

// parseLevel maps a config level string to a slog.Level. Unknown levels
// fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
