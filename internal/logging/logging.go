// Package logging configures the process-wide structured logger. It mirrors
// the teacher monorepo's logging package (console vs. JSON output, env-var
// auto-detected service identity) trimmed to what this repo actually needs:
// no OTLP export, since nothing in this module's dependency graph talks to
// a collector.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config controls logging behavior. Zero-value fields are auto-detected from
// environment variables.
type Config struct {
	ServiceName string
	Environment string
	Level       slog.Level
	JSONFormat  bool
	Writer      io.Writer
}

// Configure sets up the global slog default logger. Call once at process
// startup before any component logs.
func Configure(cfg Config) {
	applyDefaults(&cfg)

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(cfg.Writer, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Writer, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)
	slog.SetDefault(logger)

	logger.Info("logging configured", "json_format", cfg.JSONFormat)
}

// Get returns a *slog.Logger tagged with the given component name, mirroring
// Python's get_logger(__name__) pattern.
func Get(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func applyDefaults(cfg *Config) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = envOr("APP_NAME", "mcadmin")
	}
	if cfg.Environment == "" {
		cfg.Environment = envOr("APP_ENV", envOr("ENVIRONMENT", "development"))
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Level == 0 {
		cfg.Level = slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
