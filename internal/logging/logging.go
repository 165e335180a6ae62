// Package logging builds the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a logger for the given application name. Interactive runs
// (APP_ENV unset or "dev") get colored tint output; anything else gets
// JSON lines.
func New(level slog.Level, appName string) *slog.Logger {
	env := os.Getenv("APP_ENV")
	if env == "" || env == "dev" {
		h := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("app", appName, "env", env)
}

// Setup installs the logger as the slog default and returns it.
func Setup(level slog.Level, appName string) *slog.Logger {
	logger := New(level, appName)
	slog.SetDefault(logger)
	return logger
}
