// Package log wraps slog with a component attribute so every binary and
// subsystem tags its records consistently.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger bound to a component name.
type Logger struct {
	*slog.Logger
	component string
}

// New creates a component-scoped logger writing text records to stdout.
// The level comes from LOG_LEVEL (debug, info, warn, error), defaulting
// to info.
func New(component string) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
	return &Logger{
		Logger:    slog.New(handler).With("component", component),
		component: component,
	}
}

// WithComponent returns a logger for a sub-component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger as the process-wide slog default, so
// packages that log through slog directly inherit the handler.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
