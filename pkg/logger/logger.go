// Package logger provides component-scoped structured logging for the agent.
// It is a thin wrapper around log/slog so every subsystem logs with a
// consistent "component" attribute without threading a logger through
// constructors.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu  sync.RWMutex
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Init configures the process logger. Level is one of debug/info/warn/error,
// format is "text" or "json". Unknown values fall back to info/text.
func Init(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	mu.Lock()
	log = slog.New(handler)
	mu.Unlock()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func logWith(level slog.Level, component, msg string, fields map[string]any) {
	args := make([]any, 0, 2+2*len(fields))
	args = append(args, "component", component)
	for k, v := range fields {
		args = append(args, k, v)
	}
	current().Log(context.Background(), level, msg, args...)
}

// DebugC logs a debug message for a component.
func DebugC(component, msg string) { logWith(slog.LevelDebug, component, msg, nil) }

// DebugCF logs a debug message for a component with structured fields.
func DebugCF(component, msg string, fields map[string]any) {
	logWith(slog.LevelDebug, component, msg, fields)
}

// InfoC logs an info message for a component.
func InfoC(component, msg string) { logWith(slog.LevelInfo, component, msg, nil) }

// InfoCF logs an info message for a component with structured fields.
func InfoCF(component, msg string, fields map[string]any) {
	logWith(slog.LevelInfo, component, msg, fields)
}

// WarnC logs a warning for a component.
func WarnC(component, msg string) { logWith(slog.LevelWarn, component, msg, nil) }

// WarnCF logs a warning for a component with structured fields.
func WarnCF(component, msg string, fields map[string]any) {
	logWith(slog.LevelWarn, component, msg, fields)
}

// ErrorC logs an error message for a component.
func ErrorC(component, msg string) { logWith(slog.LevelError, component, msg, nil) }

// ErrorCF logs an error message for a component with structured fields.
func ErrorCF(component, msg string, fields map[string]any) {
	logWith(slog.LevelError, component, msg, fields)
}
