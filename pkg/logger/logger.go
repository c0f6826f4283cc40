// Package logger provides the structured slog.Logger used across AutumnDB.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
)

// Module provides the shared *slog.Logger to the fx graph.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger builds the process-wide logger. Level is read from LOG_LEVEL
// (debug|info|warn|error, default info); format switches to JSON unless
// GO_ENV is "local", "development", "dev" or unset.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(os.Getenv("GO_ENV")) {
	case "local", "development", "dev", "":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Scope tags a logger with a dotted component name, e.g. "schema.compiler".
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error attaches an error to a log record under the "error" key.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
