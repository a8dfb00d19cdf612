package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init(environment, level string) {
	InitWriter(os.Stderr, environment, level)
}

// InitWriter is Init with an explicit destination. CLI commands keep stdout
// for operator-facing output, so logs default to stderr.
func InitWriter(w io.Writer, environment, level string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(environment) == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithCommand returns a logger scoped to a CLI command run.
func WithCommand(command string) *slog.Logger {
	return slog.With("command", command)
}

// WithTable returns a logger with the target table attached.
func WithTable(logger *slog.Logger, table string) *slog.Logger {
	return logger.With("table", table)
}
