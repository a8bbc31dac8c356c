// Package logger builds the shared slog.Logger from config values.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a logger with the given level and format ("text" or "json").
// Output goes to stderr so it never mixes with command output on stdout.
func New(level, format string) *slog.Logger {
	return NewWithOutput(level, format, os.Stderr)
}

// NewWithOutput creates a logger writing to the given output.
func NewWithOutput(level, format string, output io.Writer) *slog.Logger {
	options := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(output, options)
	} else {
		handler = slog.NewTextHandler(output, options)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything. Used as the nil-safe
// default when a component is constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}
