// Package logger provides structured logging for mayapilot.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// NewFileLogger creates a logger that only writes to path. The TUI uses it so
// log output never lands on the terminal it is drawing.
// Returns the logger and a cleanup function to close the file.
func NewFileLogger(level, path string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	cleanup := func() { file.Close() }
	return slog.New(handler), cleanup, nil
}

// NewConsoleLogger creates a logger writing text records to w.
func NewConsoleLogger(level string, w io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
