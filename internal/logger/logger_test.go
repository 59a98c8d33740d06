package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFileLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "mayapilot.log")

	log, cleanup, err := NewFileLogger("info", path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	log.Debug("hidden")
	log.Info("visible", "port", 7002)
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "port=7002") {
		t.Errorf("expected info record with attrs, got %q", out)
	}
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger("debug", &buf)
	log.Debug("dialing", "host", "127.0.0.1")
	if !strings.Contains(buf.String(), "host=127.0.0.1") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
