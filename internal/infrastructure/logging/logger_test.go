package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output %q: %v", buf.String(), err)
	}
	return entry
}

func TestNewWithWriter_JSONDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.0.0", &buf)

	logger.Info("driver ready", "network_id", "0xc0ffee01")

	entry := decodeLine(t, &buf)
	if entry["service"] != ServiceName {
		t.Errorf("service = %v, want %q", entry["service"], ServiceName)
	}
	if entry["version"] != "1.0.0" {
		t.Errorf("version = %v, want 1.0.0", entry["version"])
	}
	if entry["msg"] != "driver ready" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["network_id"] != "0xc0ffee01" {
		t.Errorf("network_id = %v", entry["network_id"])
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "TEXT"}, "dev", &buf)

	logger.Debug("node added", "node_id", 4)

	out := buf.String()
	if !strings.Contains(out, "msg=\"node added\"") || !strings.Contains(out, "node_id=4") {
		t.Errorf("unexpected text output %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Error("text format produced JSON")
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, "dev", &buf)

	logger.Info("suppressed")
	logger.Debug("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	logger.Warn("read-back failed")
	if !strings.Contains(buf.String(), "read-back failed") {
		t.Errorf("warn entry missing from %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestOutputFor(t *testing.T) {
	tests := []struct {
		input string
		want  io.Writer
	}{
		{"stdout", os.Stdout},
		{"", os.Stdout},
		{"stderr", os.Stderr},
		{"none", io.Discard},
		{"Discard", io.Discard},
	}
	for _, tt := range tests {
		if got := outputFor(tt.input); got != tt.want {
			t.Errorf("outputFor(%q) returned the wrong writer", tt.input)
		}
	}
}

func TestLogger_WithAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "dev", &buf)

	child := logger.Component("dispatcher").With("network_id", 7)
	if child == logger {
		t.Fatal("expected child logger to be different from parent")
	}

	child.Info("ready")
	entry := decodeLine(t, &buf)
	if entry["component"] != "dispatcher" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["network_id"] != float64(7) {
		t.Errorf("network_id = %v", entry["network_id"])
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
}
