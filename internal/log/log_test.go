package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

	logger.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "hello") {
		t.Errorf("output %q should contain message", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("output %q should contain key=value", out)
	}
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{JSON: true})

	logger.Info("hello", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want value", entry["key"])
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("output %q should not contain filtered levels", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("output %q should contain warn message", out)
	}
}

func TestNewNop_DiscardsOutput(t *testing.T) {
	t.Parallel()

	logger := NewNop()
	// Must not panic; output goes nowhere.
	logger.Info("discarded")
	logger.Error("also discarded")
}
