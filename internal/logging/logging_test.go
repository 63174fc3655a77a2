package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: slog.LevelWarn, Format: FormatText, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	WithComponent(logger, "dispatcher").Warn("shown", "type", "cart/add")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("records below the level should be dropped")
	}
	for _, want := range []string{"msg=shown", "component=dispatcher", "type=cart/add"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q should contain %q", out, want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: slog.LevelDebug, Format: "JSON", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	WithComponent(logger, "cli").Debug("loaded", "namespaces", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["component"] != "cli" || record["msg"] != "loaded" || record["namespaces"] != 3.0 {
		t.Errorf("unexpected record %v", record)
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}
}
