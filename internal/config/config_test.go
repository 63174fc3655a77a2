package config

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dshills/keystate/internal/history"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Async || cfg.Metrics || cfg.Tracing {
		t.Error("async, metrics and tracing should be off by default")
	}
	if cfg.QueueSize != 100 || cfg.HistoryLimit != 1000 {
		t.Errorf("queue size %d, history limit %d", cfg.QueueSize, cfg.HistoryLimit)
	}
	if cfg.WatchDebounce != 100*time.Millisecond || cfg.ScriptTimeout != time.Second {
		t.Errorf("durations = %v/%v", cfg.WatchDebounce, cfg.ScriptTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KEYSTATE_LOG_LEVEL", "debug")
	t.Setenv("KEYSTATE_LOG_FORMAT", "json")
	t.Setenv("KEYSTATE_ASYNC", "true")
	t.Setenv("KEYSTATE_QUEUE_SIZE", "8")
	t.Setenv("KEYSTATE_METRICS", "1")
	t.Setenv("KEYSTATE_HISTORY_LIMIT", "5")
	t.Setenv("KEYSTATE_SCRIPT_TIMEOUT", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	d := cfg.Dispatcher()
	if !d.AsyncDispatch || d.QueueSize != 8 || !d.EnableMetrics {
		t.Errorf("dispatcher config = %+v", d)
	}
	if !d.RecoverFromPanic {
		t.Error("panic recovery should stay on")
	}
	if cfg.HistoryEntries() != 5 {
		t.Errorf("HistoryEntries() = %d, want 5", cfg.HistoryEntries())
	}
	if cfg.ScriptTimeout != 250*time.Millisecond {
		t.Errorf("ScriptTimeout = %v", cfg.ScriptTimeout)
	}

	lc := cfg.Logging(&bytes.Buffer{})
	if lc.Level != slog.LevelDebug || lc.Format != "json" {
		t.Errorf("logging config = %+v", lc)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("KEYSTATE_QUEUE_SIZE", "many")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{LogFormat: "text", QueueSize: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.LogFormat = "xml" }},
		{"queue", func(c *Config) { c.QueueSize = 0 }},
		{"history", func(c *Config) { c.HistoryLimit = -1 }},
		{"debounce", func(c *Config) { c.WatchDebounce = -time.Second }},
	}
	for _, tt := range tests {
		cfg := valid
		tt.mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
		}
	}
}

func TestHistoryEntriesDefault(t *testing.T) {
	if got := (Config{}).HistoryEntries(); got != history.DefaultMaxEntries {
		t.Errorf("HistoryEntries() = %d, want %d", got, history.DefaultMaxEntries)
	}
}
