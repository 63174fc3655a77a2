// Package config holds the runtime settings of the keystate command.
//
// Settings come from KEYSTATE_* environment variables; command-line flags
// override them.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dshills/keystate/internal/dispatcher"
	"github.com/dshills/keystate/internal/history"
	"github.com/dshills/keystate/internal/logging"
)

// ErrInvalidConfig indicates a setting outside its accepted range.
var ErrInvalidConfig = errors.New("config: invalid setting")

// Config holds the keystate settings.
type Config struct {
	LogLevel  string `env:"KEYSTATE_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"KEYSTATE_LOG_FORMAT" envDefault:"text"`

	// Async reduces on a dispatcher loop goroutine instead of the caller's.
	Async     bool `env:"KEYSTATE_ASYNC"`
	QueueSize int  `env:"KEYSTATE_QUEUE_SIZE" envDefault:"100"`

	Metrics bool `env:"KEYSTATE_METRICS"`
	Tracing bool `env:"KEYSTATE_TRACING"`

	HistoryLimit int `env:"KEYSTATE_HISTORY_LIMIT" envDefault:"1000"`

	WatchDebounce time.Duration `env:"KEYSTATE_WATCH_DEBOUNCE" envDefault:"100ms"`
	ScriptTimeout time.Duration `env:"KEYSTATE_SCRIPT_TIMEOUT" envDefault:"1s"`
}

// ParseEnv fills target from the environment.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that the environment parser cannot.
func (c Config) Validate() error {
	switch c.LogFormat {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history limit %d", ErrInvalidConfig, c.HistoryLimit)
	}
	if c.WatchDebounce < 0 || c.ScriptTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Dispatcher returns the dispatcher configuration.
func (c Config) Dispatcher() dispatcher.Config {
	cfg := dispatcher.DefaultConfig()
	if c.Async {
		cfg = cfg.WithAsyncDispatch(c.QueueSize)
	}
	if c.Metrics {
		cfg = cfg.WithMetrics()
	}
	return cfg
}

// Logging returns the logger configuration writing to out.
func (c Config) Logging(out io.Writer) logging.Config {
	return logging.Config{
		Level:  logging.ParseLevel(c.LogLevel),
		Format: c.LogFormat,
		Output: out,
	}
}

// HistoryEntries returns the undo stack bound.
func (c Config) HistoryEntries() int {
	if c.HistoryLimit == 0 {
		return history.DefaultMaxEntries
	}
	return c.HistoryLimit
}
