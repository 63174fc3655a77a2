// Package main is the entry point for the keystate command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/keystate/internal/app"
	"github.com/dshills/keystate/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	opts, code, exit := parseFlags(os.Args[1:], &cfg, os.Stdout, os.Stderr)
	if exit {
		return code
	}
	opts.Config = cfg

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// parseFlags reads the command line. Flags override the environment
// settings in cfg. When exit is true the program should stop with code.
func parseFlags(args []string, cfg *config.Config, stdout, stderr io.Writer) (opts app.Options, code int, exit bool) {
	var showVersion bool

	fs := flag.NewFlagSet("keystate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.ManifestPath, "manifest", "", "Namespace manifest (.toml, .yaml, .json)")
	fs.StringVar(&opts.ManifestPath, "m", "", "Namespace manifest (shorthand)")
	fs.StringVar(&opts.MessagesPath, "messages", "", "Message log to replay")
	fs.StringVar(&opts.Select, "select", "", "gjson path selecting part of the final state")
	fs.StringVar(&opts.Format, "format", app.FormatJSON, "Output format (json, yaml)")
	fs.BoolVar(&opts.Watch, "watch", false, "Reload and replay when an input file changes")
	fs.BoolVar(&opts.History, "history", false, "Print every recorded snapshot")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	fs.BoolVar(&cfg.Async, "async", cfg.Async, "Reduce on a dispatcher loop goroutine")
	fs.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "Collect dispatch metrics")
	fs.BoolVar(&cfg.Tracing, "trace", cfg.Tracing, "Log a trace span per dispatch")
	fs.BoolVar(&showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "keystate - hierarchical state tree runner\n\n")
		fmt.Fprintf(stderr, "Usage: keystate -manifest FILE [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment:\n")
		fmt.Fprintf(stderr, "  KEYSTATE_LOG_LEVEL, KEYSTATE_LOG_FORMAT, KEYSTATE_ASYNC, KEYSTATE_QUEUE_SIZE,\n")
		fmt.Fprintf(stderr, "  KEYSTATE_METRICS, KEYSTATE_TRACING, KEYSTATE_HISTORY_LIMIT,\n")
		fmt.Fprintf(stderr, "  KEYSTATE_WATCH_DEBOUNCE, KEYSTATE_SCRIPT_TIMEOUT\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  keystate -m shop.toml -messages log.yaml\n")
		fmt.Fprintf(stderr, "  keystate -m shop.toml -messages log.yaml -select cart.items\n")
		fmt.Fprintf(stderr, "  keystate -m shop.toml -messages log.yaml -history -format yaml\n")
		fmt.Fprintf(stderr, "  keystate -m shop.toml -messages log.yaml -watch\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, 0, true
		}
		return opts, 2, true
	}

	if showVersion {
		fmt.Fprintf(stdout, "keystate %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, 0, true
	}

	if opts.ManifestPath == "" {
		fmt.Fprintf(stderr, "Error: -manifest is required\n\n")
		fs.Usage()
		return opts, 2, true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return opts, 2, true
	}
	return opts, 0, false
}
