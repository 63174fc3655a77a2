// Package app wires the keystate runtime together. It loads a manifest,
// mounts the namespace tree into a dispatcher, replays message logs through
// it and renders the resulting state, optionally reloading on file changes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/keystate/internal/actiontype"
	"github.com/dshills/keystate/internal/config"
	"github.com/dshills/keystate/internal/dispatcher"
	"github.com/dshills/keystate/internal/dispatcher/hook"
	"github.com/dshills/keystate/internal/history"
	"github.com/dshills/keystate/internal/logging"
	"github.com/dshills/keystate/internal/manifest"
	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/namespace"
	"github.com/dshills/keystate/internal/telemetry"
	"github.com/dshills/keystate/internal/tree"
	"github.com/dshills/keystate/internal/watch"
)

// ServiceName identifies keystate in logs and traces.
const ServiceName = "keystate"

// Options configures the application.
type Options struct {
	// ManifestPath is the namespace tree to load.
	ManifestPath string

	// MessagesPath is an optional message log to replay.
	MessagesPath string

	// Select is an optional gjson path applied to the final state.
	Select string

	// Format is the output format, FormatJSON or FormatYAML.
	Format string

	// Watch reloads and replays when an input file changes.
	Watch bool

	// History renders every recorded snapshot, not only the final state.
	History bool

	// Output receives rendered state. Defaults to os.Stdout.
	Output io.Writer

	// Config holds the runtime settings.
	Config config.Config

	// Logger overrides the logger built from Config.
	Logger *slog.Logger

	// FS overrides the file system manifests and logs are read from.
	FS manifest.FileSystem
}

// Application is the central coordinator for one keystate run.
type Application struct {
	mu sync.Mutex

	opts   Options
	logger *slog.Logger
	loader *manifest.Loader

	tracer          trace.Tracer
	shutdownTracing func(context.Context) error

	session *Session
	running atomic.Bool
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	if opts.ManifestPath == "" {
		return nil, ErrNoManifest
	}
	switch opts.Format {
	case "":
		opts.Format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(opts.Config.Logging(os.Stderr))
		if err != nil {
			return nil, &InitError{Component: "logging", Err: err}
		}
	}

	tracer, shutdown, err := telemetry.Setup(context.Background(), ServiceName,
		logging.WithComponent(logger, "trace"), opts.Config.Tracing)
	if err != nil {
		return nil, &InitError{Component: "tracing", Err: err}
	}

	loader := manifest.NewLoader(opts.FS)
	if opts.Config.ScriptTimeout > 0 {
		loader.SetScriptTimeout(opts.Config.ScriptTimeout)
	}

	return &Application{
		opts:            opts,
		logger:          logger,
		loader:          loader,
		tracer:          tracer,
		shutdownTracing: shutdown,
	}, nil
}

// Session is one loaded namespace tree mounted into its dispatcher.
type Session struct {
	Manifest   *manifest.Manifest
	Tree       *manifest.Tree
	Dispatcher *dispatcher.Dispatcher
	History    *history.Recorder

	// Initial is the state right after mounting.
	Initial any
}

// Close stops the dispatcher and releases the tree's scripts.
func (s *Session) Close() error {
	s.Dispatcher.Stop()
	return s.Tree.Close()
}

// Load reads the manifest and mounts a fresh tree into a new dispatcher
// with the audit, tracing and history hooks installed.
func (app *Application) Load() (*Session, error) {
	m, err := app.loader.Load(app.opts.ManifestPath)
	if err != nil {
		return nil, &InitError{Component: "manifest", Err: err}
	}

	d := dispatcher.New(app.opts.Config.Dispatcher())
	d.Use(hook.NewAuditHook(logging.WithComponent(app.logger, "dispatcher")))
	if app.opts.Config.Tracing {
		d.Use(hook.NewTracingHook(app.tracer))
	}

	// A private registry lets a reload mount the same types again
	t, err := app.loader.Build(m,
		namespace.WithRegistry(actiontype.NewRegistry()),
		namespace.WithContainer(d))
	if err != nil {
		return nil, &InitError{Component: "namespace", Err: err}
	}

	initial := d.State()
	recorder := history.NewRecorder(initial, app.opts.Config.HistoryEntries())
	d.Use(recorder)

	app.logger.Info("manifest loaded",
		"path", app.opts.ManifestPath,
		"files", len(m.Files()),
		"types", len(t.Root.Types()),
	)

	return &Session{
		Manifest:   m,
		Tree:       t,
		Dispatcher: d,
		History:    recorder,
		Initial:    initial,
	}, nil
}

// Report summarizes a replay.
type Report struct {
	Messages int
	Changed  int
	Failed   int

	// Deterministic is true when an independent replay of the same log
	// reached the same final state. It is only checked when nothing failed.
	Deterministic bool

	State   any
	Entries []history.Entry
}

// Replay dispatches the message log, if any, into s.
// Messages that fail to reduce are logged and skipped.
func (app *Application) Replay(ctx context.Context, s *Session) (*Report, error) {
	var msgs []message.Message
	if app.opts.MessagesPath != "" {
		var err error
		msgs, err = app.loader.LoadMessages(app.opts.MessagesPath)
		if err != nil {
			return nil, err
		}
	}

	var changed atomic.Int64
	unsubscribe := s.Dispatcher.Subscribe(func(r dispatcher.Result) {
		if r.Changed() {
			changed.Add(1)
		}
	})
	defer unsubscribe()

	failed := 0
	if s.Dispatcher.Config().AsyncDispatch {
		var err error
		if failed, err = app.replayAsync(ctx, s.Dispatcher, msgs); err != nil {
			return nil, err
		}
	} else {
		for _, msg := range msgs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := s.Dispatcher.Apply(msg); err != nil {
				failed++
				app.logger.Warn("message failed", "type", msg.Type, "id", msg.ID, "error", err)
			}
		}
	}

	report := &Report{
		Messages: len(msgs),
		Changed:  int(changed.Load()),
		Failed:   failed,
		State:    s.Dispatcher.State(),
		Entries:  s.History.Entries(),
	}

	if failed == 0 {
		steps, err := history.Replay(s.Tree.Root.Reduce, s.Initial, msgs)
		report.Deterministic = err == nil && tree.Equal(history.Final(s.Initial, steps), report.State)
		if !report.Deterministic {
			app.logger.Warn("replay is not deterministic", "messages", len(msgs), "error", err)
		}
	}

	app.logger.Info("replay complete",
		"messages", report.Messages,
		"changed", report.Changed,
		"failed", report.Failed,
	)
	return report, nil
}

// replayAsync queues msgs on the dispatcher loop and waits for the queue to
// drain. It returns the number of failed messages, or ctx's error when the
// replay was cut short.
func (app *Application) replayAsync(ctx context.Context, d *dispatcher.Dispatcher, msgs []message.Message) (int, error) {
	dropped := d.DroppedErrors()
	d.Start(ctx)

	failed := 0
	for _, msg := range msgs {
		err := d.Dispatch(msg)
		if errors.Is(err, dispatcher.ErrDispatcherStopped) {
			d.Stop()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			return 0, err
		}
		if err != nil {
			failed++
			app.logger.Warn("message rejected", "type", msg.Type, "error", err)
		}
	}
	d.Stop()

	failed += int(d.DroppedErrors() - dropped)
	for {
		select {
		case err := <-d.Errors():
			failed++
			app.logger.Warn("message failed", "error", err)
		default:
			return failed, nil
		}
	}
}

// historyView is the rendered form of a replay with history.
type historyView struct {
	Steps []stepView `json:"steps" yaml:"steps"`
	State any        `json:"state" yaml:"state"`
}

type stepView struct {
	Label string `json:"label" yaml:"label"`
	State any    `json:"state" yaml:"state"`
}

// Render writes the report's state, or its selection, to the output.
func (app *Application) Render(report *Report) error {
	out := report.State
	if app.opts.Select != "" {
		selected, err := Select(out, app.opts.Select)
		if err != nil {
			return err
		}
		out = selected
	}

	if app.opts.History {
		view := historyView{State: out, Steps: make([]stepView, 0, len(report.Entries))}
		for _, e := range report.Entries {
			view.Steps = append(view.Steps, stepView{Label: e.Label, State: e.State})
		}
		return Encode(app.opts.Output, view, app.opts.Format)
	}
	return Encode(app.opts.Output, out, app.opts.Format)
}

// Run loads, replays and renders once. With Watch set it then reloads on
// every change to the manifest files or the message log until ctx is done.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := app.cycle(ctx); err != nil {
		return err
	}
	if !app.opts.Watch {
		return nil
	}

	w, err := watch.New(
		watch.WithDebounce(app.opts.Config.WatchDebounce),
		watch.WithLogger(logging.WithComponent(app.logger, "watch")),
	)
	if err != nil {
		return &InitError{Component: "watcher", Err: err}
	}
	defer w.Stop()

	if err := app.watchInputs(w); err != nil {
		return err
	}
	w.OnChange(func(e watch.Event) {
		app.logger.Info("input changed", "path", e.Path, "op", e.Op.String())
		if err := app.cycle(ctx); err != nil {
			app.logger.Error("reload failed", "error", err)
			return
		}
		if err := app.watchInputs(w); err != nil {
			app.logger.Error("watch failed", "error", err)
		}
	})
	w.Start()

	<-ctx.Done()
	return nil
}

// cycle loads a new session, replays into it and renders. The new session
// replaces the current one only when every step succeeds.
func (app *Application) cycle(ctx context.Context) error {
	s, err := app.Load()
	if err != nil {
		return err
	}
	report, err := app.Replay(ctx, s)
	if err != nil {
		s.Close()
		return err
	}
	if err := app.Render(report); err != nil {
		s.Close()
		return err
	}

	app.mu.Lock()
	old := app.session
	app.session = s
	app.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// watchInputs watches every file the current session was built from.
func (app *Application) watchInputs(w *watch.Watcher) error {
	app.mu.Lock()
	s := app.session
	app.mu.Unlock()

	files := s.Manifest.Files()
	if app.opts.MessagesPath != "" {
		files = append(files, app.opts.MessagesPath)
	}
	for _, f := range files {
		if err := w.Watch(f); err != nil {
			return fmt.Errorf("watch %s: %w", f, err)
		}
	}
	return nil
}

// Session returns the current session, or nil before the first load.
func (app *Application) Session() *Session {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.session
}

// IsRunning returns whether Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Shutdown releases the current session and flushes traces.
func (app *Application) Shutdown() {
	app.mu.Lock()
	s := app.session
	app.session = nil
	app.mu.Unlock()

	if s != nil {
		if err := s.Close(); err != nil {
			app.logger.Warn("close session", "error", err)
		}
	}
	if err := app.shutdownTracing(context.Background()); err != nil {
		app.logger.Warn("shutdown tracing", "error", err)
	}
}
