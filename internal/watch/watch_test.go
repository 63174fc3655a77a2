package watch

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if w.debounce != DefaultDebounce {
		t.Errorf("default debounce = %v, want %v", w.debounce, DefaultDebounce)
	}

	w2, err := New(WithDebounce(0))
	if err != nil {
		t.Fatal(err)
	}
	defer w2.Stop()
	if w2.debounce != 0 {
		t.Errorf("debounce = %v, want 0", w2.debounce)
	}
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatchUnwatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.toml")
	b := filepath.Join(dir, "b.toml")

	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Watch(a); err != nil {
		t.Fatalf("Watch(a) error = %v", err)
	}
	if err := w.Watch(b); err != nil {
		t.Fatalf("Watch(b) error = %v", err)
	}
	if err := w.Watch(a); err != nil {
		t.Errorf("second Watch(a) should be a no-op, got %v", err)
	}

	if got := w.WatchedFiles(); len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("WatchedFiles() = %v", got)
	}
	if w.dirs[dir] != 2 {
		t.Errorf("directory refcount = %d, want 2", w.dirs[dir])
	}

	if err := w.Unwatch(a); err != nil {
		t.Errorf("Unwatch(a) error = %v", err)
	}
	if err := w.Unwatch(a); !errors.Is(err, ErrNotWatching) {
		t.Errorf("expected ErrNotWatching, got %v", err)
	}
	if err := w.Unwatch(b); err != nil {
		t.Errorf("Unwatch(b) error = %v", err)
	}
	if _, ok := w.dirs[dir]; ok {
		t.Error("directory should be released with its last file")
	}

	if err := w.Watch(filepath.Join(dir, "missing", "c.toml")); err == nil {
		t.Error("watching a file in a missing directory should fail")
	}
}

func TestStopped(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	if !w.IsRunning() {
		t.Error("watcher should be running")
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if w.IsRunning() {
		t.Error("watcher should be stopped")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
	if err := w.Watch(t.TempDir()); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("expected ErrWatcherClosed, got %v", err)
	}
}

func TestQueueEventCoalesces(t *testing.T) {
	w := &Watcher{pendingFiles: make(map[string]pendingEvent), debounce: time.Second}
	t0 := time.Now()

	w.queueEvent(Event{Path: "/a", Op: OpCreate, Time: t0})
	w.queueEvent(Event{Path: "/a", Op: OpWrite, Time: t0.Add(time.Millisecond)})
	if got := w.pendingFiles["/a"]; got.Op != OpCreate || !got.Time.Equal(t0.Add(time.Millisecond)) {
		t.Errorf("create + write = %v at %v, want create at latest time", got.Op, got.Time)
	}

	w.queueEvent(Event{Path: "/a", Op: OpRemove, Time: t0.Add(2 * time.Millisecond)})
	if got := w.pendingFiles["/a"]; got.Op != OpRemove {
		t.Errorf("any + remove = %v, want remove", got.Op)
	}

	w.queueEvent(Event{Path: "/b", Op: OpWrite, Time: t0})
	w.queueEvent(Event{Path: "/b", Op: OpWrite, Time: t0.Add(time.Millisecond)})
	if got := w.pendingFiles["/b"]; got.Op != OpWrite {
		t.Errorf("write + write = %v, want write", got.Op)
	}
}

func TestProcessPendingEvents(t *testing.T) {
	w := &Watcher{pendingFiles: make(map[string]pendingEvent), debounce: 100 * time.Millisecond}
	now := time.Now()
	w.pendingFiles["/old"] = pendingEvent{Op: OpWrite, Time: now.Add(-time.Second)}
	w.pendingFiles["/fresh"] = pendingEvent{Op: OpWrite, Time: now}

	var got []Event
	w.OnChange(func(e Event) { got = append(got, e) })
	w.OnChange(func(Event) { panic("handler failure") })

	w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	w.processPendingEvents(now)

	if len(got) != 1 || got[0].Path != "/old" {
		t.Fatalf("emitted %v, want only /old", got)
	}
	if _, ok := w.pendingFiles["/fresh"]; !ok {
		t.Error("unstable event should stay pending")
	}
}

func TestWatchFileChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.toml")
	other := filepath.Join(dir, "other.toml")
	if err := os.WriteFile(file, []byte("name = \"a\""), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	var mu sync.Mutex
	var events []Event
	got := make(chan struct{}, 10)
	w.OnChange(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		got <- struct{}{}
	})

	if err := w.Watch(file); err != nil {
		t.Fatal(err)
	}
	w.Start()

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(file, []byte("name = \"b\""), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	// Allow any stray event to arrive
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, e := range events {
		if e.Path != file {
			t.Errorf("unexpected event for %s", e.Path)
		}
	}
	if len(events) == 0 || events[0].Op != OpWrite {
		t.Errorf("events = %v, want a write first", events)
	}
}
