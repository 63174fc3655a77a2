package history

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/keystate/internal/dispatcher/hook"
	"github.com/dshills/keystate/internal/message"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")
	ErrOutOfRange    = errors.New("history: index out of range")
)

// DefaultMaxEntries bounds the undo stack when no limit is configured.
const DefaultMaxEntries = 1000

// Entry is one recorded step: the messages that produced it and the
// snapshot they left behind.
type Entry struct {
	Label     string
	Messages  []message.Message
	State     any
	Timestamp time.Time
}

// Recorder keeps a bounded timeline of snapshots.
// Register it as a post-dispatch hook to record every state change.
type Recorder struct {
	mu sync.Mutex

	// Snapshot every retained entry is based on
	baseline any

	undoStack []Entry
	redoStack []Entry

	// Grouping state
	grouping bool
	group    *Entry

	maxEntries int
}

// NewRecorder creates a recorder whose timeline starts at initial.
func NewRecorder(initial any, maxEntries int) *Recorder {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Recorder{
		baseline:   initial,
		maxEntries: maxEntries,
	}
}

// Name implements hook.Hook.
func (r *Recorder) Name() string { return "history" }

// Priority implements hook.Hook.
func (r *Recorder) Priority() int { return hook.PriorityHistory }

// PostDispatch records results that produced a new snapshot.
func (r *Recorder) PostDispatch(result *hook.Result) {
	if !result.Changed() {
		return
	}
	r.Record(result.Message, result.Next)
}

// Record pushes a snapshot produced by msg and clears the redo stack.
// While grouping, consecutive records collapse into one entry.
func (r *Recorder) Record(msg message.Message, state any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.grouping {
		if r.group == nil {
			return
		}
		r.group.Messages = append(r.group.Messages, msg)
		r.group.State = state
		r.group.Timestamp = time.Now()
		return
	}

	r.pushLocked(Entry{
		Label:     msg.Type,
		Messages:  []message.Message{msg},
		State:     state,
		Timestamp: time.Now(),
	})
}

// pushLocked adds an entry without acquiring the lock.
func (r *Recorder) pushLocked(e Entry) {
	r.undoStack = append(r.undoStack, e)

	// Clear redo stack
	r.redoStack = nil

	// Enforce max entries; the oldest dropped entry becomes the baseline
	if len(r.undoStack) > r.maxEntries {
		excess := len(r.undoStack) - r.maxEntries
		r.baseline = r.undoStack[excess-1].State
		r.undoStack = r.undoStack[excess:]
	}
}

// Current returns the snapshot at the head of the timeline.
func (r *Recorder) Current() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

func (r *Recorder) currentLocked() any {
	if len(r.undoStack) == 0 {
		return r.baseline
	}
	return r.undoStack[len(r.undoStack)-1].State
}

// Undo steps back one entry and returns the snapshot now current.
func (r *Recorder) Undo() (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.undoStack) == 0 {
		return nil, ErrNothingToUndo
	}

	entry := r.undoStack[len(r.undoStack)-1]
	r.undoStack = r.undoStack[:len(r.undoStack)-1]
	r.redoStack = append(r.redoStack, entry)
	return r.currentLocked(), nil
}

// Redo re-applies the last undone entry and returns its snapshot.
func (r *Recorder) Redo() (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.redoStack) == 0 {
		return nil, ErrNothingToRedo
	}

	entry := r.redoStack[len(r.redoStack)-1]
	r.redoStack = r.redoStack[:len(r.redoStack)-1]
	r.undoStack = append(r.undoStack, entry)
	return entry.State, nil
}

// CanUndo returns true if undo is available.
func (r *Recorder) CanUndo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (r *Recorder) CanRedo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.redoStack) > 0
}

// Len returns the number of undoable entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.undoStack)
}

// At returns the i-th undoable entry, oldest first.
func (r *Recorder) At(i int) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.undoStack) {
		return Entry{}, ErrOutOfRange
	}
	return r.undoStack[i], nil
}

// Baseline returns the snapshot the oldest retained entry was applied to.
func (r *Recorder) Baseline() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.baseline
}

// Entries returns a copy of the undoable entries, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.undoStack))
	copy(out, r.undoStack)
	return out
}

// BeginGroup starts collapsing records into a single entry labelled name.
func (r *Recorder) BeginGroup(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.grouping {
		// Already grouping, ignore nested calls
		return
	}

	r.grouping = true
	r.group = &Entry{Label: name}
}

// EndGroup finishes a group. An empty group records nothing.
func (r *Recorder) EndGroup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.grouping {
		return
	}

	r.grouping = false
	group := r.group
	r.group = nil

	if group == nil || len(group.Messages) == 0 {
		return
	}
	r.pushLocked(*group)
}

// IsGrouping returns true if currently in a group.
func (r *Recorder) IsGrouping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grouping
}

// Clear drops every entry and rebases the timeline on the current snapshot.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.baseline = r.currentLocked()
	r.undoStack = nil
	r.redoStack = nil
	r.grouping = false
	r.group = nil
}
