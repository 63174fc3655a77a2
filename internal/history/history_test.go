package history

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/keystate/internal/dispatcher"
	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/tree"
)

func counter(state any, msg message.Message) (any, error) {
	switch msg.Type {
	case "inc":
		v, _ := tree.Get(state, "n")
		n, _ := v.(int)
		return tree.With(state, "n", n+1)
	case "fail":
		return nil, errors.New("nope")
	}
	return state, nil
}

func n(t *testing.T, state any) int {
	t.Helper()
	v, ok := tree.Get(state, "n")
	if !ok {
		t.Fatalf("state %v has no n", state)
	}
	return v.(int)
}

func TestRecorderUndoRedo(t *testing.T) {
	r := NewRecorder(tree.Map{"n": 0}, 10)

	if r.CanUndo() || r.CanRedo() {
		t.Fatal("new recorder should have nothing to undo or redo")
	}
	if _, err := r.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
	if _, err := r.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}

	r.Record(message.New("inc", nil), tree.Map{"n": 1})
	r.Record(message.New("inc", nil), tree.Map{"n": 2})

	if r.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", r.Len())
	}
	if got := n(t, r.Current()); got != 2 {
		t.Errorf("current = %d, want 2", got)
	}

	prev, err := r.Undo()
	if err != nil {
		t.Fatal(err)
	}
	if got := n(t, prev); got != 1 {
		t.Errorf("after undo = %d, want 1", got)
	}

	prev, err = r.Undo()
	if err != nil {
		t.Fatal(err)
	}
	if got := n(t, prev); got != 0 {
		t.Errorf("after second undo = %d, want 0", got)
	}

	next, err := r.Redo()
	if err != nil {
		t.Fatal(err)
	}
	if got := n(t, next); got != 1 {
		t.Errorf("after redo = %d, want 1", got)
	}

	// A new record clears the redo stack.
	r.Record(message.New("inc", nil), tree.Map{"n": 5})
	if r.CanRedo() {
		t.Error("record should clear redo")
	}
}

func TestRecorderMaxEntries(t *testing.T) {
	r := NewRecorder(tree.Map{"n": 0}, 3)

	for i := 1; i <= 5; i++ {
		r.Record(message.New("inc", nil), tree.Map{"n": i})
	}

	if r.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", r.Len())
	}
	if got := n(t, r.Baseline()); got != 2 {
		t.Errorf("baseline = %d, want 2", got)
	}

	first, err := r.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if got := n(t, first.State); got != 3 {
		t.Errorf("oldest entry = %d, want 3", got)
	}
	if _, err := r.At(3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}

	for r.CanUndo() {
		if _, err := r.Undo(); err != nil {
			t.Fatal(err)
		}
	}
	if got := n(t, r.Current()); got != 2 {
		t.Errorf("fully undone = %d, want baseline 2", got)
	}
}

func TestRecorderGroup(t *testing.T) {
	r := NewRecorder(tree.Map{"n": 0}, 0)

	r.BeginGroup("batch")
	r.BeginGroup("nested") // ignored
	if !r.IsGrouping() {
		t.Fatal("expected grouping")
	}
	r.Record(message.New("inc", nil), tree.Map{"n": 1})
	r.Record(message.New("inc", nil), tree.Map{"n": 2})
	r.EndGroup()

	if r.Len() != 1 {
		t.Fatalf("expected 1 grouped entry, got %d", r.Len())
	}
	entry, _ := r.At(0)
	if entry.Label != "batch" {
		t.Errorf("label = %q, want batch", entry.Label)
	}
	if len(entry.Messages) != 2 {
		t.Errorf("expected 2 messages in group, got %d", len(entry.Messages))
	}

	prev, _ := r.Undo()
	if got := n(t, prev); got != 0 {
		t.Errorf("undoing the group = %d, want 0", got)
	}

	// Empty groups record nothing.
	r.BeginGroup("empty")
	r.EndGroup()
	if r.Len() != 0 {
		t.Errorf("expected no entries, got %d", r.Len())
	}
}

func TestRecorderClear(t *testing.T) {
	r := NewRecorder(tree.Map{"n": 0}, 0)
	r.Record(message.New("inc", nil), tree.Map{"n": 1})
	r.Clear()

	if r.Len() != 0 || r.CanRedo() {
		t.Error("clear should drop all entries")
	}
	if got := n(t, r.Current()); got != 1 {
		t.Errorf("clear should rebase on the current snapshot, got %d", got)
	}
}

func TestRecorderAsHook(t *testing.T) {
	d := dispatcher.NewWithDefaults()
	if err := d.Install(counter, tree.Map{"n": 0}); err != nil {
		t.Fatal(err)
	}

	r := NewRecorder(d.State(), 0)
	d.Use(r)

	for _, typ := range []string{"inc", "noop", "inc", "fail"} {
		_ = d.Dispatch(message.New(typ, nil))
	}

	if r.Len() != 2 {
		t.Fatalf("only changes are recorded: expected 2 entries, got %d", r.Len())
	}
	if !tree.Same(r.Current(), d.State()) {
		t.Error("recorder head should be the dispatcher's snapshot")
	}
	entries := r.Entries()
	if entries[0].Label != "inc" {
		t.Errorf("label = %q, want inc", entries[0].Label)
	}
}

func TestReplay(t *testing.T) {
	initial := tree.Map{"n": 0}
	msgs := []message.Message{
		message.New("inc", nil),
		message.New("noop", nil),
		message.New("inc", nil),
	}

	first, err := Replay(counter, initial, msgs)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Replay(counter, initial, msgs)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(first))
	}
	if !reflect.DeepEqual(Final(initial, first), Final(initial, second)) {
		t.Error("replay should be deterministic")
	}
	if got := n(t, Final(initial, first)); got != 2 {
		t.Errorf("final = %d, want 2", got)
	}
	if got := n(t, initial); got != 0 {
		t.Error("replay must not modify the initial state")
	}
	if Final(initial, nil) == nil {
		t.Error("final of no steps should be the initial state")
	}
}

func TestReplayError(t *testing.T) {
	msgs := []message.Message{
		message.New("inc", nil),
		message.New("fail", nil),
		message.New("inc", nil),
	}

	steps, err := Replay(counter, tree.Map{"n": 0}, msgs)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(steps) != 1 {
		t.Errorf("expected 1 completed step, got %d", len(steps))
	}
}
