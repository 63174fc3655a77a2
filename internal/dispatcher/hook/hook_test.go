package hook_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dshills/keystate/internal/dispatcher/hook"
	"github.com/dshills/keystate/internal/message"
)

var errValidationFailed = errors.New("validation failed")

// TestPreDispatchFunc verifies PreDispatchFunc adapter works.
func TestPreDispatchFunc(t *testing.T) {
	called := false
	h := hook.NewPreDispatchFunc("test-pre", 100, func(msg *message.Message, state any) bool {
		called = true
		return true
	})

	if h.Name() != "test-pre" {
		t.Errorf("expected name 'test-pre', got %q", h.Name())
	}
	if h.Priority() != 100 {
		t.Errorf("expected priority 100, got %d", h.Priority())
	}

	msg := message.New("test", nil)
	if !h.PreDispatch(&msg, nil) {
		t.Error("expected PreDispatch to return true")
	}
	if !called {
		t.Error("expected PreDispatch to be called")
	}
}

// TestManagerPriorityOrdering verifies hooks run in priority order.
func TestManagerPriorityOrdering(t *testing.T) {
	m := hook.NewManager()

	var order []string
	record := func(name string) func(*message.Message, any) bool {
		return func(*message.Message, any) bool {
			order = append(order, name)
			return true
		}
	}

	// Register in non-priority order
	m.RegisterPre(hook.NewPreDispatchFunc("low", 10, record("low")))
	m.RegisterPre(hook.NewPreDispatchFunc("high", 100, record("high")))
	m.RegisterPre(hook.NewPreDispatchFunc("mid", 50, record("mid")))

	msg := message.New("test", nil)
	m.RunPreDispatch(&msg, nil)

	expected := []string{"high", "mid", "low"}
	if fmt.Sprint(order) != fmt.Sprint(expected) {
		t.Errorf("order = %v, want %v", order, expected)
	}
}

// TestManagerPostHookOrdering verifies post-hooks run in reverse priority order.
func TestManagerPostHookOrdering(t *testing.T) {
	m := hook.NewManager()

	var order []string
	record := func(name string) func(*hook.Result) {
		return func(*hook.Result) {
			order = append(order, name)
		}
	}

	m.RegisterPost(hook.NewPostDispatchFunc("high", 100, record("high")))
	m.RegisterPost(hook.NewPostDispatchFunc("low", 10, record("low")))
	m.RegisterPost(hook.NewPostDispatchFunc("mid", 50, record("mid")))

	m.RunPostDispatch(&hook.Result{Message: message.New("test", nil)})

	expected := []string{"low", "mid", "high"}
	if fmt.Sprint(order) != fmt.Sprint(expected) {
		t.Errorf("order = %v, want %v", order, expected)
	}
}

// TestManagerCancel verifies hook cancellation.
func TestManagerCancel(t *testing.T) {
	m := hook.NewManager()

	secondCalled := false
	m.RegisterPre(hook.NewPreDispatchFunc("canceller", 100, func(*message.Message, any) bool {
		return false
	}))
	m.RegisterPre(hook.NewPreDispatchFunc("second", 50, func(*message.Message, any) bool {
		secondCalled = true
		return true
	}))

	msg := message.New("test", nil)
	by, ok := m.RunPreDispatch(&msg, nil)
	if ok {
		t.Error("expected RunPreDispatch to return false when cancelled")
	}
	if by != "canceller" {
		t.Errorf("cancelled by %q, want %q", by, "canceller")
	}
	if secondCalled {
		t.Error("second hook should not be called after cancellation")
	}
}

// TestManagerUnregisterAndReplace verifies removal and replacement by name.
func TestManagerUnregisterAndReplace(t *testing.T) {
	m := hook.NewManager()

	m.RegisterPre(hook.NewPreDispatchFunc("hook1", 100, nil))
	m.RegisterPre(hook.NewPreDispatchFunc("hook2", 50, nil))
	m.RegisterPre(hook.NewPreDispatchFunc("hook2", 200, nil))

	if m.PreHookCount() != 2 {
		t.Fatalf("expected 2 hooks, got %d", m.PreHookCount())
	}
	names := m.PreHookNames()
	if names[0] != "hook2" {
		t.Errorf("expected replaced hook2 to run first, got %v", names)
	}

	if !m.Unregister("hook1") {
		t.Error("expected hook1 to be removed")
	}
	if m.Unregister("nonexistent") {
		t.Error("should not remove non-existent hook")
	}
	if m.PreHookCount() != 1 {
		t.Errorf("expected 1 hook after removal, got %d", m.PreHookCount())
	}
}

// TestManagerEqualPriorityKeepsOrder verifies ties run in registration order.
func TestManagerEqualPriorityKeepsOrder(t *testing.T) {
	m := hook.NewManager()
	for _, name := range []string{"a", "b", "c"} {
		m.RegisterPre(hook.NewPreDispatchFunc(name, 100, nil))
	}
	if got := fmt.Sprint(m.PreHookNames()); got != "[a b c]" {
		t.Errorf("names = %s, want [a b c]", got)
	}
}

// TestManagerScoped verifies scoped hooks only see their namespace's types.
func TestManagerScoped(t *testing.T) {
	m := hook.NewManager()

	var pre, post []string
	m.RegisterScoped("cart", hook.NewPreDispatchFunc("cart-pre", 100, func(msg *message.Message, _ any) bool {
		pre = append(pre, msg.Type)
		return msg.Type != "cart/locked"
	}))
	m.RegisterScoped("cart", hook.NewPostDispatchFunc("cart-post", 100, func(r *hook.Result) {
		post = append(post, r.Message.Type)
	}))
	m.Register(hook.NewPreDispatchFunc("all", 10, nil))

	for _, typ := range []string{"cart/add", "cart/items/clear", "carts/add", "user/login", "cart/locked"} {
		msg := message.New(typ, nil)
		by, ok := m.RunPreDispatch(&msg, nil)
		if typ == "cart/locked" {
			if ok || by != "cart-pre" {
				t.Errorf("cart/locked: got (%q, %v), want (cart-pre, false)", by, ok)
			}
			continue
		}
		if !ok {
			t.Errorf("%s: unexpectedly cancelled by %q", typ, by)
		}
		m.RunPostDispatch(&hook.Result{Message: msg})
	}

	if got := fmt.Sprint(pre); got != "[cart/add cart/items/clear cart/locked]" {
		t.Errorf("pre saw %s", got)
	}
	if got := fmt.Sprint(post); got != "[cart/add cart/items/clear]" {
		t.Errorf("post saw %s", got)
	}

	scope, ok := m.Scope("cart-pre")
	if !ok || scope != "cart" {
		t.Errorf("Scope(cart-pre) = %q, %v", scope, ok)
	}
	if scope, _ := m.Scope("all"); scope != "" {
		t.Errorf("Scope(all) = %q, want empty", scope)
	}
}

// TestManagerRegisterCombined verifies Register adds to both lists.
func TestManagerRegisterCombined(t *testing.T) {
	m := hook.NewManager()
	m.Register(hook.NewAuditHook(nil))

	if m.PreHookCount() != 1 || m.PostHookCount() != 1 {
		t.Errorf("expected audit hook in both lists, got pre=%d post=%d", m.PreHookCount(), m.PostHookCount())
	}

	if !m.Unregister("audit") {
		t.Error("expected audit hook to be removed")
	}
	m.Clear()
	if m.PreHookCount() != 0 || m.PostHookCount() != 0 {
		t.Error("expected no hooks after Clear")
	}
}

type recordingLogger struct {
	entries []string
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.entries = append(l.entries, "debug:"+msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.entries = append(l.entries, "warn:"+msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.entries = append(l.entries, "error:"+msg) }

// TestAuditHook verifies audit logging per status.
func TestAuditHook(t *testing.T) {
	logger := &recordingLogger{}
	h := hook.NewAuditHook(logger)

	msg := message.New("cart/add", nil)
	h.PreDispatch(&msg, nil)
	h.PostDispatch(&hook.Result{Message: msg, Status: hook.StatusOK})
	h.PostDispatch(&hook.Result{Message: msg, Status: hook.StatusError, Err: errValidationFailed})
	h.PostDispatch(&hook.Result{Message: msg, Status: hook.StatusCancelled})

	expected := []string{"debug:dispatch start", "debug:dispatch complete", "error:dispatch failed", "warn:dispatch cancelled"}
	if fmt.Sprint(logger.entries) != fmt.Sprint(expected) {
		t.Errorf("entries = %v, want %v", logger.entries, expected)
	}
}

// TestValidationHook verifies validation cancels invalid messages.
func TestValidationHook(t *testing.T) {
	h := hook.NewValidationHook(func(msg message.Message) error {
		if msg.Type == "bad" {
			return errValidationFailed
		}
		return nil
	})

	good := message.New("good", nil)
	if !h.PreDispatch(&good, nil) {
		t.Error("expected valid message to pass")
	}

	bad := message.New("bad", nil)
	if h.PreDispatch(&bad, nil) {
		t.Error("expected invalid message to be cancelled")
	}
	if !errors.Is(h.LastError(), errValidationFailed) {
		t.Errorf("LastError() = %v, want %v", h.LastError(), errValidationFailed)
	}
}

// TestTracingHook verifies one span per dispatch.
func TestTracingHook(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	h := hook.NewTracingHook(provider.Tracer("test"))

	ok := message.New("cart/add", nil)
	h.PreDispatch(&ok, nil)
	h.PostDispatch(&hook.Result{Message: ok, Status: hook.StatusOK})

	failed := message.New("cart/remove", nil)
	h.PreDispatch(&failed, nil)
	h.PostDispatch(&hook.Result{Message: failed, Status: hook.StatusError, Err: errValidationFailed})

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Name() != "dispatch cart/add" {
		t.Errorf("span name = %q, want %q", spans[0].Name(), "dispatch cart/add")
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("expected error status on failed dispatch, got %v", spans[1].Status().Code)
	}

	// A result without an open span is ignored.
	h.PostDispatch(&hook.Result{Message: message.New("orphan", nil)})
	if len(recorder.Ended()) != 2 {
		t.Error("expected orphan result to be ignored")
	}
}

func TestStatusString(t *testing.T) {
	tests := map[hook.Status]string{
		hook.StatusOK:        "ok",
		hook.StatusNoOp:      "no-op",
		hook.StatusError:     "error",
		hook.StatusCancelled: "cancelled",
		hook.Status(99):      "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
