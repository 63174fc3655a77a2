// Package hook provides extensible pre/post dispatch hooks for the dispatcher.
package hook

import (
	"github.com/dshills/keystate/internal/message"
)

// Hook is the base interface for all dispatch hooks.
type Hook interface {
	// Name returns a unique identifier for this hook.
	Name() string

	// Priority returns the hook priority.
	// Higher values run first for pre-hooks, last for post-hooks.
	// Standard priorities:
	//   1000+ = system/critical hooks
	//   500-999 = framework hooks
	//   100-499 = extension hooks
	//   0-99 = user hooks
	Priority() int
}

// PreDispatchHook is called before a message is reduced.
type PreDispatchHook interface {
	Hook

	// PreDispatch is called before reduction with the current snapshot.
	// It may modify the message.
	// Returns false to cancel the dispatch.
	PreDispatch(msg *message.Message, state any) bool
}

// PostDispatchHook is called after a message is reduced.
type PostDispatchHook interface {
	Hook

	// PostDispatch is called after reduction completes or fails.
	PostDispatch(result *Result)
}

// PreDispatchFunc wraps a function as a PreDispatchHook.
type PreDispatchFunc struct {
	name     string
	priority int
	fn       func(msg *message.Message, state any) bool
}

// NewPreDispatchFunc creates a new PreDispatchFunc hook.
func NewPreDispatchFunc(name string, priority int, fn func(msg *message.Message, state any) bool) *PreDispatchFunc {
	return &PreDispatchFunc{
		name:     name,
		priority: priority,
		fn:       fn,
	}
}

// Name implements Hook.
func (f *PreDispatchFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PreDispatchFunc) Priority() int { return f.priority }

// PreDispatch implements PreDispatchHook.
func (f *PreDispatchFunc) PreDispatch(msg *message.Message, state any) bool {
	if f.fn == nil {
		return true
	}
	return f.fn(msg, state)
}

// PostDispatchFunc wraps a function as a PostDispatchHook.
type PostDispatchFunc struct {
	name     string
	priority int
	fn       func(result *Result)
}

// NewPostDispatchFunc creates a new PostDispatchFunc hook.
func NewPostDispatchFunc(name string, priority int, fn func(result *Result)) *PostDispatchFunc {
	return &PostDispatchFunc{
		name:     name,
		priority: priority,
		fn:       fn,
	}
}

// Name implements Hook.
func (f *PostDispatchFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PostDispatchFunc) Priority() int { return f.priority }

// PostDispatch implements PostDispatchHook.
func (f *PostDispatchFunc) PostDispatch(result *Result) {
	if f.fn != nil {
		f.fn(result)
	}
}

// CombinedHook implements both PreDispatchHook and PostDispatchHook.
type CombinedHook interface {
	PreDispatchHook
	PostDispatchHook
}
