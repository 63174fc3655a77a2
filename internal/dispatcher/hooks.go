package dispatcher

import (
	"github.com/dshills/keystate/internal/dispatcher/hook"
	"github.com/dshills/keystate/internal/path"
)

// Re-export hook package types for convenience.
type (
	// Hook is the base interface for named, prioritized hooks.
	Hook = hook.Hook

	// HookManager manages hooks with priority ordering.
	HookManager = hook.Manager

	// Result describes one dispatch.
	Result = hook.Result

	// Status indicates the outcome of a dispatch.
	Status = hook.Status
)

// Dispatch statuses.
const (
	StatusOK        = hook.StatusOK
	StatusNoOp      = hook.StatusNoOp
	StatusError     = hook.StatusError
	StatusCancelled = hook.StatusCancelled
)

// Subscriber is notified after every message that was reduced successfully,
// whether or not the state changed.
type Subscriber func(result Result)

// Use registers a hook with the dispatcher's hook manager.
// Hooks implementing both interfaces run before and after reduction.
func (d *Dispatcher) Use(h Hook) {
	d.hooks.Register(h)
}

// UseScoped registers a hook that only sees messages whose action type lies
// under the namespace at scope.
func (d *Dispatcher) UseScoped(scope path.Path, h Hook) {
	d.hooks.RegisterScoped(scope, h)
}

// Hooks returns the hook manager.
func (d *Dispatcher) Hooks() *HookManager {
	return d.hooks
}
