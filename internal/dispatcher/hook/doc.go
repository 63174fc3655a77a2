// Package hook provides extensible pre/post dispatch hooks for the dispatcher.
//
// Hooks allow interception of message dispatch for logging, validation,
// tracing, history recording and other cross-cutting concerns. They are
// organized by priority to control execution order. Hooks never take part in
// reduction itself: the state transition stays a pure function of the
// previous snapshot and the message.
//
// # Hook Types
//
// There are two main hook interfaces:
//
//   - PreDispatchHook: Called before a message is reduced. Can cancel it.
//   - PostDispatchHook: Called after reduction with the dispatch Result.
//
// Hooks implement the base Hook interface with Name() and Priority() methods
// for identification and ordering.
//
// # Priority System
//
// Hooks are ordered by priority:
//
//   - Pre-hooks: Higher priority runs first (1000+ = system, 500-999 = framework)
//   - Post-hooks: Lower priority runs first, higher runs last (to see final results)
//
// Standard priority constants are provided:
//
//	PriorityAudit      = 1000 // System/audit hooks
//	PriorityTracing    = 950  // Open spans before anything else runs
//	PriorityValidation = 800  // Validation before processing
//	PriorityHistory    = 500  // Snapshot recording
//
// # Built-in Hooks
//
//   - AuditHook: Logs all dispatched messages through a structured logger
//   - ValidationHook: Custom validation before dispatch
//   - TracingHook: One OpenTelemetry span per dispatch
//
// # Scopes
//
// A hook registered with RegisterScoped only sees messages whose action type
// lies under a namespace path, so a validation hook for "cart" never runs for
// "user/login". Unscoped hooks see every message.
//
// # Usage
//
//	m := hook.NewManager()
//	m.Register(hook.NewAuditHook(logger))
//	m.Register(hook.NewValidationHook(func(msg message.Message) error {
//	    if msg.Type == "" {
//	        return errors.New("untyped message")
//	    }
//	    return nil
//	}))
//	m.RegisterScoped("cart", cartLimits)
package hook
