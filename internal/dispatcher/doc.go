// Package dispatcher holds the current state snapshot and applies messages to it.
//
// A Dispatcher is the container a namespace tree mounts into. It owns exactly
// one reducer, installed once together with the initial state, and serializes
// every reduction pass so that passes never interleave.
//
// # Dispatch
//
// When a message is dispatched:
//
//  1. The reentrancy guard is taken (sync mode rejects a second pass with
//     ErrReentrantDispatch)
//  2. Pre-dispatch hooks are called (can modify or cancel the message)
//  3. The reducer runs against the current snapshot (with optional panic recovery)
//  4. A reducer error leaves the snapshot untouched and is returned wrapped
//  5. Otherwise the result is published; an identical value is a no-op
//  6. Subscribers are notified, then post-dispatch hooks
//  7. Metrics are recorded (if enabled)
//
// # Snapshots
//
// State returns the current snapshot without locking. Snapshots are
// immutable: reducers build new values and share unchanged subtrees.
//
// # Usage
//
// Synchronous:
//
//	d := dispatcher.NewWithDefaults()
//	if err := d.Install(reduce, initial); err != nil {
//	    return err
//	}
//	err := d.Dispatch(message.New("cart/add", payload))
//
// With async dispatch:
//
//	d := dispatcher.New(dispatcher.DefaultConfig().WithAsyncDispatch(100))
//	_ = d.Install(reduce, initial)
//	d.Start(ctx)
//	_ = d.Dispatch(msg)
//	d.Stop()
//
// # Hooks
//
// Pre-dispatch hooks can modify or cancel messages:
//
//	d.Hooks().RegisterPre(hook.NewPreDispatchFunc("gate", 100,
//	    func(msg *message.Message, state any) bool {
//	        return msg.Type != "blocked"
//	    }))
//
// Post-dispatch hooks observe results:
//
//	d.Use(hook.NewAuditHook(logger))
package dispatcher
