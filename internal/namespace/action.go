package namespace

import (
	"fmt"
	"maps"

	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/tree"
)

// Initiator turns call arguments into a message.
//
// Returning a message dispatches it immediately, tagged with the action's
// type. Returning nil means nothing is dispatched now; the initiator may keep
// c and call c.Dispatch later from another goroutine.
type Initiator func(c *Context, args ...any) (*message.Message, error)

// Reducer computes the owning namespace's new local state.
// It must not modify state in place; returning state itself means no change.
type Reducer func(state any, msg message.Message) (any, error)

// Action binds an initiator and a reducer to one namespace.
type Action struct {
	name      string
	explicit  string
	owner     *Namespace
	initiator Initiator
	reducer   Reducer

	// Resolved at mount
	actionType string
}

// Name returns the action's local name within its namespace.
func (a *Action) Name() string {
	return a.name
}

// Type returns the action's type identifier.
// It is empty until the tree is mounted.
func (a *Action) Type() string {
	a.owner.mu.RLock()
	defer a.owner.mu.RUnlock()
	return a.actionType
}

// Namespace returns the owning namespace.
func (a *Action) Namespace() *Namespace {
	return a.owner
}

// Initiate runs the initiator with args and dispatches the message it
// returns. The returned message is the one dispatched, or nil.
func (a *Action) Initiate(args ...any) (*message.Message, error) {
	actionType := a.Type()
	if actionType == "" {
		return nil, fmt.Errorf("initiate %s: %w", a.name, ErrUnattachedNamespace)
	}

	c := &Context{ns: a.owner, action: a}
	msg, err := a.initiator(c, args...)
	if err != nil {
		return nil, fmt.Errorf("initiate %s: %w", actionType, err)
	}
	if msg == nil {
		return nil, nil
	}

	out := c.tag(*msg)
	if err := a.owner.Dispatch(out); err != nil {
		return &out, err
	}
	return &out, nil
}

// Reduce applies the action's reducer to the namespace's local state.
// Panics are recovered into ErrReducerPanic.
func (a *Action) Reduce(state any, msg message.Message) (next any, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = fmt.Errorf("%w: %s: %v", ErrReducerPanic, msg.Type, r)
		}
	}()
	return a.reducer(state, msg)
}

// DefaultInitiator builds the payload from a single map argument, without
// its type field. With no arguments the payload is an empty map.
func DefaultInitiator(c *Context, args ...any) (*message.Message, error) {
	switch len(args) {
	case 0:
		return c.Message(map[string]any{}), nil
	case 1:
		if args[0] == nil {
			return c.Message(map[string]any{}), nil
		}
		fields, ok := args[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrInitiatorArgs, args[0])
		}
		payload := maps.Clone(fields)
		delete(payload, message.TypeKey)
		return c.Message(payload), nil
	default:
		return nil, fmt.Errorf("%w: got %d arguments", ErrInitiatorArgs, len(args))
	}
}

// DefaultReducer shallow-merges a map payload, without its type field, into
// the local state. Other payloads leave the state unchanged.
func DefaultReducer(state any, msg message.Message) (any, error) {
	fields, ok := msg.Fields()
	if !ok {
		return state, nil
	}

	if current, ok := state.(tree.Map); ok && !changes(current, fields) {
		return state, nil
	}
	return tree.Assign(state, fields, message.TypeKey)
}

// changes reports whether merging fields into current would alter it.
func changes(current, fields tree.Map) bool {
	for k, v := range fields {
		if k == message.TypeKey {
			continue
		}
		existing, ok := current[k]
		if !ok || !tree.Same(existing, v) {
			return true
		}
	}
	return false
}
