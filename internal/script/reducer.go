package script

import (
	"fmt"

	"github.com/dshills/keystate/internal/message"
)

// DefaultFunction is the Lua function a reducer calls when none is named.
const DefaultFunction = "reduce"

// Reducer calls a Lua function as a namespace reducer.
//
// The function receives the local state and a message table
// {type, payload, id, source} and returns the new local state. Returning
// nil, or nothing, leaves the state unchanged.
type Reducer struct {
	state *State
	fn    string
}

// NewReducer loads source into a fresh sandboxed state and binds fn.
func NewReducer(source, fn string, opts ...StateOption) (*Reducer, error) {
	if fn == "" {
		fn = DefaultFunction
	}

	state := NewState(opts...)
	if err := state.DoString(source); err != nil {
		state.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	if !state.HasFunction(fn) {
		state.Close()
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, fn)
	}

	return &Reducer{state: state, fn: fn}, nil
}

// Reduce implements namespace.Reducer.
func (r *Reducer) Reduce(state any, msg message.Message) (any, error) {
	result, err := r.state.Call(r.fn, state, messageTable(msg))
	if err != nil {
		return nil, fmt.Errorf("lua %s: %w", r.fn, err)
	}
	if result == nil {
		return state, nil
	}
	return result, nil
}

// Function returns the bound function name.
func (r *Reducer) Function() string {
	return r.fn
}

// Close releases the Lua state.
func (r *Reducer) Close() error {
	return r.state.Close()
}

// messageTable is the form a message takes inside Lua.
func messageTable(msg message.Message) map[string]any {
	return map[string]any{
		"type":    msg.Type,
		"payload": msg.Payload,
		"id":      msg.ID,
		"source":  msg.Source,
	}
}
