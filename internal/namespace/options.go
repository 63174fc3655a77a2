package namespace

import (
	"github.com/dshills/keystate/internal/actiontype"
)

// options holds construction settings for a namespace.
type options struct {
	defaultState any
	hasDefault   bool
	registry     *actiontype.Registry
	container    Container
}

// Option configures a namespace.
type Option func(*options)

// WithDefault sets the namespace's declared default state.
func WithDefault(state any) Option {
	return func(o *options) {
		o.defaultState = state
		o.hasDefault = true
	}
}

// WithRegistry sets the registry action types are issued from at mount.
// Only the root's registry is used. Defaults to actiontype.Default().
func WithRegistry(r *actiontype.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithContainer mounts the namespace built by Create into c.
// It has no effect on New.
func WithContainer(c Container) Option {
	return func(o *options) {
		o.container = c
	}
}

// ActionOption configures an action.
type ActionOption func(*Action)

// WithInitiator sets the action's initiator.
func WithInitiator(fn Initiator) ActionOption {
	return func(a *Action) {
		a.initiator = fn
	}
}

// WithReducer sets the action's reducer.
func WithReducer(fn Reducer) ActionOption {
	return func(a *Action) {
		a.reducer = fn
	}
}

// WithType overrides the synthesized action type with an explicit identifier.
func WithType(actionType string) ActionOption {
	return func(a *Action) {
		a.explicit = actionType
	}
}
