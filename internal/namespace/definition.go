package namespace

import "fmt"

// Definition declares a namespace subtree.
type Definition struct {
	// Name is the declared name; also the attachment key unless Key is set.
	Name string

	// Key overrides the attachment key under the parent.
	Key string

	// Default is the declared default state. Nil means none.
	Default any

	// Children are attached in order.
	Children []Definition

	// Actions are declared in order.
	Actions []ActionDefinition
}

// ActionDefinition declares one action.
type ActionDefinition struct {
	Name      string
	Type      string
	Initiator Initiator
	Reducer   Reducer
}

// Create instantiates def and, transitively, its children and actions.
// Options apply to the top namespace only. With WithContainer the result is
// mounted as a root; otherwise it is returned detached.
func Create(def Definition, opts ...Option) (*Namespace, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ns, err := build(def, opts)
	if err != nil {
		return nil, err
	}

	if o.container != nil {
		if err := ns.Mount(o.container); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

// build creates one namespace and recurses into its children.
func build(def Definition, opts []Option) (*Namespace, error) {
	var nsOpts []Option
	if def.Default != nil {
		nsOpts = append(nsOpts, WithDefault(def.Default))
	}
	nsOpts = append(nsOpts, opts...)

	ns, err := New(def.Name, nsOpts...)
	if err != nil {
		return nil, err
	}

	for _, ad := range def.Actions {
		var actionOpts []ActionOption
		if ad.Type != "" {
			actionOpts = append(actionOpts, WithType(ad.Type))
		}
		if ad.Initiator != nil {
			actionOpts = append(actionOpts, WithInitiator(ad.Initiator))
		}
		if ad.Reducer != nil {
			actionOpts = append(actionOpts, WithReducer(ad.Reducer))
		}
		if _, err := ns.AddAction(ad.Name, actionOpts...); err != nil {
			return nil, err
		}
	}

	for _, cd := range def.Children {
		child, err := build(cd, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", childKey(cd), err)
		}
		if err := ns.AttachAs(childKey(cd), child); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

func childKey(def Definition) string {
	if def.Key != "" {
		return def.Key
	}
	return def.Name
}
