package namespace

import (
	"fmt"
	"sort"

	"github.com/dshills/keystate/internal/actiontype"
	"github.com/dshills/keystate/internal/dispatcher"
	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/path"
)

// Container holds the global state and runs the installed reducer.
// *dispatcher.Dispatcher satisfies it.
type Container interface {
	Install(reduce dispatcher.ReduceFunc, initial any) error
	State() any
	Dispatch(msg message.Message) error
}

// route is the routing table entry for one action type.
type route struct {
	path   path.Path
	action *Action
}

// mountState is built once by Mount and never modified.
type mountState struct {
	container Container
	registry  *actiontype.Registry
	routes    map[string]route
	arena     *path.Index[*Namespace]
}

// Mount seals the tree rooted at n, issues every action type, builds the
// routing table and installs Reduce and the effective default state into c.
// On failure every type issued so far is released.
func (n *Namespace) Mount(c Container) error {
	if c == nil {
		return ErrNilContainer
	}
	if !n.IsRoot() {
		return fmt.Errorf("mount %q: %w", n.name, ErrNotRoot)
	}
	if n.mount.Load() != nil {
		return fmt.Errorf("mount %q: %w", n.name, ErrSealed)
	}

	registry := n.registry
	if registry == nil {
		registry = actiontype.Default()
	}

	ms := &mountState{
		container: c,
		registry:  registry,
		routes:    make(map[string]route),
		arena:     path.NewIndex[*Namespace](),
	}

	var issued []string
	release := func() {
		for _, id := range issued {
			registry.Unregister(id)
		}
		n.walk(func(ns *Namespace) {
			ns.mu.Lock()
			for _, a := range ns.actions {
				a.actionType = ""
			}
			ns.mu.Unlock()
		})
	}

	var err error
	n.walk(func(ns *Namespace) {
		if err != nil {
			return
		}
		p := ns.Path()
		ms.arena.Insert(p, ns)

		ns.mu.Lock()
		defer ns.mu.Unlock()
		for _, a := range ns.actions {
			id, regErr := registry.Register(p, a.name, a.explicit)
			if regErr != nil {
				err = fmt.Errorf("mount: %w", regErr)
				return
			}
			issued = append(issued, id)
			a.actionType = id
			ms.routes[id] = route{path: p, action: a}
		}
	})
	if err != nil {
		release()
		return err
	}

	if !n.mount.CompareAndSwap(nil, ms) {
		release()
		return fmt.Errorf("mount %q: %w", n.name, ErrSealed)
	}
	if err := c.Install(n.Reduce, n.DefaultState()); err != nil {
		n.mount.Store(nil)
		release()
		return fmt.Errorf("mount %q: %w", n.name, err)
	}
	return nil
}

// walk visits n and its descendants, parents first.
func (n *Namespace) walk(fn func(*Namespace)) {
	fn(n)
	for _, child := range n.Children() {
		child.walk(fn)
	}
}

// Container returns the container the tree is mounted into, or nil.
func (n *Namespace) Container() Container {
	ms := n.Root().mount.Load()
	if ms == nil {
		return nil
	}
	return ms.container
}

// Route returns the path of the namespace owning actionType.
func (n *Namespace) Route(actionType string) (path.Path, bool) {
	ms := n.Root().mount.Load()
	if ms == nil {
		return "", false
	}
	r, ok := ms.routes[actionType]
	return r.path, ok
}

// Types returns every action type in the mounted tree, sorted.
func (n *Namespace) Types() []string {
	ms := n.Root().mount.Load()
	if ms == nil {
		return nil
	}
	types := make([]string, 0, len(ms.routes))
	for t := range ms.routes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
