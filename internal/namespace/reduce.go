package namespace

import (
	"fmt"

	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/path"
	"github.com/dshills/keystate/internal/tree"
)

// Reduce is the root reducer installed into the container by Mount.
// Messages whose type is not issued anywhere in the tree return global
// unchanged.
func (n *Namespace) Reduce(global any, msg message.Message) (any, error) {
	if !n.IsRoot() {
		return nil, ErrNotRoot
	}
	ms := n.mount.Load()
	if ms == nil {
		return nil, ErrUnattachedNamespace
	}

	r, ok := ms.routes[msg.Type]
	if !ok {
		return global, nil
	}
	return n.reduceAt(global, r, r.path, msg)
}

// LocalReduce reduces n's local state. A message owned by a descendant is
// delegated to the child on the way to it, a message owned by n goes to its
// action, and anything else leaves local unchanged.
func (n *Namespace) LocalReduce(local any, msg message.Message) (any, error) {
	ms := n.Root().mount.Load()
	if ms == nil {
		return nil, ErrUnattachedNamespace
	}

	r, ok := ms.routes[msg.Type]
	if !ok {
		return local, nil
	}
	rel, ok := r.path.Rel(n.Path())
	if !ok {
		return local, nil
	}
	return n.reduceAt(local, r, rel, msg)
}

// reduceAt routes msg to the namespace at rel, relative to n, and writes
// the resulting slice back copy-on-write. Child delegation is checked
// before n's own actions.
func (n *Namespace) reduceAt(local any, r route, rel path.Path, msg message.Message) (any, error) {
	if !rel.IsRoot() {
		key := rel.Head()
		child, ok := n.Child(key)
		if !ok {
			return local, nil
		}

		slice, _ := tree.Get(local, key)
		rest, _ := rel.Rel(path.Path(key))
		next, err := child.reduceAt(slice, r, rest, msg)
		if err != nil {
			return nil, err
		}
		if tree.Same(slice, next) {
			return local, nil
		}

		updated, err := tree.With(local, key, next)
		if err != nil {
			return nil, fmt.Errorf("reduce %s at %q: %w", msg.Type, n.Path(), err)
		}
		return updated, nil
	}

	if r.action.owner != n {
		return local, nil
	}
	return r.action.Reduce(local, msg)
}
