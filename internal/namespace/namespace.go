package namespace

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/keystate/internal/actiontype"
	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/path"
	"github.com/dshills/keystate/internal/tree"
)

// Namespace is a node of the state tree. It owns the slice of the global
// state at its path, its child namespaces and its actions.
type Namespace struct {
	mu sync.RWMutex

	name         string
	key          string
	parent       *Namespace
	children     []*Namespace
	childByKey   map[string]*Namespace
	actions      []*Action
	actionByName map[string]*Action

	defaultState any
	hasDefault   bool
	registry     *actiontype.Registry

	// Set on the root by Mount
	mount atomic.Pointer[mountState]
}

// New creates a detached namespace. An empty name is allowed for roots and
// for namespaces attached with AttachAs.
func New(name string, opts ...Option) (*Namespace, error) {
	if name != "" && !path.ValidSegment(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Namespace{
		name:         name,
		childByKey:   make(map[string]*Namespace),
		actionByName: make(map[string]*Action),
		defaultState: o.defaultState,
		hasDefault:   o.hasDefault,
		registry:     o.registry,
	}, nil
}

// Name returns the declared name.
func (n *Namespace) Name() string {
	return n.name
}

// Key returns the key the namespace is attached under, or "" for a root.
func (n *Namespace) Key() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.key
}

// Parent returns the parent namespace, or nil for a root.
func (n *Namespace) Parent() *Namespace {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

// IsRoot returns true if the namespace has no parent.
func (n *Namespace) IsRoot() bool {
	return n.Parent() == nil
}

// Root returns the topmost ancestor.
func (n *Namespace) Root() *Namespace {
	current := n
	for {
		parent := current.Parent()
		if parent == nil {
			return current
		}
		current = parent
	}
}

// Path returns the namespace's location relative to its root.
// Paths are fixed once the root is mounted.
func (n *Namespace) Path() path.Path {
	var segments []string
	for current := n; ; {
		current.mu.RLock()
		parent, key := current.parent, current.key
		current.mu.RUnlock()
		if parent == nil {
			break
		}
		segments = append(segments, key)
		current = parent
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return path.Join(segments...)
}

// Mounted returns true once the namespace's root is mounted into a container.
func (n *Namespace) Mounted() bool {
	return n.Root().mount.Load() != nil
}

// Children returns the child namespaces in attachment order.
func (n *Namespace) Children() []*Namespace {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Namespace, len(n.children))
	copy(out, n.children)
	return out
}

// Child returns the child attached under key.
func (n *Namespace) Child(key string) (*Namespace, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.childByKey[key]
	return c, ok
}

// Attach attaches child under its declared name.
func (n *Namespace) Attach(child *Namespace) error {
	if child == nil {
		return fmt.Errorf("%w: nil child", ErrInvalidName)
	}
	return n.AttachAs(child.name, child)
}

// AttachAs attaches child under key.
func (n *Namespace) AttachAs(key string, child *Namespace) error {
	if !path.ValidSegment(key) {
		return fmt.Errorf("%w: child key %q", ErrInvalidName, key)
	}
	if child == nil {
		return fmt.Errorf("%w: nil child %q", ErrInvalidName, key)
	}
	if n.Mounted() || child.mount.Load() != nil {
		return fmt.Errorf("attach %q: %w", key, ErrSealed)
	}
	for current := n; current != nil; current = current.Parent() {
		if current == child {
			return fmt.Errorf("attach %q: %w", key, ErrCycle)
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.hasDefault && n.defaultState != nil {
		if _, ok := n.defaultState.(tree.Map); !ok {
			return fmt.Errorf("attach %q: %w (got %T)", key, ErrInvalidDefault, n.defaultState)
		}
	}
	if _, exists := n.childByKey[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateChild, key)
	}

	child.mu.Lock()
	if child.parent != nil {
		child.mu.Unlock()
		return fmt.Errorf("attach %q: %w", key, ErrAlreadyAttached)
	}
	child.parent = n
	child.key = key
	child.mu.Unlock()

	n.children = append(n.children, child)
	n.childByKey[key] = child
	return nil
}

// NewChild creates a namespace and attaches it under name.
func (n *Namespace) NewChild(name string, opts ...Option) (*Namespace, error) {
	child, err := New(name, opts...)
	if err != nil {
		return nil, err
	}
	if err := n.Attach(child); err != nil {
		return nil, err
	}
	return child, nil
}

// AddAction declares an action under localName. Missing initiator or
// reducer fall back to DefaultInitiator and DefaultReducer.
//
// Two actions may share a local name only when at least one carries a
// WithType override; a second action relying on the synthesized type fails
// with ErrDuplicateActionType. Explicit types are checked for uniqueness
// when the tree is mounted.
func (n *Namespace) AddAction(localName string, opts ...ActionOption) (*Action, error) {
	if !path.ValidSegment(localName) {
		return nil, fmt.Errorf("%w: action name %q", ErrInvalidName, localName)
	}
	if n.Mounted() {
		return nil, fmt.Errorf("add action %q: %w", localName, ErrSealed)
	}

	a := &Action{name: localName, owner: n}
	for _, opt := range opts {
		opt(a)
	}
	if a.initiator == nil {
		a.initiator = DefaultInitiator
	}
	if a.reducer == nil {
		a.reducer = DefaultReducer
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if a.explicit == "" && n.synthesizes(localName) {
		return nil, fmt.Errorf("%w: %q declared twice in namespace %q", ErrDuplicateActionType, localName, n.name)
	}
	n.actions = append(n.actions, a)
	if _, exists := n.actionByName[localName]; !exists {
		n.actionByName[localName] = a
	}
	return a, nil
}

// synthesizes reports whether an action named localName without a type
// override is already declared. Callers hold n.mu.
func (n *Namespace) synthesizes(localName string) bool {
	for _, a := range n.actions {
		if a.name == localName && a.explicit == "" {
			return true
		}
	}
	return false
}

// Action returns the first action declared under localName.
func (n *Namespace) Action(localName string) (*Action, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	a, ok := n.actionByName[localName]
	return a, ok
}

// Actions returns the actions in declaration order.
func (n *Namespace) Actions() []*Action {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Action, len(n.actions))
	copy(out, n.actions)
	return out
}

// DeclaredDefault returns the namespace's own default state, if any.
func (n *Namespace) DeclaredDefault() (any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.defaultState, n.hasDefault
}

// DefaultState returns the effective default state: the declared default
// (an empty map when none was declared) with each child's effective default
// deep-merged in at the child's key.
func (n *Namespace) DefaultState() any {
	n.mu.RLock()
	own := n.defaultState
	if !n.hasDefault || own == nil {
		own = tree.Map{}
	}
	children := make([]*Namespace, len(n.children))
	copy(children, n.children)
	n.mu.RUnlock()

	if len(children) == 0 {
		return own
	}

	out, ok := own.(tree.Map)
	if !ok {
		// Attach rejects children under non-map defaults.
		return own
	}
	for _, child := range children {
		key := child.Key()
		value := child.DefaultState()
		if existing, ok := out[key]; ok {
			value = tree.Merge(existing, value)
		}
		updated, _ := tree.With(out, key, value)
		out = updated.(tree.Map)
	}
	return out
}

// Find returns the descendant at p, relative to n.
func (n *Namespace) Find(p path.Path) (*Namespace, bool) {
	if ms := n.Root().mount.Load(); ms != nil {
		return ms.arena.Get(path.Join(append(n.Path().Segments(), p.Segments()...)...))
	}

	current := n
	for _, seg := range p.Segments() {
		child, ok := current.Child(seg)
		if !ok {
			return nil, false
		}
		current = child
	}
	return current, true
}

// GetState returns the namespace's slice of the container's current state.
// A missing slice reads as nil.
func (n *Namespace) GetState() (any, error) {
	ms := n.Root().mount.Load()
	if ms == nil {
		return nil, ErrUnattachedNamespace
	}
	v, _ := tree.GetIn(ms.container.State(), n.Path())
	return v, nil
}

// Dispatch forwards msg to the container the tree is mounted into.
func (n *Namespace) Dispatch(msg message.Message) error {
	ms := n.Root().mount.Load()
	if ms == nil {
		return ErrUnattachedNamespace
	}
	return ms.container.Dispatch(msg)
}
