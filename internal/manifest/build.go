package manifest

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/namespace"
	"github.com/dshills/keystate/internal/script"
)

// Tree is a namespace tree built from a manifest.
// Close releases the Lua states its reducers hold.
type Tree struct {
	Root *namespace.Namespace

	scripts []*script.Reducer
}

// Close releases every script reducer in the tree.
func (t *Tree) Close() error {
	var errs []error
	for _, s := range t.scripts {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.scripts = nil
	return errors.Join(errs...)
}

// Build creates the namespace tree m declares, reading script files from
// the OS file system. Options apply to the top namespace as in
// namespace.Create; with namespace.WithContainer the tree is mounted.
func Build(m *Manifest, opts ...namespace.Option) (*Tree, error) {
	return NewLoader(nil).Build(m, opts...)
}

// Build creates the namespace tree m declares.
func (l *Loader) Build(m *Manifest, opts ...namespace.Option) (*Tree, error) {
	var scripts []*script.Reducer
	release := func() {
		for _, s := range scripts {
			s.Close()
		}
	}

	def, err := l.definition(m, &scripts)
	if err != nil {
		release()
		return nil, err
	}

	root, err := namespace.Create(def, opts...)
	if err != nil {
		release()
		return nil, err
	}
	return &Tree{Root: root, scripts: scripts}, nil
}

// LoadTree loads the manifest at path and builds it.
func (l *Loader) LoadTree(path string, opts ...namespace.Option) (*Tree, error) {
	m, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	return l.Build(m, opts...)
}

// definition converts m and its children into a namespace definition.
func (l *Loader) definition(m *Manifest, scripts *[]*script.Reducer) (namespace.Definition, error) {
	def := namespace.Definition{
		Name:    m.Name,
		Key:     m.Key,
		Default: m.Default,
	}

	for _, spec := range m.Actions {
		if spec.Name == "" {
			return def, fmt.Errorf("%w: action in %q has no name", ErrInvalidAction, m.Name)
		}

		reducer, err := l.reducerFor(m, spec, scripts)
		if err != nil {
			return def, err
		}

		initiator := namespace.Initiator(payloadInitiator)
		if spec.EffectiveKind() == KindMerge {
			initiator = namespace.DefaultInitiator
		}

		def.Actions = append(def.Actions, namespace.ActionDefinition{
			Name:      spec.Name,
			Type:      spec.Type,
			Initiator: initiator,
			Reducer:   reducer,
		})
	}

	for i := range m.Children {
		child, err := l.definition(&m.Children[i], scripts)
		if err != nil {
			return def, err
		}
		def.Children = append(def.Children, child)
	}
	return def, nil
}

// payloadInitiator sends its argument as the payload. No arguments send a
// nil payload; several are sent as a list.
func payloadInitiator(c *namespace.Context, args ...any) (*message.Message, error) {
	switch len(args) {
	case 0:
		return c.Message(nil), nil
	case 1:
		return c.Message(args[0]), nil
	default:
		return c.Message(slices.Clone(args)), nil
	}
}
