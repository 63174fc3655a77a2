// Package actiontype guarantees that every action instance receives a unique,
// human-readable type identifier.
//
// Identifiers are synthesized from the owning namespace path and the action's
// local name ("cart/add"), or taken verbatim from an explicit override. The
// registry is process-scoped: Default returns the shared instance and Reset
// clears it so tests do not leak registrations into each other.
package actiontype

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/keystate/internal/path"
)

var (
	// ErrDuplicateActionType indicates an identifier is already registered.
	ErrDuplicateActionType = errors.New("actiontype: duplicate action type")

	// ErrEmptyType indicates an empty identifier or local name.
	ErrEmptyType = errors.New("actiontype: action type is required")
)

// Registry records every action type issued in a process.
type Registry struct {
	mu    sync.RWMutex
	types map[string]path.Path // identifier -> owning namespace path
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]path.Path),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Reset clears the process-wide registry.
func Reset() {
	defaultRegistry.Clear()
}

// Synthesize builds the identifier for localName inside the namespace at p.
//
// Example: Synthesize("app/cart", "add") -> "app/cart/add"
func Synthesize(p path.Path, localName string) string {
	return p.Child(localName).String()
}

// Register issues an identifier for an action of the namespace at nsPath.
// A non-empty explicit identifier is used verbatim; otherwise one is
// synthesized from nsPath and localName.
func (r *Registry) Register(nsPath path.Path, localName, explicit string) (string, error) {
	id := strings.TrimSpace(explicit)
	if id == "" {
		localName = strings.TrimSpace(localName)
		if localName == "" {
			return "", ErrEmptyType
		}
		id = Synthesize(nsPath, localName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.types == nil {
		r.types = make(map[string]path.Path)
	}
	if owner, exists := r.types[id]; exists {
		return "", fmt.Errorf("%w: %s (owned by namespace %q)", ErrDuplicateActionType, id, owner)
	}
	r.types[id] = nsPath
	return id, nil
}

// Unregister releases an identifier.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.types, id)
}

// Owner returns the namespace path an identifier was registered for.
func (r *Registry) Owner(id string) (path.Path, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.types[id]
	return p, ok
}

// Has returns true if the identifier is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[id]
	return ok
}

// List returns all registered identifiers, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered identifiers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Clear removes all registered identifiers.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[string]path.Path)
}
