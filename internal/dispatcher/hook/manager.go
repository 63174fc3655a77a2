package hook

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/path"
)

// entry is a registered hook and the namespace path it is limited to.
type entry[H Hook] struct {
	hook  H
	scope path.Path
	seq   uint64
}

// covers reports whether a message of actionType falls under the scope.
// Synthesized types are "<namespace path>/<local name>", so a scope of
// "cart" covers "cart/add" and "cart/items/clear" but not "carts/add".
func (e entry[H]) covers(actionType string) bool {
	return path.Path(actionType).HasPrefix(e.scope)
}

// Manager orders dispatch hooks by priority and filters them by scope.
// Hooks with equal priority run in registration order.
type Manager struct {
	mu   sync.RWMutex
	pre  []entry[PreDispatchHook]
	post []entry[PostDispatchHook]
	seq  uint64
}

// NewManager creates a new hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds h to the pre and post lists it implements. It sees every
// message.
func (m *Manager) Register(h Hook) {
	m.RegisterScoped("", h)
}

// RegisterScoped adds h so that it only sees messages whose action type lies
// under scope. An empty scope covers every message. Registering a name again
// replaces the earlier hook and its scope.
func (m *Manager) RegisterScoped(scope path.Path, h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pre, ok := h.(PreDispatchHook); ok {
		m.pre = add(m, m.pre, pre, scope, preOrder)
	}
	if post, ok := h.(PostDispatchHook); ok {
		m.post = add(m, m.post, post, scope, postOrder)
	}
}

// RegisterPre adds an unscoped pre-dispatch hook.
func (m *Manager) RegisterPre(h PreDispatchHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pre = add(m, m.pre, h, "", preOrder)
}

// RegisterPost adds an unscoped post-dispatch hook.
func (m *Manager) RegisterPost(h PostDispatchHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.post = add(m, m.post, h, "", postOrder)
}

// add is shared by the pre and post lists. Callers hold m.mu.
func add[H Hook](m *Manager, list []entry[H], h H, scope path.Path, order func(a, b int) int) []entry[H] {
	m.seq++
	list = slices.DeleteFunc(list, func(e entry[H]) bool { return e.hook.Name() == h.Name() })
	list = append(list, entry[H]{hook: h, scope: scope, seq: m.seq})
	slices.SortStableFunc(list, func(a, b entry[H]) int {
		if c := order(a.hook.Priority(), b.hook.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return list
}

// Pre-hooks run highest priority first, post-hooks highest priority last.
func preOrder(a, b int) int  { return cmp.Compare(b, a) }
func postOrder(a, b int) int { return cmp.Compare(a, b) }

// Unregister removes the named hook from both lists.
func (m *Manager) Unregister(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.pre) + len(m.post)
	m.pre = slices.DeleteFunc(m.pre, func(e entry[PreDispatchHook]) bool { return e.hook.Name() == name })
	m.post = slices.DeleteFunc(m.post, func(e entry[PostDispatchHook]) bool { return e.hook.Name() == name })
	return len(m.pre)+len(m.post) < before
}

// RunPreDispatch runs the pre-dispatch hooks covering msg in priority order.
// A hook may rewrite msg, and later hooks are matched against the rewritten
// type. When a hook cancels, RunPreDispatch stops and returns its name and
// false.
func (m *Manager) RunPreDispatch(msg *message.Message, state any) (string, bool) {
	m.mu.RLock()
	hooks := slices.Clone(m.pre)
	m.mu.RUnlock()

	for _, e := range hooks {
		if !e.covers(msg.Type) {
			continue
		}
		if !e.hook.PreDispatch(msg, state) {
			return e.hook.Name(), false
		}
	}
	return "", true
}

// RunPostDispatch runs the post-dispatch hooks covering the result's message.
func (m *Manager) RunPostDispatch(result *Result) {
	m.mu.RLock()
	hooks := slices.Clone(m.post)
	m.mu.RUnlock()

	for _, e := range hooks {
		if e.covers(result.Message.Type) {
			e.hook.PostDispatch(result)
		}
	}
}

// Scope returns the scope the named hook was registered with.
func (m *Manager) Scope(name string) (path.Path, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.pre {
		if e.hook.Name() == name {
			return e.scope, true
		}
	}
	for _, e := range m.post {
		if e.hook.Name() == name {
			return e.scope, true
		}
	}
	return "", false
}

// PreHookCount returns the number of registered pre-dispatch hooks.
func (m *Manager) PreHookCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pre)
}

// PostHookCount returns the number of registered post-dispatch hooks.
func (m *Manager) PostHookCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.post)
}

// PreHookNames returns the pre-dispatch hook names in run order.
func (m *Manager) PreHookNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return names(m.pre)
}

// PostHookNames returns the post-dispatch hook names in run order.
func (m *Manager) PostHookNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return names(m.post)
}

func names[H Hook](list []entry[H]) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.hook.Name()
	}
	return out
}

// Clear removes all hooks.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pre = nil
	m.post = nil
}
