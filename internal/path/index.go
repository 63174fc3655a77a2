package path

import (
	"sort"
	"sync"
)

// Index is a thread-safe segment trie mapping paths to values.
// Lookups are O(k) where k is the number of path segments.
type Index[T any] struct {
	mu   sync.RWMutex
	root *indexNode[T]
	size int
}

// indexNode represents a node in the index trie.
type indexNode[T any] struct {
	children map[string]*indexNode[T]
	value    T
	set      bool // a value terminates at this node
}

// newIndexNode creates a new trie node.
func newIndexNode[T any]() *indexNode[T] {
	return &indexNode[T]{
		children: make(map[string]*indexNode[T]),
	}
}

// NewIndex creates an empty path index.
func NewIndex[T any]() *Index[T] {
	return &Index[T]{
		root: newIndexNode[T](),
	}
}

// Insert stores value at p.
// Returns true if the value was added, false if p already had a value.
func (x *Index[T]) Insert(p Path, value T) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	// Initialize root if zero-value Index is used
	if x.root == nil {
		x.root = newIndexNode[T]()
	}

	node := x.root
	for _, seg := range p.Segments() {
		if node.children[seg] == nil {
			node.children[seg] = newIndexNode[T]()
		}
		node = node.children[seg]
	}

	if node.set {
		return false
	}
	node.value = value
	node.set = true
	x.size++
	return true
}

// Get returns the value stored at exactly p.
func (x *Index[T]) Get(p Path) (T, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var zero T
	node := x.root
	if node == nil {
		return zero, false
	}
	for _, seg := range p.Segments() {
		node = node.children[seg]
		if node == nil {
			return zero, false
		}
	}
	if !node.set {
		return zero, false
	}
	return node.value, true
}

// Longest returns the value stored at the longest prefix of p that has a
// value, along with that prefix.
func (x *Index[T]) Longest(p Path) (T, Path, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var (
		best    T
		bestLen = -1
	)
	node := x.root
	if node == nil {
		return best, "", false
	}
	if node.set {
		best, bestLen = node.value, 0
	}

	segments := p.Segments()
	for i, seg := range segments {
		node = node.children[seg]
		if node == nil {
			break
		}
		if node.set {
			best, bestLen = node.value, i+1
		}
	}

	if bestLen < 0 {
		return best, "", false
	}
	return best, Join(segments[:bestLen]...), true
}

// Walk calls fn for every stored value in depth-first order, visiting a
// parent before its children and siblings in lexical order.
// Walking stops early if fn returns false.
func (x *Index[T]) Walk(fn func(p Path, value T) bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.root == nil {
		return
	}
	x.walk(x.root, Root, fn)
}

// walk recursively visits nodes below node.
func (x *Index[T]) walk(node *indexNode[T], p Path, fn func(Path, T) bool) bool {
	if node.set {
		if !fn(p, node.value) {
			return false
		}
	}

	keys := make([]string, 0, len(node.children))
	for k := range node.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !x.walk(node.children[k], p.Child(k), fn) {
			return false
		}
	}
	return true
}

// Len returns the number of stored values.
func (x *Index[T]) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}
