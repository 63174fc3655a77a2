// Package tree provides copy-on-write helpers for the immutable global state.
//
// State values are nested map[string]any documents. None of the functions in
// this package modify their inputs: every update returns a new map along the
// changed path and shares every untouched subtree with the input.
package tree

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/dshills/keystate/internal/path"
)

// ErrNotMap indicates an update addressed a key inside a non-map value.
var ErrNotMap = errors.New("tree: value is not a map")

// Map is the concrete type of every interior node of the state tree.
type Map = map[string]any

// Get returns the value stored under key.
func Get(state any, key string) (any, bool) {
	m, ok := state.(Map)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// GetIn returns the value addressed by p. The root path addresses state itself.
func GetIn(state any, p path.Path) (any, bool) {
	current := state
	for _, seg := range p.Segments() {
		v, ok := Get(current, seg)
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// With returns a copy of state with key set to value.
// A nil state is treated as an empty map. When the stored value is already
// the same as value, state itself is returned.
func With(state any, key string, value any) (any, error) {
	if state == nil {
		return Map{key: value}, nil
	}
	m, ok := state.(Map)
	if !ok {
		return nil, fmt.Errorf("%w: cannot set %q on %T", ErrNotMap, key, state)
	}
	if existing, ok := m[key]; ok && Same(existing, value) {
		return state, nil
	}

	out := make(Map, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out, nil
}

// SetIn returns a copy of state with the value at p replaced.
// Missing intermediate maps are created. Setting the root path returns value.
func SetIn(state any, p path.Path, value any) (any, error) {
	segments := p.Segments()
	if len(segments) == 0 {
		return value, nil
	}
	return setIn(state, segments, value)
}

// setIn recursively rebuilds the maps along segments.
func setIn(state any, segments []string, value any) (any, error) {
	key := segments[0]
	if len(segments) == 1 {
		return With(state, key, value)
	}

	child, _ := Get(state, key)
	updated, err := setIn(child, segments[1:], value)
	if err != nil {
		return nil, err
	}
	return With(state, key, updated)
}

// Assign returns a copy of state with every field shallow-copied in, skipping
// the excluded keys. A nil state is treated as an empty map.
func Assign(state any, fields Map, exclude ...string) (any, error) {
	var base Map
	switch s := state.(type) {
	case nil:
		base = Map{}
	case Map:
		base = s
	default:
		return nil, fmt.Errorf("%w: cannot assign fields onto %T", ErrNotMap, state)
	}

	out := make(Map, len(base)+len(fields))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fields {
		if contains(exclude, k) {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// Merge deep-merges src over dst without modifying either.
// Maps are merged recursively; any other src value replaces dst.
func Merge(dst, src any) any {
	dstMap, dstIsMap := dst.(Map)
	srcMap, srcIsMap := src.(Map)
	if !dstIsMap || !srcIsMap {
		return src
	}

	out := make(Map, len(dstMap)+len(srcMap))
	for k, v := range dstMap {
		out[k] = v
	}
	for k, v := range srcMap {
		if existing, ok := out[k]; ok {
			out[k] = Merge(existing, v)
			continue
		}
		out[k] = v
	}
	return out
}

// Clone creates a deep copy of maps and slices within v.
func Clone(v any) any {
	switch val := v.(type) {
	case Map:
		if val == nil {
			return Map(nil)
		}
		out := make(Map, len(val))
		for k, item := range val {
			out[k] = Clone(item)
		}
		return out
	case []any:
		if val == nil {
			return []any(nil)
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// Keys returns the sorted keys of a map state.
func Keys(state any) []string {
	m, ok := state.(Map)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Same reports whether a and b are the same value by reference.
// Maps, slices, pointers, channels and funcs compare by identity; other
// comparable values compare with ==.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if va.Type().Comparable() {
		return safeEqual(a, b)
	}
	return false
}

// safeEqual compares values whose dynamic type is comparable but may still
// panic, e.g. structs holding interface fields with slices.
func safeEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}

// Equal reports whether a and b are deeply equal.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
