// Package manifest loads namespace trees and message logs from files.
//
// A manifest declares one namespace: its name, default state, actions and
// children. Children may live in separate files pulled in with include.
// TOML, YAML and JSON are accepted, picked by file extension:
//
//	name = "shop"
//	include = ["user.toml"]
//
//	[default]
//	version = 1
//
//	[[children]]
//	name = "cart"
//	default = { items = [] }
//
//	[[children.actions]]
//	name = "add"
//	kind = "append"
//	field = "items"
package manifest

// Reducer kinds.
const (
	KindMerge     = "merge"
	KindSet       = "set"
	KindAppend    = "append"
	KindRemove    = "remove"
	KindIncrement = "increment"
	KindReset     = "reset"
	KindExpr      = "expr"
	KindLua       = "lua"
)

// Manifest declares a namespace subtree.
type Manifest struct {
	Name     string       `toml:"name" yaml:"name" json:"name"`
	Key      string       `toml:"key" yaml:"key" json:"key"`
	Include  []string     `toml:"include" yaml:"include" json:"include"`
	Default  any          `toml:"default" yaml:"default" json:"default"`
	Actions  []ActionSpec `toml:"actions" yaml:"actions" json:"actions"`
	Children []Manifest   `toml:"children" yaml:"children" json:"children"`

	// File the manifest was read from; relative paths resolve against it.
	Source string `toml:"-" yaml:"-" json:"-"`
}

// ActionSpec declares one action and the built-in reducer it uses.
type ActionSpec struct {
	// Name is the local name; Type overrides the synthesized type.
	Name string `toml:"name" yaml:"name" json:"name"`
	Type string `toml:"type" yaml:"type" json:"type"`

	// Kind selects the reducer. Empty means merge.
	Kind string `toml:"kind" yaml:"kind" json:"kind"`

	// Field is the key of the local state the reducer works on.
	// Empty means the whole local state.
	Field string `toml:"field" yaml:"field" json:"field"`

	// Value is used when the message carries no payload: the increment
	// step, the reset value or the value to set.
	Value any `toml:"value" yaml:"value" json:"value"`

	// When is an optional boolean expression; a false result skips the reducer.
	When string `toml:"when" yaml:"when" json:"when"`

	// Expr is the expression computing the new state for kind expr.
	Expr string `toml:"expr" yaml:"expr" json:"expr"`

	// Script or File holds Lua source for kind lua; Function names the
	// function to call.
	Script   string `toml:"script" yaml:"script" json:"script"`
	File     string `toml:"file" yaml:"file" json:"file"`
	Function string `toml:"function" yaml:"function" json:"function"`
}

// EffectiveKind returns the reducer kind, defaulting to merge.
func (a ActionSpec) EffectiveKind() string {
	if a.Kind == "" {
		return KindMerge
	}
	return a.Kind
}
