package tree

import (
	"errors"
	"testing"

	"github.com/dshills/keystate/internal/path"
)

func TestGetIn(t *testing.T) {
	state := Map{
		"cart": Map{
			"items": []any{"pen"},
			"meta":  Map{"open": true},
		},
	}

	tests := []struct {
		path path.Path
		want any
		ok   bool
	}{
		{"cart/meta/open", true, true},
		{"cart/missing", nil, false},
		{"cart/items/0", nil, false},
	}

	for _, tt := range tests {
		got, ok := GetIn(state, tt.path)
		if ok != tt.ok || (ok && !Equal(got, tt.want)) {
			t.Errorf("GetIn(%q) = %v, %v; want %v, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}

	root, ok := GetIn(state, path.Root)
	if !ok || !Same(root, state) {
		t.Error("expected root path to return state itself")
	}
}

func TestSetIn_StructuralSharing(t *testing.T) {
	settings := Map{"theme": "dark"}
	cart := Map{"items": []any{}}
	state := Map{"cart": cart, "settings": settings}

	updated, err := SetIn(state, "cart/items", []any{"pen"})
	if err != nil {
		t.Fatalf("SetIn() error = %v", err)
	}

	next := updated.(Map)
	if Same(next, state) {
		t.Fatal("expected a new root map")
	}
	if !Same(next["settings"], settings) {
		t.Error("expected untouched subtree to be shared by reference")
	}
	if Same(next["cart"], cart) {
		t.Error("expected changed subtree to be copied")
	}
	if len(cart["items"].([]any)) != 0 {
		t.Error("expected original state to be unmodified")
	}

	items, _ := GetIn(next, "cart/items")
	if !Equal(items, []any{"pen"}) {
		t.Errorf("items = %v, want [pen]", items)
	}
}

func TestSetIn_CreatesIntermediateMaps(t *testing.T) {
	updated, err := SetIn(nil, "a/b/c", 1)
	if err != nil {
		t.Fatalf("SetIn() error = %v", err)
	}
	want := Map{"a": Map{"b": Map{"c": 1}}}
	if !Equal(updated, want) {
		t.Errorf("SetIn() = %v, want %v", updated, want)
	}
}

func TestSetIn_NotMap(t *testing.T) {
	_, err := SetIn(Map{"a": 1}, "a/b", 2)
	if !errors.Is(err, ErrNotMap) {
		t.Errorf("expected ErrNotMap, got %v", err)
	}
}

func TestWith_SameValueKeepsReference(t *testing.T) {
	inner := Map{"x": 1}
	state := Map{"inner": inner}

	got, err := With(state, "inner", inner)
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if !Same(got, state) {
		t.Error("expected unchanged value to keep the parent reference")
	}
}

func TestAssign(t *testing.T) {
	state := Map{"a": 1, "b": 2}

	got, err := Assign(state, Map{"b": 3, "type": "x/y"}, "type")
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	want := Map{"a": 1, "b": 3}
	if !Equal(got, want) {
		t.Errorf("Assign() = %v, want %v", got, want)
	}
	if state["b"] != 2 {
		t.Error("expected input state to be unmodified")
	}

	if _, err := Assign("scalar", Map{"a": 1}); !errors.Is(err, ErrNotMap) {
		t.Errorf("expected ErrNotMap for scalar state, got %v", err)
	}
}

func TestMerge(t *testing.T) {
	dst := Map{
		"editor": Map{"tabSize": 4, "wrap": false},
		"keep":   "yes",
	}
	src := Map{
		"editor": Map{"wrap": true},
		"new":    []any{1},
	}

	got := Merge(dst, src)
	want := Map{
		"editor": Map{"tabSize": 4, "wrap": true},
		"keep":   "yes",
		"new":    []any{1},
	}
	if !Equal(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
	if dst["editor"].(Map)["wrap"] != false {
		t.Error("expected dst to be unmodified")
	}
}

func TestMerge_OrderIndependentForDisjointKeys(t *testing.T) {
	a := Map{"x": Map{"n": 1}}
	b := Map{"y": Map{"n": 2}}

	if !Equal(Merge(a, b), Merge(b, a)) {
		t.Error("expected merge of disjoint maps to be order independent")
	}
}

func TestClone(t *testing.T) {
	src := Map{"list": []any{Map{"k": "v"}}}
	dst := Clone(src).(Map)

	dst["list"].([]any)[0].(Map)["k"] = "changed"
	if src["list"].([]any)[0].(Map)["k"] != "v" {
		t.Error("expected clone to be deep")
	}
}

func TestSame(t *testing.T) {
	m := Map{}
	s := []any{1}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same map", m, m, true},
		{"equal maps", Map{"a": 1}, Map{"a": 1}, false},
		{"same slice", s, s, true},
		{"strings", "a", "a", true},
		{"ints", 1, 2, false},
		{"nil", nil, nil, true},
		{"nil and map", nil, m, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Same(tt.a, tt.b); got != tt.want {
				t.Errorf("Same() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	got := Keys(Map{"b": 1, "a": 2})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
	if Keys(1) != nil {
		t.Error("expected nil keys for scalar")
	}
}
