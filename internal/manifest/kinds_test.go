package manifest

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want any
	}{
		{"ints", 2, 3, int64(5)},
		{"mixed", int64(2), 0.5, 2.5},
		{"uint32", uint32(7), -1, int64(6)},
		{"uint64 in range", uint64(10), 1, int64(11)},
		{"uint64 above int64", uint64(math.MaxUint64), 1, float64(math.MaxUint64) + 1},
		{"int64 overflow", int64(math.MaxInt64), 1, float64(math.MaxInt64) + 1},
		{"int64 underflow", int64(math.MinInt64), -1, float64(math.MinInt64) - 1},
		{"negative step", int64(math.MaxInt64), -1, int64(math.MaxInt64 - 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := add(tt.a, tt.b)
			if err != nil {
				t.Fatalf("add(%v, %v) error: %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("add(%v, %v) = %v (%T), want %v (%T)", tt.a, tt.b, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestAddRejectsNonNumbers(t *testing.T) {
	if _, err := add("x", 1); err == nil {
		t.Error("expected error for string operand")
	}
}
