package path

import "strings"

// Path is the location of a namespace in the global state tree.
type Path string

// Separator is the character used to separate path segments.
const Separator = "/"

// Root is the path of the root namespace.
const Root Path = ""

// String returns the path as a string.
func (p Path) String() string {
	return string(p)
}

// IsRoot returns true for the empty path.
func (p Path) IsRoot() bool {
	return p == Root
}

// Segments returns the path split by the separator.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), Separator)
}

// Len returns the number of segments in the path.
func (p Path) Len() int {
	if p == "" {
		return 0
	}
	return strings.Count(string(p), Separator) + 1
}

// Parent returns the path with the last segment removed.
// The parent of a single-segment path is Root.
//
// Example: "app/cart/items" -> "app/cart"
func (p Path) Parent() Path {
	s := string(p)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return Root
	}
	return Path(s[:idx])
}

// Child returns a child path by appending a segment.
//
// Example: "app".Child("cart") -> "app/cart"
func (p Path) Child(segment string) Path {
	if p == "" {
		return Path(segment)
	}
	return Path(string(p) + Separator + segment)
}

// Base returns the last segment of the path.
//
// Example: "app/cart/items" -> "items"
func (p Path) Base() string {
	s := string(p)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// Head returns the first segment of the path.
//
// Example: "app/cart/items" -> "app"
func (p Path) Head() string {
	s := string(p)
	idx := strings.Index(s, Separator)
	if idx < 0 {
		return s
	}
	return s[:idx]
}

// HasPrefix returns true if the path starts with the given prefix on a
// segment boundary. Every path has the Root prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix == "" {
		return true
	}
	s := string(p)
	pre := string(prefix)
	if !strings.HasPrefix(s, pre) {
		return false
	}
	if len(s) == len(pre) {
		return true
	}
	return s[len(pre)] == '/'
}

// Rel returns p relative to base. The second result is false when p is not
// base or a descendant of base.
//
// Example: "app/cart/items".Rel("app") -> "cart/items", true
func (p Path) Rel(base Path) (Path, bool) {
	if !p.HasPrefix(base) {
		return "", false
	}
	if base == "" {
		return p, true
	}
	if len(p) == len(base) {
		return Root, true
	}
	return p[len(base)+1:], true
}

// IsValid returns true if every segment of the path is a valid segment.
// The root path is valid.
func (p Path) IsValid() bool {
	if p == "" {
		return true
	}
	for _, seg := range p.Segments() {
		if !ValidSegment(seg) {
			return false
		}
	}
	return true
}

// ValidSegment reports whether s can be used as a single path segment.
// A valid segment is non-empty, contains no separator and no surrounding
// whitespace.
func ValidSegment(s string) bool {
	if s == "" {
		return false
	}
	if strings.Contains(s, Separator) {
		return false
	}
	return strings.TrimSpace(s) == s
}

// Join joins multiple segments into a path.
func Join(segments ...string) Path {
	return Path(strings.Join(segments, Separator))
}
