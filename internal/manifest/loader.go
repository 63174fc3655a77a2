package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/keystate/internal/script"
)

// DefaultMaxIncludeDepth limits nested includes.
const DefaultMaxIncludeDepth = 8

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	fs.FS
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Format identifies a file encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// Loader reads manifests from a file system.
type Loader struct {
	fs         FileSystem
	maxDepth   int
	scriptOpts []script.StateOption
}

// NewLoader creates a loader reading from fsys.
// A nil fsys means the OS file system.
func NewLoader(fsys FileSystem) *Loader {
	if fsys == nil {
		fsys = DefaultFS()
	}
	return &Loader{fs: fsys, maxDepth: DefaultMaxIncludeDepth}
}

// SetMaxDepth sets the include depth limit.
func (l *Loader) SetMaxDepth(depth int) {
	l.maxDepth = depth
}

// SetScriptTimeout bounds each call into a Lua reducer built by l.
func (l *Loader) SetScriptTimeout(d time.Duration) {
	l.scriptOpts = append(l.scriptOpts, script.WithExecutionTimeout(d))
}

// Load reads the manifest at path and resolves its includes.
func Load(path string) (*Manifest, error) {
	return NewLoader(nil).Load(path)
}

// Load reads the manifest at path and resolves its includes.
// Included files become children of the including namespace, after the
// inline children, in the order listed.
func (l *Loader) Load(path string) (*Manifest, error) {
	return l.LoadWithIncludes(path, l.maxDepth)
}

// LoadWithIncludes loads a manifest and processes include lists.
// The maxDepth parameter limits nested includes to prevent infinite loops.
func (l *Loader) LoadWithIncludes(path string, maxDepth int) (*Manifest, error) {
	if maxDepth <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncludeDepth, path)
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := decode(path, data, &m, true); err != nil {
		return nil, err
	}

	if err := l.resolve(&m, path, maxDepth); err != nil {
		return nil, err
	}
	return &m, nil
}

// resolve stamps the source file and loads includes, recursing into inline
// children.
func (l *Loader) resolve(m *Manifest, source string, maxDepth int) error {
	m.Source = source
	baseDir := filepath.Dir(source)

	for i := range m.Children {
		if err := l.resolve(&m.Children[i], source, maxDepth); err != nil {
			return err
		}
	}

	for _, inc := range m.Include {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(baseDir, inc)
		}

		child, err := l.LoadWithIncludes(incPath, maxDepth-1)
		if err != nil {
			return fmt.Errorf("loading include %s: %w", incPath, err)
		}
		m.Children = append(m.Children, *child)
	}
	m.Include = nil
	return nil
}

// ReadFile reads a file relative to the manifest that declared it.
func (l *Loader) ReadFile(m *Manifest, name string) ([]byte, error) {
	return l.fs.ReadFile(m.resolvePath(name))
}

// resolvePath resolves name against the directory of the manifest's source.
func (m *Manifest) resolvePath(name string) string {
	if filepath.IsAbs(name) || m.Source == "" {
		return name
	}
	return filepath.Join(filepath.Dir(m.Source), name)
}

// Files returns every file the manifest was built from: the manifest
// files themselves and the script files its actions load. Each file is
// listed once, in first-seen order.
func (m *Manifest) Files() []string {
	seen := make(map[string]bool)
	var files []string
	add := func(f string) {
		if f != "" && !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}

	var walk func(*Manifest)
	walk = func(n *Manifest) {
		add(n.Source)
		for _, a := range n.Actions {
			if a.File != "" {
				add(n.resolvePath(a.File))
			}
		}
		for i := range n.Children {
			walk(&n.Children[i])
		}
	}
	walk(m)
	return files
}

// decode parses data in the format implied by path into v.
// With strict set unknown fields are rejected.
func decode(path string, data []byte, v any, strict bool) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		err = dec.Decode(v)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		err = dec.Decode(v)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		err = dec.Decode(v)
	}
	if err != nil {
		return parseError(path, err)
	}
	return nil
}

// parseError wraps a decoder error with its position when one is known.
func parseError(path string, err error) *ParseError {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}

	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		pe.Line, pe.Column = derr.Position()
		return pe
	}

	var serr *json.SyntaxError
	if errors.As(err, &serr) {
		pe.Message = fmt.Sprintf("%s (offset %d)", serr.Error(), serr.Offset)
		return pe
	}

	// yaml.v3 reports positions only inside the message text
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		pe.Line = line
	}
	return pe
}
