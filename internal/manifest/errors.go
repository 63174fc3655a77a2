package manifest

import (
	"errors"
	"fmt"
)

// Manifest errors.
var (
	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("manifest: unsupported file format")

	// ErrIncludeDepth indicates includes nest deeper than the loader allows.
	ErrIncludeDepth = errors.New("manifest: include depth exceeded")

	// ErrUnknownKind indicates an action with an unknown reducer kind.
	ErrUnknownKind = errors.New("manifest: unknown reducer kind")

	// ErrInvalidAction indicates an action spec missing required fields.
	ErrInvalidAction = errors.New("manifest: invalid action")

	// ErrInvalidMessages indicates a message log of the wrong shape.
	ErrInvalidMessages = errors.New("manifest: invalid message log")

	// ErrNotList indicates append or remove on a value that is not a list.
	ErrNotList = errors.New("manifest: value is not a list")

	// ErrNotNumber indicates increment on a value that is not a number.
	ErrNotNumber = errors.New("manifest: value is not a number")
)

// ParseError represents an error while parsing a manifest or message file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
