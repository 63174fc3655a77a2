package app

import "errors"

// Application errors.
var (
	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNoManifest indicates no manifest path was given.
	ErrNoManifest = errors.New("no manifest given")

	// ErrUnknownFormat indicates an unsupported output format.
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrNoMatch indicates a selection that matched nothing in the state.
	ErrNoMatch = errors.New("selection matched nothing")
)

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
