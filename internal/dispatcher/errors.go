package dispatcher

import "errors"

// Dispatcher errors.
var (
	// ErrReentrantDispatch indicates a dispatch arrived while another was in progress.
	ErrReentrantDispatch = errors.New("dispatcher: reentrant dispatch")

	// ErrNotInstalled indicates no reducer has been installed yet.
	ErrNotInstalled = errors.New("dispatcher: no reducer installed")

	// ErrAlreadyInstalled indicates Install was called twice.
	ErrAlreadyInstalled = errors.New("dispatcher: reducer already installed")

	// ErrNilReducer indicates Install was called without a reducer.
	ErrNilReducer = errors.New("dispatcher: reducer is nil")

	// ErrDispatcherStopped indicates the dispatcher has been stopped.
	ErrDispatcherStopped = errors.New("dispatcher: dispatcher is stopped")

	// ErrActionCancelled indicates the message was cancelled by a hook.
	ErrActionCancelled = errors.New("dispatcher: message cancelled by hook")

	// ErrReducerPanic indicates the reducer panicked.
	ErrReducerPanic = errors.New("dispatcher: reducer panic")
)
