package namespace

import (
	"errors"

	"github.com/dshills/keystate/internal/actiontype"
)

// Namespace errors.
var (
	// ErrDuplicateActionType indicates two actions resolved to the same type.
	ErrDuplicateActionType = actiontype.ErrDuplicateActionType

	// ErrUnattachedNamespace indicates the tree has not been mounted into a container.
	ErrUnattachedNamespace = errors.New("namespace: namespace is not attached to a mounted root")

	// ErrAlreadyAttached indicates the namespace already has a parent.
	ErrAlreadyAttached = errors.New("namespace: namespace already attached")

	// ErrDuplicateChild indicates a child key is already taken.
	ErrDuplicateChild = errors.New("namespace: duplicate child key")

	// ErrCycle indicates attaching the namespace would create a cycle.
	ErrCycle = errors.New("namespace: attachment would create a cycle")

	// ErrSealed indicates the tree topology is frozen by Mount.
	ErrSealed = errors.New("namespace: tree is mounted and sealed")

	// ErrNotRoot indicates a root-only operation was called on a child.
	ErrNotRoot = errors.New("namespace: not a root namespace")

	// ErrInvalidName indicates a name or key is not a valid path segment.
	ErrInvalidName = errors.New("namespace: invalid name")

	// ErrInvalidDefault indicates a non-map default on a namespace with children.
	ErrInvalidDefault = errors.New("namespace: default state must be a map to hold children")

	// ErrInitiatorArgs indicates the default initiator got unusable arguments.
	ErrInitiatorArgs = errors.New("namespace: default initiator takes zero arguments or one map")

	// ErrReducerPanic indicates an action reducer panicked.
	ErrReducerPanic = errors.New("namespace: reducer panic")

	// ErrNilContainer indicates Mount was called without a container.
	ErrNilContainer = errors.New("namespace: container is nil")
)
