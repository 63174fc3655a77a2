package hook

import (
	"time"

	"github.com/dshills/keystate/internal/message"
)

// Status indicates the outcome of a dispatch.
type Status uint8

const (
	// StatusOK indicates the message produced a new snapshot.
	StatusOK Status = iota
	// StatusNoOp indicates the message left the state unchanged.
	StatusNoOp
	// StatusError indicates reduction failed; the snapshot was kept.
	StatusError
	// StatusCancelled indicates a pre-dispatch hook cancelled the message.
	StatusCancelled
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoOp:
		return "no-op"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result describes one dispatch.
type Result struct {
	// Message is the dispatched message after pre-dispatch hooks ran.
	Message message.Message

	// Prev is the snapshot the message was reduced against.
	Prev any

	// Next is the snapshot after reduction. Equal to Prev on failure.
	Next any

	// Status is the dispatch outcome.
	Status Status

	// Err is set when Status is StatusError or StatusCancelled.
	Err error

	// CancelledBy names the pre-dispatch hook that cancelled the message.
	CancelledBy string

	// Duration is the time spent reducing.
	Duration time.Duration
}

// Changed returns true if the dispatch installed a new snapshot.
func (r *Result) Changed() bool {
	return r.Status == StatusOK
}
