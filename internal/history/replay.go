package history

import (
	"fmt"

	"github.com/dshills/keystate/internal/dispatcher"
	"github.com/dshills/keystate/internal/message"
)

// Step is one message of a replay and the snapshot it produced.
type Step struct {
	Message message.Message
	State   any
}

// Replay reduces msgs in order starting from initial, without a dispatcher.
// The same inputs always produce the same steps. On error the steps reduced
// so far are returned with it.
func Replay(reduce dispatcher.ReduceFunc, initial any, msgs []message.Message) ([]Step, error) {
	steps := make([]Step, 0, len(msgs))
	state := initial
	for i, msg := range msgs {
		next, err := reduce(state, msg)
		if err != nil {
			return steps, fmt.Errorf("replay message %d (%s): %w", i, msg.Type, err)
		}
		state = next
		steps = append(steps, Step{Message: msg, State: state})
	}
	return steps, nil
}

// Final returns the last snapshot of steps, or initial when there are none.
func Final(initial any, steps []Step) any {
	if len(steps) == 0 {
		return initial
	}
	return steps[len(steps)-1].State
}
