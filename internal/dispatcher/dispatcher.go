// Package dispatcher is the single entry point through which messages reach the state tree.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keystate/internal/dispatcher/hook"
	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/tree"
)

// ReduceFunc is the sole state-transition function of a dispatcher.
// It must not modify state in place.
type ReduceFunc func(state any, msg message.Message) (any, error)

// snapshot boxes a state value for atomic publication.
type snapshot struct {
	value any
}

// Dispatcher owns the current state snapshot and serializes reduction.
type Dispatcher struct {
	mu sync.RWMutex

	// Installed reducer
	reduce ReduceFunc

	// Current snapshot; readers never lock
	state atomic.Pointer[snapshot]

	// Set while a reduction pass is running
	dispatching atomic.Bool

	// Configuration
	config Config

	// Metrics
	metrics *Metrics

	// Hooks and subscribers
	hooks       *hook.Manager
	subscribers map[uint64]Subscriber
	nextSubID   uint64

	// Async dispatch
	queue    chan message.Message
	errs     chan error
	dropped  atomic.Uint64
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	wg       sync.WaitGroup
}

// New creates a new dispatcher with the given configuration.
func New(config Config) *Dispatcher {
	d := &Dispatcher{
		config:      config,
		hooks:       hook.NewManager(),
		subscribers: make(map[uint64]Subscriber),
		done:        make(chan struct{}),
	}
	d.state.Store(&snapshot{})

	if config.AsyncDispatch {
		size := config.QueueSize
		if size <= 0 {
			size = 100
		}
		d.queue = make(chan message.Message, size)
		d.errs = make(chan error, size)
	}

	if config.EnableMetrics {
		d.metrics = NewMetrics()
	}

	return d
}

// NewWithDefaults creates a new dispatcher with default configuration.
func NewWithDefaults() *Dispatcher {
	return New(DefaultConfig())
}

// Install sets the reducer and the initial snapshot. It may be called once.
func (d *Dispatcher) Install(reduce ReduceFunc, initial any) error {
	if reduce == nil {
		return ErrNilReducer
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reduce != nil {
		return ErrAlreadyInstalled
	}
	d.reduce = reduce
	d.state.Store(&snapshot{value: initial})
	return nil
}

// Installed returns true once a reducer has been installed.
func (d *Dispatcher) Installed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reduce != nil
}

// State returns the current snapshot. Snapshots are immutable and may be
// read from any goroutine.
func (d *Dispatcher) State() any {
	return d.state.Load().value
}

// Dispatch submits a message.
//
// In synchronous mode the message is reduced before Dispatch returns, and a
// call made while another reduction is running fails with
// ErrReentrantDispatch. In async mode the message is queued and reduced later
// in arrival order; reduction failures are reported on Errors.
func (d *Dispatcher) Dispatch(msg message.Message) error {
	if !d.config.AsyncDispatch {
		_, err := d.Apply(msg)
		return err
	}

	if !d.Installed() {
		return ErrNotInstalled
	}

	select {
	case <-d.done:
		return ErrDispatcherStopped
	default:
	}

	select {
	case d.queue <- msg:
		return nil
	case <-d.done:
		return ErrDispatcherStopped
	}
}

// Apply reduces a message synchronously and returns the dispatch result.
func (d *Dispatcher) Apply(msg message.Message) (Result, error) {
	if !d.dispatching.CompareAndSwap(false, true) {
		err := fmt.Errorf("%w: %s", ErrReentrantDispatch, msg.Type)
		return Result{Message: msg, Status: StatusError, Err: err}, err
	}
	defer d.dispatching.Store(false)

	d.mu.RLock()
	reduce := d.reduce
	d.mu.RUnlock()

	if reduce == nil {
		return Result{Message: msg, Status: StatusError, Err: ErrNotInstalled}, ErrNotInstalled
	}

	startTime := time.Now()
	prev := d.State()
	result := Result{Message: msg, Prev: prev, Next: prev}

	// Run pre-dispatch hooks
	if by, ok := d.hooks.RunPreDispatch(&result.Message, prev); !ok {
		result.Status = StatusCancelled
		result.CancelledBy = by
		result.Err = fmt.Errorf("%w: %s by %s", ErrActionCancelled, result.Message.Type, by)
		d.finish(&result, startTime)
		return result, result.Err
	}

	next, err := d.reduceWithRecovery(reduce, prev, result.Message)
	if err != nil {
		result.Status = StatusError
		result.Err = err
		d.finish(&result, startTime)
		return result, err
	}

	result.Next = next
	if tree.Same(prev, next) {
		result.Status = StatusNoOp
	} else {
		result.Status = StatusOK
		d.state.Store(&snapshot{value: next})
	}

	d.finish(&result, startTime)
	return result, nil
}

// reduceWithRecovery runs the reducer, converting panics when configured.
func (d *Dispatcher) reduceWithRecovery(reduce ReduceFunc, state any, msg message.Message) (next any, err error) {
	if d.config.RecoverFromPanic {
		defer func() {
			if r := recover(); r != nil {
				next = nil
				err = fmt.Errorf("%w: %s: %v", ErrReducerPanic, msg.Type, r)
				if d.metrics != nil {
					d.metrics.RecordPanic(msg.Type)
				}
			}
		}()
	}

	next, err = reduce(state, msg)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", msg.Type, err)
	}
	return next, nil
}

// finish notifies subscribers and post-dispatch hooks and records metrics.
func (d *Dispatcher) finish(result *Result, startTime time.Time) {
	result.Duration = time.Since(startTime)

	if result.Status == StatusOK || result.Status == StatusNoOp {
		d.mu.RLock()
		subs := make([]Subscriber, 0, len(d.subscribers))
		for _, s := range d.subscribers {
			subs = append(subs, s)
		}
		d.mu.RUnlock()

		for _, s := range subs {
			s(*result)
		}
	}

	d.hooks.RunPostDispatch(result)

	if d.metrics != nil {
		d.metrics.RecordDispatch(result.Message.Type, result.Duration, result.Status)
	}
}

// Subscribe registers fn to be called after each successful reduction.
// Subscribers run inside the reduction pass: in synchronous mode they must
// not call Dispatch. The returned function removes the subscription.
func (d *Dispatcher) Subscribe(fn Subscriber) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSubID
	d.nextSubID++
	d.subscribers[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subscribers, id)
	}
}

// Start starts the async dispatch loop (if enabled).
// The loop runs until ctx is cancelled or Stop is called. Either way the
// dispatcher is stopped afterwards: Dispatch returns ErrDispatcherStopped
// and a stopped dispatcher cannot be started again.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.config.AsyncDispatch {
		return
	}
	if !d.running.CompareAndSwap(false, true) {
		return
	}

	d.wg.Add(1)
	go d.dispatchLoop(ctx)
}

// Stop stops the async dispatch loop after reducing every queued message.
// It must not be called from a subscriber or hook.
func (d *Dispatcher) Stop() {
	d.close()
	d.wg.Wait()

	// Reduce anything the loop never saw: the loop did not run, or a
	// Dispatch raced with its final drain.
	if d.config.AsyncDispatch {
		d.drainQueue()
	}
}

// close marks the dispatcher stopped.
func (d *Dispatcher) close() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
}

// dispatchLoop processes queued messages one at a time.
func (d *Dispatcher) dispatchLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.queue:
			d.process(msg)
		case <-d.done:
			d.drainQueue()
			return
		case <-ctx.Done():
			d.close()
			d.drainQueue()
			return
		}
	}
}

// drainQueue reduces every message still buffered in the queue.
func (d *Dispatcher) drainQueue() {
	for {
		select {
		case msg := <-d.queue:
			d.process(msg)
		default:
			return
		}
	}
}

// process reduces one queued message.
func (d *Dispatcher) process(msg message.Message) {
	if _, err := d.Apply(msg); err != nil {
		select {
		case d.errs <- err:
		default:
			// Error channel full; count the failure instead
			d.dropped.Add(1)
		}
	}
}

// Errors returns the channel reporting async reduction failures.
// Returns nil if async dispatch is not enabled. Failures that arrive while
// the channel is full are counted by DroppedErrors.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// DroppedErrors returns the number of async failures that could not be
// delivered on Errors.
func (d *Dispatcher) DroppedErrors() uint64 {
	return d.dropped.Load()
}

// Metrics returns the metrics collector (may be nil if disabled).
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Config returns the dispatcher configuration.
func (d *Dispatcher) Config() Config {
	return d.config
}
