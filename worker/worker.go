package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/phase"
	"github.com/hupe1980/agentcore/queue"
)

// ErrNotAlive is returned when a cross-thread call targets a worker whose
// loop is not running.
var ErrNotAlive = errors.New("worker not alive")

// ErrStopTimeout is returned by Stop when the loop did not exit within the
// allotted time. The join is still attempted; the caller must not hang.
var ErrStopTimeout = errors.New("worker did not stop within timeout")

// Handle bridges calls from arbitrary goroutines onto the worker's
// scheduler. It stays valid after the worker exits; Alive reports whether
// scheduled work can still run.
type Handle struct {
	tasks chan func()
	alive *atomic.Bool
	done  chan struct{}
}

// Alive reports whether the worker loop is running.
func (h *Handle) Alive() bool { return h.alive.Load() }

// Schedule submits fn to the worker's scheduler and waits for its
// completion, both bounded by ctx. On ctx expiry the closure may still run
// later; it is queued, not revoked.
func (h *Handle) Schedule(ctx context.Context, fn func() error) error {
	if !h.Alive() {
		return ErrNotAlive
	}

	res := make(chan error, 1)
	select {
	case h.tasks <- func() { res <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrNotAlive
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrNotAlive
	}
}

// Options configures a Worker.
type Options struct {
	// TaskBuffer bounds the scheduler's task channel.
	TaskBuffer int
	// Logger records loop lifecycle and dispatch failures.
	Logger logging.Logger
	// OnExit fires when the loop goroutine exits for any reason. A non-nil
	// error means the loop died abnormally (escaped panic).
	OnExit func(err error)
	// State is the worker-confined agent state. A fresh one is created
	// when nil.
	State *core.AgentState
}

// Worker runs one agent's event loop on a dedicated goroutine. All exported
// methods are safe for concurrent use; event handling itself is strictly
// serialized inside the loop.
type Worker struct {
	name     string
	queues   *queue.Set
	registry core.HandlerRegistry
	machine  *phase.Machine
	logger   logging.Logger
	onExit   func(err error)
	hc       *core.HandlerContext

	mu     sync.Mutex
	alive  atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	handle *Handle

	taskBuffer int
}

// New constructs a Worker bound to its queue set, phase machine and handler
// registry. The registry is injected explicitly; the worker performs no
// handler discovery of its own.
func New(name string, queues *queue.Set, machine *phase.Machine, registry core.HandlerRegistry, optFns ...func(o *Options)) *Worker {
	opts := Options{
		TaskBuffer: 64,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	state := opts.State
	if state == nil {
		state = core.NewAgentState(name)
	}

	return &Worker{
		name:       name,
		queues:     queues,
		registry:   registry,
		machine:    machine,
		logger:     opts.Logger,
		onExit:     opts.OnExit,
		taskBuffer: opts.TaskBuffer,
		hc:         core.NewHandlerContext(name, queues, state, machine, opts.Logger),
	}
}

// Start spins up the loop goroutine and its scheduler. Idempotent: calling
// Start on an already-alive worker is a warning-logged no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.alive.Load() {
		w.logger.Warn("worker already running name=%s", w.name)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.handle = &Handle{
		tasks: make(chan func(), w.taskBuffer),
		alive: &w.alive,
		done:  w.done,
	}
	w.alive.Store(true)

	go w.run(ctx, w.handle.tasks, w.done)
}

// run is the loop body. One select services the scheduler and the
// multiplexed input stream; each arm fully completes before the next
// iteration, so only one dispatch is ever in flight.
func (w *Worker) run(ctx context.Context, tasks <-chan func(), done chan struct{}) {
	var exitErr error
	defer func() {
		if r := recover(); r != nil {
			exitErr = fmt.Errorf("worker loop panic: %v", r)
			w.logger.Error("worker loop died name=%s err=%v", w.name, exitErr)
		}
		w.alive.Store(false)
		close(done)
		if w.onExit != nil {
			w.onExit(exitErr)
		}
	}()

	w.logger.Debug("worker loop started name=%s", w.name)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("worker loop halting name=%s", w.name)
			return
		case task := <-tasks:
			task()
		case it := <-w.queues.InputStream():
			w.dispatch(ctx, it)
		}
	}
}

// dispatch routes one dequeued event through the handler registry. The
// bootstrap event completes the startup handshake instead of counting as
// regular work.
func (w *Worker) dispatch(ctx context.Context, it queue.Tagged) {
	if it.Event.IsBootstrap() {
		w.handleEvent(ctx, it)
		w.machine.NotifyStarted()
		return
	}

	w.machine.NotifyWorkDequeued()
	w.handleEvent(ctx, it)
	if w.queues.InputBacklog() == 0 {
		w.machine.NotifyWorkDrained()
	}
}

// handleEvent runs the registered handler for one event. Handler errors and
// panics are contained per event: logged, reported as a phase error, and the
// loop continues with the next event.
func (w *Worker) handleEvent(ctx context.Context, it queue.Tagged) {
	ev := it.Event
	w.hc.State.AddEvent(ev)

	handler, ok := w.registry.HandlerFor(ev.Kind)
	if !ok {
		w.logger.Warn("no handler registered kind=%s event_id=%s", ev.Kind, ev.ID)
		return
	}

	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		err = handler.Handle(ctx, ev, w.hc)
	}()

	if err != nil {
		w.logger.Error("event handling failed channel=%s event_id=%s duration=%s err=%v", it.Channel, ev.ID, time.Since(start), err)
		w.machine.NotifyError("handler", err)
		return
	}

	w.logger.Debug("event handled channel=%s event_id=%s duration=%s", it.Channel, ev.ID, time.Since(start))
}

// Handle returns the cross-thread scheduler handle, or nil if the worker has
// never been started or is not alive.
func (w *Worker) Handle() *Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handle == nil || !w.alive.Load() {
		return nil
	}
	return w.handle
}

// Schedule bridges fn onto the worker's scheduler from any goroutine. See
// Handle.Schedule for the timeout contract.
func (w *Worker) Schedule(ctx context.Context, fn func() error) error {
	w.mu.Lock()
	h := w.handle
	w.mu.Unlock()
	if h == nil {
		return ErrNotAlive
	}
	return h.Schedule(ctx, fn)
}

// IsAlive reports whether the loop goroutine is running.
func (w *Worker) IsAlive() bool { return w.alive.Load() }

// Stop signals the loop to halt and joins it, bounded by timeout. Work still
// running past the timeout is abandoned: the call logs a warning and returns
// ErrStopTimeout instead of hanging; the goroutine itself still exits once
// the current handler yields.
func (w *Worker) Stop(timeout time.Duration) error {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	if done == nil {
		w.logger.Warn("stop on worker that was never started name=%s", w.name)
		return nil
	}

	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		w.logger.Warn("worker stop timed out name=%s timeout=%s", w.name, timeout)
		return ErrStopTimeout
	}
}
