package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/phase"
	"github.com/hupe1980/agentcore/queue"
	"github.com/hupe1980/agentcore/worker"
)

// ErrNotRunning is returned by Submit when the worker loop is not alive.
var ErrNotRunning = errors.New("runtime not running")

// ErrNotReady is returned by Start when the worker's scheduler never became
// ready within the ready timeout. Fatal: the machine moves to Error and the
// runtime does not retry.
var ErrNotReady = errors.New("worker scheduler not ready")

// Options configures a Runtime.
type Options struct {
	// Logger records lifecycle, dispatch and shutdown events.
	Logger logging.Logger
	// Notifier receives phase changes, output stream items and lifecycle
	// callbacks. Defaults to NoOpNotifier.
	Notifier core.Notifier
	// SubmitTimeout bounds how long Submit waits for the loop to accept an
	// event before reporting starvation.
	SubmitTimeout time.Duration
	// ReadyTimeout bounds the startup wait for the worker's scheduler.
	ReadyTimeout time.Duration
	// StopTimeout bounds Stop end to end when the caller passes zero.
	StopTimeout time.Duration
	// ForwardOutputs controls whether output channels are pumped to the
	// Notifier. Disable when the caller reads OutputChunks, OutputFinal
	// and ToolLogs itself.
	ForwardOutputs bool
	// QueueCapacity bounds each input channel buffer.
	QueueCapacity int
	// State carries conversation history and pending approvals across
	// restarts. A fresh one is created when nil.
	State *core.AgentState
}

// Runtime orchestrates the event loop of a single agent. It owns the queue
// set, the phase machine and the worker, and is the only component external
// callers interact with directly.
type Runtime struct {
	name     string
	logger   logging.Logger
	notifier core.Notifier

	queues  *queue.Set
	machine *phase.Machine
	worker  *worker.Worker

	submitTimeout  time.Duration
	readyTimeout   time.Duration
	stopTimeout    time.Duration
	forwardOutputs bool

	mu       sync.Mutex
	running  bool
	pumpStop chan struct{}
	pumpWG   sync.WaitGroup
}

// New constructs a Runtime for the named agent with the given handler
// registry. Nothing runs until Start is called.
func New(name string, registry core.HandlerRegistry, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Logger:         logging.NoOpLogger{},
		Notifier:       core.NoOpNotifier{},
		SubmitTimeout:  time.Second,
		ReadyTimeout:   5 * time.Second,
		StopTimeout:    10 * time.Second,
		QueueCapacity:  256,
		ForwardOutputs: true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	queues := queue.NewSet(func(o *queue.Options) {
		o.Capacity = opts.QueueCapacity
		o.Logger = opts.Logger
	})

	machine := phase.NewMachine(func(o *phase.Options) {
		o.Notifier = opts.Notifier
		o.Logger = opts.Logger
	})

	r := &Runtime{
		name:           name,
		logger:         opts.Logger,
		notifier:       opts.Notifier,
		queues:         queues,
		machine:        machine,
		submitTimeout:  opts.SubmitTimeout,
		readyTimeout:   opts.ReadyTimeout,
		stopTimeout:    opts.StopTimeout,
		forwardOutputs: opts.ForwardOutputs,
	}

	r.worker = worker.New(name, queues, machine, registry, func(o *worker.Options) {
		o.Logger = opts.Logger
		o.State = opts.State
		o.OnExit = r.onWorkerExit
	})

	return r
}

// onWorkerExit finalizes the phase machine when the loop goroutine dies.
// A clean halt ends the loop; an escaped panic is surfaced as a runtime
// error unless the machine already reached a terminal phase.
func (r *Runtime) onWorkerExit(err error) {
	if err != nil && !r.machine.Current().Terminal() {
		r.machine.NotifyError("worker", err)
		return
	}
	r.machine.NotifyLoopEnded()
}

// Start brings the runtime live: it moves the phase machine into its
// startup sequence, spins up the worker, waits (bounded) for the worker's
// scheduler to become ready, submits the bootstrap event and starts the
// output pumps. Idempotent: calling Start on a running runtime is a
// warning-logged no-op. Startup failures are fatal; the machine moves to
// Error and the runtime must be rebuilt.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		r.logger.Warn("runtime already running name=%s", r.name)
		return nil
	}

	r.machine.NotifyStarting()
	r.worker.Start()

	if err := r.awaitWorkerReady(ctx); err != nil {
		r.worker.Stop(r.stopTimeout)
		r.machine.NotifyError("runtime", err)
		return fmt.Errorf("start runtime %s: %w", r.name, err)
	}

	if err := r.Submit(ctx, core.NewBootstrapEvent()); err != nil {
		r.worker.Stop(r.stopTimeout)
		r.machine.NotifyError("runtime", fmt.Errorf("bootstrap submit: %w", err))
		return fmt.Errorf("submit bootstrap event: %w", err)
	}

	r.pumpStop = make(chan struct{})
	if r.forwardOutputs {
		r.startPump(string(core.KindOutputChunk), r.queues.OutputChunks(), r.notifier.OnOutputChunk)
		r.startPump(string(core.KindOutputFinal), r.queues.OutputFinal(), r.notifier.OnOutputFinal)
		r.startPump(string(core.KindToolLog), r.queues.ToolLogs(), r.notifier.OnToolLog)
	}

	r.running = true
	r.logger.Info("runtime started name=%s", r.name)

	return nil
}

// awaitWorkerReady polls for the worker's scheduler handle until it appears,
// bounded by the ready timeout. A worker that dies or never installs its
// handle within the bound is a fatal startup error.
func (r *Runtime) awaitWorkerReady(ctx context.Context) error {
	deadline := time.Now().Add(r.readyTimeout)
	for {
		if h := r.worker.Handle(); h != nil && h.Alive() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrNotReady
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// startPump forwards one output channel to a notifier callback until the
// stream-end sentinel arrives or the runtime stops. Sentinels are consumed,
// never forwarded; the pump keeps reading so later output is not stranded.
func (r *Runtime) startPump(name string, ch <-chan *core.Event, deliver func(ev *core.Event)) {
	stop := r.pumpStop
	r.pumpWG.Add(1)

	go func() {
		defer r.pumpWG.Done()
		for {
			select {
			case ev := <-ch:
				if core.IsStreamEnd(ev) {
					r.logger.Debug("output stream ended name=%s channel=%s", r.name, name)
					continue
				}
				deliver(ev)
			case <-stop:
				return
			}
		}
	}()
}

// Submit routes an external event onto the agent's loop. The enqueue itself
// runs on the loop goroutine so a wedged worker is detected instead of
// silently buffered: when the loop does not accept the event within the
// submit timeout, a starvation warning is logged and the event is dropped.
func (r *Runtime) Submit(ctx context.Context, ev *core.Event) error {
	if !r.worker.IsAlive() {
		return ErrNotRunning
	}

	if !ev.Valid() {
		return fmt.Errorf("invalid event kind=%s id=%s", ev.Kind, ev.ID)
	}

	sctx, cancel := context.WithTimeout(ctx, r.submitTimeout)
	defer cancel()

	err := r.worker.Schedule(sctx, func() error {
		return r.queues.EnqueueByKind(sctx, ev)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		r.logger.Warn("submit starved, loop not accepting work name=%s kind=%s event_id=%s", r.name, ev.Kind, ev.ID)
		return fmt.Errorf("submit %s event: %w", ev.Kind, err)
	case errors.Is(err, worker.ErrNotAlive):
		return ErrNotRunning
	default:
		return fmt.Errorf("submit %s event: %w", ev.Kind, err)
	}
}

// Sink exposes the raw enqueue surface for producers that hold events of a
// known kind, bypassing the loop-side starvation check.
func (r *Runtime) Sink() core.EventSink { return r.queues }

// Phase returns the machine's current phase.
func (r *Runtime) Phase() phase.Phase { return r.machine.Current() }

// IsRunning reports whether Start succeeded and Stop has not completed.
func (r *Runtime) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// WorkerHandle returns the cross-thread scheduler handle of the live worker,
// or nil when the runtime is not running.
func (r *Runtime) WorkerHandle() *worker.Handle { return r.worker.Handle() }

// Backlog returns the number of accepted but not yet dispatched input
// events.
func (r *Runtime) Backlog() int { return r.queues.InputBacklog() }

// Stop shuts the runtime down: shutdown is announced on the phase machine,
// the worker is joined, queued input is drained within the timeout, output
// streams are terminated, and the machine is finalized. A zero timeout uses
// the configured default. Stop never hangs; leftover work past the deadline
// is logged and abandoned. A stopped runtime cannot be restarted; build a
// new one.
func (r *Runtime) Stop(timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		r.logger.Warn("stop on runtime that is not running name=%s", r.name)
		return nil
	}

	if timeout <= 0 {
		timeout = r.stopTimeout
	}
	deadline := time.Now().Add(timeout)

	r.machine.NotifyShutdownInitiated()

	stopErr := r.worker.Stop(timeout)
	if stopErr != nil {
		r.logger.Warn("worker did not stop cleanly name=%s err=%v", r.name, stopErr)
	}

	if remaining := time.Until(deadline); remaining > 0 {
		r.queues.GracefulShutdown(remaining)
	}

	r.queues.EnqueueStreamEnd(string(core.KindOutputChunk))
	r.queues.EnqueueStreamEnd(string(core.KindOutputFinal))
	r.queues.EnqueueStreamEnd(string(core.KindToolLog))

	close(r.pumpStop)
	r.pumpWG.Wait()
	r.queues.Close()

	r.machine.NotifyFinalShutdownComplete()
	r.running = false
	r.logger.Info("runtime stopped name=%s final_phase=%s", r.name, r.machine.Current())

	return stopErr
}
