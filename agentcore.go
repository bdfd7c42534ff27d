// Package agentcore provides a high-level façade over the per-agent runtime
// (event queues, phase machine and execution worker) enabling construction of
// event-driven agent loops. Most applications interact with this package by:
//  1. Creating a Host via New() (optionally overriding logger and notifier)
//  2. Adding one or more named runtimes with their handler registries
//  3. Starting the host, submitting events and consuming notifier callbacks
//
// The façade delegates lifecycle and dispatch to runtime.Runtime while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger and a
// real notifier wired to their transport.
package agentcore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/registry"
	"github.com/hupe1980/agentcore/runtime"
)

// Options configures the Host instance.
type Options struct {
	// Logger is shared by all runtimes the host creates. Defaults to the
	// NoOp logger if nil.
	Logger logging.Logger

	// Notifier receives phase changes, output streams and lifecycle
	// callbacks from every hosted runtime. Defaults to NoOpNotifier.
	Notifier core.Notifier

	// SubmitTimeout bounds how long Submit waits for a loop to accept an
	// event before reporting starvation.
	SubmitTimeout time.Duration

	// StopTimeout bounds the shutdown of each runtime.
	StopTimeout time.Duration

	// QueueCapacity sets the input channel buffer size per runtime. Larger
	// buffers reduce blocking but increase memory usage.
	QueueCapacity int
}

// Host aggregates named agent runtimes behind a single lifecycle. Runtimes
// are added before Start and addressed by agent name afterwards.
type Host struct {
	opts Options

	mu       sync.RWMutex
	runtimes map[string]*runtime.Runtime
	started  bool
}

// New creates a Host with optional overrides. Unset options fall back to
// local-development defaults.
func New(optFns ...func(o *Options)) *Host {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		Notifier:      core.NoOpNotifier{},
		SubmitTimeout: time.Second,
		StopTimeout:   10 * time.Second,
		QueueCapacity: 256,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Host{
		opts:     opts,
		runtimes: make(map[string]*runtime.Runtime),
	}
}

// AddAgent creates a runtime for the named agent with the given registry and
// records it under that name. Adding a name twice or adding after Start is
// an error. The returned runtime is not yet running.
func (h *Host) AddAgent(name string, reg *registry.Map) (*runtime.Runtime, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil, fmt.Errorf("add agent %q: host already started", name)
	}
	if _, exists := h.runtimes[name]; exists {
		return nil, fmt.Errorf("add agent %q: name already registered", name)
	}

	rt := runtime.New(name, reg, func(o *runtime.Options) {
		o.Logger = h.opts.Logger
		o.Notifier = h.opts.Notifier
		o.SubmitTimeout = h.opts.SubmitTimeout
		o.StopTimeout = h.opts.StopTimeout
		o.QueueCapacity = h.opts.QueueCapacity
	})

	h.runtimes[name] = rt

	return rt, nil
}

// Runtime returns the runtime registered under name.
func (h *Host) Runtime(name string) (*runtime.Runtime, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rt, ok := h.runtimes[name]
	return rt, ok
}

// Agents returns the names of all registered runtimes.
func (h *Host) Agents() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.runtimes))
	for name := range h.runtimes {
		names = append(names, name)
	}
	return names
}

// Start brings every registered runtime live. On the first failure the
// runtimes already started are stopped again and the error is returned.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		h.opts.Logger.Warn("host already started")
		return nil
	}

	var live []*runtime.Runtime
	for name, rt := range h.runtimes {
		if err := rt.Start(ctx); err != nil {
			for _, prev := range live {
				prev.Stop(h.opts.StopTimeout)
			}
			return fmt.Errorf("start agent %q: %w", name, err)
		}
		live = append(live, rt)
	}

	h.started = true

	return nil
}

// Submit routes an event to the named agent's loop.
func (h *Host) Submit(ctx context.Context, agentName string, ev *core.Event) error {
	rt, ok := h.Runtime(agentName)
	if !ok {
		return fmt.Errorf("submit to %q: unknown agent", agentName)
	}
	return rt.Submit(ctx, ev)
}

// SendUserMessage is a convenience wrapper submitting a plain user message
// to the named agent.
func (h *Host) SendUserMessage(ctx context.Context, agentName, content string) error {
	return h.Submit(ctx, agentName, core.NewUserMessageEvent(content))
}

// Stop shuts down every hosted runtime, each bounded by timeout. The first
// error is returned after all runtimes have been stopped.
func (h *Host) Stop(timeout time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return nil
	}

	var firstErr error
	for name, rt := range h.runtimes {
		if err := rt.Stop(timeout); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop agent %q: %w", name, err)
		}
	}

	h.started = false

	return firstErr
}
