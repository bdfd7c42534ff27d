package core

import "context"

// Handler processes one dequeued event. Implementations may suspend on the
// context, may return an error (recovered per event by the worker) and may
// enqueue further events through the HandlerContext's EventSink.
type Handler interface {
	Handle(ctx context.Context, ev *Event, hc *HandlerContext) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev *Event, hc *HandlerContext) error

// Handle calls the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, ev *Event, hc *HandlerContext) error {
	return f(ctx, ev, hc)
}

// HandlerRegistry resolves the handler for an event kind. It is injected
// into the worker explicitly; the runtime performs no implicit discovery.
type HandlerRegistry interface {
	HandlerFor(kind EventKind) (Handler, bool)
}

// EventSink is the enqueue surface of the queue set, exposed to handlers and
// the runtime so neither needs the concrete queue implementation. Enqueue
// methods block on a full buffer (backpressure) and never drop silently;
// they fail only through context cancellation.
type EventSink interface {
	EnqueueUserMessage(ctx context.Context, ev *Event) error
	EnqueueAgentMessage(ctx context.Context, ev *Event) error
	EnqueueToolRequest(ctx context.Context, ev *Event) error
	EnqueueToolResult(ctx context.Context, ev *Event) error
	EnqueueToolApproval(ctx context.Context, ev *Event) error
	EnqueueSystem(ctx context.Context, ev *Event) error

	EnqueueOutputChunk(ctx context.Context, ev *Event) error
	EnqueueOutputFinal(ctx context.Context, ev *Event) error
	EnqueueToolLog(ctx context.Context, ev *Event) error

	// EnqueueStreamEnd terminates the named output stream. Unknown names
	// are a warning-logged no-op.
	EnqueueStreamEnd(name string)
}

// PhaseReporter is the slice of the phase state machine visible to handlers
// and the worker. Transitions are named operations, never raw setters.
type PhaseReporter interface {
	NotifyWorkDequeued()
	NotifyWorkDrained()
	NotifyError(source string, err error)
	NotifyAwaitingToolApproval()
	NotifyToolExecuting()
	NotifyToolCompleted()
}

// Notifier receives externally visible runtime notifications. All methods
// are called from runtime-owned goroutines and must not block for long.
type Notifier interface {
	OnPhaseChanged(old, new string)
	OnOutputChunk(ev *Event)
	OnOutputFinal(ev *Event)
	OnToolLog(ev *Event)
	OnStarted()
	OnStopped(finalPhase string)
	OnError(source, message string)
}

// NoOpNotifier discards all notifications. Useful for tests or when no
// observer is attached.
type NoOpNotifier struct{}

// OnPhaseChanged implements Notifier.
func (NoOpNotifier) OnPhaseChanged(string, string) {}

// OnOutputChunk implements Notifier.
func (NoOpNotifier) OnOutputChunk(*Event) {}

// OnOutputFinal implements Notifier.
func (NoOpNotifier) OnOutputFinal(*Event) {}

// OnToolLog implements Notifier.
func (NoOpNotifier) OnToolLog(*Event) {}

// OnStarted implements Notifier.
func (NoOpNotifier) OnStarted() {}

// OnStopped implements Notifier.
func (NoOpNotifier) OnStopped(string) {}

// OnError implements Notifier.
func (NoOpNotifier) OnError(string, string) {}

// NotifierFuncs adapts a set of optional functions to the Notifier
// interface. Nil fields are silently skipped, so callers only wire the
// notifications they care about.
type NotifierFuncs struct {
	PhaseChanged func(old, new string)
	OutputChunk  func(ev *Event)
	OutputFinal  func(ev *Event)
	ToolLog      func(ev *Event)
	Started      func()
	Stopped      func(finalPhase string)
	Error        func(source, message string)
}

// OnPhaseChanged implements Notifier.
func (n NotifierFuncs) OnPhaseChanged(old, new string) {
	if n.PhaseChanged != nil {
		n.PhaseChanged(old, new)
	}
}

// OnOutputChunk implements Notifier.
func (n NotifierFuncs) OnOutputChunk(ev *Event) {
	if n.OutputChunk != nil {
		n.OutputChunk(ev)
	}
}

// OnOutputFinal implements Notifier.
func (n NotifierFuncs) OnOutputFinal(ev *Event) {
	if n.OutputFinal != nil {
		n.OutputFinal(ev)
	}
}

// OnToolLog implements Notifier.
func (n NotifierFuncs) OnToolLog(ev *Event) {
	if n.ToolLog != nil {
		n.ToolLog(ev)
	}
}

// OnStarted implements Notifier.
func (n NotifierFuncs) OnStarted() {
	if n.Started != nil {
		n.Started()
	}
}

// OnStopped implements Notifier.
func (n NotifierFuncs) OnStopped(finalPhase string) {
	if n.Stopped != nil {
		n.Stopped(finalPhase)
	}
}

// OnError implements Notifier.
func (n NotifierFuncs) OnError(source, message string) {
	if n.Error != nil {
		n.Error(source, message)
	}
}
