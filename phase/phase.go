package phase

import (
	"sync"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
)

// Phase is one value of the fixed operational lifecycle enumeration.
type Phase string

const (
	// Uninitialized is the phase of a freshly constructed runtime.
	Uninitialized Phase = "UNINITIALIZED"
	// Starting spans worker spawn, readiness wait and bootstrap dispatch.
	Starting Phase = "STARTING"
	// Idle means the worker is live with no event being handled.
	Idle Phase = "IDLE"
	// Running means the worker is handling a dequeued event.
	Running Phase = "RUNNING"
	// AwaitingToolApproval means a tool invocation waits for user consent.
	AwaitingToolApproval Phase = "AWAITING_TOOL_APPROVAL"
	// ExecutingTool means an approved tool invocation is in flight.
	ExecutingTool Phase = "EXECUTING_TOOL"
	// ShuttingDown is part of the lifecycle vocabulary; the named triggers
	// below finalize directly to Ended, so no trigger targets it. Kept so
	// external observers share one canonical phase name set.
	ShuttingDown Phase = "SHUTTING_DOWN"
	// Ended is the graceful terminal phase.
	Ended Phase = "ENDED"
	// Error is the sticky failure terminal phase. Only NotifyStarting can
	// leave it (explicit restart).
	Error Phase = "ERROR"
)

// Terminal reports whether p is one of the two terminal phases.
func (p Phase) Terminal() bool { return p == Ended || p == Error }

// trigger names a transition operation. The names double as log fields.
type trigger string

const (
	triggerStarting          trigger = "notify_starting"
	triggerStarted           trigger = "notify_started"
	triggerWorkDequeued      trigger = "notify_work_dequeued"
	triggerWorkDrained       trigger = "notify_work_drained"
	triggerError             trigger = "notify_error"
	triggerShutdownInitiated trigger = "notify_shutdown_initiated"
	triggerLoopEnded         trigger = "notify_loop_ended"
	triggerFinalShutdown     trigger = "notify_final_shutdown_complete"
	triggerAwaitingApproval  trigger = "notify_awaiting_tool_approval"
	triggerToolExecuting     trigger = "notify_tool_executing"
	triggerToolCompleted     trigger = "notify_tool_completed"
)

// transitions is the exhaustive trigger×state table. A missing (trigger,
// state) pair is an invalid transition: warning, no change. An entry mapping
// a state to itself is a deliberate silent no-op (sticky terminals, repeated
// triggers). Everything the machine allows is in this one table.
var transitions = map[trigger]map[Phase]Phase{
	triggerStarting: {
		Uninitialized: Starting,
		Ended:         Starting,
		Error:         Starting,
		Starting:      Starting,
	},
	triggerStarted: {
		Starting: Idle,
	},
	triggerWorkDequeued: {
		Idle:    Running,
		Running: Running,
	},
	triggerWorkDrained: {
		Running: Idle,
		Idle:    Idle,
	},
	triggerError: {
		Uninitialized:        Error,
		Starting:             Error,
		Idle:                 Error,
		Running:              Error,
		AwaitingToolApproval: Error,
		ExecutingTool:        Error,
		ShuttingDown:         Error,
		Ended:                Error,
		Error:                Error,
	},
	triggerShutdownInitiated: {
		Uninitialized:        Ended,
		Starting:             Ended,
		Idle:                 Ended,
		Running:              Ended,
		AwaitingToolApproval: Ended,
		ExecutingTool:        Ended,
		ShuttingDown:         Ended,
		Ended:                Ended,
		Error:                Error,
	},
	triggerLoopEnded: {
		Uninitialized:        Ended,
		Starting:             Ended,
		Idle:                 Ended,
		Running:              Ended,
		AwaitingToolApproval: Ended,
		ExecutingTool:        Ended,
		ShuttingDown:         Ended,
		Ended:                Ended,
		Error:                Error,
	},
	triggerFinalShutdown: {
		Uninitialized:        Ended,
		Starting:             Ended,
		Idle:                 Ended,
		Running:              Ended,
		AwaitingToolApproval: Ended,
		ExecutingTool:        Ended,
		ShuttingDown:         Ended,
		Ended:                Ended,
		Error:                Error,
	},
	triggerAwaitingApproval: {
		Running:              AwaitingToolApproval,
		AwaitingToolApproval: AwaitingToolApproval,
	},
	triggerToolExecuting: {
		Running:              ExecutingTool,
		AwaitingToolApproval: ExecutingTool,
		ExecutingTool:        ExecutingTool,
	},
	triggerToolCompleted: {
		ExecutingTool: Running,
	},
}

// Machine is the pure state holder and transition validator for one agent.
// It is safe for concurrent use: the phase value is read from arbitrary
// goroutines via Current and written through the named Notify operations.
// Apart from NotifyStarting (invoked once from the orchestrator's caller
// thread during start) all writes originate from the worker or the
// orchestrator's lifecycle methods.
type Machine struct {
	mu       sync.Mutex
	current  Phase
	notifier core.Notifier
	logger   logging.Logger
}

// Options configures a Machine.
type Options struct {
	// Notifier receives phase-changed, started, stopped and error
	// notifications. Defaults to NoOpNotifier.
	Notifier core.Notifier
	// Logger records invalid-transition warnings. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewMachine constructs a Machine in the Uninitialized phase.
func NewMachine(optFns ...func(o *Options)) *Machine {
	opts := Options{
		Notifier: core.NoOpNotifier{},
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Machine{current: Uninitialized, notifier: opts.Notifier, logger: opts.Logger}
}

// Current returns the phase value. Always defined and queryable.
func (m *Machine) Current() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// apply executes one table lookup. It returns the old and new phases and
// whether the phase actually changed. Notifications fire outside the lock.
func (m *Machine) apply(tr trigger) (Phase, Phase, bool) {
	m.mu.Lock()
	old := m.current
	to, ok := transitions[tr][old]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("invalid phase transition trigger=%s phase=%s", tr, old)
		return old, old, false
	}
	if to == old {
		m.mu.Unlock()
		return old, old, false
	}
	m.current = to
	m.mu.Unlock()

	m.logger.Debug("phase transition trigger=%s from=%s to=%s", tr, old, to)
	m.notifier.OnPhaseChanged(string(old), string(to))

	return old, to, true
}

// NotifyStarting moves the machine into Starting from a fresh or terminal
// phase. Calling it while already Starting is a no-op.
func (m *Machine) NotifyStarting() { m.apply(triggerStarting) }

// NotifyStarted completes startup (Starting → Idle) and fires the external
// "started" notification exactly once per successful transition.
func (m *Machine) NotifyStarted() {
	if _, _, changed := m.apply(triggerStarted); changed {
		m.notifier.OnStarted()
	}
}

// NotifyWorkDequeued marks the worker busy (Idle → Running).
func (m *Machine) NotifyWorkDequeued() { m.apply(triggerWorkDequeued) }

// NotifyWorkDrained marks the worker idle again (Running → Idle).
func (m *Machine) NotifyWorkDrained() { m.apply(triggerWorkDrained) }

// NotifyError moves any non-Error phase to Error and surfaces the failure
// through the notifier. Error is sticky: repeated calls keep the phase but
// still surface each failure.
func (m *Machine) NotifyError(source string, err error) {
	m.apply(triggerError)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.notifier.OnError(source, msg)
}

// NotifyShutdownInitiated finalizes the phase to Ended unless a terminal
// phase is already set (Error and Ended are sticky).
func (m *Machine) NotifyShutdownInitiated() { m.apply(triggerShutdownInitiated) }

// NotifyLoopEnded records that the worker loop exited. Terminal phases are
// sticky.
func (m *Machine) NotifyLoopEnded() { m.apply(triggerLoopEnded) }

// NotifyFinalShutdownComplete forces the terminal phase to Ended unless
// already Error, and always fires the external "stopped" notification with
// the final phase.
func (m *Machine) NotifyFinalShutdownComplete() {
	m.apply(triggerFinalShutdown)
	m.notifier.OnStopped(string(m.Current()))
}

// NotifyAwaitingToolApproval marks a pending tool consent (Running →
// AwaitingToolApproval).
func (m *Machine) NotifyAwaitingToolApproval() { m.apply(triggerAwaitingApproval) }

// NotifyToolExecuting marks an approved tool invocation in flight.
func (m *Machine) NotifyToolExecuting() { m.apply(triggerToolExecuting) }

// NotifyToolCompleted returns from tool execution to event handling
// (ExecutingTool → Running).
func (m *Machine) NotifyToolCompleted() { m.apply(triggerToolCompleted) }

// Machine satisfies the reporter surface handed to handlers.
var _ core.PhaseReporter = (*Machine)(nil)
