package core

import (
	"github.com/hupe1980/agentcore/logging"
)

// HandlerContext carries the execution scope passed to a Handler with each
// dispatched event. It aggregates:
//
//   - The agent's queue set (Sink) for enqueuing further events and outputs
//   - The worker-confined AgentState
//   - The phase reporter for tool-flow transitions and error reporting
//   - Logging helpers
//
// A HandlerContext is created once per worker and reused across dispatches;
// everything it references is either thread-safe (Sink, Phase) or confined
// to the worker goroutine (State).
type HandlerContext struct {
	AgentName string
	Sink      EventSink
	State     *AgentState
	Phase     PhaseReporter

	*loggerAdapter
}

// NewHandlerContext constructs a HandlerContext for one agent worker.
func NewHandlerContext(agentName string, sink EventSink, state *AgentState, phase PhaseReporter, logger logging.Logger) *HandlerContext {
	if state == nil {
		state = NewAgentState(agentName)
	}
	return &HandlerContext{
		AgentName:     agentName,
		Sink:          sink,
		State:         state,
		Phase:         phase,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// loggerAdapter wraps a logging.Logger and exposes convenience methods
// (LogDebug/LogInfo/LogWarn/LogError). It guarantees a non-nil logger by
// substituting a NoOpLogger when constructed with nil.
type loggerAdapter struct {
	logger logging.Logger
}

func newLoggerAdapter(l logging.Logger) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &loggerAdapter{logger: l}
}

// Logger returns the underlying logger.
func (l *loggerAdapter) Logger() logging.Logger { return l.logger }

// LogDebug logs a debug message.
func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// LogInfo logs an info message.
func (l *loggerAdapter) LogInfo(msg string, args ...any) { l.logger.Info(msg, args...) }

// LogWarn logs a warning message.
func (l *loggerAdapter) LogWarn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// LogError logs an error message.
func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, args...) }
