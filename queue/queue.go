package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
)

// ErrClosed is returned by blocking operations after Close.
var ErrClosed = errors.New("queue set closed")

// Tagged is an input event together with the name of the channel it was
// dequeued from.
type Tagged struct {
	Channel string
	Event   *core.Event
}

// inChannel is one named, ordered input queue plus its backlog counter.
// pending counts events enqueued but not yet delivered to a consumer of the
// multiplexed stream.
type inChannel struct {
	name    string
	kind    core.EventKind
	ch      chan *core.Event
	pending atomic.Int64
}

// Options configures a Set.
type Options struct {
	// Capacity bounds each input channel buffer. Enqueues block when the
	// buffer is full (backpressure).
	Capacity int
	// OutputCapacity bounds each output channel buffer.
	OutputCapacity int
	// Logger records discarded items, shutdown accounting and warnings.
	Logger logging.Logger
}

// Set owns the six input channels and three output channels of one agent.
// It is the only structure shared between producer threads and the worker
// without external synchronization; all methods are safe for concurrent use.
type Set struct {
	logger logging.Logger

	inputs []*inChannel
	byName map[string]*inChannel
	mux    chan Tagged

	outputChunks chan *core.Event
	outputFinal  chan *core.Event
	toolLogs     chan *core.Event

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSet constructs a queue set and starts its forwarder goroutines. The
// returned set must be released with Close.
func NewSet(optFns ...func(o *Options)) *Set {
	opts := Options{
		Capacity:       256,
		OutputCapacity: 256,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Set{
		logger:       opts.Logger,
		byName:       map[string]*inChannel{},
		mux:          make(chan Tagged),
		outputChunks: make(chan *core.Event, opts.OutputCapacity),
		outputFinal:  make(chan *core.Event, opts.OutputCapacity),
		toolLogs:     make(chan *core.Event, opts.OutputCapacity),
		stopCh:       make(chan struct{}),
	}

	for _, kind := range []core.EventKind{
		core.KindUserMessage,
		core.KindAgentMessage,
		core.KindToolRequest,
		core.KindToolResult,
		core.KindToolApproval,
		core.KindSystem,
	} {
		c := &inChannel{name: string(kind), kind: kind, ch: make(chan *core.Event, opts.Capacity)}
		s.inputs = append(s.inputs, c)
		s.byName[c.name] = c
	}

	for _, c := range s.inputs {
		s.wg.Add(1)
		go s.forward(c)
	}

	return s
}

// forward reads one source channel in order and forwards each valid event
// into the multiplexed stream. Invalid items (nil, sentinel, payload not
// matching the channel kind) are logged and discarded; forwarding continues.
func (s *Set) forward(c *inChannel) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case ev := <-c.ch:
			if !ev.Valid() || ev.Kind != c.kind {
				s.logger.Warn("discarding event failing type check channel=%s", c.name)
				c.pending.Add(-1)
				continue
			}
			select {
			case s.mux <- Tagged{Channel: c.name, Event: ev}:
				c.pending.Add(-1)
			case <-s.stopCh:
				return
			}
		}
	}
}

// pushInput appends ev to the named input channel, blocking on a full
// buffer. It never drops silently; it fails only via ctx or Close.
func (s *Set) pushInput(ctx context.Context, c *inChannel, ev *core.Event) error {
	c.pending.Add(1)
	select {
	case c.ch <- ev:
		return nil
	case <-ctx.Done():
		c.pending.Add(-1)
		return ctx.Err()
	case <-s.stopCh:
		c.pending.Add(-1)
		return ErrClosed
	}
}

// EnqueueUserMessage appends to the user message channel.
func (s *Set) EnqueueUserMessage(ctx context.Context, ev *core.Event) error {
	return s.pushInput(ctx, s.byName[string(core.KindUserMessage)], ev)
}

// EnqueueAgentMessage appends to the inter-agent message channel.
func (s *Set) EnqueueAgentMessage(ctx context.Context, ev *core.Event) error {
	return s.pushInput(ctx, s.byName[string(core.KindAgentMessage)], ev)
}

// EnqueueToolRequest appends to the tool invocation request channel.
func (s *Set) EnqueueToolRequest(ctx context.Context, ev *core.Event) error {
	return s.pushInput(ctx, s.byName[string(core.KindToolRequest)], ev)
}

// EnqueueToolResult appends to the tool result channel.
func (s *Set) EnqueueToolResult(ctx context.Context, ev *core.Event) error {
	return s.pushInput(ctx, s.byName[string(core.KindToolResult)], ev)
}

// EnqueueToolApproval appends to the tool approval channel.
func (s *Set) EnqueueToolApproval(ctx context.Context, ev *core.Event) error {
	return s.pushInput(ctx, s.byName[string(core.KindToolApproval)], ev)
}

// EnqueueSystem appends to the internal system channel.
func (s *Set) EnqueueSystem(ctx context.Context, ev *core.Event) error {
	return s.pushInput(ctx, s.byName[string(core.KindSystem)], ev)
}

// EnqueueByKind routes ev to the input channel matching its kind.
func (s *Set) EnqueueByKind(ctx context.Context, ev *core.Event) error {
	if ev == nil {
		return errors.New("nil event")
	}
	c, ok := s.byName[string(ev.Kind)]
	if !ok {
		return errors.New("no input channel for kind " + string(ev.Kind))
	}
	return s.pushInput(ctx, c, ev)
}

func (s *Set) pushOutput(ctx context.Context, ch chan *core.Event, ev *core.Event) error {
	select {
	case ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return ErrClosed
	}
}

// EnqueueOutputChunk appends a streamed response fragment.
func (s *Set) EnqueueOutputChunk(ctx context.Context, ev *core.Event) error {
	return s.pushOutput(ctx, s.outputChunks, ev)
}

// EnqueueOutputFinal appends a complete assistant response.
func (s *Set) EnqueueOutputFinal(ctx context.Context, ev *core.Event) error {
	return s.pushOutput(ctx, s.outputFinal, ev)
}

// EnqueueToolLog appends a tool interaction log line.
func (s *Set) EnqueueToolLog(ctx context.Context, ev *core.Event) error {
	return s.pushOutput(ctx, s.toolLogs, ev)
}

// EnqueueStreamEnd pushes the stream-end sentinel onto the named output
// channel, terminating that stream for its readers. Unknown names are a
// warning-logged no-op.
func (s *Set) EnqueueStreamEnd(name string) {
	var ch chan *core.Event
	switch name {
	case string(core.KindOutputChunk):
		ch = s.outputChunks
	case string(core.KindOutputFinal):
		ch = s.outputFinal
	case string(core.KindToolLog):
		ch = s.toolLogs
	default:
		s.logger.Warn("stream end for unknown output channel name=%s", name)
		return
	}
	select {
	case ch <- core.StreamEnd:
	case <-s.stopCh:
	}
}

// Next waits concurrently on all six input channels and returns the first
// available event, tagged with its origin. Exactly one item is dequeued per
// call. Caller cancellation is honored and never consumes an item: a pending
// event stays with its forwarder until the next call.
func (s *Set) Next(ctx context.Context) (Tagged, error) {
	select {
	case it := <-s.mux:
		return it, nil
	default:
	}
	select {
	case it := <-s.mux:
		return it, nil
	case <-ctx.Done():
		return Tagged{}, ctx.Err()
	case <-s.stopCh:
		return Tagged{}, ErrClosed
	}
}

// InputStream exposes the multiplexed input stream for callers that need to
// select over it together with other channels (the worker loop).
func (s *Set) InputStream() <-chan Tagged { return s.mux }

// OutputChunks returns the streamed assistant response channel.
func (s *Set) OutputChunks() <-chan *core.Event { return s.outputChunks }

// OutputFinal returns the final assistant response channel.
func (s *Set) OutputFinal() <-chan *core.Event { return s.outputFinal }

// ToolLogs returns the tool interaction log channel.
func (s *Set) ToolLogs() <-chan *core.Event { return s.toolLogs }

// InputBacklog returns the number of input events enqueued but not yet
// delivered to a consumer, across all channels.
func (s *Set) InputBacklog() int {
	total := 0
	for _, c := range s.inputs {
		total += int(c.pending.Load())
	}
	return total
}

// InputBacklogByChannel returns per-channel undelivered counts.
func (s *Set) InputBacklogByChannel() map[string]int {
	counts := make(map[string]int, len(s.inputs))
	for _, c := range s.inputs {
		counts[c.name] = int(c.pending.Load())
	}
	return counts
}

// GracefulShutdown waits (bounded by timeout) for the three output channels
// to drain. A timeout is logged, never an error. Unconsumed input events are
// counted and logged separately so nothing disappears silently.
func (s *Set) GracefulShutdown(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for {
		if len(s.outputChunks) == 0 && len(s.outputFinal) == 0 && len(s.toolLogs) == 0 {
			break
		}
		if time.Now().After(deadline) {
			s.logger.Warn("output channels not drained before shutdown timeout chunks=%d final=%d tool_logs=%d",
				len(s.outputChunks), len(s.outputFinal), len(s.toolLogs))
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if backlog := s.InputBacklog(); backlog > 0 {
		s.logger.Warn("unconsumed input events at shutdown total=%d by_channel=%v", backlog, s.InputBacklogByChannel())
	}
}

// Close stops the forwarder goroutines and releases blocked enqueues. It is
// idempotent.
func (s *Set) Close() {
	s.closeOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Set is the enqueue surface handed to handlers and the runtime.
var _ core.EventSink = (*Set)(nil)
