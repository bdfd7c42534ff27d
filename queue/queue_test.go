package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
)

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) warningCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnings)
}

func newTestSet(t *testing.T, optFns ...func(o *Options)) (*Set, *recordingLogger) {
	t.Helper()
	l := &recordingLogger{}
	s := NewSet(append([]func(o *Options){func(o *Options) { o.Logger = l }}, optFns...)...)
	t.Cleanup(s.Close)
	return s, l
}

// TestSet_FanInExactlyOnceFIFO interleaves concurrent enqueues across all six
// input channels and verifies that repeated Next calls return every event
// exactly once, preserving per-channel FIFO order.
func TestSet_FanInExactlyOnceFIFO(t *testing.T) {
	s, _ := newTestSet(t)
	ctx := context.Background()

	const perChannel = 20

	type producer struct {
		name    string
		enqueue func(context.Context, *core.Event) error
		make    func(i int) *core.Event
	}
	producers := []producer{
		{string(core.KindUserMessage), s.EnqueueUserMessage, func(i int) *core.Event {
			return core.NewUserMessageEvent(fmt.Sprintf("user-%d", i))
		}},
		{string(core.KindAgentMessage), s.EnqueueAgentMessage, func(i int) *core.Event {
			return core.NewAgentMessageEvent("peer", fmt.Sprintf("agent-%d", i))
		}},
		{string(core.KindToolRequest), s.EnqueueToolRequest, func(i int) *core.Event {
			return core.NewToolRequestEvent(fmt.Sprintf("inv-%d", i), "search", nil)
		}},
		{string(core.KindToolResult), s.EnqueueToolResult, func(i int) *core.Event {
			return core.NewToolResultEvent(fmt.Sprintf("inv-%d", i), i, nil)
		}},
		{string(core.KindToolApproval), s.EnqueueToolApproval, func(i int) *core.Event {
			return core.NewToolApprovalEvent(fmt.Sprintf("inv-%d", i), true, "")
		}},
		{string(core.KindSystem), s.EnqueueSystem, func(i int) *core.Event {
			return core.NewSystemEvent("tick", i)
		}},
	}

	expected := make(map[string][]string) // channel -> ordered event IDs
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range producers {
		wg.Add(1)
		go func(p producer) {
			defer wg.Done()
			for i := 0; i < perChannel; i++ {
				ev := p.make(i)
				mu.Lock()
				expected[p.name] = append(expected[p.name], ev.ID)
				mu.Unlock()
				require.NoError(t, p.enqueue(ctx, ev))
			}
		}(p)
	}
	wg.Wait()

	seen := map[string]bool{}
	got := map[string][]string{}
	total := perChannel * len(producers)
	for i := 0; i < total; i++ {
		deadline, cancel := context.WithTimeout(ctx, 2*time.Second)
		it, err := s.Next(deadline)
		cancel()
		require.NoError(t, err)
		require.False(t, seen[it.Event.ID], "event delivered twice: %s", it.Event.ID)
		seen[it.Event.ID] = true
		got[it.Channel] = append(got[it.Channel], it.Event.ID)
	}

	assert.Zero(t, s.InputBacklog())
	for _, p := range producers {
		assert.Equal(t, expected[p.name], got[p.name], "per-channel FIFO order violated on %s", p.name)
	}
}

// TestSet_NextCancellationLosesNothing cancels an in-flight Next and checks
// that no channel item was consumed and no per-channel wait dangles.
func TestSet_NextCancellationLosesNothing(t *testing.T) {
	s, _ := newTestSet(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := s.Next(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond) // let Next block on the empty set
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// A subsequently enqueued event is still delivered intact.
	ev := core.NewUserMessageEvent("after cancel")
	require.NoError(t, s.EnqueueUserMessage(context.Background(), ev))
	assert.Equal(t, 1, s.InputBacklog())

	next, cancelNext := context.WithTimeout(context.Background(), time.Second)
	defer cancelNext()
	it, err := s.Next(next)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, it.Event.ID)
	assert.Equal(t, string(core.KindUserMessage), it.Channel)
	assert.Zero(t, s.InputBacklog())
}

func TestSet_EnqueueBackpressure(t *testing.T) {
	s, _ := newTestSet(t, func(o *Options) { o.Capacity = 1 })
	ctx := context.Background()

	// First fills the forwarder's hand, second the single buffer slot.
	require.NoError(t, s.EnqueueSystem(ctx, core.NewSystemEvent("a", nil)))
	require.NoError(t, s.EnqueueSystem(ctx, core.NewSystemEvent("b", nil)))

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := s.EnqueueSystem(short, core.NewSystemEvent("c", nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, s.InputBacklog(), "the suspended enqueue must not count as delivered")
}

func TestSet_KindMismatchDiscarded(t *testing.T) {
	s, l := newTestSet(t)
	ctx := context.Background()

	// A user message pushed onto the system channel fails the dequeue-side
	// type check: logged, discarded, waiting continues.
	require.NoError(t, s.EnqueueSystem(ctx, core.NewUserMessageEvent("wrong lane")))

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err := s.Next(short)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.warningCount())
	assert.Zero(t, s.InputBacklog())

	// A valid event afterwards is still delivered.
	ev := core.NewSystemEvent("ok", nil)
	require.NoError(t, s.EnqueueSystem(ctx, ev))
	next, cancelNext := context.WithTimeout(ctx, time.Second)
	defer cancelNext()
	it, err := s.Next(next)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, it.Event.ID)
}

func TestSet_EnqueueByKindRouting(t *testing.T) {
	s, _ := newTestSet(t)
	ctx := context.Background()

	ev := core.NewToolApprovalEvent("inv-1", true, "looks safe")
	require.NoError(t, s.EnqueueByKind(ctx, ev))

	next, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	it, err := s.Next(next)
	require.NoError(t, err)
	assert.Equal(t, string(core.KindToolApproval), it.Channel)

	assert.Error(t, s.EnqueueByKind(ctx, nil))
	assert.Error(t, s.EnqueueByKind(ctx, core.NewOutputChunkEvent("outputs have no input channel")))
}

// TestSet_OutputStreamEnd enqueues three chunks then the stream-end marker:
// a reader sees the chunks in order, then the marker, and stops without
// blocking further.
func TestSet_OutputStreamEnd(t *testing.T) {
	s, _ := newTestSet(t)
	ctx := context.Background()

	var want []string
	for i := 0; i < 3; i++ {
		ev := core.NewOutputChunkEvent(fmt.Sprintf("chunk-%d", i))
		want = append(want, ev.ID)
		require.NoError(t, s.EnqueueOutputChunk(ctx, ev))
	}
	s.EnqueueStreamEnd(string(core.KindOutputChunk))

	var got []string
	for ev := range s.OutputChunks() {
		if core.IsStreamEnd(ev) {
			break
		}
		got = append(got, ev.ID)
	}
	assert.Equal(t, want, got)

	select {
	case ev := <-s.OutputChunks():
		t.Fatalf("unexpected event after stream end: %+v", ev)
	default:
	}
}

func TestSet_StreamEndUnknownChannel(t *testing.T) {
	s, l := newTestSet(t)
	s.EnqueueStreamEnd("no_such_stream")
	assert.Equal(t, 1, l.warningCount())
}

func TestSet_GracefulShutdownLogsLeftovers(t *testing.T) {
	s, l := newTestSet(t)
	ctx := context.Background()

	require.NoError(t, s.EnqueueOutputFinal(ctx, core.NewOutputFinalEvent("never read")))
	require.NoError(t, s.EnqueueUserMessage(ctx, core.NewUserMessageEvent("never handled")))

	start := time.Now()
	s.GracefulShutdown(50 * time.Millisecond)
	assert.Less(t, time.Since(start), time.Second, "shutdown must be bounded")
	assert.GreaterOrEqual(t, l.warningCount(), 2, "undrained outputs and unconsumed inputs are both logged")
}

func TestSet_GracefulShutdownDrained(t *testing.T) {
	s, l := newTestSet(t)
	s.GracefulShutdown(50 * time.Millisecond)
	assert.Zero(t, l.warningCount())
}

func TestSet_CloseReleasesBlockedOperations(t *testing.T) {
	s, _ := newTestSet(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Next(context.Background())
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	s.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}
