// Package queue implements the typed, concurrency-safe event queue set
// backing one agent: six bounded input channels fanned into a single
// multiplexed stream, and three output channels read by external consumers.
//
// Fan-in uses one forwarder goroutine per input channel, each reading its
// source in order and forwarding into an unbuffered multiplexed channel. The
// consumer only ever reads the multiplexed channel, so cancellation can
// never lose or double-consume an item: an event a forwarder holds while no
// consumer is ready simply stays pending until the next read. Per-channel
// FIFO order is preserved; no ordering is guaranteed across channels.
//
// Enqueue operations apply backpressure (block on a full buffer) and never
// drop silently; they fail only through context cancellation or set close.
package queue
