// Package core provides the foundational domain types and interfaces of
// agentcore. It defines the abstractions every other package builds on:
//
//   - Events (immutable, typed units of work flowing through the runtime)
//   - The stream-end sentinel terminating output streams
//   - AgentState (worker-confined mutable state for one agent)
//   - HandlerContext (scoped execution environment passed to event handlers)
//   - Small consumer-side interfaces the runtime depends on but does not
//     implement: Handler, HandlerRegistry, Notifier, EventSink, PhaseReporter
//
// The package intentionally keeps implementation concerns (queueing, worker
// scheduling, phase tracking) out of scope, exposing small interfaces so the
// queue, worker and runtime packages can be wired together without cycles.
package core
