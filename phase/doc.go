// Package phase implements the operational lifecycle state machine every
// other runtime component depends on for correctness. The machine holds the
// single authoritative phase value for one agent, validates transitions
// against an exhaustive trigger×state table, and fires external
// notifications on every successful change.
//
// Transitions are named operations (NotifyStarting, NotifyWorkDequeued, ...)
// rather than a raw setter, so the allowed-transition set is auditable and
// testable in one place. Invalid transitions never mutate the phase; they
// log a warning. Same-state transitions are deliberate silent no-ops so
// repeated triggers do not cause notification storms.
package phase
