// Package runtime assembles one agent's queue set, phase machine and
// execution worker into a single lifecycle: Start performs the bootstrap
// handshake and begins pumping output streams to the notifier, Submit routes
// external events onto the loop, and Stop drains the queues and finalizes
// the phase machine.
package runtime
