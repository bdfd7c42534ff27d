// Package worker implements the dedicated execution goroutine driving one
// agent's event loop. The worker owns a task-channel scheduler: cross-thread
// calls are bridged onto the loop as closures, and dequeued events are
// dispatched to the injected handler registry one at a time, fully
// completing each before the next is taken. This strict serialization is the
// core invariant making handler logic safe without internal locking.
package worker
