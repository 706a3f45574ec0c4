// Package worker implements the single serialized execution context that every
// store operation passes through.
//
// ARCHITECTURE:
//
// Single-Consumer Task Queue:
// Callers submit tasks from any goroutine. Exactly one goroutine, started by
// Start, dequeues and runs them one at a time. A task runs to completion
// before the next one is dequeued, so code executed inside tasks never needs
// its own locking.
//
// Dispatch modes:
//   - Submit: asynchronous. Returns as soon as the task is queued.
//   - Do: synchronous. Queues the task and blocks until it has run (or the
//     caller's context is done).
//
// Ordering:
// Tasks run in the order they were queued. Two tasks submitted by the same
// goroutine therefore run in submission order. Tasks from different goroutines
// are ordered only by whoever reached the queue first.
//
// There is no cancellation once a task has been queued. A Do caller whose
// context expires stops waiting, but the task still runs.
package worker
