// Package store provides SQLite-backed durable storage for event occurrences.
//
// An occurrence is a (hash, timestamp) pair: a 32-bit fingerprint of an
// event's content and the millisecond at which it was recorded. The store
// answers three questions and nothing else:
//   - Insert: record that hash H occurred now
//   - Select: how many times did H occur in [from, to], and when first/last?
//   - Delete: forget every occurrence of H in [from, to]
//
// # Critical Patterns
//
// CP-1: Composite Identity
//   - PRIMARY KEY (eventHash, timestamp)
//   - Two inserts of the same hash in the same millisecond collapse to one
//     row; the second insert reports false. This is accepted, not an error.
//
// CP-2: Millisecond Rounding
//   - Every time.Time crosses into storage via clock.Millis, which rounds
//     to the nearest millisecond. Inserts and range bounds round the same way
//     so a bound equal to an insert time always includes it.
//
// CP-3: One Connection Per Operation
//   - Each operation acquires a connection, uses it, and releases it before
//     reporting. The pool retains no idle connections, so no file handle
//     outlives an operation.
//
// CP-4: Serialized Access
//   - Every operation runs on a single worker (internal/worker). Insert and
//     Delete are queued and report through a buffered channel; Select blocks
//     until its turn comes and sees every write queued ahead of it.
//
// CP-5: Fail-Soft Results
//   - Operations never return errors. An unavailable store reads as false,
//     zero removed rows, or an empty Result. Only Open fails loudly, and a
//     store that fails to open is never returned.
//
// # Database Configuration
//
// Applied to every connection:
//   - journal_mode=WAL
//   - synchronous=NORMAL
//   - busy_timeout from config (default 5000ms)
package store
