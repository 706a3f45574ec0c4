package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/evhist/internal/clock"
)

// insertReport is the internal result of an insert.
type insertReport struct {
	outcome outcome
	at      int64 // stored timestamp (ms), set when outcome is ok or constraint
	err     error
}

// deleteReport is the internal result of a range delete.
type deleteReport struct {
	outcome outcome
	removed int64
	err     error
}

// Insert records one occurrence of hash at the current time.
//
// Insert returns immediately. The timestamp is taken when the worker runs
// the insert, not when Insert is called. The returned channel (buffered,
// never closed) receives exactly one value: true if the row was written,
// false if it was a same-millisecond duplicate (CP-1) or the store was
// unavailable. Callers that do not care may ignore the channel.
func (s *Store) Insert(hash uint32) <-chan bool {
	done := make(chan bool, 1)

	ok := s.worker.Submit("insert", func(ctx context.Context) {
		inserted := false
		// Deferred so a panicking task still completes the caller.
		defer func() { done <- inserted }()

		rep := s.insertDetailed(ctx, hash)
		s.logOutcome("insert", hash, rep.outcome, rep.err)
		inserted = rep.outcome == outcomeOK
	})
	if !ok {
		s.logOutcome("insert", hash, outcomeUnavailable, errClosed)
		done <- false
	}

	return done
}

// Delete removes every occurrence of hash within r.
//
// Delete returns immediately. The returned channel (buffered, never closed)
// receives the number of rows removed: 0 if nothing matched or the store was
// unavailable. Deletion is immediate and irrecoverable.
func (s *Store) Delete(hash uint32, r Range) <-chan int64 {
	done := make(chan int64, 1)

	ok := s.worker.Submit("delete", func(ctx context.Context) {
		var removed int64
		defer func() { done <- removed }()

		rep := s.deleteDetailed(ctx, hash, r)
		s.logOutcome("delete", hash, rep.outcome, rep.err)
		removed = rep.removed
	})
	if !ok {
		s.logOutcome("delete", hash, outcomeUnavailable, errClosed)
		done <- 0
	}

	return done
}

// insertDetailed writes (hash, now).
// CRITICAL: called only on the worker goroutine.
func (s *Store) insertDetailed(ctx context.Context, hash uint32) insertReport {
	conn, err := s.conns.connect(ctx)
	if err != nil {
		return insertReport{outcome: outcomeUnavailable, err: err}
	}
	defer s.conns.disconnect(conn)

	at := clock.Millis(s.clock.Now())

	// Plain INSERT: a duplicate key must fail so the caller learns about it.
	_, err = conn.ExecContext(ctx, `
		INSERT INTO Events (eventHash, timestamp)
		VALUES (?, ?)
	`, int64(hash), at)
	if err != nil {
		if isDuplicateKey(err) {
			return insertReport{outcome: outcomeConstraint, at: at, err: err}
		}
		return insertReport{outcome: outcomeFailed, err: fmt.Errorf("insert occurrence: %w", err)}
	}

	return insertReport{outcome: outcomeOK, at: at}
}

// deleteDetailed removes matching rows.
// CRITICAL: called only on the worker goroutine.
func (s *Store) deleteDetailed(ctx context.Context, hash uint32, r Range) deleteReport {
	conn, err := s.conns.connect(ctx)
	if err != nil {
		return deleteReport{outcome: outcomeUnavailable, err: err}
	}
	defer s.conns.disconnect(conn)

	lo, hi := r.bounds(s.clock.Now())

	res, err := conn.ExecContext(ctx, `
		DELETE FROM Events
		WHERE eventHash = ? AND timestamp BETWEEN ? AND ?
	`, int64(hash), lo, hi)
	if err != nil {
		return deleteReport{outcome: outcomeFailed, err: fmt.Errorf("delete occurrences: %w", err)}
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return deleteReport{outcome: outcomeFailed, err: fmt.Errorf("delete occurrences: rows affected: %w", err)}
	}
	if removed == 0 {
		return deleteReport{outcome: outcomeNoMatch}
	}

	return deleteReport{outcome: outcomeOK, removed: removed}
}

// logOutcome records a non-trivial outcome. Unavailability is the only
// condition an operator is expected to act on.
func (s *Store) logOutcome(op string, hash uint32, o outcome, err error) {
	attrs := []any{"op", op, "hash", hash, "outcome", o.String()}
	if err != nil {
		attrs = append(attrs, "error", err)
	}

	level := slog.LevelDebug
	switch o {
	case outcomeUnavailable:
		level = slog.LevelWarn
	case outcomeFailed:
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "occurrence store operation", attrs...)
}
