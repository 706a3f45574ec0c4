package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/evhist/internal/clock"
	"github.com/roach88/evhist/internal/worker"
)

// selectReport is the internal result of a range query.
type selectReport struct {
	outcome outcome
	result  Result
	err     error
}

// Select counts occurrences of hash within r and reports the oldest and
// newest matching timestamps.
//
// Select blocks until the worker has run it, so it observes every Insert and
// Delete queued before it (CP-4). It never fails: if the store cannot be
// read, or ctx is done before the query runs, the result is empty, exactly
// as if nothing matched (CP-5).
func (s *Store) Select(ctx context.Context, hash uint32, r Range) Result {
	return s.selectSync(ctx, hash, r).result
}

// selectSync dispatches selectDetailed on the worker and waits for it.
func (s *Store) selectSync(ctx context.Context, hash uint32, r Range) selectReport {
	reply := make(chan selectReport, 1)

	err := s.worker.Do(ctx, "select", func(ctx context.Context) {
		rep := selectReport{outcome: outcomeFailed, err: errTaskPanicked}
		defer func() { reply <- rep }()
		rep = s.selectDetailed(ctx, hash, r)
	})
	if err != nil {
		rep := selectReport{outcome: outcomeUnavailable, err: err}
		if !errors.Is(err, worker.ErrStopped) {
			rep.outcome = outcomeCancelled
		}
		s.logOutcome("select", hash, rep.outcome, rep.err)
		return rep
	}

	rep := <-reply
	s.logOutcome("select", hash, rep.outcome, rep.err)
	return rep
}

// selectDetailed runs the aggregate query.
// CRITICAL: called only on the worker goroutine.
func (s *Store) selectDetailed(ctx context.Context, hash uint32, r Range) selectReport {
	conn, err := s.conns.connect(ctx)
	if err != nil {
		return selectReport{outcome: outcomeUnavailable, err: err}
	}
	defer s.conns.disconnect(conn)

	lo, hi := r.bounds(s.clock.Now())

	var count int64
	var oldest, newest sql.NullInt64
	err = conn.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM Events
		WHERE eventHash = ? AND timestamp BETWEEN ? AND ?
	`, int64(hash), lo, hi).Scan(&count, &oldest, &newest)

	if errors.Is(err, sql.ErrNoRows) {
		return selectReport{outcome: outcomeNoMatch}
	}
	if err != nil {
		return selectReport{outcome: outcomeFailed, err: fmt.Errorf("select occurrences: %w", err)}
	}

	if count == 0 || !oldest.Valid || !newest.Valid {
		return selectReport{outcome: outcomeNoMatch}
	}

	return selectReport{
		outcome: outcomeOK,
		result: Result{
			Count:  count,
			Oldest: clock.FromMillis(oldest.Int64),
			Newest: clock.FromMillis(newest.Int64),
		},
	}
}
