package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roach88/evhist/internal/clock"
	"github.com/roach88/evhist/internal/config"
	"github.com/roach88/evhist/internal/testutil"
)

// t0 is the fake clock's starting instant in most tests.
var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

const waitTimeout = 5 * time.Second

// testConfig returns a config rooted in a fresh temp directory.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Dir:         t.TempDir(),
		Name:        "test",
		BusyTimeout: config.DefaultBusyTimeout,
	}
}

// discardLogger drops all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// createTestStore opens a store on a fake clock frozen at t0.
func createTestStore(t *testing.T) (*Store, *testutil.FakeClock) {
	t.Helper()
	clk := testutil.NewFakeClock(t0)
	return openTestStore(t, testConfig(t), clk), clk
}

// openTestStore opens cfg with the given clock and closes it on cleanup.
func openTestStore(t *testing.T, cfg config.Config, clk clock.Clock) *Store {
	t.Helper()
	s, err := Open(cfg, WithClock(clk), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// tickingClock returns a clock that advances 1ms on every read, starting at
// start. Useful when many queued inserts must land in distinct milliseconds.
func tickingClock(start time.Time) clock.Clock {
	var n atomic.Int64
	return clock.Func(func() time.Time {
		return start.Add(time.Duration(n.Add(1)-1) * time.Millisecond)
	})
}

// awaitInsert waits for an Insert completion.
func awaitInsert(t *testing.T, done <-chan bool) bool {
	t.Helper()
	select {
	case ok := <-done:
		return ok
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for insert completion")
		return false
	}
}

// awaitDelete waits for a Delete completion.
func awaitDelete(t *testing.T, done <-chan int64) int64 {
	t.Helper()
	select {
	case n := <-done:
		return n
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for delete completion")
		return 0
	}
}

// rawRows returns every stored (eventHash, timestamp) pair, ordered.
func rawRows(t *testing.T, s *Store) [][2]int64 {
	t.Helper()
	rows, err := s.conns.db.QueryContext(context.Background(),
		"SELECT eventHash, timestamp FROM Events ORDER BY eventHash, timestamp")
	if err != nil {
		t.Fatalf("query Events: %v", err)
	}
	defer rows.Close()

	var out [][2]int64
	for rows.Next() {
		var h, ts int64
		if err := rows.Scan(&h, &ts); err != nil {
			t.Fatalf("scan Events: %v", err)
		}
		out = append(out, [2]int64{h, ts})
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate Events: %v", err)
	}
	return out
}

// verifyPragma checks a pragma's value on a freshly acquired connection.
func verifyPragma(s *Store, name, expected string) error {
	ctx := context.Background()
	conn, err := s.conns.connect(ctx)
	if err != nil {
		return err
	}
	defer s.conns.disconnect(conn)

	var value string
	if err := conn.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
