package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/evhist/internal/clock"
	"github.com/roach88/evhist/internal/config"
	"github.com/roach88/evhist/internal/store"
	"github.com/roach88/evhist/internal/testutil"
)

// Harness executes scenario steps against one store.
type Harness struct {
	store  *store.Store
	clock  *testutil.FakeClock
	logger *slog.Logger
}

// Run executes a scenario with logging suppressed.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a scenario and returns the result.
//
// Each scenario runs against a fresh store in its own temporary directory,
// removed afterwards. The fake clock starts at the scenario's start time and
// only moves on advance and set steps, so traces are reproducible.
//
// An error is returned only when the scenario could not be executed at all.
// Failed expectations and assertions are reported in Result.Errors.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	start, err := scenario.startTime()
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}

	dir, err := os.MkdirTemp("", "evhist-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	clk := testutil.NewFakeClock(start)
	cfg := config.Default()
	cfg.Dir = dir
	cfg.Name = "scenario"

	st, err := store.Open(cfg,
		store.WithClock(clk),
		store.WithLogger(logger),
		store.WithTaskIDs(testutil.NewFixedIDGenerator(scenario.Name)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  clk,
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(ctx, result, scenario.Assertions, st) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep runs one step, records it in the trace and checks its expect
// clause. Store operations block until their completion is delivered.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	ev := TraceEvent{Step: i, Op: step.Op, Hash: step.Hash}

	switch step.Op {
	case OpAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return err
		}
		h.clock.Advance(d)

	case OpSet:
		t, err := clock.Parse(step.At)
		if err != nil {
			return err
		}
		h.clock.Set(t)

	case OpInsert:
		ok := <-h.store.Insert(*step.Hash)
		ev.Inserted = &ok
		if e := step.Expect; e != nil && e.Inserted != nil && *e.Inserted != ok {
			result.AddError(fmt.Sprintf("step %d (insert %d): expected inserted=%t, got %t", i, *step.Hash, *e.Inserted, ok))
		}

	case OpDelete:
		r, err := step.rangeBounds()
		if err != nil {
			return err
		}
		setBounds(&ev, r)
		removed := <-h.store.Delete(*step.Hash, r)
		ev.Removed = &removed
		if e := step.Expect; e != nil && e.Removed != nil && *e.Removed != removed {
			result.AddError(fmt.Sprintf("step %d (delete %d): expected removed=%d, got %d", i, *step.Hash, *e.Removed, removed))
		}

	case OpSelect:
		r, err := step.rangeBounds()
		if err != nil {
			return err
		}
		setBounds(&ev, r)
		res := h.store.Select(ctx, *step.Hash, r)
		ev.Result = &res
		if step.Expect != nil {
			for _, msg := range checkSelect(step.Expect, res) {
				result.AddError(fmt.Sprintf("step %d (select %d): %s", i, *step.Hash, msg))
			}
		}

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	ev.ClockMs = clock.Millis(h.clock.Now())
	result.AddTrace(ev)

	h.logger.Debug("scenario step completed",
		"step", i,
		"op", step.Op,
		"clock_ms", ev.ClockMs,
	)
	return nil
}

func setBounds(ev *TraceEvent, r store.Range) {
	if !r.From.IsZero() {
		ms := clock.Millis(r.From)
		ev.FromMs = &ms
	}
	if !r.To.IsZero() {
		ms := clock.Millis(r.To)
		ev.ToMs = &ms
	}
}

// checkSelect compares a select result with the expected fields.
// Oldest and Newest are compared at millisecond resolution.
func checkSelect(e *Expect, res store.Result) []string {
	var errs []string
	if e.Count != nil && *e.Count != res.Count {
		errs = append(errs, fmt.Sprintf("expected count=%d, got %d", *e.Count, res.Count))
	}
	check := func(field, want string, got time.Time) {
		if want == "" {
			return
		}
		wt, err := clock.Parse(want)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", field, err))
			return
		}
		if got.IsZero() || clock.Millis(wt) != clock.Millis(got) {
			errs = append(errs, fmt.Sprintf("expected %s=%s, got %s", field, wt.UTC().Format(time.RFC3339Nano), formatTime(got)))
		}
	}
	check("oldest", e.Oldest, res.Oldest)
	check("newest", e.Newest, res.Newest)
	return errs
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
