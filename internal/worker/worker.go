package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStopped is returned by Do when the worker no longer accepts tasks.
var ErrStopped = errors.New("worker stopped")

// Task is a unit of work executed on the worker goroutine.
// The context is never cancelled; it exists so tasks can pass it to
// context-aware APIs such as database/sql.
type Task func(ctx context.Context)

// IDGenerator produces ids used to correlate a task's log lines.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 task ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Worker is the single serialized execution context.
//
// Thread-safety model:
//   - Submit(), Do(), Len(): safe from any goroutine
//   - Start(), Stop(): idempotent, safe from any goroutine
//   - Do() must not be called from inside a task (it would wait on itself)
type Worker struct {
	queue  *taskQueue
	logger *slog.Logger
	ids    IDGenerator

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{} // closed when the run loop exits
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger used for task diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithIDGenerator sets the task id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(w *Worker) {
		if g != nil {
			w.ids = g
		}
	}
}

// New creates a worker. Call Start before expecting tasks to run.
func New(opts ...Option) *Worker {
	w := &Worker{
		queue:  newTaskQueue(),
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the run loop goroutine. Subsequent calls are no-ops.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

// Submit queues fn for asynchronous execution and returns immediately.
// Returns false if the worker has been stopped; fn will then never run.
func (w *Worker) Submit(name string, fn Task) bool {
	_, ok := w.enqueue(name, fn)
	return ok
}

// Do queues fn and blocks until it has finished running.
//
// If ctx is done first, Do returns ctx.Err() and fn still runs later.
// Returns ErrStopped if the worker has been stopped.
func (w *Worker) Do(ctx context.Context, name string, fn Task) error {
	done, ok := w.enqueue(name, fn)
	if !ok {
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued tasks not yet started.
func (w *Worker) Len() int {
	return w.queue.Len()
}

// Stop closes the queue, lets the loop finish every task already queued,
// and waits for it to exit. Stop starts the loop if it was never started
// so that queued tasks are not stranded.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.queue.Close()
		w.Start()
		<-w.done
	})
}

func (w *Worker) enqueue(name string, fn Task) (<-chan struct{}, bool) {
	j := job{
		id:   w.ids.Generate(),
		name: name,
		fn:   fn,
		done: make(chan struct{}),
	}
	if !w.queue.Enqueue(j) {
		return nil, false
	}
	return j.done, true
}

// run is the single-consumer loop.
// CRITICAL: exactly one run goroutine exists per Worker.
func (w *Worker) run() {
	defer close(w.done)
	w.logger.Debug("worker starting")

	for {
		if j, ok := w.queue.TryDequeue(); ok {
			w.execute(j)
			continue
		}

		if w.queue.Drained() {
			w.logger.Debug("worker stopping: queue closed")
			return
		}

		// Spurious wakeups are fine: we loop back to TryDequeue.
		<-w.queue.Wait()
	}
}

// execute runs one job. A panic is logged and swallowed so one bad task
// cannot take down the loop or strand later callers.
func (w *Worker) execute(j job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker task panicked",
				"task", j.name,
				"task_id", j.id,
				"panic", r,
			)
		}
	}()

	start := time.Now()
	j.fn(context.Background())
	w.logger.Debug("worker task finished",
		"task", j.name,
		"task_id", j.id,
		"elapsed", time.Since(start),
	)
}
