package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/evhist/internal/clock"
	"github.com/roach88/evhist/internal/config"
	"github.com/roach88/evhist/internal/worker"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Empty file (never initialized)
// 1 - Events table with PRIMARY KEY (eventHash, timestamp)
const currentSchemaVersion = 1

// Store records event occurrences in a single SQLite file.
//
// Thread-safety model:
//   - Insert(), Select(), Delete(): safe from any goroutine
//   - Close(): idempotent; operations after Close report failure
//
// All database access happens on the store's worker goroutine (CP-4).
type Store struct {
	conns  *connector
	worker *worker.Worker
	clock  clock.Clock
	logger *slog.Logger
	ids    worker.IDGenerator

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used to stamp inserts and resolve open
// upper bounds. Default: clock.System{}.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTaskIDs sets the generator for worker task ids that appear in logs.
func WithTaskIDs(g worker.IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// Open creates or opens the occurrence store described by cfg.
//
// Open creates the storage directory and the Events table when they are
// missing. If either step fails the store is unusable and Open returns a
// nil *Store with a *StoreError; callers treat that as "no history
// available" once, at startup.
//
// This function is idempotent - safe to call multiple times on the same file.
func Open(cfg config.Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &StoreError{Code: CodeConfig, Op: "open", Err: err}
	}

	s := &Store{
		clock:  clock.System{},
		logger: slog.Default(),
		ids:    worker.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}

	path := cfg.Path()

	// sql.Open never touches the file; the first connect does.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, unavailable("open", path, err)
	}

	// The worker runs one operation at a time, so one connection suffices.
	// Zero idle connections means releasing a connection closes the file
	// handle (CP-3).
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	s.conns = &connector{db: db, path: path, busyTimeout: cfg.BusyTimeout}

	if err := s.conns.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	s.worker = worker.New(
		worker.WithLogger(s.logger),
		worker.WithIDGenerator(s.ids),
	)
	s.worker.Start()

	s.logger.Debug("occurrence store opened", "path", path)
	return s, nil
}

// Close stops accepting operations, waits for queued ones to finish, and
// closes the database. Safe to call more than once.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.worker != nil {
			s.worker.Stop()
		}
		if s.conns != nil && s.conns.db != nil {
			s.closeErr = s.conns.db.Close()
		}
	})
	return s.closeErr
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.conns.path
}

// connector owns the lifecycle of per-operation connections.
type connector struct {
	db          *sql.DB
	path        string
	busyTimeout time.Duration
}

// connect acquires an exclusive connection to the backing file and applies
// per-connection pragmas. The caller must defer disconnect immediately.
//
// Returns a *StoreError with CodeUnavailable if the file cannot be opened.
func (c *connector) connect(ctx context.Context) (*sql.Conn, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, unavailable("connect", c.path, err)
	}

	if err := applyPragmas(ctx, conn, c.busyTimeout); err != nil {
		c.disconnect(conn)
		return nil, unavailable("connect", c.path, err)
	}

	return conn, nil
}

// disconnect releases conn unconditionally. With no idle pool this closes
// the underlying file handle.
func (c *connector) disconnect(conn *sql.Conn) {
	if conn == nil {
		return
	}
	_ = conn.Close()
}

// initialize creates the storage directory and the Events table if absent.
// Runs once, from Open.
func (c *connector) initialize(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return unavailable("initialize", c.path, err)
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer c.disconnect(conn)

	exists, err := tableExists(ctx, conn, "Events")
	if err != nil {
		return unavailable("initialize", c.path, err)
	}

	if !exists {
		if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
			return schemaError("create table", c.path, err)
		}
	}

	if err := runMigrations(ctx, conn); err != nil {
		return schemaError("migrate", c.path, err)
	}

	return nil
}

// applyPragmas sets required SQLite configuration on one connection.
func applyPragmas(ctx context.Context, conn *sql.Conn, busyTimeout time.Duration) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// tableExists checks sqlite_master for a table by name.
func tableExists(ctx context.Context, conn *sql.Conn, name string) (bool, error) {
	var found string
	err := conn.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return true, nil
}

// runMigrations stamps user_version and refuses files written by a newer
// schema.
func runMigrations(ctx context.Context, conn *sql.Conn) error {
	var version int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	// Version 0 files either were just created above or predate version
	// tracking; both already have the v1 table.
	if version == currentSchemaVersion {
		return nil
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}
