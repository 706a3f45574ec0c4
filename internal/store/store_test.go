package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/evhist/internal/config"
	"github.com/roach88/evhist/internal/testutil"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	cfg := testConfig(t)

	s, err := Open(cfg, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(cfg.Path())
	assert.NoError(t, err, "database file should exist after Open")
	assert.Equal(t, cfg.Path(), s.Path())
}

func TestOpen_CreatesMissingDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dir = filepath.Join(cfg.Dir, "nested", "cache")

	s, err := Open(cfg, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(cfg.Path())
	assert.NoError(t, err)
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	cfg := testConfig(t)
	clk := testutil.NewFakeClock(t0)

	s1, err := Open(cfg, WithClock(clk), WithLogger(discardLogger()))
	require.NoError(t, err)
	require.True(t, awaitInsert(t, s1.Insert(7)))
	require.NoError(t, s1.Close())

	s2, err := Open(cfg, WithClock(clk), WithLogger(discardLogger()))
	require.NoError(t, err)
	defer s2.Close()

	res := s2.Select(context.Background(), 7, All())
	assert.Equal(t, int64(1), res.Count, "occurrences survive reopen")
}

func TestOpen_Idempotent(t *testing.T) {
	cfg := testConfig(t)

	for i := 0; i < 3; i++ {
		s, err := Open(cfg, WithLogger(discardLogger()))
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(cfg, WithLogger(discardLogger()))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []string{"eventHash", "timestamp"}, tableColumns(t, s.conns.db, "Events"))
}

func TestOpen_UnwritableDirectoryFails(t *testing.T) {
	// A regular file where a directory should be defeats MkdirAll even for root.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := config.Config{Dir: filepath.Join(blocker, "sub"), Name: "test"}

	s, err := Open(cfg, WithLogger(discardLogger()))
	require.Error(t, err)
	assert.Nil(t, s, "a store that failed to initialize must not be returned")
	assert.True(t, IsUnavailable(err), "got %v", err)
}

func TestOpen_CorruptFileFails(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Path(), []byte("this is not a sqlite database, not even close"), 0o644))

	s, err := Open(cfg, WithLogger(discardLogger()))
	require.Error(t, err)
	assert.Nil(t, s)
}

func TestOpen_InvalidConfig(t *testing.T) {
	s, err := Open(config.Config{Dir: t.TempDir(), Name: "a/b"})
	require.Error(t, err)
	assert.Nil(t, s)

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeConfig, se.Code)
}

func TestOpen_FileLandsAtConfigPath(t *testing.T) {
	cfg := config.Config{
		Dir:         filepath.Join(t.TempDir(), "cache dir", "evhist"),
		Name:        "com.example-v2_events",
		BusyTimeout: config.DefaultBusyTimeout,
	}

	s, err := Open(cfg, WithLogger(discardLogger()))
	require.NoError(t, err)
	require.True(t, awaitInsert(t, s.Insert(1)))
	require.NoError(t, s.Close())

	assert.FileExists(t, cfg.Path())
	entries, err := os.ReadDir(cfg.Dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), cfg.Name+config.FileExtension),
			"unexpected file %s next to the store", e.Name())
	}
}

func TestOpen_RejectsDSNParameters(t *testing.T) {
	dir := t.TempDir()

	tests := []config.Config{
		{Dir: dir, Name: "x?y"},
		{Dir: dir, Name: "a?_txlock=bad"},
		{Dir: filepath.Join(dir, "a?b"), Name: "test"},
	}

	for _, cfg := range tests {
		s, err := Open(cfg, WithLogger(discardLogger()))
		require.Error(t, err, "Open(%+v)", cfg)
		assert.Nil(t, s)

		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, CodeConfig, se.Code)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a rejected config must not create any file")
}

func TestClose_MultipleCalls(t *testing.T) {
	s, err := Open(testConfig(t), WithLogger(discardLogger()))
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestClose_NilStore(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s, _ := createTestStore(t)
	assert.NoError(t, verifyPragma(s, "journal_mode", "wal"))
}

func TestPragma_Synchronous(t *testing.T) {
	s, _ := createTestStore(t)
	// NORMAL = 1
	assert.NoError(t, verifyPragma(s, "synchronous", "1"))
}

func TestPragma_BusyTimeout(t *testing.T) {
	s, _ := createTestStore(t)
	assert.NoError(t, verifyPragma(s, "busy_timeout", "5000"))
}

func TestPragma_BusyTimeoutFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.BusyTimeout = 1234 * time.Millisecond

	s := openTestStore(t, cfg, testutil.NewFakeClock(t0))
	assert.NoError(t, verifyPragma(s, "busy_timeout", "1234"))
}

// Schema tests

func TestSchema_EventsTable(t *testing.T) {
	s, _ := createTestStore(t)

	assert.Equal(t, []string{"eventHash", "timestamp"}, tableColumns(t, s.conns.db, "Events"))
}

func TestSchema_CompositePrimaryKey(t *testing.T) {
	s, _ := createTestStore(t)

	rows, err := s.conns.db.Query("PRAGMA table_info(Events)")
	require.NoError(t, err)
	defer rows.Close()

	pk := map[string]int{}
	for rows.Next() {
		var cid, notnull, pkPos int
		var name, ctype string
		var dflt any
		require.NoError(t, rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pkPos))
		assert.Equal(t, "INTEGER", ctype, "column %s type", name)
		assert.Equal(t, 1, notnull, "column %s should be NOT NULL", name)
		pk[name] = pkPos
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, map[string]int{"eventHash": 1, "timestamp": 2}, pk)
}

func TestConstraint_DuplicateKeyRejected(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.conns.db.Exec("INSERT INTO Events (eventHash, timestamp) VALUES (1, 100)")
	require.NoError(t, err)

	_, err = s.conns.db.Exec("INSERT INTO Events (eventHash, timestamp) VALUES (1, 100)")
	require.Error(t, err)
	assert.True(t, isDuplicateKey(err), "expected primary key violation, got %v", err)
}

func TestConstraint_SameTimestampDifferentHash(t *testing.T) {
	s, _ := createTestStore(t)

	for _, h := range []int{1, 2, 3} {
		_, err := s.conns.db.Exec("INSERT INTO Events (eventHash, timestamp) VALUES (?, 100)", h)
		assert.NoError(t, err, "hash %d", h)
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s, _ := createTestStore(t)

	var version int
	require.NoError(t, s.conns.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	cfg := testConfig(t)

	// A file with the table but no version stamp.
	db, err := sql.Open("sqlite3", cfg.Path())
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO Events (eventHash, timestamp) VALUES (42, 1000)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s := openTestStore(t, cfg, testutil.NewFakeClock(t0))

	var version int
	require.NoError(t, s.conns.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
	assert.Equal(t, [][2]int64{{42, 1000}}, rawRows(t, s), "existing rows untouched")
}

func TestMigration_RefusesNewerSchema(t *testing.T) {
	cfg := testConfig(t)

	db, err := sql.Open("sqlite3", cfg.Path())
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(cfg, WithLogger(discardLogger()))
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, IsSchemaError(err), "got %v", err)
}

// Connection lifecycle tests

func TestConnector_NoIdleConnections(t *testing.T) {
	s, _ := createTestStore(t)

	require.True(t, awaitInsert(t, s.Insert(1)))
	s.Select(context.Background(), 1, All())

	stats := s.conns.db.Stats()
	assert.Equal(t, 0, stats.InUse, "no connection held between operations")
	assert.Equal(t, 0, stats.Idle, "no connection cached between operations")
}

func TestConnector_ConnectFailsWhenFileGone(t *testing.T) {
	cfg := testConfig(t)
	s := openTestStore(t, cfg, testutil.NewFakeClock(t0))

	require.NoError(t, os.RemoveAll(cfg.Dir))

	conn, err := s.conns.connect(context.Background())
	assert.Nil(t, conn)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err), "got %v", err)
}

func TestConnector_DisconnectNil(t *testing.T) {
	c := &connector{}
	assert.NotPanics(t, func() { c.disconnect(nil) })
}

// Helper functions

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		require.NoError(t, rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk))
		columns = append(columns, name)
	}
	return columns
}
