package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSelectDelete_Text(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, "insert", "--dir", dir, "--hash", "42")
	require.NoError(t, err)
	assert.Equal(t, "inserted: true\n", out)

	out, _, err = execute(t, "select", "--dir", dir, "--hash", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "count: 1\n")
	assert.Contains(t, out, "oldest: ")
	assert.Contains(t, out, "newest: ")

	out, _, err = execute(t, "delete", "--dir", dir, "--hash", "42")
	require.NoError(t, err)
	assert.Equal(t, "removed: 1\n", out)

	out, _, err = execute(t, "select", "--dir", dir, "--hash", "42")
	require.NoError(t, err)
	assert.Equal(t, "count: 0\n", out)
}

func TestSelect_JSON(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, "insert", "--dir", dir, "--hash", "4294967295")
	require.NoError(t, err)

	out, _, err := execute(t, "select", "--dir", dir, "--hash", "4294967295", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   SelectOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, uint32(4294967295), resp.Data.Hash)
	assert.Equal(t, int64(1), resp.Data.Result.Count)
	assert.False(t, resp.Data.Result.Oldest.IsZero())
}

func TestSelect_RangeExcludes(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, "insert", "--dir", dir, "--hash", "5")
	require.NoError(t, err)

	// Ending at the epoch excludes anything recorded now.
	out, _, err := execute(t, "select", "--dir", dir, "--hash", "5", "--to", "0")
	require.NoError(t, err)
	assert.Equal(t, "count: 0\n", out)

	out, _, err = execute(t, "select", "--dir", dir, "--hash", "5", "--from", "2000-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "count: 1\n")
}

func TestDelete_OtherHashUntouched(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, "insert", "--dir", dir, "--hash", "1")
	require.NoError(t, err)

	out, _, err := execute(t, "delete", "--dir", dir, "--hash", "2", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"removed":0`)

	out, _, err = execute(t, "select", "--dir", dir, "--hash", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "count: 1\n")
}

func TestInsert_JSON(t *testing.T) {
	out, _, err := execute(t, "insert", "--dir", t.TempDir(), "--hash", "9", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   InsertOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, InsertOutput{Hash: 9, Inserted: true}, resp.Data)
}

func TestHashFlagRequired(t *testing.T) {
	for _, name := range []string{"insert", "select", "delete"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, name, "--dir", t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "required flag")
			assert.Contains(t, err.Error(), "hash")
		})
	}
}

func TestHashFlagRejectsOutOfRange(t *testing.T) {
	_, _, err := execute(t, "insert", "--dir", t.TempDir(), "--hash", "4294967296")
	require.Error(t, err)

	_, _, err = execute(t, "insert", "--dir", t.TempDir(), "--hash", "-1")
	require.Error(t, err)
}

func TestRangeFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad from", []string{"--from", "yesterday"}, "--from"},
		{"bad to", []string{"--to", "later"}, "--to"},
		{"inverted", []string{"--from", "2024-05-02T00:00:00Z", "--to", "2024-05-01T00:00:00Z"}, "is before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, cmd := range []string{"select", "delete"} {
				args := append([]string{cmd, "--dir", t.TempDir(), "--hash", "1"}, tt.args...)
				_, _, err := execute(t, args...)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, ExitCommandError, GetExitCode(err))
			}
		})
	}
}

func TestStoreOpenFailure(t *testing.T) {
	// A directory beneath a regular file can never be created.
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	dir := filepath.Join(blocker, "sub")

	_, _, err := execute(t, "insert", "--dir", dir, "--hash", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open store")

	out, _, err := execute(t, "select", "--dir", dir, "--hash", "1", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeStoreOpen, resp.Error.Code)
}

func TestInvalidConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`colour: "blue"`), 0644))

	_, _, err := execute(t, "insert", "--config", cfgFile, "--dir", t.TempDir(), "--hash", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, "info", "--dir", dir, "--name", "scratch", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   InfoOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, filepath.Join(dir, "scratch.sqlite"), resp.Data.Path)
	assert.Equal(t, "scratch", resp.Data.Name)
	assert.Equal(t, int64(5000), resp.Data.BusyTimeoutMs)
	assert.False(t, resp.Data.Exists)

	_, _, err = execute(t, "insert", "--dir", dir, "--name", "scratch", "--hash", "1")
	require.NoError(t, err)

	out, _, err = execute(t, "info", "--dir", dir, "--name", "scratch")
	require.NoError(t, err)
	assert.Contains(t, out, "path: "+filepath.Join(dir, "scratch.sqlite"))
	assert.Contains(t, out, "exists: true")
	assert.Contains(t, out, "size_bytes: ")
}

func TestInfo_DoesNotCreateStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")

	_, _, err := execute(t, "info", "--dir", dir)
	require.NoError(t, err)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVerbose_LogsStorePath(t *testing.T) {
	dir := t.TempDir()

	_, errOut, err := execute(t, "insert", "--dir", dir, "--hash", "3", "-v")
	require.NoError(t, err)
	assert.Contains(t, errOut, "occurrence store opened")
	assert.Contains(t, errOut, filepath.Join(dir, "com.example.eventHistory.sqlite"))

	_, errOut, err = execute(t, "insert", "--dir", dir, "--hash", "4")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "occurrence store opened")
}
