// Package config resolves where the occurrence store lives and how its
// connections are tuned.
//
// Resolution order, lowest to highest precedence:
//  1. Default(): platform cache directory, fixed store name
//  2. a CUE config file (LoadFile)
//  3. environment (EVHIST_DIR, EVHIST_NAME)
//  4. explicit overrides by the caller (CLI flags)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultName is the fixed logical store name.
	DefaultName = "com.example.eventHistory"

	// DefaultBusyTimeout bounds how long a connection waits on a locked file.
	DefaultBusyTimeout = 5 * time.Second

	// FileExtension is appended to Name to form the database file name.
	FileExtension = ".sqlite"

	EnvDir  = "EVHIST_DIR"
	EnvName = "EVHIST_NAME"
)

// namePattern matches the name constraint in schema.cue. Names become part
// of a sqlite DSN, so '?' and path separators are never allowed.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Config locates and tunes the backing store.
type Config struct {
	Dir         string        `json:"dir"`
	Name        string        `json:"name"`
	BusyTimeout time.Duration `json:"busy_timeout"`
}

// Default returns the built-in configuration. Dir is the user cache
// directory, falling back to the system temp directory when the platform
// does not define one.
func Default() Config {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return Config{
		Dir:         dir,
		Name:        DefaultName,
		BusyTimeout: DefaultBusyTimeout,
	}
}

// FromEnv applies EVHIST_DIR and EVHIST_NAME on top of c.
func (c Config) FromEnv() Config {
	c.Dir = getenv(EnvDir, c.Dir)
	c.Name = getenv(EnvName, c.Name)
	return c
}

// Path returns the database file path.
func (c Config) Path() string {
	return filepath.Join(c.Dir, c.Name+FileExtension)
}

// Validate checks that c can name a database file.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("config: dir is required")
	}
	// The sqlite3 driver treats everything after '?' as DSN parameters.
	if strings.Contains(c.Dir, "?") {
		return fmt.Errorf("config: dir %q must not contain '?'", c.Dir)
	}
	if c.Name == "" {
		return fmt.Errorf("config: name is required")
	}
	if !namePattern.MatchString(c.Name) {
		return fmt.Errorf("config: name %q must be a bare file name matching %s", c.Name, namePattern)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("config: busy timeout %s must not be negative", c.BusyTimeout)
	}
	return nil
}

// getenv returns the value of the environment variable or def if unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
