package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// CodeUnavailable indicates the backing file could not be opened or created.
	CodeUnavailable ErrorCode = "UNAVAILABLE"

	// CodeSchema indicates the Events table could not be created or the file
	// carries a schema version this build does not understand.
	CodeSchema ErrorCode = "SCHEMA"

	// CodeConfig indicates the configuration cannot name a database file.
	CodeConfig ErrorCode = "CONFIG"
)

// StoreError is returned by Open and carried internally by failed operations.
type StoreError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the step that failed ("initialize", "connect", ...).
	Op string

	// Path is the database file involved.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsUnavailable returns true if err is a StoreError with CodeUnavailable.
// Uses errors.As to handle wrapped errors.
func IsUnavailable(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == CodeUnavailable
	}
	return false
}

// IsSchemaError returns true if err is a StoreError with CodeSchema.
func IsSchemaError(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == CodeSchema
	}
	return false
}

func unavailable(op, path string, err error) *StoreError {
	return &StoreError{Code: CodeUnavailable, Op: op, Path: path, Err: err}
}

func schemaError(op, path string, err error) *StoreError {
	return &StoreError{Code: CodeSchema, Op: op, Path: path, Err: err}
}

// isDuplicateKey reports whether err is SQLite rejecting a duplicate
// (eventHash, timestamp).
func isDuplicateKey(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique)
}

// outcome is the internal verdict of one operation. The public API collapses
// it to sentinel values; tests and logs see the full picture.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeNoMatch
	outcomeUnavailable
	outcomeConstraint
	outcomeFailed
	outcomeCancelled // caller stopped waiting; the query may still run
)

func (o outcome) String() string {
	switch o {
	case outcomeOK:
		return "ok"
	case outcomeNoMatch:
		return "no_match"
	case outcomeUnavailable:
		return "unavailable"
	case outcomeConstraint:
		return "constraint"
	case outcomeFailed:
		return "failed"
	case outcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

var (
	// errClosed is the cause logged for operations submitted after Close.
	errClosed = errors.New("store closed")

	// errTaskPanicked is reported when a query task panicked before producing
	// a result.
	errTaskPanicked = errors.New("store task panicked")
)
