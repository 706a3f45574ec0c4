// Package clock provides the wall-clock time source used to stamp occurrences.
//
// Occurrences are stored at millisecond resolution. Every conversion between
// time.Time and stored milliseconds goes through Millis and FromMillis so that
// insert and range bounds round the same way.
package clock

import (
	"fmt"
	"strconv"
	"time"
)

// Clock supplies the current wall-clock time.
//
// The store captures "now" on its worker goroutine when an operation executes,
// not when it is submitted, so implementations must be safe for concurrent use.
type Clock interface {
	Now() time.Time
}

// System is the production clock backed by time.Now.
type System struct{}

// Now returns the current local time.
func (System) Now() time.Time {
	return time.Now()
}

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

// Millis converts t to milliseconds since the Unix epoch, rounding to the
// nearest millisecond (halfway values round up).
func Millis(t time.Time) int64 {
	return t.Round(time.Millisecond).UnixMilli()
}

// FromMillis converts stored milliseconds back to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Parse reads a point in time written either as RFC 3339 (fractional seconds
// allowed) or as an integer count of milliseconds since the Unix epoch.
func Parse(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromMillis(ms), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or epoch milliseconds", s)
	}
	return t, nil
}
