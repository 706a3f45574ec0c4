package store

import (
	"encoding/json"
	"time"

	"github.com/roach88/evhist/internal/clock"
)

// Range bounds a query by timestamp. Both ends are inclusive.
//
// A zero From means the Unix epoch (unbounded past). A zero To means the
// store clock's "now" at the moment the operation executes on the worker.
type Range struct {
	From time.Time
	To   time.Time
}

// All is the unbounded range: epoch through now.
func All() Range {
	return Range{}
}

// Between returns the inclusive range [from, to].
func Between(from, to time.Time) Range {
	return Range{From: from, To: to}
}

// Since returns [from, now].
func Since(from time.Time) Range {
	return Range{From: from}
}

// Until returns [epoch, to].
func Until(to time.Time) Range {
	return Range{To: to}
}

// bounds resolves the range to inclusive millisecond limits (CP-2).
func (r Range) bounds(now time.Time) (lo, hi int64) {
	if !r.From.IsZero() {
		lo = clock.Millis(r.From)
	}
	if r.To.IsZero() {
		hi = clock.Millis(now)
	} else {
		hi = clock.Millis(r.To)
	}
	return lo, hi
}

// Result answers a range query for one hash.
//
// Count is 0 both when nothing matched and when the store could not be
// read; Oldest and Newest are zero whenever Count is 0.
type Result struct {
	Count  int64
	Oldest time.Time
	Newest time.Time
}

// Found reports whether at least one occurrence matched.
func (r Result) Found() bool {
	return r.Count > 0
}

// resultJSON is the wire shape of Result: millisecond timestamps, omitted
// when there is no match.
type resultJSON struct {
	Count    int64  `json:"count"`
	OldestMS *int64 `json:"oldest_ms,omitempty"`
	NewestMS *int64 `json:"newest_ms,omitempty"`
}

// MarshalJSON encodes Result with millisecond timestamps.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Count: r.Count}
	if r.Count > 0 {
		oldest := clock.Millis(r.Oldest)
		newest := clock.Millis(r.Newest)
		out.OldestMS = &oldest
		out.NewestMS = &newest
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Result{Count: in.Count}
	if in.OldestMS != nil {
		r.Oldest = clock.FromMillis(*in.OldestMS)
	}
	if in.NewestMS != nil {
		r.Newest = clock.FromMillis(*in.NewestMS)
	}
	return nil
}
