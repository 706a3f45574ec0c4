package harness

import (
	"github.com/roach88/evhist/internal/store"
)

// Step operations.
const (
	OpInsert  = "insert"
	OpSelect  = "select"
	OpDelete  = "delete"
	OpAdvance = "advance"
	OpSet     = "set"
)

// TraceEvent records one executed step.
//
// ClockMs is the fake clock reading after the step ran. From and To are the
// explicit range bounds the step supplied, omitted when open.
type TraceEvent struct {
	Step     int           `json:"step"`
	Op       string        `json:"op"`
	Hash     *uint32       `json:"hash,omitempty"`
	FromMs   *int64        `json:"from_ms,omitempty"`
	ToMs     *int64        `json:"to_ms,omitempty"`
	ClockMs  int64         `json:"clock_ms"`
	Inserted *bool         `json:"inserted,omitempty"`
	Removed  *int64        `json:"removed,omitempty"`
	Result   *store.Result `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an executed step.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Assertion validates the trace or the store contents after the steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_count": op appears exactly Count times in the trace
	// - "trace_order": ops appear in the given order
	// - "final_count": Select(hash, all) returns Count
	Type string `yaml:"type"`

	// Op is the step operation (trace_count).
	Op string `yaml:"op,omitempty"`

	// Ops is the expected operation order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Hash is the fingerprint to query (final_count).
	Hash uint32 `yaml:"hash,omitempty"`

	// Count is the expected number (trace_count, final_count).
	Count int64 `yaml:"count"`
}

// Assertion type constants.
const (
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
	AssertFinalCount = "final_count"
)
