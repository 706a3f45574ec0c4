// Package harness runs deterministic scenarios against the occurrence store.
//
// A scenario drives a fresh store with a fake clock through a list of steps
// and records every step in a trace. Traces are compared with golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: dedup_same_millisecond
//	description: "Two inserts in one millisecond collapse to one row"
//	start: 2024-05-01T10:00:00Z
//	steps:
//	  - op: insert
//	    hash: 42
//	    expect: { inserted: true }
//	  - op: advance
//	    by: 250us
//	  - op: select
//	    hash: 42
//	    from: 2024-05-01T10:00:00Z
//	    expect: { count: 1, oldest: 2024-05-01T10:00:00Z }
//	assertions:
//	  - type: final_count
//	    hash: 42
//	    count: 1
//
// # Step Operations
//
//   - insert: records hash at the current clock reading; expect inserted
//   - select: range query; expect count, oldest, newest
//   - delete: range delete; expect removed
//   - advance: moves the clock forward by a Go duration
//   - set: moves the clock to an absolute time
//
// Times are RFC3339 or integer epoch milliseconds. Omitted from/to leave the
// range open (epoch and "now" respectively).
//
// # Assertion Types
//
//   - trace_count: op appears exactly count times in the trace
//   - trace_order: ops first appear in the listed order
//   - final_count: the stored count for hash over all time
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/dedup.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
