package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/evhist/internal/clock"
	"github.com/roach88/evhist/internal/store"
)

// DefaultStart is the fake clock reading when a scenario does not set one.
var DefaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Scenario defines a deterministic store scenario.
// Steps run in order against a fresh store driven by a fake clock.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the initial fake clock reading (RFC3339 or epoch ms).
	// Defaults to DefaultStart.
	Start string `yaml:"start,omitempty"`

	// Steps are executed sequentially; each one waits for its completion.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and store contents.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one store operation or clock adjustment.
type Step struct {
	// Op is one of insert, select, delete, advance, set.
	Op string `yaml:"op"`

	// Hash is the fingerprint for insert, select and delete.
	Hash *uint32 `yaml:"hash,omitempty"`

	// From and To bound select and delete. Empty means open.
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// By is the duration to advance the clock (advance).
	By string `yaml:"by,omitempty"`

	// At is the new clock reading (set).
	At string `yaml:"at,omitempty"`

	// Expect checks the step's completion. Nil means no check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies expected completion values. Only set fields are checked.
type Expect struct {
	Inserted *bool  `yaml:"inserted,omitempty"`
	Removed  *int64 `yaml:"removed,omitempty"`
	Count    *int64 `yaml:"count,omitempty"`
	Oldest   string `yaml:"oldest,omitempty"`
	Newest   string `yaml:"newest,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// startTime resolves the initial clock reading.
func (s *Scenario) startTime() (time.Time, error) {
	if s.Start == "" {
		return DefaultStart, nil
	}
	return clock.Parse(s.Start)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, err := s.startTime(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpInsert, OpSelect, OpDelete:
		if st.Hash == nil {
			return fmt.Errorf("steps[%d]: hash is required for %s", index, st.Op)
		}
	case OpAdvance:
		if st.By == "" {
			return fmt.Errorf("steps[%d]: by is required for advance", index)
		}
		if _, err := time.ParseDuration(st.By); err != nil {
			return fmt.Errorf("steps[%d]: by: %w", index, err)
		}
	case OpSet:
		if st.At == "" {
			return fmt.Errorf("steps[%d]: at is required for set", index)
		}
		if _, err := clock.Parse(st.At); err != nil {
			return fmt.Errorf("steps[%d]: at: %w", index, err)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	if st.From != "" || st.To != "" {
		if st.Op != OpSelect && st.Op != OpDelete {
			return fmt.Errorf("steps[%d]: from/to only apply to select and delete", index)
		}
		if _, err := st.rangeBounds(); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}

	if st.Expect == nil {
		return nil
	}
	e := st.Expect
	switch st.Op {
	case OpInsert:
		if e.Removed != nil || e.Count != nil || e.Oldest != "" || e.Newest != "" {
			return fmt.Errorf("steps[%d].expect: insert only supports inserted", index)
		}
	case OpDelete:
		if e.Inserted != nil || e.Count != nil || e.Oldest != "" || e.Newest != "" {
			return fmt.Errorf("steps[%d].expect: delete only supports removed", index)
		}
	case OpSelect:
		if e.Inserted != nil || e.Removed != nil {
			return fmt.Errorf("steps[%d].expect: select supports count, oldest, newest", index)
		}
		for _, v := range []string{e.Oldest, e.Newest} {
			if v == "" {
				continue
			}
			if _, err := clock.Parse(v); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", index, err)
			}
		}
	default:
		return fmt.Errorf("steps[%d]: expect is not supported for %s", index, st.Op)
	}
	return nil
}

// rangeBounds parses the step's optional From and To.
func (st *Step) rangeBounds() (store.Range, error) {
	var r store.Range
	if st.From != "" {
		t, err := clock.Parse(st.From)
		if err != nil {
			return r, fmt.Errorf("from: %w", err)
		}
		r.From = t
	}
	if st.To != "" {
		t, err := clock.Parse(st.To)
		if err != nil {
			return r, fmt.Errorf("to: %w", err)
		}
		r.To = t
	}
	return r, nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertFinalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for final_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
