package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statecore/internal/demo"
)

// Scenario defines a store conformance scenario: a reducer, an optional
// preloaded state, a sequence of dispatches, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Reducer names a reducer registered in the demo package.
	Reducer string `yaml:"reducer"`

	// Schema is an optional CUE schema path checked after every dispatch.
	// Relative paths are resolved against the scenario file's directory.
	Schema string `yaml:"schema,omitempty"`

	// Preloaded seeds the store before the private INIT action.
	Preloaded any `yaml:"preloaded,omitempty"`

	// Steps are dispatched in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state, notifications, and action log.
	Assertions []Assertion `yaml:"assertions"`
}

// Step dispatches one action and optionally checks the outcome.
type Step struct {
	// Dispatch is the action type.
	Dispatch string `yaml:"dispatch"`

	// Payload is the action payload.
	Payload map[string]any `yaml:"payload,omitempty"`

	// ExpectState, if set, must equal the state after this step.
	ExpectState any `yaml:"expect_state,omitempty"`

	// ExpectError, if set, is a substring the dispatch error must contain.
	// Without it the dispatch must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the outcome of the whole scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": state (or the value at Path) equals Expect
	// - "notify_count": listeners were notified exactly Count times
	// - "action_count": the action log holds exactly Count records
	// - "trace_contains": an action of type Action was dispatched successfully
	// - "trace_order": action types appear in the order given by Actions
	Type string `yaml:"type"`

	// Path selects a value inside a map state, dot separated (final_state).
	Path string `yaml:"path,omitempty"`

	// Expect is the expected value (final_state).
	Expect any `yaml:"expect,omitempty"`

	// Count is the expected count (notify_count, action_count).
	Count int `yaml:"count,omitempty"`

	// Action is an action type (trace_contains).
	Action string `yaml:"action,omitempty"`

	// Actions is the expected order of action types (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertNotifyCount   = "notify_count"
	AssertActionCount   = "action_count"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Schema paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Reducer == "" {
		return fmt.Errorf("reducer is required")
	}
	if _, err := demo.Lookup(s.Reducer); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Dispatch == "" {
			return fmt.Errorf("steps[%d]: dispatch is required", i)
		}
		if step.ExpectError != "" && step.ExpectState != nil {
			return fmt.Errorf("steps[%d]: expect_state and expect_error are mutually exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertNotifyCount, AssertActionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
