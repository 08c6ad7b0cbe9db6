package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/statecore/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		if event.Error != "" {
			fmt.Fprintf(&buf, "  [%d] %s %v -> error: %s\n", event.Seq, event.Action, event.Payload, event.Error)
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s %v -> %v\n", event.Seq, event.Action, event.Payload, event.State)
	}

	return buf.String()
}

// assertFinalState compares the final state, or the value at the dotted
// path inside it, with the expected value.
func assertFinalState(result *Result, assertion Assertion) error {
	actual, err := lookupPath(result.State, assertion.Path)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", describePath(assertion.Path), assertion.Expect),
			Actual:   err.Error(),
			Trace:    result.Trace,
		}
	}

	if !valuesEqual(actual, assertion.Expect) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", describePath(assertion.Path), assertion.Expect),
			Actual:   fmt.Sprintf("%v", actual),
			Trace:    result.Trace,
		}
	}
	return nil
}

func lookupPath(state any, path string) (any, error) {
	if path == "" {
		return state, nil
	}
	current := state
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%q is not reachable: %T is not a map", path, current)
		}
		current, ok = m[key]
		if !ok {
			return nil, fmt.Errorf("%q is not reachable: key %q missing", path, key)
		}
	}
	return current, nil
}

func describePath(path string) string {
	if path == "" {
		return "state"
	}
	return "state." + path
}

// assertCount compares a counted quantity with the expected count.
func assertCount(result *Result, assertion Assertion, actual int, what string) error {
	if actual != assertion.Count {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s", actual, what),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceContains checks that an action of the given type was
// dispatched without error.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Action == assertion.Action && event.Error == "" {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("successful dispatch of %s", assertion.Action),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected action, 1-indexed for readability.
	positions := make(map[string]int)
	for i, event := range trace {
		for _, expected := range assertion.Actions {
			if event.Action == expected && positions[expected] == 0 {
				positions[expected] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// valuesEqual compares two values after converting both to canonical form,
// so YAML ints, reducer ints, and logged int64s compare equal.
func valuesEqual(actual, expected any) bool {
	a, err := ir.Normalize(actual)
	if err != nil {
		return false
	}
	e, err := ir.Normalize(expected)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(a, e)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertNotifyCount:
			err = assertCount(result, assertion, result.Notifications, "notifications")
		case AssertActionCount:
			err = assertCount(result, assertion, result.ActionCount, "logged actions")
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
