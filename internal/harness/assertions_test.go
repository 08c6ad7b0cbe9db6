package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.AddTrace(TraceEvent{Seq: 1, Action: "INCREMENT", State: int64(1)})
	r.AddTrace(TraceEvent{Seq: 2, Action: "ADD", Payload: map[string]any{"amount": "x"}, State: int64(1), Error: "bad"})
	r.AddTrace(TraceEvent{Seq: 3, Action: "RESET", State: int64(0)})
	r.State = map[string]any{"counter": int64(3), "nested": map[string]any{"ok": true}}
	r.Notifications = 2
	r.ActionCount = 2
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertFinalState, Path: "counter", Expect: 3},
		{Type: AssertFinalState, Path: "nested.ok", Expect: true},
		{Type: AssertFinalState, Expect: map[string]any{"counter": 3, "nested": map[string]any{"ok": true}}},
		{Type: AssertNotifyCount, Count: 2},
		{Type: AssertActionCount, Count: 2},
		{Type: AssertTraceContains, Action: "RESET"},
		{Type: AssertTraceOrder, Actions: []string{"INCREMENT", "RESET"}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"wrong value", Assertion{Type: AssertFinalState, Path: "counter", Expect: 4}, "state.counter = 4"},
		{"missing key", Assertion{Type: AssertFinalState, Path: "nope", Expect: 1}, `key "nope" missing`},
		{"path through scalar", Assertion{Type: AssertFinalState, Path: "counter.x", Expect: 1}, "is not a map"},
		{"notify count", Assertion{Type: AssertNotifyCount, Count: 5}, "5 notifications"},
		{"action count", Assertion{Type: AssertActionCount, Count: 0}, "0 logged actions"},
		{"failed dispatch does not count", Assertion{Type: AssertTraceContains, Action: "ADD"}, "successful dispatch of ADD"},
		{"order", Assertion{Type: AssertTraceOrder, Actions: []string{"RESET", "INCREMENT"}}, "should be before"},
		{"order missing", Assertion{Type: AssertTraceOrder, Actions: []string{"INCREMENT", "GONE"}}, "missing action: GONE"},
		{"unknown", Assertion{Type: "vibes"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFinalState,
		Expected: "1",
		Actual:   "2",
		Trace:    sampleResult().Trace,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: final_state")
	assert.Contains(t, msg, "[1] INCREMENT")
	assert.Contains(t, msg, "[2] ADD map[amount:x] -> error: bad")
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(int64(1), 1))
	assert.True(t, valuesEqual([]any{int64(1)}, []any{1}))
	assert.False(t, valuesEqual(1, "1"))
	assert.False(t, valuesEqual(1.5, 1.5), "floats never compare equal")
}
