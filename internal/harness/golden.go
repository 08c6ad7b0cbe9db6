package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/statecore/internal/ir"
)

// Recording is the part of a run that golden files pin down: every
// dispatched step plus the state the store ended in.
type Recording struct {
	Scenario   string
	Reducer    string
	Steps      []TraceEvent
	FinalState any
}

// value lowers the recording to the plain maps and slices ir encodes.
// Empty payloads, errors and reducer names are left out.
func (r *Recording) value() map[string]any {
	steps := make([]any, 0, len(r.Steps))
	for _, ev := range r.Steps {
		step := map[string]any{"seq": ev.Seq, "action": ev.Action, "state": ev.State}
		if len(ev.Payload) > 0 {
			step["payload"] = ev.Payload
		}
		if ev.Error != "" {
			step["error"] = ev.Error
		}
		steps = append(steps, step)
	}

	out := map[string]any{
		"scenario_name": r.Scenario,
		"final_state":   r.FinalState,
		"trace":         steps,
	}
	if r.Reducer != "" {
		out["reducer"] = r.Reducer
	}
	return out
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(scenarioName, reducer string, result *Result) ([]byte, error) {
	rec := Recording{
		Scenario:   scenarioName,
		Reducer:    reducer,
		Steps:      result.Trace,
		FinalState: result.State,
	}
	return ir.MarshalCanonical(rec.value())
}

// RunWithGolden runs scenario and fails t when its canonical trace differs
// from testdata/golden/<name>.golden. Pass -update to rewrite the files.
// The returned error covers only run and encoding failures.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	encoded, err := MarshalTrace(scenario.Name, scenario.Reducer, result)
	if err != nil {
		return nil, err
	}

	goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenario.Name, encoded)
	return result, nil
}
