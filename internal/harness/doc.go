// Package harness runs YAML store scenarios against a real statecore store.
//
// # Scenario Format
//
//	name: counter_basics
//	description: "What this scenario validates"
//	reducer: counter            # registered in internal/demo
//	schema: app.cue             # optional, relative to the scenario file
//	preloaded: 5                # optional
//	steps:
//	  - dispatch: INCREMENT
//	    expect_state: 6
//	  - dispatch: ADD
//	    payload: { amount: "x" }
//	    expect_error: "payload.amount"
//	assertions:
//	  - type: final_state
//	    expect: 6
//	  - type: notify_count
//	    count: 1
//
// # Assertion Types
//
//   - final_state: the final state, or the value at a dotted path, equals expect
//   - notify_count: listeners were notified exactly count times
//   - action_count: the action log holds exactly count records
//   - trace_contains: an action type was dispatched successfully
//   - trace_order: action types first appear in the given order
//
// # Deterministic Testing
//
// Every scenario runs with:
//   - A fixed probe type generator, so Combine's errors are byte-identical
//   - A fixed session token and a fresh in-memory action log
//   - An in-memory SQLite action log (isolated per run)
//
// Traces are written as canonical JSON, which makes them suitable for golden
// file comparison.
package harness
