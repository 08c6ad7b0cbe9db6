package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/statecore"
	"github.com/roach88/statecore/internal/actionlog"
	"github.com/roach88/statecore/internal/demo"
	"github.com/roach88/statecore/internal/guard"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/logging"
	"github.com/roach88/statecore/internal/schema"
	"github.com/roach88/statecore/internal/testutil"
)

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger for harness and store records.
// Default: a logger that discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Harness executes one scenario against a real store.
type Harness struct {
	store         statecore.Store
	log           *actionlog.Log
	logger        *slog.Logger
	notifications int
}

// sessionToken is the fixed session stamped on scenario log records so
// record IDs are identical across runs.
type sessionToken string

func (s sessionToken) Generate() string { return string(s) }

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory action log for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
//  1. Build the named reducer with a fixed probe type generator
//  2. Open an in-memory action log and a recorder with a fixed session
//  3. Create the store with depth guard, logging, and schema middleware over the recording enhancer
//  4. Dispatch every step, checking its expectations
//  5. Evaluate assertions
//
// A returned error means the scenario could not be executed; a failing
// expectation is reported through Result.Pass and Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	factory, err := demo.Lookup(scenario.Reducer)
	if err != nil {
		return nil, err
	}
	reducer := factory(
		statecore.CombineWithLogger(h.logger),
		statecore.CombineWithTypeGenerator(testutil.NewFixedTypeGenerator("scenario")),
		statecore.CombineWithMode(statecore.Development),
	)

	h.log, err = actionlog.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory action log: %w", err)
	}
	defer h.log.Close()

	recorder, err := actionlog.NewRecorder(ctx, h.log,
		actionlog.WithSessionGenerator(sessionToken("scenario:"+scenario.Name)),
		actionlog.WithLogger(h.logger),
	)
	if err != nil {
		return nil, err
	}

	middlewares := []statecore.Middleware{
		guard.MaxDepth(guard.DefaultMaxDepth),
		logging.Middleware(h.logger, logging.WithContext(ctx)),
	}
	if scenario.Schema != "" {
		sch, err := schema.CompileFile(scenario.Schema)
		if err != nil {
			return nil, err
		}
		middlewares = append(middlewares, schema.Middleware(sch))
	}

	storeOpts := []statecore.Option{
		statecore.WithEnhancer(statecore.ComposeEnhancers(
			statecore.ApplyMiddleware(middlewares...),
			recorder.Enhancer(),
		)),
		statecore.WithLogger(h.logger),
	}
	if scenario.Preloaded != nil {
		storeOpts = append(storeOpts, statecore.WithPreloadedState(scenario.Preloaded))
	}

	h.store, err = statecore.New(reducer, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if _, err := h.store.Subscribe(func() { h.notifications++ }); err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	result.State, err = ir.Normalize(h.store.GetState())
	if err != nil {
		return nil, fmt.Errorf("final state: %w", err)
	}
	result.Notifications = h.notifications
	result.ActionCount, err = h.log.Count(ctx)
	if err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSteps dispatches every step and validates its expectations.
func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		action := statecore.NewAction(step.Dispatch, step.Payload)
		_, dispatchErr := h.store.Dispatch(action)

		state, err := ir.Normalize(h.store.GetState())
		if err != nil {
			return fmt.Errorf("step %d: state: %w", i, err)
		}
		payload, err := normalizePayload(step.Payload)
		if err != nil {
			return fmt.Errorf("step %d: payload: %w", i, err)
		}

		event := TraceEvent{
			Seq:     int64(i + 1),
			Action:  step.Dispatch,
			Payload: payload,
			State:   state,
		}
		if dispatchErr != nil {
			event.Error = dispatchErr.Error()
		}
		result.AddTrace(event)

		switch {
		case step.ExpectError != "" && dispatchErr == nil:
			result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, dispatch succeeded",
				i, step.Dispatch, step.ExpectError))
		case step.ExpectError != "" && !strings.Contains(dispatchErr.Error(), step.ExpectError):
			result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got %q",
				i, step.Dispatch, step.ExpectError, dispatchErr.Error()))
		case step.ExpectError == "" && dispatchErr != nil:
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, step.Dispatch, dispatchErr))
		}

		if step.ExpectState != nil && !valuesEqual(state, step.ExpectState) {
			result.AddError(fmt.Sprintf("step %d (%s): expected state %v, got %v",
				i, step.Dispatch, step.ExpectState, state))
		}

		h.logger.Debug("step completed",
			"step", i,
			"action_type", step.Dispatch,
			"error", event.Error,
		)
	}
	return nil
}

func normalizePayload(payload map[string]any) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	n, err := ir.Normalize(payload)
	if err != nil {
		return nil, err
	}
	return n.(map[string]any), nil
}
