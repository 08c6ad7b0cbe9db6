package statecore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/testutil"
)

// thunk lets a func(MiddlewareAPI) value be dispatched, returning its result.
func thunk(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
	return func(next DispatchFunc) DispatchFunc {
		return func(action any) (any, error) {
			if fn, ok := action.(func(MiddlewareAPI) (any, error)); ok {
				return fn(api)
			}
			return next(action)
		}
	}
}

func tracing(name string, log *[]string) Middleware {
	return func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(action any) (any, error) {
				*log = append(*log, name+" before")
				result, err := next(action)
				*log = append(*log, name+" after")
				return result, err
			}
		}
	}
}

func TestApplyMiddleware_Order(t *testing.T) {
	var log []string
	s := newTestStore(t, counter, WithEnhancer(ApplyMiddleware(
		tracing("m1", &log),
		tracing("m2", &log),
	)))

	mustDispatch(t, s, "INC")
	assert.Equal(t, []string{"m1 before", "m2 before", "m2 after", "m1 after"}, log)
	assert.Equal(t, 1, s.GetState())
}

func TestApplyMiddleware_InitBypassesChain(t *testing.T) {
	var log []string
	newTestStore(t, counter, WithEnhancer(ApplyMiddleware(tracing("m", &log))))
	assert.Empty(t, log, "INIT is dispatched on the raw store before the chain exists")
}

func TestApplyMiddleware_NonActionValues(t *testing.T) {
	s := newTestStore(t, counter, WithEnhancer(ApplyMiddleware(thunk)))

	result, err := s.Dispatch(func(api MiddlewareAPI) (any, error) {
		for i := 0; i < 2; i++ {
			if _, err := api.Dispatch(Action{Type: "INC"}); err != nil {
				return nil, err
			}
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 2, s.GetState())

	// Without the middleware the raw store rejects the same value.
	plain := newTestStore(t, counter)
	_, err = plain.Dispatch(func(MiddlewareAPI) (any, error) { return nil, nil })
	assert.Equal(t, ErrCodeInvalidAction, CodeOf(err))
}

func TestApplyMiddleware_APIDispatchUsesWholeChain(t *testing.T) {
	var log []string
	s := newTestStore(t, counter, WithEnhancer(ApplyMiddleware(tracing("outer", &log), thunk)))

	_, err := s.Dispatch(func(api MiddlewareAPI) (any, error) {
		return api.Dispatch(Action{Type: "INC"})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"outer before", "outer before", "outer after", "outer after"}, log)
}

func TestApplyMiddleware_GetStateSeesCurrentState(t *testing.T) {
	var seen []State
	observe := func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(action any) (any, error) {
				seen = append(seen, api.GetState())
				result, err := next(action)
				seen = append(seen, api.GetState())
				return result, err
			}
		}
	}
	s := newTestStore(t, counter, WithEnhancer(ApplyMiddleware(observe)))

	mustDispatch(t, s, "INC")
	assert.Equal(t, []State{0, 1}, seen)
}

func TestApplyMiddleware_ShortCircuit(t *testing.T) {
	errBlocked := errors.New("blocked")
	block := func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(action any) (any, error) {
				if a, ok := action.(Action); ok && a.Type == "DEC" {
					return nil, errBlocked
				}
				return next(action)
			}
		}
	}
	s := newTestStore(t, counter, WithEnhancer(ApplyMiddleware(block)))

	_, err := s.Dispatch(Action{Type: "DEC"})
	assert.ErrorIs(t, err, errBlocked)
	mustDispatch(t, s, "INC")
	assert.Equal(t, 1, s.GetState())
}

func TestApplyMiddleware_DispatchDuringSetupFails(t *testing.T) {
	var setupErr error
	eager := func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
		_, setupErr = api.Dispatch(Action{Type: "INC"})
		return func(next DispatchFunc) DispatchFunc { return next }
	}

	s := newTestStore(t, counter, WithEnhancer(ApplyMiddleware(eager)))
	require.Error(t, setupErr)
	assert.Equal(t, ErrCodeDispatchDuringSetup, CodeOf(setupErr))
	assert.Equal(t, 0, s.GetState())
}

func TestApplyMiddleware_KeepsRestOfStore(t *testing.T) {
	gen := testutil.NewFixedTypeGenerator("")
	s := newTestStore(t, Combine([]Slice{On("count", counter)}, CombineWithTypeGenerator(gen)),
		WithEnhancer(ApplyMiddleware(thunk)))

	rec := testutil.NewRecorder(s.GetState)
	_, err := s.Subscribe(rec.Listener())
	require.NoError(t, err)

	mustDispatch(t, s, "INC")
	require.NoError(t, s.ReplaceReducer(Combine([]Slice{On("count", counter), On("list", list)},
		CombineWithTypeGenerator(gen))))

	assert.Equal(t, 2, rec.Calls())
	assert.Equal(t, map[string]any{"count": 1, "list": []any{}}, s.GetState())

	var observed []State
	sub, err := s.Observable().Subscribe(&Observer{Next: func(st State) { observed = append(observed, st) }})
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Len(t, observed, 1)
}

func TestApplyMiddleware_NoMiddleware(t *testing.T) {
	s := newTestStore(t, counter, WithEnhancer(ApplyMiddleware()))
	mustDispatch(t, s, "INC")
	assert.Equal(t, 1, s.GetState())
}

func TestApplyMiddleware_PropagatesCreatorError(t *testing.T) {
	_, err := New(nil, WithEnhancer(ApplyMiddleware(thunk)))
	assert.Equal(t, ErrCodeInvalidReducer, CodeOf(err))
}
