package statecore

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// counter is the canonical example reducer: INC/DEC over an int starting at 0.
func counter(state State, action Action) (State, error) {
	n, _ := state.(int)
	switch action.Type {
	case "INC":
		return n + 1, nil
	case "DEC":
		return n - 1, nil
	case "ADD":
		amount, _ := action.Payload["amount"].(int)
		return n + amount, nil
	}
	if state == nil {
		return 0, nil
	}
	return state, nil
}

// list appends payload["item"] on ADD_ITEM, starting from an empty list.
func list(state State, action Action) (State, error) {
	items, ok := state.([]any)
	if !ok {
		items = []any{}
	}
	if action.Type == "ADD_ITEM" {
		next := make([]any, len(items), len(items)+1)
		copy(next, items)
		return append(next, action.Payload["item"]), nil
	}
	if state == nil {
		return items, nil
	}
	return state, nil
}

// constant returns a reducer that ignores every action and holds v.
func constant(v any) Reducer {
	return func(state State, _ Action) (State, error) {
		if state == nil {
			return v, nil
		}
		return state, nil
	}
}

func newTestStore(t *testing.T, reducer Reducer, opts ...Option) Store {
	t.Helper()
	s, err := New(reducer, opts...)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func mustDispatch(t *testing.T, s interface{ Dispatch(any) (any, error) }, actionType string) {
	t.Helper()
	_, err := s.Dispatch(Action{Type: actionType})
	require.NoError(t, err)
}

// pointerOf returns the identity of a map or slice for reference assertions.
func pointerOf(v any) uintptr {
	return reflect.ValueOf(v).Pointer()
}
