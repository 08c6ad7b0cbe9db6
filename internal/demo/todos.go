package demo

import (
	"fmt"

	"github.com/roach88/statecore"
)

// Todo action types.
const (
	AddTodo    = "ADD_TODO"
	ToggleTodo = "TOGGLE_TODO"
	RemoveTodo = "REMOVE_TODO"
)

// Todos reduces a list of {text, done} items. Items are map[string]any so
// the state stays plain data for hashing and schema checks.
func Todos(state statecore.State, action statecore.Action) (statecore.State, error) {
	items, ok := state.([]any)
	if !ok && state != nil {
		return nil, fmt.Errorf("todos state must be a list, got %T", state)
	}

	switch action.Type {
	case AddTodo:
		text, ok := action.GetString("text")
		if !ok || text == "" {
			return nil, fmt.Errorf("%s: payload.text must be a non-empty string", AddTodo)
		}
		next := make([]any, len(items), len(items)+1)
		copy(next, items)
		return append(next, map[string]any{"text": text, "done": false}), nil

	case ToggleTodo:
		i, err := index(action, len(items))
		if err != nil {
			return nil, err
		}
		item, ok := items[i].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: item %d is %T, not an object", ToggleTodo, i, items[i])
		}
		done, _ := item["done"].(bool)

		next := make([]any, len(items))
		copy(next, items)
		next[i] = map[string]any{"text": item["text"], "done": !done}
		return next, nil

	case RemoveTodo:
		i, err := index(action, len(items))
		if err != nil {
			return nil, err
		}
		next := make([]any, 0, len(items)-1)
		next = append(next, items[:i]...)
		return append(next, items[i+1:]...), nil
	}

	if state == nil {
		return []any{}, nil
	}
	return state, nil
}

func index(action statecore.Action, n int) (int, error) {
	i, ok := action.GetInt("index")
	if !ok {
		return 0, fmt.Errorf("%s: payload.index must be an integer", action.Type)
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%s: index %d out of range [0, %d)", action.Type, i, n)
	}
	return i, nil
}
