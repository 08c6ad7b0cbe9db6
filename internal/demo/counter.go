package demo

import (
	"fmt"

	"github.com/roach88/statecore"
)

// Counter action types.
const (
	Increment = "INCREMENT"
	Decrement = "DECREMENT"
	Add       = "ADD"
	Reset     = "RESET"
)

// Counter reduces an int.
func Counter(state statecore.State, action statecore.Action) (statecore.State, error) {
	n, err := asInt(state)
	if err != nil {
		return nil, err
	}

	switch action.Type {
	case Increment:
		return n + 1, nil
	case Decrement:
		return n - 1, nil
	case Add:
		amount, ok := action.GetInt("amount")
		if !ok {
			return nil, fmt.Errorf("%s: payload.amount must be an integer", Add)
		}
		return n + amount, nil
	case Reset:
		return 0, nil
	}

	if state == nil {
		return 0, nil
	}
	return state, nil
}

// asInt accepts the int forms a counter may arrive in: int from reducers
// and YAML, int64 from the action log.
func asInt(state statecore.State) (int, error) {
	switch n := state.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	return 0, fmt.Errorf("counter state must be an integer, got %T", state)
}
