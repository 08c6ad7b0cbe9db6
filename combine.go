package statecore

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Slice pairs a state key with the reducer that owns it.
type Slice struct {
	Key     string
	Reducer Reducer
}

// On is a shorthand for Slice for ergonomic construction.
// Example: Combine([]Slice{On("count", counter), On("todos", todos)})
func On(key string, reducer Reducer) Slice {
	return Slice{Key: key, Reducer: reducer}
}

// CombineOption configures Combine.
type CombineOption func(*combineConfig)

type combineConfig struct {
	logger *slog.Logger
	mode   Mode
	gen    TypeGenerator
}

// CombineWithLogger sets the logger advisory warnings are written to.
// Default: slog.Default().
func CombineWithLogger(logger *slog.Logger) CombineOption {
	return func(c *combineConfig) {
		c.logger = logger
	}
}

// CombineWithMode overrides DefaultMode for this composed reducer.
func CombineWithMode(mode Mode) CombineOption {
	return func(c *combineConfig) {
		c.mode = mode
	}
}

// CombineWithTypeGenerator sets the generator for the unknown-action probe type.
// Default: UUIDGenerator.
func CombineWithTypeGenerator(gen TypeGenerator) CombineOption {
	return func(c *combineConfig) {
		c.gen = gen
	}
}

// CombineMap is Combine over a map, with keys taken in lexical order.
func CombineMap(reducers map[string]Reducer, opts ...CombineOption) Reducer {
	keys := make([]string, 0, len(reducers))
	for k := range reducers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Slice, len(keys))
	for i, k := range keys {
		entries[i] = On(k, reducers[k])
	}
	return Combine(entries, opts...)
}

// Combine builds one reducer over a map[string]any state from per-key slice
// reducers. Slices are reduced in the given order.
//
// Entries with a nil reducer are dropped (with a warning in Development).
// A repeated key keeps its first position and its last reducer.
//
// Each retained reducer is probed once, now, with a nil state: first with
// the INIT action and then with a fresh random action type. A reducer that
// returns nil (or an error) for either probe has no initial state or no
// default branch. Combine itself never fails; the probe error is kept and
// returned by every call of the composed reducer.
//
// The composed reducer returns its input state unchanged when every slice
// returned its input by reference and the state holds exactly the retained
// keys, and a new map otherwise.
func Combine(reducers []Slice, opts ...CombineOption) Reducer {
	cfg := &combineConfig{mode: DefaultMode, gen: UUIDGenerator{}}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	dev := cfg.mode == Development

	var keys []string
	final := make(map[string]Reducer, len(reducers))
	for _, r := range reducers {
		if r.Reducer == nil {
			if dev {
				cfg.logger.Warn("no reducer provided for key", "key", r.Key)
			}
			continue
		}
		if _, seen := final[r.Key]; !seen {
			keys = append(keys, r.Key)
		}
		final[r.Key] = r.Reducer
	}

	shapeErr := assertReducerShape(keys, final, cfg.gen)

	var (
		mu            sync.Mutex
		unexpectedKey = make(map[string]bool)
	)

	return func(state State, action Action) (State, error) {
		if shapeErr != nil {
			return nil, shapeErr
		}

		prev, isMap := state.(map[string]any)

		if dev {
			mu.Lock()
			warnUnexpectedShape(cfg.logger, state, prev, keys, action, unexpectedKey)
			mu.Unlock()
		}

		changed := false
		next := make(map[string]any, len(keys))
		for _, key := range keys {
			before := prev[key]
			after, err := final[key](before, action)
			if err != nil {
				return nil, fmt.Errorf("reducer for key %q: %w", key, err)
			}
			if after == nil {
				return nil, &Error{
					Code: ErrCodeUndefinedState,
					Message: fmt.Sprintf("when called with an action of type %q, the slice reducer for key %q returned nil; "+
						"to ignore an action, return the previous state", action.Type, key),
					Key:        key,
					ActionType: action.Type,
				}
			}
			next[key] = after
			changed = changed || !Same(before, after)
		}

		// A state carrying keys no reducer owns must be rebuilt to drop them.
		changed = changed || !isMap || len(keys) != len(prev)
		if !changed {
			return state, nil
		}
		return next, nil
	}
}

// assertReducerShape probes every slice reducer with a nil state.
func assertReducerShape(keys []string, reducers map[string]Reducer, gen TypeGenerator) error {
	for _, key := range keys {
		reducer := reducers[key]

		initial, err := reducer(nil, InitAction())
		if err != nil || initial == nil {
			return &Error{
				Code: ErrCodeReducerShape,
				Message: "slice reducer returned nil during initialization; if the state passed to the reducer is nil, " +
					"you must explicitly return the initial state" + causeSuffix(err),
				Key: key,
			}
		}

		probe := probeActionType(gen)
		probed, err := reducer(nil, Action{Type: probe})
		if err != nil || probed == nil {
			return &Error{
				Code: ErrCodeReducerShape,
				Message: fmt.Sprintf("slice reducer returned nil when probed with a random type; do not handle %q or other "+
					"actions in the %q namespace, and return the current state for any unknown action",
					actionTypeInit, reservedPrefix) + causeSuffix(err),
				Key:        key,
				ActionType: probe,
			}
		}
	}
	return nil
}

func causeSuffix(err error) string {
	if err == nil {
		return ""
	}
	return ": " + err.Error()
}

// warnUnexpectedShape logs when state is not a map or holds keys no slice
// reducer owns. Each unexpected key is reported once per composed reducer.
func warnUnexpectedShape(logger *slog.Logger, state State, prev map[string]any, keys []string, action Action, reported map[string]bool) {
	argument := "previous state received by the reducer"
	if action.Type == actionTypeInit {
		argument = "preloaded state passed to New"
	}

	if len(keys) == 0 {
		logger.Warn("store does not have a valid reducer; make sure Combine is given at least one slice reducer")
		return
	}

	if _, isMap := state.(map[string]any); state != nil && !isMap {
		logger.Warn("unexpected state type; expected a map[string]any with the known reducer keys",
			"argument", argument,
			"type", typeName(state),
			"keys", strings.Join(keys, ", "))
		return
	}

	var unexpected []string
	for k := range prev {
		if !slices.Contains(keys, k) && !reported[k] {
			unexpected = append(unexpected, k)
		}
	}
	if len(unexpected) == 0 {
		return
	}
	sort.Strings(unexpected)
	for _, k := range unexpected {
		reported[k] = true
	}

	logger.Warn("unexpected keys found in state; they will be ignored",
		"argument", argument,
		"unexpected", strings.Join(unexpected, ", "),
		"keys", strings.Join(keys, ", "),
		"action_type", action.Type)
}
