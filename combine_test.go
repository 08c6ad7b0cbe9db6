package statecore

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/testutil"
)

func combineForTest(t *testing.T, slices []Slice, opts ...CombineOption) (Reducer, *testutil.LogCapture) {
	t.Helper()
	capture := testutil.NewLogCapture()
	opts = append([]CombineOption{
		CombineWithLogger(capture.Logger()),
		CombineWithTypeGenerator(testutil.NewFixedTypeGenerator("")),
		CombineWithMode(Development),
	}, opts...)
	return Combine(slices, opts...), capture
}

func TestCombine_InitialShape(t *testing.T) {
	reducer, _ := combineForTest(t, []Slice{On("count", counter), On("list", list)})

	state, err := reducer(nil, InitAction())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 0, "list": []any{}}, state)
}

func TestCombine_NoopPreservesReference(t *testing.T) {
	reducer, _ := combineForTest(t, []Slice{On("count", counter), On("list", list)})
	s := newTestStore(t, reducer)
	before := s.GetState()

	mustDispatch(t, s, "SOMETHING_ELSE")

	after := s.GetState()
	assert.Equal(t, pointerOf(before), pointerOf(after), "no-op dispatch must return the same map")
	assert.True(t, Same(before, after))
}

func TestCombine_ChangeBuildsNewMapAndKeepsUntouchedSlices(t *testing.T) {
	reducer, _ := combineForTest(t, []Slice{On("count", counter), On("list", list)})

	initial, err := reducer(nil, InitAction())
	require.NoError(t, err)
	prev := initial.(map[string]any)

	next, err := reducer(prev, Action{Type: "INC"})
	require.NoError(t, err)

	nextMap := next.(map[string]any)
	assert.NotEqual(t, pointerOf(prev), pointerOf(nextMap))
	assert.Equal(t, 1, nextMap["count"])
	assert.True(t, Same(prev["list"], nextMap["list"]), "untouched slice keeps its reference")
	assert.Equal(t, 0, prev["count"], "previous state is not mutated")
}

func TestCombine_ReducesInInsertionOrder(t *testing.T) {
	var order []string
	tracking := func(name string) Reducer {
		return func(state State, action Action) (State, error) {
			if action.Type == "TRACK" {
				order = append(order, name)
			}
			return constant(name)(state, action)
		}
	}

	reducer, _ := combineForTest(t, []Slice{On("z", tracking("z")), On("a", tracking("a")), On("m", tracking("m"))})
	_, err := reducer(nil, Action{Type: "TRACK"})
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m"}, order)
}

func TestCombine_DuplicateKeyKeepsFirstPositionLastReducer(t *testing.T) {
	reducer, _ := combineForTest(t, []Slice{
		On("a", constant("old")),
		On("b", constant("b")),
		On("a", constant("new")),
	})

	state, err := reducer(nil, InitAction())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "new", "b": "b"}, state)
}

func TestCombine_SliceReturningNilNamesKeyAndAction(t *testing.T) {
	flaky := func(state State, action Action) (State, error) {
		if action.Type == "BREAK" {
			return nil, nil
		}
		return counter(state, action)
	}
	reducer, _ := combineForTest(t, []Slice{On("count", counter), On("flaky", flaky)})

	_, err := reducer(nil, Action{Type: "BREAK"})
	require.Error(t, err)
	assert.Equal(t, ErrCodeUndefinedState, CodeOf(err))
	assert.Contains(t, err.Error(), `"flaky"`)
	assert.Contains(t, err.Error(), `"BREAK"`)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "flaky", se.Key)
	assert.Equal(t, "BREAK", se.ActionType)
}

func TestCombine_SliceErrorIsWrappedWithKey(t *testing.T) {
	errBad := errors.New("bad payload")
	picky := func(state State, action Action) (State, error) {
		if action.Type == "PICKY" {
			return nil, errBad
		}
		return counter(state, action)
	}
	reducer, _ := combineForTest(t, []Slice{On("picky", picky)})

	_, err := reducer(nil, Action{Type: "PICKY"})
	assert.ErrorIs(t, err, errBad)
	assert.Contains(t, err.Error(), `"picky"`)
}

func TestCombine_NoInitialStateIsDeferredToFirstUse(t *testing.T) {
	noDefault := func(state State, _ Action) (State, error) { return state, nil }

	var reducer Reducer
	assert.NotPanics(t, func() {
		reducer, _ = combineForTest(t, []Slice{On("count", counter), On("broken", noDefault)})
	})

	_, err := reducer(nil, InitAction())
	require.Error(t, err)
	assert.Equal(t, ErrCodeReducerShape, CodeOf(err))
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "during initialization")
	assert.Contains(t, err.Error(), "key=broken")

	// Every later call reports the same error.
	_, err2 := reducer(map[string]any{"count": 1}, Action{Type: "INC"})
	assert.Equal(t, err, err2)

	_, err = New(reducer)
	assert.Equal(t, ErrCodeReducerShape, CodeOf(err))
}

func TestCombine_MissingDefaultBranchIsCaughtByProbe(t *testing.T) {
	// Handles INIT by accident but returns nil for anything else when state is nil.
	initOnly := func(state State, action Action) (State, error) {
		if action.Type == InitAction().Type {
			return 0, nil
		}
		return state, nil
	}
	gen := testutil.NewFixedTypeGenerator("guess")
	reducer := Combine([]Slice{On("sneaky", initOnly)},
		CombineWithTypeGenerator(gen), CombineWithLogger(testutil.NewLogCapture().Logger()))

	_, err := reducer(nil, InitAction())
	require.Error(t, err)
	assert.Equal(t, ErrCodeReducerShape, CodeOf(err))
	assert.Contains(t, err.Error(), "probed with a random type")

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "PROBE_UNKNOWN_ACTION.guess-1", se.ActionType)
	assert.False(t, IsReservedType(se.ActionType))
}

func TestCombine_ProbeIsNotAReservedType(t *testing.T) {
	// Treats the whole reserved namespace as initialization, nothing else.
	reservedOnly := func(state State, action Action) (State, error) {
		if IsReservedType(action.Type) {
			return 0, nil
		}
		return state, nil
	}
	reducer := Combine([]Slice{On("n", reservedOnly)},
		CombineWithTypeGenerator(testutil.NewFixedTypeGenerator("p")),
		CombineWithLogger(testutil.NewLogCapture().Logger()))

	_, err := reducer(nil, InitAction())
	require.Error(t, err)
	assert.Equal(t, ErrCodeReducerShape, CodeOf(err))
	assert.Contains(t, err.Error(), "probed with a random type")
}

func TestCombine_ProbeTypeIsFreshPerCombine(t *testing.T) {
	gen := testutil.NewFixedTypeGenerator("")

	Combine([]Slice{On("a", counter), On("b", counter)}, CombineWithTypeGenerator(gen))
	assert.Equal(t, 2, gen.Calls(), "one probe per retained slice")

	Combine([]Slice{On("a", counter)}, CombineWithTypeGenerator(gen))
	assert.Equal(t, 3, gen.Calls())
}

func TestCombine_DropsNilReducersWithWarning(t *testing.T) {
	reducer, capture := combineForTest(t, []Slice{On("count", counter), On("ghost", nil)})

	state, err := reducer(nil, InitAction())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 0}, state)

	warnings := capture.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "no reducer provided for key", warnings[0].Message)
	assert.Equal(t, "ghost", warnings[0].Attrs["key"])
}

func TestCombine_UnexpectedKeysWarnOncePerKey(t *testing.T) {
	reducer, capture := combineForTest(t, []Slice{On("count", counter)})
	const msg = "unexpected keys found in state; they will be ignored"

	_, err := reducer(map[string]any{"count": 1, "extra": true}, Action{Type: "INC"})
	require.NoError(t, err)
	_, err = reducer(map[string]any{"count": 1, "extra": true}, Action{Type: "INC"})
	require.NoError(t, err)
	assert.Equal(t, 1, capture.Count(slog.LevelWarn, msg))

	_, err = reducer(map[string]any{"count": 1, "extra": true, "other": 1}, Action{Type: "INC"})
	require.NoError(t, err)
	require.Equal(t, 2, capture.Count(slog.LevelWarn, msg))

	last := capture.Warnings()[1]
	assert.Equal(t, "other", last.Attrs["unexpected"], "already reported keys are not repeated")
}

func TestCombine_UnexpectedKeysAreDropped(t *testing.T) {
	reducer, _ := combineForTest(t, []Slice{On("count", counter)})

	state, err := reducer(map[string]any{"count": 1, "extra": true}, Action{Type: "NOPE"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 1}, state)
}

func TestCombine_PreloadedStateWarningNamesArgument(t *testing.T) {
	reducer, capture := combineForTest(t, []Slice{On("count", counter)})

	_, err := New(reducer, WithPreloadedState(map[string]any{"count": 3, "stale": 1}))
	require.NoError(t, err)

	warnings := capture.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "preloaded state passed to New", warnings[0].Attrs["argument"])
}

func TestCombine_NonMapStateWarnsAndIsReplaced(t *testing.T) {
	reducer, capture := combineForTest(t, []Slice{On("count", counter)})

	state, err := reducer(42, Action{Type: "INC"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 1}, state)

	warnings := capture.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "int", warnings[0].Attrs["type"])
}

func TestCombine_ProductionSkipsWarnings(t *testing.T) {
	reducer, capture := combineForTest(t, []Slice{On("count", counter), On("ghost", nil)},
		CombineWithMode(Production))

	_, err := reducer(map[string]any{"count": 1, "extra": true}, Action{Type: "INC"})
	require.NoError(t, err)
	_, err = reducer("not a map", Action{Type: "INC"})
	require.NoError(t, err)

	assert.Empty(t, capture.Warnings())
}

func TestCombine_ProductionStillProbes(t *testing.T) {
	noDefault := func(state State, _ Action) (State, error) { return state, nil }
	reducer, _ := combineForTest(t, []Slice{On("broken", noDefault)}, CombineWithMode(Production))

	_, err := reducer(nil, InitAction())
	assert.Equal(t, ErrCodeReducerShape, CodeOf(err))
}

func TestCombine_EmptyWarns(t *testing.T) {
	reducer, capture := combineForTest(t, nil)

	state, err := reducer(nil, InitAction())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, state)
	assert.Len(t, capture.Warnings(), 1)
}

func TestCombineMap_LexicalOrder(t *testing.T) {
	var order []string
	tracking := func(name string) Reducer {
		return func(state State, action Action) (State, error) {
			if action.Type == "TRACK" {
				order = append(order, name)
			}
			return constant(name)(state, action)
		}
	}

	reducer := CombineMap(map[string]Reducer{
		"b": tracking("b"),
		"c": tracking("c"),
		"a": tracking("a"),
	}, CombineWithTypeGenerator(testutil.NewFixedTypeGenerator("")))

	_, err := reducer(nil, Action{Type: "TRACK"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestCombine_Nested(t *testing.T) {
	gen := testutil.NewFixedTypeGenerator("")
	inner := Combine([]Slice{On("count", counter)}, CombineWithTypeGenerator(gen))
	outer := Combine([]Slice{On("inner", inner), On("list", list)}, CombineWithTypeGenerator(gen))

	s := newTestStore(t, outer)
	mustDispatch(t, s, "INC")

	assert.Equal(t, map[string]any{
		"inner": map[string]any{"count": 1},
		"list":  []any{},
	}, s.GetState())

	before := s.GetState()
	mustDispatch(t, s, "NOPE")
	assert.True(t, Same(before, s.GetState()))
}
