package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore"
)

func counter(state statecore.State, action statecore.Action) (statecore.State, error) {
	n, _ := state.(int)
	if action.Type == "INC" {
		return n + 1, nil
	}
	if state == nil {
		return 0, nil
	}
	return state, nil
}

func newInstrumentedStore(t *testing.T) (statecore.Store, *Collector) {
	t.Helper()
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	s, err := statecore.New(counter, statecore.WithEnhancer(statecore.ApplyMiddleware(c.Middleware())))
	require.NoError(t, err)
	return s, c
}

func TestNewCollector_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	var already prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &already))
}

func TestMiddleware_CountsOutcomes(t *testing.T) {
	s, c := newInstrumentedStore(t)

	for range 3 {
		_, err := s.Dispatch(statecore.Action{Type: "INC"})
		require.NoError(t, err)
	}
	_, err := s.Dispatch(statecore.Action{Type: "NOPE"})
	require.NoError(t, err)
	_, err = s.Dispatch("not an action")
	require.Error(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.dispatchTotal.WithLabelValues("INC", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchTotal.WithLabelValues("NOPE", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchTotal.WithLabelValues(LabelNonAction, OutcomeError)))
}

func TestMiddleware_CountsStateChanges(t *testing.T) {
	s, c := newInstrumentedStore(t)

	_, err := s.Dispatch(statecore.Action{Type: "INC"})
	require.NoError(t, err)
	_, err = s.Dispatch(statecore.Action{Type: "NOPE"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.stateChanges.WithLabelValues("INC")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.stateChanges.WithLabelValues("NOPE")))
}

func TestMiddleware_FoldsReservedTypes(t *testing.T) {
	s, c := newInstrumentedStore(t)

	_, err := s.Dispatch(statecore.InitAction())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchTotal.WithLabelValues(LabelReserved, OutcomeOK)))
}

func TestMiddleware_ObservesDuration(t *testing.T) {
	s, c := newInstrumentedStore(t)

	_, err := s.Dispatch(statecore.Action{Type: "INC"})
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(c.dispatchDuration))
}

func TestRecordDispatch_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordDispatch("ADD", time.Millisecond, true, nil)
	c.RecordDispatch("ADD", time.Millisecond, true, errors.New("boom"))

	expected := `
# HELP statecore_dispatch_total Total dispatches by action type and outcome
# TYPE statecore_dispatch_total counter
statecore_dispatch_total{action_type="ADD",outcome="error"} 1
statecore_dispatch_total{action_type="ADD",outcome="ok"} 1
# HELP statecore_state_changes_total Successful dispatches that produced a new state reference
# TYPE statecore_state_changes_total counter
statecore_state_changes_total{action_type="ADD"} 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"statecore_dispatch_total", "statecore_state_changes_total")
	assert.NoError(t, err)
}
