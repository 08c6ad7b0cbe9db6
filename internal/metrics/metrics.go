// Package metrics exports dispatch telemetry as Prometheus collectors.
// Collectors register on a caller-supplied registry; nothing touches the
// global default registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/statecore"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Action-type label values for dispatches that carry no application type.
const (
	LabelReserved  = "reserved"
	LabelNonAction = "non_action"
)

// Collector holds the dispatch metrics for one or more stores.
type Collector struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	stateChanges     *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "statecore",
				Name:      "dispatch_total",
				Help:      "Total dispatches by action type and outcome",
			},
			[]string{"action_type", "outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "statecore",
				Name:      "dispatch_duration_seconds",
				Help:      "Dispatch latency through the inner chain in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"action_type"},
		),
		stateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "statecore",
				Name:      "state_changes_total",
				Help:      "Successful dispatches that produced a new state reference",
			},
			[]string{"action_type"},
		),
	}

	for _, collector := range []prometheus.Collector{c.dispatchTotal, c.dispatchDuration, c.stateChanges} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// RecordDispatch records one dispatch.
func (c *Collector) RecordDispatch(actionType string, duration time.Duration, changed bool, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	c.dispatchTotal.WithLabelValues(actionType, outcome).Inc()
	c.dispatchDuration.WithLabelValues(actionType).Observe(duration.Seconds())
	if err == nil && changed {
		c.stateChanges.WithLabelValues(actionType).Inc()
	}
}

// Middleware returns a statecore middleware that records every dispatch
// passing through it, including failed ones.
func (c *Collector) Middleware() statecore.Middleware {
	return func(api statecore.MiddlewareAPI) func(next statecore.DispatchFunc) statecore.DispatchFunc {
		return func(next statecore.DispatchFunc) statecore.DispatchFunc {
			return func(v any) (any, error) {
				before := api.GetState()
				start := time.Now()
				result, err := next(v)
				elapsed := time.Since(start)

				changed := !statecore.Same(before, api.GetState())
				c.RecordDispatch(actionLabel(v), elapsed, changed, err)
				return result, err
			}
		}
	}
}

// actionLabel bounds label cardinality: reserved types carry a random
// suffix and are folded into one value.
func actionLabel(v any) string {
	action, ok := v.(statecore.Action)
	switch {
	case !ok:
		return LabelNonAction
	case statecore.IsReservedType(action.Type):
		return LabelReserved
	case action.Type == "":
		return LabelNonAction
	}
	return action.Type
}
