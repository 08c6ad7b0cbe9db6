package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/statecore"
	"github.com/roach88/statecore/internal/actionlog"
	"github.com/roach88/statecore/internal/guard"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/logging"
	"github.com/roach88/statecore/internal/metrics"
	"github.com/roach88/statecore/internal/schema"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	Database string
	Reducer  string
	Schema   string
	Metrics  bool
}

// DispatchOutput is the dispatch command's result.
type DispatchOutput struct {
	Session   string         `json:"session"`
	Seq       int64          `json:"seq"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	State     any            `json:"state"`
	StateHash string         `json:"state_hash"`
	Replayed  int            `json:"replayed"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch <TYPE> [key=value...]",
		Short: "Dispatch one action into a logged store",
		Long: `Rebuild the store from the action log, dispatch one action, and append
it to the log.

Payload values are parsed as integers or booleans when possible and kept
as strings otherwise. The log file is created when it does not exist.

Exit codes:
  0 - Action dispatched and logged
  1 - The reducer rejected the action or the new state violates --schema
  2 - Command error (unknown reducer, bad payload, unreadable log)

Examples:
  statecore dispatch --db ./actions.db --reducer app INCREMENT
  statecore dispatch --db ./actions.db --reducer app ADD_TODO text="buy milk"
  statecore dispatch --db ./actions.db --reducer counter ADD amount=3 --metrics`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite action log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Reducer, "reducer", "app", "reducer to dispatch into")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE file whose #State the new state must satisfy")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print dispatch metrics to stderr")

	return cmd
}

func runDispatch(opts *DispatchOptions, actionType string, pairs []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.logger(cmd)

	payload, err := parsePayload(pairs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid payload", err)
	}

	reducer, err := buildReducer(opts.RootOptions, opts.Reducer, cmd)
	if err != nil {
		return err
	}

	var sch *schema.Schema
	if opts.Schema != "" {
		sch, err = schema.CompileFile(opts.Schema)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --schema", err)
		}
	}

	log, err := actionlog.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	replayed, err := actionlog.Replay(ctx, log, reducer, statecore.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to rebuild state", err)
	}
	if len(replayed.Mismatches) > 0 {
		logger.Warn("action log replays to a different state",
			"mismatches", len(replayed.Mismatches),
			"first_seq", replayed.Mismatches[0].Seq,
		)
	}

	recorder, err := actionlog.NewRecorder(ctx, log, actionlog.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start recorder", err)
	}

	middlewares := []statecore.Middleware{
		guard.MaxDepth(guard.DefaultMaxDepth),
		logging.Middleware(logger, logging.WithContext(ctx)),
	}
	registry := prometheus.NewRegistry()
	if opts.Metrics {
		collector, err := metrics.NewCollector(registry)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		middlewares = append(middlewares, collector.Middleware())
	}
	if sch != nil {
		middlewares = append(middlewares, schema.Middleware(sch))
	}

	storeOpts := []statecore.Option{
		statecore.WithEnhancer(statecore.ComposeEnhancers(
			statecore.ApplyMiddleware(middlewares...),
			recorder.Enhancer(),
		)),
		statecore.WithLogger(logger),
	}
	if replayed.Applied > 0 {
		storeOpts = append(storeOpts, statecore.WithPreloadedState(replayed.State))
	}
	store, err := statecore.New(reducer, storeOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create store", err)
	}

	_, dispatchErr := store.Dispatch(statecore.NewAction(actionType, payload))

	if opts.Metrics {
		if err := writeMetrics(out.Diag(), registry); err != nil {
			logger.Warn("failed to gather metrics", "error", err)
		}
	}

	if dispatchErr != nil {
		code := ErrCodeDispatch
		var violation *schema.ViolationError
		if errors.As(dispatchErr, &violation) {
			code = ErrCodeInvalid
		}
		if err := out.Error(code, dispatchErr.Error(), nil); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "dispatch failed", dispatchErr)
	}

	output := DispatchOutput{
		Session:  recorder.Session(),
		Type:     actionType,
		Payload:  payload,
		Replayed: replayed.Applied,
	}
	if output.Seq, err = log.LastSeq(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}
	if output.State, err = ir.Normalize(store.GetState()); err != nil {
		return WrapExitError(ExitCommandError, "state is not serializable", err)
	}
	if output.StateHash, err = ir.StateHash(output.State); err != nil {
		return WrapExitError(ExitCommandError, "state is not serializable", err)
	}

	if out.JSON() {
		return out.Respond(output, nil)
	}
	state, err := ir.MarshalCanonical(output.State)
	if err != nil {
		return WrapExitError(ExitCommandError, "state is not serializable", err)
	}
	fmt.Fprintf(out.Writer, "✓ %s logged at seq %d\n", actionType, output.Seq)
	fmt.Fprintf(out.Writer, "State: %s\n", state)
	out.VerboseLog("session: %s", output.Session)
	return nil
}

// parsePayload turns key=value arguments into a payload. Values that parse
// as an integer or a boolean are stored as such.
func parsePayload(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	payload := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		if _, dup := payload[key]; dup {
			return nil, fmt.Errorf("duplicate payload key %q", key)
		}
		payload[key] = parseValue(value)
	}
	return payload, nil
}

func parseValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}

// writeMetrics prints one line per sample: counters by value, histograms by
// sample count and sum.
func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
