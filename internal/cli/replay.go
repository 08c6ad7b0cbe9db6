package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/statecore"
	"github.com/roach88/statecore/internal/actionlog"
	"github.com/roach88/statecore/internal/demo"
	"github.com/roach88/statecore/internal/ir"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Reducer  string
	Verify   bool
}

// ReplayOutput is the replay command's result.
type ReplayOutput struct {
	Reducer    string               `json:"reducer"`
	Applied    int                  `json:"applied"`
	State      any                  `json:"state"`
	StateHash  string               `json:"state_hash"`
	Mismatches []actionlog.Mismatch `json:"mismatches"`
	Verified   bool                 `json:"verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild state from an action log",
		Long: `Replay every logged action, in log order, through a fresh store built
from the named reducer and print the resulting state.

With --verify the state hash after each action is compared with the one
recorded when the action was first dispatched.

Exit codes:
  0 - Replay succeeded (and verified, with --verify)
  1 - Replay diverged from the recorded state hashes
  2 - Command error (database not found, unknown reducer, reducer error)

Examples:
  statecore replay --db ./actions.db --reducer app
  statecore replay --db ./actions.db --reducer app --verify --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite action log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Reducer, "reducer", "app", fmt.Sprintf("reducer to replay with %v", demo.Names()))
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "fail when a replayed state hash differs from the logged one")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	log, err := openExistingLog(opts.Database)
	if err != nil {
		return err
	}
	defer log.Close()

	reducer, err := buildReducer(opts.RootOptions, opts.Reducer, cmd)
	if err != nil {
		return err
	}

	replayed, err := actionlog.Replay(cmd.Context(), log, reducer, statecore.WithLogger(opts.logger(cmd)))
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	output, err := newReplayOutput(opts.Reducer, replayed)
	if err != nil {
		return WrapExitError(ExitCommandError, "replayed state is not serializable", err)
	}
	output.Verified = opts.Verify && len(output.Mismatches) == 0
	diverged := opts.Verify && len(output.Mismatches) > 0

	if out.JSON() {
		var cliErr *CLIError
		if diverged {
			cliErr = &CLIError{
				Code:    ErrCodeDivergence,
				Message: fmt.Sprintf("%d action(s) replayed to a different state", len(output.Mismatches)),
			}
		}
		if err := out.Respond(output, cliErr); err != nil {
			return err
		}
	} else {
		outputReplayText(out, output, opts.Verify)
	}

	if diverged {
		return NewExitError(ExitFailure, "replay diverged from the action log")
	}
	return nil
}

func newReplayOutput(reducer string, replayed *actionlog.ReplayResult) (ReplayOutput, error) {
	state, err := ir.Normalize(replayed.State)
	if err != nil {
		return ReplayOutput{}, err
	}
	hash, err := ir.StateHash(state)
	if err != nil {
		return ReplayOutput{}, err
	}
	return ReplayOutput{
		Reducer:    reducer,
		Applied:    replayed.Applied,
		State:      state,
		StateHash:  hash,
		Mismatches: replayed.Mismatches,
	}, nil
}

func outputReplayText(out *OutputFormatter, output ReplayOutput, verify bool) {
	w := out.Writer

	fmt.Fprintf(w, "Replayed %d action(s) with reducer %q\n", output.Applied, output.Reducer)
	if state, err := ir.MarshalCanonical(output.State); err == nil {
		fmt.Fprintf(w, "State: %s\n", state)
	}
	out.VerboseLog("state hash: %s", output.StateHash)

	if !verify {
		return
	}
	for _, m := range output.Mismatches {
		fmt.Fprintf(w, "✗ seq %d %s: logged %s, replayed %s\n", m.Seq, m.Type, short(m.Logged), short(m.Actual))
	}
	if len(output.Mismatches) == 0 {
		fmt.Fprintln(w, "✓ Replay matches the action log")
		return
	}
	fmt.Fprintln(w, "✗ Replay diverged from the action log")
}

// openExistingLog opens the log at path, refusing to create a new file.
func openExistingLog(path string) (*actionlog.Log, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	log, err := actionlog.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return log, nil
}

// buildReducer looks up a demo reducer and builds it with the command's logger.
func buildReducer(opts *RootOptions, name string, cmd *cobra.Command) (statecore.Reducer, error) {
	factory, err := demo.Lookup(name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --reducer", err)
	}
	return factory(statecore.CombineWithLogger(opts.logger(cmd))), nil
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
