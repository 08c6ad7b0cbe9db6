package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statecore/internal/actionlog"
	"github.com/roach88/statecore/internal/ir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - filter to one session
	Type     string // optional - filter to one action type
}

// TraceResult holds the trace command's output.
type TraceResult struct {
	Records []actionlog.Record `json:"records"`
	Stats   TraceStats         `json:"stats"`
}

// TraceStats summarizes the listed records.
type TraceStats struct {
	Total    int            `json:"total"`
	Sessions int            `json:"sessions"`
	ByType   map[string]int `json:"by_type"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List the records in an action log",
		Long: `List logged actions in log order with their session, payload, and
resulting state hash.

Examples:
  statecore trace --db ./actions.db
  statecore trace --db ./actions.db --type ADD_TODO
  statecore trace --db ./actions.db --session 0192... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite action log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only records written by this session")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only records of this action type")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	log, err := openExistingLog(opts.Database)
	if err != nil {
		return err
	}
	defer log.Close()

	records, err := log.Records(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read action log", err)
	}

	result := TraceResult{
		Records: filterRecords(records, opts.Session, opts.Type),
		Stats:   TraceStats{ByType: map[string]int{}},
	}
	sessions := map[string]struct{}{}
	for _, rec := range result.Records {
		result.Stats.ByType[rec.Type]++
		sessions[rec.Session] = struct{}{}
	}
	result.Stats.Total = len(result.Records)
	result.Stats.Sessions = len(sessions)

	if out.JSON() {
		return out.Respond(result, nil)
	}

	w := out.Writer
	if len(result.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}
	for _, rec := range result.Records {
		fmt.Fprintf(w, "[%d] %s", rec.Seq, rec.Type)
		if len(rec.Payload) > 0 {
			if payload, err := ir.MarshalCanonical(rec.Payload); err == nil {
				fmt.Fprintf(w, " %s", payload)
			}
		}
		fmt.Fprintf(w, " -> %s\n", short(rec.StateHash))
		if opts.Verbose {
			fmt.Fprintf(w, "  id: %s\n  session: %s\n", rec.ID, rec.Session)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d record(s) from %d session(s)\n", result.Stats.Total, result.Stats.Sessions)
	return nil
}

func filterRecords(records []actionlog.Record, session, actionType string) []actionlog.Record {
	filtered := make([]actionlog.Record, 0, len(records))
	for _, rec := range records {
		if session != "" && rec.Session != session {
			continue
		}
		if actionType != "" && rec.Type != actionType {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}
