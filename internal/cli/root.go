package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/statecore/internal/logging"
)

// RootOptions carries the persistent flags every subcommand sees.
type RootOptions struct {
	Verbose bool
	Format  string
}

// Formats lists the values --format accepts.
var Formats = []string{"text", "json"}

// NewRootCommand assembles the statecore command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	root := &cobra.Command{
		Use:           "statecore",
		Short:         "statecore - predictable state containers",
		Long:          "Run scenarios, replay action logs, and dispatch into logged stores built from the demo reducers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if slices.Contains(Formats, opts.Format) {
				return nil
			}
			return fmt.Errorf("unknown --format %q (want one of %v)", opts.Format, Formats)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug detail to stderr")
	flags.StringVar(&opts.Format, "format", "text", "output format: text or json")

	root.AddCommand(
		NewTestCommand(opts),
		NewReplayCommand(opts),
		NewDispatchCommand(opts),
		NewValidateCommand(opts),
		NewTraceCommand(opts),
	)
	return root
}

// logger writes to the command's stderr so JSON on stdout stays parseable.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewLogger(cmd.ErrOrStderr(), o.Verbose, o.Format == "json")
}
