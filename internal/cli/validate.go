package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/statecore/internal/demo"
	"github.com/roach88/statecore/internal/harness"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Schema string
}

// FileValidation is the validation outcome for one file.
type FileValidation struct {
	File   string         `json:"file"`
	Kind   string         `json:"kind"` // "scenario", "schema", or "state"
	Valid  bool           `json:"valid"`
	Issues []schema.Issue `json:"issues,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check scenarios, schemas, and state documents",
		Long: `Validate files without dispatching into a persistent store.

  *.yaml, *.yml  scenario files: parsed strictly, reducer and schema resolved.
                 With --schema the scenario is run and its final state checked.
  *.cue          schema files: compiled and checked for a #State definition.
  *.json         state documents: checked against --schema, or against the
                 app reducer's schema when --schema is not set.

Exit codes:
  0 - Every file is valid
  1 - One or more files are invalid
  2 - Command error (unreadable file, invalid --schema)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE file whose #State states must satisfy")

	return cmd
}

func runValidate(opts *ValidateOptions, files []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var sch *schema.Schema
	if opts.Schema != "" {
		var err error
		sch, err = schema.CompileFile(opts.Schema)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --schema", err)
		}
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			return WrapExitError(ExitCommandError, "file not found", err)
		}
		out.VerboseLog("Validating %s", file)

		fv := validateFile(opts, file, sch, cmd)
		result.Files = append(result.Files, fv)
		if !fv.Valid {
			result.Valid = false
		}
	}

	if out.JSON() {
		var cliErr *CLIError
		if !result.Valid {
			cliErr = &CLIError{Code: ErrCodeInvalid, Message: "validation failed"}
		}
		if err := out.Respond(result, cliErr); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			fmt.Fprintf(out.Writer, "%s %s (%s)\n", mark(fv.Valid), fv.File, fv.Kind)
			for _, issue := range fv.Issues {
				if issue.Path != "" {
					fmt.Fprintf(out.Writer, "  %s: %s\n", issue.Path, issue.Message)
				} else {
					fmt.Fprintf(out.Writer, "  %s\n", issue.Message)
				}
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(opts *ValidateOptions, file string, sch *schema.Schema, cmd *cobra.Command) FileValidation {
	var (
		kind string
		err  error
	)
	switch filepath.Ext(file) {
	case ".yaml", ".yml":
		kind = "scenario"
		err = validateScenarioFile(opts, file, sch, cmd)
	case ".cue":
		kind = "schema"
		_, err = schema.CompileFile(file)
	case ".json":
		kind = "state"
		err = validateStateFile(file, sch)
	default:
		kind = "unknown"
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(file))
	}

	fv := FileValidation{File: file, Kind: kind, Valid: err == nil}
	if err != nil {
		fv.Issues = issuesOf(err)
	}
	return fv
}

func validateScenarioFile(opts *ValidateOptions, file string, sch *schema.Schema, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return err
	}
	if scenario.Schema != "" {
		if _, err := schema.CompileFile(scenario.Schema); err != nil {
			return err
		}
	}
	if sch == nil {
		return nil
	}

	result, err := harness.Run(cmd.Context(), scenario, harness.WithLogger(opts.logger(cmd)))
	if err != nil {
		return err
	}
	return sch.Validate(result.State)
}

func validateStateFile(file string, sch *schema.Schema) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	state, err := ir.Decode(data)
	if err != nil {
		return err
	}
	if sch == nil {
		if sch, err = demo.AppSchema(); err != nil {
			return err
		}
	}
	return sch.Validate(state)
}

// issuesOf flattens a schema violation into its issues, or wraps any other
// error as a single issue.
func issuesOf(err error) []schema.Issue {
	var violation *schema.ViolationError
	if errors.As(err, &violation) && len(violation.Issues) > 0 {
		return violation.Issues
	}
	return []schema.Issue{{Message: err.Error()}}
}
