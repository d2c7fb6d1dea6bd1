package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/procfg/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Process string                     `json:"process,omitempty"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <process>",
		Short: "Check a process file without writing a snapshot",
		Long: `Build a process file and check the result for problems the builder
accepts but an event loop would trip over: empty paths, modules repeated
within a path, declared paths missing from the schedule, output modules
without outputCommands.

Build errors are reported as findings too, so one run shows everything
wrong with the file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	env, err := openEnvironment(opts, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer env.Close()

	result, err := validateProcess(cmd.Context(), env, path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	formatter.VerboseLog("No findings for %s", result.Process)
	return formatter.Render(result, nil, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s is valid\n", result.Process)
	})
}

// validateProcess builds path and collects findings. Only errors that stop
// the file from being read at all are returned as errors.
func validateProcess(ctx context.Context, env *environment, path string) (*ValidationResult, error) {
	built, err := env.build(ctx, path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, err
		}
		return &ValidationResult{Errors: []compiler.ValidationError{buildFinding(err)}}, nil
	}

	findings := compiler.Validate(built.Snapshot)
	return &ValidationResult{
		Valid:   len(findings) == 0,
		Process: built.Snapshot.Name,
		Errors:  findings,
	}, nil
}

// buildFinding turns a build error into a validation finding.
func buildFinding(err error) compiler.ValidationError {
	code, message, _ := describeError(err)
	finding := compiler.ValidationError{Field: "process", Message: message, Code: code}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		finding.Field = compileErr.Field
		if compileErr.Pos.IsValid() {
			finding.Line = compileErr.Pos.Line()
		}
	}
	return finding
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
