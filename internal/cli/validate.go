package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/nodelink/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Scene    string                     `json:"scene,omitempty"`
	Nodes    int                        `json:"nodes"`
	Links    int                        `json:"links"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scene>",
		Short: "Check a scene without building it",
		Long: `Compile a CUE scene and check it against the host's structural rules.

Every error is reported, not just the first. Feedback loops in the
scene's links are reported as warnings and do not fail validation.

Exit codes:
  0 - Scene is valid
  1 - Scene does not compile or is invalid
  2 - Command error (scene not found, etc.)

Examples:
  nodelink validate ./scenes/rig.cue
  nodelink validate ./scenes/rig.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	spec, err := compiler.CompileFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return formatter.Abort(ExitCommandError, ErrCodeNotFound, "scene not found", err)
		}
		return outputValidationErrors(formatter, ValidationResult{
			Errors: []compiler.ValidationError{compileFailure(err)},
		})
	}
	formatter.VerboseLog("Compiled scene %s: %d node(s), %d link(s)", spec.Name, len(spec.Nodes), len(spec.Links))

	result := ValidationResult{
		Scene:  spec.Name,
		Nodes:  len(spec.Nodes),
		Links:  len(spec.Links),
		Errors: compiler.Validate(spec),
	}
	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	result.Valid = true
	result.Warnings = compiler.AnalyzeCycles(spec)
	return outputValidateSuccess(formatter, result)
}

// compileFailure converts a compile error into a validation error so both
// are reported the same way.
func compileFailure(err error) compiler.ValidationError {
	var cerr *compiler.CompileError
	if errors.As(err, &cerr) {
		field := cerr.Field
		if cerr.Pos.IsValid() {
			field = fmt.Sprintf("%s (line %d)", field, cerr.Pos.Line())
		}
		return compiler.ValidationError{Field: field, Message: cerr.Message, Code: ErrCodeCompile}
	}
	return compiler.ValidationError{Field: "scene", Message: err.Error(), Code: ErrCodeCompile}
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Scene %s valid (%d nodes, %d links)\n", result.Scene, result.Nodes, result.Links)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn.Message)
	}
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	msg := fmt.Sprintf("validation failed with %d error(s)", len(result.Errors))
	if formatter.JSON() {
		return formatter.Fail(ExitFailure, result.Errors[0].Code, msg, result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, msg)
}
