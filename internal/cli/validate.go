package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cubeq/internal/cubeload"
)

// CubeSummary describes one valid cube.
type CubeSummary struct {
	Name       string `json:"name"`
	Measures   int    `json:"measures"`
	Dimensions int    `json:"dimensions"`
	Segments   int    `json:"segments"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool          `json:"valid"`
	Files int           `json:"files"`
	Cubes []CubeSummary `json:"cubes"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <cubes-dir>",
		Short: "Validate cube schemas",
		Long: `Validate the CUE cube schemas in a directory.

Every cube is compiled and every error is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cubesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	log := newLogger(opts, formatter.GetErrWriter())

	cat, errs := cubeload.LoadDir(cubesDir, cubeload.Options{}, cubeload.LoadModeCollectAll)

	// Directory-level failures come back without a catalog.
	if cat == nil {
		cliErrs := loadErrorsToCLI(errs)
		return fail(formatter, ExitCommandError, cliErrs[0].Code, cliErrs[0].Message)
	}
	log.Debug("validated cubes", "dir", cubesDir, "files", cat.FileCount, "cubes", cat.Len(), "errors", len(errs))

	if len(errs) > 0 {
		_ = formatter.Errors("Validation failed", loadErrorsToCLI(errs))
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	result := ValidationResult{Valid: true, Files: cat.FileCount}
	for _, name := range cat.Names() {
		c, _ := cat.Cube(name)
		result.Cubes = append(result.Cubes, CubeSummary{
			Name:       name,
			Measures:   len(c.Measures()),
			Dimensions: len(c.Dimensions()),
			Segments:   len(c.Segments()),
		})
	}
	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d cube(s) valid in %d file(s)\n\n", len(result.Cubes), result.Files)
	for _, c := range result.Cubes {
		fmt.Fprintf(formatter.Writer, "  %s: %d measure(s), %d dimension(s), %d segment(s)\n",
			c.Name, c.Measures, c.Dimensions, c.Segments)
	}
	return nil
}
