package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rida-louchachha/punchsync/internal/profile"
)

// ValidationResult holds profile validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Profiles []string `json:"profiles,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <profiles-dir>",
		Short: "Compile-check vendor profiles",
		Long: `Compile every vendor profile declared in a directory of .cue files and
report all problems at once: missing or overlapping punch-code
partitions, unloadable timezones, malformed method maps.

Example:
  punchsync validate ./profiles`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, errs := profile.LoadDir(dir)
	if result == nil {
		// Structural failure: nothing could be loaded at all.
		_ = formatter.Error(errs[0].Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load profiles", errs[0])
	}
	formatter.VerboseLog("found %d .cue file(s) in %s", result.FileCount, dir)

	names := make([]string, 0, len(result.Profiles))
	for name := range result.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(errs) > 0 {
		res := ValidationResult{Profiles: names}
		for _, err := range errs {
			res.Errors = append(res.Errors, err.Error())
		}

		if formatter.Format == "json" {
			if err := formatter.Error("validation failed", res); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Validation failed")
			for _, msg := range res.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", msg)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	if formatter.Format == "json" {
		return formatter.JSON(ValidationResult{Valid: true, Profiles: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d profile(s) valid\n", len(names))
	for _, name := range names {
		fmt.Fprintf(formatter.Writer, "  %s\n", name)
	}
	return nil
}
