package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/harness"
	"github.com/roach88/golem/internal/sandbox"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Grade every chapter's solution and starter code",
		Long: `Run each chapter of a curriculum on a fresh interpreter, in every locale
it ships: the solution must complete the chapter and the starter code must
not. Without a path the configured curriculum is checked.

Exit codes:
  0 - Every chapter behaves
  1 - A chapter is broken, or the curriculum does not load
  2 - Command error`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}
}

func runCheck(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	path, err := curriculumPath(opts, args)
	if err != nil {
		return err
	}
	cur, err := loadCurriculum(path)
	if err != nil {
		return outputValidateError(formatter, err)
	}
	formatter.VerboseLog("Checking %d chapter(s) from %s", cur.Len(), displayPath(path))

	var hostOpts []sandbox.Option
	if opts.Verbose {
		hostOpts = append(hostOpts, sandbox.WithLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))))
	}
	report, err := harness.Check(cmd.Context(), cur, hostOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "check", err)
	}

	render := func(w io.Writer) {
		st := formatter.Style
		for _, r := range report.Results {
			mark := st.OK("✓")
			if !r.OK {
				mark = st.Fail("✗")
			}
			fmt.Fprintf(w, "%s %s [%s] %s\n", mark, r.ChapterID, r.Locale, r.Subject)
			if !r.OK || formatter.Verbose {
				fmt.Fprintf(w, "    want %s, got %s: %s\n", r.Want, r.Outcome, r.Message)
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Check Summary: %d passed, %d failed, %d total\n",
			len(report.Results)-len(report.Failed()), len(report.Failed()), len(report.Results))
	}

	if failed := report.Failed(); len(failed) > 0 {
		return formatter.Failure(ExitFailure, CodeCheckFailed, fmt.Sprintf("%d check(s) failed", len(failed)), report, render)
	}
	return formatter.Success(report, render)
}
