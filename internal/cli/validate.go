package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/content"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Chapters int               `json:"chapters"`
	Problems []content.Problem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a curriculum without running it",
		Long: `Validate a curriculum file or CUE directory: schema, ids, book order and
required fields. Without a path the configured curriculum is checked
(the builtin one unless --content is set).

Every problem is reported, not only the first. Use check to also run
each chapter's solution and starter code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	path, err := curriculumPath(opts, args)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Validating %s", displayPath(path))

	cur, err := loadCurriculum(path)
	if err != nil {
		return outputValidateError(formatter, err)
	}

	problems := content.Validate(cur.Chapters())
	if len(problems) > 0 {
		return outputValidationProblems(formatter, cur.Len(), problems)
	}

	return formatter.Success(ValidationResult{Valid: true, Chapters: cur.Len()}, func(w io.Writer) {
		fmt.Fprintln(w, formatter.Style.OK(fmt.Sprintf("✓ Curriculum valid (%d chapters)", cur.Len())))
	})
}

// curriculumPath picks the explicit argument, else the configured content.
func curriculumPath(opts *RootOptions, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return "", err
	}
	return cfg.ContentPath, nil
}

func displayPath(path string) string {
	if path == "" {
		return "builtin curriculum"
	}
	return path
}

// outputValidateError reports a curriculum that failed to load.
func outputValidateError(formatter *OutputFormatter, err error) error {
	code, message := CodeInvalidContent, err.Error()
	var loadErr *content.LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}
	_ = formatter.Error(code, message, nil)
	// Unloadable content is a validation failure (exit code 1)
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationProblems outputs every problem found by content.Validate.
func outputValidationProblems(formatter *OutputFormatter, chapters int, problems []content.Problem) error {
	result := ValidationResult{Valid: false, Chapters: chapters, Problems: problems}
	message := fmt.Sprintf("validation failed with %d problem(s)", len(problems))
	return formatter.Failure(ExitFailure, CodeInvalidContent, message, result, func(w io.Writer) {
		fmt.Fprintln(w, formatter.Style.Fail("✗ Validation failed"))
		fmt.Fprintln(w)
		for _, p := range problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
	})
}
