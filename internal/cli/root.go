package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/sandbox"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DataDir    string
	Backend    string
	Content    string

	// NewHost returns the interpreter host for a session. Nil means the
	// process-wide sandbox.Shared host.
	NewHost func() *sandbox.Host

	// NewPrompter returns the line editor used by play. Nil means liner.
	NewPrompter func(historyPath string) (Prompter, error)

	// Confirm asks a yes/no question on an interactive terminal. Nil means
	// a huh confirmation form.
	Confirm func(title string, in io.Reader) (bool, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the golem CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "golem",
		Short: "golem - learn to code by waking a golem",
		Long: `A narrative coding tutorial. Each chapter tells part of the story and
asks you to write a little Starlark; a validator decides whether the golem
wakes up. Progress is saved between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.DataDir, "data-dir", "", "directory holding saved progress")
	flags.StringVar(&opts.Backend, "backend", "", "progress store (sqlite|badger|memory)")
	flags.StringVar(&opts.Content, "content", "", "curriculum file or directory (default: builtin)")

	// Add subcommands
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewPrevCommand(opts))
	cmd.AddCommand(NewGotoCommand(opts))
	cmd.AddCommand(NewHintCommand(opts))
	cmd.AddCommand(NewSolutionCommand(opts))
	cmd.AddCommand(NewLocaleCommand(opts))
	cmd.AddCommand(NewForgeCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds the OutputFormatter for cmd.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	out := cmd.OutOrStdout()
	style := newStyler(false)
	if opts.Format == "text" {
		style = NewStyler(out)
	}
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		Style:     style,
	}
}
