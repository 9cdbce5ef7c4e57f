package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/session"
	"github.com/roach88/golem/internal/store"
)

// HintOptions holds flags for the hint command.
type HintOptions struct {
	*RootOptions
	Count int
	All   bool
}

// NewHintCommand creates the hint command.
func NewHintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hint",
		Short: "Reveal hints for the current chapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Count < 1 {
				return NewExitError(ExitCommandError, "--count must be at least 1")
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				s := a.session
				for n := 0; opts.All || n < opts.Count; n++ {
					if _, err := s.RevealHint(); errors.Is(err, session.ErrNoMoreHints) {
						break
					} else if err != nil {
						return err
					}
				}
				hints := s.Hints()
				total := len(s.Chapter().Hints)
				data := map[string]any{"hints": hints, "total": total}
				return a.out.Success(data, func(w io.Writer) {
					if total == 0 {
						fmt.Fprintln(w, "This chapter has no hints.")
						return
					}
					for i, h := range hints {
						fmt.Fprintf(w, "hint %d/%d: %s\n", i+1, total, h)
					}
				})
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of hints to reveal")
	cmd.Flags().BoolVar(&opts.All, "all", false, "reveal every hint")

	return cmd
}

// NewSolutionCommand creates the solution command.
func NewSolutionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "solution",
		Short: "Print the solution of the current chapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				code := a.session.Solve()
				data := map[string]string{"chapter": a.session.Chapter().ID, "code": code}
				return a.out.Success(data, func(w io.Writer) { fmt.Fprint(w, ensureNewline(code)) })
			})
		},
	}
}

// LocaleView is the locale command payload.
type LocaleView struct {
	Locale    string   `json:"locale"`
	Supported []string `json:"supported"`
	Title     string   `json:"title"`
}

// NewLocaleCommand creates the locale command.
func NewLocaleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locale [tag]",
		Short: "Show or switch the tutorial language",
		Long: `Show the current language, or switch to tag. Tags are matched to the
closest supported language (en-GB becomes en); unsupported tags fall back
to the default.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				s := a.session
				if len(args) == 1 {
					if _, err := s.SetLocale(ctx, args[0]); err != nil {
						return WrapExitError(ExitCommandError, "switch locale", err)
					}
				}
				view := LocaleView{Locale: s.Locale().String(), Title: s.Chapter().Title}
				for _, tag := range content.Supported {
					view.Supported = append(view.Supported, tag.String())
				}
				return a.out.Success(view, func(w io.Writer) {
					fmt.Fprintf(w, "locale: %s %s\n", view.Locale, a.out.Style.Dim(fmt.Sprintf("(supported: %v)", view.Supported)))
					fmt.Fprintf(w, "chapter: %s\n", view.Title)
				})
			})
		},
	}
}

// ForgeOptions holds flags for the forge command.
type ForgeOptions struct {
	*RootOptions
	Seed    string
	Abandon bool
}

// NewForgeCommand creates the forge command.
func NewForgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ForgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "forge",
		Short: "Forge your golem's avatar",
		Long: fmt.Sprintf(`Forge a new avatar seed (%d digits), random unless --seed is given.
--abandon forgets the avatar; progress is kept.`, session.SeedLength),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Abandon && opts.Seed != "" {
				return NewExitError(ExitCommandError, "--seed and --abandon are mutually exclusive")
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				s := a.session
				if opts.Abandon {
					if err := s.AbandonAvatar(ctx); err != nil {
						return WrapExitError(ExitCommandError, "abandon avatar", err)
					}
					return a.out.Success(map[string]string{"avatar": ""}, func(w io.Writer) {
						fmt.Fprintln(w, "The golem's face crumbles back into clay.")
					})
				}
				seed, err := s.ForgeAvatar(ctx, opts.Seed)
				if err != nil {
					return WrapExitError(ExitCommandError, "forge avatar", err)
				}
				return a.out.Success(map[string]string{"avatar": seed}, func(w io.Writer) {
					fmt.Fprintf(w, "avatar forged: %s\n", a.out.Style.Title(seed))
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Seed, "seed", "", "use this seed instead of a random one")
	cmd.Flags().BoolVar(&opts.Abandon, "abandon", false, "forget the avatar")

	return cmd
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Yes bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all progress and start over",
		Long: `Erase completed chapters, preferences, the avatar and attempt history.
Asks for confirmation on a terminal; elsewhere --yes is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				ok, err := confirmReset(cmd, rootOpts)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled.")
					return nil
				}
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.session.HardReset(ctx); err != nil {
					return WrapExitError(ExitCommandError, "reset", err)
				}
				view := statusView(ctx, a.session)
				return a.out.Success(view, func(w io.Writer) {
					fmt.Fprintln(w, "All progress erased. The golem is clay again.")
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation")

	return cmd
}

func confirmReset(cmd *cobra.Command, opts *RootOptions) (bool, error) {
	const title = "Erase all progress?"
	if opts.Confirm != nil {
		return opts.Confirm(title, cmd.InOrStdin())
	}
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isatty.IsTerminal(in.Fd()) {
		return false, NewExitError(ExitCommandError, "refusing to reset without --yes: stdin is not a terminal")
	}
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Description("Completed chapters, preferences and attempt history will be lost.").
		Affirmative("Erase").
		Negative("Keep").
		Value(&confirmed).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, WrapExitError(ExitCommandError, "confirmation", err)
	}
	return confirmed, nil
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Chapter string
	Limit   int
}

// AttemptEntry is one journal row as reported by history.
type AttemptEntry struct {
	ID        string        `json:"id"`
	Seq       int64         `json:"seq"`
	ChapterID string        `json:"chapter"`
	Outcome   string        `json:"outcome"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				records, err := a.journal.ListAttempts(ctx, opts.Chapter, opts.Limit)
				if err != nil {
					return WrapExitError(ExitCommandError, "read history", err)
				}
				entries := make([]AttemptEntry, 0, len(records))
				for _, rec := range records {
					entries = append(entries, attemptEntry(rec))
				}
				return a.out.Success(entries, func(w io.Writer) { renderHistory(w, a.out.Style, entries) })
			})
		},
	}

	cmd.Flags().StringVar(&opts.Chapter, "chapter", "", "only attempts at this chapter id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of attempts (0 for all)")

	return cmd
}

func attemptEntry(rec store.AttemptRecord) AttemptEntry {
	return AttemptEntry{
		ID:        rec.ID,
		Seq:       rec.Seq,
		ChapterID: rec.ChapterID,
		Outcome:   rec.Outcome,
		Message:   rec.Message,
		Duration:  rec.Duration,
		CreatedAt: rec.CreatedAt,
	}
}

func renderHistory(w io.Writer, st *Styler, entries []AttemptEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No attempts yet.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%4d  %-12s %-8s %s %s\n", e.Seq, e.ChapterID, e.Outcome, e.Message, st.Dim(e.Duration.String()))
	}
}
