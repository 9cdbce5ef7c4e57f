package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/progress"
)

// MoveView is the payload of next, prev and goto.
type MoveView struct {
	Chapter ChapterView          `json:"chapter"`
	Pending *progress.Transition `json:"pending,omitempty"`
}

// NextOptions holds flags for the next command.
type NextOptions struct {
	*RootOptions
	Confirm bool
}

// NewNextCommand creates the next command.
func NewNextCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NextOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Go to the next chapter",
		Long: `Go to the next chapter. The current chapter must be complete.

Leaving the last chapter of a book needs --confirm; without it the
transition is only reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				s := a.session
				outcome, err := s.Next(ctx)
				if err != nil {
					return navigationError(a, err)
				}
				if outcome == progress.AdvancePending {
					t, _ := s.Machine().Pending()
					if !opts.Confirm {
						view := MoveView{Chapter: chapterView(s), Pending: &t}
						return a.out.Success(view, func(w io.Writer) {
							fmt.Fprintln(w, a.out.Style.OK(fmt.Sprintf("Book %d is complete.", t.FromBook)))
							fmt.Fprintf(w, "Run `golem next --confirm` to open book %d.\n", t.ToBook)
						})
					}
					if err := s.ConfirmBook(ctx); err != nil {
						return navigationError(a, err)
					}
				}
				return moved(a)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Confirm, "confirm", false, "confirm a book transition")

	return cmd
}

// NewPrevCommand creates the prev command.
func NewPrevCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prev",
		Short: "Go back one chapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.session.Prev(ctx); err != nil {
					return navigationError(a, err)
				}
				return moved(a)
			})
		},
	}
}

// NewGotoCommand creates the goto command.
func NewGotoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "goto <n|id>",
		Short: "Jump to an unlocked chapter",
		Long: `Jump to a chapter by its position (1 is the first chapter) or its id.
Only completed chapters and the one after them are unlocked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				i, err := chapterIndex(a.session.Curriculum(), args[0])
				if err == nil {
					err = a.session.Select(ctx, i)
				}
				if err != nil {
					return navigationError(a, err)
				}
				return moved(a)
			})
		},
	}
}

// chapterIndex resolves a 1-based position or a chapter id.
func chapterIndex(cur *content.Curriculum, arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > cur.Len() {
			return 0, fmt.Errorf("%w: %d", progress.ErrIndexOutOfRange, n)
		}
		return n - 1, nil
	}
	if i, ok := cur.IndexOf(arg); ok {
		return i, nil
	}
	return 0, fmt.Errorf("%w: no chapter %q", progress.ErrIndexOutOfRange, arg)
}

func moved(a *app) error {
	view := MoveView{Chapter: chapterView(a.session)}
	return a.out.Success(view, func(w io.Writer) { renderChapter(w, a.out.Style, view.Chapter) })
}

func navigationError(a *app, err error) error {
	if errors.Is(err, engine.ErrBusy) {
		return WrapExitError(ExitCommandError, "navigation rejected", err)
	}
	msg := describe(err)
	return a.out.Failure(ExitFailure, CodeNavigation, msg, nil, func(w io.Writer) {
		fmt.Fprintln(w, a.out.Style.Fail(msg))
	})
}
