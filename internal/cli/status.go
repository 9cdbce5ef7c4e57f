package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/session"
)

// StatusView is the status command payload.
type StatusView struct {
	session.Snapshot
	Position   int    `json:"position"`
	Chapters   int    `json:"chapters"`
	Avatar     string `json:"avatar,omitempty"`
	NeedsIntro bool   `json:"needs_intro"`
}

// ChapterView is a chapter as shown to the learner.
type ChapterView struct {
	ID       string   `json:"id"`
	Position int      `json:"position"`
	Book     int      `json:"book"`
	Locale   string   `json:"locale"`
	Title    string   `json:"title"`
	Lore     string   `json:"lore"`
	Lesson   string   `json:"lesson"`
	Code     string   `json:"code"`
	Hints    []string `json:"hints,omitempty"`
	Total    int      `json:"hints_total"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show saved progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				view := statusView(ctx, a.session)
				return a.out.Success(view, func(w io.Writer) { renderStatus(w, a.out.Style, view) })
			})
		},
	}
}

func statusView(ctx context.Context, s *session.Session) StatusView {
	snap := s.Snapshot()
	view := StatusView{
		Snapshot:   snap,
		Position:   snap.Progress.Index + 1,
		Chapters:   s.Curriculum().Len(),
		NeedsIntro: s.NeedsIntro(ctx),
	}
	if seed, ok := s.AvatarSeed(ctx); ok {
		view.Avatar = seed
	}
	return view
}

func renderStatus(w io.Writer, st *Styler, v StatusView) {
	fmt.Fprintf(w, "%s %s\n", st.Title(fmt.Sprintf("Chapter %d/%d:", v.Position, v.Chapters)), v.Title)
	field := func(label string, value any) { fmt.Fprintf(w, "  %-12s %v\n", label+":", value) }
	field("book", v.Book)
	field("completed", fmt.Sprintf("%d/%d", len(v.Progress.Completed), v.Chapters))
	field("stage", v.Progress.Stage)
	field("locale", v.Locale)
	field("interpreter", v.Host)
	if v.HostError != "" {
		fmt.Fprintf(w, "  %s\n", st.Fail(v.HostError))
	}
	if v.Avatar != "" {
		field("avatar", v.Avatar)
	}
	if v.Progress.JourneyComplete {
		fmt.Fprintln(w, st.OK("Journey complete. The golem is fully awake."))
	}
	if v.NeedsIntro {
		fmt.Fprintln(w, st.Dim("New here? Try `golem play`."))
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current chapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				view := chapterView(a.session)
				return a.out.Success(view, func(w io.Writer) { renderChapter(w, a.out.Style, view) })
			})
		},
	}
}

func chapterView(s *session.Session) ChapterView {
	ch := s.Chapter()
	return newChapterView(ch, s.Machine().Index(), s.Buffer(), s.Hints())
}

func newChapterView(ch content.Resolved, index int, code string, hints []string) ChapterView {
	return ChapterView{
		ID:       ch.ID,
		Position: index + 1,
		Book:     ch.Book,
		Locale:   ch.Locale.String(),
		Title:    ch.Title,
		Lore:     strings.TrimSpace(ch.Lore),
		Lesson:   strings.TrimSpace(ch.Lesson),
		Code:     code,
		Hints:    hints,
		Total:    len(ch.Hints),
	}
}

func renderChapter(w io.Writer, st *Styler, v ChapterView) {
	fmt.Fprintln(w, st.Title(fmt.Sprintf("%d. %s", v.Position, v.Title)))
	fmt.Fprintln(w, st.Dim(fmt.Sprintf("book %d · %s", v.Book, v.ID)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, v.Lore)
	fmt.Fprintln(w)
	fmt.Fprintln(w, v.Lesson)
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Dim("---"))
	fmt.Fprint(w, ensureNewline(v.Code))
	fmt.Fprintln(w, st.Dim("---"))
	for i, h := range v.Hints {
		fmt.Fprintf(w, "hint %d: %s\n", i+1, h)
	}
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
