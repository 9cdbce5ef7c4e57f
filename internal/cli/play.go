package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/config"
	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/progress"
	"github.com/roach88/golem/internal/session"
)

// Prompter reads lines for the play REPL. *liner.State implements it.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type linerPrompter struct {
	*liner.State
	history string
}

func newLinerPrompter(historyPath string) (Prompter, error) {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return &linerPrompter{State: line, history: historyPath}, nil
}

func (p *linerPrompter) Close() error {
	if p.history != "" {
		if f, err := os.Create(p.history); err == nil {
			_, _ = p.WriteHistory(f)
			f.Close()
		}
	}
	return p.State.Close()
}

const playHelp = `Type Starlark lines to add them to your code. Commands:
  :run            submit your code
  :show           show the chapter and your code
  :code           show your code
  :clear          empty your code
  :starter        restore the starter code
  :hint           reveal the next hint
  :solve          load the solution
  :next           go to the next chapter
  :confirm        open the next book
  :prev           go back one chapter
  :goto <n|id>    jump to an unlocked chapter
  :locale <tag>   switch language
  :retry          restart a failed interpreter
  :stats          attempt statistics for this session
  :help           this text
  :quit           leave`

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				newPrompter := rootOpts.NewPrompter
				if newPrompter == nil {
					newPrompter = newLinerPrompter
				}
				p, err := newPrompter(historyPath(a.cfg))
				if err != nil {
					return WrapExitError(ExitCommandError, "open line editor", err)
				}
				defer p.Close()

				r := &repl{a: a, w: cmd.OutOrStdout(), st: a.out.Style}
				return r.loop(ctx, p)
			})
		},
	}
}

func historyPath(cfg config.Config) string {
	if cfg.Backend == config.BackendMemory {
		return ""
	}
	return filepath.Join(cfg.DataDir, "history")
}

type repl struct {
	a  *app
	w  io.Writer
	st *Styler
}

func (r *repl) loop(ctx context.Context, p Prompter) error {
	s := r.a.session
	if s.NeedsIntro(ctx) {
		r.intro()
		if err := s.MarkIntroSeen(ctx); err != nil {
			r.a.logger.Warn("intro not saved", "error", err)
		}
	}
	r.show()
	r.hostStatus()
	fmt.Fprintln(r.w, r.st.Dim("Type :help for commands."))

	for {
		line, err := p.Prompt(s.Chapter().ID + "> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.w)
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "read input", err)
		}
		if strings.TrimSpace(line) != "" {
			p.AppendHistory(line)
		}
		if quit := r.dispatch(ctx, line); quit {
			return nil
		}
	}
}

// dispatch handles one input line and reports whether the REPL should end.
func (r *repl) dispatch(ctx context.Context, line string) bool {
	s := r.a.session
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ":") {
		s.SetBuffer(ensureNewline(s.Buffer()) + line + "\n")
		return false
	}

	fields := strings.Fields(trimmed)
	name, args := fields[0], fields[1:]
	switch name {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(r.w, playHelp)
	case ":run":
		r.run(ctx)
	case ":show":
		r.show()
	case ":code":
		fmt.Fprint(r.w, ensureNewline(s.Buffer()))
	case ":clear":
		s.SetBuffer("")
	case ":starter":
		s.SetBuffer(s.Chapter().InitialCode)
		fmt.Fprint(r.w, ensureNewline(s.Buffer()))
	case ":hint":
		hint, err := s.RevealHint()
		if err != nil {
			r.fail(err)
			break
		}
		fmt.Fprintf(r.w, "hint %d: %s\n", len(s.Hints()), hint)
	case ":solve":
		fmt.Fprint(r.w, ensureNewline(s.Solve()))
	case ":next":
		outcome, err := s.Next(ctx)
		if err != nil {
			r.fail(err)
			break
		}
		if outcome == progress.AdvancePending {
			t, _ := s.Machine().Pending()
			fmt.Fprintln(r.w, r.st.OK(fmt.Sprintf("Book %d is complete.", t.FromBook))+" "+r.st.Dim(fmt.Sprintf(":confirm opens book %d.", t.ToBook)))
			break
		}
		r.show()
	case ":confirm":
		if err := s.ConfirmBook(ctx); err != nil {
			r.fail(err)
			break
		}
		r.show()
	case ":prev":
		if err := s.Prev(ctx); err != nil {
			r.fail(err)
			break
		}
		r.show()
	case ":goto":
		if len(args) != 1 {
			fmt.Fprintln(r.w, "usage: :goto <n|id>")
			break
		}
		i, err := chapterIndex(s.Curriculum(), args[0])
		if err == nil {
			err = s.Select(ctx, i)
		}
		if err != nil {
			r.fail(err)
			break
		}
		r.show()
	case ":locale":
		if len(args) != 1 {
			fmt.Fprintf(r.w, "locale: %s\n", s.Locale())
			break
		}
		tag, err := s.SetLocale(ctx, args[0])
		if err != nil {
			r.fail(err)
			break
		}
		fmt.Fprintf(r.w, "locale: %s\n", tag)
		r.show()
	case ":retry":
		if err := s.RetryHost(ctx); err != nil {
			r.fail(err)
			break
		}
		r.hostStatus()
	case ":stats":
		r.stats()
	default:
		fmt.Fprintf(r.w, "unknown command %s (try :help)\n", name)
	}
	return false
}

func (r *repl) run(ctx context.Context) {
	s := r.a.session
	res, err := s.Run(ctx)
	if err != nil {
		r.fail(err)
		return
	}
	if res.Passed() {
		_ = s.Continue()
	}
	renderAttempt(r.w, r.st, AttemptView{Result: res, Output: s.Output()})
}

func (r *repl) show() {
	renderChapter(r.w, r.st, chapterView(r.a.session))
}

func (r *repl) intro() {
	fmt.Fprintln(r.w, r.st.Title("Welcome to the workshop."))
	fmt.Fprintln(r.w, "A golem of clay waits for your instructions. Each chapter asks for a few")
	fmt.Fprintln(r.w, "lines of code; when they are right, the golem learns something new.")
	fmt.Fprintln(r.w)
}

func (r *repl) hostStatus() {
	if err := r.a.session.HostError(); err != nil {
		fmt.Fprintln(r.w, r.st.Fail("The interpreter failed to start: ")+err.Error())
		fmt.Fprintln(r.w, r.st.Dim(":retry tries again."))
		return
	}
	fmt.Fprintln(r.w, r.st.Dim("interpreter "+r.a.session.HostState().String()))
}

func (r *repl) fail(err error) {
	fmt.Fprintln(r.w, r.st.Fail(describe(err)))
}

// stats prints the engine counters gathered from the session registry.
func (r *repl) stats() {
	families, err := r.a.registry.Gather()
	if err != nil {
		r.fail(err)
		return
	}
	counts := map[string]float64{}
	var rejected, seconds float64
	var graded uint64
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "golem_attempts_total":
				for _, l := range m.GetLabel() {
					if l.GetName() == "outcome" {
						counts[l.GetValue()] = m.GetCounter().GetValue()
					}
				}
			case "golem_attempts_rejected_total":
				rejected = m.GetCounter().GetValue()
			case "golem_attempt_duration_seconds":
				graded = m.GetHistogram().GetSampleCount()
				seconds = m.GetHistogram().GetSampleSum()
			}
		}
	}

	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	fmt.Fprintf(r.w, "attempts: %d\n", graded)
	for _, o := range outcomes {
		fmt.Fprintf(r.w, "  %-8s %.0f\n", o, counts[o])
	}
	if rejected > 0 {
		fmt.Fprintf(r.w, "  rejected %.0f\n", rejected)
	}
	if graded > 0 {
		fmt.Fprintf(r.w, "mean duration: %.1fms\n", seconds/float64(graded)*1000)
	}
}

// describe turns navigation and attempt errors into learner-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, engine.ErrBusy):
		return "An attempt is still running."
	case errors.Is(err, progress.ErrChapterLocked):
		return "That chapter is still locked. Finish the one before it first."
	case errors.Is(err, progress.ErrNoNextChapter):
		return "This is the last chapter."
	case errors.Is(err, progress.ErrNoPreviousChapter):
		return "This is the first chapter."
	case errors.Is(err, progress.ErrTransitionPending):
		return "A new book is waiting. Confirm it first."
	case errors.Is(err, progress.ErrNoPendingTransition):
		return "There is no book transition to confirm."
	case errors.Is(err, progress.ErrIndexOutOfRange):
		return "No such chapter."
	case errors.Is(err, session.ErrNoMoreHints):
		return "No more hints for this chapter."
	}
	return err.Error()
}
