package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/progress"
	"github.com/roach88/golem/internal/sandbox"
	"github.com/roach88/golem/internal/session"
	"github.com/roach88/golem/internal/store"
	"github.com/roach88/golem/internal/testutil"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int      `json:"step"`
	Action  string   `json:"action"`
	Chapter string   `json:"chapter"`
	ID      string   `json:"id,omitempty"`
	Seq     int64    `json:"seq,omitempty"`
	Outcome string   `json:"outcome,omitempty"`
	Message string   `json:"message,omitempty"`
	Hint    string   `json:"hint,omitempty"`
	Output  []string `json:"output,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step.
	Trace []TraceEvent `json:"trace"`

	// Errors lists every failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the progress state after the last step.
	Final progress.State `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness runs one scenario against an isolated session.
type Harness struct {
	session *session.Session
	journal *store.Store
	logger  *slog.Logger
}

// Run executes scenario on a fresh session: in-memory preferences, an
// in-memory SQLite journal and a private interpreter host.
//
// The returned error is non-nil only when the scenario could not be run at
// all; failed expectations are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cur, err := loadCurriculum(scenario.Curriculum)
	if err != nil {
		return nil, err
	}

	journal, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer journal.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prefs := store.NewPreferences(store.NewMemory(), logger)
	if scenario.Locale != "" {
		if err := prefs.SetLocale(ctx, content.MatchLocale(scenario.Locale).String()); err != nil {
			return nil, err
		}
	}

	wall := testutil.NewStepClock(testutil.Epoch, time.Millisecond)
	sess, err := session.Open(ctx, session.Options{
		Curriculum: cur,
		Prefs:      prefs,
		Host:       sandbox.New(sandbox.WithLogger(logger)),
		Logger:     logger,
		EngineOptions: []engine.Option{
			engine.WithJournal(journal),
			engine.WithIDGenerator(testutil.NewSequentialIDs("attempt")),
			engine.WithNow(wall.Now),
		},
	})
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	if err := sess.HostError(); err != nil {
		return nil, fmt.Errorf("sandbox unavailable: %w", err)
	}

	h := &Harness{session: sess, journal: journal, logger: logger}
	result := NewResult()
	for i, step := range scenario.Steps {
		h.step(ctx, i, step, result)
	}
	result.Final = sess.Machine().Snapshot()
	h.assert(ctx, scenario.Assertions, result)
	return result, nil
}

func loadCurriculum(path string) (*content.Curriculum, error) {
	if path == "" {
		return content.Builtin()
	}
	return content.Load(path)
}

func (h *Harness) step(ctx context.Context, i int, step Step, result *Result) {
	s := h.session
	ev := TraceEvent{Step: i, Action: step.Action}

	var (
		res     engine.Result
		ran     bool
		pending bool
		err     error
	)
	switch step.Action {
	case ActionRun:
		if step.Code != "" {
			s.SetBuffer(step.Code)
		}
		res, err = s.Run(ctx)
		ran = err == nil
	case ActionSolve:
		s.Solve()
		res, err = s.Run(ctx)
		ran = err == nil
	case ActionNext:
		var outcome progress.AdvanceOutcome
		outcome, err = s.Next(ctx)
		pending = err == nil && outcome == progress.AdvancePending
	case ActionConfirm:
		err = s.ConfirmBook(ctx)
	case ActionPrev:
		err = s.Prev(ctx)
	case ActionGoto:
		err = s.Select(ctx, step.Index)
	case ActionHint:
		ev.Hint, err = s.RevealHint()
	case ActionLocale:
		_, err = s.SetLocale(ctx, step.Locale)
	case ActionReset:
		err = s.HardReset(ctx)
	}

	ev.Chapter = s.Chapter().ID
	if ran {
		ev.ID = res.ID
		ev.Seq = res.Seq
		ev.Outcome = res.Outcome.String()
		ev.Message = res.Message
		for _, line := range s.Output() {
			ev.Output = append(ev.Output, line.String())
		}
	}
	if err != nil {
		ev.Error = err.Error()
	}
	result.Trace = append(result.Trace, ev)
	h.logger.Debug("step", "index", i, "action", step.Action, "chapter", ev.Chapter, "error", err)

	h.expect(i, step, ev, pending, result)
}

func (h *Harness) expect(i int, step Step, ev TraceEvent, pending bool, result *Result) {
	label := fmt.Sprintf("steps[%d] %s", i, step.Action)
	want := step.Expect
	if want == nil {
		want = &Expect{}
	}

	switch {
	case want.Error != "" && ev.Error == "":
		result.AddError("%s: expected error containing %q, got none", label, want.Error)
	case want.Error != "" && !strings.Contains(ev.Error, want.Error):
		result.AddError("%s: expected error containing %q, got %q", label, want.Error, ev.Error)
	case want.Error == "" && ev.Error != "":
		result.AddError("%s: unexpected error: %s", label, ev.Error)
	}

	if want.Outcome != "" && ev.Outcome != want.Outcome {
		result.AddError("%s: expected outcome %s, got %q (%s)", label, want.Outcome, ev.Outcome, ev.Message)
	}
	if want.Message != "" && !strings.Contains(ev.Message, want.Message) {
		result.AddError("%s: expected message containing %q, got %q", label, want.Message, ev.Message)
	}
	if want.LastLine != "" {
		last := ""
		if n := len(ev.Output); n > 0 {
			last = ev.Output[n-1]
		}
		if last != want.LastLine {
			result.AddError("%s: expected last line %q, got %q", label, want.LastLine, last)
		}
	}
	if want.Chapter != "" && ev.Chapter != want.Chapter {
		result.AddError("%s: expected chapter %s, got %s", label, want.Chapter, ev.Chapter)
	}
	if want.Pending != nil && *want.Pending != pending {
		result.AddError("%s: expected pending=%t, got %t", label, *want.Pending, pending)
	}
	if want.Hint != "" && ev.Hint != want.Hint {
		result.AddError("%s: expected hint %q, got %q", label, want.Hint, ev.Hint)
	}
}

func (h *Harness) assert(ctx context.Context, assertions []Assertion, result *Result) {
	final := result.Final
	for i, a := range assertions {
		label := fmt.Sprintf("assertions[%d] %s", i, a.Type)
		switch a.Type {
		case AssertCompleted:
			want := a.IDs
			if want == nil {
				want = []string{}
			}
			if !slices.Equal(final.Completed, want) {
				result.AddError("%s: expected %v, got %v", label, want, final.Completed)
			}
		case AssertIndex:
			if final.Index != a.Index {
				result.AddError("%s: expected %d, got %d", label, a.Index, final.Index)
			}
		case AssertStage:
			if final.Stage != a.Count {
				result.AddError("%s: expected %d, got %d", label, a.Count, final.Stage)
			}
		case AssertJourneyComplete:
			want := a.Want == nil || *a.Want
			if final.JourneyComplete != want {
				result.AddError("%s: expected %t, got %t", label, want, final.JourneyComplete)
			}
		case AssertAttempts:
			records, err := h.journal.ListAttempts(ctx, a.Chapter, 0)
			if err != nil {
				result.AddError("%s: %v", label, err)
				continue
			}
			if len(records) != a.Count {
				result.AddError("%s: expected %d journal entries, got %d", label, a.Count, len(records))
			}
		}
	}
}
