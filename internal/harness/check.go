package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/text/language"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/sandbox"
)

// Check subjects.
const (
	SubjectSolution = "solution"
	SubjectStarter  = "starter"
)

// CheckResult is one graded subject of one chapter in one locale.
type CheckResult struct {
	ChapterID string `json:"chapter"`
	Locale    string `json:"locale"`
	Subject   string `json:"subject"`
	Want      string `json:"want"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
	OK        bool   `json:"ok"`
}

func (r CheckResult) String() string {
	return fmt.Sprintf("%s [%s] %s: want %s, got %s: %s", r.ChapterID, r.Locale, r.Subject, r.Want, r.Outcome, r.Message)
}

// Report collects every CheckResult of a curriculum.
type Report struct {
	Results []CheckResult `json:"results"`
}

// Failed returns the results that did not meet their expectation.
func (r *Report) Failed() []CheckResult {
	var failed []CheckResult
	for _, res := range r.Results {
		if !res.OK {
			failed = append(failed, res)
		}
	}
	return failed
}

// OK reports whether every result met its expectation.
func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Check grades every chapter of cur in its root locale and in each locale
// it overrides. The solution must succeed and the starter code must fail
// cleanly (not raise an engine error). Every subject runs on its own
// freshly initialized host, so chapters cannot lean on each other's
// globals.
//
// hostOpts are applied to every host. The returned error is non-nil only
// if a host cannot be initialized.
func Check(ctx context.Context, cur *content.Curriculum, hostOpts ...sandbox.Option) (*Report, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	report := &Report{Results: []CheckResult{}}

	for _, ch := range cur.Chapters() {
		for _, tag := range checkLocales(ch) {
			resolved := ch.Resolve(tag)
			subjects := []struct {
				name string
				code string
				want engine.Outcome
			}{
				{SubjectSolution, resolved.SolutionCode, engine.OutcomeSuccess},
				{SubjectStarter, resolved.InitialCode, engine.OutcomeFailure},
			}
			for _, subject := range subjects {
				res, err := grade(ctx, resolved, subject.code, logger, hostOpts)
				if err != nil {
					return nil, fmt.Errorf("check %s [%s]: %w", ch.ID, tag, err)
				}
				report.Results = append(report.Results, CheckResult{
					ChapterID: ch.ID,
					Locale:    tag.String(),
					Subject:   subject.name,
					Want:      subject.want.String(),
					Outcome:   res.Outcome.String(),
					Message:   res.Message,
					OK:        res.Outcome == subject.want,
				})
			}
		}
	}
	return report, nil
}

func grade(ctx context.Context, ch content.Resolved, code string, logger *slog.Logger, hostOpts []sandbox.Option) (engine.Result, error) {
	opts := append([]sandbox.Option{sandbox.WithLogger(logger)}, hostOpts...)
	host := sandbox.New(opts...)
	defer host.Teardown()
	if err := host.Initialize(ctx); err != nil {
		return engine.Result{}, err
	}
	return engine.New(host, nil, engine.WithLogger(logger)).Attempt(ctx, ch, code)
}

// checkLocales returns the default locale followed by the chapter's
// override locales in sorted order.
func checkLocales(ch content.Chapter) []language.Tag {
	tags := []language.Tag{content.DefaultLocale}
	keys := make([]string, 0, len(ch.Locales))
	for key := range ch.Locales {
		if key != content.DefaultLocale.String() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		tags = append(tags, language.Make(key))
	}
	return tags
}
