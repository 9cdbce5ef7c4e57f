package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/sandbox"
)

func load(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return s
}

func TestLoadScenario_ResolvesCurriculumPath(t *testing.T) {
	s := load(t, "book_transition")
	assert.Equal(t, "book_transition", s.Name)
	assert.Equal(t, "testdata/curricula/tiny.yaml", s.Curriculum)
	assert.Len(t, s.Steps, 9)
	assert.Len(t, s.Assertions, 3)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	assert.Error(t, err)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "description: d\nsteps: [{action: run}]", "name is required"},
		{"no description", "name: n\nsteps: [{action: run}]", "description is required"},
		{"no steps", "name: n\ndescription: d", "steps list is required"},
		{"unknown field", "name: n\ndescription: d\nstpes: []", "field stpes not found"},
		{"unknown action", "name: n\ndescription: d\nsteps: [{action: fly}]", `unknown action "fly"`},
		{"missing action", "name: n\ndescription: d\nsteps: [{code: x}]", "action is required"},
		{"code on next", "name: n\ndescription: d\nsteps: [{action: next, code: x}]", "code is only valid for run"},
		{"locale without tag", "name: n\ndescription: d\nsteps: [{action: locale}]", "locale is required"},
		{"outcome on hint", "name: n\ndescription: d\nsteps: [{action: hint, expect: {outcome: success}}]", "outcome is only valid"},
		{"bad outcome", "name: n\ndescription: d\nsteps: [{action: run, expect: {outcome: great}}]", `unknown outcome "great"`},
		{"unknown assertion", "name: n\ndescription: d\nsteps: [{action: run}]\nassertions: [{type: vibes}]", `unknown assertion type "vibes"`},
		{"assertion without type", "name: n\ndescription: d\nsteps: [{action: run}]\nassertions: [{count: 1}]", "type is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"first_steps", "book_transition", "learner_error"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), load(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(load(t, name).Steps))
		})
	}
}

func TestRun_Golden(t *testing.T) {
	for _, name := range []string{"first_steps", "book_transition"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, load(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := load(t, "book_transition")
	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	a, err := MarshalTranscript(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTranscript(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_LearnerErrorEndsWithErrorLine(t *testing.T) {
	result, err := Run(context.Background(), load(t, "learner_error"))
	require.NoError(t, err)

	first := result.Trace[0]
	require.NotEmpty(t, first.Output)
	last := first.Output[len(first.Output)-1]
	assert.True(t, strings.HasPrefix(last, sandbox.ErrorPrefix), last)
	for _, line := range first.Output {
		assert.NotContains(t, line, "SYSTEM", "validator must not run")
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: "every expectation is wrong"
curriculum: testdata/curricula/tiny.yaml
steps:
  - action: run
    code: "x = 0"
    expect:
      outcome: success
      message: "nope"
      last_line: "nope"
  - action: prev
  - action: hint
    expect:
      error: "no more hints"
assertions:
  - type: index
    index: 1
  - type: stage
    count: 1
  - type: completed
    ids: [uno]
  - type: journey_complete
  - type: attempts
    count: 5
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 10)
	assert.Contains(t, result.Errors[0], "expected outcome success")
	assert.Contains(t, result.Errors[3], "steps[1] prev: unexpected error")
	assert.Contains(t, result.Errors[4], "steps[2] hint: expected error")
}

func TestRun_BadCurriculum(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{Name: "x", Curriculum: "testdata/none.yaml", Steps: []Step{{Action: ActionRun}}})
	assert.Error(t, err)
}

func TestCheck_Builtin(t *testing.T) {
	report, err := Check(context.Background(), content.MustBuiltin())
	require.NoError(t, err)
	assert.True(t, report.OK(), "failed: %v", report.Failed())

	// Every builtin chapter ships es and en: two locales, two subjects.
	assert.Len(t, report.Results, content.MustBuiltin().Len()*4)
}

func TestCheck_FlagsBrokenChapters(t *testing.T) {
	cur, err := content.Load("testdata/curricula/broken.yaml")
	require.NoError(t, err)

	report, err := Check(context.Background(), cur)
	require.NoError(t, err)
	require.False(t, report.OK())

	failed := report.Failed()
	require.Len(t, failed, 3)
	assert.Equal(t, "roto", failed[0].ChapterID)
	assert.Equal(t, SubjectSolution, failed[0].Subject)
	assert.Equal(t, "error", failed[0].Outcome)
	assert.Equal(t, "roto", failed[1].ChapterID)
	assert.Equal(t, SubjectStarter, failed[1].Subject)
	assert.Equal(t, "regalado", failed[2].ChapterID)
	assert.Equal(t, SubjectStarter, failed[2].Subject)
	assert.Equal(t, "success", failed[2].Outcome)
	assert.Contains(t, failed[2].String(), "want failure, got success")
}

func TestCheck_LocalesAreIsolated(t *testing.T) {
	cur, err := content.Load("testdata/curricula/tiny.yaml")
	require.NoError(t, err)

	report, err := Check(context.Background(), cur)
	require.NoError(t, err)
	assert.True(t, report.OK(), "failed: %v", report.Failed())

	var locales []string
	for _, r := range report.Results {
		locales = append(locales, r.ChapterID+"/"+r.Locale+"/"+r.Subject)
	}
	assert.Equal(t, []string{
		"uno/es/solution", "uno/es/starter",
		"dos/es/solution", "dos/es/starter",
		"dos/en/solution", "dos/en/starter",
	}, locales)
}
