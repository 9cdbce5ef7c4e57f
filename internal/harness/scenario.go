package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/golem/internal/engine"
)

// Scenario is a scripted learner session with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Curriculum is a path to a curriculum file or directory, relative to
	// the scenario file. Empty means the builtin curriculum.
	Curriculum string `yaml:"curriculum,omitempty"`

	// Locale is stored before the session opens.
	Locale string `yaml:"locale,omitempty"`

	// Steps run in order against one session.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one learner action.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Code is submitted by run. Empty runs the current buffer.
	Code string `yaml:"code,omitempty"`

	// Index is the target of goto.
	Index int `yaml:"index,omitempty"`

	// Locale is the target of locale.
	Locale string `yaml:"locale,omitempty"`

	// Expect is checked after the step. Nil checks nothing except that the
	// step did not error.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes what a step should produce. Empty fields are not
// checked.
type Expect struct {
	// Outcome is "success", "failure" or "error" (run and solve only).
	Outcome string `yaml:"outcome,omitempty"`

	// Message must be contained in the attempt message.
	Message string `yaml:"message,omitempty"`

	// LastLine must equal the last output line as displayed.
	LastLine string `yaml:"last_line,omitempty"`

	// Error must be contained in the step's error. A step that errors
	// without an Error expectation fails the scenario.
	Error string `yaml:"error,omitempty"`

	// Chapter is the current chapter id after the step.
	Chapter string `yaml:"chapter,omitempty"`

	// Pending reports whether a book transition awaits confirmation.
	Pending *bool `yaml:"pending,omitempty"`

	// Hint is the hint revealed by a hint step.
	Hint string `yaml:"hint,omitempty"`
}

// Assertion validates the state after all steps.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// IDs are the expected completed chapters (completed).
	IDs []string `yaml:"ids,omitempty"`

	// Index is the expected chapter index (index).
	Index int `yaml:"index,omitempty"`

	// Count is the expected stage or journal size (stage, attempts).
	Count int `yaml:"count,omitempty"`

	// Chapter filters the journal (attempts).
	Chapter string `yaml:"chapter,omitempty"`

	// Want is the expected value of journey_complete. Defaults to true.
	Want *bool `yaml:"want,omitempty"`
}

// Step actions.
const (
	ActionRun     = "run"
	ActionSolve   = "solve"
	ActionNext    = "next"
	ActionConfirm = "confirm"
	ActionPrev    = "prev"
	ActionGoto    = "goto"
	ActionHint    = "hint"
	ActionLocale  = "locale"
	ActionReset   = "reset"
)

// Assertion types.
const (
	AssertCompleted       = "completed"
	AssertIndex           = "index"
	AssertStage           = "stage"
	AssertJourneyComplete = "journey_complete"
	AssertAttempts        = "attempts"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields. A relative
// curriculum path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Curriculum != "" && !filepath.IsAbs(scenario.Curriculum) {
		scenario.Curriculum = filepath.Join(filepath.Dir(path), scenario.Curriculum)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Action {
	case ActionRun, ActionSolve, ActionNext, ActionConfirm, ActionPrev, ActionHint, ActionReset:
	case ActionGoto:
		if s.Index < 0 {
			return fmt.Errorf("steps[%d]: index must be non-negative for goto", index)
		}
	case ActionLocale:
		if s.Locale == "" {
			return fmt.Errorf("steps[%d]: locale is required for locale", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, s.Action)
	}

	if s.Code != "" && s.Action != ActionRun {
		return fmt.Errorf("steps[%d]: code is only valid for run", index)
	}
	if s.Expect != nil && s.Expect.Outcome != "" {
		if s.Action != ActionRun && s.Action != ActionSolve {
			return fmt.Errorf("steps[%d].expect: outcome is only valid for run and solve", index)
		}
		if _, err := engine.ParseOutcome(s.Expect.Outcome); err != nil {
			return fmt.Errorf("steps[%d].expect: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertCompleted, AssertJourneyComplete:
	case AssertIndex:
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative", index)
		}
	case AssertStage, AssertAttempts:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
