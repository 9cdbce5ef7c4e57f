package engine

import (
	"fmt"
	"time"
)

// Outcome tags an attempt result.
type Outcome int

const (
	// OutcomeSuccess: the validator passed. The chapter is complete.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure: the learner's code raised or the validator said no.
	OutcomeFailure
	// OutcomeEngineError: the attempt could not be graded.
	OutcomeEngineError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeEngineError:
		return "error"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalText renders the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "success":
		return OutcomeSuccess, nil
	case "failure":
		return OutcomeFailure, nil
	case "error":
		return OutcomeEngineError, nil
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// Result is the outcome of exactly one attempt.
type Result struct {
	ID        string        `json:"id"`
	ChapterID string        `json:"chapter_id"`
	Seq       int64         `json:"seq"`
	Outcome   Outcome       `json:"outcome"`
	Message   string        `json:"message"`
	Cause     error         `json:"-"`
	Duration  time.Duration `json:"duration_ns"`
}

// Passed reports whether the attempt succeeded.
func (r Result) Passed() bool {
	return r.Outcome == OutcomeSuccess
}
