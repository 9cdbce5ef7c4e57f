package engine

import (
	"fmt"

	"github.com/roach88/golem/internal/sandbox"
)

// Verdict is what a validator said about an attempt.
type Verdict struct {
	Passed  bool
	Message string
}

// DecodeVerdict turns the value returned by the validator entry point into
// a Verdict. Only a two-element sequence of (bool, str) is accepted; any
// other shape is a *VerdictError.
func DecodeVerdict(v any) (Verdict, error) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return Verdict{}, &VerdictError{Got: describe(v)}
	}
	passed, ok := pair[0].(bool)
	if !ok {
		return Verdict{}, &VerdictError{Got: describe(v)}
	}
	msg, ok := pair[1].(string)
	if !ok {
		return Verdict{}, &VerdictError{Got: describe(v)}
	}
	return Verdict{Passed: passed, Message: msg}, nil
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case sandbox.Opaque:
		return x.Type
	case []any:
		return fmt.Sprintf("a sequence of %d", len(x))
	}
	return fmt.Sprintf("%T", v)
}
