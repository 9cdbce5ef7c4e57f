package engine

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when an attempt is requested while another is in
// flight.
var ErrBusy = errors.New("engine: attempt already in flight")

// FaultStage tells which validator step failed.
type FaultStage string

const (
	// StageDefine means executing the validator source raised.
	StageDefine FaultStage = "define"
	// StageEvaluate means calling the entry point raised.
	StageEvaluate FaultStage = "evaluate"
	// StageDecode means the entry point returned something other than
	// a (bool, str) pair.
	StageDecode FaultStage = "decode"
)

// ValidationFault is the cause of an EngineError result: the validator
// itself is broken, not the learner's code.
type ValidationFault struct {
	ChapterID string
	Stage     FaultStage
	Err       error
}

func (e *ValidationFault) Error() string {
	return fmt.Sprintf("validation fault in chapter %s (%s): %v", e.ChapterID, e.Stage, e.Err)
}

func (e *ValidationFault) Unwrap() error { return e.Err }

// IsValidationFault reports whether err is or wraps a ValidationFault.
// Uses errors.As to handle wrapped errors.
func IsValidationFault(err error) bool {
	var vf *ValidationFault
	return errors.As(err, &vf)
}

// VerdictError describes a verdict value that could not be decoded.
type VerdictError struct {
	Got string
}

func (e *VerdictError) Error() string {
	return fmt.Sprintf("verdict must be a (bool, str) pair, got %s", e.Got)
}
