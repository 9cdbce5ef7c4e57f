package sandbox

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by Execute and Evaluate before a successful
// Initialize, after Teardown, or while the host is Failed.
var ErrNotReady = errors.New("sandbox: interpreter not ready")

// InitializationError reports a host that failed to start. It is sticky:
// Initialize keeps returning the same error until Retry.
type InitializationError struct {
	// Prelude names the prelude that failed, if any.
	Prelude string
	Err     error
}

func (e *InitializationError) Error() string {
	if e.Prelude != "" {
		return fmt.Sprintf("sandbox initialization failed in prelude %q: %v", e.Prelude, e.Err)
	}
	return fmt.Sprintf("sandbox initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// ExecutionError reports source that raised, or failed to parse, while
// running in the host.
type ExecutionError struct {
	// Name is the chunk name passed to Execute ("<learner>", "<validator>").
	Name string

	// Message is the interpreter's message without the backtrace.
	Message string

	// Backtrace is the Starlark call stack, empty for syntax errors.
	Backtrace string

	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsInitializationError reports whether err is or wraps an InitializationError.
func IsInitializationError(err error) bool {
	var ie *InitializationError
	return errors.As(err, &ie)
}

// IsExecutionError reports whether err is or wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
