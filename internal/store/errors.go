package store

import (
	"errors"
	"fmt"
)

// ReadError reports a stored value that could not be read or decoded.
// Preferences absorbs it and substitutes the key's default.
type ReadError struct {
	Key   string
	Value string
	Err   error
}

func (e *ReadError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("read %s: bad value %q: %v", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Key, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReadError returns true if err is or wraps a ReadError.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}
