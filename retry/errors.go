package retry

import (
	"fmt"
	"strings"
)

// MultiError holds the error of every failed attempt
type MultiError struct {
	Errors   []error
	Attempts int
}

// Error reports the last failure
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "retry failed"
	}
	return e.Errors[len(e.Errors)-1].Error()
}

// Unwrap exposes every attempt's error to errors.Is and errors.As
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// Summary lists all attempts
func (e *MultiError) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed after %d attempts", e.Attempts)
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  attempt %d: %v", i+1, err)
	}
	return b.String()
}
