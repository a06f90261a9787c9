package main

import "fmt"

// newUserErrorf is a user-facing error.
// this function is mostly to avoid linters complain about errors starting with a capitalized letter.
func newUserErrorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// hordeError is a wrapper around an error that adds additional context,
// and optionally a URL where the user can fix the underlying problem.
type hordeError struct {
	err    error
	reason string
	link   string
}

func (m hordeError) Error() string {
	return m.err.Error()
}

func (m hordeError) Reason() string {
	return m.reason
}
