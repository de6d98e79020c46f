package model

import (
	"errors"
	"fmt"
)

// StructuralError reports a malformed test definition: a duplicate hook, a
// duplicate sibling name, a registration outside of discovery, a conflicting
// mock configuration or two spies over one binding. It aborts the branch that
// contains it but never unrelated siblings.
type StructuralError struct {
	Path    string
	Message string
}

func (e *StructuralError) Error() string {
	if e.Path == "" {
		return "structural error: " + e.Message
	}

	return fmt.Sprintf("structural error in %s: %s", e.Path, e.Message)
}

// AssertionFailure is an expectation that did not hold inside a leaf.
type AssertionFailure struct {
	Message string
}

func (e *AssertionFailure) Error() string {
	return e.Message
}

// ExpectationError is raised by the error trap when the guarded block
// completed without raising anything. It is reported like an AssertionFailure.
type ExpectationError struct {
	Kind string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expected an error of kind %s, none was raised", e.Kind)
}

// UnexpectedError wraps any other value that escaped a leaf body.
type UnexpectedError struct {
	Value any
	Stack string
}

func (e *UnexpectedError) Error() string {
	if err, ok := e.Value.(error); ok {
		return fmt.Sprintf("%T: %s", err, err.Error())
	}

	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *UnexpectedError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// IsStructural reports whether err is, or wraps, a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsAssertion reports whether err is a failed expectation, either an
// AssertionFailure or an ExpectationError.
func IsAssertion(err error) bool {
	var af *AssertionFailure
	if errors.As(err, &af) {
		return true
	}

	var ee *ExpectationError

	return errors.As(err, &ee)
}
