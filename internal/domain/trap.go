package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	m "zest.dev/pkg/zest/internal/model"
)

// Matcher checks one attribute of a trapped error. It returns nil when the
// attribute matches and a description of the mismatch otherwise.
type Matcher[E error] func(E) error

// Trapped holds the error caught by Catch or Raises.
type Trapped[E error] struct {
	// Err is the caught error of kind E.
	Err E
	// Cause is the raw value that was raised, returned or panicked.
	Cause any
	// Matched is false when the kind matched but an attribute did not.
	Matched bool
	// Mismatch describes the attributes that did not match.
	Mismatch error
}

// Error returns the message of the trapped error.
func (tr *Trapped[E]) Error() string {
	return tr.Err.Error()
}

func kindName[E error]() string {
	return reflect.TypeOf((*E)(nil)).Elem().String()
}

// Catch runs block and traps an error of kind E, either returned by block or
// raised by a panic. Errors of any other kind and non-error panics propagate
// unchanged. When nothing is raised Catch panics with an ExpectationError.
func Catch[E error](block func() error, matchers ...Matcher[E]) *Trapped[E] {
	raised, cause := guard(block)
	if cause == nil && isNilError(raised) {
		raised = nil
	}

	if raised == nil {
		if cause != nil {
			panic(cause)
		}

		panic(&m.ExpectationError{Kind: kindName[E]()})
	}

	var target E
	if !errors.As(raised, &target) {
		if cause != nil {
			panic(cause)
		}

		panic(raised)
	}

	if isNilError(target) {
		panic(&m.ExpectationError{Kind: kindName[E]()})
	}

	trapped := &Trapped[E]{Err: target, Cause: raised, Matched: true}
	if cause != nil {
		trapped.Cause = cause
	}

	var mismatches []error

	for _, match := range matchers {
		if err := match(target); err != nil {
			mismatches = append(mismatches, err)
		}
	}

	if len(mismatches) > 0 {
		trapped.Matched = false
		trapped.Mismatch = errors.Join(mismatches...)
	}

	return trapped
}

// Raises is Catch for use inside a leaf: an attribute mismatch fails the
// leaf instead of being reported on the result.
func Raises[E error](block func() error, matchers ...Matcher[E]) *Trapped[E] {
	trapped := Catch(block, matchers...)
	if !trapped.Matched {
		panic(&m.AssertionFailure{
			Message: fmt.Sprintf("%s raised but did not match: %v", kindName[E](), trapped.Mismatch),
		})
	}

	return trapped
}

// isNilError reports whether err is nil or an interface holding a nil value,
// such as a typed nil pointer.
func isNilError(err error) bool {
	if err == nil {
		return true
	}

	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// guard runs block and returns the error it produced. cause is the raw panic
// value when block panicked; a panic with a non-error value is returned as
// cause with a nil error.
func guard(block func() error) (raised error, cause any) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		cause = r
		if err, ok := r.(error); ok {
			raised = err
		}
	}()

	return block(), nil
}

// Equals matches when the attribute read by get equals want.
func Equals[E error, V comparable](name string, get func(E) V, want V) Matcher[E] {
	return func(err E) error {
		if got := get(err); got != want {
			return fmt.Errorf("%s: got %v, want %v", name, got, want)
		}

		return nil
	}
}

// Contains matches when the string form of the attribute read by get contains
// substr.
func Contains[E error, V any](name string, get func(E) V, substr string) Matcher[E] {
	return func(err E) error {
		got := fmt.Sprint(get(err))
		if !strings.Contains(got, substr) {
			return fmt.Errorf("%s: %q does not contain %q", name, got, substr)
		}

		return nil
	}
}

// MessageContains matches when the error message contains substr.
func MessageContains[E error](substr string) Matcher[E] {
	return Contains("message", func(err E) string { return err.Error() }, substr)
}

// MessageEquals matches when the error message equals want.
func MessageEquals[E error](want string) Matcher[E] {
	return Equals("message", func(err E) string { return err.Error() }, want)
}
