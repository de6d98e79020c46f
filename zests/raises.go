package zests

import (
	"errors"
	"fmt"

	"github.com/stretchr/testify/require"

	"zest.dev/pkg/zest/pkg/zest"
)

func init() {
	zest.Register("raises", raises)
}

// ValueError is a plain error kind used by the trap suites.
type ValueError struct {
	Msg string
}

func (e *ValueError) Error() string { return e.Msg }

// FooError carries an attribute for matcher tests.
type FooError struct {
	Foo string
}

func (e *FooError) Error() string { return "foo error: " + e.Foo }

func foo(e *FooError) string { return e.Foo }

func raises(s *zest.S) {
	s.It("catches returned errors", func(t *zest.T) {
		trapped := zest.Raises[*ValueError](func() error {
			return &ValueError{Msg: "test"}
		})

		require.Equal(t, "test", trapped.Err.Msg)
	})

	s.It("catches panics", func(t *zest.T) {
		trapped := zest.Raises[*ValueError](func() error {
			panic(&ValueError{Msg: "test"})
		})

		require.Equal(t, "test", trapped.Err.Msg)
	})

	s.It("catches wrapped errors", func(t *zest.T) {
		trapped := zest.Raises[*ValueError](func() error {
			return fmt.Errorf("loading: %w", &ValueError{Msg: "inner"})
		})

		require.Equal(t, "inner", trapped.Err.Msg)
	})

	s.Describe("checks properties of the error", func(s *zest.S) {
		s.It("passes if the property matches", func(t *zest.T) {
			zest.Raises(func() error {
				return &FooError{Foo: "bar"}
			}, zest.Equals("foo", foo, "bar"), zest.Contains("foo", foo, "ba"))
		})

		s.It("fails if the property does not match", func(t *zest.T) {
			outer := zest.Raises[*zest.AssertionFailure](func() error {
				zest.Raises(func() error {
					return &FooError{Foo: "bar"}
				}, zest.Equals("foo", foo, "blah"))

				return nil
			})

			require.Contains(t, outer.Err.Message, "foo: got bar, want blah")
		})

		s.It("reports mismatches without failing when caught", func(t *zest.T) {
			trapped := zest.Catch(func() error {
				return &FooError{Foo: "bar"}
			}, zest.Contains("foo", foo, "zzz"))

			require.False(t, trapped.Matched)
			require.Error(t, trapped.Mismatch)
		})
	})

	s.It("checks the message", func(t *zest.T) {
		zest.Raises(func() error {
			return &ValueError{Msg: "not bar"}
		}, zest.MessageContains[*ValueError]("bar"))
	})

	s.It("fails when nothing is raised", func(t *zest.T) {
		outer := zest.Raises[*zest.ExpectationError](func() error {
			zest.Raises[*ValueError](func() error { return nil })
			return nil
		})

		require.Contains(t, outer.Err.Error(), "none was raised")
	})

	s.It("lets other kinds through", func(t *zest.T) {
		other := errors.New("other")

		trapped := zest.Raises[error](func() error {
			zest.Raises[*ValueError](func() error { return other })
			return nil
		})

		require.ErrorIs(t, trapped.Err, other)
	})
}
