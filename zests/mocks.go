package zests

import (
	"context"
	"errors"

	"github.com/stretchr/testify/require"

	"zest.dev/pkg/zest/pkg/zest"
)

func init() {
	zest.Register("mocks", mocks)
}

var errTest = errors.New("test error")

func mocks(s *zest.S) {
	s.It("scopes mocks", func(t *zest.T) {
		mFoo := zest.WithMock(t, &Foo, func(*zest.Recorder) {
			require.NoError(t, Foobar())
		})

		require.True(t, mFoo.CalledOnce())
		require.ErrorIs(t, Foobar(), ErrNotImplemented)
	})

	s.Describe("stack mocks", func(s *zest.S) {
		mFoo := zest.StackMock(s, &Foo)

		s.It("test 0", func(t *zest.T) {
			require.NoError(t, Foobar())
			require.True(t, mFoo.CalledOnce())
		})

		s.It("test 1", func(t *zest.T) {
			require.NoError(t, Foobar())
			require.True(t, mFoo.CalledOnce())
		})
	})

	s.It("raises if the binding is not callable", func(t *zest.T) {
		zest.Raises(func() error {
			zest.Mock(t, &NotCallable)
			return nil
		}, zest.MessageContains[*zest.StructuralError]("unmockable"))
	})

	s.It("counts calls", func(t *zest.T) {
		mFoo := zest.Mock(t, &Foo)
		_, _ = Foo("a")
		_, _ = Foo("b")

		require.Equal(t, 2, mFoo.CallCount())
		require.Equal(t, []any{"b"}, mFoo.Calls()[1].Args)
	})

	s.It("resets", func(t *zest.T) {
		mFoo := zest.Mock(t, &Foo)
		_, _ = Foo("a")
		mFoo.Reset()
		_, _ = Foo("a")

		require.Equal(t, 1, mFoo.CallCount())
	})

	s.It("hooks", func(t *zest.T) {
		gotCallback := false

		zest.Mock(t, &Foo).Hook(func(arg1 string, rest ...string) (int, error) {
			gotCallback = true
			return len(rest), nil
		})

		n, err := Foo("a", "b", "c")
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.True(t, gotCallback)
	})

	s.It("returns a value", func(t *zest.T) {
		zest.Mock(t, &Foo).Returns(1)

		n, err := Foo("a")
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	s.It("returns serial values", func(t *zest.T) {
		zest.Mock(t, &Foo).ReturnsSerially([]any{1}, []any{2, errTest})

		n, err := Foo("a")
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = Foo("a")
		require.ErrorIs(t, err, errTest)
		require.Equal(t, 2, n)
	})

	s.It("raises through the error result", func(t *zest.T) {
		zest.Mock(t, &Foo).Raises(errTest)

		_, err := Foo("a")
		require.ErrorIs(t, err, errTest)
	})

	s.It("raises by panicking without an error result", func(t *zest.T) {
		zest.Mock(t, &Bar).Raises(&ValueError{Msg: "bar"})

		zest.Raises[*ValueError](func() error {
			Bar(1)
			return nil
		})
	})

	s.It("raises serially", func(t *zest.T) {
		zest.Mock(t, &Bar).RaisesSerially(&ValueError{Msg: "first"}, &FooError{Foo: "second"})

		zest.Raises[*ValueError](func() error { Bar(1); return nil })
		zest.Raises[*FooError](func() error { Bar(2); return nil })
	})

	s.It("checks the arguments of the only call", func(t *zest.T) {
		mFoo := zest.Mock(t, &Foo)
		_, _ = Foo("arg1", "arg2")

		require.True(t, mFoo.CalledOnceWith("arg1", "arg2"))
		require.False(t, mFoo.CalledOnceWith("arg1"))
	})

	s.It("mocks struct fields", func(t *zest.T) {
		store := &Store{Load: func(string) ([]byte, error) { return nil, ErrNotImplemented }}
		zest.Mock(t, &store.Load).Returns([]byte("value"))

		got, err := store.Lookup("key")
		require.NoError(t, err)
		require.Equal(t, "value", got)
	})

	s.It("rejects return and raise together", func(t *zest.T) {
		zest.Raises(func() error {
			zest.Mock(t, &Foo).Returns(1).Raises(errTest)
			return nil
		}, zest.MessageContains[*zest.StructuralError]("conflicts"))
	})

	s.It("restores the binding after the scope", func(t *zest.T) {
		res := zest.RunSuite(context.Background(), "inner", func(s *zest.S) {
			s.It("mocks", func(t *zest.T) {
				zest.Mock(t, &Foo).Returns(5)
			})
		})

		require.Equal(t, zest.Pass, res.Status)
		require.ErrorIs(t, Foobar(), ErrNotImplemented)
	})
}
