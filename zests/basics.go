package zests

import (
	"context"

	"github.com/stretchr/testify/require"

	"zest.dev/pkg/zest/pkg/zest"
)

func init() {
	zest.Register("basics", basics)
}

type countingListener struct {
	starts, stops int
}

func (l *countingListener) OnStart(context.Context, string) { l.starts++ }

func (l *countingListener) OnStop(_ context.Context, res *zest.Result) {
	if res.Kind == zest.KindLeaf {
		l.stops++
	}
}

func basics(s *zest.S) {
	s.It("calls before and after", func(t *zest.T) {
		tests, befores, afters := 0, 0, 0

		res := zest.RunSuite(context.Background(), "inner", func(s *zest.S) {
			s.Before(func(*zest.T) { befores++ })
			s.After(func(*zest.T) { afters++ })
			s.It("test1", func(*zest.T) { tests++ })
			s.It("test2", func(*zest.T) { tests++ })
		})

		require.Equal(t, zest.Pass, res.Status)
		t.Assert(tests == 2 && befores == 2 && afters == 2,
			"tests=%d befores=%d afters=%d", tests, befores, afters)
	})

	s.It("rejects a second before hook", func(t *zest.T) {
		res := zest.RunSuite(context.Background(), "inner", func(s *zest.S) {
			s.Before(func(*zest.T) {})
			s.Before(func(*zest.T) {})
			s.It("test1", func(*zest.T) {})
		})

		require.Equal(t, zest.Error, res.Status)
		require.Contains(t, res.Failure.Message, "before hook registered more than once")
		require.Empty(t, res.Children)
	})

	s.It("runs after even when the leaf panics", func(t *zest.T) {
		afters := 0

		res := zest.RunSuite(context.Background(), "inner", func(s *zest.S) {
			s.After(func(*zest.T) { afters++ })
			s.It("explodes", func(*zest.T) { panic("boom") })
		})

		require.Equal(t, 1, afters)
		require.Equal(t, zest.Error, res.Find("inner.explodes").Status)
	})

	s.It("calls start and stop callbacks", func(t *zest.T) {
		listener := &countingListener{}

		zest.RunSuite(context.Background(), "inner", func(s *zest.S) {
			s.It("test1", func(*zest.T) {})
			s.It("test2", func(*zest.T) {})
		}, zest.WithListener(listener))

		require.Equal(t, 3, listener.starts)
		require.Equal(t, 2, listener.stops)
	})

	s.It("knows its own name", func(t *zest.T) {
		require.Equal(t, "knows its own name", t.Name())
		require.Equal(t, "basics.knows its own name", t.FullName())
	})

	s.It("gives each leaf a scratch dir", func(t *zest.T) {
		first, second := t.TempDir(), t.TempDir()
		require.DirExists(t, first)
		require.NotEqual(t, first, second)
	})

	s.Describe("recurses", func(s *zest.S) {
		s.Describe("level one", func(s *zest.S) {
			s.It("level two", func(t *zest.T) {
				require.Equal(t, "basics.recurses.level one.level two", t.FullName())
			})
		})
	})

	s.It("retries flaky leaves", func(t *zest.T) {
		calls := 0

		res := zest.RunSuite(context.Background(), "inner", func(s *zest.S) {
			s.It("flaky", func(t *zest.T) {
				calls++
				t.Assert(calls == 3, "attempt %d", calls)
			}, zest.Retry(3))
		})

		flaky := res.Find("inner.flaky")
		require.Equal(t, zest.Pass, flaky.Status)
		require.Equal(t, 3, flaky.Attempts)
	})

	s.It("shuffles reproducibly", func(t *zest.T) {
		order := func(seed uint64) []string {
			var names []string

			zest.RunSuite(context.Background(), "inner", func(s *zest.S) {
				for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
					s.It(name, func(*zest.T) { names = append(names, name) })
				}
			}, zest.WithSeed(seed))

			return names
		}

		require.Equal(t, order(7), order(7))
	})
}
