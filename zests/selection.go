package zests

import (
	"context"

	"github.com/stretchr/testify/require"

	"zest.dev/pkg/zest/pkg/zest"
)

func init() {
	zest.Register("a_named_group", func(s *zest.S) {
		s.It("is tagged", func(t *zest.T) {})
	}, zest.Group("a_named_group"))

	zest.Register("keyword_skips", func(s *zest.S) {
		s.It("never runs", func(t *zest.T) { t.Fatalf("skipped suite ran") })
	}, zest.Skip("it can handle keyword skips"))

	zest.Register("bad_zest_1", func(s *zest.S) {
		s.It("foobars", func(t *zest.T) {})
		s.It("foobars", func(t *zest.T) {})
	}, zest.Skip("bad_zest_1"))

	zest.Register("bad_zest_2", func(s *zest.S) {
		s.It("registers late", func(t *zest.T) {
			s.It("too late", func(t *zest.T) {})
		})
	}, zest.Skip("bad_zest_2"))

	zest.Register("selection", selection)
}

func selection(s *zest.S) {
	tree := func(s *zest.S) {
		s.It("top", func(*zest.T) {})
		s.Describe("inner", func(s *zest.S) {
			s.It("fast", func(*zest.T) {}, zest.Group("fast"))
			s.It("slow", func(*zest.T) {}, zest.Group("slow"))
		})
	}

	statusOf := func(res *zest.Result, name string) zest.Status {
		node := res.Find(name)
		if node == nil {
			return -1
		}

		return node.Status
	}

	s.It("runs parent suites of a match", func(t *zest.T) {
		res := zest.RunSuite(context.Background(), "root", tree,
			zest.WithSelection(zest.Selection{Match: "fast"}))

		require.Equal(t, zest.Pass, statusOf(res, "root.inner.fast"))
		require.Equal(t, zest.Pass, statusOf(res, "root.inner"))
		require.Equal(t, zest.Skipped, statusOf(res, "root.inner.slow"))
		require.Equal(t, zest.Skipped, statusOf(res, "root.top"))
	})

	s.It("selects groups", func(t *zest.T) {
		res := zest.RunSuite(context.Background(), "root", tree,
			zest.WithSelection(zest.Selection{ExcludeGroups: []string{"slow"}}))

		require.Equal(t, zest.Pass, statusOf(res, "root.top"))
		require.Equal(t, zest.Skipped, statusOf(res, "root.inner.slow"))
	})

	s.It("allows dotted prefixes", func(t *zest.T) {
		res := zest.RunSuite(context.Background(), "root", tree,
			zest.WithSelection(zest.Selection{Allow: []string{"root.inner."}}))

		require.Equal(t, zest.Pass, statusOf(res, "root.inner.fast"))
		require.Equal(t, zest.Pass, statusOf(res, "root.inner.slow"))
		require.Equal(t, zest.Skipped, statusOf(res, "root.top"))
	})

	s.It("omits roots with nothing selected", func(t *zest.T) {
		res := zest.RunSuite(context.Background(), "root", tree,
			zest.WithSelection(zest.Selection{Match: "nothing matches this"}))

		require.Nil(t, res)
	})

	s.It("skips", func(t *zest.T) {
		res := zest.RunSuite(context.Background(), "root", func(s *zest.S) {
			s.It("later", func(*zest.T) {}, zest.Skip("not today"))
			s.It("now", func(t *zest.T) { t.Skip("at runtime") })
		})

		require.Equal(t, zest.Skipped, res.Status)
		require.Equal(t, "not today", res.Find("root.later").SkipReason)
		require.Equal(t, "at runtime", res.Find("root.now").SkipReason)
	})

	s.It("bypasses skips", func(t *zest.T) {
		ran := false

		res := zest.RunSuite(context.Background(), "root", func(s *zest.S) {
			s.It("later", func(*zest.T) { ran = true }, zest.Skip("not today"))
		}, zest.WithSelection(zest.Selection{BypassSkip: []string{"root.later"}}))

		require.True(t, ran)
		require.Equal(t, zest.Pass, res.Status)
	})
}
