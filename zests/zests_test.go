package zests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zest.dev/pkg/zest/pkg/zest"
)

func byName(results []*zest.Result) map[string]*zest.Result {
	out := map[string]*zest.Result{}
	for _, res := range results {
		out[res.Name] = res
	}

	return out
}

func TestBundledSuitesPass(t *testing.T) {
	results := byName(zest.Run(context.Background(), zest.WithTmpRoot(t.TempDir())))

	for _, name := range []string{"basics", "mocks", "raises", "selection", "a_named_group"} {
		res, ok := results[name]
		require.True(t, ok, "root %s did not run", name)

		res.Walk(func(node *zest.Result) {
			if node.Failed() {
				msg := ""
				if node.Failure != nil {
					msg = node.Failure.Message
				}

				t.Errorf("%s %s: %s", node.Status, node.FullName, msg)
			}
		})
	}

	assert.Equal(t, zest.Skipped, results["keyword_skips"].Status)
	assert.Equal(t, zest.Skipped, results["bad_zest_1"].Status)
	assert.Equal(t, "bad_zest_1", results["bad_zest_1"].SkipReason)
}

func TestBadSuitesReportStructuralErrors(t *testing.T) {
	bad := []string{"bad_zest_1", "bad_zest_2"}

	results := byName(zest.Run(context.Background(),
		zest.WithSelection(zest.Selection{Allow: bad, BypassSkip: bad})))
	require.Len(t, results, 2)

	first := results["bad_zest_1"]
	require.NotNil(t, first)
	assert.Equal(t, zest.Error, first.Status)
	assert.Contains(t, first.Failure.Message, `duplicate test name "foobars"`)

	second := results["bad_zest_2"]
	require.NotNil(t, second)
	assert.Equal(t, zest.Error, second.Status)

	late := second.Find("bad_zest_2.registers late")
	require.NotNil(t, late)
	assert.Equal(t, zest.Error, late.Status)
	assert.Contains(t, late.Failure.Message, "It called after discovery finished")
}

func TestGroupSelection(t *testing.T) {
	results := zest.Run(context.Background(),
		zest.WithSelection(zest.Selection{Groups: []string{"a_named_group"}}))

	require.Len(t, results, 1)
	assert.Equal(t, "a_named_group", results[0].Name)
	assert.Equal(t, zest.Pass, results[0].Status)
}

func TestSuitesAsGoTests(t *testing.T) {
	res := zest.Test(t, "as go test", func(s *zest.S) {
		s.It("adds", func(t *zest.T) {
			t.Assert(1+1 == 2, "math")
		})
	}, zest.WithSeed(1))

	require.NotNil(t, res)
	assert.Equal(t, zest.Pass, res.Status)
}
