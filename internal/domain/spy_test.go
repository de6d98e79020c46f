package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "zest.dev/pkg/zest/internal/model"
)

var greet = func(name string) string {
	return "hello " + name
}

var fetch = func(key string, opts ...int) (int, error) {
	return len(key) + len(opts), nil
}

var explode = func(n int) int {
	panic("explode called for real")
}

var notAFunc = 3

var errFetch = errors.New("fetch failed")

func TestMockLeaf_RestoresAfterLeaf(t *testing.T) {
	var inside string

	_, res := runTree(t, func(s *S) {
		s.After(func(*T) { inside += "|" + greet("after") })
		s.It("mocked", func(t *T) {
			mk := MockLeaf(t, &greet).Returns("mocked")
			inside = greet("x")
			t.Assert(mk.CalledOnceWith("x"), "calls: %v", mk.Calls())
		})
	})

	require.NotNil(t, res)
	assert.Equal(t, m.Pass, res.Status)
	assert.Equal(t, "mocked|mocked", inside)
	assert.Equal(t, "hello y", greet("y"))
}

func TestMockLeaf_RestoresAfterPanic(t *testing.T) {
	_, res := runTree(t, func(s *S) {
		s.It("panics", func(t *T) {
			MockLeaf(t, &greet)
			panic("boom")
		})
	})

	require.NotNil(t, res)
	assert.Equal(t, m.Error, res.Find("root.panics").Status)
	assert.Equal(t, "hello z", greet("z"))
}

func TestWithMock_RestoresAtScopeEnd(t *testing.T) {
	_, res := runTree(t, func(s *S) {
		s.It("scoped", func(t *T) {
			mk := WithMock(t, &greet, func(mk *Mock) {
				mk.Returns("inside")
				t.Assert(greet("a") == "inside", "not substituted")
			})

			t.Assert(greet("a") == "hello a", "not restored: %s", greet("a"))
			t.Assert(mk.CalledOnce(), "calls: %d", mk.CallCount())
		})
	})

	require.NotNil(t, res)
	assert.Equal(t, m.Pass, res.Status)
}

func TestMock_Configuration(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mk *Mock)
		check func(t *T)
	}{
		{
			name:  "zero values by default",
			setup: func(*Mock) {},
			check: func(t *T) {
				n, err := fetch("k")
				t.Assert(n == 0 && err == nil, "got %d, %v", n, err)
			},
		},
		{
			name:  "returns without trailing error",
			setup: func(mk *Mock) { mk.Returns(7) },
			check: func(t *T) {
				n, err := fetch("k")
				t.Assert(n == 7 && err == nil, "got %d, %v", n, err)
			},
		},
		{
			name:  "returns with error",
			setup: func(mk *Mock) { mk.Returns(1, errFetch) },
			check: func(t *T) {
				n, err := fetch("k")
				t.Assert(n == 1 && errors.Is(err, errFetch), "got %d, %v", n, err)
			},
		},
		{
			name:  "converts numeric values",
			setup: func(mk *Mock) { mk.Returns(int64(9)) },
			check: func(t *T) {
				n, _ := fetch("k")
				t.Assert(n == 9, "got %d", n)
			},
		},
		{
			name:  "raises through the error result",
			setup: func(mk *Mock) { mk.Raises(errFetch) },
			check: func(t *T) {
				_, err := fetch("k")
				t.Assert(errors.Is(err, errFetch), "got %v", err)
			},
		},
		{
			name:  "serial returns",
			setup: func(mk *Mock) { mk.ReturnsSerially([]any{1}, []any{2, errFetch}) },
			check: func(t *T) {
				first, err1 := fetch("k")
				second, err2 := fetch("k")
				t.Assert(first == 1 && err1 == nil, "first: %d, %v", first, err1)
				t.Assert(second == 2 && errors.Is(err2, errFetch), "second: %d, %v", second, err2)
			},
		},
		{
			name:  "serial raises",
			setup: func(mk *Mock) { mk.RaisesSerially(errFetch, nil) },
			check: func(t *T) {
				_, err1 := fetch("k")
				_, err2 := fetch("k")
				t.Assert(errors.Is(err1, errFetch), "first: %v", err1)
				t.Assert(err2 == nil, "second: %v", err2)
			},
		},
		{
			name: "hook",
			setup: func(mk *Mock) {
				mk.Hook(func(key string, opts ...int) (int, error) { return 100 + len(opts), nil })
			},
			check: func(t *T) {
				n, _ := fetch("k", 1, 2)
				t.Assert(n == 102, "got %d", n)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := runTree(t, func(s *S) {
				s.It("leaf", func(t *T) {
					tt.setup(MockLeaf(t, &fetch))
					tt.check(t)
				})
			})

			require.NotNil(t, res)

			leaf := res.Find("root.leaf")
			assert.Equal(t, m.Pass, leaf.Status, "%+v", leaf.Failure)
		})
	}
}

func TestMock_RecordsExpandedVariadicArgs(t *testing.T) {
	mk, restore := Substitute(&fetch)
	defer restore()

	_, _ = fetch("key", 1, 2)

	assert.True(t, mk.CalledOnceWith("key", 1, 2))
	assert.False(t, mk.CalledOnceWith("key", 1))
	assert.Equal(t, []Call{{Args: []any{"key", 1, 2}}}, mk.Calls())

	_, _ = fetch("again")
	assert.False(t, mk.CalledOnce())
	assert.Equal(t, 2, mk.CallCount())

	mk.Reset()
	assert.True(t, mk.NotCalled())
	assert.False(t, mk.Called())
}

func TestMock_RaisesWithoutErrorResultPanics(t *testing.T) {
	mk, restore := Substitute(&explode)
	defer restore()

	mk.Raises(errFetch)

	r := recovered(func() { explode(1) })
	assert.Equal(t, errFetch, r)
}

func TestMock_SerialExhaustionFailsLeaf(t *testing.T) {
	_, res := runTree(t, func(s *S) {
		s.It("returns", func(t *T) {
			MockLeaf(t, &greet).ReturnsSerially([]any{"once"})
			greet("a")
			greet("b")
		})
	})

	require.NotNil(t, res)

	leaf := res.Find("root.returns")
	assert.Equal(t, m.Fail, leaf.Status)
	assert.Contains(t, leaf.Failure.Message, "more times than ReturnsSerially had values")
}

func TestMock_ConfigurationConflicts(t *testing.T) {
	mk, restore := Substitute(&fetch)
	defer restore()

	mk.Returns(1)

	r := recovered(func() { mk.Raises(errFetch) })
	require.IsType(t, &m.StructuralError{}, r)
	assert.Contains(t, r.(error).Error(), "Raises conflicts with a configured return")

	r = recovered(func() { mk.Returns(1, 2, 3) })
	require.IsType(t, &m.StructuralError{}, r)
	assert.Contains(t, r.(error).Error(), "3 return values configured")

	r = recovered(func() { mk.Hook(func() {}) })
	require.IsType(t, &m.StructuralError{}, r)
}

func TestMock_HookConflicts(t *testing.T) {
	hook := func(key string, opts ...int) (int, error) { return 99, nil }

	tests := []struct {
		name      string
		configure func(mk *Mock)
		want      string
	}{
		{
			name:      "hook after returns",
			configure: func(mk *Mock) { mk.Returns(7).Hook(hook) },
			want:      "Hook conflicts with a configured return",
		},
		{
			name:      "hook after raises",
			configure: func(mk *Mock) { mk.Raises(errFetch).Hook(hook) },
			want:      "Hook conflicts with a configured raise",
		},
		{
			name:      "returns after hook",
			configure: func(mk *Mock) { mk.Hook(hook).Returns(7) },
			want:      "Returns conflicts with a configured hook",
		},
		{
			name:      "serial raises after hook",
			configure: func(mk *Mock) { mk.Hook(hook).RaisesSerially(errFetch) },
			want:      "RaisesSerially conflicts with a configured hook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mk, restore := Substitute(&fetch)
			defer restore()

			r := recovered(func() { tt.configure(mk) })
			require.IsType(t, &m.StructuralError{}, r)
			assert.Contains(t, r.(error).Error(), tt.want)
		})
	}
}

func TestMock_UnmockableBinding(t *testing.T) {
	r := recovered(func() { Substitute(&notAFunc) })

	require.IsType(t, &m.StructuralError{}, r)
	assert.Contains(t, r.(error).Error(), "unmockable binding of type int")
}

func TestMock_ConflictingSpiesAreStructural(t *testing.T) {
	_, res := runTree(t, func(s *S) {
		s.It("twice", func(t *T) {
			MockLeaf(t, &greet)
			MockLeaf(t, &greet)
		})
	})

	require.NotNil(t, res)

	leaf := res.Find("root.twice")
	assert.Equal(t, m.Error, leaf.Status)
	assert.Contains(t, leaf.Failure.Message, "binding is already spied by root.twice")
	assert.Equal(t, m.Error, res.Status)

	// The first substitution was still restored and released.
	assert.Equal(t, "hello w", greet("w"))

	_, restore := Substitute(&greet)
	restore()
}

func TestStackMock_ResetBeforeEachChild(t *testing.T) {
	var mk *Mock

	_, res := runTree(t, func(s *S) {
		mk = StackMock(s, &greet).Returns("stacked")

		for _, name := range []string{"test 0", "test 1", "test 2"} {
			s.It(name, func(t *T) {
				t.Assert(greet(name) == "stacked", "not substituted")
				t.Assert(mk.CalledOnce(), "called %d times", mk.CallCount())
			})
		}

		s.Describe("nested", func(s *S) {
			s.It("sees the parent mock", func(t *T) {
				t.Assert(greet("n") == "stacked", "not substituted")
			})
		})
	})

	require.NotNil(t, res)
	assert.Equal(t, m.Pass, res.Status)
	assert.Equal(t, "hello v", greet("v"))
}

func TestStackMock_ConflictFailsSuite(t *testing.T) {
	mk, restore := Substitute(&greet)
	defer restore()

	mk.Returns("outside")

	_, res := runTree(t, func(s *S) {
		s.Describe("stacked", func(s *S) {
			StackMock(s, &greet)
			s.It("never runs", func(*T) {})
		})
	})

	require.NotNil(t, res)

	stacked := res.Find("root.stacked")
	assert.Equal(t, m.Error, stacked.Status)
	assert.Contains(t, stacked.Failure.Message, "already spied by substitute")
	assert.Equal(t, "outside", greet("q"))
}

func TestSubstitute_Restore(t *testing.T) {
	mk, restore := Substitute(&greet)
	mk.Hook(func(name string) string { return "hooked " + name })

	assert.Equal(t, "hooked a", greet("a"))

	restore()
	restore()

	assert.Equal(t, "hello a", greet("a"))
	assert.True(t, mk.CalledOnce())
}
