package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleTree() *Result {
	root := NewResult("root", "root", KindSuite)

	pass := NewResult("pass", "root.pass", KindLeaf)
	fail := NewResult("fail", "root.fail", KindLeaf)
	fail.Finish(Fail, &Failure{Message: "want 1"})

	inner := NewResult("inner", "root.inner", KindSuite)
	boom := NewResult("boom", "root.inner.boom", KindLeaf)
	boom.Finish(Error, &Failure{Message: "panic: boom", Stack: "goroutine 1"})
	teardown := NewResult("teardown", "root.inner.teardown", KindLeaf)
	teardown.AddExtra(Failure{Message: "after hook: leaked"})
	skipped := NewResult("skipped", "root.inner.skipped", KindLeaf)
	skipped.Skip("later")

	inner.AddChild(boom)
	inner.AddChild(teardown)
	inner.AddChild(skipped)
	inner.Finish(Fail, nil)

	root.AddChild(pass)
	root.AddChild(fail)
	root.AddChild(inner)
	root.Finish(Fail, nil)

	return root
}

func TestResult_Tally(t *testing.T) {
	assert.Equal(t, Counts{Pass: 1, Fail: 1, Error: 2, Skipped: 1}, Tally(sampleTree()))

	broken := NewResult("broken", "broken", KindSuite)
	broken.Finish(Error, &Failure{Message: "structural error in broken: duplicate test name"})
	assert.Equal(t, Counts{Error: 1}, Tally(broken))
}

func TestResult_SealFreezesTree(t *testing.T) {
	root := sampleTree()
	root.Seal()

	assert.True(t, root.Sealed())

	leaf := root.Find("root.inner.boom")
	require.NotNil(t, leaf)
	assert.True(t, leaf.Sealed())

	assert.PanicsWithValue(t, "result root.inner.boom is sealed", func() { leaf.Skip("late") })
	assert.Panics(t, func() { root.AddChild(NewResult("x", "root.x", KindLeaf)) })
	assert.Panics(t, func() { leaf.AppendOutput("late") })
	assert.Panics(t, func() { leaf.SetDuration(time.Second) })
}

func TestResult_FailedAndFind(t *testing.T) {
	root := sampleTree()

	assert.True(t, root.Find("root.fail").Failed())
	assert.True(t, root.Find("root.inner.teardown").Failed())
	assert.False(t, root.Find("root.pass").Failed())
	assert.False(t, root.Find("root.inner.skipped").Failed())
	assert.True(t, root.AnyFailed())
	assert.Nil(t, root.Find("root.missing"))

	var visited []string
	root.Walk(func(r *Result) { visited = append(visited, r.FullName) })
	assert.Equal(t, []string{
		"root", "root.pass", "root.fail", "root.inner",
		"root.inner.boom", "root.inner.teardown", "root.inner.skipped",
	}, visited)
}

func TestRun_FailedNames(t *testing.T) {
	run := Run{Root: sampleTree()}

	assert.Equal(t, []string{"root.fail", "root.inner.boom", "root.inner.teardown"}, run.FailedNames())
	assert.Nil(t, Run{}.FailedNames())
}

func TestCounts(t *testing.T) {
	c := Counts{Pass: 2, Skipped: 1}
	assert.False(t, c.Failed())
	assert.Equal(t, 3, c.Total())

	c = c.Add(Counts{Error: 1})
	assert.True(t, c.Failed())
	assert.Equal(t, Counts{Pass: 2, Error: 1, Skipped: 1}, c)
}

func TestStatus_Text(t *testing.T) {
	for _, status := range []Status{Pass, Fail, Error, Skipped} {
		text, err := status.MarshalText()
		require.NoError(t, err)

		var got Status
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, status, got)
	}

	var s Status
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
	assert.Equal(t, "unknown", Status(42).String())

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("leaf")))
	assert.Equal(t, KindLeaf, k)
	assert.Error(t, k.UnmarshalText([]byte("tree")))
}

func TestResult_YAMLUsesNames(t *testing.T) {
	out, err := yaml.Marshal(sampleTree().Find("root.inner.skipped"))
	require.NoError(t, err)

	assert.Contains(t, string(out), "status: skipped")
	assert.Contains(t, string(out), "kind: leaf")
	assert.Contains(t, string(out), "skip_reason: later")
}
