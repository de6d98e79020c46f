package adapter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "zest.dev/pkg/zest/internal/model"
)

func sampleRun(root string) m.Run {
	res := m.NewResult(root, root, m.KindSuite)

	pass := m.NewResult("ok", root+".ok", m.KindLeaf)
	pass.SetDuration(15 * time.Millisecond)
	pass.SetAttempts(1)
	pass.AppendOutput("hello")

	fail := m.NewResult("bad", root+".bad", m.KindLeaf)
	fail.Finish(m.Fail, &m.Failure{Message: "want 1, got 2"})
	fail.SetAttempts(2)

	skipped := m.NewResult("later", root+".later", m.KindLeaf)
	skipped.Skip("flaky")

	res.AddChild(pass)
	res.AddChild(fail)
	res.AddChild(skipped)
	res.Finish(m.Fail, nil)
	res.Seal()

	return m.Run{
		ID:       "run-" + root,
		Seed:     42,
		Shuffled: true,
		Started:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Root:     res,
	}
}

func TestYAMLResultStore_SaveAndLoadAll(t *testing.T) {
	dir := m.Path(filepath.Join(t.TempDir(), "results"))
	store := NewYAMLResultStore(NewLocalFSAdapter())

	require.NoError(t, store.Save(dir, sampleRun("zeta")))
	require.NoError(t, store.Save(dir, sampleRun("alpha")))

	runs, err := store.LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "alpha", runs[0].Root.Name)
	assert.Equal(t, "zeta", runs[1].Root.Name)

	run := runs[0]
	assert.Equal(t, "run-alpha", run.ID)
	assert.Equal(t, uint64(42), run.Seed)
	assert.True(t, run.Shuffled)
	assert.True(t, run.Root.Sealed())
	assert.Equal(t, m.Fail, run.Root.Status)
	require.Len(t, run.Root.Children, 3)

	bad := run.Root.Find("alpha.bad")
	require.NotNil(t, bad)
	assert.Equal(t, m.KindLeaf, bad.Kind)
	assert.Equal(t, "want 1, got 2", bad.Failure.Message)
	assert.Equal(t, 2, bad.Attempts)

	ok := run.Root.Find("alpha.ok")
	require.NotNil(t, ok)
	assert.Equal(t, 15*time.Millisecond, ok.Duration)
	assert.Equal(t, []string{"hello"}, ok.Output)

	assert.Equal(t, []string{"alpha.bad"}, run.FailedNames())
}

func TestYAMLResultStore_SaveReplacesPreviousRun(t *testing.T) {
	dir := m.Path(t.TempDir())
	store := NewYAMLResultStore(NewLocalFSAdapter())

	first := sampleRun("basics")
	second := sampleRun("basics")
	second.ID = "second"

	require.NoError(t, store.Save(dir, first))
	require.NoError(t, store.Save(dir, second))

	runs, err := store.LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "second", runs[0].ID)
}

func TestYAMLResultStore_LoadAllMissingDir(t *testing.T) {
	store := NewYAMLResultStore(NewLocalFSAdapter())

	runs, err := store.LoadAll(m.Path(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestYAMLResultStore_LoadAllRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "broken.yaml"), "root: [unclosed\n")

	store := NewYAMLResultStore(NewLocalFSAdapter())

	_, err := store.LoadAll(m.Path(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestYAMLResultStore_SaveRequiresRoot(t *testing.T) {
	store := NewYAMLResultStore(NewLocalFSAdapter())

	err := store.Save(m.Path(t.TempDir()), m.Run{ID: "empty"})
	require.Error(t, err)
}
