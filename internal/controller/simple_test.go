package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "zest.dev/pkg/zest/internal/model"
)

func newTestSimpleUI(verbose int) (*SimpleUI, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	return NewSimpleUI(cmd, verbose), out
}

func TestSimpleUI_Dots(t *testing.T) {
	ctx := context.Background()
	ui, out := newTestSimpleUI(VerboseDots)
	require.NoError(t, ui.Start(ctx, WithRunMode()))

	ui.OnStop(ctx, leaf("a", "r.a", m.Pass))
	ui.OnStop(ctx, leaf("b", "r.b", m.Fail))
	ui.OnStop(ctx, leaf("c", "r.c", m.Skipped))
	ui.OnStop(ctx, m.NewResult("r", "r", m.KindSuite))
	ui.Close(ctx)

	assert.Equal(t, ".Fs\n", out.String())
}

func TestSimpleUI_Trace(t *testing.T) {
	ctx := context.Background()
	ui, out := newTestSimpleUI(VerboseTrace)
	require.NoError(t, ui.Start(ctx, WithRunMode()))

	passed := leaf("a", "r.a", m.Pass)
	passed.SetDuration(1500 * time.Microsecond)

	skipped := m.NewResult("s", "r.s", m.KindLeaf)
	skipped.Skip("later")

	ui.OnStop(ctx, passed)
	ui.OnStop(ctx, skipped)

	assert.Equal(t, "PASS  r.a (2ms)\nSKIP  r.s (0s) later\n", out.String())
}

func TestSimpleUI_QuietAndNonRunModes(t *testing.T) {
	ctx := context.Background()

	quiet, quietOut := newTestSimpleUI(VerboseQuiet)
	require.NoError(t, quiet.Start(ctx, WithRunMode()))
	quiet.OnStop(ctx, leaf("a", "r.a", m.Pass))
	assert.Empty(t, quietOut.String())

	preview, previewOut := newTestSimpleUI(VerboseTrace)
	require.NoError(t, preview.Start(ctx, WithPreviewMode()))
	preview.OnStop(ctx, leaf("a", "r.a", m.Pass))
	assert.Empty(t, previewOut.String())
}

func TestSimpleUI_StartCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui, _ := newTestSimpleUI(VerboseDots)
	require.ErrorIs(t, ui.Start(ctx), context.Canceled)
}

func TestSimpleUI_DisplayRunInfo(t *testing.T) {
	ui, out := newTestSimpleUI(VerboseDots)
	ui.DisplayRunInfo(context.Background(), RunInfo{Seed: 42, Shuffled: true, Roots: 3, Parallel: 2})

	assert.Equal(t, "Running 3 root suite(s) with 2 worker(s), seed 42 (shuffle on)\n", out.String())
}

func TestSimpleUI_DisplayResults(t *testing.T) {
	ctx := context.Background()
	ui, out := newTestSimpleUI(VerboseDots)
	require.NoError(t, ui.Start(ctx, WithRunMode()))

	ui.OnStop(ctx, leaf("a", "r.a", m.Fail))
	ui.DisplayResults(ctx, sampleRuns())

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "F\n\n--- FAIL: parser.errors.rejects\n"), got)
	assert.Contains(t, got, "--- ERROR: broken\n")
	assert.NotContains(t, got, "goroutine 7", "stacks are only shown when tracing")
}

func TestSimpleUI_DisplaySummary(t *testing.T) {
	ui, out := newTestSimpleUI(VerboseDots)
	ui.DisplaySummary(context.Background(), m.Counts{Pass: 2, Fail: 1}, 1500*time.Millisecond)

	got := out.String()
	assert.Contains(t, got, "Ran 3 test(s) in 1.5s\n")
	assert.True(t, strings.HasSuffix(got, "FAIL\n"), got)

	ui, out = newTestSimpleUI(VerboseDots)
	ui.DisplaySummary(context.Background(), m.Counts{Pass: 2, Skipped: 4}, time.Second)
	assert.True(t, strings.HasSuffix(out.String(), "PASS\n"), out.String())
}

func TestSimpleUI_DisplayPreview(t *testing.T) {
	ui, out := newTestSimpleUI(VerboseDots)

	err := ui.DisplayPreview(context.Background(), []PlannedTest{
		{FullName: "r.a", Groups: []string{"db", "slow"}},
		{FullName: "r.b", Skip: true, SkipReason: "later"},
		{FullName: "r.c", Skip: true},
	})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "r.a")
	assert.Contains(t, got, "db,slow")
	assert.Contains(t, got, "later")
	assert.Contains(t, got, "yes")
}

func TestSimpleUI_DisplayStored(t *testing.T) {
	ui, out := newTestSimpleUI(VerboseDots)

	require.NoError(t, ui.DisplayStored(context.Background(), nil))
	assert.Equal(t, "No stored results\n", out.String())

	out.Reset()
	require.NoError(t, ui.DisplayStored(context.Background(), sampleRuns()))
	assert.True(t, strings.HasPrefix(out.String(), "== parser  seed=42"), out.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "250µs", formatDuration(250*time.Microsecond))
	assert.Equal(t, "1.235s", formatDuration(1234567*time.Microsecond))
}

func TestNewUI(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false, VerboseDots))
	assert.IsType(t, &TUI{}, NewUI(cmd, true, VerboseDots))
	assert.False(t, IsTTY(&bytes.Buffer{}))
}
