// Package controller renders zest runs: live progress, failure details,
// summaries, previews of the selection and stored results.
package controller

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "zest.dev/pkg/zest/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeRun StartMode = iota
	ModePreview
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithRunMode sets the UI to test execution mode.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// WithPreviewMode sets the UI to selection preview mode.
func WithPreviewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModePreview
	}
}

// WithViewMode sets the UI to stored results mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// Mode returns the configured StartMode.
func (c StartConfig) Mode() StartMode {
	return c.mode
}

func newStartConfig(options []StartOption) StartConfig {
	var cfg StartConfig
	for _, option := range options {
		option(&cfg)
	}

	return cfg
}

// RunInfo describes a run before it starts.
type RunInfo struct {
	Seed     uint64
	Shuffled bool
	Roots    int
	Parallel int
}

// PlannedTest is one selected leaf in execution order.
type PlannedTest struct {
	FullName   string
	Groups     []string
	Skip       bool
	SkipReason string
}

// UI defines the interface for reporting runs.
// Implementations can use different output methods (simple text, TUI, etc).
// OnStart and OnStop may be called from several goroutines at once.
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context)
	DisplayRunInfo(ctx context.Context, info RunInfo)
	OnStart(ctx context.Context, fullName string)
	OnStop(ctx context.Context, result *m.Result)
	DisplayResults(ctx context.Context, runs []m.Run)
	DisplaySummary(ctx context.Context, counts m.Counts, elapsed time.Duration)
	DisplayPreview(ctx context.Context, plan []PlannedTest) error
	DisplayStored(ctx context.Context, runs []m.Run) error
}

// NewUI picks the interactive TUI when the output is a terminal.
func NewUI(cmd *cobra.Command, useTTY bool, verbose int) UI {
	simple := NewSimpleUI(cmd, verbose)
	if useTTY {
		return NewTUI(cmd.OutOrStdout(), simple)
	}

	return simple
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
