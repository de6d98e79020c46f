package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "zest.dev/pkg/zest/internal/model"
)

// Verbosity levels of SimpleUI.
const (
	VerboseQuiet = 0
	VerboseDots  = 1
	VerboseTrace = 2
)

// SimpleUI implements UI using the cobra command's output.
type SimpleUI struct {
	cmd     *cobra.Command
	verbose int
	styles  styles

	mu      sync.Mutex
	mode    StartMode
	pending bool
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, verbose int) *SimpleUI {
	return &SimpleUI{
		cmd:     cmd,
		verbose: verbose,
		styles:  newStyles(cmd.OutOrStdout()),
	}
}

// Start initializes the UI. Progress is only printed in run mode.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newStartConfig(options)

	s.mu.Lock()
	s.mode = cfg.mode
	s.mu.Unlock()

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.endLine()
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayRunInfo prints the seed and concurrency of the run.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	shuffle := "off"
	if info.Shuffled {
		shuffle = "on"
	}

	s.printf("Running %d root suite(s) with %d worker(s), seed %d (shuffle %s)\n",
		info.Roots, info.Parallel, info.Seed, shuffle)
}

// OnStart is called when a node begins.
func (s *SimpleUI) OnStart(_ context.Context, _ string) {}

// OnStop prints the progress of a finished leaf.
func (s *SimpleUI) OnStop(ctx context.Context, result *m.Result) {
	if ctx.Err() != nil || result.Kind != m.KindLeaf {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeRun {
		return
	}

	switch s.verbose {
	case VerboseDots:
		s.printf("%s", dot(result))
		s.pending = true
	case VerboseTrace:
		line := fmt.Sprintf("%s %s (%s)", s.styles.label(result.Status), result.FullName, formatDuration(result.Duration))
		if result.Status == m.Skipped && result.SkipReason != "" {
			line += " " + s.styles.faint.Render(result.SkipReason)
		}

		s.printf("%s\n", line)
	}
}

// DisplayResults prints the details of every failed node.
func (s *SimpleUI) DisplayResults(ctx context.Context, runs []m.Run) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.endLine()

	lines := failureLines(s.styles, runs, s.verbose >= VerboseTrace)
	if len(lines) == 0 {
		return
	}

	s.printf("\n%s\n", strings.Join(lines, "\n"))
}

// DisplaySummary prints the outcome counts.
func (s *SimpleUI) DisplaySummary(ctx context.Context, counts m.Counts, elapsed time.Duration) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.endLine()
	s.printf("\n%s", renderSummaryTable(counts))
	s.printf("Ran %d test(s) in %s\n", counts.Total(), formatDuration(elapsed))

	if counts.Failed() {
		s.printf("%s\n", s.styles.word(m.Fail))
	} else {
		s.printf("%s\n", s.styles.word(m.Pass))
	}
}

// DisplayPreview prints the selected leaves in execution order.
func (s *SimpleUI) DisplayPreview(ctx context.Context, plan []PlannedTest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderPreviewTable(plan))

	return nil
}

// DisplayStored prints the stored result trees.
func (s *SimpleUI) DisplayStored(ctx context.Context, runs []m.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(runs) == 0 {
		s.printf("No stored results\n")
		return nil
	}

	s.printf("%s\n", strings.Join(storedLines(s.styles, runs), "\n"))

	return nil
}

func (s *SimpleUI) endLine() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		s.printf("\n")
		s.pending = false
	}
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func renderSummaryTable(counts m.Counts) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Status", "Tests"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	table.Append([]string{labelPass, fmt.Sprintf("%d", counts.Pass)})
	table.Append([]string{labelFail, fmt.Sprintf("%d", counts.Fail)})
	table.Append([]string{labelError, fmt.Sprintf("%d", counts.Error)})
	table.Append([]string{labelSkip, fmt.Sprintf("%d", counts.Skipped)})
	table.SetFooter([]string{"Total", fmt.Sprintf("%d", counts.Total())})

	table.Render()

	return tableBuffer.String()
}

func renderPreviewTable(plan []PlannedTest) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Test", "Groups", "Skip"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, test := range plan {
		skip := ""
		if test.Skip {
			skip = test.SkipReason
			if skip == "" {
				skip = "yes"
			}
		}

		table.Append([]string{test.FullName, strings.Join(test.Groups, ","), skip})
	}

	table.SetFooter([]string{fmt.Sprintf("Total %d", len(plan)), "", ""})

	table.Render()

	return tableBuffer.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}

	return d.Round(time.Millisecond).String()
}
