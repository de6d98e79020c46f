package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	m "zest.dev/pkg/zest/internal/model"
)

// TUI implements UI for terminals. Progress is reported like SimpleUI while
// long listings open in a pager.
type TUI struct {
	*SimpleUI

	output io.Writer
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer, simple *SimpleUI) *TUI {
	return &TUI{SimpleUI: simple, output: output}
}

// DisplayPreview shows the selected leaves in a pager.
func (p *TUI) DisplayPreview(ctx context.Context, plan []PlannedTest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lines := make([]string, 0, len(plan))
	for _, test := range plan {
		line := "  " + test.FullName
		if len(test.Groups) > 0 {
			line += p.styles.faint.Render(" [" + strings.Join(test.Groups, ",") + "]")
		}

		if test.Skip {
			line += " " + p.styles.word(m.Skipped)
		}

		lines = append(lines, line)
	}

	return p.page(newPagerModel(fmt.Sprintf("%d selected test(s)", len(plan)), lines))
}

// DisplayStored shows the stored result trees in a pager.
func (p *TUI) DisplayStored(ctx context.Context, runs []m.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	counts := m.Counts{}
	for _, run := range runs {
		counts = counts.Add(m.Tally(run.Root))
	}

	title := fmt.Sprintf("%d run(s): %d passed, %d failed, %d errors, %d skipped",
		len(runs), counts.Pass, counts.Fail, counts.Error, counts.Skipped)

	return p.page(newPagerModel(title, storedLines(p.styles, runs)))
}

func (p *TUI) page(model pagerModel) error {
	if f, ok := p.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	// If list is small, just print and exit
	if !model.needsPagination() {
		_, err := fmt.Fprint(p.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

type pagerKeys struct {
	up       key.Binding
	down     key.Binding
	pageUp   key.Binding
	pageDown key.Binding
	top      key.Binding
	bottom   key.Binding
	quit     key.Binding
}

func newPagerKeys() pagerKeys {
	return pagerKeys{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		pageUp:   key.NewBinding(key.WithKeys("pgup", "u"), key.WithHelp("u", "page up")),
		pageDown: key.NewBinding(key.WithKeys("pgdown", "d"), key.WithHelp("d", "page down")),
		top:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		bottom:   key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k pagerKeys) help() string {
	bindings := []key.Binding{k.up, k.down, k.pageUp, k.pageDown, k.top, k.bottom, k.quit}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, b.Help().Key+": "+b.Help().Desc)
	}

	return strings.Join(parts, " | ")
}

// pagerModel is the Bubble Tea model of a scrollable list of lines.
type pagerModel struct {
	title    string
	lines    []string
	keys     pagerKeys
	height   int
	width    int
	offset   int
	quitting bool
}

func newPagerModel(title string, lines []string) pagerModel {
	return pagerModel{
		title: title,
		lines: lines,
		keys:  newPagerKeys(),
	}
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.height = msg.Height
		pm.width = msg.Width

		return pm, nil

	case tea.KeyMsg:
		return pm.handleKeyPress(msg)
	}

	return pm, nil
}

func (pm pagerModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, pm.keys.quit):
		pm.quitting = true
		return pm, tea.Quit

	case key.Matches(msg, pm.keys.down):
		pm.offset = pm.clamp(pm.offset + 1)

	case key.Matches(msg, pm.keys.up):
		pm.offset = pm.clamp(pm.offset - 1)

	case key.Matches(msg, pm.keys.pageDown):
		pm.offset = pm.clamp(pm.offset + pm.itemsPerPage())

	case key.Matches(msg, pm.keys.pageUp):
		pm.offset = pm.clamp(pm.offset - pm.itemsPerPage())

	case key.Matches(msg, pm.keys.top):
		pm.offset = 0

	case key.Matches(msg, pm.keys.bottom):
		pm.offset = pm.maxOffset()
	}

	return pm, nil
}

func (pm pagerModel) clamp(offset int) int {
	if offset < 0 {
		return 0
	}

	if maxOffset := pm.maxOffset(); offset > maxOffset {
		return maxOffset
	}

	return offset
}

// itemsPerPage calculates how many lines fit on screen.
func (pm pagerModel) itemsPerPage() int {
	if pm.height == 0 {
		return 10
	}
	// Reserved lines:
	// - Header box: 4 lines
	// - Title + blank: 2 lines
	// - Footer (pagination): 3 lines
	reserved := 9

	available := pm.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

func (pm pagerModel) maxOffset() int {
	maxOff := len(pm.lines) - pm.itemsPerPage()
	if maxOff < 0 {
		return 0
	}

	return maxOff
}

func (pm pagerModel) needsPagination() bool {
	return pm.height > 0 && len(pm.lines) > pm.itemsPerPage()
}

func (pm pagerModel) View() string {
	var b strings.Builder

	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║                         Zest - Results                         ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n\n")
	fmt.Fprintf(&b, "  %s\n\n", pm.title)

	if len(pm.lines) == 0 {
		b.WriteString("  📭 Nothing to show\n")
		return b.String()
	}

	visible := pm.lines

	needsPagination := pm.needsPagination()
	if needsPagination {
		end := pm.offset + pm.itemsPerPage()
		if end > len(pm.lines) {
			end = len(pm.lines)
		}

		visible = pm.lines[pm.offset:end]
	}

	for _, line := range visible {
		fmt.Fprintf(&b, "%s\n", line)
	}

	if needsPagination {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  Lines %d-%d of %d\n", pm.offset+1, pm.offset+len(visible), len(pm.lines))
		fmt.Fprintf(&b, "  %s\n", pm.keys.help())
	}

	return b.String()
}
