package controller

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	m "zest.dev/pkg/zest/internal/model"
)

const (
	labelPass  = "PASS"
	labelFail  = "FAIL"
	labelError = "ERROR"
	labelSkip  = "SKIP"
)

// styles colors status labels for the writer they are created for. Writers
// that are not terminals get plain text.
type styles struct {
	pass   lipgloss.Style
	fail   lipgloss.Style
	err    lipgloss.Style
	skip   lipgloss.Style
	header lipgloss.Style
	faint  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)

	return styles{
		pass:   r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		err:    r.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		skip:   r.NewStyle().Foreground(lipgloss.Color("3")),
		header: r.NewStyle().Bold(true),
		faint:  r.NewStyle().Faint(true),
	}
}

func statusText(status m.Status) string {
	switch status {
	case m.Pass:
		return labelPass
	case m.Fail:
		return labelFail
	case m.Error:
		return labelError
	case m.Skipped:
		return labelSkip
	default:
		return unknownStatusLabel
	}
}

// label returns the padded, styled status label.
func (st styles) label(status m.Status) string {
	return st.render(status, fmt.Sprintf("%-5s", statusText(status)))
}

// word returns the styled status label without padding.
func (st styles) word(status m.Status) string {
	return st.render(status, statusText(status))
}

func (st styles) render(status m.Status, text string) string {
	switch status {
	case m.Pass:
		return st.pass.Render(text)
	case m.Fail:
		return st.fail.Render(text)
	case m.Error:
		return st.err.Render(text)
	default:
		return st.skip.Render(text)
	}
}

// dot is the one character progress marker of a finished leaf.
func dot(result *m.Result) string {
	switch {
	case result.Status == m.Fail:
		return "F"
	case result.Status == m.Error || len(result.Extra) > 0:
		return "E"
	case result.Status == m.Skipped:
		return "s"
	default:
		return "."
	}
}

// storedLines renders stored runs as indented trees.
func storedLines(st styles, runs []m.Run) []string {
	var lines []string

	for i, run := range runs {
		if i > 0 {
			lines = append(lines, "")
		}

		lines = append(lines, st.header.Render(fmt.Sprintf("== %s  seed=%d shuffled=%t id=%s",
			run.Root.Name, run.Seed, run.Shuffled, run.ID)))
		lines = appendTree(st, lines, run.Root, 0)
	}

	return lines
}

func appendTree(st styles, lines []string, res *m.Result, depth int) []string {
	indent := strings.Repeat("  ", depth)

	line := fmt.Sprintf("%s%s %s", indent, st.label(res.Status), res.Name)
	if res.Status == m.Skipped && res.SkipReason != "" {
		line += st.faint.Render(fmt.Sprintf(" (%s)", res.SkipReason))
	}

	if res.Attempts > 1 {
		line += st.faint.Render(fmt.Sprintf(" [%d attempts]", res.Attempts))
	}

	lines = append(lines, line)

	detail := indent + strings.Repeat(" ", 6)

	if res.Failure != nil {
		lines = appendIndented(lines, detail, res.Failure.Message)
	}

	for _, extra := range res.Extra {
		lines = appendIndented(lines, detail, extra.Message)
	}

	for _, child := range res.Children {
		lines = appendTree(st, lines, child, depth+1)
	}

	return lines
}

// failureLines lists the failed nodes of runs with their messages.
func failureLines(st styles, runs []m.Run, withStack bool) []string {
	var lines []string

	for _, run := range runs {
		if run.Root == nil {
			continue
		}

		run.Root.Walk(func(res *m.Result) {
			if !res.Failed() || (res.Kind == m.KindSuite && res.Failure == nil) {
				return
			}

			status := res.Status
			if status == m.Pass {
				status = m.Error
			}

			lines = append(lines, fmt.Sprintf("--- %s: %s", st.word(status), res.FullName))

			if res.Failure != nil {
				lines = appendIndented(lines, "    ", res.Failure.Message)

				if withStack && res.Failure.Stack != "" {
					lines = appendIndented(lines, "    ", res.Failure.Stack)
				}
			}

			for _, extra := range res.Extra {
				lines = appendIndented(lines, "    ", extra.Message)
			}

			for _, output := range res.Output {
				lines = append(lines, "    "+st.faint.Render("| "+output))
			}
		})
	}

	return lines
}

func appendIndented(lines []string, indent, text string) []string {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		lines = append(lines, indent+line)
	}

	return lines
}

const unknownStatusLabel = "unknown"
