package monitor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/petloan/dspactl/internal/core"
)

const progressBarWidth = 50

type styleSet struct {
	header  lipgloss.Style
	rule    lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
	bar     lipgloss.Style
}

func colorStyles() styleSet {
	return styleSet{
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		rule:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		fail:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		bar:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

func plainStyles() styleSet {
	s := lipgloss.NewStyle()
	return styleSet{header: s, rule: s, label: s, success: s, fail: s, warn: s, bar: s}
}

// Renderer writes the human-readable monitoring output.
type Renderer struct {
	w      io.Writer
	styles styleSet
}

// NewRenderer creates a Renderer over a writer.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, styles: colorStyles()}
}

// NewPlainRenderer creates a Renderer that emits no ANSI escapes. Used when
// color output is disabled or the writer is not a terminal.
func NewPlainRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, styles: plainStyles()}
}

func (r *Renderer) rule() string {
	return r.styles.rule.Render(strings.Repeat("=", 80))
}

// Header announces the start of a monitoring session.
func (r *Renderer) Header(workflow string, interval, maxDuration time.Duration) {
	fmt.Fprintln(r.w, r.styles.header.Render("STARTING PIPELINE MONITORING"))
	fmt.Fprintln(r.w, r.rule())
	fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Workflow:"), workflow)
	fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Check interval:"), interval)
	fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Monitoring window:"), maxDuration)
	fmt.Fprintln(r.w, r.styles.label.Render("Stops immediately on failures"))
	fmt.Fprintln(r.w, r.rule())
}

// Update prints one status check. jobs is the PyTorchJob count, or -1 when
// no probe is attached.
func (r *Renderer) Update(iteration int, now time.Time, snap *core.WorkflowSnapshot, sum core.ProgressSummary, jobs int) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.rule())
	fmt.Fprintln(r.w, r.styles.header.Render(fmt.Sprintf("PIPELINE MONITORING UPDATE #%d", iteration)))
	fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Time:"), now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Workflow:"), snap.Name)
	fmt.Fprintln(r.w, r.rule())

	fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Status:"), string(snap.Phase))
	fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Duration:"), core.FormatDuration(snap.Age(now)))
	fmt.Fprintf(r.w, "%s %d/%d steps (%d%%)\n",
		r.styles.label.Render("Progress:"), sum.Completed, sum.Total, sum.Percent)

	if sum.Running > 0 {
		fmt.Fprintf(r.w, "%s %d steps\n", r.styles.label.Render("Running:"), sum.Running)
		fmt.Fprintf(r.w, "   Current tasks: %s\n", strings.Join(truncate(sum.RunningNames, 3), ", "))
	}
	if sum.Pending > 0 {
		fmt.Fprintf(r.w, "%s %d steps\n", r.styles.label.Render("Pending:"), sum.Pending)
	}
	if jobs >= 0 {
		fmt.Fprintf(r.w, "%s %d\n", r.styles.label.Render("Active training jobs:"), jobs)
	}
	if sum.Failed > 0 {
		fmt.Fprintln(r.w, r.styles.fail.Render(fmt.Sprintf("Failed: %d steps", sum.Failed)))
		fmt.Fprintf(r.w, "   Failed tasks: %s\n", strings.Join(truncate(sum.FailedNames, 3), ", "))
		return
	}

	fmt.Fprintf(r.w, "[%s] %d%%\n", r.styles.bar.Render(ProgressBar(sum.Percent, progressBarWidth)), sum.Percent)
}

// ProgressBar renders a fixed-width bar of filled and empty cells.
func ProgressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := width * percent / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(names []string, n int) []string {
	if len(names) <= n {
		return names
	}
	return names[:n]
}

// NextCheck announces when the next poll happens.
func (r *Renderer) NextCheck(at time.Time) {
	fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Next check at:"), at.Format("15:04:05"))
}

// Succeeded prints the success banner.
func (r *Renderer) Succeeded(snap *core.WorkflowSnapshot, sum core.ProgressSummary) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.styles.success.Render("PIPELINE COMPLETED SUCCESSFULLY"))
	fmt.Fprintf(r.w, "%s %d/%d steps\n", r.styles.label.Render("Completed:"), sum.Completed, sum.Total)
}

// Failed prints the failure banner.
func (r *Renderer) Failed(snap *core.WorkflowSnapshot, sum core.ProgressSummary) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.styles.fail.Render(fmt.Sprintf("PIPELINE FAILED WITH STATUS: %s", snap.Phase)))
	if len(sum.FailedNames) > 0 {
		fmt.Fprintf(r.w, "%s %s\n", r.styles.label.Render("Failed tasks:"), strings.Join(sum.FailedNames, ", "))
	}
}

// Timeout prints the window-expired banner.
func (r *Renderer) Timeout(window time.Duration) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.styles.warn.Render(fmt.Sprintf("Monitoring window of %s elapsed without completion", window)))
}
