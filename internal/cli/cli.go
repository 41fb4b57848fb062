package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by FormatSnapshot
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// clearScreen moves the cursor home and clears the terminal
const clearScreen = "\x1b[H\x1b[2J"

// ValidateFormat rejects unknown output formats
func ValidateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FormatSnapshot formats the snapshot based on the output format
func FormatSnapshot(snap loadtest.Snapshot, format string) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil

	case FormatYAML:
		data, err := yaml.Marshal(snap)
		if err != nil {
			return "", err
		}
		return string(data), nil

	case FormatText, "":
		var sb strings.Builder
		for _, row := range rows(snap) {
			sb.WriteString(fmt.Sprintf("%-10s %s\n", row.label+":", row.value))
		}
		return sb.String(), nil

	default:
		return "", ValidateFormat(format)
	}
}

// Line renders the snapshot as a single log style line for non interactive output
func Line(snap loadtest.Snapshot) string {
	return fmt.Sprintf("state=%s total=%d ok=%d failed=%d current_rps=%.2f duration=%.2fs",
		state(snap), snap.TotalRequests, snap.SuccessfulRequests, snap.FailedRequests, snap.CurrentRPS, snap.Duration)
}

type row struct {
	label string
	value string
}

func rows(snap loadtest.Snapshot) []row {
	return []row{
		{"State", stateDetail(snap)},
		{"Started", formatTime(snap.StartTime)},
		{"Ended", formatTime(snap.EndTime)},
		{"Duration", fmt.Sprintf("%.2fs", snap.Duration)},
		{"Requests", fmt.Sprintf("%d total, %d ok, %d failed (%.2f%% errors)",
			snap.TotalRequests, snap.SuccessfulRequests, snap.FailedRequests, snap.ErrorRate())},
		{"Current", fmt.Sprintf("%.2f rps", snap.CurrentRPS)},
	}
}

func state(snap loadtest.Snapshot) string {
	switch {
	case snap.Active:
		return "running"
	case snap.EndTime != nil:
		return "stopped"
	default:
		return "idle"
	}
}

func stateDetail(snap loadtest.Snapshot) string {
	if snap.TargetRPS > 0 {
		return fmt.Sprintf("%s (target %d rps)", state(snap), snap.TargetRPS)
	}
	return state(snap)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// Dashboard renders snapshots as a boxed panel for the watch command
type Dashboard struct {
	w           io.Writer
	interactive bool

	titleStyle   lipgloss.Style
	labelStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	runningStyle lipgloss.Style
	idleStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	boxStyle     lipgloss.Style
}

// NewDashboard creates a dashboard writing to w. Colors and screen redraws
// are only used when w is a terminal.
func NewDashboard(w io.Writer) *Dashboard {
	renderer := lipgloss.NewRenderer(w)

	return &Dashboard{
		w:            w,
		interactive:  IsTerminal(w),
		titleStyle:   renderer.NewStyle().Bold(true).MarginBottom(1),
		labelStyle:   renderer.NewStyle().Width(10).Foreground(lipgloss.Color("241")),
		valueStyle:   renderer.NewStyle().Bold(true),
		runningStyle: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		idleStyle:    renderer.NewStyle().Foreground(lipgloss.Color("245")),
		failedStyle:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		boxStyle:     renderer.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2),
	}
}

// Render returns the panel for snap
func (d *Dashboard) Render(snap loadtest.Snapshot, source string) string {
	stateStyle := d.idleStyle
	if snap.Active {
		stateStyle = d.runningStyle
	}

	failed := d.valueStyle.Render(fmt.Sprintf("%d", snap.FailedRequests))
	if snap.FailedRequests > 0 {
		failed = d.failedStyle.Render(fmt.Sprintf("%d (%.2f%%)", snap.FailedRequests, snap.ErrorRate()))
	}

	lines := []string{
		d.titleStyle.Render("Load test " + source),
		d.line("State", stateStyle.Render(stateDetail(snap))),
		d.line("Duration", d.valueStyle.Render(fmt.Sprintf("%.2fs", snap.Duration))),
		d.line("Current", d.valueStyle.Render(fmt.Sprintf("%.2f rps", snap.CurrentRPS))),
		d.line("Total", d.valueStyle.Render(fmt.Sprintf("%d", snap.TotalRequests))),
		d.line("Success", d.valueStyle.Render(fmt.Sprintf("%d (%.2f%%)", snap.SuccessfulRequests, snap.SuccessRate()))),
		d.line("Failed", failed),
	}

	return d.boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (d *Dashboard) line(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, d.labelStyle.Render(label), value)
}

// Show writes snap to the output: a redrawn panel on terminals, one line
// per snapshot otherwise.
func (d *Dashboard) Show(snap loadtest.Snapshot, source string) error {
	var err error
	if d.interactive {
		_, err = fmt.Fprint(d.w, clearScreen+d.Render(snap, source)+"\n")
	} else {
		_, err = fmt.Fprintln(d.w, Line(snap))
	}
	return err
}
