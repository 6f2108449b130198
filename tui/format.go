package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/engine"
)

const (
	accentTag   = "[#ff69b4]"
	accentReset = "[-]"
)

var (
	uiBorderColor = tcell.ColorGray
	uiTitleColor  = tcell.ColorHotPink
)

var severityTags = map[core.Severity]string{
	core.SeverityInfo:    "[#60a5fa]",
	core.SeveritySuccess: "[#4ade80]",
	core.SeverityWarning: "[#facc15]",
	core.SeverityError:   "[#ef4444]",
}

func accentText(s string) string {
	return accentTag + s + accentReset
}

// formatLogLine renders one console entry with its timestamp.
func formatLogLine(e core.LogEntry) string {
	tag, ok := severityTags[e.Severity]
	if !ok {
		tag = severityTags[core.SeverityInfo]
	}
	return fmt.Sprintf("[gray]%s[-] %s%s[-]", tview.Escape("["+e.Clock()+"]"), tag, tview.Escape(e.Message))
}

// formatLogs renders the whole console, oldest first.
func formatLogs(logs []core.LogEntry) string {
	lines := make([]string, len(logs))
	for i, e := range logs {
		lines[i] = formatLogLine(e)
	}
	return strings.Join(lines, "\n")
}

// triggerBar renders the numbered scenario buttons. Disabled buttons are
// greyed out.
func triggerBar(f *engine.Frame) string {
	if f == nil {
		return ""
	}
	parts := make([]string, 0, len(f.Scenarios))
	for i, s := range f.Scenarios {
		if i >= 9 {
			break
		}
		label := tview.Escape(fmt.Sprintf("%s: %s", s.Title, s.Subtitle))
		if s.Enabled {
			parts = append(parts, fmt.Sprintf("%s %s", accentText(fmt.Sprintf("[%d[]", i+1)), label))
		} else {
			parts = append(parts, fmt.Sprintf("[gray][%d[] %s[-]", i+1, label))
		}
	}
	return strings.Join(parts, "  ")
}

// statusLine summarises the run shown in f.
func statusLine(f *engine.Frame) string {
	if f == nil {
		return "waiting for simulator"
	}
	var b strings.Builder
	b.WriteString(f.State.String())
	if f.Scenario != "" {
		step := f.StepIndex + 1
		if step > f.StepCount {
			step = f.StepCount
		}
		fmt.Fprintf(&b, "  %s  step %d/%d", f.Scenario, step, f.StepCount)
	}
	if f.Paused {
		b.WriteString("  [yellow]PAUSED[-]")
	}
	return b.String()
}

func footerText() string {
	return accentText("1-4") + " Trigger  " + accentText("P") + " Pause/Resume  " + accentText("R") + " Reset  " + accentText("Q") + " Quit"
}
