package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/visual"
)

var severityANSI = map[core.Severity]string{
	core.SeveritySuccess: "\x1b[32m",
	core.SeverityWarning: "\x1b[33m",
	core.SeverityError:   "\x1b[31m",
}

const ansiReset = "\x1b[0m"

// ConsoleVisualizer prints each new log line of the published frames. It
// accepts no commands.
type ConsoleVisualizer struct {
	mu       sync.Mutex
	w        io.Writer
	color    bool
	headless bool

	runID   string
	printed int
}

// NewConsoleVisualizer writes to w, colouring severities when color is set.
func NewConsoleVisualizer(w io.Writer, color bool) *ConsoleVisualizer {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleVisualizer{w: w, color: color}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *ConsoleVisualizer) SetHeadless(headless bool) {
	c.mu.Lock()
	c.headless = headless
	c.mu.Unlock()
}

func (c *ConsoleVisualizer) IsHeadless() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headless
}

// PublishFrame prints the log entries not yet seen for the frame's run.
func (c *ConsoleVisualizer) PublishFrame(frame *engine.Frame) {
	if frame == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if frame.RunID != c.runID {
		c.runID = frame.RunID
		c.printed = 0
	}
	if c.printed > len(frame.Logs) {
		c.printed = 0
	}
	for _, e := range frame.Logs[c.printed:] {
		fmt.Fprintln(c.w, formatConsoleLine(e, c.color))
	}
	c.printed = len(frame.Logs)
}

func (c *ConsoleVisualizer) NextCommand() (visual.ControlCommand, bool) {
	return visual.ControlCommand{Type: visual.CommandNone}, false
}

func (c *ConsoleVisualizer) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	<-ctx.Done()
	return visual.ControlCommand{Type: visual.CommandNone}, false
}

// formatConsoleLine renders "[HH:MM:SS] LEVEL message".
func formatConsoleLine(e core.LogEntry, color bool) string {
	level := fmt.Sprintf("%-7s", strings.ToUpper(string(e.Severity)))
	if code, ok := severityANSI[e.Severity]; ok && color {
		level = code + level + ansiReset
	}
	return fmt.Sprintf("[%s] %s %s", e.Clock(), level, e.Message)
}
