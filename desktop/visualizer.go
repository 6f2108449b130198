// Package desktop renders the simulator in a Fyne window.
package desktop

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/scenario"
	"github.com/Readm/backend_flow_sim/visual"
)

// Options configure the desktop window.
type Options struct {
	Title         string
	CommandBuffer int
	// App overrides the Fyne application, e.g. a test app.
	App fyne.App
}

// FyneVisualizer implements visual.Visualizer with a Fyne window: trigger
// buttons, the system diagram and the log console.
type FyneVisualizer struct {
	app    fyne.App
	window fyne.Window
	table  *scenario.Table
	queue  visual.CommandQueue
	opts   Options

	mu       sync.RWMutex
	headless bool
	logs     []core.LogEntry

	triggers    []*widget.Button
	pauseButton *widget.Button
	resetButton *widget.Button
	status      *widget.Label
	diagram     *diagram
	logList     *widget.List

	paused bool
}

// NewFyneVisualizer creates the visualizer. Initialize builds the window.
func NewFyneVisualizer(table *scenario.Table, opts Options) *FyneVisualizer {
	if table == nil {
		table = scenario.Builtin()
	}
	if opts.Title == "" {
		opts.Title = "Backend Flow Simulator"
	}
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = 16
	}
	return &FyneVisualizer{
		table: table,
		queue: visual.NewChannelCommandQueue(opts.CommandBuffer),
		opts:  opts,
	}
}

// Initialize creates the window (only called in non-headless mode).
func (v *FyneVisualizer) Initialize() {
	if v.headless {
		return
	}
	v.app = v.opts.App
	if v.app == nil {
		v.app = app.New()
	}
	v.window = v.app.NewWindow(v.opts.Title)
	v.window.Resize(fyne.NewSize(1200, 760))

	buttons := make([]fyne.CanvasObject, 0, v.table.Len())
	for _, s := range v.table.All() {
		id := s.ID
		b := widget.NewButton(buttonLabel(s), func() {
			v.queue.Enqueue(visual.Trigger(id))
		})
		v.triggers = append(v.triggers, b)
		buttons = append(buttons, b)
	}

	v.status = widget.NewLabel("idle")
	v.pauseButton = widget.NewButton("Pause", func() {
		v.mu.RLock()
		paused := v.paused
		v.mu.RUnlock()
		if paused {
			v.queue.Enqueue(visual.ControlCommand{Type: visual.CommandResume})
		} else {
			v.queue.Enqueue(visual.ControlCommand{Type: visual.CommandPause})
		}
	})
	v.pauseButton.Disable()
	v.resetButton = widget.NewButton("Reset", func() {
		v.queue.Enqueue(visual.ControlCommand{Type: visual.CommandReset})
	})

	controlPanel := container.NewHBox(
		v.status,
		widget.NewSeparator(),
		v.pauseButton,
		v.resetButton,
	)

	v.diagram = newDiagram(v.table.Registry())
	v.logList = widget.NewList(
		func() int {
			v.mu.RLock()
			defer v.mu.RUnlock()
			return len(v.logs)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			v.mu.RLock()
			defer v.mu.RUnlock()
			if i < len(v.logs) {
				o.(*widget.Label).SetText(logLine(v.logs[i]))
			}
		},
	)

	split := container.NewHSplit(v.diagram.content, v.logList)
	split.Offset = 0.68
	content := container.NewBorder(
		container.NewVBox(container.NewGridWithColumns(len(buttons), buttons...), controlPanel),
		nil,
		nil,
		nil,
		split,
	)
	v.window.SetContent(content)
}

// SetHeadless sets headless mode
func (v *FyneVisualizer) SetHeadless(headless bool) {
	v.mu.Lock()
	v.headless = headless
	v.mu.Unlock()
}

// IsHeadless returns whether visualizer is in headless mode
func (v *FyneVisualizer) IsHeadless() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.headless
}

// PublishFrame updates every widget from frame.
func (v *FyneVisualizer) PublishFrame(frame *engine.Frame) {
	if frame == nil || v.IsHeadless() || v.window == nil {
		return
	}

	v.mu.Lock()
	logsChanged := len(frame.Logs) != len(v.logs) || (len(frame.Logs) > 0 && frame.Logs[0].ID != v.logs[0].ID)
	v.logs = frame.Logs
	v.paused = frame.Paused
	v.mu.Unlock()

	for i, b := range v.triggers {
		if i < len(frame.Scenarios) && frame.Scenarios[i].Enabled {
			b.Enable()
		} else {
			b.Disable()
		}
	}
	if frame.Running() {
		v.pauseButton.Enable()
	} else {
		v.pauseButton.Disable()
	}
	if frame.Paused {
		v.pauseButton.SetText("Resume")
	} else {
		v.pauseButton.SetText("Pause")
	}
	v.status.SetText(statusText(frame))
	v.diagram.apply(frame)
	if logsChanged {
		v.logList.Refresh()
		v.logList.ScrollToBottom()
	}
}

func (v *FyneVisualizer) NextCommand() (visual.ControlCommand, bool) {
	return v.queue.TryDequeue()
}

func (v *FyneVisualizer) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	return v.queue.Next(ctx)
}

// ShowAndRun shows the window and runs the application (blocks)
func (v *FyneVisualizer) ShowAndRun() {
	if v.IsHeadless() || v.window == nil {
		return
	}
	v.window.ShowAndRun()
}

// Close closes the window
func (v *FyneVisualizer) Close() {
	if v.window == nil {
		return
	}
	v.window.Close()
}

func buttonLabel(s scenario.Scenario) string {
	if s.Subtitle == "" {
		return s.Title
	}
	return s.Title + ": " + s.Subtitle
}

func logLine(e core.LogEntry) string {
	return fmt.Sprintf("[%s] %-7s %s", e.Clock(), e.Severity, e.Message)
}

func statusText(f *engine.Frame) string {
	if f.Scenario == "" {
		return f.State.String()
	}
	step := f.StepIndex + 1
	if step > f.StepCount {
		step = f.StepCount
	}
	s := fmt.Sprintf("%s  %s  step %d/%d", f.State, f.Scenario, step, f.StepCount)
	if f.Paused {
		s += "  (paused)"
	}
	return s
}
