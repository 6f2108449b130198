// Package tui renders the simulator as a terminal dashboard.
package tui

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/visual"
)

// Options configure a Dashboard.
type Options struct {
	CommandBuffer int
	TargetFPS     int
}

// Dashboard is a tview visualizer: a trigger bar, the node map and the log
// console. It queues key presses as control commands.
type Dashboard struct {
	app       *tview.Application
	scheduler *frameScheduler
	queue     visual.CommandQueue

	bar     *tview.TextView
	status  *tview.TextView
	nodeMap *mapView
	console *tview.TextView

	mu       sync.RWMutex
	frame    *engine.Frame
	headless bool

	logRun   string
	logCount int
}

// New builds the dashboard. Call Run to take over the terminal.
func New(opts Options) *Dashboard {
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = 16
	}
	app := tview.NewApplication()
	d := &Dashboard{
		app:       app,
		scheduler: newFrameScheduler(app, opts.TargetFPS),
		queue:     visual.NewChannelCommandQueue(opts.CommandBuffer),
		bar:       tview.NewTextView().SetDynamicColors(true).SetWrap(false),
		status:    tview.NewTextView().SetDynamicColors(true).SetWrap(false),
		nodeMap:   newMapView(),
		console:   newBoxedTextView("Logs"),
	}
	d.status.SetTextAlign(tview.AlignRight)

	header := tview.NewFlex().
		AddItem(d.bar, 0, 3, false).
		AddItem(d.status, 0, 1, false)
	body := tview.NewFlex().
		AddItem(d.nodeMap, 0, 3, false).
		AddItem(d.console, 0, 2, false)
	footer := tview.NewTextView().SetDynamicColors(true).SetText(footerText())

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(footer, 1, 0, false)
	app.SetRoot(root, true)
	app.SetInputCapture(d.handleKey)
	d.status.SetText(statusLine(nil))
	return d
}

func newBoxedTextView(title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	tv.SetBorder(true)
	tv.SetTitle(" " + accentText(title) + " ").SetTitleAlign(tview.AlignLeft)
	tv.SetBorderColor(uiBorderColor)
	tv.SetTitleColor(uiTitleColor)
	return tv
}

// Run blocks until the user quits or Stop is called.
func (d *Dashboard) Run() error {
	d.scheduler.Start()
	defer d.scheduler.Stop()
	return d.app.Run()
}

// Stop closes the dashboard.
func (d *Dashboard) Stop() {
	d.app.Stop()
}

func (d *Dashboard) SetHeadless(headless bool) {
	d.mu.Lock()
	d.headless = headless
	d.mu.Unlock()
}

func (d *Dashboard) IsHeadless() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.headless
}

// PublishFrame stores the frame and schedules a redraw.
func (d *Dashboard) PublishFrame(frame *engine.Frame) {
	if frame == nil {
		return
	}
	d.mu.Lock()
	d.frame = frame
	d.mu.Unlock()
	d.scheduler.Schedule("frame", func() { d.render(frame) })
}

func (d *Dashboard) NextCommand() (visual.ControlCommand, bool) {
	return d.queue.TryDequeue()
}

func (d *Dashboard) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	return d.queue.Next(ctx)
}

func (d *Dashboard) latest() *engine.Frame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frame
}

// render runs on the tview event loop.
func (d *Dashboard) render(f *engine.Frame) {
	d.bar.SetText(triggerBar(f))
	d.status.SetText(statusLine(f))
	d.nodeMap.SetFrame(f)
	if f.RunID != d.logRun || len(f.Logs) != d.logCount {
		d.logRun = f.RunID
		d.logCount = len(f.Logs)
		d.console.SetText(formatLogs(f.Logs))
		d.console.ScrollToEnd()
	}
}

func (d *Dashboard) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyCtrlC {
		d.Stop()
		return nil
	}
	if event.Key() != tcell.KeyRune {
		return event
	}
	if event.Rune() == 'q' || event.Rune() == 'Q' {
		d.Stop()
		return nil
	}
	if cmd, ok := keyCommand(event.Rune(), d.latest()); ok {
		d.queue.Enqueue(cmd)
		return nil
	}
	return event
}

// keyCommand maps a key press to a control command given the latest frame.
// Number keys only trigger while their button is enabled.
func keyCommand(r rune, f *engine.Frame) (visual.ControlCommand, bool) {
	switch {
	case r >= '1' && r <= '9':
		if f == nil {
			return visual.ControlCommand{}, false
		}
		i := int(r - '1')
		if i >= len(f.Scenarios) || !f.Scenarios[i].Enabled {
			return visual.ControlCommand{}, false
		}
		return visual.Trigger(f.Scenarios[i].ID), true
	case r == 'p' || r == 'P':
		if f == nil || !f.Running() {
			return visual.ControlCommand{}, false
		}
		if f.Paused {
			return visual.ControlCommand{Type: visual.CommandResume}, true
		}
		return visual.ControlCommand{Type: visual.CommandPause}, true
	case r == 'r' || r == 'R':
		return visual.ControlCommand{Type: visual.CommandReset}, true
	}
	return visual.ControlCommand{}, false
}
