package engine

import (
	"time"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/scenario"
)

// NodeView is a node badge together with its current highlight.
type NodeView struct {
	core.Node
	Flash core.FlashKind `json:"flash,omitempty"`
}

// PacketView is the packet in flight with its interpolated position.
type PacketView struct {
	core.Packet
	Color    string        `json:"color"`
	Progress float64       `json:"progress"`
	Position core.Position `json:"position"`
}

// ScenarioButton is one entry of the trigger surface.
type ScenarioButton struct {
	ID       scenario.ID `json:"id"`
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle"`
	Steps    int         `json:"steps"`
	Enabled  bool        `json:"enabled"`
}

// Frame is an immutable snapshot handed to renderers.
type Frame struct {
	Seq         uint64            `json:"seq"`
	GeneratedAt time.Time         `json:"generatedAt"`
	State       State             `json:"state"`
	Paused      bool              `json:"paused"`
	RunID       string            `json:"runID,omitempty"`
	Scenario    scenario.ID       `json:"scenario,omitempty"`
	StepIndex   int               `json:"stepIndex"`
	StepCount   int               `json:"stepCount"`
	Nodes       []NodeView        `json:"nodes"`
	Connections []core.Connection `json:"connections"`
	Packets     []PacketView      `json:"packets"`
	Logs        []core.LogEntry   `json:"logs"`
	Scenarios   []ScenarioButton  `json:"scenarios"`
	TableHash   string            `json:"tableHash"`
}

// Running reports whether the frame was taken during a run.
func (f *Frame) Running() bool {
	return f != nil && f.State == StateRunning
}

// Flash returns the highlight of a node in the frame.
func (f *Frame) Flash(id core.NodeID) core.FlashKind {
	if f == nil {
		return core.FlashNone
	}
	for _, n := range f.Nodes {
		if n.ID == id {
			return n.Flash
		}
	}
	return core.FlashNone
}

// Snapshot builds a frame of the current state as seen at now. While paused
// the packet is drawn where it froze.
func (e *Engine) Snapshot(now time.Time) *Frame {
	view := now
	if e.paused {
		view = e.pausedAt
	}

	nodes := e.reg.Nodes()
	nodeViews := make([]NodeView, len(nodes))
	for i, n := range nodes {
		nodeViews[i] = NodeView{Node: n}
		if f, ok := e.flashes[n.ID]; ok && f.Active(view) {
			nodeViews[i].Flash = f.Kind
		}
	}

	packets := make([]PacketView, 0, 1)
	if e.packet != nil {
		progress := e.packet.Progress(view)
		from, _ := e.reg.Node(e.packet.From)
		to, _ := e.reg.Node(e.packet.To)
		packets = append(packets, PacketView{
			Packet:   *e.packet,
			Color:    e.packet.Kind.Color(),
			Progress: progress,
			Position: core.Interpolate(from.Position, to.Position, progress),
		})
	}

	all := e.table.All()
	buttons := make([]ScenarioButton, len(all))
	for i, s := range all {
		buttons[i] = ScenarioButton{
			ID:       s.ID,
			Title:    s.Title,
			Subtitle: s.Subtitle,
			Steps:    len(s.Steps),
			Enabled:  !e.Running(),
		}
	}

	frame := &Frame{
		Seq:         e.version,
		GeneratedAt: now,
		State:       e.state,
		Paused:      e.paused,
		Nodes:       nodeViews,
		Connections: e.reg.Connections(),
		Packets:     packets,
		Logs:        e.Logs(),
		Scenarios:   buttons,
		TableHash:   e.hash,
	}
	if e.runID != "" {
		frame.RunID = e.runID
		frame.Scenario = e.run.ID
		frame.StepIndex = e.index
		frame.StepCount = len(e.run.Steps)
	}
	return frame
}
