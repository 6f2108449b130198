package visual

import (
	"context"
	"fmt"
	"strings"

	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/scenario"
)

// ControlCommandType represents types of control instructions from UI.
type ControlCommandType string

const (
	CommandNone    ControlCommandType = "none"
	CommandTrigger ControlCommandType = "trigger"
	CommandPause   ControlCommandType = "pause"
	CommandResume  ControlCommandType = "resume"
	CommandReset   ControlCommandType = "reset"
)

// ParseCommandType accepts a command name case-insensitively.
func ParseCommandType(s string) (ControlCommandType, error) {
	switch t := ControlCommandType(strings.ToLower(strings.TrimSpace(s))); t {
	case CommandTrigger, CommandPause, CommandResume, CommandReset:
		return t, nil
	default:
		return CommandNone, fmt.Errorf("unknown command type %q", s)
	}
}

// ControlCommand captures a control instruction for the simulator.
type ControlCommand struct {
	Type     ControlCommandType `json:"type"`
	Scenario scenario.ID        `json:"scenario,omitempty"`
}

// Trigger builds a trigger command for a scenario.
func Trigger(id scenario.ID) ControlCommand {
	return ControlCommand{Type: CommandTrigger, Scenario: id}
}

// Visualizer defines methods for visualization implementations.
type Visualizer interface {
	SetHeadless(headless bool)
	IsHeadless() bool
	PublishFrame(frame *engine.Frame)
	NextCommand() (ControlCommand, bool)
	WaitCommand(ctx context.Context) (ControlCommand, bool)
}

// NullVisualizer is a no-op implementation used for headless mode.
type NullVisualizer struct {
	headless bool
}

// NewNullVisualizer creates a new NullVisualizer.
func NewNullVisualizer() *NullVisualizer {
	return &NullVisualizer{headless: true}
}

func (n *NullVisualizer) SetHeadless(headless bool) {
	n.headless = headless
}

func (n *NullVisualizer) IsHeadless() bool {
	return n.headless
}

func (n *NullVisualizer) PublishFrame(frame *engine.Frame) {}

func (n *NullVisualizer) NextCommand() (ControlCommand, bool) {
	return ControlCommand{Type: CommandNone}, false
}

func (n *NullVisualizer) WaitCommand(ctx context.Context) (ControlCommand, bool) {
	<-ctx.Done()
	return ControlCommand{Type: CommandNone}, false
}
