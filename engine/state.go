package engine

import (
	"fmt"
	"time"
)

// State is the step runner state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON frames.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StateIdle
	case "running":
		*s = StateRunning
	case "complete":
		*s = StateComplete
	default:
		return fmt.Errorf("unknown state %q", b)
	}
	return nil
}

// phase is the position inside a running step.
type phase int

const (
	phaseTravel phase = iota // packet in flight until deadline
	phaseGap                 // waiting until deadline before the next step
)

// Timing holds the fixed choreography durations.
type Timing struct {
	Travel          time.Duration // default packet travel time
	Gap             time.Duration // default delay between steps
	ProcessFlash    time.Duration // source node flash on departure
	SuccessFlash    time.Duration // destination flash on a normal arrival
	ErrorFlash      time.Duration // destination flash on an error arrival
	SideEffectFlash time.Duration // step side effects without their own duration
}

// DefaultTiming returns the standard durations.
func DefaultTiming() Timing {
	return Timing{
		Travel:          800 * time.Millisecond,
		Gap:             100 * time.Millisecond,
		ProcessFlash:    300 * time.Millisecond,
		SuccessFlash:    300 * time.Millisecond,
		ErrorFlash:      500 * time.Millisecond,
		SideEffectFlash: 500 * time.Millisecond,
	}
}

// withDefaults fills zero fields from DefaultTiming.
func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.Travel <= 0 {
		t.Travel = d.Travel
	}
	if t.Gap <= 0 {
		t.Gap = d.Gap
	}
	if t.ProcessFlash <= 0 {
		t.ProcessFlash = d.ProcessFlash
	}
	if t.SuccessFlash <= 0 {
		t.SuccessFlash = d.SuccessFlash
	}
	if t.ErrorFlash <= 0 {
		t.ErrorFlash = d.ErrorFlash
	}
	if t.SideEffectFlash <= 0 {
		t.SideEffectFlash = d.SideEffectFlash
	}
	return t
}
