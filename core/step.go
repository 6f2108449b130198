package core

import "time"

// SideEffect is an extra flash applied when a step starts.
type SideEffect struct {
	Node     NodeID        `json:"node"`
	Flash    FlashKind     `json:"flash"`
	Duration time.Duration `json:"duration,omitempty"` // zero: engine default
}

// FlowStep is one scripted source -> destination transition.
//
// Travel and Delay use the engine defaults when zero.
type FlowStep struct {
	From       NodeID        `json:"from"`
	To         NodeID        `json:"to"`
	Label      string        `json:"label"`
	Log        string        `json:"log"`
	Kind       PacketKind    `json:"kind,omitempty"`
	Travel     time.Duration `json:"travel,omitempty"`
	Delay      time.Duration `json:"delay,omitempty"`
	SideEffect *SideEffect   `json:"sideEffect,omitempty"`
}

// Clone returns a deep copy of the step.
func (s FlowStep) Clone() FlowStep {
	out := s
	if s.SideEffect != nil {
		se := *s.SideEffect
		out.SideEffect = &se
	}
	return out
}

// IsError reports whether the step renders as an error.
func (s FlowStep) IsError() bool {
	return s.Kind == PacketError
}
