package simulator

import (
	"time"

	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/visual"
)

// VisualBridge publishes engine frames to a visualizer, skipping ticks where
// nothing visible changed.
type VisualBridge struct {
	viz visual.Visualizer

	published   bool
	lastVersion uint64
	seq         uint64
}

// NewVisualBridge wraps viz. A nil visualizer behaves as headless.
func NewVisualBridge(viz visual.Visualizer) *VisualBridge {
	return &VisualBridge{viz: viz}
}

// IsHeadless reports whether visualization output is disabled.
func (v *VisualBridge) IsHeadless() bool {
	if v == nil || v.viz == nil {
		return true
	}
	return v.viz.IsHeadless()
}

// Seq returns the sequence number of the last published frame.
func (v *VisualBridge) Seq() uint64 {
	if v == nil {
		return 0
	}
	return v.seq
}

// Stale reports whether eng changed since the last published frame.
func (v *VisualBridge) Stale(eng *engine.Engine) bool {
	if v.IsHeadless() {
		return false
	}
	return !v.published || eng.Version() != v.lastVersion
}

// Publish snapshots eng at now and hands the frame to the visualizer when the
// engine changed since the last frame or a packet is moving. It returns the
// published frame, or nil when nothing was sent.
func (v *VisualBridge) Publish(eng *engine.Engine, now time.Time) *engine.Frame {
	if v.IsHeadless() {
		return nil
	}
	_, moving := eng.ActivePacket()
	moving = moving && !eng.Paused()
	if v.published && eng.Version() == v.lastVersion && !moving {
		return nil
	}
	frame := eng.Snapshot(now)
	v.seq++
	frame.Seq = v.seq
	v.published = true
	v.lastVersion = eng.Version()
	v.viz.PublishFrame(frame)
	return frame
}
