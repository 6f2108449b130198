package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/hooks"
	"github.com/Readm/backend_flow_sim/scenario"
)

var (
	// ErrBusy is returned when a scenario is triggered while another runs.
	ErrBusy = errors.New("a scenario is already running")
	// ErrUnknownScenario is returned for ids missing from the table.
	ErrUnknownScenario = errors.New("unknown scenario")
)

const (
	completeMessage = "Flow complete."
	abortMessage    = "Flow aborted."
)

// Config configures an Engine.
type Config struct {
	Table  *scenario.Table
	Timing Timing
	Broker *hooks.PluginBroker
	// NewID generates packet, log and run ids. Defaults to random UUIDs.
	NewID func() string
	// OnHookError receives errors returned by hook handlers. Hook errors never
	// stop the choreography.
	OnHookError func(error)
}

// Engine is the step runner. It owns the active packet, node flashes and the
// log console, and mutates them only from Trigger, Advance, Pause, Resume and
// Reset. All deadlines are explicit timestamps swept by Advance; the engine
// never starts timers of its own.
//
// Engine is not safe for concurrent use; the simulator loop owns it.
type Engine struct {
	table  *scenario.Table
	reg    *core.Registry
	timing Timing
	broker *hooks.PluginBroker
	newID  func() string
	onErr  func(error)
	hash   string

	state    State
	run      scenario.Scenario
	runID    string
	runStart time.Time
	index    int
	phase    phase
	deadline time.Time

	packet  *core.Packet
	flashes map[core.NodeID]core.Flash
	logs    []core.LogEntry

	paused   bool
	pausedAt time.Time

	version uint64
}

// New creates an idle engine.
func New(cfg Config) *Engine {
	table := cfg.Table
	if table == nil {
		table = scenario.Builtin()
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{
		table:   table,
		reg:     table.Registry(),
		timing:  cfg.Timing.withDefaults(),
		broker:  cfg.Broker,
		newID:   newID,
		onErr:   cfg.OnHookError,
		hash:    table.Hash(),
		flashes: make(map[core.NodeID]core.Flash),
	}
}

// State returns the current runner state.
func (e *Engine) State() State { return e.state }

// Running reports whether a scenario is in progress. The trigger surface is
// disabled exactly while this is true.
func (e *Engine) Running() bool { return e.state == StateRunning }

// Paused reports whether the running scenario is frozen.
func (e *Engine) Paused() bool { return e.paused }

// Version increases on every state mutation.
func (e *Engine) Version() uint64 { return e.version }

// Timing returns the effective durations.
func (e *Engine) Timing() Timing { return e.timing }

// Table returns the scenario table.
func (e *Engine) Table() *scenario.Table { return e.table }

// Logs returns a copy of the current run's log console.
func (e *Engine) Logs() []core.LogEntry {
	out := make([]core.LogEntry, len(e.logs))
	copy(out, e.logs)
	return out
}

// ActivePacket returns the packet in flight, if any.
func (e *Engine) ActivePacket() (core.Packet, bool) {
	if e.packet == nil {
		return core.Packet{}, false
	}
	return *e.packet, true
}

// FlashOf returns the active flash on a node.
func (e *Engine) FlashOf(id core.NodeID) (core.Flash, bool) {
	f, ok := e.flashes[id]
	return f, ok
}

// Trigger starts scenario id at now. It fails with ErrBusy while a run is in
// progress, leaving every piece of state untouched.
func (e *Engine) Trigger(id scenario.ID, now time.Time) error {
	if e.state == StateRunning {
		return ErrBusy
	}
	s, ok := e.table.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}

	e.logs = nil
	e.state = StateRunning
	e.run = s
	e.runID = e.newID()
	e.runStart = now
	e.index = 0
	e.paused = false
	e.touch()

	e.hookErr(e.broker.EmitRunStarted(&hooks.RunContext{
		RunID:     e.runID,
		Scenario:  string(s.ID),
		StepCount: len(s.Steps),
		At:        now,
	}))
	e.startStep(now)
	return nil
}

// Advance processes every deadline up to and including now, in timestamp
// order, then sweeps expired flashes. A single coarse call produces the same
// sequence of events as many fine-grained ones.
func (e *Engine) Advance(now time.Time) {
	if e.paused {
		return
	}
	if e.state == StateComplete {
		e.state = StateIdle
		e.touch()
	}
	for e.state == StateRunning {
		at, due := e.nextDue(now)
		if !due {
			break
		}
		switch e.phase {
		case phaseTravel:
			e.arrive(at)
		case phaseGap:
			e.index++
			if e.index >= len(e.run.Steps) {
				e.complete(at)
			} else {
				e.startStep(at)
			}
		}
	}
	e.sweepFlashes(now)
}

// nextDue returns the pending deadline and whether it has passed at now.
// While a packet travels the deadline is its arrival time.
func (e *Engine) nextDue(now time.Time) (time.Time, bool) {
	if e.phase == phaseTravel && e.packet != nil {
		return e.packet.ExpiresAt, e.packet.Expired(now)
	}
	return e.deadline, !now.Before(e.deadline)
}

// Settled reports whether the engine stays unchanged until the next command:
// a paused run, or idle with no flash left to expire.
func (e *Engine) Settled() bool {
	if e.paused {
		return true
	}
	return e.state == StateIdle && len(e.flashes) == 0
}

// Pause freezes a running scenario at now. It reports whether anything changed.
func (e *Engine) Pause(now time.Time) bool {
	if e.state != StateRunning || e.paused {
		return false
	}
	e.paused = true
	e.pausedAt = now
	e.touch()
	return true
}

// Resume continues a paused scenario, shifting every pending deadline by the
// time spent paused.
func (e *Engine) Resume(now time.Time) bool {
	if !e.paused {
		return false
	}
	shift := now.Sub(e.pausedAt)
	if shift < 0 {
		shift = 0
	}
	e.deadline = e.deadline.Add(shift)
	e.packet.Shift(shift)
	for id, f := range e.flashes {
		f.ExpiresAt = f.ExpiresAt.Add(shift)
		e.flashes[id] = f
	}
	e.paused = false
	e.touch()
	return true
}

// Reset aborts a running scenario, clears packets and flashes and returns to
// idle. The log console is kept, ending with an abort warning.
func (e *Engine) Reset(now time.Time) bool {
	if e.state == StateIdle && e.packet == nil && len(e.flashes) == 0 {
		return false
	}
	wasRunning := e.state == StateRunning
	e.packet = nil
	for id := range e.flashes {
		delete(e.flashes, id)
	}
	e.state = StateIdle
	e.paused = false
	if wasRunning {
		e.appendLog(now, abortMessage, core.SeverityWarning)
		e.hookErr(e.broker.EmitRunAborted(&hooks.RunContext{
			RunID:     e.runID,
			Scenario:  string(e.run.ID),
			StepCount: len(e.run.Steps),
			At:        now,
			Elapsed:   now.Sub(e.runStart),
		}))
	}
	e.touch()
	return true
}

func (e *Engine) startStep(at time.Time) {
	step := e.run.Steps[e.index]

	e.appendLog(at, step.Log, core.SeverityFor(step.Kind))
	e.hookErr(e.broker.EmitStepStarted(&hooks.StepContext{RunID: e.runID, Index: e.index, Step: step.Clone(), At: at}))

	if se := step.SideEffect; se != nil {
		e.flash(at, se.Node, se.Flash, durationOr(se.Duration, e.timing.SideEffectFlash))
	}
	e.flash(at, step.From, core.FlashProcess, e.timing.ProcessFlash)

	travel := durationOr(step.Travel, e.timing.Travel)
	e.packet = &core.Packet{
		ID:        e.newID(),
		From:      step.From,
		To:        step.To,
		Label:     step.Label,
		Kind:      step.Kind.OrDefault(),
		SpawnedAt: at,
		ExpiresAt: at.Add(travel),
	}
	e.phase = phaseTravel
	e.touch()
	e.hookErr(e.broker.EmitPacketSpawned(&hooks.PacketContext{RunID: e.runID, Index: e.index, Packet: *e.packet, At: at}))
}

func (e *Engine) arrive(at time.Time) {
	step := e.run.Steps[e.index]
	pkt := *e.packet
	e.packet = nil
	e.hookErr(e.broker.EmitPacketArrived(&hooks.PacketContext{RunID: e.runID, Index: e.index, Packet: pkt, At: at}))

	if step.IsError() {
		e.flash(at, step.To, core.FlashError, e.timing.ErrorFlash)
	} else {
		e.flash(at, step.To, core.FlashSuccess, e.timing.SuccessFlash)
	}
	e.phase = phaseGap
	e.deadline = at.Add(durationOr(step.Delay, e.timing.Gap))
	e.touch()
}

func (e *Engine) complete(at time.Time) {
	e.state = StateComplete
	e.appendLog(at, completeMessage, core.SeveritySuccess)
	e.touch()
	e.hookErr(e.broker.EmitRunCompleted(&hooks.RunContext{
		RunID:     e.runID,
		Scenario:  string(e.run.ID),
		StepCount: len(e.run.Steps),
		At:        at,
		Elapsed:   at.Sub(e.runStart),
	}))
}

// flash overwrites any highlight already on the node.
func (e *Engine) flash(at time.Time, id core.NodeID, kind core.FlashKind, d time.Duration) {
	f := core.Flash{Node: id, Kind: kind, ExpiresAt: at.Add(d)}
	e.flashes[id] = f
	e.touch()
	e.hookErr(e.broker.EmitNodeFlashed(&hooks.FlashContext{RunID: e.runID, Flash: f, At: at}))
}

func (e *Engine) sweepFlashes(now time.Time) {
	for id, f := range e.flashes {
		if !f.Active(now) {
			delete(e.flashes, id)
			e.touch()
		}
	}
}

func (e *Engine) appendLog(at time.Time, msg string, sev core.Severity) {
	entry := core.LogEntry{ID: e.newID(), Timestamp: at, Message: msg, Severity: sev}
	e.logs = append(e.logs, entry)
	e.touch()
	e.hookErr(e.broker.EmitLogAppended(&hooks.LogContext{RunID: e.runID, Entry: entry}))
}

func (e *Engine) touch() { e.version++ }

func (e *Engine) hookErr(err error) {
	if err != nil && e.onErr != nil {
		e.onErr(err)
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
