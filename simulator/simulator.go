package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/scenario"
	"github.com/Readm/backend_flow_sim/visual"
)

// DefaultTickInterval is roughly one display frame.
const DefaultTickInterval = 16 * time.Millisecond

// ErrUnknownCommand is returned for command types the simulator cannot apply.
var ErrUnknownCommand = errors.New("unknown command")

// Config configures a Simulator.
type Config struct {
	Engine     *engine.Engine
	Visualizer visual.Visualizer
	Clock      Clock
	// TickInterval is the real-time period of Run, and the virtual step used
	// by RunScenario on a ManualClock.
	TickInterval  time.Duration
	CommandBuffer int
	// OnCommandError receives commands that could not be applied, such as a
	// trigger while a run is active.
	OnCommandError func(visual.ControlCommand, error)
	Logf           func(format string, args ...any)
}

// Simulator drives one engine from a single goroutine: each tick drains
// pending commands, advances the engine and publishes a frame.
type Simulator struct {
	eng    *engine.Engine
	viz    visual.Visualizer
	clock  Clock
	tick   time.Duration
	queue  visual.CommandQueue
	loop   *CommandLoop
	bridge *VisualBridge
	logf   func(format string, args ...any)
	onErr  func(visual.ControlCommand, error)

	ticks uint64
}

// RunResult summarizes one headless scenario run.
type RunResult struct {
	Scenario scenario.ID
	RunID    string
	Logs     []core.LogEntry
	Elapsed  time.Duration
	Ticks    uint64
}

// New creates a simulator. Missing pieces default to a built-in engine, a
// null visualizer and a real-time clock.
func New(cfg Config) *Simulator {
	eng := cfg.Engine
	if eng == nil {
		eng = engine.New(engine.Config{})
	}
	viz := cfg.Visualizer
	if viz == nil {
		viz = visual.NewNullVisualizer()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewScaledClock(1)
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	buffer := cfg.CommandBuffer
	if buffer <= 0 {
		buffer = 64
	}
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	s := &Simulator{
		eng:    eng,
		viz:    viz,
		clock:  clock,
		tick:   tick,
		queue:  visual.NewChannelCommandQueue(buffer),
		bridge: NewVisualBridge(viz),
		logf:   logf,
		onErr:  cfg.OnCommandError,
	}
	s.loop = NewCommandLoop(s.Apply, s.commandFailed, viz, queueSource{q: s.queue})
	return s
}

// Engine returns the driven engine. It must only be touched from the
// goroutine running the simulator.
func (s *Simulator) Engine() *engine.Engine { return s.eng }

// Clock returns the simulator clock.
func (s *Simulator) Clock() Clock { return s.clock }

// Visualizer returns the attached visualizer.
func (s *Simulator) Visualizer() visual.Visualizer { return s.viz }

// Ticks returns the number of ticks processed.
func (s *Simulator) Ticks() uint64 { return s.ticks }

// CommandCounts returns handled and failed command totals.
func (s *Simulator) CommandCounts() (handled, failed uint64) {
	return s.loop.Counts()
}

// Submit queues a command for the next tick. It is safe to call from any
// goroutine and reports false when the queue is full.
func (s *Simulator) Submit(cmd visual.ControlCommand) bool {
	return s.queue.Enqueue(cmd)
}

// Apply executes one command against the engine immediately.
func (s *Simulator) Apply(cmd visual.ControlCommand) error {
	now := s.clock.Now()
	switch cmd.Type {
	case visual.CommandTrigger:
		if err := s.eng.Trigger(cmd.Scenario, now); err != nil {
			return fmt.Errorf("trigger %s: %w", cmd.Scenario, err)
		}
		s.logf("scenario %s started", cmd.Scenario)
	case visual.CommandPause:
		if s.eng.Pause(now) {
			s.logf("paused")
		}
	case visual.CommandResume:
		if s.eng.Resume(now) {
			s.logf("resumed")
		}
	case visual.CommandReset:
		if s.eng.Reset(now) {
			s.logf("reset")
		}
	case visual.CommandNone:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Type)
	}
	return nil
}

// Step runs one tick and returns the published frame, or nil when nothing
// changed or the visualizer is headless.
func (s *Simulator) Step() *engine.Frame {
	s.ticks++
	s.loop.DrainPending()
	now := s.clock.Now()
	s.eng.Advance(now)
	return s.bridge.Publish(s.eng, now)
}

// Frames returns the number of frames published.
func (s *Simulator) Frames() uint64 { return s.bridge.Seq() }

// Run ticks every TickInterval until ctx is done. Once the engine is settled
// and its last frame is published, Run blocks on the command sources instead
// of ticking.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logf("simulator running, tick %v", s.tick)
	s.Step()
	for {
		if s.idle() {
			if s.loop.WaitAndHandle(ctx) {
				s.Step()
				continue
			}
			if ctx.Err() != nil {
				return s.stopped()
			}
		}
		select {
		case <-ctx.Done():
			return s.stopped()
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Simulator) stopped() error {
	s.logf("simulator stopped after %d ticks, %d frames", s.Ticks(), s.Frames())
	return nil
}

// idle reports whether nothing changes until the next command.
func (s *Simulator) idle() bool {
	return s.eng.Settled() && !s.bridge.Stale(s.eng)
}

// RunScenario triggers id and ticks until the run leaves Running. On a
// ManualClock the clock is advanced by one tick per step; any other clock is
// waited on in real time.
func (s *Simulator) RunScenario(ctx context.Context, id scenario.ID) (RunResult, error) {
	start := s.clock.Now()
	startTicks := s.ticks
	if err := s.Apply(visual.Trigger(id)); err != nil {
		return RunResult{}, err
	}
	s.bridge.Publish(s.eng, start)

	for s.eng.Running() {
		if err := s.wait(ctx); err != nil {
			return RunResult{}, fmt.Errorf("scenario %s interrupted: %w", id, err)
		}
		s.Step()
	}

	frame := s.eng.Snapshot(s.clock.Now())
	res := RunResult{
		Scenario: id,
		RunID:    frame.RunID,
		Logs:     frame.Logs,
		Ticks:    s.ticks - startTicks,
	}
	if n := len(res.Logs); n > 0 {
		res.Elapsed = res.Logs[n-1].Timestamp.Sub(start)
	}
	return res, nil
}

// RunScenarios plays ids one after another.
func (s *Simulator) RunScenarios(ctx context.Context, ids []scenario.ID) ([]RunResult, error) {
	results := make([]RunResult, 0, len(ids))
	for _, id := range ids {
		res, err := s.RunScenario(ctx, id)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Simulator) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mc, ok := s.clock.(*ManualClock); ok {
		mc.Advance(s.tick)
		return nil
	}
	timer := time.NewTimer(s.tick)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Simulator) commandFailed(cmd visual.ControlCommand, err error) {
	s.logf("command %s rejected: %v", cmd.Type, err)
	if s.onErr != nil {
		s.onErr(cmd, err)
	}
}
