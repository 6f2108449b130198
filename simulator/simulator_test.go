package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/scenario"
	"github.com/Readm/backend_flow_sim/visual"
)

var start = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// recordingVisualizer keeps every frame and serves commands from a queue.
type recordingVisualizer struct {
	mu     sync.Mutex
	frames []*engine.Frame
	queue  visual.CommandQueue
}

func newRecordingVisualizer() *recordingVisualizer {
	return &recordingVisualizer{queue: visual.NewChannelCommandQueue(8)}
}

func (r *recordingVisualizer) SetHeadless(bool) {}
func (r *recordingVisualizer) IsHeadless() bool { return false }

func (r *recordingVisualizer) PublishFrame(frame *engine.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *recordingVisualizer) NextCommand() (visual.ControlCommand, bool) {
	return r.queue.TryDequeue()
}

func (r *recordingVisualizer) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	return r.queue.Next(ctx)
}

func (r *recordingVisualizer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recordingVisualizer) last() *engine.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

func newManualSim(viz visual.Visualizer, onErr func(visual.ControlCommand, error)) (*Simulator, *ManualClock) {
	clock := NewManualClock(start)
	sim := New(Config{
		Visualizer:     viz,
		Clock:          clock,
		TickInterval:   DefaultTickInterval,
		OnCommandError: onErr,
	})
	return sim, clock
}

func TestRunScenarioOnVirtualClock(t *testing.T) {
	sim, _ := newManualSim(nil, nil)
	res, err := sim.RunScenario(context.Background(), scenario.ReadHit)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(res.Logs) != 5 {
		t.Fatalf("expected 5 log entries, got %d", len(res.Logs))
	}
	if res.Elapsed != 3600*time.Millisecond {
		t.Fatalf("expected 3.6s of simulated time, got %v", res.Elapsed)
	}
	if res.RunID == "" || res.Ticks == 0 {
		t.Fatalf("missing run info: %+v", res)
	}
}

func TestRunScenariosInSequence(t *testing.T) {
	sim, _ := newManualSim(nil, nil)
	ids := scenario.Builtin().IDs()
	results, err := sim.RunScenarios(context.Background(), ids)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("expected %d results, got %d", len(ids), len(results))
	}
	table := scenario.Builtin()
	seen := map[string]bool{}
	for _, res := range results {
		s, _ := table.Lookup(res.Scenario)
		if len(res.Logs) != len(s.Steps)+1 {
			t.Fatalf("%s: expected %d logs, got %d", res.Scenario, len(s.Steps)+1, len(res.Logs))
		}
		if seen[res.RunID] {
			t.Fatalf("run id reused: %s", res.RunID)
		}
		seen[res.RunID] = true
	}
}

func TestRunScenarioUnknown(t *testing.T) {
	sim, _ := newManualSim(nil, nil)
	if _, err := sim.RunScenario(context.Background(), "BOGUS"); !errors.Is(err, engine.ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestRunScenarioCancelled(t *testing.T) {
	sim, _ := newManualSim(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.RunScenario(ctx, scenario.Write); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStepPublishesOnlyOnChange(t *testing.T) {
	viz := newRecordingVisualizer()
	sim, clock := newManualSim(viz, nil)

	if sim.Step() == nil {
		t.Fatalf("first tick should publish the initial frame")
	}
	for i := 0; i < 5; i++ {
		clock.Advance(DefaultTickInterval)
		if f := sim.Step(); f != nil {
			t.Fatalf("idle tick %d published a frame", i)
		}
	}

	viz.queue.Enqueue(visual.Trigger(scenario.ReadMiss))
	var prev uint64
	for i := 0; i < 20; i++ {
		clock.Advance(DefaultTickInterval)
		f := sim.Step()
		if f == nil {
			t.Fatalf("tick %d with a packet in flight did not publish", i)
		}
		if f.Seq <= prev {
			t.Fatalf("frame sequence did not increase: %d after %d", f.Seq, prev)
		}
		prev = f.Seq
	}
	if !viz.last().Running() || len(viz.last().Packets) != 1 {
		t.Fatalf("expected a running frame with one packet")
	}
}

func TestBusyTriggerReported(t *testing.T) {
	var rejected []error
	viz := newRecordingVisualizer()
	sim, clock := newManualSim(viz, func(_ visual.ControlCommand, err error) {
		rejected = append(rejected, err)
	})

	if !sim.Submit(visual.Trigger(scenario.AsyncTask)) {
		t.Fatalf("submit failed")
	}
	sim.Step()
	viz.queue.Enqueue(visual.Trigger(scenario.ReadHit))
	clock.Advance(DefaultTickInterval)
	sim.Step()

	if len(rejected) != 1 || !errors.Is(rejected[0], engine.ErrBusy) {
		t.Fatalf("expected one ErrBusy rejection, got %v", rejected)
	}
	if handled, failed := sim.CommandCounts(); handled != 2 || failed != 1 {
		t.Fatalf("unexpected command counts %d/%d", handled, failed)
	}
	if got := viz.last().Scenario; got != scenario.AsyncTask {
		t.Fatalf("busy trigger replaced the run with %s", got)
	}
}

func TestPauseCommandFreezesRun(t *testing.T) {
	viz := newRecordingVisualizer()
	sim, clock := newManualSim(viz, nil)
	sim.Submit(visual.Trigger(scenario.ReadHit))
	sim.Step()
	clock.Advance(400 * time.Millisecond)
	sim.Submit(visual.ControlCommand{Type: visual.CommandPause})
	frame := sim.Step()
	if frame == nil || !frame.Paused {
		t.Fatalf("expected a paused frame")
	}

	clock.Advance(5 * time.Second)
	if sim.Step() != nil {
		t.Fatalf("paused engine should not publish new frames")
	}
	if len(sim.Engine().Logs()) != 1 {
		t.Fatalf("run progressed while paused")
	}

	sim.Submit(visual.ControlCommand{Type: visual.CommandResume})
	sim.Step()
	clock.Advance(399 * time.Millisecond)
	sim.Step()
	if _, ok := sim.Engine().ActivePacket(); !ok {
		t.Fatalf("packet arrived early after resume")
	}
	clock.Advance(time.Millisecond)
	sim.Step()
	if _, ok := sim.Engine().ActivePacket(); ok {
		t.Fatalf("packet should have arrived 400ms after resume")
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	var got error
	sim, _ := newManualSim(nil, func(_ visual.ControlCommand, err error) { got = err })
	sim.Submit(visual.ControlCommand{Type: "explode"})
	sim.Step()
	if !errors.Is(got, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	viz := newRecordingVisualizer()
	sim := New(Config{Visualizer: viz, TickInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	sim.Submit(visual.Trigger(scenario.ReadHit))
	deadline := time.After(2 * time.Second)
	for viz.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("simulator published only %d frames", viz.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop after cancel")
	}
}

func TestRunWaitsForCommandsWhenIdle(t *testing.T) {
	viz := newRecordingVisualizer()
	var (
		mu   sync.Mutex
		logs []string
	)
	sim := New(Config{
		Visualizer:   viz,
		TickInterval: time.Hour,
		Logf: func(format string, args ...any) {
			mu.Lock()
			defer mu.Unlock()
			logs = append(logs, fmt.Sprintf(format, args...))
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	waitFor := func(what string, cond func() bool) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for !cond() {
			select {
			case <-deadline:
				cancel()
				t.Fatalf("timed out waiting for %s", what)
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
	waitFor("the idle frame", func() bool { return viz.count() == 1 })

	// the ticker never fires, so only the command wakes the loop
	viz.queue.Enqueue(visual.Trigger(scenario.ReadHit))
	waitFor("the running frame", func() bool {
		f := viz.last()
		return f != nil && f.State == engine.StateRunning
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop after cancel")
	}
	if sim.Ticks() != 2 || sim.Frames() != 2 {
		t.Fatalf("expected 2 ticks and 2 frames, got %d and %d", sim.Ticks(), sim.Frames())
	}
	mu.Lock()
	defer mu.Unlock()
	if last := logs[len(logs)-1]; last != "simulator stopped after 2 ticks, 2 frames" {
		t.Fatalf("unexpected stop message %q", last)
	}
}

func TestWaitAndHandleAnySource(t *testing.T) {
	first := visual.NewChannelCommandQueue(1)
	second := visual.NewChannelCommandQueue(1)
	var got []visual.ControlCommand
	loop := NewCommandLoop(func(cmd visual.ControlCommand) error {
		got = append(got, cmd)
		return nil
	}, nil, queueSource{q: first}, queueSource{q: second})

	second.Enqueue(visual.Trigger(scenario.Write))
	if !loop.WaitAndHandle(context.Background()) {
		t.Fatalf("command on the second source was not handled")
	}
	if len(got) != 1 || got[0].Scenario != scenario.Write {
		t.Fatalf("unexpected commands %+v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if loop.WaitAndHandle(ctx) {
		t.Fatalf("nothing queued, yet a command was handled")
	}
	if handled, failed := loop.Counts(); handled != 1 || failed != 0 {
		t.Fatalf("unexpected counts %d/%d", handled, failed)
	}
}

func TestScaledClock(t *testing.T) {
	wall := start
	clock := newScaledClock(4, func() time.Time { return wall })
	wall = wall.Add(time.Second)
	if got := clock.Now().Sub(start); got != 4*time.Second {
		t.Fatalf("expected 4s of scaled time, got %v", got)
	}
	if newScaledClock(0, time.Now).Speed() != 1 {
		t.Fatalf("non-positive speed should mean real time")
	}
}
