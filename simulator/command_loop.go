package simulator

import (
	"context"

	"github.com/Readm/backend_flow_sim/visual"
)

// CommandSource provides control commands from an external producer.
type CommandSource interface {
	NextCommand() (visual.ControlCommand, bool)
	WaitCommand(context.Context) (visual.ControlCommand, bool)
}

// CommandHandlerFunc applies one command.
type CommandHandlerFunc func(visual.ControlCommand) error

// CommandLoop drains control commands from its sources and dispatches them.
// Handler errors are reported to onErr and never stop the loop.
type CommandLoop struct {
	sources []CommandSource
	handle  CommandHandlerFunc
	onErr   func(visual.ControlCommand, error)

	handled uint64
	failed  uint64
}

// NewCommandLoop creates a command loop over the given sources. Nil sources
// are skipped.
func NewCommandLoop(handle CommandHandlerFunc, onErr func(visual.ControlCommand, error), sources ...CommandSource) *CommandLoop {
	loop := &CommandLoop{handle: handle, onErr: onErr}
	for _, src := range sources {
		if src != nil {
			loop.sources = append(loop.sources, src)
		}
	}
	return loop
}

// DrainPending handles every command currently available, source by source,
// and returns how many were handled.
func (c *CommandLoop) DrainPending() int {
	if c == nil || c.handle == nil {
		return 0
	}
	n := 0
	for _, src := range c.sources {
		for {
			cmd, ok := src.NextCommand()
			if !ok {
				break
			}
			c.dispatch(cmd)
			n++
		}
	}
	return n
}

// WaitAndHandle blocks until any source yields a command or ctx is done.
// Every source is waited on concurrently; commands that arrive while the
// others are being cancelled are handled too, in arrival order. It reports
// whether a command was handled.
func (c *CommandLoop) WaitAndHandle(ctx context.Context) bool {
	if c == nil || c.handle == nil || len(c.sources) == 0 {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan waitResult, len(c.sources))
	for _, src := range c.sources {
		go func(src CommandSource) {
			cmd, ok := src.WaitCommand(ctx)
			results <- waitResult{cmd: cmd, ok: ok}
		}(src)
	}

	handled := false
	for range c.sources {
		r := <-results
		cancel()
		if r.ok {
			c.dispatch(r.cmd)
			handled = true
		}
	}
	return handled
}

type waitResult struct {
	cmd visual.ControlCommand
	ok  bool
}

// Counts returns handled and failed command totals.
func (c *CommandLoop) Counts() (handled, failed uint64) {
	return c.handled, c.failed
}

func (c *CommandLoop) dispatch(cmd visual.ControlCommand) {
	c.handled++
	if err := c.handle(cmd); err != nil {
		c.failed++
		if c.onErr != nil {
			c.onErr(cmd, err)
		}
	}
}

// queueSource exposes a CommandQueue as a CommandSource.
type queueSource struct {
	q visual.CommandQueue
}

func (s queueSource) NextCommand() (visual.ControlCommand, bool) {
	return s.q.TryDequeue()
}

func (s queueSource) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	return s.q.Next(ctx)
}
