package visual

import "context"

// CommandQueue abstracts command delivery to the simulator.
type CommandQueue interface {
	Enqueue(cmd ControlCommand) bool
	TryDequeue() (ControlCommand, bool)
	Next(ctx context.Context) (ControlCommand, bool)
	Len() int
}

type channelCommandQueue struct {
	ch chan ControlCommand
}

// NewChannelCommandQueue returns a bounded queue. Enqueue fails instead of
// blocking once buffer commands are pending.
func NewChannelCommandQueue(buffer int) CommandQueue {
	if buffer <= 0 {
		buffer = 1
	}
	return &channelCommandQueue{ch: make(chan ControlCommand, buffer)}
}

func (q *channelCommandQueue) Enqueue(cmd ControlCommand) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		return false
	}
}

func (q *channelCommandQueue) TryDequeue() (ControlCommand, bool) {
	select {
	case cmd := <-q.ch:
		return cmd, true
	default:
		return ControlCommand{Type: CommandNone}, false
	}
}

func (q *channelCommandQueue) Next(ctx context.Context) (ControlCommand, bool) {
	select {
	case cmd := <-q.ch:
		return cmd, true
	case <-ctx.Done():
		return ControlCommand{Type: CommandNone}, false
	}
}

func (q *channelCommandQueue) Len() int {
	return len(q.ch)
}
