package tui

import (
	"sync"
	"time"

	"github.com/rivo/tview"
)

// frameScheduler coalesces UI updates and caps the draw rate. Updates
// scheduled under the same id between two frames collapse into the latest.
type frameScheduler struct {
	app       *tview.Application
	mu        sync.Mutex
	pending   map[string]func()
	frameTime time.Duration
	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

func newFrameScheduler(app *tview.Application, targetFPS int) *frameScheduler {
	if targetFPS <= 0 {
		targetFPS = 30
	}
	return &frameScheduler{
		app:       app,
		pending:   make(map[string]func()),
		frameTime: time.Second / time.Duration(targetFPS),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (f *frameScheduler) Start() {
	go f.run()
}

func (f *frameScheduler) Stop() {
	f.stopOnce.Do(func() { close(f.quit) })
	select {
	case <-f.done:
	case <-time.After(100 * time.Millisecond):
	}
}

func (f *frameScheduler) Schedule(id string, fn func()) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.pending[id] = fn
	f.mu.Unlock()
}

func (f *frameScheduler) run() {
	defer close(f.done)
	ticker := time.NewTicker(f.frameTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f.flush()
		case <-f.quit:
			return
		}
	}
}

// take removes and returns every pending update.
func (f *frameScheduler) take() []func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil
	}
	batch := make([]func(), 0, len(f.pending))
	for id, fn := range f.pending {
		batch = append(batch, fn)
		delete(f.pending, id)
	}
	return batch
}

func (f *frameScheduler) flush() {
	batch := f.take()
	if len(batch) == 0 {
		return
	}
	f.app.QueueUpdateDraw(func() {
		for _, fn := range batch {
			fn()
		}
	})
}
