package simulator

import (
	"sync"
	"time"
)

// Clock is the simulator's source of time. The engine never reads the wall
// clock itself.
type Clock interface {
	Now() time.Time
}

// ScaledClock runs at speed times wall time from the moment it is created.
type ScaledClock struct {
	start time.Time
	speed float64
	wall  func() time.Time
}

// NewScaledClock returns a wall clock multiplied by speed. Non-positive
// speeds mean wall time.
func NewScaledClock(speed float64) *ScaledClock {
	return newScaledClock(speed, time.Now)
}

func newScaledClock(speed float64, wall func() time.Time) *ScaledClock {
	if speed <= 0 {
		speed = 1
	}
	return &ScaledClock{start: wall(), speed: speed, wall: wall}
}

// Speed returns the time multiplier.
func (c *ScaledClock) Speed() float64 { return c.speed }

func (c *ScaledClock) Now() time.Time {
	now := c.wall()
	if c.speed == 1 {
		return now
	}
	elapsed := now.Sub(c.start)
	return c.start.Add(time.Duration(float64(elapsed) * c.speed))
}

// ManualClock only moves when told to. Headless runs and tests use it as a
// virtual clock.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a virtual clock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
