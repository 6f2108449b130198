package main

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// metricsCollector reports renderer throughput: frames published and
// control commands accepted or refused for a full queue.
type metricsCollector struct {
	mu             sync.Mutex
	interval       time.Duration
	frameCount     int
	commands       int
	queueFull      int
	lastReportTime time.Time
	now            func() time.Time
}

func newMetricsCollector(interval time.Duration) *metricsCollector {
	return &metricsCollector{
		interval:       interval,
		lastReportTime: time.Now(),
		now:            time.Now,
	}
}

func (m *metricsCollector) RecordFrames(count int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.frameCount += count
	m.emitIfNeeded()
	m.mu.Unlock()
}

func (m *metricsCollector) RecordCommand() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.commands++
	m.emitIfNeeded()
	m.mu.Unlock()
}

func (m *metricsCollector) RecordQueueFull() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.queueFull++
	m.emitIfNeeded()
	m.mu.Unlock()
}

func (m *metricsCollector) emitIfNeeded() {
	now := m.now()
	if now.Sub(m.lastReportTime) < m.interval {
		return
	}
	duration := now.Sub(m.lastReportTime).Seconds()
	throughput := float64(m.frameCount)
	if duration > 0 {
		throughput = throughput / duration
	}
	GetLogger().Infof("Throughput %s frames/s, %s commands, %s refused (queue full)",
		humanize.FormatFloat("#,###.#", throughput), humanize.Comma(int64(m.commands)), humanize.Comma(int64(m.queueFull)))
	m.frameCount = 0
	m.commands = 0
	m.queueFull = 0
	m.lastReportTime = now
}

var metrics = newMetricsCollector(5 * time.Second)
