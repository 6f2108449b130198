package runmetrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Readm/backend_flow_sim/core"
	"github.com/Readm/backend_flow_sim/hooks"
)

// PluginName is the registry name of the collector plugin.
const PluginName = "instrumentation/runmetrics"

// Stats is a point-in-time copy of the collected counters.
type Stats struct {
	RunsStarted      uint64            `json:"runsStarted"`
	RunsCompleted    uint64            `json:"runsCompleted"`
	RunsAborted      uint64            `json:"runsAborted"`
	StepsPlayed      uint64            `json:"stepsPlayed"`
	PacketsDelivered uint64            `json:"packetsDelivered"`
	ErrorSteps       uint64            `json:"errorSteps"`
	Flashes          uint64            `json:"flashes"`
	LogEntries       uint64            `json:"logEntries"`
	TriggersRejected uint64            `json:"triggersRejected"`
	PerScenario      map[string]uint64 `json:"perScenario"`
	LastScenario     string            `json:"lastScenario,omitempty"`
	LastRunDuration  time.Duration     `json:"lastRunDurationNs"`
	LastRunAt        *time.Time        `json:"lastRunAt,omitempty"`
}

// Collector counts flow events delivered through the hook broker. It is safe
// for concurrent use.
type Collector struct {
	mu sync.Mutex
	s  Stats
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{s: Stats{PerScenario: make(map[string]uint64)}}
}

// Install registers the collector's hooks on broker.
func (c *Collector) Install(broker *hooks.PluginBroker) error {
	if broker == nil {
		return fmt.Errorf("plugin broker is nil")
	}
	broker.RegisterBundle(Descriptor(), c.Bundle())
	return nil
}

// Descriptor describes the collector plugin.
func Descriptor() hooks.PluginDescriptor {
	return hooks.PluginDescriptor{
		Name:        PluginName,
		Category:    hooks.PluginCategoryInstrumentation,
		Description: "run, step and packet counters",
	}
}

// Register makes the collector loadable by name from reg.
func Register(reg *hooks.Registry, c *Collector) error {
	if reg == nil {
		return fmt.Errorf("registry is nil")
	}
	return reg.RegisterGlobal(PluginName, Descriptor(), c.Install)
}

// Bundle returns the hook handlers feeding the collector.
func (c *Collector) Bundle() hooks.HookBundle {
	return hooks.HookBundle{
		RunStarted: []hooks.RunHook{func(ctx *hooks.RunContext) error {
			c.update(func(s *Stats) {
				s.RunsStarted++
				s.PerScenario[ctx.Scenario]++
				s.LastScenario = ctx.Scenario
			})
			return nil
		}},
		RunCompleted: []hooks.RunHook{func(ctx *hooks.RunContext) error {
			c.update(func(s *Stats) {
				s.RunsCompleted++
				s.LastRunDuration = ctx.Elapsed
				s.LastRunAt = timePtr(ctx.At)
			})
			return nil
		}},
		RunAborted: []hooks.RunHook{func(ctx *hooks.RunContext) error {
			c.update(func(s *Stats) {
				s.RunsAborted++
				s.LastRunAt = timePtr(ctx.At)
			})
			return nil
		}},
		StepStarted: []hooks.StepHook{func(ctx *hooks.StepContext) error {
			c.update(func(s *Stats) {
				s.StepsPlayed++
				if ctx.Step.IsError() {
					s.ErrorSteps++
				}
			})
			return nil
		}},
		PacketArrived: []hooks.PacketHook{func(*hooks.PacketContext) error {
			c.update(func(s *Stats) { s.PacketsDelivered++ })
			return nil
		}},
		NodeFlashed: []hooks.FlashHook{func(ctx *hooks.FlashContext) error {
			if ctx.Flash.Kind != core.FlashNone {
				c.update(func(s *Stats) { s.Flashes++ })
			}
			return nil
		}},
		LogAppended: []hooks.LogHook{func(*hooks.LogContext) error {
			c.update(func(s *Stats) { s.LogEntries++ })
			return nil
		}},
	}
}

func timePtr(t time.Time) *time.Time { return &t }

// RecordRejected counts a trigger refused because a run was active.
func (c *Collector) RecordRejected() {
	c.update(func(s *Stats) { s.TriggersRejected++ })
}

// Snapshot returns a copy of the counters.
func (c *Collector) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.s
	out.PerScenario = make(map[string]uint64, len(c.s.PerScenario))
	for k, v := range c.s.PerScenario {
		out.PerScenario[k] = v
	}
	return out
}

// Summary renders the counters as a short human readable block.
func (s Stats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "runs: %s started, %s completed, %s aborted\n",
		humanize.Comma(int64(s.RunsStarted)), humanize.Comma(int64(s.RunsCompleted)), humanize.Comma(int64(s.RunsAborted)))
	fmt.Fprintf(&b, "steps: %s played (%s errors), %s packets delivered, %s flashes\n",
		humanize.Comma(int64(s.StepsPlayed)), humanize.Comma(int64(s.ErrorSteps)),
		humanize.Comma(int64(s.PacketsDelivered)), humanize.Comma(int64(s.Flashes)))
	fmt.Fprintf(&b, "log entries: %s, rejected triggers: %s\n",
		humanize.Comma(int64(s.LogEntries)), humanize.Comma(int64(s.TriggersRejected)))
	if s.LastScenario != "" {
		fmt.Fprintf(&b, "last run: %s in %s\n", s.LastScenario, s.LastRunDuration)
	}

	names := make([]string, 0, len(s.PerScenario))
	for name := range s.PerScenario {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n := s.PerScenario[name]
		fmt.Fprintf(&b, "  %-12s %s run%s\n", name, humanize.Comma(int64(n)), plural(n))
	}
	return b.String()
}

func (c *Collector) update(fn func(*Stats)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

func plural(n uint64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
