package hooks

import (
	"sync"
	"time"

	"github.com/Readm/backend_flow_sim/core"
)

// PluginCategory represents the high-level role of a plugin.
type PluginCategory string

const (
	// PluginCategoryVisualization covers renderers and frontends.
	PluginCategoryVisualization PluginCategory = "visualization"
	// PluginCategoryInstrumentation covers metrics, tracing, and diagnostics.
	PluginCategoryInstrumentation PluginCategory = "instrumentation"
)

// PluginDescriptor describes a plugin registered with the broker.
type PluginDescriptor struct {
	Name        string
	Category    PluginCategory
	Description string
}

// RunContext is passed to run lifecycle hooks.
type RunContext struct {
	RunID     string
	Scenario  string
	StepCount int
	At        time.Time
	Elapsed   time.Duration // zero on start
}

// StepContext is passed when a step begins.
type StepContext struct {
	RunID string
	Index int
	Step  core.FlowStep
	At    time.Time
}

// PacketContext is passed when a packet departs or arrives.
type PacketContext struct {
	RunID  string
	Index  int
	Packet core.Packet
	At     time.Time
}

// FlashContext is passed whenever a node highlight is written.
type FlashContext struct {
	RunID string
	Flash core.Flash
	At    time.Time
}

// LogContext is passed when a log entry is appended.
type LogContext struct {
	RunID string
	Entry core.LogEntry
}

type RunHook func(ctx *RunContext) error
type StepHook func(ctx *StepContext) error
type PacketHook func(ctx *PacketContext) error
type FlashHook func(ctx *FlashContext) error
type LogHook func(ctx *LogContext) error

// HookBundle groups multiple hook handlers that belong to one plugin.
type HookBundle struct {
	RunStarted    []RunHook
	RunCompleted  []RunHook
	RunAborted    []RunHook
	StepStarted   []StepHook
	PacketSpawned []PacketHook
	PacketArrived []PacketHook
	NodeFlashed   []FlashHook
	LogAppended   []LogHook
}

// PluginBroker coordinates hook registration and triggering.
type PluginBroker struct {
	mu sync.RWMutex

	runStarted    []RunHook
	runCompleted  []RunHook
	runAborted    []RunHook
	stepStarted   []StepHook
	packetSpawned []PacketHook
	packetArrived []PacketHook
	nodeFlashed   []FlashHook
	logAppended   []LogHook

	pluginCatalog map[PluginCategory][]PluginDescriptor
	pluginIndex   map[string]PluginDescriptor
}

// NewPluginBroker creates an empty broker instance.
func NewPluginBroker() *PluginBroker {
	return &PluginBroker{
		pluginCatalog: make(map[PluginCategory][]PluginDescriptor),
		pluginIndex:   make(map[string]PluginDescriptor),
	}
}

// RegisterBundle registers a plugin descriptor together with all hook handlers.
func (p *PluginBroker) RegisterBundle(desc PluginDescriptor, bundle HookBundle) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registerDescriptorLocked(desc)

	p.runStarted = append(p.runStarted, bundle.RunStarted...)
	p.runCompleted = append(p.runCompleted, bundle.RunCompleted...)
	p.runAborted = append(p.runAborted, bundle.RunAborted...)
	p.stepStarted = append(p.stepStarted, bundle.StepStarted...)
	p.packetSpawned = append(p.packetSpawned, bundle.PacketSpawned...)
	p.packetArrived = append(p.packetArrived, bundle.PacketArrived...)
	p.nodeFlashed = append(p.nodeFlashed, bundle.NodeFlashed...)
	p.logAppended = append(p.logAppended, bundle.LogAppended...)
}

// RegisterPluginMetadata stores plugin metadata without registering hooks.
func (p *PluginBroker) RegisterPluginMetadata(desc PluginDescriptor) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registerDescriptorLocked(desc)
}

// emit runs a snapshot of handlers, stopping at the first error.
func emit[H ~func(*C) error, C any](p *PluginBroker, handlers *[]H, ctx *C) error {
	if p == nil || ctx == nil {
		return nil
	}
	p.mu.RLock()
	snapshot := make([]H, len(*handlers))
	copy(snapshot, *handlers)
	p.mu.RUnlock()
	for _, h := range snapshot {
		if err := h(ctx); err != nil {
			return err
		}
	}
	return nil
}

// EmitRunStarted triggers run start hooks.
func (p *PluginBroker) EmitRunStarted(ctx *RunContext) error {
	if p == nil {
		return nil
	}
	return emit(p, &p.runStarted, ctx)
}

// EmitRunCompleted triggers run completion hooks.
func (p *PluginBroker) EmitRunCompleted(ctx *RunContext) error {
	if p == nil {
		return nil
	}
	return emit(p, &p.runCompleted, ctx)
}

// EmitRunAborted triggers hooks for runs stopped by a reset.
func (p *PluginBroker) EmitRunAborted(ctx *RunContext) error {
	if p == nil {
		return nil
	}
	return emit(p, &p.runAborted, ctx)
}

// EmitStepStarted triggers step start hooks.
func (p *PluginBroker) EmitStepStarted(ctx *StepContext) error {
	if p == nil {
		return nil
	}
	return emit(p, &p.stepStarted, ctx)
}

// EmitPacketSpawned triggers hooks for a departing packet.
func (p *PluginBroker) EmitPacketSpawned(ctx *PacketContext) error {
	if p == nil {
		return nil
	}
	return emit(p, &p.packetSpawned, ctx)
}

// EmitPacketArrived triggers hooks for a packet reaching its destination.
func (p *PluginBroker) EmitPacketArrived(ctx *PacketContext) error {
	if p == nil {
		return nil
	}
	return emit(p, &p.packetArrived, ctx)
}

// EmitNodeFlashed triggers flash hooks.
func (p *PluginBroker) EmitNodeFlashed(ctx *FlashContext) error {
	if p == nil {
		return nil
	}
	return emit(p, &p.nodeFlashed, ctx)
}

// EmitLogAppended triggers log hooks.
func (p *PluginBroker) EmitLogAppended(ctx *LogContext) error {
	if p == nil {
		return nil
	}
	return emit(p, &p.logAppended, ctx)
}

// ListPlugins returns descriptors for plugins in the requested category.
func (p *PluginBroker) ListPlugins(category PluginCategory) []PluginDescriptor {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	catalog := p.pluginCatalog[category]
	if len(catalog) == 0 {
		return nil
	}
	out := make([]PluginDescriptor, len(catalog))
	copy(out, catalog)
	return out
}

// ListAllPlugins returns descriptors of every registered plugin.
func (p *PluginBroker) ListAllPlugins() []PluginDescriptor {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]PluginDescriptor, 0, len(p.pluginIndex))
	for _, desc := range p.pluginIndex {
		out = append(out, desc)
	}
	return out
}

func (p *PluginBroker) registerDescriptorLocked(desc PluginDescriptor) {
	if desc.Name == "" {
		return
	}
	if _, exists := p.pluginIndex[desc.Name]; exists {
		return
	}
	p.pluginIndex[desc.Name] = desc
	category := desc.Category
	p.pluginCatalog[category] = append(p.pluginCatalog[category], desc)
}
