package visualization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Readm/backend_flow_sim/hooks"
	"github.com/Readm/backend_flow_sim/visual"
)

// Factory creates a visualizer instance.
type Factory func() (visual.Visualizer, error)

// Options configure visualization plugin registration.
type Options struct {
	Factories     map[string]Factory
	SetVisualizer func(visual.Visualizer)
}

// Register registers one visualization plugin per renderer mode.
func Register(reg *hooks.Registry, opts Options) error {
	if reg == nil {
		return fmt.Errorf("registry is nil")
	}
	if opts.SetVisualizer == nil {
		return fmt.Errorf("SetVisualizer callback is required")
	}
	modes := make([]string, 0, len(opts.Factories))
	for mode, factory := range opts.Factories {
		if factory != nil {
			modes = append(modes, mode)
		}
	}
	sort.Strings(modes)

	for _, mode := range modes {
		factory := opts.Factories[mode]
		name := PluginName(mode)
		desc := hooks.PluginDescriptor{
			Name:        name,
			Category:    hooks.PluginCategoryVisualization,
			Description: fmt.Sprintf("%s renderer", mode),
		}
		if err := reg.RegisterGlobal(name, desc, func(*hooks.PluginBroker) error {
			visualizer, err := factory()
			if err != nil {
				return fmt.Errorf("%s renderer: %w", mode, err)
			}
			opts.SetVisualizer(visualizer)
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// Load activates the renderer registered for mode.
func Load(reg *hooks.Registry, mode string) error {
	name := PluginName(mode)
	if _, ok := reg.Descriptor(name); !ok {
		return fmt.Errorf("unknown visual mode %q (available: %s)", mode, strings.Join(Modes(reg), ", "))
	}
	return reg.LoadGlobal([]string{name})
}

// Modes lists the renderer modes known to reg.
func Modes(reg *hooks.Registry) []string {
	var out []string
	for _, name := range reg.Names() {
		if mode, ok := strings.CutPrefix(name, prefix); ok {
			out = append(out, mode)
		}
	}
	return out
}

const prefix = "visualization/"

// PluginName returns the registry name of a renderer mode.
func PluginName(mode string) string {
	return prefix + strings.ToLower(mode)
}
