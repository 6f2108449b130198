package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Readm/backend_flow_sim/desktop"
	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/hooks"
	"github.com/Readm/backend_flow_sim/plugins/runmetrics"
	"github.com/Readm/backend_flow_sim/plugins/visualization"
	"github.com/Readm/backend_flow_sim/scenario"
	"github.com/Readm/backend_flow_sim/simulator"
	"github.com/Readm/backend_flow_sim/tui"
	"github.com/Readm/backend_flow_sim/visual"
)

// application holds the wired components for one process run.
type application struct {
	cfg      *Config
	out      io.Writer
	table    *scenario.Table
	broker   *hooks.PluginBroker
	registry *hooks.Registry
	stats    *runmetrics.Collector
	viz      visual.Visualizer
}

// resolveMode turns auto into a concrete mode.
func resolveMode(mode string, interactive bool) string {
	if mode != VisualModeAuto {
		return mode
	}
	if interactive {
		return VisualModeTUI
	}
	return VisualModeHeadless
}

// loadTable returns the built-in scenarios merged with the optional file.
func loadTable(path string) (*scenario.Table, error) {
	table := scenario.Builtin()
	if path == "" {
		return table, nil
	}
	n, err := scenario.LoadInto(table, path)
	if err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}
	GetLogger().Infof("Loaded %d scenarios from %s", n, path)
	return table, nil
}

// resolveScenarios maps user supplied names to ids. Empty or "all" selects
// every scenario in table order.
func resolveScenarios(table *scenario.Table, names []string) ([]scenario.ID, error) {
	if len(names) == 0 || (len(names) == 1 && strings.EqualFold(strings.TrimSpace(names[0]), "all")) {
		return table.IDs(), nil
	}
	ids := make([]scenario.ID, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, ok := table.Parse(name)
		if !ok {
			if guess, ok := table.Suggest(name); ok {
				return nil, fmt.Errorf("unknown scenario %q (did you mean %s?)", name, guess)
			}
			return nil, fmt.Errorf("unknown scenario %q (available: %s)", name, joinIDs(table.IDs()))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func joinIDs(ids []scenario.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func newApplication(cfg *Config, out io.Writer) (*application, error) {
	table, err := loadTable(cfg.ScenariosFile)
	if err != nil {
		return nil, err
	}

	broker := hooks.NewPluginBroker()
	app := &application{
		cfg:      cfg,
		out:      out,
		table:    table,
		broker:   broker,
		registry: hooks.NewRegistry(broker),
		stats:    runmetrics.NewCollector(),
	}

	if err := runmetrics.Register(app.registry, app.stats); err != nil {
		return nil, err
	}
	if err := app.registry.LoadGlobal([]string{runmetrics.PluginName}); err != nil {
		return nil, fmt.Errorf("load metrics plugin: %w", err)
	}

	if err := visualization.Register(app.registry, visualization.Options{
		Factories:     app.rendererFactories(),
		SetVisualizer: func(v visual.Visualizer) { app.viz = v },
	}); err != nil {
		return nil, err
	}
	if err := visualization.Load(app.registry, cfg.Visual.Mode); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *application) rendererFactories() map[string]visualization.Factory {
	cfg := a.cfg
	return map[string]visualization.Factory{
		VisualModeWeb: func() (visual.Visualizer, error) {
			return NewWebVisualizer(WebServerOptions{
				Addr:          cfg.Server.Addr,
				StaticDir:     cfg.Server.StaticDir,
				Table:         a.table,
				Stats:         a.stats,
				CommandBuffer: cfg.Simulation.CommandBuffer,
			})
		},
		VisualModeTUI: func() (visual.Visualizer, error) {
			return tui.New(tui.Options{
				CommandBuffer: cfg.Simulation.CommandBuffer,
				TargetFPS:     cfg.Visual.TargetFPS,
			}), nil
		},
		VisualModeDesktop: func() (visual.Visualizer, error) {
			v := desktop.NewFyneVisualizer(a.table, desktop.Options{CommandBuffer: cfg.Simulation.CommandBuffer})
			v.Initialize()
			return v, nil
		},
		VisualModeHeadless: func() (visual.Visualizer, error) {
			return NewConsoleVisualizer(a.out, isTerminal(a.out)), nil
		},
		VisualModeNone: func() (visual.Visualizer, error) {
			return visual.NewNullVisualizer(), nil
		},
	}
}

func (a *application) newSimulator(clock simulator.Clock) *simulator.Simulator {
	eng := engine.New(engine.Config{
		Table:  a.table,
		Timing: a.cfg.EngineTiming(),
		Broker: a.broker,
		OnHookError: func(err error) {
			GetLogger().Warnf("Hook error: %v", err)
		},
	})
	return simulator.New(simulator.Config{
		Engine:        eng,
		Visualizer:    a.viz,
		Clock:         clock,
		TickInterval:  a.cfg.Simulation.TickInterval,
		CommandBuffer: a.cfg.Simulation.CommandBuffer,
		OnCommandError: func(cmd visual.ControlCommand, err error) {
			if errors.Is(err, engine.ErrBusy) {
				a.stats.RecordRejected()
			}
			GetLogger().Warnf("Command %s rejected: %v", cmd.Type, err)
		},
		Logf: GetLogger().Debugf,
	})
}

// runHeadless plays the configured scenarios on a virtual clock and prints
// the summary.
func (a *application) runHeadless(ctx context.Context) error {
	ids, err := resolveScenarios(a.table, a.cfg.Simulation.Scenarios)
	if err != nil {
		return err
	}
	sim := a.newSimulator(simulator.NewManualClock(time.Now()))
	results, err := sim.RunScenarios(ctx, ids)
	fmt.Fprintln(a.out)
	PrintRunSummary(a.out, results, a.stats.Snapshot())
	return err
}

// runInteractive drives the simulator in real time until ctx is done or the
// renderer exits.
func (a *application) runInteractive(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sim := a.newSimulator(simulator.NewScaledClock(a.cfg.Simulation.Speed))
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	switch v := a.viz.(type) {
	case *tui.Dashboard:
		uiDone := make(chan struct{})
		go stopOnCancel(ctx, uiDone, v.Stop)
		err := v.Run()
		close(uiDone)
		cancel()
		if err != nil {
			<-done
			return fmt.Errorf("terminal dashboard: %w", err)
		}
	case *desktop.FyneVisualizer:
		uiDone := make(chan struct{})
		go stopOnCancel(ctx, uiDone, v.Close)
		v.ShowAndRun()
		close(uiDone)
		cancel()
	case *WebVisualizer:
		fmt.Fprintf(a.out, "Open http://%s in a browser (Ctrl+C to stop)\n", v.Server().Addr())
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		if err := v.Shutdown(shutdownCtx); err != nil {
			GetLogger().Warnf("Web server shutdown: %v", err)
		}
	default:
		<-ctx.Done()
	}

	if err := <-done; err != nil {
		return err
	}
	fmt.Fprint(a.out, a.stats.Snapshot().Summary())
	return nil
}

// stopOnCancel closes a blocking renderer when ctx ends first.
func stopOnCancel(ctx context.Context, uiDone <-chan struct{}, stop func()) {
	select {
	case <-ctx.Done():
		stop()
	case <-uiDone:
	}
}
