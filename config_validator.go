package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Readm/backend_flow_sim/simulator"
)

var validModes = map[string]bool{
	VisualModeWeb:      true,
	VisualModeTUI:      true,
	VisualModeDesktop:  true,
	VisualModeHeadless: true,
	VisualModeNone:     true,
	VisualModeAuto:     true,
}

// ValidateConfig applies structural checks to Config and populates defaults where required.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Visual.Mode = strings.ToLower(strings.TrimSpace(cfg.Visual.Mode))
	if cfg.Visual.Mode == "" {
		cfg.Visual.Mode = VisualModeWeb
	}
	if !validModes[cfg.Visual.Mode] {
		return fmt.Errorf("visual.mode must be one of web|tui|desktop|headless|none|auto, got %q", cfg.Visual.Mode)
	}

	if cfg.Simulation.TickInterval < 0 {
		return fmt.Errorf("simulation.tick_interval must be non-negative, got %v", cfg.Simulation.TickInterval)
	}
	if cfg.Simulation.Speed < 0 {
		return fmt.Errorf("simulation.speed must be non-negative, got %.3f", cfg.Simulation.Speed)
	}
	if cfg.Simulation.CommandBuffer < 0 {
		return fmt.Errorf("simulation.command_buffer must be non-negative, got %d", cfg.Simulation.CommandBuffer)
	}
	if cfg.Visual.TargetFPS < 0 {
		return fmt.Errorf("visual.target_fps must be non-negative, got %d", cfg.Visual.TargetFPS)
	}

	timings := []struct {
		key string
		val int64
	}{
		{"timing.travel", int64(cfg.Timing.Travel)},
		{"timing.gap", int64(cfg.Timing.Gap)},
		{"timing.process_flash", int64(cfg.Timing.ProcessFlash)},
		{"timing.success_flash", int64(cfg.Timing.SuccessFlash)},
		{"timing.error_flash", int64(cfg.Timing.ErrorFlash)},
		{"timing.side_effect_flash", int64(cfg.Timing.SideEffectFlash)},
	}
	for _, t := range timings {
		if t.val < 0 {
			return fmt.Errorf("%s must be non-negative", t.key)
		}
	}

	if _, err := ParseLogLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if cfg.Simulation.TickInterval == 0 {
		cfg.Simulation.TickInterval = simulator.DefaultTickInterval
	}
	if cfg.Simulation.Speed == 0 {
		cfg.Simulation.Speed = 1
	}
	if cfg.Simulation.CommandBuffer == 0 {
		cfg.Simulation.CommandBuffer = DefaultCommandBuffer
	}
	if cfg.Visual.TargetFPS == 0 {
		cfg.Visual.TargetFPS = DefaultTargetFPS
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = DefaultStaticDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}

	return nil
}
