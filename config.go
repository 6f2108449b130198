package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Readm/backend_flow_sim/engine"
	"github.com/Readm/backend_flow_sim/simulator"
)

// Visual modes accepted by visual.mode.
const (
	VisualModeWeb      = "web"
	VisualModeTUI      = "tui"
	VisualModeDesktop  = "desktop"
	VisualModeHeadless = "headless"
	VisualModeNone     = "none"
	// VisualModeAuto picks tui on an interactive terminal, headless otherwise.
	VisualModeAuto = "auto"
)

// Defaults
const (
	DefaultServerAddr    = "127.0.0.1:8080"
	DefaultStaticDir     = "web/static"
	DefaultCommandBuffer = 64
	DefaultTargetFPS     = 30
	DefaultLogLevel      = "info"
)

// Config is the full runtime configuration. It is read from YAML and then
// overridden by command-line flags.
type Config struct {
	Profile       string           `yaml:"profile"`
	Server        ServerConfig     `yaml:"server"`
	Visual        VisualConfig     `yaml:"visual"`
	Simulation    SimulationConfig `yaml:"simulation"`
	Timing        TimingConfig     `yaml:"timing"`
	ScenariosFile string           `yaml:"scenarios_file"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the web renderer.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// VisualConfig selects the renderer.
type VisualConfig struct {
	Mode      string `yaml:"mode"`
	TargetFPS int    `yaml:"target_fps"`
}

// SimulationConfig configures the driver loop.
type SimulationConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval"`
	Speed         float64       `yaml:"speed"`
	CommandBuffer int           `yaml:"command_buffer"`
	// Scenarios lists the scenarios played in headless mode; empty means all.
	Scenarios []string `yaml:"scenarios"`
}

// TimingConfig overrides the choreography durations. Zero keeps the default.
type TimingConfig struct {
	Travel          time.Duration `yaml:"travel"`
	Gap             time.Duration `yaml:"gap"`
	ProcessFlash    time.Duration `yaml:"process_flash"`
	SuccessFlash    time.Duration `yaml:"success_flash"`
	ErrorFlash      time.Duration `yaml:"error_flash"`
	SideEffectFlash time.Duration `yaml:"side_effect_flash"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      DefaultServerAddr,
			StaticDir: DefaultStaticDir,
		},
		Visual: VisualConfig{
			Mode:      VisualModeWeb,
			TargetFPS: DefaultTargetFPS,
		},
		Simulation: SimulationConfig{
			TickInterval:  simulator.DefaultTickInterval,
			Speed:         1,
			CommandBuffer: DefaultCommandBuffer,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are
// rejected.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig. A named profile is
// applied first so explicit keys in the document still win.
func ParseConfig(data []byte) (*Config, error) {
	var probe struct {
		Profile string `yaml:"profile"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if probe.Profile != "" {
		if err := ApplyProfile(cfg, probe.Profile); err != nil {
			return nil, err
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// EngineTiming converts the timing overrides for the engine.
func (c *Config) EngineTiming() engine.Timing {
	return engine.Timing{
		Travel:          c.Timing.Travel,
		Gap:             c.Timing.Gap,
		ProcessFlash:    c.Timing.ProcessFlash,
		SuccessFlash:    c.Timing.SuccessFlash,
		ErrorFlash:      c.Timing.ErrorFlash,
		SideEffectFlash: c.Timing.SideEffectFlash,
	}
}

// Print displays the effective configuration.
func (c *Config) Print(w io.Writer) {
	if c.Profile != "" {
		fmt.Fprintf(w, "Profile: %s\n", c.Profile)
	}
	fmt.Fprintf(w, "Mode: %s\n", c.Visual.Mode)
	if c.Visual.Mode == VisualModeWeb {
		fmt.Fprintf(w, "Server: http://%s (static %s)\n", c.Server.Addr, c.Server.StaticDir)
	}
	fmt.Fprintf(w, "Tick: %v, speed %.2fx\n", c.Simulation.TickInterval, c.Simulation.Speed)
	if c.ScenariosFile != "" {
		fmt.Fprintf(w, "Scenarios file: %s\n", c.ScenariosFile)
	}
}
