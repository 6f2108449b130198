package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/Readm/backend_flow_sim/simulator"
)

func TestParseConfigAppliesProfileThenKeys(t *testing.T) {
	g := NewWithT(t)

	cfg, err := ParseConfig([]byte(`
profile: slow_motion
visual:
  mode: tui
timing:
  travel: 1s
  error_flash: 750ms
logging:
  level: debug
`))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Profile).To(Equal("slow_motion"))
	g.Expect(cfg.Simulation.Speed).To(Equal(0.25))
	g.Expect(cfg.Visual.Mode).To(Equal(VisualModeTUI))
	g.Expect(cfg.Timing.Travel).To(Equal(time.Second))
	g.Expect(cfg.Timing.ErrorFlash).To(Equal(750 * time.Millisecond))
	g.Expect(cfg.Timing.ProcessFlash).To(Equal(600 * time.Millisecond))
	g.Expect(cfg.Server.Addr).To(Equal(DefaultServerAddr))

	timing := cfg.EngineTiming()
	g.Expect(timing.Travel).To(Equal(time.Second))
	g.Expect(timing.Gap).To(BeZero())
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	g := NewWithT(t)

	_, err := ParseConfig([]byte("server:\n  port: 80\n"))
	g.Expect(err).To(MatchError(ContainSubstring("port")))

	_, err = ParseConfig([]byte("profile: turbo\n"))
	g.Expect(err).To(MatchError(ContainSubstring(`unknown profile "turbo"`)))
}

func TestParseConfigEmptyDocument(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("empty document: %v", err)
	}
	if cfg.Visual.Mode != VisualModeWeb || cfg.Simulation.TickInterval != simulator.DefaultTickInterval {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	if err := os.WriteFile(path, []byte("scenarios_file: extra.yaml\nsimulation:\n  speed: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ScenariosFile != "extra.yaml" || cfg.Simulation.Speed != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"mode is case insensitive", func(c *Config) { c.Visual.Mode = " Desktop " }, ""},
		{"unknown mode", func(c *Config) { c.Visual.Mode = "vr" }, "visual.mode"},
		{"negative tick", func(c *Config) { c.Simulation.TickInterval = -time.Millisecond }, "simulation.tick_interval"},
		{"negative speed", func(c *Config) { c.Simulation.Speed = -1 }, "simulation.speed"},
		{"negative buffer", func(c *Config) { c.Simulation.CommandBuffer = -1 }, "simulation.command_buffer"},
		{"negative travel", func(c *Config) { c.Timing.Travel = -time.Second }, "timing.travel"},
		{"negative error flash", func(c *Config) { c.Timing.ErrorFlash = -time.Second }, "timing.error_flash"},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateConfigFillsDefaults(t *testing.T) {
	cfg := &Config{}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
	if cfg.Visual.Mode != VisualModeWeb {
		t.Errorf("mode = %q", cfg.Visual.Mode)
	}
	if cfg.Simulation.TickInterval != simulator.DefaultTickInterval || cfg.Simulation.Speed != 1 {
		t.Errorf("simulation defaults not applied: %+v", cfg.Simulation)
	}
	if cfg.Simulation.CommandBuffer != DefaultCommandBuffer || cfg.Visual.TargetFPS != DefaultTargetFPS {
		t.Errorf("buffer/fps defaults not applied")
	}
	if cfg.Server.Addr != DefaultServerAddr || cfg.Server.StaticDir != DefaultStaticDir || cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("server/logging defaults not applied")
	}
	if err := ValidateConfig(nil); err == nil {
		t.Errorf("nil config must be rejected")
	}
}

func TestProfiles(t *testing.T) {
	g := NewWithT(t)

	g.Expect(ProfileNames()).To(Equal([]string{"classroom", "fast", "slow_motion"}))
	g.Expect(GetConfigByName("fast").Simulation.Speed).To(Equal(2.0))
	g.Expect(GetConfigByName("CLASSROOM").Timing.Gap).To(Equal(400 * time.Millisecond))
	g.Expect(GetConfigByName("warp")).To(BeNil())
	for _, name := range ProfileNames() {
		g.Expect(ValidateConfig(GetConfigByName(name))).To(Succeed(), name)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{"": LogLevelInfo, "ERROR": LogLevelError, "warning": LogLevelWarn, "debug": LogLevelDebug}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Errorf("expected error for unknown level")
	}
}

func TestConfigureLoggerWritesFile(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	path := filepath.Join(t.TempDir(), "flow.log")
	closer, err := ConfigureLogger(LoggingConfig{Level: "warn", File: path}, nil)
	if err != nil {
		t.Fatalf("ConfigureLogger: %v", err)
	}
	GetLogger().Infof("hidden")
	GetLogger().Warnf("visible %d", 42)
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "[FLOW] ") || !strings.Contains(string(data), "visible 42") {
		t.Fatalf("unexpected log file contents %q", data)
	}
}
