package main

import (
	"fmt"
	"strings"
	"time"
)

// PredefinedProfile is a named set of settings selectable with -profile or
// the profile key of the config file.
type PredefinedProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	apply       func(cfg *Config)
}

// GetPredefinedProfiles returns all available profiles.
func GetPredefinedProfiles() []PredefinedProfile {
	return []PredefinedProfile{
		{
			Name:        "classroom",
			Description: "Web frontend at real-time speed with a longer pause between steps for narration",
			apply: func(cfg *Config) {
				cfg.Visual.Mode = VisualModeWeb
				cfg.Server.Addr = "0.0.0.0:8080"
				cfg.Simulation.Speed = 1
				cfg.Timing.Gap = 400 * time.Millisecond
			},
		},
		{
			Name:        "fast",
			Description: "Double speed playback for quick demos",
			apply: func(cfg *Config) {
				cfg.Simulation.Speed = 2
			},
		},
		{
			Name:        "slow_motion",
			Description: "Quarter speed with longer flashes so every highlight is visible",
			apply: func(cfg *Config) {
				cfg.Simulation.Speed = 0.25
				cfg.Timing.ProcessFlash = 600 * time.Millisecond
				cfg.Timing.SuccessFlash = 600 * time.Millisecond
				cfg.Timing.ErrorFlash = time.Second
			},
		},
	}
}

// ApplyProfile applies a predefined profile by name to cfg.
func ApplyProfile(cfg *Config, name string) error {
	for _, p := range GetPredefinedProfiles() {
		if strings.EqualFold(p.Name, name) {
			p.apply(cfg)
			cfg.Profile = p.Name
			return nil
		}
	}
	return fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
}

// GetConfigByName returns DefaultConfig with the named profile applied, or
// nil if there is no such profile.
func GetConfigByName(name string) *Config {
	cfg := DefaultConfig()
	if err := ApplyProfile(cfg, name); err != nil {
		return nil
	}
	return cfg
}

// ProfileNames lists profile names in declaration order.
func ProfileNames() []string {
	profiles := GetPredefinedProfiles()
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}
