package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "flow_sim: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, builds the configuration and runs the selected mode.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("flow_sim", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		configPath    = fs.String("config", "", "YAML configuration file")
		profile       = fs.String("profile", "", "Predefined profile ("+strings.Join(ProfileNames(), ", ")+")")
		mode          = fs.String("mode", "", "Visual mode: web|tui|desktop|headless|none|auto")
		headless      = fs.Bool("headless", false, "Shorthand for -mode headless")
		addr          = fs.String("addr", "", "Web server listen address")
		staticDir     = fs.String("static", "", "Directory served at / by the web renderer")
		scenarios     = fs.String("scenario", "", "Comma separated scenarios to play in headless mode (default all)")
		scenariosFile = fs.String("scenarios", "", "YAML file with additional scenarios")
		speed         = fs.Float64("speed", 0, "Simulated time multiplier")
		tick          = fs.Duration("tick", 0, "Simulator tick interval")
		logLevel      = fs.String("log-level", "", "Log level: error|warn|info|debug")
		logFile       = fs.String("log-file", "", "Write process logs to this file")
		list          = fs.Bool("list", false, "List scenarios and profiles, then exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *profile != "" {
		if err := ApplyProfile(cfg, *profile); err != nil {
			return err
		}
	}

	// Only flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Visual.Mode = *mode
		case "addr":
			cfg.Server.Addr = *addr
		case "static":
			cfg.Server.StaticDir = *staticDir
		case "scenario":
			cfg.Simulation.Scenarios = strings.Split(*scenarios, ",")
		case "scenarios":
			cfg.ScenariosFile = *scenariosFile
		case "speed":
			cfg.Simulation.Speed = *speed
		case "tick":
			cfg.Simulation.TickInterval = *tick
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-file":
			cfg.Logging.File = *logFile
		}
	})
	if *headless {
		cfg.Visual.Mode = VisualModeHeadless
	}

	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Visual.Mode = resolveMode(cfg.Visual.Mode, isTerminal(out))

	// The terminal dashboard owns the screen, so its logs go to the log
	// file or nowhere.
	var fallback io.Writer = os.Stderr
	if cfg.Visual.Mode == VisualModeTUI {
		fallback = io.Discard
	}
	closer, err := ConfigureLogger(cfg.Logging, fallback)
	if err != nil {
		return err
	}
	defer closer.Close()

	if *list {
		return printListing(out, cfg)
	}

	cfg.Print(logWriter{})

	app, err := newApplication(cfg, out)
	if err != nil {
		return err
	}
	switch cfg.Visual.Mode {
	case VisualModeHeadless, VisualModeNone:
		return app.runHeadless(ctx)
	default:
		return app.runInteractive(ctx)
	}
}

func printListing(out io.Writer, cfg *Config) error {
	table, err := loadTable(cfg.ScenariosFile)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Scenarios:")
	for _, s := range table.All() {
		fmt.Fprintf(out, "  %-12s %-28s %d steps\n", s.ID, s.Title, len(s.Steps))
	}
	fmt.Fprintln(out, "Profiles:")
	for _, p := range GetPredefinedProfiles() {
		fmt.Fprintf(out, "  %-12s %s\n", p.Name, p.Description)
	}
	return nil
}

// logWriter forwards Config.Print output to the debug log line by line.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			GetLogger().Debugf("%s", line)
		}
	}
	return len(p), nil
}
