package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/game"
)

type cliFlags struct {
	configPath     string
	headless       bool
	logStats       bool
	statsWindow    float64
	outputDir      string
	seed           int64
	maxSteps       int64
	stepsPerUpdate int
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	flag.BoolVar(&f.headless, "headless", false, "Step without a window")
	flag.BoolVar(&f.logStats, "log-stats", false, "Log each stats window via slog")
	flag.Float64Var(&f.statsWindow, "stats-window", 0, "Stats window in simulated seconds (0 = config value)")
	flag.StringVar(&f.outputDir, "output-dir", "", "Directory for telemetry.csv, perf.csv and config.yaml")
	flag.Int64Var(&f.seed, "seed", 0, "RNG seed (0 = current time)")
	flag.Int64Var(&f.maxSteps, "max-steps", 0, "Stop after N steps (0 = run until closed)")
	flag.IntVar(&f.stepsPerUpdate, "steps-per-update", 1, "Steps per frame or headless iteration")
	flag.Parse()
	return f
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(parseFlags(), logger); err != nil {
		slog.Error("swarm failed", "error", err)
		os.Exit(1)
	}
}

func run(f cliFlags, logger *slog.Logger) error {
	if err := config.Init(f.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()

	seed := f.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	window := cfg.Telemetry.StatsWindow
	if f.statsWindow > 0 {
		window = f.statsWindow
	}

	simOpts, err := game.OptionsFromConfig(cfg, seed)
	if err != nil {
		return fmt.Errorf("swarm config: %w", err)
	}
	simOpts.Logger = logger

	r, err := game.NewRunner(game.RunnerOptions{
		Sim:            simOpts,
		LogStats:       f.logStats,
		StatsWindowSec: window,
		PerfWindow:     cfg.Telemetry.PerfCollectorWindow,
		OutputDir:      f.outputDir,
		StepsPerUpdate: f.stepsPerUpdate,
		Config:         cfg,
	})
	if err != nil {
		return fmt.Errorf("creating simulation: %w", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			slog.Error("closing output", "error", err)
		}
	}()

	done := func() bool { return f.maxSteps > 0 && r.Sim().Steps() >= f.maxSteps }

	if f.headless {
		slog.Info("headless run",
			"seed", seed,
			"particles", r.Sim().Len(),
			"mode", r.Sim().Mode().String(),
			"stats_window", window,
			"max_steps", f.maxSteps,
			"steps_per_update", f.stepsPerUpdate,
		)
		for !done() {
			r.Update()
		}
		slog.Info("max steps reached", "step", r.Sim().Steps())
		return nil
	}

	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Swarm")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := newViewer(r, cfg)
	defer v.Unload()

	for !rl.WindowShouldClose() && !done() {
		v.Frame()
	}
	return nil
}
