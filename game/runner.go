package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/telemetry"
)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Sim            Options
	LogStats       bool
	StatsWindowSec float64 // 0 = 10 simulated seconds
	PerfWindow     int     // steps averaged by the perf collector
	OutputDir      string  // empty = no CSV output
	StepsPerUpdate int

	// Config is written to OutputDir/config.yaml when set.
	Config *config.Config
}

// Runner drives a Simulation and collects telemetry. It owns the
// Simulation; callers that step it directly bypass telemetry.
type Runner struct {
	sim *Simulation

	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager

	logStats       bool
	stepsPerUpdate int
	lastInits      int

	statsCallback func(telemetry.WindowStats)
}

// NewRunner creates a simulation wrapped with telemetry collection.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	perf := telemetry.NewPerfCollector(opts.PerfWindow)
	simOpts := opts.Sim
	simOpts.Phases = perf

	sim, err := NewSimulation(simOpts)
	if err != nil {
		return nil, err
	}

	window := opts.StatsWindowSec
	if window <= 0 {
		window = 10
	}
	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	if opts.Config != nil {
		if err := om.WriteConfig(opts.Config); err != nil {
			om.Close()
			return nil, fmt.Errorf("output: %w", err)
		}
	}

	r := &Runner{
		sim:            sim,
		collector:      telemetry.NewCollector(window, TimeStep),
		perfCollector:  perf,
		outputManager:  om,
		logStats:       opts.LogStats,
		stepsPerUpdate: steps,
		lastInits:      sim.Initializations(),
	}
	return r, nil
}

// SetStatsCallback sets a callback invoked on each flushed stats window.
func (r *Runner) SetStatsCallback(cb func(telemetry.WindowStats)) {
	r.statsCallback = cb
}

// Sim returns the underlying simulation.
func (r *Runner) Sim() *Simulation { return r.sim }

// Perf returns the performance collector.
func (r *Runner) Perf() *telemetry.PerfCollector { return r.perfCollector }

// Update runs StepsPerUpdate steps. It returns the number actually taken,
// which is 0 while paused.
func (r *Runner) Update() int {
	taken := 0
	for range r.stepsPerUpdate {
		if !r.step() {
			break
		}
		taken++
	}
	return taken
}

func (r *Runner) step() bool {
	// Reset or Restore moved the clock back behind the open window
	if steps := r.sim.Steps(); steps < r.collector.WindowStart() {
		r.collector.Restart(steps)
	}
	r.noteInitializations()
	if r.sim.State() == StatePaused {
		return false
	}

	r.perfCollector.StartStep()
	r.sim.Step()
	r.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	r.collector.RecordStep(r.sim.LastNeighborCount(), r.sim.Len())
	r.perfCollector.EndStep()

	r.flushTelemetry()
	return true
}

// noteInitializations forwards reinitializations done outside Step
// (Randomize, SetConfiguration, Resize) to the collector.
func (r *Runner) noteInitializations() {
	inits := r.sim.Initializations()
	for ; r.lastInits < inits; r.lastInits++ {
		r.collector.RecordInitialization()
	}
}

// flushTelemetry checks if the stats window should be flushed.
func (r *Runner) flushTelemetry() {
	steps := r.sim.Steps()
	if !r.collector.ShouldFlush(steps) {
		return
	}

	stats := r.collector.Flush(steps, r.sim.Time(), r.sim.particles)
	perfStats := r.perfCollector.Stats()

	if r.statsCallback != nil {
		r.statsCallback(stats)
	}

	if r.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if r.outputManager != nil {
		if err := r.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := r.outputManager.WritePerf(perfStats, stats.WindowEndStep); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// Close stops the simulation's workers and closes telemetry output.
func (r *Runner) Close() error {
	r.sim.Close()
	return r.outputManager.Close()
}
