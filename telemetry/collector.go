package telemetry

import "github.com/pthm-cable/swarm/systems"

// Collector accumulates per-step counters within windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationSteps int64
	dt                  float64

	// Current window tracking
	windowStartStep int64

	// Counters for current window
	stepsRecorded   int64
	neighborSum     float64 // sum over steps of neighbors per particle
	initializations int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulated seconds
// dt: simulated seconds per step
func NewCollector(windowDurationSec, dt float64) *Collector {
	stepsPerWindow := int64(windowDurationSec / dt)
	if stepsPerWindow < 1 {
		stepsPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationSteps: stepsPerWindow,
		dt:                  dt,
	}
}

// RecordStep records one completed step.
// neighbors is the total neighbor count the step saw across all particles.
func (c *Collector) RecordStep(neighbors, particles int) {
	c.stepsRecorded++
	if particles > 0 {
		c.neighborSum += float64(neighbors) / float64(particles)
	}
}

// RecordInitialization records a particle (re)initialization.
func (c *Collector) RecordInitialization() {
	c.initializations++
}

// WindowStart returns the step the current window began at.
func (c *Collector) WindowStart() int64 { return c.windowStartStep }

// Restart drops the current window's counters and opens a new window at
// step. Hosts call it when the step counter moves backwards.
func (c *Collector) Restart(step int64) {
	c.windowStartStep = step
	c.stepsRecorded = 0
	c.neighborSum = 0
	c.initializations = 0
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(currentStep int64) bool {
	return currentStep-c.windowStartStep >= c.windowDurationSteps
}

// Flush produces a WindowStats from the particles at window end and resets
// counters for the next window.
func (c *Collector) Flush(currentStep int64, simTime float64, particles []systems.Particle) WindowStats {
	n := len(particles)
	speeds := make([]float64, n)
	hues := make([]float64, n)
	var lifeSum float64
	for i := range particles {
		speeds[i] = particles[i].Speed()
		hues[i] = particles[i].Hue
		lifeSum += particles[i].Life
	}

	speed := Summarize(speeds)
	hue := Summarize(hues)

	stats := WindowStats{
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   currentStep,
		SimTime:         simTime,
		Particles:       n,
		Initializations: c.initializations,
		SpeedMean:       speed.Mean,
		SpeedStd:        speed.Std,
		SpeedP10:        speed.P10,
		SpeedP50:        speed.P50,
		SpeedP90:        speed.P90,
		HueMean:         hue.Mean,
		HueStd:          hue.Std,
		NearestDistMean: MeanNearestDistance(particles),
	}
	if n > 0 {
		stats.LifeMean = lifeSum / float64(n)
	}
	if c.stepsRecorded > 0 {
		stats.NeighborMean = c.neighborSum / float64(c.stepsRecorded)
	}

	c.Restart(currentStep)

	return stats
}

// WindowDurationSteps returns the number of steps per window.
func (c *Collector) WindowDurationSteps() int64 {
	return c.windowDurationSteps
}
