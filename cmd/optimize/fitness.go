package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/game"
	"github.com/pthm-cable/swarm/telemetry"
)

// Spacing samples are taken every sampleEvery steps over the second half
// of a run, after the swarm has settled from its random start.
const sampleEvery = 50

// FitnessEvaluator runs headless simulations and scores how close the
// swarm's mean nearest-neighbor spacing gets to a target.
type FitnessEvaluator struct {
	params *ParamVector
	steps  int
	seeds  []int64
	base   *config.Config
	target float64

	mu          sync.Mutex
	lastSpacing float64 // spacing from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, steps int, seeds []int64, base *config.Config, target float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params: params,
		steps:  steps,
		seeds:  seeds,
		base:   base,
		target: target,
	}
}

// LastSpacing returns the seed-averaged spacing from the most recent evaluation.
func (fe *FitnessEvaluator) LastSpacing() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSpacing
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	spacing float64
	err     error
}

// Evaluate computes fitness for raw parameter values (lower = better).
// Fitness is the squared error between the measured spacing and the target.
func (fe *FitnessEvaluator) Evaluate(raw []float64) float64 {
	params := fe.params.ApplyToParams(fe.base.Swarm.Params, raw)

	// Seeds are independent simulations, run them in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			spacing, err := fe.runSimulation(params, s)
			results[idx] = seedResult{spacing: spacing, err: err}
		}(i, seed)
	}
	wg.Wait()

	var total float64
	for _, r := range results {
		if r.err != nil {
			return math.Inf(1)
		}
		total += r.spacing
	}
	spacing := total / float64(len(results))

	fe.mu.Lock()
	fe.lastSpacing = spacing
	fe.mu.Unlock()

	d := spacing - fe.target
	return d * d
}

// runSimulation executes a single headless run and returns the mean
// nearest-neighbor distance averaged over the sampled steps.
func (fe *FitnessEvaluator) runSimulation(params config.Params, seed int64) (float64, error) {
	opts, err := game.OptionsFromConfig(fe.base, seed)
	if err != nil {
		return 0, err
	}
	opts.Params = params

	sim, err := game.NewSimulation(opts)
	if err != nil {
		return 0, fmt.Errorf("seed %d: %w", seed, err)
	}
	defer sim.Close()

	var sum float64
	var samples int
	warmup := fe.steps / 2
	for step := 1; step <= fe.steps; step++ {
		sim.Step()
		if step > warmup && (step-warmup)%sampleEvery == 0 {
			sum += telemetry.MeanNearestDistance(sim.Particles())
			samples++
		}
	}
	if samples == 0 {
		return telemetry.MeanNearestDistance(sim.Particles()), nil
	}
	return sum / float64(samples), nil
}
