// Package main provides CMA-ES optimization for finding swarm parameters
// that settle at a target particle spacing.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/swarm/config"
)

// evalRecord is one row of optimize_log.csv. Values are the clamped
// parameters actually simulated.
type evalRecord struct {
	Eval              int     `csv:"eval"`
	Fitness           float64 `csv:"fitness"`
	Spacing           float64 `csv:"spacing"`
	FieldStrength     float64 `csv:"field_strength"`
	Turbulence        float64 `csv:"turbulence"`
	Cohesion          float64 `csv:"cohesion"`
	InteractionRadius float64 `csv:"interaction_radius"`
	V0                float64 `csv:"v0"`
	V1                float64 `csv:"v1"`
}

func newEvalRecord(eval int, fitness, spacing float64, p config.Params) evalRecord {
	return evalRecord{
		Eval:              eval,
		Fitness:           fitness,
		Spacing:           spacing,
		FieldStrength:     p.FieldStrength,
		Turbulence:        p.Turbulence,
		Cohesion:          p.Cohesion,
		InteractionRadius: p.InteractionRadius,
		V0:                p.V0,
		V1:                p.V1,
	}
}

// evalLog appends evalRecords to a CSV file, writing the header once.
type evalLog struct {
	f             *os.File
	headerWritten bool
}

func (l *evalLog) Write(rec evalRecord) error {
	rows := []evalRecord{rec}
	if !l.headerWritten {
		l.headerWritten = true
		return gocsv.MarshalFile(&rows, l.f)
	}
	return gocsv.MarshalWithoutHeaders(&rows, l.f)
}

// options are the command-line settings of one search.
type options struct {
	configPath string
	outputDir  string
	steps      int
	seeds      int
	seedBase   int64
	maxEvals   int
	population int
	target     float64
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&o.outputDir, "output", "", "Directory for optimize_log.csv and best_config.yaml (required)")
	flag.IntVar(&o.steps, "steps", 2000, "Simulation steps per run")
	flag.IntVar(&o.seeds, "seeds", 3, "Runs per evaluation, each with its own seed")
	flag.Int64Var(&o.seedBase, "seed", 42, "First run seed; later runs add multiples of 1000")
	flag.IntVar(&o.maxEvals, "max-evals", 200, "Evaluation budget")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population size (0 = 4 + 3*dim/2)")
	flag.Float64Var(&o.target, "target-spacing", 20, "Mean nearest-neighbor distance to aim for")
	flag.Parse()
	return o
}

func (o options) validate() error {
	var errs []error
	if o.outputDir == "" {
		errs = append(errs, errors.New("-output is required"))
	}
	if o.steps < 1 {
		errs = append(errs, fmt.Errorf("-steps must be positive, got %d", o.steps))
	}
	if o.seeds < 1 {
		errs = append(errs, fmt.Errorf("-seeds must be positive, got %d", o.seeds))
	}
	if o.maxEvals < 1 {
		errs = append(errs, fmt.Errorf("-max-evals must be positive, got %d", o.maxEvals))
	}
	return errors.Join(errs...)
}

func (o options) runSeeds() []int64 {
	seeds := make([]int64, o.seeds)
	for i := range seeds {
		seeds[i] = o.seedBase + int64(i)*1000
	}
	return seeds
}

// tracker keeps the best point seen across all evaluations; CMA-ES may
// finish on a worse one.
type tracker struct {
	evals   int
	best    float64
	bestRaw []float64
	start   time.Time
}

func (t *tracker) observe(fitness float64, raw []float64) {
	t.evals++
	if t.bestRaw == nil || fitness < t.best {
		t.best = fitness
		t.bestRaw = raw
	}
}

// eta extrapolates the remaining wall time from the mean evaluation time.
func (t *tracker) eta(budget int) time.Duration {
	if t.evals == 0 {
		return 0
	}
	per := time.Since(t.start) / time.Duration(t.evals)
	return (time.Duration(budget-t.evals) * per).Round(time.Second)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(parseFlags()); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if err := o.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(o.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	base := config.Cfg()

	space := NewParamVector(base.Swarm.Params)
	evaluator := NewFitnessEvaluator(space, o.steps, o.runSeeds(), base, o.target)

	pop := o.population
	if pop == 0 {
		pop = 4 + 3*space.Dim()/2
	}

	logFile, err := os.Create(filepath.Join(o.outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("creating eval log: %w", err)
	}
	defer logFile.Close()
	evals := &evalLog{f: logFile}

	tr := &tracker{best: math.Inf(1), start: time.Now()}
	problem := optimize.Problem{
		// The optimizer searches the unit cube; evaluations see raw values.
		Func: func(x []float64) float64 {
			raw := space.Clamp(space.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			spacing := evaluator.LastSpacing()
			tr.observe(fitness, raw)

			if err := evals.Write(newEvalRecord(tr.evals, fitness, spacing, space.ApplyToParams(base.Swarm.Params, raw))); err != nil {
				slog.Warn("eval log write failed", "error", err)
			}
			slog.Info("eval",
				"n", tr.evals,
				"of", o.maxEvals,
				"spacing", spacing,
				"fitness", fitness,
				"best", tr.best,
				"eta", tr.eta(o.maxEvals),
			)
			return fitness
		},
	}

	slog.Info("starting CMA-ES",
		"dim", space.Dim(),
		"population", pop,
		"max_evals", o.maxEvals,
		"seeds", o.seeds,
		"steps", o.steps,
		"target_spacing", o.target,
	)

	// Seeds already run concurrently inside Evaluate.
	result, err := optimize.Minimize(problem,
		space.Normalize(space.DefaultVector()),
		&optimize.Settings{FuncEvaluations: o.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: pop},
	)
	if err != nil {
		slog.Warn("optimization stopped early", "error", err)
	}
	if tr.bestRaw == nil && result != nil {
		tr.bestRaw = space.Clamp(space.Denormalize(result.X))
	}
	if tr.bestRaw == nil {
		return errors.New("no evaluations completed")
	}

	fmt.Printf("%d evaluations in %s, best fitness %.4f\n", tr.evals, time.Since(tr.start).Round(time.Second), tr.best)
	for i, spec := range space.Specs {
		fmt.Printf("  %-30s %.6f\n", spec.Path, tr.bestRaw[i])
	}

	// ApplyToConfig mutates its argument; base is the shared config.
	bestCfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	space.ApplyToConfig(bestCfg, tr.bestRaw)
	out := filepath.Join(o.outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(out); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	fmt.Println("best config:", out)
	return nil
}
