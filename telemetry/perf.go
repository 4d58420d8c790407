package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase identifies one timed section of a simulation step.
type Phase uint8

// Step phases in the order Step runs them.
const (
	PhaseSnapshot Phase = iota
	PhaseGrid
	PhaseParticles
	PhaseTelemetry

	NumPhases
)

var phaseNames = [NumPhases]string{"snapshot", "spatial_grid", "particles", "telemetry"}

func (p Phase) String() string {
	if p < NumPhases {
		return phaseNames[p]
	}
	return "unknown"
}

const noPhase = NumPhases

// stepTiming is one recorded step.
type stepTiming struct {
	total  time.Duration
	phases [NumPhases]time.Duration
}

// PerfCollector keeps wall-clock timings of the last N steps in a ring.
// It allocates nothing per step.
type PerfCollector struct {
	ring  []stepTiming
	head  int
	count int

	cur        stepTiming
	open       Phase
	stepStart  time.Time
	phaseStart time.Time

	lastFrame time.Time
	frameTime time.Duration
}

// NewPerfCollector returns a collector averaging over window steps
// (60 when window < 1).
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]stepTiming, window), open: noPhase}
}

// StartStep starts the clock for a step.
func (p *PerfCollector) StartStep() {
	p.stepStart = time.Now()
	p.cur = stepTiming{}
	p.open = noPhase
}

// StartPhase closes the running phase, if any, and opens phase.
// Unknown phases are timed as part of the step only.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.open = phase
	p.phaseStart = now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.open < NumPhases {
		p.cur.phases[p.open] += now.Sub(p.phaseStart)
	}
	p.open = noPhase
}

// EndStep stops the clock and pushes the step into the ring.
func (p *PerfCollector) EndStep() {
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.stepStart)

	p.ring[p.head] = p.cur
	p.head = (p.head + 1) % len(p.ring)
	if p.count < len(p.ring) {
		p.count++
	}
}

// RecordFrame notes a rendered frame; the interval to the previous call
// feeds FPS.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frameTime = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarises the collector's window.
type PerfStats struct {
	Samples int

	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration
	P95StepDuration time.Duration

	// Indexed by Phase. PhasePct is relative to AvgStepDuration.
	PhaseAvg [NumPhases]time.Duration
	PhasePct [NumPhases]float64

	StepsPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats summarises the samples currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Samples: p.count, FrameDuration: p.frameTime}
	if p.frameTime > 0 {
		s.FPS = float64(time.Second) / float64(p.frameTime)
	}
	if p.count == 0 {
		return s
	}

	totals := make([]float64, p.count)
	var phaseSum [NumPhases]time.Duration
	for i, t := range p.ring[:p.count] {
		totals[i] = float64(t.total)
		for ph, d := range t.phases {
			phaseSum[ph] += d
		}
	}
	slices.Sort(totals)

	n := time.Duration(p.count)
	s.AvgStepDuration = time.Duration(stat.Mean(totals, nil))
	s.MinStepDuration = time.Duration(totals[0])
	s.MaxStepDuration = time.Duration(totals[len(totals)-1])
	s.P95StepDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, totals, nil))

	for ph := range phaseSum {
		s.PhaseAvg[ph] = phaseSum[ph] / n
		if s.AvgStepDuration > 0 {
			s.PhasePct[ph] = 100 * float64(s.PhaseAvg[ph]) / float64(s.AvgStepDuration)
		}
	}
	if s.AvgStepDuration > 0 {
		s.StepsPerSecond = float64(time.Second) / float64(s.AvgStepDuration)
	}
	return s
}

// LogStats emits one "perf" record; phases under 0.1% are left out.
func (s PerfStats) LogStats() {
	args := []any{
		"avg_step_us", s.AvgStepDuration.Microseconds(),
		"p95_step_us", s.P95StepDuration.Microseconds(),
		"max_step_us", s.MaxStepDuration.Microseconds(),
		"steps_per_sec", int(s.StepsPerSecond),
	}
	if s.FPS > 0 {
		args = append(args, "fps", int(s.FPS))
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			args = append(args, Phase(ph).String()+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", args...)
}

// PerfRecord is one perf.csv row.
type PerfRecord struct {
	WindowEnd    int64   `csv:"window_end"`
	Samples      int     `csv:"samples"`
	AvgStepUS    int64   `csv:"avg_step_us"`
	MinStepUS    int64   `csv:"min_step_us"`
	P95StepUS    int64   `csv:"p95_step_us"`
	MaxStepUS    int64   `csv:"max_step_us"`
	StepsPerSec  float64 `csv:"steps_per_sec"`
	FPS          float64 `csv:"fps"`
	SnapshotPct  float64 `csv:"snapshot_pct"`
	GridPct      float64 `csv:"spatial_grid_pct"`
	ParticlesPct float64 `csv:"particles_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// Record flattens s into a perf.csv row ending at step windowEnd.
func (s PerfStats) Record(windowEnd int64) PerfRecord {
	return PerfRecord{
		WindowEnd:    windowEnd,
		Samples:      s.Samples,
		AvgStepUS:    s.AvgStepDuration.Microseconds(),
		MinStepUS:    s.MinStepDuration.Microseconds(),
		P95StepUS:    s.P95StepDuration.Microseconds(),
		MaxStepUS:    s.MaxStepDuration.Microseconds(),
		StepsPerSec:  s.StepsPerSecond,
		FPS:          s.FPS,
		SnapshotPct:  s.PhasePct[PhaseSnapshot],
		GridPct:      s.PhasePct[PhaseGrid],
		ParticlesPct: s.PhasePct[PhaseParticles],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
