package game

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/systems"
	"github.com/pthm-cable/swarm/telemetry"
)

// TimeStep is the simulated time added per step, independent of frame rate.
const TimeStep = 0.015

// Initial particle state ranges
const (
	initVelSpan = 0.5   // velocity components in [-0.25, 0.25]
	initHueBase = 160.0 // hue in [160, 220)
	initHueSpan = 60.0
)

// Phase names reported to a PhaseRecorder during Step.
const (
	PhaseSnapshot  = telemetry.PhaseSnapshot
	PhaseGrid      = telemetry.PhaseGrid
	PhaseParticles = telemetry.PhaseParticles
)

// PhaseRecorder receives phase boundaries during Step.
// telemetry.PerfCollector satisfies it.
type PhaseRecorder interface {
	StartPhase(phase telemetry.Phase)
}

// State is the run state of a Simulation.
type State uint8

const (
	StateRunning State = iota
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// UpdateMode selects how particles see each other within one step.
type UpdateMode uint8

const (
	// UpdateSequential advances particles in collection order against the
	// live collection: earlier particles are seen at their new positions.
	UpdateSequential UpdateMode = iota
	// UpdateSynchronous computes every particle against a pre-step copy.
	UpdateSynchronous
)

func (m UpdateMode) String() string {
	if m == UpdateSynchronous {
		return config.UpdateModeSynchronous
	}
	return config.UpdateModeSequential
}

// ParseUpdateMode maps a config string to an UpdateMode.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "", config.UpdateModeSequential:
		return UpdateSequential, nil
	case config.UpdateModeSynchronous:
		return UpdateSynchronous, nil
	}
	return UpdateSequential, fmt.Errorf("unknown update mode %q", s)
}

// Options configures a new Simulation.
type Options struct {
	Width, Height float64
	Params        config.Params

	// Rand drives particle placement and Randomize. When nil a source is
	// seeded from Seed, or from the clock if Seed is 0.
	Rand *rand.Rand
	Seed int64

	Noise       systems.NoiseField // nil = reference table
	Mode        UpdateMode
	SpatialGrid bool
	Workers     int // synchronous mode worker goroutines, 0 = GOMAXPROCS
	Phases      PhaseRecorder
	Logger      *slog.Logger
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config, seed int64) (Options, error) {
	mode, err := ParseUpdateMode(cfg.Swarm.UpdateMode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Width:       float64(cfg.Screen.Width),
		Height:      float64(cfg.Screen.Height),
		Params:      cfg.Swarm.Params,
		Seed:        seed,
		Noise:       systems.NewPerlinNoise(cfg.Noise.Seed),
		Mode:        mode,
		SpatialGrid: cfg.Swarm.SpatialGrid,
		Workers:     cfg.Swarm.Workers,
	}, nil
}

// Simulation owns the particle collection, simulated time and parameters.
// It is not safe for concurrent use.
type Simulation struct {
	width, height float64
	time          float64
	steps         int64
	params        config.Params
	particles     []systems.Particle
	scratch       []systems.Particle // pre-step copy for synchronous mode
	state         State
	mode          UpdateMode

	rng   *rand.Rand
	seed  int64 // 0 when the caller supplied Rand
	noise systems.NoiseField

	useGrid    bool
	grid       *systems.SpatialGrid
	candidates []int
	parallel   *workerPool

	lastNeighbors int
	inits         int

	phases PhaseRecorder
	log    *slog.Logger
}

// NewSimulation creates a running simulation and initializes its particles.
func NewSimulation(opts Options) (*Simulation, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	rng := opts.Rand
	var seed int64
	if rng == nil {
		seed = opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	noise := opts.Noise
	if noise == nil {
		noise = systems.NewReferenceNoise()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Simulation{
		params:     opts.Params,
		state:      StateRunning,
		mode:       opts.Mode,
		rng:        rng,
		seed:       seed,
		noise:      noise,
		useGrid:    opts.SpatialGrid,
		candidates: make([]int, 0, 64),
		parallel:   newWorkerPool(opts.Workers),
		phases:     opts.Phases,
		log:        logger,
	}
	if err := s.Initialize(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	return s, nil
}

// Initialize discards every particle and creates ParticleCount new ones
// inside a width x height frame.
func (s *Simulation) Initialize(width, height float64) error {
	if !validDim(width) || !validDim(height) {
		return fmt.Errorf("invalid frame size %vx%v", width, height)
	}
	s.width, s.height = width, height

	n := s.params.ParticleCount
	particles := make([]systems.Particle, n)
	for i := range particles {
		p := &particles[i]
		p.Pos.X = s.rng.Float64() * width
		p.Pos.Y = s.rng.Float64() * height
		p.Vel.X = (s.rng.Float64() - 0.5) * initVelSpan
		p.Vel.Y = (s.rng.Float64() - 0.5) * initVelSpan
		p.Hue = s.rng.Float64()*initHueSpan + initHueBase
		p.Life = s.rng.Float64()
	}
	s.particles = particles
	s.scratch = s.scratch[:0]
	s.lastNeighbors = 0
	s.inits++

	s.log.Debug("particles initialized", "count", n, "width", width, "height", height)
	return nil
}

// Resize changes the frame size and reinitializes every particle.
func (s *Simulation) Resize(width, height float64) error {
	return s.Initialize(width, height)
}

// Reset rewinds time and reinitializes the particles in the current frame.
func (s *Simulation) Reset() {
	s.time = 0
	s.steps = 0
	s.reinitialize()
}

// SetConfiguration merges patch into the parameters. Rejected fields keep
// their previous value and are reported in the returned error; the rest
// still apply. A ParticleCount change reinitializes the particles; other
// fields take effect on the next step.
func (s *Simulation) SetConfiguration(patch config.Patch) error {
	next, err := s.params.Apply(patch)
	if err != nil {
		s.log.Warn("configuration fields rejected", "error", err)
	}

	countChanged := next.ParticleCount != s.params.ParticleCount
	s.params = next
	if countChanged {
		s.reinitialize()
	}
	return err
}

// Randomize replaces the parameters with random values and reinitializes.
func (s *Simulation) Randomize() config.Params {
	r := s.rng
	s.params = config.Params{
		ParticleCount:     max(20, int(math.Round(r.Float64()*300))),
		FieldStrength:     roundTo(r.Float64()*1.8+0.2, 2),
		Turbulence:        roundTo(r.Float64()*1.8+0.2, 2),
		Cohesion:          roundTo(r.Float64()*1.5+0.1, 2),
		InteractionRadius: math.Round(r.Float64()*120 + 30),
		DecayRate:         roundTo(r.Float64()*0.35+0.02, 3),
		V0:                roundTo(r.Float64()*2.5+0.2, 2),
		V1:                roundTo(r.Float64()*2.5+0.2, 2),
		Name:              "Randomized",
	}
	s.reinitialize()

	s.log.Info("params randomized",
		"particle_count", s.params.ParticleCount,
		"field_strength", s.params.FieldStrength,
		"turbulence", s.params.Turbulence,
		"cohesion", s.params.Cohesion,
		"interaction_radius", s.params.InteractionRadius,
		"decay_rate", s.params.DecayRate,
		"v0", s.params.V0,
		"v1", s.params.V1,
	)
	return s.params
}

func (s *Simulation) reinitialize() {
	// Dimensions were validated when they were set
	_ = s.Initialize(s.width, s.height)
}

// Pause stops Step from advancing until Resume.
func (s *Simulation) Pause() { s.state = StatePaused }

// Resume restarts stepping with no state lost.
func (s *Simulation) Resume() { s.state = StateRunning }

// Toggle flips between running and paused and returns the new state.
func (s *Simulation) Toggle() State {
	if s.state == StateRunning {
		s.state = StatePaused
	} else {
		s.state = StateRunning
	}
	return s.state
}

// Step advances time and every particle by one step.
// It does nothing and returns false while paused.
func (s *Simulation) Step() bool {
	if s.state == StatePaused {
		return false
	}

	s.time += TimeStep
	s.steps++

	env := s.Env()

	others := s.particles
	if s.mode == UpdateSynchronous {
		s.startPhase(PhaseSnapshot)
		s.scratch = append(s.scratch[:0], s.particles...)
		others = s.scratch
	}

	if s.useGrid {
		s.startPhase(PhaseGrid)
		radius := s.params.InteractionRadius
		if s.grid == nil || !s.grid.Matches(s.width, s.height, radius) {
			s.grid = systems.NewSpatialGrid(s.width, s.height, radius)
		}
		s.grid.Rebuild(others)
	}

	s.startPhase(PhaseParticles)
	if s.mode == UpdateSynchronous {
		s.lastNeighbors = s.updateSynchronousParallel(&env, others)
		return true
	}

	total := 0
	for i := range s.particles {
		p := &s.particles[i]

		var candidates []int
		if s.useGrid {
			s.candidates = s.grid.QueryRadiusInto(s.candidates[:0], p.Pos, s.params.InteractionRadius)
			candidates = s.candidates
		}

		total += p.Update(&env, others, i, candidates)

		// Later particles must find this one at its new position
		if s.useGrid {
			s.grid.Move(i, p.Pos)
		}
	}
	s.lastNeighbors = total
	return true
}

func (s *Simulation) startPhase(phase telemetry.Phase) {
	if s.phases != nil {
		s.phases.StartPhase(phase)
	}
}

// Particles returns a copy of the particle collection in order.
func (s *Simulation) Particles() []systems.Particle {
	return s.AppendParticles(nil)
}

// AppendParticles appends the particle collection to dst.
func (s *Simulation) AppendParticles(dst []systems.Particle) []systems.Particle {
	return append(dst, s.particles...)
}

// Snapshot captures the observable state.
func (s *Simulation) Snapshot() *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Version:   telemetry.SnapshotVersion,
		Seed:      s.seed,
		Width:     s.width,
		Height:    s.height,
		Time:      s.time,
		Steps:     s.steps,
		Paused:    s.state == StatePaused,
		Params:    s.params,
		Particles: telemetry.AppendParticleStates(nil, s.particles),
	}
}

// Restore replaces the frame, clock, parameters, run state and particles
// with those of snap, e.g. one captured earlier with Snapshot or built
// by hand. The random source is not part of a snapshot, so a later
// Randomize diverges from the run that produced it. Snapshots whose
// particle count differs from their params, or whose particles are
// non-finite or out of frame, are rejected and leave s unchanged.
func (s *Simulation) Restore(snap *telemetry.Snapshot) error {
	if !validDim(snap.Width) || !validDim(snap.Height) {
		return fmt.Errorf("invalid frame size %vx%v", snap.Width, snap.Height)
	}
	if err := snap.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if len(snap.Particles) != snap.Params.ParticleCount {
		return fmt.Errorf("snapshot holds %d particles, params say %d", len(snap.Particles), snap.Params.ParticleCount)
	}

	particles := make([]systems.Particle, len(snap.Particles))
	for i, ps := range snap.Particles {
		if !finiteAll(ps.X, ps.Y, ps.VX, ps.VY, ps.Hue, ps.Life) {
			return fmt.Errorf("particle %d: non-finite state %+v", i, ps)
		}
		if ps.X < 0 || ps.X >= snap.Width || ps.Y < 0 || ps.Y >= snap.Height {
			return fmt.Errorf("particle %d: position (%v, %v) outside %vx%v frame", i, ps.X, ps.Y, snap.Width, snap.Height)
		}
		particles[i] = systems.Particle{
			Pos:  r2.Vec{X: ps.X, Y: ps.Y},
			Vel:  r2.Vec{X: ps.VX, Y: ps.VY},
			Hue:  ps.Hue,
			Life: ps.Life,
		}
	}

	s.width, s.height = snap.Width, snap.Height
	s.time = snap.Time
	s.steps = snap.Steps
	s.params = snap.Params
	s.particles = particles
	s.scratch = s.scratch[:0]
	s.lastNeighbors = 0
	s.state = StateRunning
	if snap.Paused {
		s.state = StatePaused
	}
	return nil
}

// Env returns the context particles are updated in at the current time.
// The flow field seen through it matches the one steering the swarm.
func (s *Simulation) Env() systems.Env {
	return systems.Env{
		Width:  s.width,
		Height: s.height,
		Time:   s.time,
		Params: s.params,
		Noise:  s.noise,
	}
}

// Len returns the number of particles.
func (s *Simulation) Len() int { return len(s.particles) }

// Params returns the current parameters.
func (s *Simulation) Params() config.Params { return s.params }

// Time returns the simulated time.
func (s *Simulation) Time() float64 { return s.time }

// Steps returns the number of steps taken since creation or Reset.
func (s *Simulation) Steps() int64 { return s.steps }

// Size returns the frame size.
func (s *Simulation) Size() (width, height float64) { return s.width, s.height }

// State returns the run state.
func (s *Simulation) State() State { return s.state }

// Mode returns the update mode.
func (s *Simulation) Mode() UpdateMode { return s.mode }

// LastNeighborCount returns the total neighbor count seen in the last step.
func (s *Simulation) LastNeighborCount() int { return s.lastNeighbors }

// Initializations returns how many times the particles were (re)created.
func (s *Simulation) Initializations() int { return s.inits }

func validDim(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finiteAll(vs ...float64) bool {
	for _, v := range vs {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
