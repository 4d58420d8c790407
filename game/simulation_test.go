package game

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/systems"
	"github.com/pthm-cable/swarm/telemetry"
)

func newTestSim(t *testing.T, mutate func(*Options)) *Simulation {
	t.Helper()
	opts := Options{
		Width:  800,
		Height: 600,
		Params: config.DefaultParams(),
		Seed:   1,
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := NewSimulation(opts)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// place replaces the particle collection with particles at rest.
func place(t *testing.T, s *Simulation, params config.Params, pos ...r2.Vec) {
	t.Helper()
	w, h := s.Size()
	snap := &telemetry.Snapshot{Version: telemetry.SnapshotVersion, Width: w, Height: h, Params: params}
	for _, p := range pos {
		snap.Particles = append(snap.Particles, telemetry.ParticleState{X: p.X, Y: p.Y})
	}
	if err := s.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}

func TestNewSimulationInitialState(t *testing.T) {
	s := newTestSim(t, nil)

	if s.Len() != 120 {
		t.Fatalf("Len = %d, want 120", s.Len())
	}
	if s.State() != StateRunning {
		t.Errorf("State = %v, want running", s.State())
	}
	if s.Time() != 0 || s.Steps() != 0 {
		t.Errorf("clock = %v/%d, want 0/0", s.Time(), s.Steps())
	}
	for i, p := range s.Particles() {
		if p.Pos.X < 0 || p.Pos.X >= 800 || p.Pos.Y < 0 || p.Pos.Y >= 600 {
			t.Errorf("particle %d at %v outside frame", i, p.Pos)
		}
		if math.Abs(p.Vel.X) > 0.25 || math.Abs(p.Vel.Y) > 0.25 {
			t.Errorf("particle %d velocity %v outside [-0.25, 0.25]", i, p.Vel)
		}
		if p.Hue < 160 || p.Hue >= 220 {
			t.Errorf("particle %d hue %v outside [160, 220)", i, p.Hue)
		}
		if p.Life < 0 || p.Life >= 1 {
			t.Errorf("particle %d life %v outside [0, 1)", i, p.Life)
		}
	}
}

func TestNewSimulationRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero width", func(o *Options) { o.Width = 0 }},
		{"negative height", func(o *Options) { o.Height = -1 }},
		{"NaN width", func(o *Options) { o.Width = math.NaN() }},
		{"zero count", func(o *Options) { o.Params.ParticleCount = 0 }},
		{"zero radius", func(o *Options) { o.Params.InteractionRadius = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Width: 800, Height: 600, Params: config.DefaultParams(), Seed: 1}
			tt.mutate(&opts)
			if _, err := NewSimulation(opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStepKeepsParticlesInFrame(t *testing.T) {
	for _, mode := range []UpdateMode{UpdateSequential, UpdateSynchronous} {
		t.Run(mode.String(), func(t *testing.T) {
			s := newTestSim(t, func(o *Options) {
				o.Mode = mode
				o.Params.FieldStrength = 2
				o.Params.Turbulence = 2
			})
			for range 500 {
				s.Step()
			}
			for i, p := range s.Particles() {
				if p.Pos.X < 0 || p.Pos.X >= 800 || p.Pos.Y < 0 || p.Pos.Y >= 600 {
					t.Fatalf("particle %d at %v outside frame", i, p.Pos)
				}
				if p.Speed() > systems.MaxSpeed+1e-9 {
					t.Fatalf("particle %d speed %v above cap", i, p.Speed())
				}
			}
			if math.Abs(s.Time()-500*TimeStep) > 1e-9 {
				t.Errorf("Time = %v, want %v", s.Time(), 500*TimeStep)
			}
		})
	}
}

func TestStepDeterministic(t *testing.T) {
	a := newTestSim(t, func(o *Options) { o.Seed = 42 })
	b := newTestSim(t, func(o *Options) { o.Rand = rand.New(rand.NewSource(42)) })

	for range 200 {
		a.Step()
		b.Step()
	}
	pa, pb := a.Particles(), b.Particles()
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("particle %d diverged: %+v vs %+v", i, pa[i], pb[i])
		}
	}
}

func TestPauseResume(t *testing.T) {
	s := newTestSim(t, nil)
	s.Step()
	before := s.Particles()
	time0 := s.Time()

	s.Pause()
	for range 10 {
		if s.Step() {
			t.Fatal("Step advanced while paused")
		}
	}
	after := s.Particles()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("particle %d changed while paused", i)
		}
	}
	if s.Time() != time0 {
		t.Errorf("Time changed while paused: %v -> %v", time0, s.Time())
	}

	if s.Toggle() != StateRunning {
		t.Error("Toggle from paused should resume")
	}
	if !s.Step() {
		t.Error("Step should advance after resume")
	}
	if s.Toggle() != StatePaused {
		t.Error("Toggle from running should pause")
	}
	s.Resume()
	if s.State() != StateRunning {
		t.Error("Resume should run")
	}
}

func TestRandomize(t *testing.T) {
	s := newTestSim(t, nil)
	for range 500 {
		p := s.Randomize()
		if p.ParticleCount < 20 || p.ParticleCount > 300 {
			t.Fatalf("ParticleCount = %d outside [20, 300]", p.ParticleCount)
		}
		if p.DecayRate < 0.02 || p.DecayRate > 0.37 {
			t.Fatalf("DecayRate = %v outside [0.02, 0.37]", p.DecayRate)
		}
		if p.InteractionRadius < 30 || p.InteractionRadius > 150 || p.InteractionRadius != math.Round(p.InteractionRadius) {
			t.Fatalf("InteractionRadius = %v", p.InteractionRadius)
		}
		if p.Name != "Randomized" {
			t.Fatalf("Name = %q", p.Name)
		}
		if s.Len() != p.ParticleCount {
			t.Fatalf("Len = %d, want %d", s.Len(), p.ParticleCount)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("randomized params invalid: %v", err)
		}
	}
}

func TestSetConfigurationCapsParticleCount(t *testing.T) {
	s := newTestSim(t, nil)
	if err := s.SetConfiguration(config.Patch{ParticleCount: config.Float(1e12)}); err != nil {
		t.Fatalf("SetConfiguration: %v", err)
	}
	if s.Len() != config.MaxParticleCount || s.Params().ParticleCount != config.MaxParticleCount {
		t.Errorf("Len = %d, ParticleCount = %d, want %d", s.Len(), s.Params().ParticleCount, config.MaxParticleCount)
	}
}

func TestSetConfigurationParticleCount(t *testing.T) {
	s := newTestSim(t, nil)
	// Every particle's life passes 1
	for range 120 {
		s.Step()
	}
	inits := s.Initializations()

	if err := s.SetConfiguration(config.Patch{ParticleCount: config.Float(37)}); err != nil {
		t.Fatalf("SetConfiguration: %v", err)
	}
	if got := s.Initializations() - inits; got != 1 {
		t.Errorf("reinitializations = %d, want 1", got)
	}
	if s.Len() != 37 {
		t.Errorf("Len = %d, want 37", s.Len())
	}
	for i, p := range s.Particles() {
		if p.Life >= 1 {
			t.Fatalf("particle %d kept old state (life %v)", i, p.Life)
		}
	}

	// Same count again does not reinitialize
	inits = s.Initializations()
	if err := s.SetConfiguration(config.Patch{ParticleCount: config.Float(37)}); err != nil {
		t.Fatal(err)
	}
	if s.Initializations() != inits {
		t.Error("unchanged count reinitialized")
	}
}

func TestSetConfigurationLiveFields(t *testing.T) {
	s := newTestSim(t, nil)
	before := s.Particles()
	inits := s.Initializations()

	err := s.SetConfiguration(config.Patch{
		Cohesion:          config.Float(1.2),
		InteractionRadius: config.Float(90),
		Name:              config.String("Custom"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Initializations() != inits {
		t.Error("non-count fields should not reinitialize")
	}
	p := s.Params()
	if p.Cohesion != 1.2 || p.InteractionRadius != 90 || p.Name != "Custom" {
		t.Errorf("params not applied: %+v", p)
	}
	after := s.Particles()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("particle %d changed", i)
		}
	}
}

func TestSetConfigurationRejectsNonFinite(t *testing.T) {
	s := newTestSim(t, nil)
	old := s.Params()

	err := s.SetConfiguration(config.Patch{
		FieldStrength: config.Float(math.NaN()),
		Turbulence:    config.Float(math.Inf(1)),
		Cohesion:      config.Float(0.9),
	})
	if !errors.Is(err, config.ErrNonFinite) {
		t.Fatalf("err = %v, want ErrNonFinite", err)
	}
	p := s.Params()
	if p.FieldStrength != old.FieldStrength || p.Turbulence != old.Turbulence {
		t.Errorf("rejected fields changed: %+v", p)
	}
	if p.Cohesion != 0.9 {
		t.Errorf("valid field not applied: Cohesion = %v", p.Cohesion)
	}

	// Still steps with finite state
	s.Step()
	for i, q := range s.Particles() {
		if math.IsNaN(q.Pos.X) || math.IsNaN(q.Pos.Y) {
			t.Fatalf("particle %d NaN", i)
		}
	}
}

func TestResize(t *testing.T) {
	s := newTestSim(t, nil)
	if err := s.Resize(100, 50); err != nil {
		t.Fatal(err)
	}
	if w, h := s.Size(); w != 100 || h != 50 {
		t.Errorf("Size = %vx%v", w, h)
	}
	for i, p := range s.Particles() {
		if p.Pos.X >= 100 || p.Pos.Y >= 50 {
			t.Fatalf("particle %d at %v outside new frame", i, p.Pos)
		}
	}
	if err := s.Resize(0, 50); err == nil {
		t.Error("expected error for zero width")
	}
	if w, _ := s.Size(); w != 100 {
		t.Error("failed resize changed the frame")
	}
}

func TestReset(t *testing.T) {
	s := newTestSim(t, nil)
	for range 20 {
		s.Step()
	}
	s.Reset()
	if s.Time() != 0 || s.Steps() != 0 {
		t.Errorf("clock = %v/%d after Reset", s.Time(), s.Steps())
	}
	if s.Len() != s.Params().ParticleCount {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestSpatialGridMatchesBruteForce(t *testing.T) {
	for _, mode := range []UpdateMode{UpdateSequential, UpdateSynchronous} {
		t.Run(mode.String(), func(t *testing.T) {
			mk := func(grid bool) *Simulation {
				return newTestSim(t, func(o *Options) {
					o.Seed = 7
					o.Mode = mode
					o.SpatialGrid = grid
					o.Params.ParticleCount = 250
					o.Params.InteractionRadius = 45
					o.Params.Cohesion = 1.4
				})
			}
			brute, grid := mk(false), mk(true)

			for step := range 300 {
				brute.Step()
				grid.Step()
				if brute.LastNeighborCount() != grid.LastNeighborCount() {
					t.Fatalf("step %d: neighbors %d vs %d", step, brute.LastNeighborCount(), grid.LastNeighborCount())
				}
			}
			pb, pg := brute.Particles(), grid.Particles()
			for i := range pb {
				if pb[i] != pg[i] {
					t.Fatalf("particle %d differs: %+v vs %+v", i, pb[i], pg[i])
				}
			}
		})
	}
}

func TestSynchronousWorkersMatchSingleThread(t *testing.T) {
	for _, grid := range []bool{false, true} {
		mk := func(workers int) *Simulation {
			return newTestSim(t, func(o *Options) {
				o.Seed = 11
				o.Mode = UpdateSynchronous
				o.SpatialGrid = grid
				o.Workers = workers
				o.Params.ParticleCount = 300
			})
		}
		single, pooled := mk(1), mk(4)

		for step := range 200 {
			single.Step()
			pooled.Step()
			if single.LastNeighborCount() != pooled.LastNeighborCount() {
				t.Fatalf("grid=%v step %d: neighbors %d vs %d", grid, step, single.LastNeighborCount(), pooled.LastNeighborCount())
			}
		}
		ps, pp := single.Particles(), pooled.Particles()
		for i := range ps {
			if ps[i] != pp[i] {
				t.Fatalf("grid=%v particle %d differs: %+v vs %+v", grid, i, ps[i], pp[i])
			}
		}
	}
}

func TestCloseRestartsWorkers(t *testing.T) {
	s := newTestSim(t, func(o *Options) {
		o.Mode = UpdateSynchronous
		o.Workers = 3
		o.Params.ParticleCount = 100
	})
	s.Step()
	s.Close()
	s.Close()
	if !s.Step() {
		t.Fatal("step after Close should run")
	}
	if s.Steps() != 2 {
		t.Errorf("steps = %d, want 2", s.Steps())
	}
}

func TestSynchronousOrderIndependent(t *testing.T) {
	params := config.DefaultParams()
	params.ParticleCount = 4
	pos := []r2.Vec{{X: 100, Y: 100}, {X: 110, Y: 104}, {X: 95, Y: 120}, {X: 130, Y: 90}}
	rev := []r2.Vec{pos[3], pos[2], pos[1], pos[0]}

	fwd := newTestSim(t, func(o *Options) { o.Mode = UpdateSynchronous })
	bwd := newTestSim(t, func(o *Options) { o.Mode = UpdateSynchronous })
	place(t, fwd, params, pos...)
	place(t, bwd, params, rev...)

	fwd.Step()
	bwd.Step()

	pf, pb := fwd.Particles(), bwd.Particles()
	n := len(pf)
	for i := range pf {
		d := r2.Norm(r2.Sub(pf[i].Pos, pb[n-1-i].Pos))
		if d > 1e-9 {
			t.Errorf("particle %d: %v vs %v", i, pf[i].Pos, pb[n-1-i].Pos)
		}
	}
}

func TestSequentialSeesEarlierMoves(t *testing.T) {
	params := config.DefaultParams()
	params.ParticleCount = 2
	params.FieldStrength = 0
	pos := []r2.Vec{{X: 400, Y: 300}, {X: 410, Y: 300}}

	seq := newTestSim(t, func(o *Options) { o.Mode = UpdateSequential })
	syn := newTestSim(t, func(o *Options) { o.Mode = UpdateSynchronous })
	place(t, seq, params, pos...)
	place(t, syn, params, pos...)
	seq.Step()
	syn.Step()

	// The first particle sees the same pre-step state in both modes
	if seq.Particles()[0] != syn.Particles()[0] {
		t.Error("first particle should match across modes")
	}
	if seq.Particles()[1] == syn.Particles()[1] {
		t.Error("second particle should see the first at its new position")
	}
}

func TestTwoParticleRepulsion(t *testing.T) {
	params := config.DefaultParams()
	params.ParticleCount = 2
	params.FieldStrength = 0
	params.InteractionRadius = 70

	s := newTestSim(t, nil)
	place(t, s, params, r2.Vec{X: 400, Y: 300}, r2.Vec{X: 410, Y: 300})

	sep := func() float64 {
		p := s.Particles()
		return r2.Norm(r2.Sub(p[1].Pos, p[0].Pos))
	}

	s.Step()
	if d := sep(); d <= 10 {
		t.Fatalf("separation after one step = %v, want > 10", d)
	}

	for range 3000 {
		s.Step()
	}
	// Repulsion and cohesion balance near 19.2
	d := sep()
	if d < 15 || d > 25 {
		t.Errorf("separation after settling = %v, want near 19", d)
	}
	for i, p := range s.Particles() {
		if p.Speed() > 0.01 {
			t.Errorf("particle %d still moving at %v", i, p.Speed())
		}
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	a := newTestSim(t, func(o *Options) { o.Seed = 3 })
	for range 25 {
		a.Step()
	}
	a.Pause()
	snap := a.Snapshot()

	b := newTestSim(t, func(o *Options) { o.Seed = 99 })
	if err := b.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if b.State() != StatePaused || b.Steps() != 25 {
		t.Errorf("restored state %v steps %d", b.State(), b.Steps())
	}

	a.Resume()
	b.Resume()
	for range 10 {
		a.Step()
		b.Step()
	}
	pa, pb := a.Particles(), b.Particles()
	for i := range pa {
		if pa[i].Pos != pb[i].Pos || pa[i].Vel != pb[i].Vel {
			t.Fatalf("particle %d diverged after restore", i)
		}
	}
}

func TestRestoreRejectsBadParticles(t *testing.T) {
	params := config.DefaultParams()
	params.ParticleCount = 1
	ok := telemetry.ParticleState{X: 10, Y: 20}

	tests := []struct {
		name      string
		particles []telemetry.ParticleState
	}{
		{"nan y", []telemetry.ParticleState{{X: 5000, Y: math.NaN()}}},
		{"inf velocity", []telemetry.ParticleState{{X: 10, Y: 20, VX: math.Inf(1)}}},
		{"nan hue", []telemetry.ParticleState{{X: 10, Y: 20, Hue: math.NaN()}}},
		{"x beyond frame", []telemetry.ParticleState{{X: 5000, Y: 20}}},
		{"x on right edge", []telemetry.ParticleState{{X: 800, Y: 20}}},
		{"negative y", []telemetry.ParticleState{{X: 10, Y: -0.5}}},
		{"too many", []telemetry.ParticleState{ok, ok}},
		{"too few", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim(t, nil)
			before := s.Particles()
			snap := &telemetry.Snapshot{
				Version:   telemetry.SnapshotVersion,
				Width:     800,
				Height:    600,
				Params:    params,
				Particles: tt.particles,
			}
			if err := s.Restore(snap); err == nil {
				t.Fatal("Restore accepted invalid snapshot")
			}
			if s.Len() != len(before) || s.Params() != config.DefaultParams() {
				t.Errorf("rejected Restore changed the simulation: len %d params %+v", s.Len(), s.Params())
			}

			s.Step()
			for i, p := range s.Particles() {
				if !finiteAll(p.Pos.X, p.Pos.Y, p.Vel.X, p.Vel.Y, p.Hue) {
					t.Fatalf("particle %d non-finite after step: %+v", i, p)
				}
				if p.Pos.X < 0 || p.Pos.X >= 800 || p.Pos.Y < 0 || p.Pos.Y >= 600 {
					t.Fatalf("particle %d out of frame after step: %v", i, p.Pos)
				}
			}
		})
	}
}

func TestParseUpdateMode(t *testing.T) {
	tests := []struct {
		in      string
		want    UpdateMode
		wantErr bool
	}{
		{"", UpdateSequential, false},
		{"sequential", UpdateSequential, false},
		{"synchronous", UpdateSynchronous, false},
		{"parallel", UpdateSequential, true},
	}
	for _, tt := range tests {
		got, err := ParseUpdateMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseUpdateMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}
