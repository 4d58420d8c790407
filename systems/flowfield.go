package systems

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// Tracer motion constants
const (
	tracerFriction = 0.95
	tracerMaxSpeed = 1.5
	tracerMinLife  = 800
	tracerLifeSpan = 600
	tracerSpawn    = 50 // max new tracers per update
)

// TracerTrailLen is the number of past positions a tracer remembers.
const TracerTrailLen = 8

// Tracer is a massless marker moved by the flow field alone. Tracers make
// the field that steers the swarm visible; they never touch the particles.
type Tracer struct {
	Pos, Vel r2.Vec
	Life     int32 // steps left
	MaxLife  int32
	Opacity  float64
	Size     float64
	Trail    [TracerTrailLen]r2.Vec // most recent first
	TrailLen uint8
}

// FlowTracers keeps a population of tracers topped up and advects them.
type FlowTracers struct {
	Tracers []Tracer
	target  int
	rng     *rand.Rand
}

// NewFlowTracers creates an empty population that grows to target.
func NewFlowTracers(target int, rng *rand.Rand) *FlowTracers {
	return &FlowTracers{
		Tracers: make([]Tracer, 0, target),
		target:  target,
		rng:     rng,
	}
}

// Reset drops every tracer, e.g. after the frame changes size.
func (f *FlowTracers) Reset() {
	f.Tracers = f.Tracers[:0]
}

// Update spawns tracers up to the target count, then advances each one
// by FlowForce and drops those whose life ran out.
func (f *FlowTracers) Update(env *Env) {
	for i := 0; i < tracerSpawn && len(f.Tracers) < f.target; i++ {
		life := int32(tracerMinLife + f.rng.Intn(tracerLifeSpan))
		f.Tracers = append(f.Tracers, Tracer{
			Pos:     r2.Vec{X: f.rng.Float64() * env.Width, Y: f.rng.Float64() * env.Height},
			Life:    life,
			MaxLife: life,
			Opacity: 0.15 + f.rng.Float64()*0.15,
			Size:    0.5 + f.rng.Float64()*0.3,
		})
	}

	alive := 0
	for i := range f.Tracers {
		t := &f.Tracers[i]

		t.Life--
		if t.Life <= 0 {
			continue
		}

		// Shift trail history and add current position
		copy(t.Trail[1:], t.Trail[:TracerTrailLen-1])
		t.Trail[0] = t.Pos
		if t.TrailLen < TracerTrailLen {
			t.TrailLen++
		}

		t.Vel = r2.Scale(tracerFriction, r2.Add(t.Vel, FlowForce(env, t.Pos)))
		if speed := r2.Norm(t.Vel); speed > tracerMaxSpeed {
			t.Vel = r2.Scale(tracerMaxSpeed/speed, t.Vel)
		}

		next := r2.Add(t.Pos, t.Vel)
		t.Pos = r2.Vec{X: wrapCoord(next.X, env.Width), Y: wrapCoord(next.Y, env.Height)}
		if t.Pos != next {
			// Don't draw a line across the frame
			t.TrailLen = 0
		}

		f.Tracers[alive] = *t
		alive++
	}
	f.Tracers = f.Tracers[:alive]
}
