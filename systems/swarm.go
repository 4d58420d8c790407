package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarm/config"
)

// Flow field octaves
const (
	flowScale1  = 0.003 // primary spatial frequency, times turbulence
	flowTime1   = 0.5
	flowGain1   = 0.15
	flowScale2  = 0.01 // secondary spatial frequency, times v1
	flowTime2   = 0.3
	flowOffset2 = 100.0 // decorrelates the second octave in time
	flowGain2   = 0.08
)

// Neighbor interaction
const (
	MinNeighborDist = 0.1  // closer pairs are ignored to avoid 1/dist blow-up
	RepelRadius     = 20.0 // repulsion engages below this distance
	repelGain       = 0.3
	cohesionGain    = 0.001
)

// Integration
const (
	Damping  = 0.97
	MaxSpeed = 2.5
	LifeStep = 0.01
)

// Hue
const (
	hueBase       = 160.0
	hueSpeedGain  = 15.0
	hueNoiseScale = 0.01
	hueTime       = 0.2
	hueNoiseGain  = 80.0
)

// Particle is a point mass in the swarm.
type Particle struct {
	Pos r2.Vec
	Vel r2.Vec
	Acc r2.Vec // recomputed from zero every step
	Hue float64
	// Life grows by LifeStep per step and is never read by the engine.
	Life float64
}

// Speed returns the velocity magnitude.
func (p *Particle) Speed() float64 {
	return r2.Norm(p.Vel)
}

// Env is the read-only context for one particle update.
type Env struct {
	Width, Height float64
	Time          float64
	Params        config.Params
	Noise         NoiseField
}

// FlowForce returns the two-octave noise force at pos.
func FlowForce(env *Env, pos r2.Vec) r2.Vec {
	s1 := flowScale1 * env.Params.Turbulence
	a1 := env.Noise.Noise3D(pos.X*s1, pos.Y*s1, env.Time*flowTime1) * 4 * math.Pi

	s2 := flowScale2 * env.Params.V1
	a2 := env.Noise.Noise3D(pos.X*s2, pos.Y*s2, env.Time*flowTime2+flowOffset2) * 2 * math.Pi

	strength := env.Params.FieldStrength
	f := r2.Scale(strength*flowGain1, r2.Vec{X: math.Cos(a1), Y: math.Sin(a1)})
	return r2.Add(f, r2.Scale(strength*flowGain2*env.Params.SecondaryWeight(), r2.Vec{X: math.Cos(a2), Y: math.Sin(a2)}))
}

// Interaction is the neighbor contribution to one particle's acceleration.
type Interaction struct {
	Neighbors int
	Cohesion  r2.Vec
	Repulsion r2.Vec
}

// Interact scans others for neighbors of p. self is p's index in others and
// is skipped. When candidates is non-nil only those indices are visited, in
// the order given; callers pass them ascending to match a full scan.
func (p *Particle) Interact(env *Env, others []Particle, self int, candidates []int) Interaction {
	radius := env.Params.InteractionRadius
	radiusSq := radius * radius

	var in Interaction
	var sum r2.Vec

	visit := func(j int) {
		if j == self {
			return
		}
		o := &others[j]
		d := r2.Sub(o.Pos, p.Pos)
		distSq := r2.Norm2(d)
		if distSq >= radiusSq {
			return
		}
		dist := math.Sqrt(distSq)
		if dist <= MinNeighborDist {
			return
		}

		in.Neighbors++
		sum = r2.Add(sum, o.Pos)

		if dist < RepelRadius {
			push := (RepelRadius - dist) / RepelRadius * repelGain
			in.Repulsion = r2.Sub(in.Repulsion, r2.Scale(push/dist, d))
		}
	}

	if candidates == nil {
		for j := range others {
			visit(j)
		}
	} else {
		for _, j := range candidates {
			visit(j)
		}
	}

	if in.Neighbors > 0 {
		centroid := r2.Scale(1/float64(in.Neighbors), sum)
		in.Cohesion = r2.Scale(env.Params.Cohesion*cohesionGain, r2.Sub(centroid, p.Pos))
	}
	return in
}

// Update advances p by one step against the current state of others and
// returns the number of neighbors it saw. See Interact for self and
// candidates.
func (p *Particle) Update(env *Env, others []Particle, self int, candidates []int) int {
	in := p.Interact(env, others, self, candidates)

	p.Acc = FlowForce(env, p.Pos)
	p.Acc = r2.Add(p.Acc, in.Cohesion)
	p.Acc = r2.Add(p.Acc, in.Repulsion)

	speed := p.Integrate(p.Acc, env.Width, env.Height)

	p.Hue = hueBase + speed*hueSpeedGain +
		env.Noise.Noise3D(p.Pos.X*hueNoiseScale, p.Pos.Y*hueNoiseScale, env.Time*hueTime)*hueNoiseGain
	p.Life += LifeStep

	return in.Neighbors
}

// Integrate applies acc, damping, the speed cap, and toroidal wrap.
// It returns the damped speed before capping, which drives the hue.
func (p *Particle) Integrate(acc r2.Vec, width, height float64) float64 {
	p.Vel = r2.Scale(Damping, r2.Add(p.Vel, acc))

	speed := r2.Norm(p.Vel)
	if speed > MaxSpeed {
		p.Vel = r2.Scale(MaxSpeed/speed, p.Vel)
	}

	p.Pos = r2.Add(p.Pos, p.Vel)
	p.Pos.X = wrapCoord(p.Pos.X, width)
	p.Pos.Y = wrapCoord(p.Pos.Y, height)
	return speed
}
