package telemetry

import (
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is the observable swarm state at one step, in the JSON shape
// the frame streamer sends to its clients.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed,omitempty"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Time   float64 `json:"time"`
	Steps  int64   `json:"steps"`
	Paused bool    `json:"paused"`

	Params    config.Params   `json:"params"`
	Particles []ParticleState `json:"particles"`
}

// ParticleState holds one particle's observable state.
type ParticleState struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VX   float64 `json:"vx"`
	VY   float64 `json:"vy"`
	Hue  float64 `json:"hue"`
	Life float64 `json:"life"`
}

// AppendParticleStates converts particles and appends them to dst.
func AppendParticleStates(dst []ParticleState, particles []systems.Particle) []ParticleState {
	for i := range particles {
		p := &particles[i]
		dst = append(dst, ParticleState{
			X:    p.Pos.X,
			Y:    p.Pos.Y,
			VX:   p.Vel.X,
			VY:   p.Vel.Y,
			Hue:  p.Hue,
			Life: p.Life,
		})
	}
	return dst
}
