// Package renderer provides rendering utilities.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarm/systems"
)

// tracerColor is a muted blue that stays behind the swarm's hues.
var tracerColor = rl.Color{R: 50, G: 100, B: 130}

// FlowRenderer draws flow tracers with fading trails.
type FlowRenderer struct{}

// NewFlowRenderer creates a new flow renderer.
func NewFlowRenderer() *FlowRenderer {
	return &FlowRenderer{}
}

// Draw renders tracers directly to the screen with additive blending.
// simTime drives the shimmer.
func (r *FlowRenderer) Draw(tracers []systems.Tracer, simTime float64) {
	rl.BeginBlendMode(rl.BlendAdditive)

	for i := range tracers {
		t := &tracers[i]

		// Need at least 1 trail point to draw
		if t.TrailLen < 1 {
			continue
		}

		baseAlpha := tracerAlpha(t, simTime)
		if baseAlpha < 2 {
			continue
		}

		// Current position to first trail point
		drawSegment(t.Pos, t.Trail[0], float32(t.Size*2), baseAlpha)

		// Rest of trail with quadratic falloff
		for j := uint8(0); j+1 < t.TrailLen; j++ {
			fade := 1 - float64(j+1)/float64(t.TrailLen)
			fade *= fade

			alpha := baseAlpha * fade
			if alpha < 1 {
				continue
			}
			drawSegment(t.Trail[j], t.Trail[j+1], float32(t.Size*2*fade), alpha)
		}
	}

	rl.EndBlendMode()
}

// tracerAlpha fades a tracer in over its first fifth of life, slightly out
// at the end, and pulses it by position.
func tracerAlpha(t *systems.Tracer, simTime float64) float64 {
	lifeRatio := float64(t.Life) / float64(t.MaxLife)

	fadeIn := math.Min(lifeRatio*5, 1)
	fadeIn *= fadeIn
	fadeOut := math.Min((1-lifeRatio)*3+0.7, 1)

	phase := t.Pos.X*0.01 + t.Pos.Y*0.01
	pulse := math.Sin(simTime*2+phase)*0.5 + 0.5
	modulation := 0.3 + pulse*0.7

	return t.Opacity * fadeIn * fadeOut * modulation * 120
}

func drawSegment(from, to r2.Vec, width float32, alpha float64) {
	c := tracerColor
	c.A = uint8(min(alpha, 255))
	rl.DrawLineEx(
		rl.Vector2{X: float32(from.X), Y: float32(from.Y)},
		rl.Vector2{X: float32(to.X), Y: float32(to.Y)},
		width,
		c,
	)
}
