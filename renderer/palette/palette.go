// Package palette maps swarm state to colors and sizes. It has no graphics
// dependency so the raylib and terminal viewers share it.
package palette

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarm/systems"
)

// Saturation and lightness per layer.
const (
	glowSat, glowLight = 0.80, 0.65
	glowMidSat         = 0.75
	glowMidLight       = 0.60
	coreSat, coreLight = 0.90, 0.75
	linkSat, linkLight = 0.65, 0.55
)

// Alphas per layer.
const (
	GlowAlpha    = 0.6
	GlowMidAlpha = 0.2
	CoreAlpha    = 0.9
	LinkMaxAlpha = 0.3
)

// Size model
const (
	BaseSize       = 1.5
	SizePerSpeed   = 0.4
	GlowSizeFactor = 3.0
)

// Background is the trail fade color.
var Background = color.RGBA{R: 10, G: 10, B: 20, A: 255}

// HSLA returns a straight-alpha color. Hue is in degrees and may lie
// outside [0, 360).
func HSLA(hue, sat, light, alpha float64) color.RGBA {
	r, g, b := colorful.Hsl(wrapHue(hue), sat, light).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: alpha8(alpha)}
}

// Faded returns the opaque core color of hue mixed into Background:
// t = 0 is pure background, t = 1 is the core color. Viewers without
// alpha blending use it to draw trails.
func Faded(hue, t float64) color.RGBA {
	bg := colorful.Color{
		R: float64(Background.R) / 255,
		G: float64(Background.G) / 255,
		B: float64(Background.B) / 255,
	}
	core := colorful.Hsl(wrapHue(hue), coreSat, coreLight)
	r, g, b := bg.BlendRgb(core, min(max(t, 0), 1)).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Glow is the inner color of a particle's halo.
func Glow(hue float64) color.RGBA { return HSLA(hue, glowSat, glowLight, GlowAlpha) }

// GlowMid is the halo color halfway out.
func GlowMid(hue float64) color.RGBA { return HSLA(hue, glowMidSat, glowMidLight, GlowMidAlpha) }

// Core is the solid center of a particle.
func Core(hue float64) color.RGBA { return HSLA(hue, coreSat, coreLight, CoreAlpha) }

// Link is the color of a connection between two particles.
func Link(hueA, hueB, alpha float64) color.RGBA {
	return HSLA((hueA+hueB)/2, linkSat, linkLight, alpha)
}

// Size is a particle's core radius.
func Size(speed float64) float64 {
	return BaseSize + speed*SizePerSpeed
}

// LinkAlpha fades a connection from LinkMaxAlpha at zero distance to
// nothing at the radius.
func LinkAlpha(distSq, radiusSq float64) float64 {
	if radiusSq <= 0 || distSq >= radiusSq {
		return 0
	}
	return (1 - distSq/radiusSq) * LinkMaxAlpha
}

// LinkWidth is a connection's stroke width.
func LinkWidth(alpha float64) float64 {
	return 0.5 + alpha*1.5
}

// FadeAlpha is the background overlay alpha for one frame of trail decay.
func FadeAlpha(decayRate float64) uint8 {
	return alpha8(decayRate)
}

// Links calls fn once for every unordered pair closer than radius, with
// i < j. grid is rebuilt from particles; pass nil to scan every pair.
func Links(grid *systems.SpatialGrid, particles []systems.Particle, radius float64, fn func(i, j int, distSq float64)) {
	radiusSq := radius * radius
	visit := func(i, j int) {
		if distSq := r2.Norm2(r2.Sub(particles[j].Pos, particles[i].Pos)); distSq < radiusSq {
			fn(i, j, distSq)
		}
	}

	if grid == nil {
		for i := range particles {
			for j := i + 1; j < len(particles); j++ {
				visit(i, j)
			}
		}
		return
	}

	grid.Rebuild(particles)
	var candidates []int
	for i := range particles {
		candidates = grid.QueryRadiusInto(candidates[:0], particles[i].Pos, radius)
		for _, j := range candidates {
			if j > i {
				visit(i, j)
			}
		}
	}
}

func wrapHue(hue float64) float64 {
	h := math.Mod(hue, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func alpha8(a float64) uint8 {
	if a <= 0 || math.IsNaN(a) {
		return 0
	}
	if a >= 1 {
		return 255
	}
	return uint8(math.Round(a * 255))
}
