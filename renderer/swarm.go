package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/renderer/palette"
	"github.com/pthm-cable/swarm/systems"
)

// SwarmRenderer draws the swarm into a persistent trail texture. Each frame
// fades the previous one by the decay rate before drawing on top.
type SwarmRenderer struct {
	width, height int32
	trails        rl.RenderTexture2D
	initialized   bool

	grid *systems.SpatialGrid

	Connections bool
	Glow        bool
}

// NewSwarmRenderer creates a renderer for a width x height frame.
func NewSwarmRenderer(width, height int32, connections, glow bool) *SwarmRenderer {
	return &SwarmRenderer{
		width:       width,
		height:      height,
		Connections: connections,
		Glow:        glow,
	}
}

// Init allocates the trail texture (must be called after the raylib window is created).
func (r *SwarmRenderer) Init() {
	if r.initialized {
		return
	}
	r.trails = rl.LoadRenderTexture(r.width, r.height)
	rl.BeginTextureMode(r.trails)
	rl.ClearBackground(palette.Background)
	rl.EndTextureMode()
	r.initialized = true
}

// Resize reallocates the trail texture, discarding old trails.
func (r *SwarmRenderer) Resize(width, height int32) {
	r.Unload()
	r.width, r.height = width, height
	r.grid = nil
	r.Init()
}

// Update fades the trails and draws the current particles into them.
// Call once per simulation step; a paused swarm keeps its last frame.
func (r *SwarmRenderer) Update(particles []systems.Particle, params config.Params) {
	if !r.initialized {
		r.Init()
	}

	rl.BeginTextureMode(r.trails)

	fade := palette.Background
	fade.A = palette.FadeAlpha(params.DecayRate)
	rl.DrawRectangle(0, 0, r.width, r.height, fade)

	if r.Connections {
		r.drawConnections(particles, params.InteractionRadius)
	}
	r.drawParticles(particles)

	rl.EndTextureMode()
}

func (r *SwarmRenderer) drawConnections(particles []systems.Particle, radius float64) {
	w, h := float64(r.width), float64(r.height)
	if r.grid == nil || !r.grid.Matches(w, h, radius) {
		r.grid = systems.NewSpatialGrid(w, h, radius)
	}

	radiusSq := radius * radius
	palette.Links(r.grid, particles, radius, func(i, j int, distSq float64) {
		a, b := &particles[i], &particles[j]
		alpha := palette.LinkAlpha(distSq, radiusSq)
		rl.DrawLineEx(
			rl.Vector2{X: float32(a.Pos.X), Y: float32(a.Pos.Y)},
			rl.Vector2{X: float32(b.Pos.X), Y: float32(b.Pos.Y)},
			float32(palette.LinkWidth(alpha)),
			palette.Link(a.Hue, b.Hue, alpha),
		)
	})
}

func (r *SwarmRenderer) drawParticles(particles []systems.Particle) {
	for i := range particles {
		p := &particles[i]
		size := float32(palette.Size(p.Speed()))
		x, y := int32(p.Pos.X), int32(p.Pos.Y)

		if r.Glow {
			mid := palette.GlowMid(p.Hue)
			clear := mid
			clear.A = 0
			halo := size * palette.GlowSizeFactor
			rl.DrawCircleGradient(x, y, halo, mid, clear)
			rl.DrawCircleGradient(x, y, halo/2, palette.Glow(p.Hue), mid)
		}

		rl.DrawCircleV(rl.Vector2{X: float32(p.Pos.X), Y: float32(p.Pos.Y)}, size, palette.Core(p.Hue))
	}
}

// Draw blits the trail texture to the screen.
func (r *SwarmRenderer) Draw() {
	if !r.initialized {
		return
	}
	// Render textures are stored upside down
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(r.width), Height: -float32(r.height)}
	rl.DrawTextureRec(r.trails.Texture, src, rl.Vector2{}, rl.White)
}

// Unload frees resources.
func (r *SwarmRenderer) Unload() {
	if r.initialized {
		rl.UnloadRenderTexture(r.trails)
		r.initialized = false
	}
}
