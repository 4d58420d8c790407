package main

import (
	"log/slog"
	"math/rand"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/game"
	"github.com/pthm-cable/swarm/renderer"
	"github.com/pthm-cable/swarm/renderer/palette"
	"github.com/pthm-cable/swarm/systems"
	"github.com/pthm-cable/swarm/ui"
)

const controlsLegend = "[Space] Play/Pause  [R] Randomize  [Tab] Panel  [C] Links  [G] Glow  [V] Flow  [H] HUD  [F] Perf"

// viewer is the raylib front end: it owns the window-side state and
// forwards user edits to the simulation.
type viewer struct {
	runner *game.Runner
	sim    *game.Simulation

	swarm    *renderer.SwarmRenderer
	flow     *renderer.FlowRenderer
	tracers  *systems.FlowTracers
	overlays *ui.OverlayRegistry
	controls *ui.ControlsPanel
	hud      *ui.HUD
	perf     *ui.PerfPanel

	panelWidth int32
	particles  []systems.Particle
}

func newViewer(r *game.Runner, cfg *config.Config) *viewer {
	w, h := r.Sim().Size()
	v := &viewer{
		runner:     r,
		sim:        r.Sim(),
		swarm:      renderer.NewSwarmRenderer(int32(w), int32(h), cfg.Viewer.Connections, cfg.Viewer.Glow),
		flow:       renderer.NewFlowRenderer(),
		tracers:    systems.NewFlowTracers(cfg.Viewer.FlowTracers, rand.New(rand.NewSource(time.Now().UnixNano()))),
		overlays:   ui.NewOverlayRegistry(),
		hud:        ui.NewHUD(),
		perf:       ui.NewPerfPanel(10, 100),
		panelWidth: cfg.Viewer.PanelWidth,
	}
	v.controls = ui.NewControlsPanel(int32(w)-v.panelWidth-10, 10, v.panelWidth)

	v.overlays.SetEnabled(ui.OverlayConnections, cfg.Viewer.Connections)
	v.overlays.SetEnabled(ui.OverlayGlow, cfg.Viewer.Glow)
	v.overlays.SetEnabled(ui.OverlayControls, true)
	v.overlays.SetEnabled(ui.OverlayHUD, true)

	v.swarm.Init()
	return v
}

// Frame handles input, steps the simulation and draws one frame.
func (v *viewer) Frame() {
	v.runner.Perf().RecordFrame()

	if rl.IsWindowResized() {
		v.resize(int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight()))
	}
	v.handleKeys()

	if steps := v.runner.Update(); steps > 0 {
		if v.overlays.IsEnabled(ui.OverlayFlow) {
			env := v.sim.Env()
			for range steps {
				v.tracers.Update(&env)
			}
		}
		v.particles = v.sim.AppendParticles(v.particles[:0])
		v.swarm.Connections = v.overlays.IsEnabled(ui.OverlayConnections)
		v.swarm.Glow = v.overlays.IsEnabled(ui.OverlayGlow)
		v.swarm.Update(v.particles, v.sim.Params())
	}

	rl.BeginDrawing()
	rl.ClearBackground(palette.Background)
	v.swarm.Draw()
	if v.overlays.IsEnabled(ui.OverlayFlow) {
		v.flow.Draw(v.tracers.Tracers, v.sim.Time())
	}

	_, h := v.sim.Size()
	if v.overlays.IsEnabled(ui.OverlayHUD) {
		v.hud.Draw(ui.HUDData{
			Title:     "Swarm",
			StyleName: v.sim.Params().Name,
			Mode:      v.sim.Mode().String(),
			Particles: v.sim.Len(),
			Steps:     v.sim.Steps(),
			SimTime:   v.sim.Time(),
			FPS:       rl.GetFPS(),
			Paused:    v.sim.State() == game.StatePaused,
		})
		v.hud.DrawControls(int32(h), controlsLegend)
	}
	if v.overlays.IsEnabled(ui.OverlayPerf) {
		v.perf.Draw(v.runner.Perf().Stats())
	}

	var act ui.Action
	if v.overlays.IsEnabled(ui.OverlayControls) {
		act = v.controls.Draw(v.sim.Params(), v.sim.State() == game.StatePaused, v.overlays)
	}
	rl.EndDrawing()

	v.apply(act)
}

func (v *viewer) handleKeys() {
	v.overlays.HandleKeys()

	if rl.IsKeyPressed(rl.KeySpace) {
		v.sim.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.sim.Randomize()
	}
}

func (v *viewer) apply(act ui.Action) {
	if !act.Patch.IsEmpty() {
		// Rejections are logged by the simulation
		_ = v.sim.SetConfiguration(act.Patch)
	}
	if act.Randomize {
		v.sim.Randomize()
	}
	if act.TogglePlay {
		v.sim.Toggle()
	}
}

func (v *viewer) resize(w, h int32) {
	if w <= 0 || h <= 0 {
		return
	}
	if err := v.sim.Resize(float64(w), float64(h)); err != nil {
		slog.Error("resize failed", "error", err)
		return
	}
	v.swarm.Resize(w, h)
	v.tracers.Reset()
	v.controls.SetPosition(w-v.panelWidth-10, 10)
}

// Unload frees GPU resources.
func (v *viewer) Unload() {
	v.swarm.Unload()
}
