package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/telemetry"
)

// HUDData is what the top-left overlay shows.
type HUDData struct {
	Title     string
	StyleName string
	Mode      string
	Particles int
	Steps     int64
	SimTime   float64
	FPS       int32
	Paused    bool
}

// HUD draws the status block and the key legend.
type HUD struct {
	lines []string
}

func NewHUD() *HUD {
	return &HUD{}
}

// Draw renders data in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	h.lines = append(h.lines[:0],
		fmt.Sprintf("%s | %d particles | %s", data.StyleName, data.Particles, data.Mode),
		fmt.Sprintf("step %d | t %.2f | %d fps", data.Steps, data.SimTime, data.FPS),
	)
	y := int32(35)
	for _, line := range h.lines {
		rl.DrawText(line, 10, y, 16, rl.LightGray)
		y += 20
	}
	if data.Paused {
		rl.DrawText("PAUSED", 10, y, 16, rl.Yellow)
	}
}

// DrawControls draws the key legend along the bottom edge.
func (h *HUD) DrawControls(screenHeight int32, legend string) {
	rl.DrawText(legend, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders step phase timings.
type PerfPanel struct {
	x, y int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Step Performance", x, y, 16, rl.White)
	y += 20

	us := func(d time.Duration) time.Duration { return d.Round(time.Microsecond) }
	rl.DrawText(fmt.Sprintf("avg %s  p95 %s  %.0f steps/s", us(stats.AvgStepDuration), us(stats.P95StepDuration), stats.StepsPerSecond), x, y, 14, rl.Yellow)
	y += 16

	// Step order, busiest highlighted
	for ph := telemetry.PhaseSnapshot; ph < telemetry.NumPhases; ph++ {
		pct := stats.PhasePct[ph]
		if stats.PhaseAvg[ph] == 0 {
			continue
		}
		rl.DrawText(
			fmt.Sprintf("%-14s %8s %5.1f%%", ph, us(stats.PhaseAvg[ph]), pct),
			x, y, 12, phaseColor(pct),
		)
		y += 14
	}
}

func phaseColor(pct float64) rl.Color {
	switch {
	case pct > 50:
		return rl.Red
	case pct > 25:
		return rl.Orange
	default:
		return rl.LightGray
	}
}
