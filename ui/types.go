// Package ui provides a descriptor-driven control surface for the swarm.
// Editable parameters are declared once as slider descriptors and the
// panel renders and applies them generically.
package ui

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/config"
)

// SliderDescriptor defines one editable parameter.
type SliderDescriptor struct {
	ID        string
	Label     string
	Min, Max  float64
	Precision int // decimal places shown and applied

	Get func(config.Params) float64
	Set func(*config.Patch, float64)
}

// Quantize rounds v to the descriptor's precision within its range.
func (d SliderDescriptor) Quantize(v float64) float64 {
	v = math.Min(d.Max, math.Max(d.Min, v))
	scale := math.Pow(10, float64(d.Precision))
	return math.Round(v*scale) / scale
}

// DefaultSliders returns the swarm parameter sliders in display order.
func DefaultSliders() []SliderDescriptor {
	return []SliderDescriptor{
		{
			ID: "particle_count", Label: "Particles", Min: 1, Max: 400, Precision: 0,
			Get: func(p config.Params) float64 { return float64(p.ParticleCount) },
			Set: func(pt *config.Patch, v float64) { pt.ParticleCount = config.Float(v) },
		},
		{
			ID: "interaction_radius", Label: "Radius", Min: 10, Max: 200, Precision: 0,
			Get: func(p config.Params) float64 { return p.InteractionRadius },
			Set: func(pt *config.Patch, v float64) { pt.InteractionRadius = config.Float(v) },
		},
		{
			ID: "field_strength", Label: "Field", Min: 0, Max: 3, Precision: 2,
			Get: func(p config.Params) float64 { return p.FieldStrength },
			Set: func(pt *config.Patch, v float64) { pt.FieldStrength = config.Float(v) },
		},
		{
			ID: "cohesion", Label: "Cohesion", Min: 0, Max: 3, Precision: 2,
			Get: func(p config.Params) float64 { return p.Cohesion },
			Set: func(pt *config.Patch, v float64) { pt.Cohesion = config.Float(v) },
		},
		{
			ID: "turbulence", Label: "Turbulence", Min: 0.05, Max: 3, Precision: 2,
			Get: func(p config.Params) float64 { return p.Turbulence },
			Set: func(pt *config.Patch, v float64) { pt.Turbulence = config.Float(v) },
		},
		{
			ID: "decay_rate", Label: "Decay", Min: config.MinDecayRate, Max: config.MaxDecayRate, Precision: 3,
			Get: func(p config.Params) float64 { return p.DecayRate },
			Set: func(pt *config.Patch, v float64) { pt.DecayRate = config.Float(v) },
		},
		{
			ID: "v0", Label: "V0", Min: 0, Max: 3, Precision: 2,
			Get: func(p config.Params) float64 { return p.V0 },
			Set: func(pt *config.Patch, v float64) { pt.V0 = config.Float(v) },
		},
		{
			ID: "v1", Label: "V1", Min: 0.05, Max: 3, Precision: 2,
			Get: func(p config.Params) float64 { return p.V1 },
			Set: func(pt *config.Patch, v float64) { pt.V1 = config.Float(v) },
		},
	}
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	ToggleOn       rl.Color
	ToggleOff      rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	SliderHeight   int32
	ButtonHeight   int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Yellow,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.LightGray,
		ToggleOn:       rl.Color{R: 100, G: 200, B: 100, A: 255},
		ToggleOff:      rl.Color{R: 80, G: 80, B: 80, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     70,
		SliderHeight:   14,
		ButtonHeight:   26,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}
