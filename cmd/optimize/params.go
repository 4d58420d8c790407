package main

import (
	"github.com/pthm-cable/swarm/config"
)

// ParamSpec is one searched dimension.
type ParamSpec struct {
	Name     string
	Path     string // dotted YAML path, for reports
	Min, Max float64
	Default  float64

	field func(*config.Params) *float64
}

// searchSpace lists the searched Params fields and their bounds.
// Particle count only changes density and decay rate only affects
// rendering, so neither is searched.
var searchSpace = []ParamSpec{
	{Name: "field_strength", Min: 0, Max: 3, field: func(p *config.Params) *float64 { return &p.FieldStrength }},
	{Name: "turbulence", Min: 0.05, Max: 3, field: func(p *config.Params) *float64 { return &p.Turbulence }},
	{Name: "cohesion", Min: 0, Max: 3, field: func(p *config.Params) *float64 { return &p.Cohesion }},
	{Name: "interaction_radius", Min: 10, Max: 200, field: func(p *config.Params) *float64 { return &p.InteractionRadius }},
	{Name: "v0", Min: 0, Max: 3, field: func(p *config.Params) *float64 { return &p.V0 }},
	{Name: "v1", Min: 0.05, Max: 3, field: func(p *config.Params) *float64 { return &p.V1 }},
}

// ParamVector maps optimizer vectors onto swarm Params.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector returns the search space with defaults taken from base.
func NewParamVector(base config.Params) *ParamVector {
	specs := make([]ParamSpec, len(searchSpace))
	for i, s := range searchSpace {
		s.Path = "swarm.params." + s.Name
		s.Default = *s.field(&base)
		specs[i] = s
	}
	return &ParamVector{Specs: specs}
}

func (pv *ParamVector) Dim() int { return len(pv.Specs) }

// DefaultVector returns the base values, clamped into bounds.
func (pv *ParamVector) DefaultVector() []float64 {
	return pv.each(nil, func(s ParamSpec, _ float64) float64 { return s.Default })
}

// Normalize maps raw values onto [0,1] per dimension.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	return pv.each(raw, func(s ParamSpec, v float64) float64 { return (v - s.Min) / (s.Max - s.Min) })
}

// Denormalize is the inverse of Normalize.
func (pv *ParamVector) Denormalize(unit []float64) []float64 {
	return pv.each(unit, func(s ParamSpec, v float64) float64 { return s.Min + v*(s.Max-s.Min) })
}

// Clamp bounds every value to its dimension's range.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	return pv.each(v, func(s ParamSpec, x float64) float64 { return min(max(x, s.Min), s.Max) })
}

func (pv *ParamVector) each(in []float64, f func(ParamSpec, float64) float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		var x float64
		if in != nil {
			x = in[i]
		}
		out[i] = f(s, x)
	}
	if in == nil {
		return pv.Clamp(out)
	}
	return out
}

// ApplyToParams returns p with each searched field set from the clamped values.
func (pv *ParamVector) ApplyToParams(p config.Params, values []float64) config.Params {
	for i, v := range pv.Clamp(values) {
		*pv.Specs[i].field(&p) = v
	}
	return p
}

// ApplyToConfig writes values into cfg's swarm params under the name "Optimized".
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	cfg.Swarm.Params = pv.ApplyToParams(cfg.Swarm.Params, values)
	cfg.Swarm.Params.Name = "Optimized"
}
