package config

import (
	"errors"
	"fmt"
	"math"
)

// Bounds applied when a patch is merged into Params.
// MaxParticleCount bounds what any input can make Initialize allocate.
const (
	MinParticleCount     = 1
	MaxParticleCount     = 100_000
	MinInteractionRadius = 1.0
	MinDecayRate         = 0.001
	MaxDecayRate         = 0.9
)

// Params holds the tunable swarm parameters.
// DecayRate and Name are carried for renderers; the engine ignores them.
type Params struct {
	ParticleCount     int     `yaml:"particle_count" json:"particleCount"`
	FieldStrength     float64 `yaml:"field_strength" json:"fieldStrength"`         // Flow-field force scale
	Turbulence        float64 `yaml:"turbulence" json:"turbulence"`                // Primary octave spatial frequency
	Cohesion          float64 `yaml:"cohesion" json:"cohesion"`                    // Pull toward neighbor centroid
	InteractionRadius float64 `yaml:"interaction_radius" json:"interactionRadius"` // Neighbor search distance
	DecayRate         float64 `yaml:"decay_rate" json:"decayRate"`                 // Trail fade alpha
	V0                float64 `yaml:"v0" json:"v0"`                                // Secondary octave weight (saturates at 1)
	V1                float64 `yaml:"v1" json:"v1"`                                // Secondary octave frequency
	Name              string  `yaml:"name" json:"name"`
}

// DefaultParams returns the stock "Default" style.
func DefaultParams() Params {
	return Params{
		ParticleCount:     120,
		FieldStrength:     0.8,
		Turbulence:        0.6,
		Cohesion:          0.6,
		InteractionRadius: 70,
		DecayRate:         0.12,
		V0:                1.0,
		V1:                1.0,
		Name:              "Default",
	}
}

// Patch is a partial Params update. Nil fields are left unchanged.
type Patch struct {
	ParticleCount     *float64 `yaml:"particle_count,omitempty" json:"particleCount,omitempty"`
	FieldStrength     *float64 `yaml:"field_strength,omitempty" json:"fieldStrength,omitempty"`
	Turbulence        *float64 `yaml:"turbulence,omitempty" json:"turbulence,omitempty"`
	Cohesion          *float64 `yaml:"cohesion,omitempty" json:"cohesion,omitempty"`
	InteractionRadius *float64 `yaml:"interaction_radius,omitempty" json:"interactionRadius,omitempty"`
	DecayRate         *float64 `yaml:"decay_rate,omitempty" json:"decayRate,omitempty"`
	V0                *float64 `yaml:"v0,omitempty" json:"v0,omitempty"`
	V1                *float64 `yaml:"v1,omitempty" json:"v1,omitempty"`
	Name              *string  `yaml:"name,omitempty" json:"name,omitempty"`
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.ParticleCount == nil && p.FieldStrength == nil && p.Turbulence == nil &&
		p.Cohesion == nil && p.InteractionRadius == nil && p.DecayRate == nil &&
		p.V0 == nil && p.V1 == nil && p.Name == nil
}

// FieldError describes a rejected patch field.
type FieldError struct {
	Field string
	Value float64
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: rejected non-finite value %v", e.Field, e.Value)
}

// ErrNonFinite is matched by every FieldError.
var ErrNonFinite = errors.New("non-finite value")

// Is lets errors.Is(err, ErrNonFinite) match field errors.
func (e *FieldError) Is(target error) bool {
	return target == ErrNonFinite
}

// Apply merges the patch into p and returns the result.
// Non-finite values are rejected and the previous value kept; out-of-range
// values are clamped. The returned error joins one FieldError per rejected
// field and is nil when everything applied.
func (p Params) Apply(patch Patch) (Params, error) {
	out := p
	var errs []error

	take := func(field string, v *float64, dst *float64) {
		if v == nil {
			return
		}
		if !finite(*v) {
			errs = append(errs, &FieldError{Field: field, Value: *v})
			return
		}
		*dst = *v
	}

	if patch.ParticleCount != nil {
		v := *patch.ParticleCount
		if !finite(v) {
			errs = append(errs, &FieldError{Field: "particle_count", Value: v})
		} else {
			out.ParticleCount = clampCount(v)
		}
	}
	take("field_strength", patch.FieldStrength, &out.FieldStrength)
	take("turbulence", patch.Turbulence, &out.Turbulence)
	take("cohesion", patch.Cohesion, &out.Cohesion)
	take("interaction_radius", patch.InteractionRadius, &out.InteractionRadius)
	take("decay_rate", patch.DecayRate, &out.DecayRate)
	take("v0", patch.V0, &out.V0)
	take("v1", patch.V1, &out.V1)
	if patch.Name != nil {
		out.Name = *patch.Name
	}

	out = out.Normalized()
	return out, errors.Join(errs...)
}

// Normalized returns p with every invariant enforced by clamping.
// Non-finite fields fall back to the defaults.
func (p Params) Normalized() Params {
	def := DefaultParams()
	fix := func(v, fallback float64) float64 {
		if !finite(v) {
			return fallback
		}
		return v
	}

	p.FieldStrength = fix(p.FieldStrength, def.FieldStrength)
	p.Turbulence = fix(p.Turbulence, def.Turbulence)
	p.V0 = fix(p.V0, def.V0)
	p.V1 = fix(p.V1, def.V1)
	p.Cohesion = math.Max(0, fix(p.Cohesion, def.Cohesion))
	p.InteractionRadius = math.Max(MinInteractionRadius, fix(p.InteractionRadius, def.InteractionRadius))
	p.DecayRate = math.Min(MaxDecayRate, math.Max(MinDecayRate, fix(p.DecayRate, def.DecayRate)))
	p.ParticleCount = min(max(p.ParticleCount, MinParticleCount), MaxParticleCount)
	return p
}

// Validate reports whether p already satisfies every invariant.
func (p Params) Validate() error {
	var errs []error
	if p.ParticleCount < MinParticleCount || p.ParticleCount > MaxParticleCount {
		errs = append(errs, fmt.Errorf("particle_count %d outside [%d, %d]", p.ParticleCount, MinParticleCount, MaxParticleCount))
	}
	if !finite(p.InteractionRadius) || p.InteractionRadius <= 0 {
		errs = append(errs, fmt.Errorf("interaction_radius %v must be positive", p.InteractionRadius))
	}
	if !finite(p.Cohesion) || p.Cohesion < 0 {
		errs = append(errs, fmt.Errorf("cohesion %v must be non-negative", p.Cohesion))
	}
	if !finite(p.DecayRate) || p.DecayRate <= 0 || p.DecayRate > MaxDecayRate {
		errs = append(errs, fmt.Errorf("decay_rate %v outside (0, %v]", p.DecayRate, MaxDecayRate))
	}
	for name, v := range map[string]float64{
		"field_strength": p.FieldStrength,
		"turbulence":     p.Turbulence,
		"v0":             p.V0,
		"v1":             p.V1,
	} {
		if !finite(v) {
			errs = append(errs, fmt.Errorf("%s is not finite", name))
		}
	}
	return errors.Join(errs...)
}

// SecondaryWeight is the saturating weight of the second flow octave.
func (p Params) SecondaryWeight() float64 {
	if p.V0 > 1 {
		return 1
	}
	return p.V0
}

func clampCount(v float64) int {
	n := math.Round(v)
	if n < MinParticleCount {
		return MinParticleCount
	}
	if n > MaxParticleCount {
		return MaxParticleCount
	}
	return int(n)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
