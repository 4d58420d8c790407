package palette

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarm/systems"
)

func TestHSLA(t *testing.T) {
	tests := []struct {
		name             string
		hue, sat, light  float64
		alpha            float64
		wantR, wantG, wB uint8
		wantA            uint8
	}{
		{"red", 0, 1, 0.5, 1, 255, 0, 0, 255},
		{"green", 120, 1, 0.5, 0.5, 0, 255, 0, 128},
		{"blue wraps", 240 + 360, 1, 0.5, 0, 0, 0, 255, 0},
		{"negative hue", -120, 1, 0.5, 1, 0, 0, 255, 255},
		{"white", 200, 0, 1, 2, 255, 255, 255, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := HSLA(tt.hue, tt.sat, tt.light, tt.alpha)
			if c.R != tt.wantR || c.G != tt.wantG || c.B != tt.wB || c.A != tt.wantA {
				t.Errorf("HSLA = %+v, want {%d %d %d %d}", c, tt.wantR, tt.wantG, tt.wB, tt.wantA)
			}
		})
	}
}

func TestFaded(t *testing.T) {
	if c := Faded(200, 0); c != Background {
		t.Errorf("Faded(t=0) = %+v, want background %+v", c, Background)
	}
	core := Core(200)
	core.A = 255
	if c := Faded(200, 1); c != core {
		t.Errorf("Faded(t=1) = %+v, want core %+v", c, core)
	}
	if c := Faded(200, 5); c != core {
		t.Errorf("Faded clamps t above 1, got %+v", c)
	}
	mid := Faded(200, 0.5)
	if mid.G <= Background.G || mid.G >= core.G {
		t.Errorf("Faded(t=0.5) green %d not between %d and %d", mid.G, Background.G, core.G)
	}
}

func TestLinkAlpha(t *testing.T) {
	if a := LinkAlpha(0, 100); a != LinkMaxAlpha {
		t.Errorf("LinkAlpha at zero = %v, want %v", a, LinkMaxAlpha)
	}
	if a := LinkAlpha(25, 100); math.Abs(a-0.225) > 1e-12 {
		t.Errorf("LinkAlpha(25, 100) = %v, want 0.225", a)
	}
	if a := LinkAlpha(100, 100); a != 0 {
		t.Errorf("LinkAlpha at radius = %v, want 0", a)
	}
	if a := LinkAlpha(1, 0); a != 0 {
		t.Errorf("LinkAlpha with zero radius = %v", a)
	}
	if w := LinkWidth(LinkMaxAlpha); math.Abs(w-0.95) > 1e-12 {
		t.Errorf("LinkWidth = %v, want 0.95", w)
	}
}

func TestSize(t *testing.T) {
	if s := Size(0); s != 1.5 {
		t.Errorf("Size(0) = %v", s)
	}
	if s := Size(systems.MaxSpeed); math.Abs(s-2.5) > 1e-12 {
		t.Errorf("Size(max) = %v, want 2.5", s)
	}
}

func TestFadeAlpha(t *testing.T) {
	tests := []struct {
		decay float64
		want  uint8
	}{
		{0.12, 31},
		{0.001, 0},
		{0.9, 230},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := FadeAlpha(tt.decay); got != tt.want {
			t.Errorf("FadeAlpha(%v) = %d, want %d", tt.decay, got, tt.want)
		}
	}
}

func TestLinksGridMatchesPairScan(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	particles := make([]systems.Particle, 200)
	for i := range particles {
		particles[i].Pos = r2.Vec{X: rng.Float64() * 640, Y: rng.Float64() * 480}
	}
	const radius = 55

	type pair struct{ i, j int }
	collect := func(grid *systems.SpatialGrid) map[pair]float64 {
		out := make(map[pair]float64)
		Links(grid, particles, radius, func(i, j int, dSq float64) {
			if i >= j {
				t.Fatalf("pair (%d, %d) not ordered", i, j)
			}
			if _, dup := out[pair{i, j}]; dup {
				t.Fatalf("pair (%d, %d) reported twice", i, j)
			}
			out[pair{i, j}] = dSq
		})
		return out
	}

	brute := collect(nil)
	fast := collect(systems.NewSpatialGrid(640, 480, radius))
	if len(brute) == 0 {
		t.Fatal("no links found")
	}
	if len(brute) != len(fast) {
		t.Fatalf("brute found %d links, grid %d", len(brute), len(fast))
	}
	for k, d := range brute {
		if fast[k] != d {
			t.Errorf("pair %v: %v vs %v", k, d, fast[k])
		}
	}
}
