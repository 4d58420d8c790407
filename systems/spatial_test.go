package systems

import (
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func randomParticles(n int, w, h float64, seed int64) []Particle {
	rng := rand.New(rand.NewSource(seed))
	particles := make([]Particle, n)
	for i := range particles {
		particles[i].Pos = r2.Vec{X: rng.Float64() * w, Y: rng.Float64() * h}
	}
	return particles
}

func TestSpatialGridQuerySuperset(t *testing.T) {
	tests := []struct {
		name     string
		cellSize float64
		radius   float64
	}{
		{"cell equals radius", 50, 50},
		{"cell smaller than radius", 20, 75},
		{"cell larger than radius", 120, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			particles := randomParticles(400, 800, 600, 3)
			g := NewSpatialGrid(800, 600, tt.cellSize)
			g.Rebuild(particles)

			var got []int
			for i := range particles {
				got = g.QueryRadiusInto(got[:0], particles[i].Pos, tt.radius)
				if !sort.IntsAreSorted(got) {
					t.Fatalf("particle %d: candidates not sorted", i)
				}
				in := make(map[int]bool, len(got))
				for _, j := range got {
					if in[j] {
						t.Fatalf("particle %d: duplicate candidate %d", i, j)
					}
					in[j] = true
				}
				for j := range particles {
					d := r2.Norm(r2.Sub(particles[j].Pos, particles[i].Pos))
					if d < tt.radius && !in[j] {
						t.Fatalf("particle %d: neighbor %d at %v missing", i, j, d)
					}
				}
			}
		})
	}
}

func TestSpatialGridMove(t *testing.T) {
	particles := randomParticles(100, 400, 400, 9)
	g := NewSpatialGrid(400, 400, 40)
	g.Rebuild(particles)

	rng := rand.New(rand.NewSource(10))
	for step := 0; step < 500; step++ {
		i := rng.Intn(len(particles))
		particles[i].Pos = r2.Vec{X: rng.Float64() * 400, Y: rng.Float64() * 400}
		g.Move(i, particles[i].Pos)
	}

	fresh := NewSpatialGrid(400, 400, 40)
	fresh.Rebuild(particles)

	var a, b []int
	for i := range particles {
		a = g.QueryRadiusInto(a[:0], particles[i].Pos, 40)
		b = fresh.QueryRadiusInto(b[:0], particles[i].Pos, 40)
		if len(a) != len(b) {
			t.Fatalf("particle %d: moved grid has %d candidates, fresh %d", i, len(a), len(b))
		}
		for k := range a {
			if a[k] != b[k] {
				t.Fatalf("particle %d: candidate %d differs: %d vs %d", i, k, a[k], b[k])
			}
		}
	}
}

func TestSpatialGridAppendsToDst(t *testing.T) {
	g := NewSpatialGrid(100, 100, 10)
	g.Rebuild([]Particle{{Pos: r2.Vec{X: 5, Y: 5}}, {Pos: r2.Vec{X: 95, Y: 95}}})

	dst := []int{-1}
	dst = g.QueryRadiusInto(dst, r2.Vec{X: 5, Y: 5}, 10)
	if len(dst) != 2 || dst[0] != -1 || dst[1] != 0 {
		t.Errorf("QueryRadiusInto = %v, want [-1 0]", dst)
	}
}

func TestSpatialGridMatches(t *testing.T) {
	g := NewSpatialGrid(800, 600, 70)
	if !g.Matches(800, 600, 70) {
		t.Error("grid should match its own dimensions")
	}
	if g.Matches(800, 600, 71) || g.Matches(1000, 600, 70) {
		t.Error("grid should not match other dimensions")
	}
}
