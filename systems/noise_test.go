package systems

import (
	"math"
	"testing"
)

func TestReferenceTablePinned(t *testing.T) {
	n := NewReferenceNoise()
	if n.perm[0] != 151 || n.perm[255] != 180 {
		t.Errorf("table ends = %d, %d, want 151, 180", n.perm[0], n.perm[255])
	}
	for i := 0; i < 256; i++ {
		if n.perm[i] != n.perm[i+256] {
			t.Fatalf("perm[%d] = %d not duplicated at %d (%d)", i, n.perm[i], i+256, n.perm[i+256])
		}
	}

	seen := make(map[int]bool)
	for _, v := range referencePermutation {
		seen[v] = true
	}
	if len(seen) != 256 {
		t.Errorf("table has %d distinct entries, want 256", len(seen))
	}
}

func TestNoise3DKnownValues(t *testing.T) {
	n := NewReferenceNoise()
	tests := []struct {
		x, y, z float64
		want    float64
	}{
		{0, 0, 0, 0},
		{3, 7, 11, 0},
		{0.5, 0, 0, 0},
		{0.5, 0.5, 0.5, 0.125},
		{1.25, 2.75, 0.5, 0.5107154846191406},
		{10.3, 4.7, 1.1, 0.06336962065958422},
	}
	for _, tt := range tests {
		got := n.Noise3D(tt.x, tt.y, tt.z)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Noise3D(%v, %v, %v) = %v, want %v", tt.x, tt.y, tt.z, got, tt.want)
		}
	}
}

func TestNoise3DDeterministic(t *testing.T) {
	a, b := NewReferenceNoise(), NewPerlinNoise(0)
	for i := 0; i < 200; i++ {
		x := float64(i)*0.37 - 20
		y := float64(i)*0.91 + 3.3
		z := float64(i) * 0.013
		if a.Noise3D(x, y, z) != b.Noise3D(x, y, z) {
			t.Fatalf("seed 0 differs from reference at (%v, %v, %v)", x, y, z)
		}
		if a.Noise3D(x, y, z) != a.Noise3D(x, y, z) {
			t.Fatal("repeated call differs")
		}
	}
}

func TestNoise3DPeriodic(t *testing.T) {
	n := NewReferenceNoise()
	tests := []struct{ x, y, z float64 }{
		{0.3, 0.7, 0.2},
		{12.5, 3.25, 9.75},
		{-4.4, 100.1, 0.6},
	}
	for _, tt := range tests {
		base := n.Noise3D(tt.x, tt.y, tt.z)
		shifted := []float64{
			n.Noise3D(tt.x+256, tt.y, tt.z),
			n.Noise3D(tt.x, tt.y+256, tt.z),
			n.Noise3D(tt.x, tt.y, tt.z+256),
		}
		for axis, v := range shifted {
			if math.Abs(v-base) > 1e-9 {
				t.Errorf("axis %d: period 256 broken at %v: %v vs %v", axis, tt, v, base)
			}
		}
	}
}

func TestNoise3DBoundedAndSmooth(t *testing.T) {
	n := NewReferenceNoise()
	const h = 1e-4
	for i := 0; i < 2000; i++ {
		x := float64(i) * 0.0731
		y := float64(i%97) * 0.173
		z := float64(i%13) * 0.29
		v := n.Noise3D(x, y, z)
		if v < -1.5 || v > 1.5 || math.IsNaN(v) {
			t.Fatalf("Noise3D(%v, %v, %v) = %v out of range", x, y, z, v)
		}
		// Continuous: a tiny step changes the value by a tiny amount
		if d := math.Abs(n.Noise3D(x+h, y, z) - v); d > 1e-2 {
			t.Fatalf("jump of %v at (%v, %v, %v)", d, x, y, z)
		}
	}
}

func TestSeededNoiseDiffers(t *testing.T) {
	ref := NewReferenceNoise()
	a, b := NewPerlinNoise(1), NewPerlinNoise(1)
	c := NewPerlinNoise(2)

	differs := false
	for i := 0; i < 50; i++ {
		x, y, z := float64(i)*0.53+0.1, float64(i)*0.29+0.2, 0.4
		if a.Noise3D(x, y, z) != b.Noise3D(x, y, z) {
			t.Fatal("same seed gave different fields")
		}
		if a.Noise3D(x, y, z) != ref.Noise3D(x, y, z) || a.Noise3D(x, y, z) != c.Noise3D(x, y, z) {
			differs = true
		}
	}
	if !differs {
		t.Error("seeded fields match the reference")
	}
}

func TestFade(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{0.25, 0.103515625},
	}
	for _, tt := range tests {
		if got := fade(tt.in); math.Abs(got-tt.want) > 1e-15 {
			t.Errorf("fade(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGrad3D(t *testing.T) {
	x, y, z := 1.0, 2.0, 4.0
	want := [16]float64{
		x + y, -x + y, x - y, -x - y,
		x + z, -x + z, x - z, -x - z,
		y + z, -y + z, y - z, -y - z,
		y + x, -y + z, y - x, -y - z,
	}
	for h := 0; h < 16; h++ {
		if got := grad3D(h, x, y, z); got != want[h] {
			t.Errorf("grad3D(%d) = %v, want %v", h, got, want[h])
		}
		// Only the low four bits select the gradient
		if got := grad3D(h+16*7, x, y, z); got != want[h] {
			t.Errorf("grad3D(%d) = %v, want %v", h+16*7, got, want[h])
		}
	}
}
