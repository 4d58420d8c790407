package systems

import (
	"math"
	"math/rand"
)

// referencePermutation is the classic 256-entry gradient-noise table. It
// is the seed of the field: a different ordering gives a different field.
var referencePermutation = [256]int{
	151, 160, 137, 91, 90, 15, 131, 13, 201, 95, 96, 53, 194, 233, 7, 225,
	140, 36, 103, 30, 69, 142, 8, 99, 37, 240, 21, 10, 23, 190, 6, 148,
	247, 120, 234, 75, 0, 26, 197, 62, 94, 252, 219, 203, 117, 35, 11, 32,
	57, 177, 33, 88, 237, 149, 56, 87, 174, 20, 125, 136, 171, 168, 68, 175,
	74, 165, 71, 134, 139, 48, 27, 166, 77, 146, 158, 231, 83, 111, 229, 122,
	60, 211, 133, 230, 220, 105, 92, 41, 55, 46, 245, 40, 244, 102, 143, 54,
	65, 25, 63, 161, 1, 216, 80, 73, 209, 76, 132, 187, 208, 89, 18, 169,
	200, 196, 135, 130, 116, 188, 159, 86, 164, 100, 109, 198, 173, 186, 3, 64,
	52, 217, 226, 250, 124, 123, 5, 202, 38, 147, 118, 126, 255, 82, 85, 212,
	207, 206, 59, 227, 47, 16, 58, 17, 182, 189, 28, 42, 223, 183, 170, 213,
	119, 248, 152, 2, 44, 154, 163, 70, 221, 153, 101, 155, 167, 43, 172, 9,
	129, 22, 39, 253, 19, 98, 108, 110, 79, 113, 224, 232, 178, 185, 112, 104,
	218, 246, 97, 228, 251, 34, 242, 193, 238, 210, 144, 12, 191, 179, 162, 241,
	81, 51, 145, 235, 249, 14, 239, 107, 49, 192, 214, 31, 181, 199, 106, 157,
	184, 84, 204, 176, 115, 121, 50, 45, 127, 4, 150, 254, 138, 236, 205, 93,
	222, 114, 67, 29, 24, 72, 243, 141, 128, 195, 78, 66, 215, 61, 156, 180,
}

// NoiseField is a smooth, deterministic 3D scalar field.
type NoiseField interface {
	Noise3D(x, y, z float64) float64
}

// PerlinNoise generates coherent noise values.
// It is immutable after construction and safe to share.
type PerlinNoise struct {
	perm [512]int
}

// NewReferenceNoise creates a generator from the reference permutation table.
func NewReferenceNoise() *PerlinNoise {
	return newPerlinFromTable(referencePermutation)
}

// NewPerlinNoise creates a generator from a seeded shuffle of 0..255.
// A zero seed selects the reference table.
func NewPerlinNoise(seed int64) *PerlinNoise {
	if seed == 0 {
		return NewReferenceNoise()
	}
	rng := rand.New(rand.NewSource(seed))

	var perm [256]int
	for i := range perm {
		perm[i] = i
	}

	// Shuffle
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}

	return newPerlinFromTable(perm)
}

func newPerlinFromTable(table [256]int) *PerlinNoise {
	p := &PerlinNoise{}
	// Duplicate so corner hashes never need to wrap
	for i := 0; i < 256; i++ {
		p.perm[i] = table[i]
		p.perm[i+256] = table[i]
	}
	return p
}

// Noise3D returns a noise value for 3D coordinates.
// The result is roughly in [-1, 1] but is not clamped.
func (p *PerlinNoise) Noise3D(x, y, z float64) float64 {
	// Find unit cube
	fx, fy, fz := math.Floor(x), math.Floor(y), math.Floor(z)
	X := int(fx) & 255
	Y := int(fy) & 255
	Z := int(fz) & 255

	// Find relative position in cube
	x -= fx
	y -= fy
	z -= fz

	u := fade(x)
	v := fade(y)
	w := fade(z)

	// Corner hashes. The z+1 face reuses the z face hashes and the y+1
	// edge steps the z index. This differs from textbook Perlin and is
	// part of the field's identity.
	A := (p.perm[X] + Y) & 255
	B := (p.perm[X+1] + Y) & 255
	hA := p.perm[A+Z]
	hB := p.perm[B+Z]
	hA1 := p.perm[A+Z+1]
	hB1 := p.perm[B+Z+1]

	// Blend results from 8 corners
	return lerp(w,
		lerp(v,
			lerp(u, grad3D(hA, x, y, z), grad3D(hB, x-1, y, z)),
			lerp(u, grad3D(hA1, x, y-1, z), grad3D(hB1, x-1, y-1, z))),
		lerp(v,
			lerp(u, grad3D(hA, x, y, z-1), grad3D(hB, x-1, y, z-1)),
			lerp(u, grad3D(hA1, x, y-1, z-1), grad3D(hB1, x-1, y-1, z-1))))
}

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

// grad3D picks one of 12 edge gradients from the low 4 bits of hash
// and returns its dot product with (x, y, z).
func grad3D(hash int, x, y, z float64) float64 {
	h := hash & 15
	u := x
	if h >= 8 {
		u = y
	}
	v := y
	if h >= 4 {
		if h == 12 || h == 14 {
			v = x
		} else {
			v = z
		}
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
