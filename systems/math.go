package systems

// wrapCoord wraps v into [0, size) with a single add or subtract.
// Inputs are assumed to be less than one size outside the range.
func wrapCoord(v, size float64) float64 {
	if v < 0 {
		v += size
	}
	// Not an else: v+size can round up to exactly size
	if v >= size {
		v -= size
	}
	return v
}

// clampIndex clamps i into [0, n).
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
