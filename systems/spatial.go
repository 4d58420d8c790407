// Package systems provides the swarm engine's building blocks: the noise
// field, the per-particle force model, and a spatial index.
package systems

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// SpatialGrid buckets particle indices by cell so radius queries only
// visit nearby cells. Distances are planar; the grid does not wrap.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]int // flat grid of particle index lists
	cellOf   []int   // particle index -> cell index
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Matches reports whether the grid was built for these dimensions.
func (g *SpatialGrid) Matches(width, height, cellSize float64) bool {
	return g.cellSize == cellSize &&
		g.cols == int(width/cellSize)+1 &&
		g.rows == int(height/cellSize)+1
}

// Clear removes all particles from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.cellOf = g.cellOf[:0]
}

// Rebuild indexes every particle at its current position.
func (g *SpatialGrid) Rebuild(particles []Particle) {
	g.Clear()
	for i := range particles {
		idx := g.cellIndex(particles[i].Pos)
		g.cells[idx] = append(g.cells[idx], i)
		g.cellOf = append(g.cellOf, idx)
	}
}

// Move re-buckets particle i after its position changed.
func (g *SpatialGrid) Move(i int, pos r2.Vec) {
	idx := g.cellIndex(pos)
	old := g.cellOf[i]
	if idx == old {
		return
	}

	cell := g.cells[old]
	for k, e := range cell {
		if e == i {
			cell[k] = cell[len(cell)-1]
			g.cells[old] = cell[:len(cell)-1]
			break
		}
	}
	g.cells[idx] = append(g.cells[idx], i)
	g.cellOf[i] = idx
}

// QueryRadiusInto appends to dst the indices of every particle that may lie
// within radius of pos, sorted ascending. The result is a superset; callers
// apply the exact distance test. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []int, pos r2.Vec, radius float64) []int {
	cellRadius := int(math.Ceil(radius/g.cellSize)) + 1

	centerCol := int(pos.X / g.cellSize)
	centerRow := int(pos.Y / g.cellSize)

	minCol := clampIndex(centerCol-cellRadius, g.cols)
	maxCol := clampIndex(centerCol+cellRadius, g.cols)
	minRow := clampIndex(centerRow-cellRadius, g.rows)
	maxRow := clampIndex(centerRow+cellRadius, g.rows)

	start := len(dst)
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}

	sort.Ints(dst[start:])
	return dst
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(pos r2.Vec) int {
	col := clampIndex(int(pos.X/g.cellSize), g.cols)
	row := clampIndex(int(pos.Y/g.cellSize), g.rows)
	return row*g.cols + col
}
