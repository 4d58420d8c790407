package main

import (
	"github.com/pthm-cable/swarm/systems"
)

// Levels below trailCutoff are cleared so faded cells stop drawing.
const trailCutoff = 0.04

type trailCell struct {
	hue   float64
	level float64 // 1 = particle present this step, decays toward 0
}

// trailBuffer is the terminal stand-in for the translucent fade the
// windowed viewer paints each frame: every cell remembers the last hue
// that crossed it and how long ago.
type trailBuffer struct {
	cols, rows int
	cells      []trailCell
}

func newTrailBuffer(cols, rows int) *trailBuffer {
	b := &trailBuffer{}
	b.resize(cols, rows)
	return b
}

func (b *trailBuffer) resize(cols, rows int) {
	b.cols, b.rows = max(cols, 0), max(rows, 0)
	b.cells = make([]trailCell, b.cols*b.rows)
}

func (b *trailBuffer) at(col, row int) trailCell {
	return b.cells[row*b.cols+col]
}

// fade dims every cell by decay, the fraction of brightness lost per step.
func (b *trailBuffer) fade(decay float64) {
	keep := 1 - decay
	for i := range b.cells {
		c := &b.cells[i]
		c.level *= keep
		if c.level < trailCutoff {
			c.level = 0
		}
	}
}

// plot marks the cell under each particle. Cells are cellW x cellH frame
// units.
func (b *trailBuffer) plot(particles []systems.Particle, cellW, cellH float64) {
	for _, p := range particles {
		col := int(p.Pos.X / cellW)
		row := int(p.Pos.Y / cellH)
		if col < 0 || col >= b.cols || row < 0 || row >= b.rows {
			continue
		}
		c := &b.cells[row*b.cols+col]
		c.hue = p.Hue
		c.level = 1
	}
}

// glyph picks a rune for a cell's brightness.
func glyph(level float64) rune {
	switch {
	case level >= 1:
		return '●'
	case level > 0.5:
		return '•'
	case level > 0.2:
		return '∙'
	case level > 0:
		return '·'
	default:
		return ' '
	}
}
