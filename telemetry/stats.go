package telemetry

import (
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/swarm/systems"
)

// WindowStats holds aggregated statistics for a stats window.
type WindowStats struct {
	WindowStartStep int64   `csv:"-"`
	WindowEndStep   int64   `csv:"window_end"`
	SimTime         float64 `csv:"sim_time"`

	Particles       int `csv:"particles"`
	Initializations int `csv:"initializations"` // reinitializations during the window

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	HueMean float64 `csv:"hue_mean"`
	HueStd  float64 `csv:"hue_std"`

	LifeMean float64 `csv:"life_mean"`

	// Structure
	NeighborMean    float64 `csv:"neighbor_mean"`     // neighbors per particle per step, averaged over the window
	NearestDistMean float64 `csv:"nearest_dist_mean"` // mean nearest-neighbor distance at window end
}

// Distribution summarises a sample: population mean and standard
// deviation plus interpolated deciles.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes the Distribution of values without reordering them.
// An empty sample yields the zero Distribution.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	var d Distribution
	d.Mean, d.Std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	d.P10 = quantile(sorted, 0.10)
	d.P50 = quantile(sorted, 0.50)
	d.P90 = quantile(sorted, 0.90)
	return d
}

// quantile interpolates linearly between the closest ranks of sorted,
// so q=0 is the minimum and q=1 the maximum.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := min(max(q, 0), 1) * float64(n-1)
	i := int(pos)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (pos-float64(i))*(sorted[i+1]-sorted[i])
}

// MeanNearestDistance returns the mean planar distance from each particle
// to its closest other particle. Returns 0 with fewer than two particles.
func MeanNearestDistance(particles []systems.Particle) float64 {
	n := len(particles)
	if n < 2 {
		return 0
	}

	var sum float64
	for i := range particles {
		best := math.Inf(1)
		for j := range particles {
			if i == j {
				continue
			}
			d := r2.Norm2(r2.Sub(particles[j].Pos, particles[i].Pos))
			if d < best {
				best = d
			}
		}
		sum += math.Sqrt(best)
	}
	return sum / float64(n)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartStep),
		slog.Int64("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("particles", s.Particles),
		slog.Int("initializations", s.Initializations),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("hue_mean", s.HueMean),
		slog.Float64("hue_std", s.HueStd),
		slog.Float64("life_mean", s.LifeMean),
		slog.Float64("neighbor_mean", s.NeighborMean),
		slog.Float64("nearest_dist_mean", s.NearestDistMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
