package hitmap

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-opticbench/pkg/parallel"
)

// maxBandwidthSamples bounds the number of points used for the pairwise
// distance statistics of the bandwidth estimate.
const maxBandwidthSamples = 2000

// bandwidth estimates a Gaussian kernel width with Silverman's rule of
// thumb applied to the pairwise point distances.
func bandwidth(points []HitPoint) (float64, error) {
	n := len(points)
	stride := 1
	if n > maxBandwidthSamples {
		stride = (n + maxBandwidthSamples - 1) / maxBandwidthSamples
	}
	var sample []HitPoint
	for i := 0; i < n; i += stride {
		sample = append(sample, points[i])
	}

	dists := make([]float64, 0, len(sample)*(len(sample)-1)/2)
	var sum float64
	for i := range sample {
		for j := i + 1; j < len(sample); j++ {
			d := math.Hypot(sample[i].Position.X-sample[j].Position.X, sample[i].Position.Y-sample[j].Position.Y)
			dists = append(dists, d)
			sum += d
		}
	}
	if len(dists) == 0 {
		return 0, fmt.Errorf("kde with %d points: %w", n, ErrTooFewPoints)
	}
	mean := sum / float64(len(dists))
	var ss float64
	for _, d := range dists {
		ss += (d - mean) * (d - mean)
	}
	std := math.Sqrt(ss / float64(len(dists)))

	sort.Float64s(dists)
	iqr := (quantile(dists, 0.75) - quantile(dists, 0.25)) / 1.34

	spread := min(std, iqr)
	if spread <= 0 {
		spread = max(std, iqr)
	}
	if spread <= 0 {
		return 0, fmt.Errorf("kde with coincident points: %w", ErrTooFewPoints)
	}
	return 0.9 * spread * math.Pow(float64(n), -0.2), nil
}

// quantile interpolates linearly in sorted data.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// kde sums normalised Gaussian kernels, one per point, on a grid spanning
// the bounding box widened by three kernel widths.
func kde(ctx context.Context, m *RaysHitMap, shape [2]int, workers int) (*FluenceData, error) {
	sigma, err := bandwidth(m.points)
	if err != nil {
		return nil, err
	}
	box := m.box.pad(3*sigma, 3*sigma)
	fd := newFluenceData(box, shape, KDE)

	norm := 1 / (2 * math.Pi * sigma * sigma)
	inv := 1 / (2 * sigma * sigma)
	cutoff := 36 * sigma * sigma // beyond 6σ a kernel contributes nothing measurable
	err = parallel.ForEach(ctx, shape[1], workers, func(iy int) error {
		for ix := 0; ix < shape[0]; ix++ {
			x, y := fd.cellCenter(ix, iy)
			var v float64
			for _, p := range m.points {
				dx, dy := p.Position.X-x, p.Position.Y-y
				d2 := dx*dx + dy*dy
				if d2 > cutoff {
					continue
				}
				v += p.Weight * math.Exp(-d2*inv)
			}
			fd.Values[iy][ix] = v * norm
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fd, nil
}
