package hitmap

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Estimator selects the fluence estimation method.
type Estimator string

const (
	// Binning sums energies on a regular grid.
	Binning Estimator = "binning"
	// Voronoi divides each energy by the area of its Voronoi cell.
	Voronoi Estimator = "voronoi"
	// KDE sums Gaussian kernels centred on the hit points.
	KDE Estimator = "kde"
)

// Estimators lists the supported estimators.
var Estimators = []Estimator{Binning, Voronoi, KDE}

// ParseEstimator accepts estimator names case-insensitively.
func ParseEstimator(s string) (Estimator, error) {
	e := Estimator(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Estimators {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownEstimator)
}

func (e Estimator) String() string { return string(e) }

// FluenceData is a fluence field sampled on a regular grid. Values are
// indexed [row][column], rows running along y and columns along x; each
// sample is the fluence at the centre of its cell in J/m².
type FluenceData struct {
	Values    [][]float64
	XMin      units.Length
	XMax      units.Length
	YMin      units.Length
	YMax      units.Length
	Estimator Estimator
}

func newFluenceData(box bbox, shape [2]int, est Estimator) *FluenceData {
	nx, ny := shape[0], shape[1]
	values := make([][]float64, ny)
	for i := range values {
		values[i] = make([]float64, nx)
	}
	return &FluenceData{
		Values:    values,
		XMin:      units.Meter(box.minX),
		XMax:      units.Meter(box.maxX),
		YMin:      units.Meter(box.minY),
		YMax:      units.Meter(box.maxY),
		Estimator: est,
	}
}

// Shape returns the number of columns and rows.
func (f *FluenceData) Shape() (nx, ny int) {
	if len(f.Values) == 0 {
		return 0, 0
	}
	return len(f.Values[0]), len(f.Values)
}

// CellArea returns the area of one grid cell.
func (f *FluenceData) CellArea() units.Area {
	nx, ny := f.Shape()
	if nx == 0 || ny == 0 {
		return 0
	}
	return ((f.XMax - f.XMin) / units.Length(nx)).Times((f.YMax - f.YMin) / units.Length(ny))
}

// cellCenter returns the centre of cell (ix, iy) in metres.
func (f *FluenceData) cellCenter(ix, iy int) (x, y float64) {
	nx, ny := f.Shape()
	dx := (f.XMax - f.XMin).Meters() / float64(nx)
	dy := (f.YMax - f.YMin).Meters() / float64(ny)
	return f.XMin.Meters() + (float64(ix)+0.5)*dx, f.YMin.Meters() + (float64(iy)+0.5)*dy
}

// Peak returns the maximum fluence.
func (f *FluenceData) Peak() units.Fluence {
	peak := 0.0
	for _, row := range f.Values {
		for _, v := range row {
			if !math.IsNaN(v) {
				peak = max(peak, v)
			}
		}
	}
	return units.Fluence(peak)
}

// Average returns the mean fluence over the cells that received light.
func (f *FluenceData) Average() units.Fluence {
	var sum float64
	n := 0
	for _, row := range f.Values {
		for _, v := range row {
			if v > 0 {
				sum += v
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return units.Fluence(sum / float64(n))
}

// TotalEnergy integrates the field over the grid.
func (f *FluenceData) TotalEnergy() units.Energy {
	var sum float64
	for _, row := range f.Values {
		for _, v := range row {
			if !math.IsNaN(v) {
				sum += v
			}
		}
	}
	return units.Joule(sum * f.CellArea().SquareMeters())
}

func (f *FluenceData) add(o *FluenceData) {
	for iy, row := range o.Values {
		for ix, v := range row {
			f.Values[iy][ix] += v
		}
	}
}

// CalcFluenceMap estimates the fluence of all recorded hits on a grid of
// shape[0] columns by shape[1] rows.
func (h *HitMap) CalcFluenceMap(shape [2]int, est Estimator) (*FluenceData, error) {
	return h.CalcFluenceMapContext(context.Background(), shape, est, 0)
}

// CalcFluenceMapContext is CalcFluenceMap with cancellation and a worker
// count for the parallel estimators. workers <= 0 uses all CPUs.
func (h *HitMap) CalcFluenceMapContext(ctx context.Context, shape [2]int, est Estimator, workers int) (*FluenceData, error) {
	if shape[0] < 1 || shape[1] < 1 {
		return nil, fmt.Errorf("shape %v: %w", shape, ErrInvalidShape)
	}
	if _, err := ParseEstimator(string(est)); err != nil {
		return nil, err
	}
	merged, err := h.Merged()
	if err != nil {
		return nil, err
	}
	if merged.Len() == 0 {
		return nil, fmt.Errorf("empty hit map: %w", ErrTooFewPoints)
	}
	if merged.Kind() == FluenceKind {
		// fluence samples need no estimation, only resampling
		return nearestSample(ctx, merged, shape, est, workers)
	}

	switch est {
	case Binning:
		return binning(merged, shape)
	case KDE:
		return kde(ctx, merged, shape, workers)
	default:
		return h.combinedVoronoi(ctx, shape, workers)
	}
}

// combinedVoronoi tessellates every bundle map separately and sums the
// fields on a common grid. Bundle maps with fewer than three distinct
// points are skipped.
func (h *HitMap) combinedVoronoi(ctx context.Context, shape [2]int, workers int) (*FluenceData, error) {
	var maps []*RaysHitMap
	var box bbox
	h.each(func(_ int, _ uuid.UUID, m *RaysHitMap) {
		sites := distinctSites(m.points)
		if len(sites) < 3 {
			return
		}
		mb := voronoiBox(m.box, len(sites))
		if len(maps) == 0 {
			box = mb
		} else {
			box = box.union(mb)
		}
		maps = append(maps, m)
	})
	if len(maps) == 0 {
		return nil, fmt.Errorf("voronoi needs at least 3 distinct points per bundle: %w", ErrTooFewPoints)
	}
	out := newFluenceData(box, shape, Voronoi)
	for _, m := range maps {
		fd, err := voronoi(ctx, m, shape, box, workers)
		if err != nil {
			return nil, err
		}
		out.add(fd)
	}
	return out, nil
}
