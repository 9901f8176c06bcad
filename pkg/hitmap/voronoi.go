package hitmap

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/parallel"
)

// site is a distinct hit position with the summed weight of all points
// landing on it.
type site struct {
	x, y, w float64
}

// distinctSites collapses coincident points, keeping first-seen order.
func distinctSites(points []HitPoint) []site {
	index := make(map[[2]float64]int, len(points))
	sites := make([]site, 0, len(points))
	for _, p := range points {
		key := [2]float64{p.Position.X, p.Position.Y}
		if i, ok := index[key]; ok {
			sites[i].w += p.Weight
			continue
		}
		index[key] = len(sites)
		sites = append(sites, site{p.Position.X, p.Position.Y, p.Weight})
	}
	return sites
}

// voronoiBox pads the bounding box of n sites by the mean site spacing so
// that cells on the hull stay finite.
func voronoiBox(b bbox, n int) bbox {
	w, h := b.width(), b.height()
	var d float64
	switch {
	case w > 0 && h > 0:
		d = math.Sqrt(w * h / float64(n))
	case w > 0 || h > 0:
		d = max(w, h) / float64(n)
	default:
		d = minExtent
	}
	return b.pad(d, d)
}

type polygon [][2]float64

func (b bbox) polygon() polygon {
	return polygon{{b.minX, b.minY}, {b.maxX, b.minY}, {b.maxX, b.maxY}, {b.minX, b.maxY}}
}

// clip keeps the part of the polygon where a·p <= c (Sutherland-Hodgman
// against one half-plane).
func (p polygon) clip(ax, ay, c float64) polygon {
	if len(p) == 0 {
		return p
	}
	out := make(polygon, 0, len(p)+1)
	prev := p[len(p)-1]
	prevIn := ax*prev[0]+ay*prev[1] <= c
	for _, cur := range p {
		curIn := ax*cur[0]+ay*cur[1] <= c
		if curIn != prevIn {
			dp := ax*prev[0] + ay*prev[1] - c
			dc := ax*cur[0] + ay*cur[1] - c
			t := dp / (dp - dc)
			out = append(out, [2]float64{prev[0] + t*(cur[0]-prev[0]), prev[1] + t*(cur[1]-prev[1])})
		}
		if curIn {
			out = append(out, cur)
		}
		prev, prevIn = cur, curIn
	}
	return out
}

func (p polygon) area() float64 {
	var a float64
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i][0]*p[j][1] - p[j][0]*p[i][1]
	}
	return math.Abs(a) / 2
}

// reach returns the largest distance from (x, y) to a polygon vertex.
func (p polygon) reach(x, y float64) float64 {
	var r float64
	for _, v := range p {
		r = max(r, math.Hypot(v[0]-x, v[1]-y))
	}
	return r
}

// cellAreas computes the area of every site's Voronoi cell clipped to box.
// Sites are scanned outwards in x order; a neighbour further than twice
// the current cell reach cannot cut the cell and ends the scan.
func cellAreas(ctx context.Context, sites []site, box bbox, workers int) ([]float64, error) {
	order := make([]int, len(sites))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return sites[order[a]].x < sites[order[b]].x })
	rank := make([]int, len(sites))
	for r, i := range order {
		rank[i] = r
	}

	areas := make([]float64, len(sites))
	err := parallel.ForEach(ctx, len(sites), workers, func(i int) error {
		s := sites[i]
		cell := box.polygon()
		reach := cell.reach(s.x, s.y)
		cut := func(j int) bool {
			o := sites[j]
			if math.Abs(o.x-s.x) > 2*reach {
				return false
			}
			// bisector half-plane: (o - s)·p <= (|o|² - |s|²)/2
			ax, ay := o.x-s.x, o.y-s.y
			c := (o.x*o.x + o.y*o.y - s.x*s.x - s.y*s.y) / 2
			cell = cell.clip(ax, ay, c)
			reach = cell.reach(s.x, s.y)
			return len(cell) > 0
		}
		for r := rank[i] + 1; r < len(order); r++ {
			if !cut(order[r]) {
				break
			}
		}
		for r := rank[i] - 1; r >= 0 && len(cell) > 0; r-- {
			if !cut(order[r]) {
				break
			}
		}
		areas[i] = cell.area()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return areas, nil
}

// CellAreas returns the area in square metres of the Voronoi cell of every
// point. Hull cells are clipped to the bounding box of the points padded by
// the mean spacing. Coincident points share their cell equally.
func CellAreas(ctx context.Context, points []geom.Point2, workers int) ([]float64, error) {
	if len(points) == 0 {
		return nil, nil
	}
	index := make(map[[2]float64]int, len(points))
	sites := make([]site, 0, len(points))
	owner := make([]int, len(points))
	box := bbox{points[0].X, points[0].X, points[0].Y, points[0].Y}
	for i, p := range points {
		key := [2]float64{p.X, p.Y}
		k, ok := index[key]
		if !ok {
			k = len(sites)
			index[key] = k
			sites = append(sites, site{x: p.X, y: p.Y})
			box = box.union(bbox{p.X, p.X, p.Y, p.Y})
		}
		sites[k].w++
		owner[i] = k
	}
	areas, err := cellAreas(ctx, sites, voronoiBox(box, len(sites)), workers)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(points))
	for i, k := range owner {
		out[i] = areas[k] / sites[k].w
	}
	return out, nil
}

// voronoi assigns each site the fluence weight/cell area and samples the
// piecewise-constant field at the cell centres of a grid over gridBox.
// Grid cells outside the map's own padded box stay zero.
func voronoi(ctx context.Context, m *RaysHitMap, shape [2]int, gridBox bbox, workers int) (*FluenceData, error) {
	sites := distinctSites(m.points)
	if len(sites) < 3 {
		return nil, fmt.Errorf("voronoi with %d distinct points: %w", len(sites), ErrTooFewPoints)
	}
	box := voronoiBox(m.box, len(sites))
	areas, err := cellAreas(ctx, sites, box, workers)
	if err != nil {
		return nil, err
	}
	fluence := make([]float64, len(sites))
	for i, s := range sites {
		if areas[i] > 0 {
			fluence[i] = s.w / areas[i]
		}
	}
	return sampleNearest(ctx, sites, fluence, box, gridBox, shape, Voronoi, workers)
}

// sampleNearest fills a grid over gridBox with the value of the nearest
// site at each cell centre inside box.
func sampleNearest(ctx context.Context, sites []site, values []float64, box, gridBox bbox, shape [2]int, est Estimator, workers int) (*FluenceData, error) {
	fd := newFluenceData(gridBox, shape, est)
	err := parallel.ForEach(ctx, shape[1], workers, func(iy int) error {
		for ix := 0; ix < shape[0]; ix++ {
			x, y := fd.cellCenter(ix, iy)
			if x < box.minX || x > box.maxX || y < box.minY || y > box.maxY {
				continue
			}
			best, bestD := 0, math.Inf(1)
			for k, s := range sites {
				d := (s.x-x)*(s.x-x) + (s.y-y)*(s.y-y)
				if d < bestD {
					best, bestD = k, d
				}
			}
			fd.Values[iy][ix] = values[best]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fd, nil
}

// nearestSample resamples fluence-weighted hits onto a grid. Coincident
// fluence samples are averaged rather than summed.
func nearestSample(ctx context.Context, m *RaysHitMap, shape [2]int, est Estimator, workers int) (*FluenceData, error) {
	index := make(map[[2]float64]int, len(m.points))
	var sites []site
	var counts []int
	for _, p := range m.points {
		key := [2]float64{p.Position.X, p.Position.Y}
		if i, ok := index[key]; ok {
			sites[i].w += p.Weight
			counts[i]++
			continue
		}
		index[key] = len(sites)
		sites = append(sites, site{p.Position.X, p.Position.Y, p.Weight})
		counts = append(counts, 1)
	}
	values := make([]float64, len(sites))
	for i := range sites {
		values[i] = sites[i].w / float64(counts[i])
	}
	box := voronoiBox(m.box, len(sites))
	return sampleNearest(ctx, sites, values, box, box, shape, est, workers)
}
