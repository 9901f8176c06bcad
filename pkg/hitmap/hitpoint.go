// Package hitmap records where rays hit a surface and estimates fluence
// distributions from those hits.
//
// A HitMap is organised per bounce level and, inside a level, per ray
// bundle. Each bundle map holds either energy-weighted or fluence-weighted
// hit points, never both. Fluence maps are computed on demand by one of the
// estimators (Binning, Voronoi, KDE) and never cached.
package hitmap

import (
	"errors"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

var (
	// ErrNonFinite is returned for hit points with non-finite coordinates
	// or weights.
	ErrNonFinite = errors.New("hit point is not finite")
	// ErrNegativeWeight is returned for negative energies or fluences.
	ErrNegativeWeight = errors.New("hit point weight is negative")
	// ErrKindMismatch is returned when energy and fluence hit points are
	// mixed in one bundle map.
	ErrKindMismatch = errors.New("hit point kind differs from bundle map kind")
	// ErrTooFewPoints is returned when an estimator lacks input points.
	ErrTooFewPoints = errors.New("too few distinct hit points")
	// ErrInvalidShape is returned for grid shapes with a zero dimension.
	ErrInvalidShape = errors.New("invalid fluence grid shape")
	// ErrUnknownEstimator is returned for unknown estimator names.
	ErrUnknownEstimator = errors.New("unknown fluence estimator")
)

// Kind tells how the weight of a hit point is interpreted.
type Kind int

const (
	// EnergyKind hit points carry an energy in joules.
	EnergyKind Kind = iota
	// FluenceKind hit points carry a fluence in J/m².
	FluenceKind
)

func (k Kind) String() string {
	if k == FluenceKind {
		return "fluence"
	}
	return "energy"
}

// HitPoint is a single intersection of a ray with a surface, in the local
// surface frame.
type HitPoint struct {
	Position geom.Vec3
	Weight   float64
	Kind     Kind
}

func newHitPoint(pos geom.Vec3, w float64, k Kind) (HitPoint, error) {
	if !pos.IsFinite() || math.IsNaN(w) || math.IsInf(w, 0) {
		return HitPoint{}, fmt.Errorf("%s hit at %s weight %g: %w", k, pos, w, ErrNonFinite)
	}
	if w < 0 {
		return HitPoint{}, fmt.Errorf("%s hit weight %g: %w", k, w, ErrNegativeWeight)
	}
	return HitPoint{Position: pos, Weight: w, Kind: k}, nil
}

// NewEnergyHit returns an energy-weighted hit point.
func NewEnergyHit(pos geom.Vec3, e units.Energy) (HitPoint, error) {
	return newHitPoint(pos, e.Joules(), EnergyKind)
}

// NewFluenceHit returns a fluence-weighted hit point.
func NewFluenceHit(pos geom.Vec3, f units.Fluence) (HitPoint, error) {
	return newHitPoint(pos, f.JoulesPerSquareMeter(), FluenceKind)
}

// RaysHitMap holds the hit points caused by one ray bundle.
type RaysHitMap struct {
	kind   Kind
	points []HitPoint
	box    bbox
}

type bbox struct {
	minX, maxX, minY, maxY float64
}

func (b bbox) width() float64  { return b.maxX - b.minX }
func (b bbox) height() float64 { return b.maxY - b.minY }

func (b bbox) union(o bbox) bbox {
	return bbox{min(b.minX, o.minX), max(b.maxX, o.maxX), min(b.minY, o.minY), max(b.maxY, o.maxY)}
}

func (b bbox) pad(dx, dy float64) bbox {
	return bbox{b.minX - dx, b.maxX + dx, b.minY - dy, b.maxY + dy}
}

func newRaysHitMap(k Kind) *RaysHitMap {
	return &RaysHitMap{kind: k}
}

// Add appends a hit point. Points must be finite and of the map's kind.
func (m *RaysHitMap) Add(hp HitPoint) error {
	if !hp.Position.IsFinite() || !units.IsFinite(hp.Weight) {
		return ErrNonFinite
	}
	if hp.Kind != m.kind {
		return fmt.Errorf("adding %s hit to %s map: %w", hp.Kind, m.kind, ErrKindMismatch)
	}
	x, y := hp.Position.X, hp.Position.Y
	if len(m.points) == 0 {
		m.box = bbox{x, x, y, y}
	} else {
		m.box = m.box.union(bbox{x, x, y, y})
	}
	m.points = append(m.points, hp)
	return nil
}

// Merge appends all points of o.
func (m *RaysHitMap) Merge(o *RaysHitMap) error {
	if o == nil || len(o.points) == 0 {
		return nil
	}
	if len(m.points) > 0 && o.kind != m.kind {
		return fmt.Errorf("merging %s map into %s map: %w", o.kind, m.kind, ErrKindMismatch)
	}
	if len(m.points) == 0 {
		m.kind = o.kind
	}
	for _, p := range o.points {
		if err := m.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Kind returns the kind of the points in this map.
func (m *RaysHitMap) Kind() Kind { return m.kind }

// Len returns the number of hit points.
func (m *RaysHitMap) Len() int { return len(m.points) }

// Points returns the hit points. The slice must not be modified.
func (m *RaysHitMap) Points() []HitPoint { return m.points }

// TotalWeight sums the weights of all points.
func (m *RaysHitMap) TotalWeight() float64 {
	var sum float64
	for _, p := range m.points {
		sum += p.Weight
	}
	return sum
}

// BoundingBox returns the transverse extent of the hit points.
func (m *RaysHitMap) BoundingBox() (xMin, xMax, yMin, yMax units.Length) {
	return units.Meter(m.box.minX), units.Meter(m.box.maxX), units.Meter(m.box.minY), units.Meter(m.box.maxY)
}
