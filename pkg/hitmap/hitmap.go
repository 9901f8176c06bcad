package hitmap

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// bounceLevel holds the bundle maps of one bounce level in insertion order.
type bounceLevel struct {
	maps  map[uuid.UUID]*RaysHitMap
	order []uuid.UUID
}

// CriticalFluence marks a bundle whose fluence exceeded a damage threshold.
// Order is the position of the bundle among those recorded at its bounce
// level.
type CriticalFluence struct {
	Fluence units.Fluence
	Order   int
	Bounce  int
}

// HitMap accumulates hit points on one surface.
type HitMap struct {
	levels   []*bounceLevel
	critical map[uuid.UUID]CriticalFluence
}

// New returns an empty hit map.
func New() *HitMap {
	return &HitMap{critical: make(map[uuid.UUID]CriticalFluence)}
}

// AddHitPoint records a hit of the bundle with the given id at the given
// bounce level. The first point of a bundle fixes the kind of that bundle
// map; later points of a different kind are rejected.
func (h *HitMap) AddHitPoint(bounce int, bundle uuid.UUID, hp HitPoint) error {
	if bounce < 0 {
		return fmt.Errorf("negative bounce level %d", bounce)
	}
	if !hp.Position.IsFinite() || !units.IsFinite(hp.Weight) {
		return fmt.Errorf("bounce %d bundle %s: %w", bounce, bundle, ErrNonFinite)
	}
	if hp.Weight < 0 {
		return fmt.Errorf("bounce %d bundle %s weight %g: %w", bounce, bundle, hp.Weight, ErrNegativeWeight)
	}
	for len(h.levels) <= bounce {
		h.levels = append(h.levels, &bounceLevel{maps: make(map[uuid.UUID]*RaysHitMap)})
	}
	lvl := h.levels[bounce]
	m, ok := lvl.maps[bundle]
	if !ok {
		m = newRaysHitMap(hp.Kind)
		lvl.maps[bundle] = m
		lvl.order = append(lvl.order, bundle)
	}
	return m.Add(hp)
}

// Reset removes all hit points and critical fluence marks.
func (h *HitMap) Reset() {
	h.levels = nil
	clear(h.critical)
}

// IsEmpty reports whether no hit point has been recorded.
func (h *HitMap) IsEmpty() bool {
	return h.Len() == 0
}

// Len returns the total number of hit points.
func (h *HitMap) Len() int {
	n := 0
	h.each(func(_ int, _ uuid.UUID, m *RaysHitMap) { n += m.Len() })
	return n
}

// Bounces returns the number of bounce levels.
func (h *HitMap) Bounces() int {
	return len(h.levels)
}

// Bundles returns the ids of the bundles recorded at a bounce level in
// insertion order.
func (h *HitMap) Bundles(bounce int) []uuid.UUID {
	if bounce < 0 || bounce >= len(h.levels) {
		return nil
	}
	return append([]uuid.UUID(nil), h.levels[bounce].order...)
}

// RaysHitMap returns the map of one bundle at one bounce level.
func (h *HitMap) RaysHitMap(bounce int, bundle uuid.UUID) (*RaysHitMap, bool) {
	if bounce < 0 || bounce >= len(h.levels) {
		return nil, false
	}
	m, ok := h.levels[bounce].maps[bundle]
	return m, ok
}

func (h *HitMap) each(fn func(bounce int, id uuid.UUID, m *RaysHitMap)) {
	for b, lvl := range h.levels {
		for _, id := range lvl.order {
			fn(b, id, lvl.maps[id])
		}
	}
}

// Merged returns all hit points of all bounce levels and bundles in one
// map. Bundle maps of different kinds cannot be merged.
func (h *HitMap) Merged() (*RaysHitMap, error) {
	out := newRaysHitMap(EnergyKind)
	var err error
	h.each(func(_ int, _ uuid.UUID, m *RaysHitMap) {
		if err == nil {
			err = out.Merge(m)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TotalWeight sums the weights of all hit points.
func (h *HitMap) TotalWeight() float64 {
	var sum float64
	h.each(func(_ int, _ uuid.UUID, m *RaysHitMap) { sum += m.TotalWeight() })
	return sum
}

// AddCriticalFluence marks a bundle as exceeding a damage threshold.
func (h *HitMap) AddCriticalFluence(bundle uuid.UUID, c CriticalFluence) {
	if h.critical == nil {
		h.critical = make(map[uuid.UUID]CriticalFluence)
	}
	h.critical[bundle] = c
}

// CriticalFluences returns a copy of the critical fluence marks.
func (h *HitMap) CriticalFluences() map[uuid.UUID]CriticalFluence {
	out := make(map[uuid.UUID]CriticalFluence, len(h.critical))
	for k, v := range h.critical {
		out[k] = v
	}
	return out
}
