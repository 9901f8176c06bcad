package optic

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// DataKind tells which variant a LightData holds.
type DataKind int

const (
	NoData DataKind = iota
	EnergyKind
	RaysKind
	GhostKind
)

func (k DataKind) String() string {
	switch k {
	case EnergyKind:
		return "energy"
	case RaysKind:
		return "rays"
	case GhostKind:
		return "ghost"
	}
	return "none"
}

// LightData is the light travelling through one port: an energy spectrum,
// a ray bundle, or the bundles of a ghost focus pass. Exactly one variant
// is set. Payloads are shared between results and must not be modified;
// nodes clone before changing them.
type LightData struct {
	kind     DataKind
	spectrum *spectrum.Spectrum
	bundle   *ray.Bundle
	ghosts   []*ray.Bundle
}

// EnergyData wraps a spectrum.
func EnergyData(s *spectrum.Spectrum) LightData {
	return LightData{kind: EnergyKind, spectrum: s}
}

// RayData wraps a ray bundle.
func RayData(b *ray.Bundle) LightData {
	return LightData{kind: RaysKind, bundle: b}
}

// GhostData wraps the bundles of a ghost focus pass.
func GhostData(bs []*ray.Bundle) LightData {
	return LightData{kind: GhostKind, ghosts: bs}
}

// Kind returns the populated variant.
func (d LightData) Kind() DataKind { return d.kind }

// Spectrum returns the energy variant.
func (d LightData) Spectrum() (*spectrum.Spectrum, bool) {
	return d.spectrum, d.kind == EnergyKind
}

// Bundle returns the ray variant.
func (d LightData) Bundle() (*ray.Bundle, bool) {
	return d.bundle, d.kind == RaysKind
}

// Ghosts returns the ghost focus variant.
func (d LightData) Ghosts() ([]*ray.Bundle, bool) {
	return d.ghosts, d.kind == GhostKind
}

// TotalEnergy sums the energy carried by any variant.
func (d LightData) TotalEnergy() units.Energy {
	switch d.kind {
	case EnergyKind:
		if d.spectrum == nil {
			return 0
		}
		return d.spectrum.TotalEnergy()
	case RaysKind:
		if d.bundle == nil {
			return 0
		}
		return d.bundle.TotalEnergy()
	case GhostKind:
		var e units.Energy
		for _, b := range d.ghosts {
			if b != nil {
				e += b.TotalEnergy()
			}
		}
		return e
	}
	return 0
}

// LightResult maps port names to the light at that port.
type LightResult map[string]LightData

// Ports returns the port names in sorted order.
func (r LightResult) Ports() []string {
	return slices.Sorted(maps.Keys(r))
}

func wrongKind(port string, want DataKind, have LightData) error {
	return fmt.Errorf("port %q carries %s data, want %s: %w", port, have.kind, want, ErrData)
}

// Spectrum returns the spectrum at a port. A missing port is not an error.
func (r LightResult) Spectrum(port string) (*spectrum.Spectrum, bool, error) {
	d, ok := r[port]
	if !ok {
		return nil, false, nil
	}
	s, ok := d.Spectrum()
	if !ok {
		return nil, false, wrongKind(port, EnergyKind, d)
	}
	return s, true, nil
}

// Bundle returns the ray bundle at a port. A missing port is not an error.
func (r LightResult) Bundle(port string) (*ray.Bundle, bool, error) {
	d, ok := r[port]
	if !ok {
		return nil, false, nil
	}
	b, ok := d.Bundle()
	if !ok {
		return nil, false, wrongKind(port, RaysKind, d)
	}
	return b, true, nil
}

// Ghosts returns the ghost focus bundles at a port. A missing port is not
// an error.
func (r LightResult) Ghosts(port string) ([]*ray.Bundle, bool, error) {
	d, ok := r[port]
	if !ok {
		return nil, false, nil
	}
	g, ok := d.Ghosts()
	if !ok {
		return nil, false, wrongKind(port, GhostKind, d)
	}
	return g, true, nil
}

// TotalEnergy sums the energy over all ports.
func (r LightResult) TotalEnergy() units.Energy {
	var e units.Energy
	for _, d := range r {
		e += d.TotalEnergy()
	}
	return e
}
