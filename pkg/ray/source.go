package ray

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/distribution"
	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// distribute combines the three distributions into one ray per start
// point and wavelength. dir maps a start point to its ray origin and
// direction.
func distribute(pos distribution.Position, en distribution.Energy, sp distribution.Spectral, dir func(geom.Point2) (geom.Vec3, geom.Vec3)) (*Bundle, error) {
	points := pos.Points()
	energies, err := en.Apply(points)
	if err != nil {
		return nil, err
	}
	comps := sp.Components()
	b := &Bundle{id: uuid.New(), rays: make([]Ray, 0, len(points)*len(comps))}
	for i, p := range points {
		origin, d := dir(p)
		for _, c := range comps {
			r, err := New(origin, d, c.Wavelength, energies[i].Scale(c.Fraction))
			if err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
			b.rays = append(b.rays, r)
		}
	}
	return b, nil
}

// NewCollimatedBundle creates rays travelling along +z from the points of
// pos. The ray energies sum to the total of en.
func NewCollimatedBundle(pos distribution.Position, en distribution.Energy, sp distribution.Spectral) (*Bundle, error) {
	return distribute(pos, en, sp, func(p geom.Point2) (geom.Vec3, geom.Vec3) {
		return geom.NewVec3(p.X, p.Y, 0), geom.UnitZ()
	})
}

// NewPointSourceBundle creates rays starting at the origin and passing
// through the points of pos placed at z = reference.
func NewPointSourceBundle(pos distribution.Position, en distribution.Energy, sp distribution.Spectral, reference units.Length) (*Bundle, error) {
	if err := validation.Var(reference, "finite,gt=0"); err != nil {
		return nil, fmt.Errorf("reference length: %w: %w", ErrInvalidRay, err)
	}
	return distribute(pos, en, sp, func(p geom.Point2) (geom.Vec3, geom.Vec3) {
		return geom.Vec3{}, geom.NewVec3(p.X, p.Y, reference.Meters())
	})
}

// Source kinds as they appear in documents.
const (
	SourceCollimated  = "collimated"
	SourcePointSource = "point_source"
)

// SourceSpec describes the light emitted by a source: where the rays
// start, how the energy is shared between them and which wavelengths they
// carry. Reference is the distance at which a point source passes through
// the position distribution.
type SourceSpec struct {
	Kind      string                    `yaml:"kind" json:"kind" validate:"oneof=collimated point_source"`
	Position  distribution.PositionSpec `yaml:"position" json:"position"`
	Energy    distribution.EnergySpec   `yaml:"energy" json:"energy"`
	Spectral  distribution.SpectralSpec `yaml:"spectral" json:"spectral"`
	Reference units.Length              `yaml:"reference,omitempty" json:"reference,omitempty" validate:"finite,gte=0"`
}

// Bundle generates the ray bundle described by the spec.
func (s SourceSpec) Bundle() (*Bundle, error) {
	if err := validation.Struct(s); err != nil {
		return nil, err
	}
	pos, err := s.Position.Position()
	if err != nil {
		return nil, err
	}
	en, err := s.Energy.Energy()
	if err != nil {
		return nil, err
	}
	sp, err := s.Spectral.Spectral()
	if err != nil {
		return nil, err
	}
	if s.Kind == SourcePointSource {
		return NewPointSourceBundle(pos, en, sp, s.Reference)
	}
	return NewCollimatedBundle(pos, en, sp)
}

// Spectrum returns the emitted energy spectrum at the given resolution.
func (s SourceSpec) Spectrum(resolution units.Length) (*spectrum.Spectrum, error) {
	en, err := s.Energy.Energy()
	if err != nil {
		return nil, err
	}
	sp, err := s.Spectral.Spectral()
	if err != nil {
		return nil, err
	}
	total := en.Total()
	comps := sp.Components()
	lines := make([]spectrum.Line, len(comps))
	for i, c := range comps {
		lines[i] = spectrum.Line{Wavelength: c.Wavelength, Energy: total.Scale(c.Fraction)}
	}
	return spectrum.FromLaserLines(lines, resolution)
}

// CollimatedSource returns a collimated hexapolar source of the given
// radius, ring count and total energy at a single wavelength.
func CollimatedSource(radius units.Length, rings int, energy units.Energy, wavelength units.Length) SourceSpec {
	return SourceSpec{
		Kind:     SourceCollimated,
		Position: distribution.PositionSpec{Type: distribution.TypeHexapolar, Radius: radius, Rings: rings},
		Energy:   distribution.EnergySpec{Type: distribution.TypeUniform, Total: energy},
		Spectral: distribution.SpectralSpec{
			Type:  distribution.TypeLaserLines,
			Lines: []spectrum.Line{{Wavelength: wavelength, Energy: units.Joule(1)}},
		},
	}
}
