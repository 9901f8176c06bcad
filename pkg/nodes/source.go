package nodes

import (
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Source property names.
const (
	PropLight              = "light"
	PropSpectrumResolution = "spectrum resolution"
)

// Source emits light through its output port. It emits only when light
// travels forward through it and, in ghost focus analysis, only in the
// first pass. Light arriving at a source is absorbed.
type Source struct {
	optic.Base
}

// NewSource returns a source emitting a collimated 1 J beam of 5 mm radius
// at 1054 nm.
func NewSource(name string) *Source {
	return NewSourceWith(name, ray.CollimatedSource(units.Millimeter(5), 3, units.Joule(1), units.Nanometer(1054)))
}

// NewSourceWith returns a source emitting the given light.
func NewSourceWith(name string, light ray.SourceSpec) *Source {
	n := &Source{Base: optic.NewBase(TypeSource, name)}
	n.MustPort(optic.PortOut, optic.Output, nil)
	props := n.Properties()
	mustCreate(props.Create(PropLight, "emitted light", light, properties.WithCheck(func(v any) error {
		_, err := v.(ray.SourceSpec).Bundle()
		return err
	})))
	mustCreate(props.Create(PropSpectrumResolution, "bin width of emitted spectra", units.Nanometer(0.1),
		properties.WithValidation("finite,gt=0")))
	return n
}

// ForwardOnly marks the source as emitting only in its own orientation.
func (*Source) ForwardOnly() {}

// SetInverted refuses to invert the source.
func (n *Source) SetInverted(inverted bool) error {
	if inverted {
		return n.Invalid("set inverted", optic.ErrNotInvertible)
	}
	return nil
}

func (n *Source) light() ray.SourceSpec {
	spec, _ := properties.Get[ray.SourceSpec](n.Properties(), PropLight)
	return spec
}

// SetLight replaces the emitted light.
func (n *Source) SetLight(light ray.SourceSpec) error {
	if err := n.Properties().Set(PropLight, light); err != nil {
		return n.Invalid("set light", err)
	}
	return nil
}

func (n *Source) AnalyzeEnergy(_ optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	if d != optic.Forward {
		return optic.LightResult{}, nil
	}
	res, _ := properties.Get[units.Length](n.Properties(), PropSpectrumResolution)
	s, err := n.light().Spectrum(res)
	if err != nil {
		return nil, n.Fail("emit spectrum", err)
	}
	return optic.LightResult{optic.PortOut: optic.EnergyData(s)}, nil
}

func (n *Source) bundle(ambient float64) (*ray.Bundle, error) {
	b, err := n.light().Bundle()
	if err != nil {
		return nil, n.Fail("emit rays", err)
	}
	rays := b.Rays()
	for i := range rays {
		rays[i].Index = ambient
	}
	return b, nil
}

func (n *Source) AnalyzeRayTrace(_ optic.LightResult, cfg optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	if d != optic.Forward {
		return optic.LightResult{}, nil
	}
	b, err := n.bundle(cfg.AmbientIndex)
	if err != nil {
		return nil, err
	}
	return optic.LightResult{optic.PortOut: optic.RayData(b.Transform(n.Isometry()))}, nil
}

func (n *Source) AnalyzeGhostFocus(_ optic.LightResult, cfg optic.GhostFocusConfig, d optic.Direction, pass int) (optic.LightResult, error) {
	if d != optic.Forward || pass > 0 {
		return optic.LightResult{}, nil
	}
	b, err := n.bundle(cfg.RayTrace.AmbientIndex)
	if err != nil {
		return nil, err
	}
	return optic.LightResult{optic.PortOut: optic.GhostData([]*ray.Bundle{b.Transform(n.Isometry())})}, nil
}

// mustCreate panics when a constructor creates an invalid default
// property.
func mustCreate(err error) {
	if err != nil {
		panic(err)
	}
}
