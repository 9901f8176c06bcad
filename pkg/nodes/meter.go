package nodes

import (
	"fmt"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Meter types.
const (
	MeterEnergy = "ideal energy meter"
	MeterPower  = "ideal power meter"
)

// EnergyMeter property names.
const (
	PropMeterType = "meter type"
	PropEnergy    = "energy"
)

// EnergyMeter measures the energy passing through it. Readings of all
// calls since the last reset add up, so a ghost focus analysis reports the
// energy of every pass.
type EnergyMeter struct {
	optic.Base
}

// NewEnergyMeter returns an ideal energy meter.
func NewEnergyMeter(name string) *EnergyMeter {
	n := &EnergyMeter{Base: optic.NewBase(TypeEnergyMeter, name)}
	n.MustPort(optic.PortIn, optic.Input, nil)
	n.MustPort(optic.PortOut, optic.Output, nil)
	props := n.Properties()
	mustCreate(props.Create(PropMeterType, "kind of meter", MeterEnergy,
		properties.WithValidation(fmt.Sprintf("oneof='%s' '%s'", MeterEnergy, MeterPower))))
	mustCreate(props.Create(PropEnergy, "measured energy", units.Joule(0), properties.ReadOnly()))
	return n
}

// Energy returns the measured energy.
func (n *EnergyMeter) Energy() units.Energy {
	e, _ := properties.Get[units.Energy](n.Properties(), PropEnergy)
	return e
}

func (n *EnergyMeter) add(e units.Energy) error {
	return n.Properties().SetInternal(PropEnergy, n.Energy()+e)
}

// Reset zeroes the reading.
func (n *EnergyMeter) Reset() {
	n.Base.Reset()
	_ = n.Properties().SetInternal(PropEnergy, units.Joule(0))
}

func (n *EnergyMeter) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	out, err := passEnergy(n, in, d)
	if err != nil {
		return nil, err
	}
	return out, n.add(out.TotalEnergy())
}

func (n *EnergyMeter) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	return thinRays(n, in, d, func(b *ray.Bundle) error {
		return n.add(b.TotalEnergy())
	})
}

func (n *EnergyMeter) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, d optic.Direction, _ int) (optic.LightResult, error) {
	return thinGhosts(n, in, d, func(b *ray.Bundle) error {
		return n.add(b.TotalEnergy())
	})
}

// Report returns the reading.
func (n *EnergyMeter) Report() (map[string]any, error) {
	kind, _ := properties.Get[string](n.Properties(), PropMeterType)
	return map[string]any{PropMeterType: kind, PropEnergy: n.Energy()}, nil
}

// Spectrometer property names.
const (
	PropResolution = "resolution"
)

// Spectrometer records the spectrum passing through it.
type Spectrometer struct {
	optic.Base
	spectrum *spectrum.Spectrum
}

// NewSpectrometer returns an ideal spectrometer with 0.1 nm resolution.
func NewSpectrometer(name string) *Spectrometer {
	n := &Spectrometer{Base: optic.NewBase(TypeSpectrometer, name)}
	n.MustPort(optic.PortIn, optic.Input, nil)
	n.MustPort(optic.PortOut, optic.Output, nil)
	mustCreate(n.Properties().Create(PropResolution, "bin width of spectra recorded from rays",
		units.Nanometer(0.1), properties.WithValidation("finite,gt=0")))
	return n
}

// Spectrum returns the recorded spectrum, or nil when nothing arrived.
func (n *Spectrometer) Spectrum() *spectrum.Spectrum { return n.spectrum }

func (n *Spectrometer) Reset() {
	n.Base.Reset()
	n.spectrum = nil
}

func (n *Spectrometer) record(s *spectrum.Spectrum) {
	n.spectrum = spectrum.Merge(n.spectrum, s.Clone())
}

func (n *Spectrometer) recordRays(b *ray.Bundle) error {
	if b.Len() == 0 {
		return nil
	}
	res, _ := properties.Get[units.Length](n.Properties(), PropResolution)
	s, err := b.ToSpectrum(res)
	if err != nil {
		return err
	}
	n.record(s)
	return nil
}

func (n *Spectrometer) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	out, err := passEnergy(n, in, d)
	if err != nil {
		return nil, err
	}
	for _, data := range out {
		if s, ok := data.Spectrum(); ok && s != nil {
			n.record(s)
		}
	}
	return out, nil
}

func (n *Spectrometer) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	return thinRays(n, in, d, n.recordRays)
}

func (n *Spectrometer) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, d optic.Direction, _ int) (optic.LightResult, error) {
	return thinGhosts(n, in, d, n.recordRays)
}

// Report returns the recorded spectrum and its summary values.
func (n *Spectrometer) Report() (map[string]any, error) {
	if n.spectrum == nil {
		return map[string]any{"total energy": units.Joule(0)}, nil
	}
	return map[string]any{
		"spectrum":          n.spectrum,
		"total energy":      n.spectrum.TotalEnergy(),
		"center wavelength": n.spectrum.CenterWavelength(),
	}, nil
}
