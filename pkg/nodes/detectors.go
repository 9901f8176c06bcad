package nodes

import (
	"fmt"
	"math"
	"slices"

	"github.com/dd0wney/cluso-opticbench/pkg/hitmap"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// detector is the common part of the nodes that record the rays passing
// through them. Input and output share the detector surface.
type detector struct {
	optic.Base
	surface *surface.OpticSurface
	bundles []*ray.Bundle
}

func newDetector(nodeType, name string) detector {
	d := detector{Base: optic.NewBase(nodeType, name)}
	d.surface = surface.New("detector", surface.Plane{})
	d.MustPort(optic.PortIn, optic.Input, d.surface)
	d.MustPort(optic.PortOut, optic.Output, d.surface)
	return d
}

// Surface returns the detector surface holding the hit map.
func (d *detector) Surface() *surface.OpticSurface { return d.surface }

// Bundles returns the bundles recorded since the last reset.
func (d *detector) Bundles() []*ray.Bundle { return d.bundles }

// Reset forgets all recorded rays.
func (d *detector) Reset() {
	d.Base.Reset()
	d.bundles = nil
}

func (d *detector) record(b *ray.Bundle) error {
	if err := b.RecordHits(d.surface); err != nil {
		return err
	}
	d.bundles = append(d.bundles, b.Clone())
	return nil
}

// merged returns all recorded rays in one bundle.
func (d *detector) merged() *ray.Bundle {
	out := ray.NewBundle()
	for _, b := range d.bundles {
		out.Merge(b)
	}
	return out
}

func (d *detector) AnalyzeEnergy(in optic.LightResult, dir optic.Direction) (optic.LightResult, error) {
	return passEnergy(d, in, dir)
}

func (d *detector) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, dir optic.Direction) (optic.LightResult, error) {
	out, err := thinRays(d, in, dir, d.record)
	if err != nil {
		return nil, d.Fail("record rays", err)
	}
	return out, nil
}

func (d *detector) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, dir optic.Direction, _ int) (optic.LightResult, error) {
	out, err := thinGhosts(d, in, dir, d.record)
	if err != nil {
		return nil, d.Fail("record rays", err)
	}
	return out, nil
}

// SpotDiagram records where rays cross its plane.
type SpotDiagram struct {
	detector
}

// NewSpotDiagram returns an empty spot diagram.
func NewSpotDiagram(name string) *SpotDiagram {
	return &SpotDiagram{detector: newDetector(TypeSpotDiagram, name)}
}

// SpotStats summarises a spot diagram.
type SpotStats struct {
	Rays            int          `yaml:"rays" json:"rays"`
	Energy          units.Energy `yaml:"energy" json:"energy"`
	CentroidX       units.Length `yaml:"centroid_x" json:"centroid_x"`
	CentroidY       units.Length `yaml:"centroid_y" json:"centroid_y"`
	RMSRadius       units.Length `yaml:"rms_radius" json:"rms_radius"`
	GeometricRadius units.Length `yaml:"geometric_radius" json:"geometric_radius"`
}

// Stats returns the statistics of all recorded rays. An empty diagram
// reports zeros.
func (n *SpotDiagram) Stats() SpotStats {
	b := n.merged()
	st := SpotStats{Rays: b.Len(), Energy: b.TotalEnergy()}
	if c, ok := b.Centroid(); ok {
		st.CentroidX, st.CentroidY = units.Meter(c.X), units.Meter(c.Y)
	}
	st.RMSRadius, _ = b.RMSRadius()
	st.GeometricRadius, _ = b.GeometricRadius()
	return st
}

func (n *SpotDiagram) Report() (map[string]any, error) {
	st := n.Stats()
	return map[string]any{
		"rays":             st.Rays,
		"energy":           st.Energy,
		"centroid x":       st.CentroidX,
		"centroid y":       st.CentroidY,
		"rms radius":       st.RMSRadius,
		"geometric radius": st.GeometricRadius,
	}, nil
}

// FluenceDetector property names.
const (
	PropEstimator = "fluence estimator"
	PropGridSize  = "grid size"
	PropLIDT      = "lidt"
)

// FluenceDetector estimates the fluence distribution of the recorded rays
// and flags bundles exceeding the laser induced damage threshold.
type FluenceDetector struct {
	detector
}

// NewFluenceDetector returns a detector using the Voronoi estimator on a
// 100 x 100 grid with a threshold of 1 J/cm².
func NewFluenceDetector(name string) *FluenceDetector {
	n := &FluenceDetector{detector: newDetector(TypeFluenceDetector, name)}
	props := n.Properties()
	mustCreate(props.Create(PropEstimator, "fluence estimation method", hitmap.Voronoi.String(),
		properties.WithCheck(func(v any) error {
			_, err := hitmap.ParseEstimator(v.(string))
			return err
		})))
	mustCreate(props.Create(PropGridSize, "pixels per side of the fluence map", 100,
		properties.WithValidation("gte=1,lte=4096")))
	mustCreate(props.Create(PropLIDT, "laser induced damage threshold", units.JoulePerSquareCentimeter(1),
		properties.WithValidation("finite,gte=0")))
	return n
}

func (n *FluenceDetector) estimator() hitmap.Estimator {
	s, _ := properties.Get[string](n.Properties(), PropEstimator)
	est, _ := hitmap.ParseEstimator(s)
	return est
}

func (n *FluenceDetector) grid() [2]int {
	size, _ := properties.Get[int](n.Properties(), PropGridSize)
	return [2]int{size, size}
}

func (n *FluenceDetector) lidt() units.Fluence {
	f, _ := properties.Get[units.Fluence](n.Properties(), PropLIDT)
	return f
}

func (n *FluenceDetector) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, dir optic.Direction) (optic.LightResult, error) {
	out, err := thinRays(n, in, dir, n.recordChecked)
	if err != nil {
		return nil, n.Fail("record rays", err)
	}
	return out, nil
}

func (n *FluenceDetector) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, dir optic.Direction, _ int) (optic.LightResult, error) {
	out, err := thinGhosts(n, in, dir, n.recordChecked)
	if err != nil {
		return nil, n.Fail("record rays", err)
	}
	return out, nil
}

// recordChecked records a bundle and compares its own peak fluence with
// the damage threshold. Bundles too sparse for the estimator are not
// checked.
func (n *FluenceDetector) recordChecked(b *ray.Bundle) error {
	if err := n.record(b); err != nil {
		return err
	}
	hits := n.surface.HitMap()
	m, ok := hits.RaysHitMap(b.Bounce(), b.ID())
	if !ok {
		return nil
	}
	single := hitmap.New()
	for _, p := range m.Points() {
		if err := single.AddHitPoint(0, b.ID(), p); err != nil {
			return err
		}
	}
	fd, err := single.CalcFluenceMap(n.grid(), n.estimator())
	if err != nil {
		return nil
	}
	if peak := fd.Peak(); peak > n.lidt() {
		hits.AddCriticalFluence(b.ID(), hitmap.CriticalFluence{
			Fluence: peak,
			Order:   slices.Index(hits.Bundles(b.Bounce()), b.ID()),
			Bounce:  b.Bounce(),
		})
	}
	return nil
}

// Fluence estimates the fluence of all recorded hits. It returns nil
// without error when nothing has been recorded.
func (n *FluenceDetector) Fluence() (*hitmap.FluenceData, error) {
	hits := n.surface.HitMap()
	if hits.IsEmpty() {
		return nil, nil
	}
	fd, err := hits.CalcFluenceMap(n.grid(), n.estimator())
	if err != nil {
		return nil, n.Fail("estimate fluence", err)
	}
	return fd, nil
}

// Critical returns the bundles whose peak fluence exceeded the threshold.
func (n *FluenceDetector) Critical() map[string]hitmap.CriticalFluence {
	out := make(map[string]hitmap.CriticalFluence)
	for id, c := range n.surface.HitMap().CriticalFluences() {
		out[id.String()] = c
	}
	return out
}

func (n *FluenceDetector) Report() (map[string]any, error) {
	rep := map[string]any{
		"estimator":        n.estimator().String(),
		"peak fluence":     units.Fluence(0),
		"average fluence":  units.Fluence(0),
		"energy":           units.Energy(0),
		"lidt":             n.lidt(),
		"lidt exceeded":    false,
		"critical bundles": len(n.surface.HitMap().CriticalFluences()),
	}
	fd, err := n.Fluence()
	if err != nil {
		return nil, err
	}
	if fd != nil {
		rep["peak fluence"] = fd.Peak()
		rep["average fluence"] = fd.Average()
		rep["energy"] = fd.TotalEnergy()
		rep["lidt exceeded"] = fd.Peak() > n.lidt()
	}
	return rep, nil
}

// WavefrontSensor measures the wavefront error of the recorded rays
// relative to the ray closest to the axis.
type WavefrontSensor struct {
	detector
}

// NewWavefrontSensor returns an empty wavefront sensor.
func NewWavefrontSensor(name string) *WavefrontSensor {
	return &WavefrontSensor{detector: newDetector(TypeWavefrontSensor, name)}
}

// WavefrontPoint is the wavefront error at a ray position, in waves.
type WavefrontPoint struct {
	X, Y  units.Length
	Error float64
}

// WavefrontMap holds the wavefront error of the rays of one wavelength.
// PTV and RMS are in waves.
type WavefrontMap struct {
	Wavelength units.Length
	Points     []WavefrontPoint
	PTV        float64
	RMS        float64
}

// WavefrontError returns the wavefront error of the rays of a bundle with
// the given wavelength. The error is the negative optical path difference
// to the ray closest to the axis.
func WavefrontError(b *ray.Bundle, wavelength units.Length) (WavefrontMap, error) {
	if !wavelength.IsFinite() || wavelength <= 0 {
		return WavefrontMap{}, fmt.Errorf("wavelength %v: %w", wavelength, ray.ErrInvalidRay)
	}
	m := WavefrontMap{Wavelength: wavelength}
	minR := math.Inf(1)
	var center float64
	for _, r := range b.Rays() {
		if !r.Valid || r.Wavelength != wavelength {
			continue
		}
		p := WavefrontPoint{X: units.Meter(r.Position.X), Y: units.Meter(r.Position.Y), Error: -r.PathLength.Meters()}
		if rr := math.Hypot(r.Position.X, r.Position.Y); rr < minR {
			minR, center = rr, p.Error
		}
		m.Points = append(m.Points, p)
	}
	if len(m.Points) == 0 {
		return m, nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	var sum, sum2 float64
	for i := range m.Points {
		e := (m.Points[i].Error - center) / wavelength.Meters()
		m.Points[i].Error = e
		lo, hi = min(lo, e), max(hi, e)
		sum += e
		sum2 += e * e
	}
	k := float64(len(m.Points))
	mean := sum / k
	m.PTV = hi - lo
	m.RMS = math.Sqrt(max(0, sum2/k-mean*mean))
	return m, nil
}

// Maps returns one wavefront map per wavelength of the recorded rays, in
// ascending wavelength order.
func (n *WavefrontSensor) Maps() ([]WavefrontMap, error) {
	b := n.merged()
	var out []WavefrontMap
	for _, wl := range b.Wavelengths() {
		m, err := WavefrontError(b, wl)
		if err != nil {
			return nil, n.Fail("wavefront error", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (n *WavefrontSensor) Report() (map[string]any, error) {
	maps, err := n.Maps()
	if err != nil {
		return nil, err
	}
	rep := map[string]any{"ptv": 0.0, "rms": 0.0, "wavelengths": len(maps)}
	if len(maps) > 0 {
		rep["wavelength"] = maps[0].Wavelength
		rep["ptv"] = maps[0].PTV
		rep["rms"] = maps[0].RMS
	}
	return rep, nil
}
