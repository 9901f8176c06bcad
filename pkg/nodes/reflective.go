package nodes

import (
	"context"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Property names of reflective elements.
const (
	PropCurvature        = "curvature"
	PropReflectivity     = "reflectivity"
	PropLineDensity      = "line density"
	PropDiffractionOrder = "diffraction order"
)

// reflector is a single reflecting surface. Its placement redirects the
// optical axis: the light leaves along the axis the reflection of the
// incoming axis points to.
type reflector func(b *ray.Bundle, s *surface.OpticSurface) error

// reflect sends every bundle through fn in the node frame and unfolds the
// reflected light. Light arriving from either side meets the reflecting
// face, so the surface is never mirrored.
func reflect(node optic.Node, s *surface.OpticSurface, b *ray.Bundle, d optic.Direction, fn reflector) (*ray.Bundle, error) {
	frame := optic.NewFrame(node.Isometry(), 0, d)
	local := frame.Enter(b)
	if err := backup(local, s); err != nil {
		return nil, err
	}
	if err := fn(local, s); err != nil {
		return nil, err
	}
	return frame.LeaveReflected(local), nil
}

func reflectRays(node optic.Node, s *surface.OpticSurface, in optic.LightResult, d optic.Direction, fn reflector) (optic.LightResult, error) {
	inPort, outPort := ports(node, d)
	b, ok, err := in.Bundle(inPort)
	if err != nil || !ok {
		return optic.LightResult{}, err
	}
	out, err := reflect(node, s, b, d, fn)
	if err != nil {
		return nil, err
	}
	return optic.LightResult{outPort: optic.RayData(out)}, nil
}

func reflectGhosts(node optic.Node, s *surface.OpticSurface, in optic.LightResult, d optic.Direction, fn reflector) (optic.LightResult, error) {
	inPort, outPort := ports(node, d)
	bundles, ok, err := in.Ghosts(inPort)
	if err != nil || !ok {
		return optic.LightResult{}, err
	}
	out := make([]*ray.Bundle, 0, len(bundles))
	for _, b := range bundles {
		r, err := reflect(node, s, b, d, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return optic.LightResult{outPort: optic.GhostData(out)}, nil
}

// ThinMirror is a flat or spherical mirror of zero thickness. A positive
// curvature focuses the reflected light.
type ThinMirror struct {
	optic.Base
	surface *surface.OpticSurface
}

// NewThinMirror returns a flat mirror reflecting all light.
func NewThinMirror(name string) *ThinMirror {
	n := &ThinMirror{Base: optic.NewBase(TypeThinMirror, name)}
	n.surface = surface.New("mirror", surface.Plane{})
	n.MustPort(optic.PortIn, optic.Input, n.surface)
	n.MustPort(optic.PortOut, optic.Output, n.surface)
	props := n.Properties()
	mustCreate(props.Create(PropCurvature, "radius of curvature, infinite for flat mirrors", Flat,
		properties.WithCheck(curvatureCheck)))
	mustCreate(props.Create(PropReflectivity, "reflected fraction of the energy", 1.0,
		properties.WithValidation("finite,probability")))
	return n
}

// NewThinMirrorWith returns a mirror with the given radius of curvature
// and reflectivity.
func NewThinMirrorWith(name string, curvature units.Length, reflectivity float64) (*ThinMirror, error) {
	n := NewThinMirror(name)
	if err := n.Properties().Set(PropCurvature, curvature); err != nil {
		return nil, n.Invalid("create mirror", err)
	}
	if err := n.Properties().Set(PropReflectivity, reflectivity); err != nil {
		return nil, n.Invalid("create mirror", err)
	}
	return n, nil
}

func (n *ThinMirror) reflectivity() float64 {
	r, _ := properties.Get[float64](n.Properties(), PropReflectivity)
	return r
}

func (n *ThinMirror) update() error {
	r, _ := properties.Get[units.Length](n.Properties(), PropCurvature)
	shape, err := shapeFor(r)
	if err != nil {
		return n.Invalid("build mirror surface", err)
	}
	n.surface.SetShape(shape)
	return nil
}

func (n *ThinMirror) mirror(b *ray.Bundle, s *surface.OpticSurface) error {
	_, err := b.ReflectOnSurface(context.Background(), s, n.reflectivity())
	return err
}

// reflectEnergy scales the spectrum passed to the output by the
// reflectivity.
func reflectEnergy(node optic.Node, in optic.LightResult, d optic.Direction, reflectivity float64) (optic.LightResult, error) {
	out, err := passEnergy(node, in, d)
	if err != nil {
		return nil, err
	}
	for port, data := range out {
		s, _ := data.Spectrum()
		s = s.Clone()
		if err := s.ScaleVertical(reflectivity); err != nil {
			return nil, optic.NodeError("reflect spectrum", node.ID(), node.Name(), err)
		}
		out[port] = optic.EnergyData(s)
	}
	return out, nil
}

func (n *ThinMirror) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	return reflectEnergy(n, in, d, n.reflectivity())
}

func (n *ThinMirror) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	if err := n.update(); err != nil {
		return nil, err
	}
	out, err := reflectRays(n, n.surface, in, d, n.mirror)
	if err != nil {
		return nil, n.Fail("reflect rays", err)
	}
	return out, nil
}

func (n *ThinMirror) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, d optic.Direction, _ int) (optic.LightResult, error) {
	if err := n.update(); err != nil {
		return nil, err
	}
	out, err := reflectGhosts(n, n.surface, in, d, n.mirror)
	if err != nil {
		return nil, n.Fail("reflect rays", err)
	}
	return out, nil
}

// ParabolicMirror is an on-axis paraboloid mirror of zero thickness. It
// focuses an axial beam free of spherical aberration at the focal length; a
// negative focal length makes it diverge.
type ParabolicMirror struct {
	optic.Base
	surface *surface.OpticSurface
}

// NewParabolicMirror returns a focusing mirror with 1 m focal length
// reflecting all light.
func NewParabolicMirror(name string) *ParabolicMirror {
	n := &ParabolicMirror{Base: optic.NewBase(TypeParabolicMirror, name)}
	n.surface = surface.New("mirror", surface.Plane{})
	n.MustPort(optic.PortIn, optic.Input, n.surface)
	n.MustPort(optic.PortOut, optic.Output, n.surface)
	props := n.Properties()
	mustCreate(props.Create(PropFocalLength, "focal length, negative for diverging mirrors", units.Meter(1),
		properties.WithCheck(func(v any) error {
			_, err := surface.NewParabola(v.(units.Length))
			return err
		})))
	mustCreate(props.Create(PropReflectivity, "reflected fraction of the energy", 1.0,
		properties.WithValidation("finite,probability")))
	return n
}

// NewParabolicMirrorWith returns a parabolic mirror with the given focal
// length and reflectivity.
func NewParabolicMirrorWith(name string, focalLength units.Length, reflectivity float64) (*ParabolicMirror, error) {
	n := NewParabolicMirror(name)
	if err := n.Properties().Set(PropFocalLength, focalLength); err != nil {
		return nil, n.Invalid("create mirror", err)
	}
	if err := n.Properties().Set(PropReflectivity, reflectivity); err != nil {
		return nil, n.Invalid("create mirror", err)
	}
	return n, nil
}

func (n *ParabolicMirror) reflectivity() float64 {
	r, _ := properties.Get[float64](n.Properties(), PropReflectivity)
	return r
}

func (n *ParabolicMirror) update() error {
	f, _ := properties.Get[units.Length](n.Properties(), PropFocalLength)
	shape, err := surface.NewParabola(f)
	if err != nil {
		return n.Invalid("build mirror surface", err)
	}
	n.surface.SetShape(shape)
	return nil
}

func (n *ParabolicMirror) mirror(b *ray.Bundle, s *surface.OpticSurface) error {
	_, err := b.ReflectOnSurface(context.Background(), s, n.reflectivity())
	return err
}

func (n *ParabolicMirror) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	return reflectEnergy(n, in, d, n.reflectivity())
}

func (n *ParabolicMirror) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	if err := n.update(); err != nil {
		return nil, err
	}
	out, err := reflectRays(n, n.surface, in, d, n.mirror)
	if err != nil {
		return nil, n.Fail("reflect rays", err)
	}
	return out, nil
}

func (n *ParabolicMirror) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, d optic.Direction, _ int) (optic.LightResult, error) {
	if err := n.update(); err != nil {
		return nil, err
	}
	out, err := reflectGhosts(n, n.surface, in, d, n.mirror)
	if err != nil {
		return nil, n.Fail("reflect rays", err)
	}
	return out, nil
}

// ReflectiveGrating is a flat ruled grating with grooves along y. It sends
// all light into one diffraction order.
type ReflectiveGrating struct {
	optic.Base
	surface *surface.OpticSurface
}

// NewReflectiveGrating returns a grating with 1000 lines/mm used in the
// first order.
func NewReflectiveGrating(name string) *ReflectiveGrating {
	n := &ReflectiveGrating{Base: optic.NewBase(TypeReflectiveGrating, name)}
	n.surface = surface.New("grating", surface.Plane{})
	n.MustPort(optic.PortIn, optic.Input, n.surface)
	n.MustPort(optic.PortOut, optic.Output, n.surface)
	props := n.Properties()
	mustCreate(props.Create(PropLineDensity, "grooves per millimetre", 1000.0,
		properties.WithValidation("finite,gt=0")))
	mustCreate(props.Create(PropDiffractionOrder, "diffraction order the light is sent into", 1))
	return n
}

// NewReflectiveGratingWith returns a grating with the given groove density
// in lines per millimetre and order.
func NewReflectiveGratingWith(name string, linesPerMM float64, order int) (*ReflectiveGrating, error) {
	n := NewReflectiveGrating(name)
	if err := n.Properties().Set(PropLineDensity, linesPerMM); err != nil {
		return nil, n.Invalid("create grating", err)
	}
	if err := n.Properties().Set(PropDiffractionOrder, order); err != nil {
		return nil, n.Invalid("create grating", err)
	}
	return n, nil
}

// vector returns the grating vector in the surface plane.
func (n *ReflectiveGrating) vector() geom.Vec3 {
	density, _ := properties.Get[float64](n.Properties(), PropLineDensity)
	return geom.NewVec3(2*math.Pi*density*1e3, 0, 0)
}

func (n *ReflectiveGrating) diffract(b *ray.Bundle, s *surface.OpticSurface) error {
	order, _ := properties.Get[int](n.Properties(), PropDiffractionOrder)
	_, err := b.DiffractOnSurface(context.Background(), s, n.vector(), order)
	return err
}

func (n *ReflectiveGrating) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	return passEnergy(n, in, d)
}

func (n *ReflectiveGrating) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	out, err := reflectRays(n, n.surface, in, d, n.diffract)
	if err != nil {
		return nil, n.Fail("diffract rays", err)
	}
	return out, nil
}

func (n *ReflectiveGrating) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, d optic.Direction, _ int) (optic.LightResult, error) {
	out, err := reflectGhosts(n, n.surface, in, d, n.diffract)
	if err != nil {
		return nil, n.Fail("diffract rays", err)
	}
	return out, nil
}
