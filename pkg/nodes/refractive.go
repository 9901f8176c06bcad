package nodes

import (
	"errors"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/refractive"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Property names shared by refractive elements.
const (
	PropFrontCurvature  = "front curvature"
	PropRearCurvature   = "rear curvature"
	PropCenterThickness = "center thickness"
	PropRefractiveIndex = "refractive index"
	PropWedgeAngle      = "wedge angle"
	PropFocalLength     = "focal length"
)

// Flat is the radius of curvature of a flat surface.
var Flat = units.Meter(math.Inf(1))

// curvatureCheck accepts any non-zero radius; an infinite one is flat.
func curvatureCheck(v any) error {
	r := v.(units.Length)
	if math.IsNaN(float64(r)) || r == 0 {
		return errors.New("radius of curvature must be non-zero")
	}
	return nil
}

// shapeFor returns a sphere of radius r or a plane for infinite r.
func shapeFor(r units.Length) (surface.Shape, error) {
	if math.IsInf(float64(r), 0) {
		return surface.Plane{}, nil
	}
	sphere, err := surface.NewSphere(r)
	if err != nil {
		return nil, err
	}
	return sphere, nil
}

// cylinderFor returns a cylinder of radius r or a plane for infinite r.
func cylinderFor(r units.Length) (surface.Shape, error) {
	if math.IsInf(float64(r), 0) {
		return surface.Plane{}, nil
	}
	c, err := surface.NewCylinder(r)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func at(z units.Length) geom.Isometry {
	return geom.NewIsometry(geom.NewVec3(0, 0, z.Meters()), 0, 0, 0)
}

func bulk(m refractive.Model) medium {
	return m.Index
}

// createIndex adds the refractive index property of a bulk element.
func createIndex(props *properties.Properties, n float64) {
	model, err := refractive.NewConst(n)
	mustCreate(err)
	mustCreate(props.Create(PropRefractiveIndex, "refractive index of the bulk material", refractive.Model(model)))
}

func createThickness(props *properties.Properties, t units.Length) {
	mustCreate(props.Create(PropCenterThickness, "thickness along the optical axis", t,
		properties.WithValidation("finite,gte=0")))
}

// twoSurfaces creates the entrance and exit surfaces of a bulk element and
// declares them as the surfaces of its input and output port.
func twoSurfaces(b *optic.Base) (front, rear *surface.OpticSurface) {
	front = surface.New("front", surface.Plane{})
	rear = surface.New("rear", surface.Plane{})
	b.MustPort(optic.PortIn, optic.Input, front)
	b.MustPort(optic.PortOut, optic.Output, rear)
	return front, rear
}

// ParaxialSurface is an ideal thin lens.
type ParaxialSurface struct {
	optic.Base
	surface *surface.OpticSurface
}

// NewParaxialSurface returns a thin lens with 10 cm focal length.
func NewParaxialSurface(name string) *ParaxialSurface {
	n := &ParaxialSurface{Base: optic.NewBase(TypeParaxialSurface, name)}
	n.surface = surface.New("paraxial", surface.Plane{})
	n.MustPort(optic.PortIn, optic.Input, n.surface)
	n.MustPort(optic.PortOut, optic.Output, n.surface)
	mustCreate(n.Properties().Create(PropFocalLength, "focal length, negative for diverging lenses", units.Millimeter(100),
		properties.WithCheck(func(v any) error {
			_, err := surface.NewParaxial(v.(units.Length))
			return err
		})))
	return n
}

// SetFocalLength changes the focal length.
func (n *ParaxialSurface) SetFocalLength(f units.Length) error {
	if err := n.Properties().Set(PropFocalLength, f); err != nil {
		return n.Invalid("set focal length", err)
	}
	return nil
}

func (n *ParaxialSurface) sequence() (sequence, error) {
	f, _ := properties.Get[units.Length](n.Properties(), PropFocalLength)
	shape, err := surface.NewParaxial(f)
	if err != nil {
		return sequence{}, n.Invalid("build surface", err)
	}
	n.surface.SetShape(shape)
	return sequence{ifaces: []iface{{surface: n.surface, after: constant(1), focal: f}}}, nil
}

func (n *ParaxialSurface) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	return passEnergy(n, in, d)
}

func (n *ParaxialSurface) AnalyzeRayTrace(in optic.LightResult, cfg optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	seq, err := n.sequence()
	if err != nil {
		return nil, err
	}
	out, err := seq.analyzeRays(n, in, cfg, d)
	if err != nil {
		return nil, n.Fail("trace rays", err)
	}
	return out, nil
}

func (n *ParaxialSurface) AnalyzeGhostFocus(in optic.LightResult, cfg optic.GhostFocusConfig, d optic.Direction, pass int) (optic.LightResult, error) {
	seq, err := n.sequence()
	if err != nil {
		return nil, err
	}
	out, err := seq.analyzeGhosts(n, in, cfg, d, pass)
	if err != nil {
		return nil, n.Fail("trace ghosts", err)
	}
	return out, nil
}

// Lens is a thick lens with two spherical or flat surfaces. A positive
// radius puts the centre of curvature behind the surface, so a biconvex
// lens has a positive front and a negative rear curvature.
type Lens struct {
	optic.Base
	front, rear *surface.OpticSurface
	shape       func(units.Length) (surface.Shape, error)
}

// NewLens returns a biconvex lens with 500 mm radii and 10 mm thickness
// made of glass with index 1.5.
func NewLens(name string) *Lens {
	return newLens(TypeLens, name, shapeFor)
}

// NewCylindricLens returns a lens like NewLens whose curved surfaces are
// cylinders with their axis along y, so it only focuses in the x-z plane.
func NewCylindricLens(name string) *Lens {
	return newLens(TypeCylindricLens, name, cylinderFor)
}

func newLens(nodeType, name string, shape func(units.Length) (surface.Shape, error)) *Lens {
	n := &Lens{Base: optic.NewBase(nodeType, name), shape: shape}
	n.front, n.rear = twoSurfaces(&n.Base)
	props := n.Properties()
	mustCreate(props.Create(PropFrontCurvature, "radius of curvature of the front surface", units.Millimeter(500),
		properties.WithCheck(curvatureCheck)))
	mustCreate(props.Create(PropRearCurvature, "radius of curvature of the rear surface", units.Millimeter(-500),
		properties.WithCheck(curvatureCheck)))
	createThickness(props, units.Millimeter(10))
	createIndex(props, 1.5)
	return n
}

// NewLensWith returns a lens with the given geometry and material.
func NewLensWith(name string, front, rear, thickness units.Length, n refractive.Model) (*Lens, error) {
	return NewLens(name).with(front, rear, thickness, n)
}

// NewCylindricLensWith returns a cylindric lens with the given geometry and
// material.
func NewCylindricLensWith(name string, front, rear, thickness units.Length, n refractive.Model) (*Lens, error) {
	return NewCylindricLens(name).with(front, rear, thickness, n)
}

func (n *Lens) with(front, rear, thickness units.Length, index refractive.Model) (*Lens, error) {
	for _, kv := range []struct {
		name  string
		value any
	}{
		{PropFrontCurvature, front},
		{PropRearCurvature, rear},
		{PropCenterThickness, thickness},
		{PropRefractiveIndex, index},
	} {
		if err := n.Properties().Set(kv.name, kv.value); err != nil {
			return nil, n.Invalid("create lens", err)
		}
	}
	return n, nil
}

func (n *Lens) sequence() (sequence, error) {
	props := n.Properties()
	r1, _ := properties.Get[units.Length](props, PropFrontCurvature)
	r2, _ := properties.Get[units.Length](props, PropRearCurvature)
	t, _ := properties.Get[units.Length](props, PropCenterThickness)
	model, _ := properties.Get[refractive.Model](props, PropRefractiveIndex)

	front, err := n.shape(r1)
	if err != nil {
		return sequence{}, n.Invalid("build front surface", err)
	}
	rear, err := n.shape(r2)
	if err != nil {
		return sequence{}, n.Invalid("build rear surface", err)
	}
	n.front.SetShape(front)
	n.rear.SetShape(rear)
	n.rear.SetIsometry(at(t))
	return sequence{
		length: t,
		ifaces: []iface{
			{surface: n.front, after: bulk(model)},
			{surface: n.rear, after: constant(1)},
		},
	}, nil
}

func (n *Lens) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	return passEnergy(n, in, d)
}

func (n *Lens) AnalyzeRayTrace(in optic.LightResult, cfg optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	seq, err := n.sequence()
	if err != nil {
		return nil, err
	}
	out, err := seq.analyzeRays(n, in, cfg, d)
	if err != nil {
		return nil, n.Fail("trace rays", err)
	}
	return out, nil
}

func (n *Lens) AnalyzeGhostFocus(in optic.LightResult, cfg optic.GhostFocusConfig, d optic.Direction, pass int) (optic.LightResult, error) {
	seq, err := n.sequence()
	if err != nil {
		return nil, err
	}
	out, err := seq.analyzeGhosts(n, in, cfg, d, pass)
	if err != nil {
		return nil, n.Fail("trace ghosts", err)
	}
	return out, nil
}

// Wedge is a plate whose rear surface is tilted about the x axis by the
// wedge angle. The thickness is measured on the axis.
type Wedge struct {
	optic.Base
	front, rear *surface.OpticSurface
}

// NewWedge returns a 10 mm plane-parallel plate of index 1.5.
func NewWedge(name string) *Wedge {
	n := &Wedge{Base: optic.NewBase(TypeWedge, name)}
	n.front, n.rear = twoSurfaces(&n.Base)
	props := n.Properties()
	createThickness(props, units.Millimeter(10))
	mustCreate(props.Create(PropWedgeAngle, "tilt of the rear surface about x", units.Degree(0),
		properties.WithCheck(func(v any) error {
			a := v.(units.Angle)
			if !a.IsFinite() || math.Abs(a.Degrees()) >= 90 {
				return errors.New("wedge angle must lie in (-90°, 90°)")
			}
			return nil
		})))
	createIndex(props, 1.5)
	return n
}

// NewWedgeWith returns a wedge with the given geometry and material.
func NewWedgeWith(name string, thickness units.Length, angle units.Angle, n refractive.Model) (*Wedge, error) {
	w := NewWedge(name)
	props := w.Properties()
	if err := props.Set(PropCenterThickness, thickness); err != nil {
		return nil, w.Invalid("create wedge", err)
	}
	if err := props.Set(PropWedgeAngle, angle); err != nil {
		return nil, w.Invalid("create wedge", err)
	}
	if err := props.Set(PropRefractiveIndex, n); err != nil {
		return nil, w.Invalid("create wedge", err)
	}
	return w, nil
}

func (n *Wedge) sequence() sequence {
	props := n.Properties()
	t, _ := properties.Get[units.Length](props, PropCenterThickness)
	angle, _ := properties.Get[units.Angle](props, PropWedgeAngle)
	model, _ := properties.Get[refractive.Model](props, PropRefractiveIndex)
	n.rear.SetIsometry(geom.NewIsometry(geom.NewVec3(0, 0, t.Meters()), angle, 0, 0))
	return sequence{
		length: t,
		ifaces: []iface{
			{surface: n.front, after: bulk(model)},
			{surface: n.rear, after: constant(1)},
		},
	}
}

func (n *Wedge) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	return passEnergy(n, in, d)
}

func (n *Wedge) AnalyzeRayTrace(in optic.LightResult, cfg optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	out, err := n.sequence().analyzeRays(n, in, cfg, d)
	if err != nil {
		return nil, n.Fail("trace rays", err)
	}
	return out, nil
}

func (n *Wedge) AnalyzeGhostFocus(in optic.LightResult, cfg optic.GhostFocusConfig, d optic.Direction, pass int) (optic.LightResult, error) {
	out, err := n.sequence().analyzeGhosts(n, in, cfg, d, pass)
	if err != nil {
		return nil, n.Fail("trace ghosts", err)
	}
	return out, nil
}
