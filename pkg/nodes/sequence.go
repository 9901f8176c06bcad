package nodes

import (
	"context"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// medium returns the refractive index of a medium at a wavelength.
type medium func(units.Length) (float64, error)

func constant(n float64) medium {
	return func(units.Length) (float64, error) { return n, nil }
}

// iface is one refracting surface of a sequential element together
// with the medium behind it (seen in forward direction) and an optional
// thin lens acting at the surface.
type iface struct {
	surface *surface.OpticSurface
	after   medium
	focal   units.Length
}

// sequence is a refractive element made of surfaces traversed in order,
// such as a lens, a wedge or a paraxial surface.
type sequence struct {
	length units.Length
	ifaces []iface
}

// step is an interface as seen by light travelling in one direction.
type step struct {
	surface *surface.OpticSurface
	n2      medium
	focal   units.Length
}

// steps returns the traversal order for direction d. Backward travel
// visits mirrored surfaces in reverse order; the medium behind a surface
// is the one in front of it in forward order, the last one is ambient.
func (s sequence) steps(d optic.Direction, ambient float64) []step {
	n := len(s.ifaces)
	out := make([]step, n)
	for i, f := range s.ifaces {
		after := f.after
		if i == n-1 {
			after = constant(ambient)
		}
		if d == optic.Forward {
			out[i] = step{surface: f.surface, n2: after, focal: f.focal}
			continue
		}
		j := n - 1 - i
		before := constant(ambient)
		if i > 0 {
			before = s.ifaces[i-1].after
		}
		out[j] = step{surface: f.surface.Mirrored(s.length), n2: before, focal: f.focal}
	}
	return out
}

// index returns the position of the forward interface i in the traversal
// order of direction d.
func (s sequence) index(i int, d optic.Direction) int {
	if d == optic.Forward {
		return i
	}
	return len(s.ifaces) - 1 - i
}

// backup moves the rays onto a plane in front of the surface so that the
// forward intersection finds the surface even where it bulges towards the
// incoming light.
func backup(b *ray.Bundle, s *surface.OpticSurface) error {
	z := s.Isometry().Translation().Z
	switch shape := s.Shape().(type) {
	case *surface.Sphere:
		z -= shape.Radius().Abs().Meters()
	default:
		rot := s.Isometry().Rotation()
		if c := math.Abs(rot[2][2]); c < 1-1e-15 {
			extent := 0.0
			for _, r := range b.Rays() {
				extent = max(extent, math.Hypot(r.Position.X, r.Position.Y))
			}
			z -= extent*math.Sqrt(1-c*c)/c + 1e-6
		}
	}
	b.DropNonForward()
	return b.PropagateToPlane(units.Meter(z))
}

// traceResult is the outcome of sending one bundle through a sequence.
type traceResult struct {
	out       *ray.Bundle
	reflected []*ray.Bundle
	dropped   int
}

// trace refracts a bundle, given in the node frame, at steps[from:]. With
// ghosts set, the bundles reflected at every surface are cached on the
// surface for the given pass, up to maxBounce.
func trace(b *ray.Bundle, steps []step, from int, ghosts bool, d optic.Direction, pass, maxBounce int) (traceResult, error) {
	var res traceResult
	for _, st := range steps[from:] {
		if b.Len() == 0 {
			break
		}
		if err := backup(b, st.surface); err != nil {
			return res, fmt.Errorf("surface %s: %w", st.surface.Name(), err)
		}
		reflected, dropped, err := b.RefractOnSurface(context.Background(), st.surface, st.n2)
		if err != nil {
			return res, fmt.Errorf("surface %s: %w", st.surface.Name(), err)
		}
		res.dropped += dropped
		if st.focal != 0 {
			if _, err := b.RefractParaxial(st.focal); err != nil {
				return res, fmt.Errorf("surface %s: %w", st.surface.Name(), err)
			}
		}
		if ghosts && reflected.Len() > 0 && reflected.Bounce() <= maxBounce {
			st.surface.CacheReflected(d, pass, reflected)
			res.reflected = append(res.reflected, reflected)
		}
	}
	res.out = b
	return res, nil
}

// analyzeRays sends a single bundle through the sequence of a node.
func (s sequence) analyzeRays(node optic.Node, in optic.LightResult, cfg optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	ports := node.Ports()
	inPort, outPort := ports.Incoming(d)[0], ports.Outgoing(d)[0]
	b, ok, err := in.Bundle(inPort)
	if err != nil || !ok {
		return optic.LightResult{}, err
	}
	frame := optic.NewFrame(node.Isometry(), s.length, d)
	res, err := trace(frame.Enter(b), s.steps(d, cfg.AmbientIndex), 0, false, d, 0, 0)
	if err != nil {
		return nil, err
	}
	return optic.LightResult{outPort: optic.RayData(frame.Leave(res.out))}, nil
}

// analyzeGhosts sends every incoming ghost bundle through the sequence,
// caching reflections, and releases the reflections cached in earlier
// passes of the opposite direction.
func (s sequence) analyzeGhosts(node optic.Node, in optic.LightResult, cfg optic.GhostFocusConfig, d optic.Direction, pass int) (optic.LightResult, error) {
	ports := node.Ports()
	inPort, outPort := ports.Incoming(d)[0], ports.Outgoing(d)[0]
	bundles, _, err := in.Ghosts(inPort)
	if err != nil {
		return nil, err
	}
	frame := optic.NewFrame(node.Isometry(), s.length, d)
	steps := s.steps(d, cfg.RayTrace.AmbientIndex)

	var out []*ray.Bundle
	for _, b := range bundles {
		res, err := trace(frame.Enter(b), steps, 0, true, d, pass, cfg.MaxBounces)
		if err != nil {
			return nil, err
		}
		if res.out.Len() > 0 {
			out = append(out, frame.Leave(res.out))
		}
	}
	// reflections travelling the other way, turned into this frame
	for i, f := range s.ifaces {
		for _, c := range f.surface.TakeReflected(d.Reverse(), pass) {
			b := frame.Turn(c.(*ray.Bundle))
			res, err := trace(b, steps, s.index(i, d)+1, true, d, pass, cfg.MaxBounces)
			if err != nil {
				return nil, err
			}
			if res.out.Len() > 0 {
				out = append(out, frame.Leave(res.out))
			}
		}
	}
	if len(out) == 0 {
		return optic.LightResult{}, nil
	}
	return optic.LightResult{outPort: optic.GhostData(out)}, nil
}
