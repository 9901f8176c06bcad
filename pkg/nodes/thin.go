package nodes

import (
	"github.com/dd0wney/cluso-opticbench/pkg/aperture"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
)

// ports returns the single incoming and outgoing port of a node with one
// input and one output.
func ports(node optic.Node, d optic.Direction) (in, out string) {
	p := node.Ports()
	return p.Incoming(d)[0], p.Outgoing(d)[0]
}

// passEnergy forwards the spectrum of the incoming port unchanged.
func passEnergy(node optic.Node, in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	inPort, outPort := ports(node, d)
	s, ok, err := in.Spectrum(inPort)
	if err != nil || !ok {
		return optic.LightResult{}, err
	}
	return optic.LightResult{outPort: optic.EnergyData(s)}, nil
}

// enterThin maps a bundle into the frame of a node without length, moves
// it onto the node plane and applies the aperture of the incoming port.
func enterThin(node optic.Node, b *ray.Bundle, d optic.Direction) (*ray.Bundle, optic.Frame, error) {
	frame := optic.NewFrame(node.Isometry(), 0, d)
	local := frame.Enter(b)
	local.DropNonForward()
	if err := local.PropagateToPlane(0); err != nil {
		return nil, frame, err
	}
	inPort, _ := ports(node, d)
	port, _ := node.Ports().Get(inPort)
	if a := port.Surface.Aperture(); a != nil {
		if _, open := a.(aperture.None); !open {
			local.Apodize(a.Apodize)
		}
	}
	return local, frame, nil
}

// thinRays runs fn on the incoming bundle in the node plane and forwards
// the bundle. fn may be nil.
func thinRays(node optic.Node, in optic.LightResult, d optic.Direction, fn func(*ray.Bundle) error) (optic.LightResult, error) {
	inPort, outPort := ports(node, d)
	b, ok, err := in.Bundle(inPort)
	if err != nil || !ok {
		return optic.LightResult{}, err
	}
	local, frame, err := enterThin(node, b, d)
	if err != nil {
		return nil, err
	}
	if fn != nil {
		if err := fn(local); err != nil {
			return nil, err
		}
	}
	return optic.LightResult{outPort: optic.RayData(frame.Leave(local))}, nil
}

// thinGhosts is thinRays for every bundle of a ghost focus pass.
func thinGhosts(node optic.Node, in optic.LightResult, d optic.Direction, fn func(*ray.Bundle) error) (optic.LightResult, error) {
	inPort, outPort := ports(node, d)
	bundles, ok, err := in.Ghosts(inPort)
	if err != nil || !ok {
		return optic.LightResult{}, err
	}
	out := make([]*ray.Bundle, 0, len(bundles))
	for _, b := range bundles {
		local, frame, err := enterThin(node, b, d)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			if err := fn(local); err != nil {
				return nil, err
			}
		}
		out = append(out, frame.Leave(local))
	}
	return optic.LightResult{outPort: optic.GhostData(out)}, nil
}
