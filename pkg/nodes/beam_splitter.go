package nodes

import (
	"fmt"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
)

// Beam splitter ports. Output 1 carries the transmitted part of input 1
// and the reflected part of input 2; output 2 the other two parts.
const (
	PortSplitterIn1  = "input_1"
	PortSplitterIn2  = "input_2"
	PortSplitterOut1 = "out1_trans1_refl2"
	PortSplitterOut2 = "out2_trans2_refl1"
)

// PropSplittingRatio is the property holding the transmitted fraction.
const PropSplittingRatio = "splitting ratio"

// BeamSplitter divides and combines two beams. The transmission of the
// splitting ratio goes to the straight-through port. Reflected light is
// unfolded onto the axis of the port it leaves through.
type BeamSplitter struct {
	optic.Base
}

// NewBeamSplitter returns a 50/50 beam splitter.
func NewBeamSplitter(name string) *BeamSplitter {
	return NewBeamSplitterWith(name, ConstantTransmission(0.5))
}

// NewBeamSplitterWith returns a beam splitter with the given ratio.
func NewBeamSplitterWith(name string, ratio Transmission) *BeamSplitter {
	n := &BeamSplitter{Base: optic.NewBase(TypeBeamSplitter, name)}
	n.MustPort(PortSplitterIn1, optic.Input, nil)
	n.MustPort(PortSplitterIn2, optic.Input, nil)
	n.MustPort(PortSplitterOut1, optic.Output, nil)
	n.MustPort(PortSplitterOut2, optic.Output, nil)
	mustCreate(n.Properties().Create(PropSplittingRatio, "transmitted fraction", ConstantTransmission(0.5),
		properties.WithCheck(transmissionCheck)))
	if err := n.Properties().Set(PropSplittingRatio, ratio); err != nil {
		panic(fmt.Errorf("beam splitter: %w", err))
	}
	return n
}

func (n *BeamSplitter) ratio() Transmission {
	t, _ := properties.Get[Transmission](n.Properties(), PropSplittingRatio)
	return t
}

// wiring returns the incoming and outgoing ports in matching order: the
// light of incoming[i] is transmitted to outgoing[i].
func (n *BeamSplitter) wiring(d optic.Direction) (incoming, outgoing []string) {
	return n.Ports().Incoming(d), n.Ports().Outgoing(d)
}

func (n *BeamSplitter) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	incoming, outgoing := n.wiring(d)
	var trans, refl [2]*spectrum.Spectrum
	for i, port := range incoming {
		s, ok, err := in.Spectrum(port)
		if err != nil {
			return nil, err
		}
		if !ok || s == nil {
			continue
		}
		trans[i] = s.Clone()
		if refl[i], err = n.ratio().Apply(trans[i]); err != nil {
			return nil, n.Fail("split spectrum", err)
		}
	}
	out := optic.LightResult{}
	for i, port := range outgoing {
		if s := spectrum.Merge(trans[i], refl[1-i]); s != nil {
			out[port] = optic.EnergyData(s)
		}
	}
	return out, nil
}

// split divides a bundle into its transmitted and reflected parts.
func (n *BeamSplitter) split(b *ray.Bundle) (trans, refl *ray.Bundle, err error) {
	trans = b.Clone()
	refl, err = trans.Split(n.ratio().At)
	return trans, refl, err
}

func merge(a, b *ray.Bundle) *ray.Bundle {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	out := a.Clone()
	out.Merge(b)
	return out
}

func (n *BeamSplitter) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	incoming, outgoing := n.wiring(d)
	var trans, refl [2]*ray.Bundle
	for i, port := range incoming {
		b, ok, err := in.Bundle(port)
		if err != nil {
			return nil, err
		}
		if !ok || b == nil {
			continue
		}
		if trans[i], refl[i], err = n.split(b); err != nil {
			return nil, n.Fail("split rays", err)
		}
	}
	out := optic.LightResult{}
	for i, port := range outgoing {
		if b := merge(trans[i], refl[1-i]); b != nil {
			out[port] = optic.RayData(b)
		}
	}
	return out, nil
}

func (n *BeamSplitter) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, d optic.Direction, _ int) (optic.LightResult, error) {
	incoming, outgoing := n.wiring(d)
	var parts [2][]*ray.Bundle
	for i, port := range incoming {
		bundles, _, err := in.Ghosts(port)
		if err != nil {
			return nil, err
		}
		for _, b := range bundles {
			trans, refl, err := n.split(b)
			if err != nil {
				return nil, n.Fail("split rays", err)
			}
			parts[i] = append(parts[i], trans)
			parts[1-i] = append(parts[1-i], refl)
		}
	}
	out := optic.LightResult{}
	for i, port := range outgoing {
		if len(parts[i]) > 0 {
			out[port] = optic.GhostData(parts[i])
		}
	}
	return out, nil
}
