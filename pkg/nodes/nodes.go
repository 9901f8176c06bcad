// Package nodes implements the optical elements of a bench: sources,
// detectors, refractive and reflective elements, filters and beam
// splitters.
//
// Every node type registers a constructor under its type name so that
// documents and command line tools can build nodes with New.
package nodes

import (
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
)

// Node type names.
const (
	TypeSource            = "source"
	TypeDummy             = "dummy"
	TypeEnergyMeter       = "energy meter"
	TypeSpectrometer      = "spectrometer"
	TypeIdealFilter       = "ideal filter"
	TypeBeamSplitter      = "beam splitter"
	TypeParaxialSurface   = "paraxial surface"
	TypeLens              = "lens"
	TypeThinMirror        = "thin mirror"
	TypeWedge             = "wedge"
	TypeReflectiveGrating = "reflective grating"
	TypeSpotDiagram       = "spot diagram"
	TypeFluenceDetector   = "fluence detector"
	TypeWavefrontSensor   = "wavefront sensor"
	TypeCylindricLens     = "cylindric lens"
	TypeParabolicMirror   = "parabolic mirror"
)

var registry = map[string]func() optic.Node{
	TypeSource:            func() optic.Node { return NewSource("") },
	TypeDummy:             func() optic.Node { return NewDummy("") },
	TypeEnergyMeter:       func() optic.Node { return NewEnergyMeter("") },
	TypeSpectrometer:      func() optic.Node { return NewSpectrometer("") },
	TypeIdealFilter:       func() optic.Node { return NewIdealFilter("") },
	TypeBeamSplitter:      func() optic.Node { return NewBeamSplitter("") },
	TypeParaxialSurface:   func() optic.Node { return NewParaxialSurface("") },
	TypeLens:              func() optic.Node { return NewLens("") },
	TypeThinMirror:        func() optic.Node { return NewThinMirror("") },
	TypeWedge:             func() optic.Node { return NewWedge("") },
	TypeReflectiveGrating: func() optic.Node { return NewReflectiveGrating("") },
	TypeSpotDiagram:       func() optic.Node { return NewSpotDiagram("") },
	TypeFluenceDetector:   func() optic.Node { return NewFluenceDetector("") },
	TypeWavefrontSensor:   func() optic.Node { return NewWavefrontSensor("") },
	TypeCylindricLens:     func() optic.Node { return NewCylindricLens("") },
	TypeParabolicMirror:   func() optic.Node { return NewParabolicMirror("") },
}

// ErrUnknownType is wrapped by New for unregistered node types.
var ErrUnknownType = fmt.Errorf("unknown node type")

// New returns a node of the given type with default parameters.
func New(nodeType string) (optic.Node, error) {
	ctor, ok := registry[nodeType]
	if !ok {
		return nil, optic.ConfigError("create node", fmt.Errorf("%q: %w", nodeType, ErrUnknownType))
	}
	return ctor(), nil
}

// Types returns the registered node types in sorted order.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
