package nodes

import (
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
)

// Dummy forwards light unchanged. It marks a position on the bench and
// applies the apertures of its ports.
type Dummy struct {
	optic.Base
}

// NewDummy returns a dummy node.
func NewDummy(name string) *Dummy {
	n := &Dummy{Base: optic.NewBase(TypeDummy, name)}
	n.MustPort(optic.PortIn, optic.Input, nil)
	n.MustPort(optic.PortOut, optic.Output, nil)
	return n
}

func (n *Dummy) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	return passEnergy(n, in, d)
}

func (n *Dummy) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	return thinRays(n, in, d, nil)
}

func (n *Dummy) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, d optic.Direction, _ int) (optic.LightResult, error) {
	return thinGhosts(n, in, d, nil)
}
