package scenery

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
)

// TypeReference is the node type of references.
const TypeReference = "reference"

// PropTarget is the read-only property holding the id of the referenced
// node.
const PropTarget = "target"

// Reference places an existing node a second time in the light path, as in
// a double pass through an amplifier. It shares the ports, and so the hit
// maps, of its target; only the inverted flag is its own.
type Reference struct {
	optic.Base
	target uuid.UUID
	slot   *NodeRef
}

// NewReference returns a reference to the node in slot.
func NewReference(name string, target uuid.UUID, slot *NodeRef) *Reference {
	r := &Reference{Base: optic.NewBase(TypeReference, name), target: target, slot: slot}
	_ = r.Properties().Create(PropTarget, "id of the referenced node", target.String(), properties.ReadOnly())
	return r
}

// Target returns the id of the referenced node.
func (r *Reference) Target() uuid.UUID { return r.target }

// Resolve returns the referenced node or a configuration error when it was
// deleted.
func (r *Reference) Resolve() (optic.Node, error) {
	if r.slot == nil || r.slot.node == nil {
		return nil, r.Invalid("resolve reference", fmt.Errorf("%s: %w", r.target, ErrDanglingTarget))
	}
	return r.slot.node, nil
}

// Ports returns the ports of the target. A dangling reference has none.
func (r *Reference) Ports() *optic.PortSet {
	n, err := r.Resolve()
	if err != nil {
		return optic.NewPortSet()
	}
	return n.Ports()
}

// Isometry returns the placement of the target.
func (r *Reference) Isometry() geom.Isometry {
	n, err := r.Resolve()
	if err != nil {
		return geom.Identity()
	}
	return n.Isometry()
}

// SetIsometry is a no-op: a reference is placed where its target is.
func (r *Reference) SetIsometry(geom.Isometry) {}

// SetInverted sets the reference's own flag. A reference to a node that
// only works forward cannot be inverted.
func (r *Reference) SetInverted(inverted bool) error {
	if inverted {
		if n, err := r.Resolve(); err == nil {
			if _, ok := n.(optic.ForwardOnly); ok {
				return r.Invalid("set inverted", optic.ErrNotInvertible)
			}
		}
	}
	return r.Base.SetInverted(inverted)
}

// Reset is a no-op; the target is reset on its own.
func (r *Reference) Reset() {}

func (r *Reference) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	n, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	return n.AnalyzeEnergy(in, d)
}

func (r *Reference) AnalyzeRayTrace(in optic.LightResult, cfg optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	n, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	return n.AnalyzeRayTrace(in, cfg, d)
}

func (r *Reference) AnalyzeGhostFocus(in optic.LightResult, cfg optic.GhostFocusConfig, d optic.Direction, pass int) (optic.LightResult, error) {
	n, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	return n.AnalyzeGhostFocus(in, cfg, d, pass)
}
