// Package optic defines the contract every optical element implements and
// the data exchanged between elements during an analysis.
//
// Nodes receive light through their incoming ports and emit light through
// their outgoing ports. Which ports are incoming depends on the direction of
// travel: the graph interpreter combines a node's inverted flag with the
// inversions of its enclosing groups and passes the resulting Direction to
// every Analyze call. Nodes never change their own flags during analysis.
//
// Ray data is exchanged in unfolded frames: light always travels along +z
// and z = 0 is the entrance plane of the receiving node.
package optic

import (
	"errors"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
)

// Direction is the direction light travels through a node.
type Direction = surface.Direction

const (
	Forward  = surface.Forward
	Backward = surface.Backward
)

// Effective returns the direction of travel through a node with the given
// inverted flag when the enclosing graph runs in direction d.
func Effective(inverted bool, d Direction) Direction {
	if inverted {
		return d.Reverse()
	}
	return d
}

// Node is an optical element.
type Node interface {
	ID() uuid.UUID
	// SetID restores a persisted identity. Only valid before the node is
	// added to a graph.
	SetID(id uuid.UUID)
	Name() string
	NodeType() string
	Ports() *PortSet
	Properties() *properties.Properties
	Isometry() geom.Isometry
	SetIsometry(iso geom.Isometry)
	Inverted() bool
	// SetInverted swaps the roles of the node's ports. Nodes that only work
	// forward refuse with ErrNotInvertible.
	SetInverted(inverted bool) error
	// Reset clears diagnostic state before an analysis.
	Reset()

	AnalyzeEnergy(in LightResult, d Direction) (LightResult, error)
	AnalyzeRayTrace(in LightResult, cfg RayTraceConfig, d Direction) (LightResult, error)
	AnalyzeGhostFocus(in LightResult, cfg GhostFocusConfig, d Direction, pass int) (LightResult, error)
}

// ErrNotInvertible is returned when a node that only works forward would
// see light travel backwards through it.
var ErrNotInvertible = errors.New("node cannot be inverted")

// ForwardOnly is implemented by nodes that create light. Their effective
// direction must stay Forward.
type ForwardOnly interface {
	ForwardOnly()
}

// Reporter is implemented by nodes holding diagnostic state.
type Reporter interface {
	Report() (map[string]any, error)
}

// PropName is the property holding a node's display name.
const PropName = "name"

// Base carries the state common to all nodes. Node types embed it.
type Base struct {
	id       uuid.UUID
	nodeType string
	ports    *PortSet
	props    *properties.Properties
	iso      geom.Isometry
	inverted bool
}

// NewBase returns a base with a fresh id, an empty port set and a property
// bag holding the name.
func NewBase(nodeType, name string) Base {
	props := properties.New()
	if name == "" {
		name = nodeType
	}
	// name is a plain string; creation cannot fail
	_ = props.Create(PropName, "name of the node", name)
	return Base{
		id:       uuid.New(),
		nodeType: nodeType,
		ports:    NewPortSet(),
		props:    props,
		iso:      geom.Identity(),
	}
}

func (b *Base) ID() uuid.UUID                      { return b.id }
func (b *Base) SetID(id uuid.UUID)                 { b.id = id }
func (b *Base) NodeType() string                   { return b.nodeType }
func (b *Base) Ports() *PortSet                    { return b.ports }
func (b *Base) Properties() *properties.Properties { return b.props }
func (b *Base) Isometry() geom.Isometry            { return b.iso }
func (b *Base) SetIsometry(iso geom.Isometry)      { b.iso = iso }
func (b *Base) Inverted() bool                     { return b.inverted }

// SetInverted sets the inverted flag.
func (b *Base) SetInverted(inverted bool) error {
	b.inverted = inverted
	return nil
}

// Name returns the display name.
func (b *Base) Name() string {
	name, _ := properties.Get[string](b.props, PropName)
	return name
}

// Reset clears the port surfaces.
func (b *Base) Reset() { b.ports.Reset() }

// Fail builds an analysis error for this node.
func (b *Base) Fail(op string, err error) error {
	return NodeError(op, b.id, b.Name(), err)
}

// Invalid builds a configuration error for this node.
func (b *Base) Invalid(op string, err error) error {
	return NewError(op).Configuration().Node(b.id, b.Name()).Cause(err).Err()
}

// MustPort declares a port and panics on duplicates. Constructors use it
// with fixed names.
func (b *Base) MustPort(name string, role Role, s *surface.OpticSurface) {
	if err := b.ports.Add(name, role, s); err != nil {
		panic(err)
	}
}
