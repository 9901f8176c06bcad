// Package scenery holds the scene graph of an optical bench: groups of
// nodes connected by distance-labelled edges, references to nodes, and the
// interpreter that propagates light through a group.
package scenery

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// TypeGroup is the node type of groups.
const TypeGroup = "group"

// PropExpandView is the property holding the presentation flag of a
// group.
const PropExpandView = "expand view"

var (
	ErrNodeNotFound   = errors.New("node not found")
	ErrDuplicateNode  = errors.New("node already in group")
	ErrPortNotFound   = errors.New("port not found")
	ErrPortOccupied   = errors.New("port already connected")
	ErrPortMapped     = errors.New("port already mapped")
	ErrPortRole       = errors.New("port has the wrong role")
	ErrSelfLoop       = errors.New("node cannot be connected to itself")
	ErrInvalidLength  = errors.New("distance must be finite and non-negative")
	ErrEdgeNotFound   = errors.New("edge not found")
	ErrNameTaken      = errors.New("external port name already used")
	ErrRunning        = errors.New("group is being analysed")
	ErrDanglingTarget = errors.New("reference target was deleted")
	ErrInvertedRoot   = errors.New("the analysed group cannot be inverted")
)

// NodeRef is the arena slot of a node. References keep the slot, so a
// deleted target is detected instead of silently kept alive.
type NodeRef struct {
	node optic.Node
}

// Node returns the node in the slot, nil after deletion.
func (r *NodeRef) Node() optic.Node { return r.node }

// Edge connects an outgoing port to an incoming port. Light propagates
// over Distance along the optical axis.
type Edge struct {
	From     uuid.UUID    `yaml:"from" json:"from"`
	FromPort string       `yaml:"from_port" json:"from_port"`
	To       uuid.UUID    `yaml:"to" json:"to"`
	ToPort   string       `yaml:"to_port" json:"to_port"`
	Distance units.Length `yaml:"distance" json:"distance"`
}

// Mapping exposes an internal port as a port of the group.
type Mapping struct {
	External string    `yaml:"external" json:"external"`
	Node     uuid.UUID `yaml:"node" json:"node"`
	Port     string    `yaml:"port" json:"port"`
}

// Group is a node holding a subgraph. It implements optic.Node through its
// mapped ports and can be nested in other groups.
type Group struct {
	optic.Base

	mu      sync.RWMutex
	running atomic.Bool

	nodes   map[uuid.UUID]*NodeRef
	order   []uuid.UUID
	edges   []Edge
	inputs  []Mapping
	outputs []Mapping
	ports   *optic.PortSet
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	g := &Group{
		Base:  optic.NewBase(TypeGroup, name),
		nodes: make(map[uuid.UUID]*NodeRef),
		ports: optic.NewPortSet(),
	}
	// a bool never fails validation
	_ = g.Properties().Create(PropExpandView, "show the subgraph when rendered", false)
	return g
}

// Ports returns the mapped ports.
func (g *Group) Ports() *optic.PortSet {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ports
}

func (g *Group) invalid(op string, err error) error { return g.Invalid(op, err) }

// mutable fails while an analysis owns the group.
func (g *Group) mutable(op string) error {
	if g.running.Load() {
		return g.invalid(op, ErrRunning)
	}
	return nil
}

// AddNode adds a node. A node without id gets a fresh one.
func (g *Group) AddNode(n optic.Node) (uuid.UUID, error) {
	if err := g.mutable("add node"); err != nil {
		return uuid.Nil, err
	}
	if n == nil {
		return uuid.Nil, g.invalid("add node", errors.New("nil node"))
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if n.ID() == uuid.Nil {
		n.SetID(uuid.New())
	}
	id := n.ID()
	if _, exists := g.nodes[id]; exists {
		return uuid.Nil, g.invalid("add node", fmt.Errorf("%s: %w", id, ErrDuplicateNode))
	}
	g.nodes[id] = &NodeRef{node: n}
	g.order = append(g.order, id)
	return id, nil
}

// AddReference adds a reference to a node of this group.
func (g *Group) AddReference(target uuid.UUID, name string) (uuid.UUID, error) {
	return g.RestoreReference(uuid.Nil, target, name)
}

// RestoreReference is AddReference keeping a persisted reference id.
func (g *Group) RestoreReference(id, target uuid.UUID, name string) (uuid.UUID, error) {
	g.mu.RLock()
	slot, ok := g.nodes[target]
	g.mu.RUnlock()
	if !ok || slot.node == nil {
		return uuid.Nil, g.invalid("add reference", fmt.Errorf("%s: %w", target, ErrNodeNotFound))
	}
	ref := NewReference(name, target, slot)
	if id != uuid.Nil {
		ref.SetID(id)
	}
	return g.AddNode(ref)
}

// DeleteNode removes a node together with its edges and port mappings.
// References to it become dangling.
func (g *Group) DeleteNode(id uuid.UUID) error {
	if err := g.mutable("delete node"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	ref, ok := g.nodes[id]
	if !ok {
		return g.invalid("delete node", fmt.Errorf("%s: %w", id, ErrNodeNotFound))
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.From == id || e.To == id })
	g.inputs = slices.DeleteFunc(g.inputs, func(m Mapping) bool { return m.Node == id })
	g.outputs = slices.DeleteFunc(g.outputs, func(m Mapping) bool { return m.Node == id })
	g.order = slices.DeleteFunc(g.order, func(o uuid.UUID) bool { return o == id })
	delete(g.nodes, id)
	ref.node = nil
	g.rebuildPorts()
	return nil
}

// Node returns a node of the group.
func (g *Group) Node(id uuid.UUID) (optic.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ref, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return ref.node, true
}

// Nodes returns the nodes in insertion order.
func (g *Group) Nodes() []optic.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]optic.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].node)
	}
	return out
}

// NodeByName returns the first node with the given name.
func (g *Group) NodeByName(name string) (optic.Node, bool) {
	for _, n := range g.Nodes() {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}

// Edges returns a copy of the edges.
func (g *Group) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.edges)
}

// InputMappings returns the mapped input ports.
func (g *Group) InputMappings() []Mapping {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.inputs)
}

// OutputMappings returns the mapped output ports.
func (g *Group) OutputMappings() []Mapping {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.outputs)
}

// lookupPort verifies that a node exists and declares the port with the
// wanted role for forward travel.
func (g *Group) lookupPort(id uuid.UUID, port string, role optic.Role) error {
	ref, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNodeNotFound)
	}
	return checkRole(ref.node, port, role)
}

// checkRole verifies that n declares the port with the wanted role in its
// current orientation.
func checkRole(n optic.Node, port string, role optic.Role) error {
	have, ok := n.Ports().Role(port, optic.Effective(n.Inverted(), optic.Forward))
	if !ok {
		return fmt.Errorf("%q of %s: %w", port, n.Name(), ErrPortNotFound)
	}
	if have != role {
		return fmt.Errorf("%q of %s is an %s: %w", port, n.Name(), have, ErrPortRole)
	}
	return nil
}

func (g *Group) connected(id uuid.UUID, port string) bool {
	return slices.ContainsFunc(g.edges, func(e Edge) bool {
		return (e.From == id && e.FromPort == port) || (e.To == id && e.ToPort == port)
	})
}

func (g *Group) mapped(id uuid.UUID, port string) bool {
	match := func(m Mapping) bool { return m.Node == id && m.Port == port }
	return slices.ContainsFunc(g.inputs, match) || slices.ContainsFunc(g.outputs, match)
}

// Connect adds an edge from an output port to an input port. Roles are
// those of the nodes' current orientation. The group is left unchanged on
// failure.
func (g *Group) Connect(from uuid.UUID, fromPort string, to uuid.UUID, toPort string, distance units.Length) error {
	if err := g.mutable("connect"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if from == to {
		return g.invalid("connect", fmt.Errorf("%s: %w", from, ErrSelfLoop))
	}
	if !distance.IsFinite() || distance < 0 {
		return g.invalid("connect", fmt.Errorf("%v: %w", distance, ErrInvalidLength))
	}
	if err := g.lookupPort(from, fromPort, optic.Output); err != nil {
		return g.invalid("connect", err)
	}
	if err := g.lookupPort(to, toPort, optic.Input); err != nil {
		return g.invalid("connect", err)
	}
	for _, end := range []struct {
		id   uuid.UUID
		port string
	}{{from, fromPort}, {to, toPort}} {
		if g.connected(end.id, end.port) {
			return g.invalid("connect", fmt.Errorf("%q: %w", end.port, ErrPortOccupied))
		}
		if g.mapped(end.id, end.port) {
			return g.invalid("connect", fmt.Errorf("%q: %w", end.port, ErrPortMapped))
		}
	}
	g.edges = append(g.edges, Edge{From: from, FromPort: fromPort, To: to, ToPort: toPort, Distance: distance})
	return nil
}

func (g *Group) edgeFrom(from uuid.UUID, fromPort string) int {
	return slices.IndexFunc(g.edges, func(e Edge) bool { return e.From == from && e.FromPort == fromPort })
}

// Disconnect removes the edge leaving the given port.
func (g *Group) Disconnect(from uuid.UUID, fromPort string) error {
	if err := g.mutable("disconnect"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.edgeFrom(from, fromPort)
	if i < 0 {
		return g.invalid("disconnect", fmt.Errorf("%s:%q: %w", from, fromPort, ErrEdgeNotFound))
	}
	g.edges = slices.Delete(g.edges, i, i+1)
	return nil
}

// UpdateDistance changes the length of the edge leaving the given port.
func (g *Group) UpdateDistance(from uuid.UUID, fromPort string, distance units.Length) error {
	if err := g.mutable("update distance"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if !distance.IsFinite() || distance < 0 {
		return g.invalid("update distance", fmt.Errorf("%v: %w", distance, ErrInvalidLength))
	}
	i := g.edgeFrom(from, fromPort)
	if i < 0 {
		return g.invalid("update distance", fmt.Errorf("%s:%q: %w", from, fromPort, ErrEdgeNotFound))
	}
	g.edges[i].Distance = distance
	return nil
}

// MapInputPort exposes an internal input port under an external name.
func (g *Group) MapInputPort(external string, id uuid.UUID, port string) error {
	return g.mapPort("map input port", external, id, port, optic.Input)
}

// MapOutputPort exposes an internal output port under an external name.
func (g *Group) MapOutputPort(external string, id uuid.UUID, port string) error {
	return g.mapPort("map output port", external, id, port, optic.Output)
}

func (g *Group) mapPort(op, external string, id uuid.UUID, port string, role optic.Role) error {
	if err := g.mutable(op); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if external == "" {
		return g.invalid(op, errors.New("empty external port name"))
	}
	if _, used := g.ports.Get(external); used {
		return g.invalid(op, fmt.Errorf("%q: %w", external, ErrNameTaken))
	}
	if err := g.lookupPort(id, port, role); err != nil {
		return g.invalid(op, err)
	}
	if g.mapped(id, port) {
		return g.invalid(op, fmt.Errorf("%q: %w", port, ErrPortMapped))
	}
	if g.connected(id, port) {
		return g.invalid(op, fmt.Errorf("%q: %w", port, ErrPortOccupied))
	}
	m := Mapping{External: external, Node: id, Port: port}
	if role == optic.Input {
		g.inputs = append(g.inputs, m)
	} else {
		g.outputs = append(g.outputs, m)
	}
	g.rebuildPorts()
	return nil
}

// UnmapPort removes an external port.
func (g *Group) UnmapPort(external string) error {
	if err := g.mutable("unmap port"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	match := func(m Mapping) bool { return m.External == external }
	if !slices.ContainsFunc(g.inputs, match) && !slices.ContainsFunc(g.outputs, match) {
		return g.invalid("unmap port", fmt.Errorf("%q: %w", external, ErrPortNotFound))
	}
	g.inputs = slices.DeleteFunc(g.inputs, match)
	g.outputs = slices.DeleteFunc(g.outputs, match)
	g.rebuildPorts()
	return nil
}

// rebuildPorts declares the mapped ports on the internal port surfaces.
// Callers hold the write lock.
func (g *Group) rebuildPorts() {
	ports := optic.NewPortSet()
	add := func(ms []Mapping, role optic.Role) {
		for _, m := range ms {
			inner, _ := g.nodes[m.Node].node.Ports().Get(m.Port)
			// names are unique by construction
			_ = ports.Add(m.External, role, inner.Surface)
		}
	}
	add(g.inputs, optic.Input)
	add(g.outputs, optic.Output)
	g.ports = ports
}

// SetExpandView sets the presentation flag. It has no effect on analysis.
func (g *Group) SetExpandView(expand bool) error {
	if err := g.Properties().Set(PropExpandView, expand); err != nil {
		return g.invalid("set expand view", err)
	}
	return nil
}

// ExpandView returns the presentation flag.
func (g *Group) ExpandView() bool {
	v, _ := properties.Get[bool](g.Properties(), PropExpandView)
	return v
}

// SetInverted flips the direction light traverses the group. The flags of
// the nodes inside are not touched. Edges of an enclosing group that no
// longer fit the swapped ports are reported when the analysis starts.
func (g *Group) SetInverted(inverted bool) error {
	if err := g.mutable("set inverted"); err != nil {
		return err
	}
	return g.Base.SetInverted(inverted)
}

// Reset clears the diagnostic state of every node, nested groups included.
func (g *Group) Reset() {
	for _, n := range g.Nodes() {
		n.Reset()
	}
}

// Walk calls fn for every node of the group and of nested groups, depth
// first in insertion order. path lists the names of the enclosing groups.
func (g *Group) Walk(fn func(path []string, n optic.Node)) {
	g.walk(nil, fn)
}

func (g *Group) walk(path []string, fn func([]string, optic.Node)) {
	for _, n := range g.Nodes() {
		fn(path, n)
		if sub, ok := n.(*Group); ok {
			sub.walk(append(slices.Clone(path), sub.Name()), fn)
		}
	}
}

// Counts returns the number of nodes and edges, nested groups included.
func (g *Group) Counts() (nodes, edges int) {
	g.Walk(func(_ []string, n optic.Node) {
		nodes++
		if sub, ok := n.(*Group); ok {
			edges += len(sub.Edges())
		}
	})
	return nodes, edges + len(g.Edges())
}

// lock marks the group and its nested groups as owned by an analysis. On
// failure the groups locked so far are released again.
func (g *Group) lock() error {
	if !g.running.CompareAndSwap(false, true) {
		return g.invalid("start analysis", ErrRunning)
	}
	var locked []*Group
	for _, n := range g.Nodes() {
		if sub, ok := n.(*Group); ok {
			if err := sub.lock(); err != nil {
				for _, l := range locked {
					l.unlock()
				}
				g.running.Store(false)
				return err
			}
			locked = append(locked, sub)
		}
	}
	return nil
}

func (g *Group) unlock() {
	for _, n := range g.Nodes() {
		if sub, ok := n.(*Group); ok {
			sub.unlock()
		}
	}
	g.running.Store(false)
}
