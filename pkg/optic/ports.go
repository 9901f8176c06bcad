package optic

import (
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-opticbench/pkg/surface"
)

// Role is the declared role of a port.
type Role int

const (
	Input Role = iota
	Output
)

func (r Role) String() string {
	if r == Output {
		return "output"
	}
	return "input"
}

// Swap returns the opposite role.
func (r Role) Swap() Role { return 1 - r }

// Default port names of nodes with one input and one output.
const (
	PortIn  = "input_1"
	PortOut = "output_1"
)

// Port is a named attachment point. Its surface carries the aperture, the
// coating and the hit map of the port.
type Port struct {
	Name    string
	Role    Role
	Surface *surface.OpticSurface
}

// PortSet holds the ports of a node in declaration order.
type PortSet struct {
	ports map[string]*Port
	order []string
}

// NewPortSet returns an empty port set.
func NewPortSet() *PortSet {
	return &PortSet{ports: make(map[string]*Port)}
}

// Add declares a port on the given surface. A nil surface gets a plane.
func (p *PortSet) Add(name string, role Role, s *surface.OpticSurface) error {
	if name == "" {
		return fmt.Errorf("empty port name")
	}
	if _, ok := p.ports[name]; ok {
		return fmt.Errorf("port %q already declared", name)
	}
	if s == nil {
		s = surface.New(name, surface.Plane{})
	}
	p.ports[name] = &Port{Name: name, Role: role, Surface: s}
	p.order = append(p.order, name)
	return nil
}

// Get returns a port by name.
func (p *PortSet) Get(name string) (*Port, bool) {
	port, ok := p.ports[name]
	return port, ok
}

// Role returns the effective role of a port for light travelling in
// direction d. Backward travel swaps inputs and outputs.
func (p *PortSet) Role(name string, d Direction) (Role, bool) {
	port, ok := p.ports[name]
	if !ok {
		return 0, false
	}
	if d == Backward {
		return port.Role.Swap(), true
	}
	return port.Role, true
}

// Names returns the names of the ports declared with the given role.
func (p *PortSet) Names(role Role) []string {
	var out []string
	for _, name := range p.order {
		if p.ports[name].Role == role {
			out = append(out, name)
		}
	}
	return out
}

// Incoming returns the ports light enters through when travelling in
// direction d.
func (p *PortSet) Incoming(d Direction) []string {
	if d == Backward {
		return p.Names(Output)
	}
	return p.Names(Input)
}

// Outgoing returns the ports light leaves through when travelling in
// direction d.
func (p *PortSet) Outgoing(d Direction) []string {
	if d == Backward {
		return p.Names(Input)
	}
	return p.Names(Output)
}

// All returns every port name in declaration order.
func (p *PortSet) All() []string {
	return slices.Clone(p.order)
}

// Len returns the number of ports.
func (p *PortSet) Len() int { return len(p.order) }

// Surfaces returns the distinct port surfaces.
func (p *PortSet) Surfaces() []*surface.OpticSurface {
	var out []*surface.OpticSurface
	for _, name := range p.order {
		s := p.ports[name].Surface
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Reset clears hit maps and reflection caches of all port surfaces.
func (p *PortSet) Reset() {
	for _, s := range p.Surfaces() {
		s.Reset()
	}
}
