package document

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/aperture"
	"github.com/dd0wney/cluso-opticbench/pkg/coating"
	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/nodes"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/scenery"
)

// NodeSpec is the wire form of a node. Group fields are set for groups
// only, Target for references only.
type NodeSpec struct {
	ID         uuid.UUID           `yaml:"id"`
	Type       string              `yaml:"type"`
	Inverted   bool                `yaml:"inverted,omitempty"`
	Isometry   *geom.IsometrySpec  `yaml:"isometry,omitempty"`
	Properties yaml.Node           `yaml:"properties"`
	Ports      map[string]PortSpec `yaml:"ports,omitempty"`
	Target     string              `yaml:"target,omitempty"`
	Nodes      []NodeSpec          `yaml:"nodes,omitempty"`
	Edges      []scenery.Edge      `yaml:"edges,omitempty"`
	Inputs     []scenery.Mapping   `yaml:"inputs,omitempty"`
	Outputs    []scenery.Mapping   `yaml:"outputs,omitempty"`
}

// PortSpec holds the port surface settings differing from the defaults of
// the node type.
type PortSpec struct {
	Coating  *coating.Spec  `yaml:"coating,omitempty"`
	Aperture *aperture.Spec `yaml:"aperture,omitempty"`
}

func encodeNode(n optic.Node) (NodeSpec, error) {
	s := NodeSpec{ID: n.ID(), Type: n.NodeType(), Inverted: n.Inverted()}
	if err := s.Properties.Encode(n.Properties()); err != nil {
		return NodeSpec{}, optic.NewError("encode node").Data().Node(n.ID(), n.Name()).Cause(err).Err()
	}

	switch n := n.(type) {
	case *scenery.Reference:
		s.Target = n.Target().String()
		return s, nil
	case *scenery.Group:
		if err := encodeGroup(n, &s); err != nil {
			return NodeSpec{}, err
		}
	default:
		s.Ports = encodePorts(n.Ports())
	}
	if iso := n.Isometry(); !iso.IsIdentity(0) {
		spec := iso.Spec()
		s.Isometry = &spec
	}
	return s, nil
}

// encodeGroup lists references after all other nodes so that their
// targets exist when the group is read back.
func encodeGroup(g *scenery.Group, s *NodeSpec) error {
	var refs []NodeSpec
	for _, child := range g.Nodes() {
		cs, err := encodeNode(child)
		if err != nil {
			return err
		}
		if cs.Type == scenery.TypeReference {
			refs = append(refs, cs)
			continue
		}
		s.Nodes = append(s.Nodes, cs)
	}
	s.Nodes = append(s.Nodes, refs...)
	s.Edges = g.Edges()
	s.Inputs = g.InputMappings()
	s.Outputs = g.OutputMappings()
	return nil
}

func encodePorts(ports *optic.PortSet) map[string]PortSpec {
	out := make(map[string]PortSpec)
	for _, name := range ports.All() {
		p, _ := ports.Get(name)
		var ps PortSpec
		if c := p.Surface.Coating(); c != nil && c.Type() != coating.TypeIdealAR {
			spec := c.Spec()
			ps.Coating = &spec
		}
		if a := p.Surface.Aperture(); a != nil {
			if spec := a.Spec(); spec.Type != aperture.TypeNone {
				ps.Aperture = &spec
			}
		}
		if ps.Coating != nil || ps.Aperture != nil {
			out[name] = ps
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func decodeNode(s NodeSpec) (optic.Node, error) {
	if s.Type == scenery.TypeGroup {
		return decodeGroup(s)
	}
	n, err := nodes.New(s.Type)
	if err != nil {
		return nil, err
	}
	if s.ID != uuid.Nil {
		n.SetID(s.ID)
	}
	if err := applyCommon(n, s); err != nil {
		return nil, err
	}
	for name, ps := range s.Ports {
		p, ok := n.Ports().Get(name)
		if !ok {
			return nil, optic.NewError("decode ports").Configuration().Node(n.ID(), n.Name()).
				Cause(fmt.Errorf("%q: %w", name, scenery.ErrPortNotFound)).Err()
		}
		if ps.Coating != nil {
			c, err := ps.Coating.Coating()
			if err != nil {
				return nil, optic.NewError("decode ports").Configuration().Node(n.ID(), n.Name()).Port(name).Cause(err).Err()
			}
			p.Surface.SetCoating(c)
		}
		if ps.Aperture != nil {
			a, err := ps.Aperture.Aperture()
			if err != nil {
				return nil, optic.NewError("decode ports").Configuration().Node(n.ID(), n.Name()).Port(name).Cause(err).Err()
			}
			p.Surface.SetAperture(a)
		}
	}
	return n, nil
}

func applyCommon(n optic.Node, s NodeSpec) error {
	if err := n.Properties().Apply(&s.Properties); err != nil {
		return optic.NewError("decode properties").Configuration().Node(n.ID(), n.Name()).Cause(err).Err()
	}
	if s.Isometry != nil {
		n.SetIsometry(s.Isometry.Isometry())
	}
	if err := n.SetInverted(s.Inverted); err != nil {
		return optic.NewError("decode node").Configuration().Node(n.ID(), n.Name()).Cause(err).Err()
	}
	return nil
}

func decodeGroup(s NodeSpec) (*scenery.Group, error) {
	g := scenery.NewGroup("")
	if s.ID != uuid.Nil {
		g.SetID(s.ID)
	}
	if err := applyCommon(g, s); err != nil {
		return nil, err
	}

	var refs []NodeSpec
	for _, cs := range s.Nodes {
		if cs.Type == scenery.TypeReference {
			refs = append(refs, cs)
			continue
		}
		child, err := decodeNode(cs)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.Name(), err)
		}
		if _, err := g.AddNode(child); err != nil {
			return nil, err
		}
	}
	for _, rs := range refs {
		target, err := uuid.Parse(rs.Target)
		if err != nil {
			return nil, optic.NewError("decode reference").Configuration().Node(rs.ID, "").Cause(err).Err()
		}
		id, err := g.RestoreReference(rs.ID, target, "")
		if err != nil {
			return nil, err
		}
		ref, _ := g.Node(id)
		if err := applyCommon(ref, rs); err != nil {
			return nil, err
		}
	}

	for _, e := range s.Edges {
		if err := g.Connect(e.From, e.FromPort, e.To, e.ToPort, e.Distance); err != nil {
			return nil, err
		}
	}
	for _, m := range s.Inputs {
		if err := g.MapInputPort(m.External, m.Node, m.Port); err != nil {
			return nil, err
		}
	}
	for _, m := range s.Outputs {
		if err := g.MapOutputPort(m.External, m.Node, m.Port); err != nil {
			return nil, err
		}
	}
	return g, nil
}
