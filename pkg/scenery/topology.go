package scenery

import (
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/algorithms"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// BeamPath is the shortest geometric path between two nodes of a group.
type BeamPath struct {
	From   string       `yaml:"from" json:"from"`
	To     string       `yaml:"to" json:"to"`
	Nodes  []string     `yaml:"nodes" json:"nodes"`
	Length units.Length `yaml:"length" json:"length"`
}

// Topology describes the graph of a group without analysing it. Names are
// node names of the top level only.
type Topology struct {
	Nodes     int        `yaml:"nodes" json:"nodes"`
	Edges     int        `yaml:"edges" json:"edges"`
	Sources   []string   `yaml:"sources" json:"sources"`
	Sinks     []string   `yaml:"sinks" json:"sinks"`
	Isolated  []string   `yaml:"isolated,omitempty" json:"isolated,omitempty"`
	Connected bool       `yaml:"connected" json:"connected"`
	Loops     [][]string `yaml:"loops,omitempty" json:"loops,omitempty"`
	Paths     []BeamPath `yaml:"paths,omitempty" json:"paths,omitempty"`
}

// Graph returns the forward dependency graph of the group's own nodes.
func (g *Group) Graph() *algorithms.Digraph {
	return g.snapshot().graph(optic.Forward)
}

// Topology summarises the group. Paths run from every source to every
// sink it reaches, measured along edge distances.
func (g *Group) Topology() Topology {
	snap := g.snapshot()
	dg := snap.graph(optic.Forward)
	name := func(id uuid.UUID) string { return snap.nodes[id].Name() }
	names := func(list []uuid.UUID) []string {
		out := make([]string, 0, len(list))
		for _, id := range list {
			out = append(out, name(id))
		}
		return out
	}

	isolated := algorithms.Isolated(dg)
	lone := make(map[uuid.UUID]bool, len(isolated))
	for _, id := range isolated {
		lone[id] = true
	}
	var sources, sinks []uuid.UUID
	for _, id := range algorithms.Sources(dg) {
		if !lone[id] {
			sources = append(sources, id)
		}
	}
	for _, id := range algorithms.Sources(dg.Reverse()) {
		if !lone[id] {
			sinks = append(sinks, id)
		}
	}

	t := Topology{
		Nodes:     len(snap.order),
		Edges:     len(snap.edges),
		Sources:   names(sources),
		Sinks:     names(sinks),
		Isolated:  names(isolated),
		Connected: algorithms.IsConnected(dg),
	}
	for _, loop := range algorithms.Loops(dg) {
		t.Loops = append(t.Loops, names(loop))
	}

	weight := snap.distance
	for _, from := range sources {
		for _, to := range sinks {
			path, length, ok := algorithms.WeightedShortestPath(dg, weight, from, to)
			if !ok {
				continue
			}
			t.Paths = append(t.Paths, BeamPath{
				From:   name(from),
				To:     name(to),
				Nodes:  names(path),
				Length: units.Length(length),
			})
		}
	}
	return t
}

// Downstream returns the nodes at most maxHops edges after id, nearest
// first.
func (g *Group) Downstream(id uuid.UUID, maxHops int) ([]optic.Node, error) {
	snap := g.snapshot()
	if _, ok := snap.nodes[id]; !ok {
		return nil, optic.NewError("downstream").Configuration().Cause(ErrNodeNotFound).Err()
	}
	res, err := algorithms.KHopNeighbours(snap.graph(optic.Forward), id, maxHops)
	if err != nil {
		return nil, optic.ConfigError("downstream", err)
	}
	var out []optic.Node
	for hop := 1; hop <= maxHops; hop++ {
		for _, n := range res.ByHop[hop] {
			out = append(out, snap.nodes[n])
		}
	}
	return out, nil
}

// distance is the shortest edge between two nodes; parallel edges may
// differ in length.
func (s snapshot) distance(from, to uuid.UUID) float64 {
	best := -1.0
	for _, e := range s.edges {
		if e.From == from && e.To == to && (best < 0 || e.Distance.Meters() < best) {
			best = e.Distance.Meters()
		}
	}
	return max(best, 0)
}
