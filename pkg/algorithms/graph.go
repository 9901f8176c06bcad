// Package algorithms provides graph algorithms over node ids: topological
// ordering, cycle detection and connectivity checks used by the scene
// graph interpreter.
package algorithms

import "github.com/google/uuid"

// Graph is a directed graph over node ids. Nodes must return the ids in a
// stable order; algorithms that have a choice follow that order, which
// makes their results deterministic.
type Graph interface {
	Nodes() []uuid.UUID
	Successors(id uuid.UUID) []uuid.UUID
}

// Digraph is a simple adjacency list implementation of Graph. Parallel
// edges are kept.
type Digraph struct {
	order []uuid.UUID
	succ  map[uuid.UUID][]uuid.UUID
	pred  map[uuid.UUID][]uuid.UUID
}

// NewDigraph returns an empty graph.
func NewDigraph() *Digraph {
	return &Digraph{
		succ: make(map[uuid.UUID][]uuid.UUID),
		pred: make(map[uuid.UUID][]uuid.UUID),
	}
}

// AddNode adds a node. Adding a node twice is a no-op.
func (g *Digraph) AddNode(id uuid.UUID) {
	if _, ok := g.succ[id]; ok {
		return
	}
	g.order = append(g.order, id)
	g.succ[id] = nil
	g.pred[id] = nil
}

// AddEdge adds the edge from -> to, adding missing nodes.
func (g *Digraph) AddEdge(from, to uuid.UUID) {
	g.AddNode(from)
	g.AddNode(to)
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
}

func (g *Digraph) Nodes() []uuid.UUID { return append([]uuid.UUID(nil), g.order...) }

func (g *Digraph) Successors(id uuid.UUID) []uuid.UUID { return g.succ[id] }

// Predecessors returns the sources of the edges ending at id.
func (g *Digraph) Predecessors(id uuid.UUID) []uuid.UUID { return g.pred[id] }

// EdgeCount returns the number of edges.
func (g *Digraph) EdgeCount() int {
	n := 0
	for _, s := range g.succ {
		n += len(s)
	}
	return n
}

// Reverse returns a copy with every edge flipped. Node order is kept.
func (g *Digraph) Reverse() *Digraph {
	r := NewDigraph()
	for _, id := range g.order {
		r.AddNode(id)
	}
	for _, from := range g.order {
		for _, to := range g.succ[from] {
			r.AddEdge(to, from)
		}
	}
	return r
}
