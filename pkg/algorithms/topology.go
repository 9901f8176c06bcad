package algorithms

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrCycle is returned when an ordering is requested for a cyclic graph.
var ErrCycle = errors.New("graph contains a cycle")

// IsDAG checks if the graph is a Directed Acyclic Graph
func IsDAG(graph Graph) bool {
	return !HasCycle(graph)
}

// TopologicalSort returns nodes in topological order using Kahn's algorithm.
// The ordering ensures that for every directed edge u->v, u comes before v.
// Ties are broken by the node order of the graph. A cyclic graph yields
// ErrCycle together with one of its cycles.
func TopologicalSort(graph Graph) ([]uuid.UUID, error) {
	nodeIDs := graph.Nodes()
	if len(nodeIDs) == 0 {
		return []uuid.UUID{}, nil
	}

	// Calculate in-degree for each node
	inDegree := make(map[uuid.UUID]int, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		inDegree[nodeID] += 0
		for _, to := range graph.Successors(nodeID) {
			inDegree[to]++
		}
	}

	// Queue of nodes with in-degree 0
	queue := make([]uuid.UUID, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		if inDegree[nodeID] == 0 {
			queue = append(queue, nodeID)
		}
	}

	sorted := make([]uuid.UUID, 0, len(nodeIDs))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, next := range graph.Successors(current) {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(sorted) != len(nodeIDs) {
		if c := FindCycle(graph); c != nil {
			return nil, fmt.Errorf("%w: %v", ErrCycle, c)
		}
		return nil, ErrCycle
	}
	return sorted, nil
}

// IsConnected checks if all nodes are reachable from the first one when
// edges are treated as undirected (weak connectivity).
func IsConnected(graph Graph) bool {
	nodeIDs := graph.Nodes()
	if len(nodeIDs) <= 1 {
		return true
	}

	neighbors := make(map[uuid.UUID][]uuid.UUID, len(nodeIDs))
	for _, from := range nodeIDs {
		for _, to := range graph.Successors(from) {
			neighbors[from] = append(neighbors[from], to)
			neighbors[to] = append(neighbors[to], from)
		}
	}

	visited := map[uuid.UUID]bool{nodeIDs[0]: true}
	queue := []uuid.UUID{nodeIDs[0]}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range neighbors[current] {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return len(visited) == len(nodeIDs)
}

// Isolated returns the nodes without any incident edge, in graph order.
func Isolated(graph Graph) []uuid.UUID {
	touched := make(map[uuid.UUID]bool)
	for _, from := range graph.Nodes() {
		for _, to := range graph.Successors(from) {
			touched[from] = true
			touched[to] = true
		}
	}
	var out []uuid.UUID
	for _, id := range graph.Nodes() {
		if !touched[id] {
			out = append(out, id)
		}
	}
	return out
}

// Sources returns the nodes without incoming edges, in graph order.
func Sources(graph Graph) []uuid.UUID {
	hasIncoming := make(map[uuid.UUID]bool)
	for _, from := range graph.Nodes() {
		for _, to := range graph.Successors(from) {
			hasIncoming[to] = true
		}
	}
	var out []uuid.UUID
	for _, id := range graph.Nodes() {
		if !hasIncoming[id] {
			out = append(out, id)
		}
	}
	return out
}
