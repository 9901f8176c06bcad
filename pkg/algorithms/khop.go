package algorithms

import (
	"fmt"

	"github.com/google/uuid"
)

// KHopResult holds the BFS neighbourhood of a node.
type KHopResult struct {
	Source    uuid.UUID
	ByHop     map[int][]uuid.UUID // hop distance → node ids at that distance
	Distances map[uuid.UUID]int
}

// Reachable returns the number of nodes found, source excluded.
func (r *KHopResult) Reachable() int { return len(r.Distances) }

// KHopNeighbours collects the nodes at most maxHops edges downstream of
// source. Pass graph.Reverse() to walk upstream. The source is never part
// of the result.
func KHopNeighbours(graph Graph, source uuid.UUID, maxHops int) (*KHopResult, error) {
	if maxHops < 1 {
		return nil, fmt.Errorf("maxHops must be >= 1, got %d", maxHops)
	}

	type entry struct {
		id  uuid.UUID
		hop int
	}
	res := &KHopResult{
		Source:    source,
		ByHop:     make(map[int][]uuid.UUID),
		Distances: make(map[uuid.UUID]int),
	}
	visited := map[uuid.UUID]bool{source: true}
	queue := []entry{{source, 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.hop >= maxHops {
			continue
		}
		next := current.hop + 1
		for _, n := range graph.Successors(current.id) {
			if visited[n] {
				continue
			}
			visited[n] = true
			res.Distances[n] = next
			res.ByHop[next] = append(res.ByHop[next], n)
			queue = append(queue, entry{n, next})
		}
	}
	return res, nil
}
