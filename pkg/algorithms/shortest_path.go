package algorithms

import "github.com/google/uuid"

// ShortestPath returns a path with the fewest edges from start to end, or
// nil when end is unreachable. It runs a bidirectional BFS and needs
// predecessors, so it takes a Digraph.
func ShortestPath(graph *Digraph, start, end uuid.UUID) []uuid.UUID {
	if start == end {
		return []uuid.UUID{start}
	}

	forward := map[uuid.UUID]uuid.UUID{start: start}
	backward := map[uuid.UUID]uuid.UUID{end: end}
	forwardQueue := []uuid.UUID{start}
	backwardQueue := []uuid.UUID{end}

	for len(forwardQueue) > 0 || len(backwardQueue) > 0 {
		var meet uuid.UUID
		var ok bool
		if forwardQueue, meet, ok = expandFrontier(forwardQueue, graph.Successors, forward, backward); ok {
			return joinPaths(meet, forward, backward)
		}
		if backwardQueue, meet, ok = expandFrontier(backwardQueue, graph.Predecessors, backward, forward); ok {
			return joinPaths(meet, forward, backward)
		}
	}
	return nil
}

// expandFrontier advances one BFS level and reports the first node already
// seen by the other search.
func expandFrontier(
	queue []uuid.UUID,
	next func(uuid.UUID) []uuid.UUID,
	visited map[uuid.UUID]uuid.UUID,
	other map[uuid.UUID]uuid.UUID,
) ([]uuid.UUID, uuid.UUID, bool) {
	var level []uuid.UUID
	for _, current := range queue {
		for _, n := range next(current) {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = current
			if _, hit := other[n]; hit {
				return nil, n, true
			}
			level = append(level, n)
		}
	}
	return level, uuid.Nil, false
}

func joinPaths(meet uuid.UUID, forward, backward map[uuid.UUID]uuid.UUID) []uuid.UUID {
	var path []uuid.UUID
	for n := meet; ; n = forward[n] {
		path = append(path, n)
		if forward[n] == n {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	for n := meet; backward[n] != n; {
		n = backward[n]
		path = append(path, n)
	}
	return path
}

// HopDistances returns the edge count of the shortest path from source to
// every reachable node, source included.
func HopDistances(graph Graph, source uuid.UUID) map[uuid.UUID]int {
	distances := map[uuid.UUID]int{source: 0}
	queue := []uuid.UUID{source}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range graph.Successors(current) {
			if _, seen := distances[n]; !seen {
				distances[n] = distances[current] + 1
				queue = append(queue, n)
			}
		}
	}
	return distances
}

// WeightFunc returns the non-negative weight of the edge from -> to.
type WeightFunc func(from, to uuid.UUID) float64

// WeightedShortestPath runs Dijkstra's algorithm from start to end. ok is
// false when end is unreachable.
func WeightedShortestPath(graph Graph, weight WeightFunc, start, end uuid.UUID) (path []uuid.UUID, total float64, ok bool) {
	type item struct {
		id       uuid.UUID
		distance float64
	}

	distances := map[uuid.UUID]float64{start: 0}
	parent := map[uuid.UUID]uuid.UUID{start: start}
	done := make(map[uuid.UUID]bool)
	queue := []item{{start, 0}}

	for len(queue) > 0 {
		// linear extract-min; scene graphs stay small
		minIdx := 0
		for i := 1; i < len(queue); i++ {
			if queue[i].distance < queue[minIdx].distance {
				minIdx = i
			}
		}
		current := queue[minIdx]
		queue = append(queue[:minIdx], queue[minIdx+1:]...)
		if done[current.id] {
			continue
		}
		done[current.id] = true

		if current.id == end {
			for n := end; n != start; n = parent[n] {
				path = append(path, n)
			}
			path = append(path, start)
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, distances[end], true
		}

		for _, n := range graph.Successors(current.id) {
			d := current.distance + weight(current.id, n)
			if old, seen := distances[n]; !seen || d < old {
				distances[n] = d
				parent[n] = current.id
				queue = append(queue, item{n, d})
			}
		}
	}
	return nil, 0, false
}
