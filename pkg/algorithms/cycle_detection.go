package algorithms

import "github.com/google/uuid"

// Cycle represents a detected cycle as a sequence of node IDs
type Cycle []uuid.UUID

const (
	white = iota // unvisited
	gray         // in the recursion stack
	black        // all descendants explored
)

// DetectCycles finds the cycles closed by back edges during a depth-first
// search with three-color marking. Every cyclic graph yields at least one
// cycle; the result is not the set of all elementary cycles.
func DetectCycles(graph Graph) []Cycle {
	color := make(map[uuid.UUID]int)
	parent := make(map[uuid.UUID]uuid.UUID)
	var cycles []Cycle

	// DFS from each unvisited node to cover disconnected components
	for _, nodeID := range graph.Nodes() {
		if color[nodeID] == white {
			dfsDetectCycle(graph, nodeID, color, parent, &cycles)
		}
	}
	return cycles
}

func dfsDetectCycle(graph Graph, nodeID uuid.UUID, color map[uuid.UUID]int, parent map[uuid.UUID]uuid.UUID, cycles *[]Cycle) {
	color[nodeID] = gray

	for _, next := range graph.Successors(nodeID) {
		if next == nodeID {
			*cycles = append(*cycles, Cycle{nodeID})
			continue
		}
		switch color[next] {
		case white:
			parent[next] = nodeID
			dfsDetectCycle(graph, next, color, parent, cycles)
		case gray:
			// back edge
			*cycles = append(*cycles, extractCycle(next, nodeID, parent))
		}
	}

	color[nodeID] = black
}

// extractCycle reconstructs the cycle closed by the back edge end -> start
// from parent pointers. The result starts at start and follows the edges.
func extractCycle(start, end uuid.UUID, parent map[uuid.UUID]uuid.UUID) Cycle {
	var rev Cycle
	current := end
	for current != start {
		rev = append(rev, current)
		p, ok := parent[current]
		if !ok {
			break
		}
		current = p
	}
	cycle := Cycle{start}
	for i := len(rev) - 1; i >= 0; i-- {
		cycle = append(cycle, rev[i])
	}
	return cycle
}

// FindCycle returns the first cycle found, or nil for an acyclic graph.
func FindCycle(graph Graph) Cycle {
	cycles := DetectCycles(graph)
	if len(cycles) == 0 {
		return nil
	}
	return cycles[0]
}

// HasCycle checks if the graph contains any cycle, stopping at the first one.
func HasCycle(graph Graph) bool {
	color := make(map[uuid.UUID]int)
	for _, nodeID := range graph.Nodes() {
		if color[nodeID] == white && hasCycleDFS(graph, nodeID, color) {
			return true
		}
	}
	return false
}

func hasCycleDFS(graph Graph, nodeID uuid.UUID, color map[uuid.UUID]int) bool {
	color[nodeID] = gray
	for _, next := range graph.Successors(nodeID) {
		switch color[next] {
		case gray:
			return true
		case white:
			if hasCycleDFS(graph, next, color) {
				return true
			}
		}
	}
	color[nodeID] = black
	return false
}
