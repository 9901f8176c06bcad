package algorithms

import "github.com/google/uuid"

type tarjanState struct {
	index   int
	lowlink int
	onStack bool
}

// StronglyConnectedComponents returns the strongly connected components in
// the reverse topological order Tarjan's algorithm emits them. Members of
// a component are listed in stack pop order.
func StronglyConnectedComponents(graph Graph) [][]uuid.UUID {
	state := make(map[uuid.UUID]*tarjanState)
	var stack []uuid.UUID
	var components [][]uuid.UUID
	index := 0

	var strongconnect func(u uuid.UUID)
	strongconnect = func(u uuid.UUID) {
		state[u] = &tarjanState{index: index, lowlink: index, onStack: true}
		index++
		stack = append(stack, u)

		for _, v := range graph.Successors(u) {
			if _, seen := state[v]; !seen {
				strongconnect(v)
				state[u].lowlink = min(state[u].lowlink, state[v].lowlink)
			} else if state[v].onStack {
				state[u].lowlink = min(state[u].lowlink, state[v].index)
			}
		}

		if state[u].lowlink != state[u].index {
			return
		}
		var members []uuid.UUID
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			state[w].onStack = false
			members = append(members, w)
			if w == u {
				break
			}
		}
		components = append(components, members)
	}

	for _, id := range graph.Nodes() {
		if _, seen := state[id]; !seen {
			strongconnect(id)
		}
	}
	return components
}

// Loops returns the components that contain a cycle: those with more than
// one node, plus single nodes with a self edge.
func Loops(graph Graph) [][]uuid.UUID {
	var out [][]uuid.UUID
	for _, c := range StronglyConnectedComponents(graph) {
		if len(c) > 1 || selfLoop(graph, c[0]) {
			out = append(out, c)
		}
	}
	return out
}

func selfLoop(graph Graph, id uuid.UUID) bool {
	for _, n := range graph.Successors(id) {
		if n == id {
			return true
		}
	}
	return false
}
