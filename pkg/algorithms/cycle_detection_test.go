package algorithms

import (
	"testing"

	"github.com/google/uuid"
)

// TestDetectCycles_NoCycles tests a graph with no cycles (linear path)
func TestDetectCycles_NoCycles(t *testing.T) {
	g, _ := chain(3)
	if cycles := DetectCycles(g); len(cycles) != 0 {
		t.Errorf("Expected no cycles, got %d", len(cycles))
	}
	if HasCycle(g) {
		t.Error("HasCycle reported a cycle in a chain")
	}
	if FindCycle(g) != nil {
		t.Error("FindCycle returned a cycle for a chain")
	}
}

// TestDetectCycles_SimpleCycle tests a simple 2-node cycle
func TestDetectCycles_SimpleCycle(t *testing.T) {
	g, nodes := chain(2)
	g.AddEdge(nodes[1], nodes[0])

	cycles := DetectCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %d", len(cycles))
	}
	if len(cycles[0]) != 2 {
		t.Errorf("Expected cycle length 2, got %d", len(cycles[0]))
	}
}

// TestDetectCycles_SelfLoop tests a self-referencing node
func TestDetectCycles_SelfLoop(t *testing.T) {
	g := NewDigraph()
	a := uuid.New()
	g.AddEdge(a, a)

	cycles := DetectCycles(g)
	if len(cycles) != 1 || len(cycles[0]) != 1 || cycles[0][0] != a {
		t.Errorf("Expected self loop on %s, got %v", a, cycles)
	}
	if !HasCycle(g) {
		t.Error("HasCycle missed a self loop")
	}
}

// TestDetectCycles_Order checks that a cycle follows the edge direction
func TestDetectCycles_Order(t *testing.T) {
	g, nodes := chain(4)
	g.AddEdge(nodes[3], nodes[1])

	c := FindCycle(g)
	want := Cycle{nodes[1], nodes[2], nodes[3]}
	if len(c) != len(want) {
		t.Fatalf("Expected %v, got %v", want, c)
	}
	for i := range want {
		if c[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], c[i])
		}
	}
}

// TestDetectCycles_Disconnected finds cycles in every component
func TestDetectCycles_Disconnected(t *testing.T) {
	g, a := chain(2)
	g.AddEdge(a[1], a[0])
	h, b := chain(3)
	for _, from := range h.Nodes() {
		for _, to := range h.Successors(from) {
			g.AddEdge(from, to)
		}
	}
	g.AddEdge(b[2], b[0])

	if n := len(DetectCycles(g)); n != 2 {
		t.Errorf("Expected 2 cycles, got %d", n)
	}
}
