package algorithms

import (
	"slices"
	"testing"

	"github.com/google/uuid"
)

// TestSCC_DAGHasOnlySingletons tests that an acyclic graph has no loops
func TestSCC_DAGHasOnlySingletons(t *testing.T) {
	g, _ := diamond()
	comps := StronglyConnectedComponents(g)
	if len(comps) != 4 {
		t.Fatalf("Expected 4 components, got %d", len(comps))
	}
	for _, c := range comps {
		if len(c) != 1 {
			t.Errorf("Expected a singleton component, got %v", c)
		}
	}
	if loops := Loops(g); len(loops) != 0 {
		t.Errorf("Expected no loops, got %v", loops)
	}
}

func TestSCC_ReverseTopologicalOrder(t *testing.T) {
	g, n := chain(3)
	comps := StronglyConnectedComponents(g)
	want := [][]uuid.UUID{{n[2]}, {n[1]}, {n[0]}}
	if !slices.EqualFunc(comps, want, slices.Equal[[]uuid.UUID]) {
		t.Errorf("Expected %v, got %v", want, comps)
	}
}

// TestSCC_Loop tests a -> b -> c -> b, c -> d
func TestSCC_Loop(t *testing.T) {
	g, n := chain(4)
	g.AddEdge(n[2], n[1])

	loops := Loops(g)
	if len(loops) != 1 {
		t.Fatalf("Expected 1 loop, got %d", len(loops))
	}
	if len(loops[0]) != 2 || !slices.Contains(loops[0], n[1]) || !slices.Contains(loops[0], n[2]) {
		t.Errorf("Expected the loop b, c, got %v", loops[0])
	}
	if got := len(StronglyConnectedComponents(g)); got != 3 {
		t.Errorf("Expected 3 components, got %d", got)
	}
}

func TestSCC_SelfLoop(t *testing.T) {
	g, n := chain(2)
	g.AddEdge(n[1], n[1])
	loops := Loops(g)
	if len(loops) != 1 || !slices.Equal(loops[0], []uuid.UUID{n[1]}) {
		t.Errorf("Expected the self loop on b, got %v", loops)
	}
}

func TestSCC_Empty(t *testing.T) {
	if comps := StronglyConnectedComponents(NewDigraph()); len(comps) != 0 {
		t.Errorf("Expected no components, got %v", comps)
	}
}
