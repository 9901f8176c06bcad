package algorithms

import (
	"maps"
	"math"
	"slices"
	"testing"

	"github.com/google/uuid"
)

// diamond builds a -> b -> d, a -> c -> d.
func diamond() (*Digraph, []uuid.UUID) {
	g := NewDigraph()
	n := ids(4)
	g.AddEdge(n[0], n[1])
	g.AddEdge(n[0], n[2])
	g.AddEdge(n[1], n[3])
	g.AddEdge(n[2], n[3])
	return g, n
}

func TestShortestPath_SameNode(t *testing.T) {
	g, n := chain(2)
	if path := ShortestPath(g, n[0], n[0]); !slices.Equal(path, []uuid.UUID{n[0]}) {
		t.Errorf("Expected the single node path, got %v", path)
	}
}

// TestShortestPath_Chain tests chains of several lengths
func TestShortestPath_Chain(t *testing.T) {
	for size := 2; size <= 6; size++ {
		g, n := chain(size)
		if path := ShortestPath(g, n[0], n[size-1]); !slices.Equal(path, n) {
			t.Errorf("Expected the whole chain of %d, got %v", size, path)
		}
	}
}

// TestShortestPath_Unreachable tests that edges are directed
func TestShortestPath_Unreachable(t *testing.T) {
	g, n := chain(3)
	if path := ShortestPath(g, n[2], n[0]); path != nil {
		t.Errorf("Expected no path against the edges, got %v", path)
	}

	other := uuid.New()
	g.AddNode(other)
	if path := ShortestPath(g, n[0], other); path != nil {
		t.Errorf("Expected no path to an isolated node, got %v", path)
	}
}

func TestShortestPath_PrefersFewerEdges(t *testing.T) {
	g, n := chain(5)
	g.AddEdge(n[0], n[3])
	want := []uuid.UUID{n[0], n[3], n[4]}
	if path := ShortestPath(g, n[0], n[4]); !slices.Equal(path, want) {
		t.Errorf("Expected %v, got %v", want, path)
	}
}

func TestHopDistances(t *testing.T) {
	g, n := diamond()
	want := map[uuid.UUID]int{n[0]: 0, n[1]: 1, n[2]: 1, n[3]: 2}
	if d := HopDistances(g, n[0]); !maps.Equal(d, want) {
		t.Errorf("Expected %v, got %v", want, d)
	}

	want = map[uuid.UUID]int{n[3]: 0}
	if d := HopDistances(g, n[3]); !maps.Equal(d, want) {
		t.Errorf("Expected %v from the sink, got %v", want, d)
	}
}

// TestWeightedShortestPath tests that the lighter branch wins over the
// first one found
func TestWeightedShortestPath(t *testing.T) {
	g, n := diamond()
	weights := map[[2]uuid.UUID]float64{
		{n[0], n[1]}: 0.1,
		{n[1], n[3]}: 0.5,
		{n[0], n[2]}: 0.2,
		{n[2], n[3]}: 0.1,
	}
	weight := func(from, to uuid.UUID) float64 { return weights[[2]uuid.UUID{from, to}] }

	path, total, ok := WeightedShortestPath(g, weight, n[0], n[3])
	if !ok {
		t.Fatal("Expected a path")
	}
	if want := []uuid.UUID{n[0], n[2], n[3]}; !slices.Equal(path, want) {
		t.Errorf("Expected %v, got %v", want, path)
	}
	if math.Abs(total-0.3) > 1e-12 {
		t.Errorf("Expected total 0.3, got %v", total)
	}

	if _, _, ok := WeightedShortestPath(g, weight, n[3], n[0]); ok {
		t.Error("Expected no path from the sink")
	}

	path, total, ok = WeightedShortestPath(g, weight, n[1], n[1])
	if !ok || !slices.Equal(path, []uuid.UUID{n[1]}) || total != 0 {
		t.Errorf("Expected the zero length path to itself, got %v %v %v", path, total, ok)
	}
}
