package hitmap

import (
	"context"
	"math"
	"testing"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
)

// TestCellAreas tests the Voronoi areas of a square grid of points
func TestCellAreas(t *testing.T) {
	var pts []geom.Point2
	for x := -1.0; x <= 1; x++ {
		for y := -1.0; y <= 1; y++ {
			pts = append(pts, geom.Point2{X: x, Y: y})
		}
	}
	// the centre point twice splits its cell
	pts = append(pts, geom.Point2{})

	areas, err := CellAreas(context.Background(), pts, 2)
	if err != nil {
		t.Fatalf("CellAreas failed: %v", err)
	}
	if len(areas) != len(pts) {
		t.Fatalf("Expected %d areas, got %d", len(pts), len(areas))
	}
	if math.Abs(areas[4]-0.5) > 1e-12 || math.Abs(areas[9]-0.5) > 1e-12 {
		t.Errorf("Expected the duplicated centre to get 0.5 each, got %v and %v", areas[4], areas[9])
	}

	// the padded box is the union of all cells
	side := 2 + 2*math.Sqrt(4.0/9)
	var sum float64
	for _, a := range areas {
		sum += a
	}
	if math.Abs(sum-side*side) > 1e-9 {
		t.Errorf("Expected the cells to tile %v m², got %v", side*side, sum)
	}

	if areas, err := CellAreas(context.Background(), nil, 0); err != nil || areas != nil {
		t.Errorf("Expected no areas for no points, got %v %v", areas, err)
	}
}
