package nodes

import (
	"math"
	"testing"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/refractive"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// wideBeam returns a collimated 1 J bundle of 20 mm radius at 1054 nm.
func wideBeam(t *testing.T) *ray.Bundle {
	t.Helper()
	b, err := ray.CollimatedSource(units.Millimeter(20), 5, units.Joule(1), units.Nanometer(1054)).Bundle()
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}
	return b
}

// TestCylindricLensFocusesInX tests that a cylindric lens brings the beam
// to a line along y
func TestCylindricLensFocusesInX(t *testing.T) {
	glass, err := refractive.NewConst(1.5)
	if err != nil {
		t.Fatalf("NewConst failed: %v", err)
	}
	lens, err := NewCylindricLensWith("cyl", units.Millimeter(500), units.Millimeter(-500), units.Millimeter(10), glass)
	if err != nil {
		t.Fatalf("NewCylindricLensWith failed: %v", err)
	}
	if lens.NodeType() != TypeCylindricLens {
		t.Errorf("Expected node type %q, got %q", TypeCylindricLens, lens.NodeType())
	}

	out, err := lens.AnalyzeRayTrace(optic.LightResult{optic.PortIn: optic.RayData(beam(t))}, optic.DefaultRayTraceConfig(), optic.Forward)
	if err != nil {
		t.Fatalf("AnalyzeRayTrace failed: %v", err)
	}
	b := rayOut(t, out, optic.PortOut)
	if b.Len() != 37 {
		t.Fatalf("Expected 37 rays, got %d", b.Len())
	}

	n, r, d := 1.5, 0.5, 0.01
	f := 1 / ((n - 1) * (2/r - (n-1)*d/(n*r*r)))
	bfl := f * (1 - (n-1)*d/(n*r))
	if err := b.Advance(units.Meter(bfl)); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	var maxX, maxY float64
	for _, r := range b.Rays() {
		if r.Direction.Y != 0 {
			t.Errorf("Expected no deflection along y, got direction %v", r.Direction)
		}
		maxX = max(maxX, math.Abs(r.Position.X))
		maxY = max(maxY, math.Abs(r.Position.Y))
	}
	if maxX > 1e-5 {
		t.Errorf("Expected a line focus, rays spread %v m along x", maxX)
	}
	if math.Abs(maxY-1e-3) > 1e-12 {
		t.Errorf("Expected the beam height along y to stay 1 mm, got %v", maxY)
	}

	if err := lens.Properties().Set(PropFrontCurvature, units.Meter(0)); err == nil {
		t.Error("Expected a zero radius to be rejected")
	}
}

// TestParabolicMirrorFocusesWithoutAberration tests that a paraboloid
// focuses a wide axial beam to a point where a sphere of the same focal
// length does not
func TestParabolicMirrorFocusesWithoutAberration(t *testing.T) {
	pm, err := NewParabolicMirrorWith("oap", units.Millimeter(100), 0.95)
	if err != nil {
		t.Fatalf("NewParabolicMirrorWith failed: %v", err)
	}
	sphere, err := NewThinMirrorWith("sphere", units.Millimeter(200), 0.95)
	if err != nil {
		t.Fatalf("NewThinMirrorWith failed: %v", err)
	}

	spot := func(n optic.Node) float64 {
		t.Helper()
		out, err := n.AnalyzeRayTrace(optic.LightResult{optic.PortIn: optic.RayData(wideBeam(t))}, optic.DefaultRayTraceConfig(), optic.Forward)
		if err != nil {
			t.Fatalf("AnalyzeRayTrace failed: %v", err)
		}
		b := rayOut(t, out, optic.PortOut)
		if got := b.TotalEnergy().Joules(); math.Abs(got-0.95) > 1e-12 {
			t.Errorf("Expected 0.95 J after the mirror, got %v", got)
		}
		if err := b.Advance(units.Millimeter(100)); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		rms, ok := b.RMSRadius()
		if !ok {
			t.Fatal("Expected valid rays at the focus")
		}
		return rms.Meters()
	}

	if rms := spot(pm); rms > 1e-9 {
		t.Errorf("Expected a point focus from the paraboloid, got rms %v m", rms)
	}
	if rms := spot(sphere); rms < 1e-6 {
		t.Errorf("Expected spherical aberration from the sphere, got rms %v m", rms)
	}

	energy, err := pm.AnalyzeEnergy(optic.LightResult{optic.PortIn: optic.EnergyData(hene(t, 1))}, optic.Forward)
	if err != nil {
		t.Fatalf("AnalyzeEnergy failed: %v", err)
	}
	if got := energy.TotalEnergy().Joules(); math.Abs(got-0.95) > 1e-12 {
		t.Errorf("Expected 0.95 J, got %v", got)
	}

	if _, err := NewParabolicMirrorWith("flat", 0, 1); !optic.IsConfiguration(err) {
		t.Errorf("Expected a configuration error for a zero focal length, got %v", err)
	}
}
