package units

import (
	"math"
	"testing"
)

func TestLengthConversions(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"mm to m", Millimeter(12.5).Meters(), 0.0125},
		{"µm to mm", Micrometer(500).Millimeters(), 0.5},
		{"nm to µm", Nanometer(1053).Micrometers(), 1.053},
		{"m to nm", Meter(1e-6).Nanometers(), 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-12 {
				t.Errorf("Expected %v, got %v", tt.want, tt.got)
			}
		})
	}
}

// TestEnergyAndFluence tests 10 mJ on 1 mm² as 1 J/cm²
func TestEnergyAndFluence(t *testing.T) {
	e := Millijoule(10)
	a := Millimeter(1).Times(Millimeter(1))

	if math.Abs(a.SquareMeters()-1e-6) > 1e-18 {
		t.Errorf("Expected 1e-6 m², got %v", a.SquareMeters())
	}
	f := e.Per(a)
	if math.Abs(f.JoulesPerSquareMeter()-1e4) > 1e-6 {
		t.Errorf("Expected 1e4 J/m², got %v", f.JoulesPerSquareMeter())
	}
	if math.Abs(f.JoulesPerSquareCentimeter()-1) > 1e-12 {
		t.Errorf("Expected 1 J/cm², got %v", f.JoulesPerSquareCentimeter())
	}
	if got := e.Scale(0.5).Joules(); math.Abs(got-5e-3) > 1e-15 {
		t.Errorf("Expected 5 mJ, got %v", got)
	}
}

func TestAngle(t *testing.T) {
	if got := Degree(90).Radians(); math.Abs(got-math.Pi/2) > 1e-15 {
		t.Errorf("Expected π/2, got %v", got)
	}
	if got := Radian(math.Pi / 4).Degrees(); math.Abs(got-45) > 1e-12 {
		t.Errorf("Expected 45°, got %v", got)
	}
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want bool
	}{
		{"zero", 0, true},
		{"negative", -3.2, true},
		{"nan", math.NaN(), false},
		{"+inf", math.Inf(1), false},
		{"-inf", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFinite(tt.v); got != tt.want {
				t.Errorf("IsFinite(%v) = %v, want %v", tt.v, got, tt.want)
			}
			if got := Length(tt.v).IsFinite(); got != tt.want {
				t.Errorf("Length(%v).IsFinite() = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"millimeter", Millimeter(12.5).String(), "12.5 mm"},
		{"nanometer", Nanometer(633).String(), "633 nm"},
		{"meter", Meter(2).String(), "2 m"},
		{"zero", Length(0).String(), "0 m"},
		{"picojoule", Picojoule(1).String(), "1 pJ"},
		{"joule", Joule(1).String(), "1 J"},
		{"negative", Millimeter(-3).String(), "-3 mm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, tt.got)
			}
		})
	}
}
