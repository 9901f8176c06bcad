// Package units provides strongly typed physical quantities.
//
// Every quantity is stored in its SI base unit. The types are distinct named
// float64 types, so adding a Length to an Energy is rejected by the compiler.
// Use the constructor helpers (Millimeter, Joule, Degree, ...) to build values
// and the accessor methods to read them back in a given unit.
package units

import (
	"fmt"
	"math"
)

// Length is a distance in metres.
type Length float64

// Energy is an amount of energy in joules.
type Energy float64

// Angle is a plane angle in radians.
type Angle float64

// Area is a surface area in square metres.
type Area float64

// Fluence is an energy density in joules per square metre.
type Fluence float64

// Length constructors
func Meter(v float64) Length      { return Length(v) }
func Millimeter(v float64) Length { return Length(v * 1e-3) }
func Micrometer(v float64) Length { return Length(v * 1e-6) }
func Nanometer(v float64) Length  { return Length(v * 1e-9) }

// Energy constructors
func Joule(v float64) Energy      { return Energy(v) }
func Millijoule(v float64) Energy { return Energy(v * 1e-3) }
func Microjoule(v float64) Energy { return Energy(v * 1e-6) }
func Nanojoule(v float64) Energy  { return Energy(v * 1e-9) }
func Picojoule(v float64) Energy  { return Energy(v * 1e-12) }

// Angle constructors
func Radian(v float64) Angle { return Angle(v) }
func Degree(v float64) Angle { return Angle(v * math.Pi / 180.0) }

// SquareMillimeter returns an area given in mm².
func SquareMillimeter(v float64) Area { return Area(v * 1e-6) }

// JoulePerSquareCentimeter returns a fluence given in J/cm².
func JoulePerSquareCentimeter(v float64) Fluence { return Fluence(v * 1e4) }

func (l Length) Meters() float64      { return float64(l) }
func (l Length) Millimeters() float64 { return float64(l) * 1e3 }
func (l Length) Micrometers() float64 { return float64(l) * 1e6 }
func (l Length) Nanometers() float64  { return float64(l) * 1e9 }

// IsFinite reports whether the length is neither NaN nor infinite.
func (l Length) IsFinite() bool { return IsFinite(float64(l)) }

// Abs returns the absolute value of the length.
func (l Length) Abs() Length { return Length(math.Abs(float64(l))) }

// Times returns the area spanned by two lengths.
func (l Length) Times(o Length) Area { return Area(float64(l) * float64(o)) }

func (l Length) String() string { return formatSI(float64(l), "m") }

func (e Energy) Joules() float64 { return float64(e) }

// IsFinite reports whether the energy is neither NaN nor infinite.
func (e Energy) IsFinite() bool { return IsFinite(float64(e)) }

// Per returns the fluence resulting from spreading the energy over an area.
func (e Energy) Per(a Area) Fluence { return Fluence(float64(e) / float64(a)) }

// Scale multiplies the energy by a dimensionless factor.
func (e Energy) Scale(f float64) Energy { return Energy(float64(e) * f) }

func (e Energy) String() string { return formatSI(float64(e), "J") }

func (a Angle) Radians() float64 { return float64(a) }
func (a Angle) Degrees() float64 { return float64(a) * 180.0 / math.Pi }

// IsFinite reports whether the angle is neither NaN nor infinite.
func (a Angle) IsFinite() bool { return IsFinite(float64(a)) }

func (a Angle) String() string { return fmt.Sprintf("%.4g°", a.Degrees()) }

func (a Area) SquareMeters() float64 { return float64(a) }

// IsFinite reports whether the area is neither NaN nor infinite.
func (a Area) IsFinite() bool { return IsFinite(float64(a)) }

func (a Area) String() string { return fmt.Sprintf("%.4g mm²", float64(a)*1e6) }

func (f Fluence) JoulesPerSquareMeter() float64 { return float64(f) }

// JoulesPerSquareCentimeter returns the fluence in J/cm², the usual unit for
// laser damage thresholds.
func (f Fluence) JoulesPerSquareCentimeter() float64 { return float64(f) * 1e-4 }

// IsFinite reports whether the fluence is neither NaN nor infinite.
func (f Fluence) IsFinite() bool { return IsFinite(float64(f)) }

func (f Fluence) String() string {
	return fmt.Sprintf("%.4g J/cm²", f.JoulesPerSquareCentimeter())
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var siPrefixes = []struct {
	factor float64
	symbol string
}{
	{1e3, "k"},
	{1, ""},
	{1e-3, "m"},
	{1e-6, "µ"},
	{1e-9, "n"},
	{1e-12, "p"},
	{1e-15, "f"},
}

// formatSI picks the prefix that keeps the mantissa in [1, 1000).
func formatSI(v float64, unit string) string {
	if v == 0 || !IsFinite(v) {
		return fmt.Sprintf("%g %s", v, unit)
	}
	abs := math.Abs(v)
	for _, p := range siPrefixes {
		if abs >= p.factor {
			return fmt.Sprintf("%.4g %s%s", v/p.factor, p.symbol, unit)
		}
	}
	last := siPrefixes[len(siPrefixes)-1]
	return fmt.Sprintf("%.4g %s%s", v/last.factor, last.symbol, unit)
}
