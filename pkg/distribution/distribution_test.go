package distribution

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

func TestHexapolarCountProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("1+3n(n+1) points within the radius", prop.ForAll(
		func(rings int, radiusMM float64) bool {
			h, err := NewHexapolar(units.Millimeter(radiusMM), rings)
			if err != nil {
				return false
			}
			pts := h.Points()
			if len(pts) != 1+3*rings*(rings+1) {
				return false
			}
			for _, p := range pts {
				if p.Norm() > units.Millimeter(radiusMM).Meters()*(1+1e-12) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 30),
		gen.Float64Range(0.01, 100),
	))

	properties.TestingRun(t)
}

func TestHexapolarValidation(t *testing.T) {
	_, err := NewHexapolar(units.Millimeter(-1), 3)
	assert.ErrorIs(t, err, ErrInvalidDistribution)
	_, err = NewHexapolar(units.Meter(math.NaN()), 3)
	assert.ErrorIs(t, err, ErrInvalidDistribution)
	_, err = NewHexapolar(0, 3)
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	h, err := NewHexapolar(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []geom.Point2{{}}, h.Points())
}

func TestRectangularCounts(t *testing.T) {
	side := units.Millimeter(10)
	for _, k := range []int{1, 2, 7, 100, 1000} {
		fr, err := NewFibonacciRectangle(side, side, k)
		require.NoError(t, err)
		fe, err := NewFibonacciEllipse(side, side, k)
		require.NoError(t, err)
		so, err := NewSobol(side, side, k)
		require.NoError(t, err)
		ra, err := NewRandom(side, side, k, 42)
		require.NoError(t, err)

		for _, d := range []Position{fr, fe, so, ra} {
			assert.Len(t, d.Points(), k, "%T", d)
		}
	}

	g, err := NewGrid(side, units.Millimeter(4), 3, 5)
	require.NoError(t, err)
	pts := g.Points()
	require.Len(t, pts, 15)
	assert.InDelta(t, -5e-3, pts[0].X, 1e-15)
	assert.InDelta(t, -2e-3, pts[0].Y, 1e-15)
	assert.InDelta(t, 5e-3, pts[14].X, 1e-15)
	assert.InDelta(t, 2e-3, pts[14].Y, 1e-15)

	single, err := NewGrid(side, side, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []geom.Point2{{}}, single.Points())
}

func TestRectangularValidation(t *testing.T) {
	_, err := NewSobol(0, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidDistribution)
	_, err = NewRandom(units.Millimeter(1), units.Millimeter(1), 0, 1)
	assert.ErrorIs(t, err, ErrInvalidDistribution)
	_, err = NewGrid(units.Millimeter(1), units.Millimeter(1), 0, 3)
	assert.ErrorIs(t, err, ErrInvalidDistribution)
	_, err = NewFibonacciEllipse(units.Millimeter(-1), units.Millimeter(1), 3)
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestSobolSequenceStart(t *testing.T) {
	seq := sobolSequence(4)
	assert.Equal(t, [][2]float64{{0.5, 0.5}, {0.75, 0.25}, {0.25, 0.75}, {0.375, 0.375}}, seq)
}

func TestRandomIsSeeded(t *testing.T) {
	a, err := NewRandom(units.Millimeter(2), units.Millimeter(2), 50, 7)
	require.NoError(t, err)
	b, err := NewRandom(units.Millimeter(2), units.Millimeter(2), 50, 7)
	require.NoError(t, err)
	assert.Equal(t, a.Points(), b.Points())
	for _, p := range a.Points() {
		assert.LessOrEqual(t, math.Abs(p.X), 1e-3)
		assert.LessOrEqual(t, math.Abs(p.Y), 1e-3)
	}
}

func sumEnergy(es []units.Energy) float64 {
	var s float64
	for _, e := range es {
		s += e.Joules()
	}
	return s
}

func TestEnergyDistributionsConserveTotal(t *testing.T) {
	properties := gopter.NewProperties(nil)
	hex, err := NewHexapolar(units.Millimeter(5), 6)
	require.NoError(t, err)
	pts := hex.Points()

	properties.Property("uniform and gaussian energies sum to the total", prop.ForAll(
		func(total, sigmaMM, power float64, rect bool) bool {
			u, err := NewUniform(units.Joule(total))
			if err != nil {
				return false
			}
			g, err := NewGaussian2D(Gaussian2D{
				TotalEnergy: units.Joule(total),
				SigmaX:      units.Millimeter(sigmaMM),
				SigmaY:      units.Millimeter(sigmaMM * 2),
				Power:       power,
				Theta:       units.Degree(30),
				Rectangular: rect,
			})
			if err != nil {
				return false
			}
			for _, d := range []Energy{u, g} {
				es, err := d.Apply(pts)
				if err != nil || len(es) != len(pts) {
					return false
				}
				if math.Abs(sumEnergy(es)-total) > 1e-9*total {
					return false
				}
			}
			return true
		},
		gen.Float64Range(1e-6, 1e3),
		gen.Float64Range(0.5, 20),
		gen.Float64Range(0.5, 4),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestGaussian2DProfile(t *testing.T) {
	g, err := NewGaussian2D(Gaussian2D{
		TotalEnergy: units.Joule(1),
		SigmaX:      units.Millimeter(1),
		SigmaY:      units.Millimeter(1),
		Power:       1,
	})
	require.NoError(t, err)
	es, err := g.Apply([]geom.Point2{{}, {X: 1e-3}})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.5), es[1].Joules()/es[0].Joules(), 1e-12)

	_, err = g.Apply(nil)
	assert.ErrorIs(t, err, ErrNoPoints)
	_, err = NewGaussian2D(Gaussian2D{TotalEnergy: units.Joule(1), SigmaX: 0, SigmaY: units.Millimeter(1), Power: 1})
	assert.ErrorIs(t, err, ErrInvalidDistribution)
	_, err = NewUniform(units.Joule(0))
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestSpectralDistributions(t *testing.T) {
	ll, err := NewLaserLines(
		spectrum.Line{Wavelength: units.Nanometer(1053), Energy: units.Joule(3)},
		spectrum.Line{Wavelength: units.Nanometer(527), Energy: units.Joule(1)},
	)
	require.NoError(t, err)
	comps := ll.Components()
	require.Len(t, comps, 2)
	assert.InDelta(t, 0.75, comps[0].Fraction, 1e-15)
	assert.InDelta(t, 0.25, comps[1].Fraction, 1e-15)

	_, err = NewLaserLines()
	assert.ErrorIs(t, err, ErrInvalidDistribution)
	_, err = NewLaserLines(spectrum.Line{Wavelength: units.Nanometer(1053)})
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	g, err := NewGaussian(Gaussian{
		Start:  units.Nanometer(1000),
		End:    units.Nanometer(1100),
		Points: 51,
		Mu:     units.Nanometer(1054),
		FWHM:   units.Nanometer(10),
		Power:  1,
	})
	require.NoError(t, err)
	comps = g.Components()
	var sum float64
	peak := comps[0]
	for _, c := range comps {
		sum += c.Fraction
		if c.Fraction > peak.Fraction {
			peak = c
		}
	}
	assert.InDelta(t, 1, sum, 1e-12)
	assert.InDelta(t, 1054, peak.Wavelength.Nanometers(), 1e-6)

	_, err = NewGaussian(Gaussian{Start: units.Nanometer(1100), End: units.Nanometer(1000), Points: 3, Mu: units.Nanometer(1), FWHM: units.Nanometer(1), Power: 1})
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestSpecsRoundTrip(t *testing.T) {
	hex, err := NewHexapolar(units.Millimeter(3), 4)
	require.NoError(t, err)
	grid, err := NewGrid(units.Millimeter(1), units.Millimeter(2), 3, 4)
	require.NoError(t, err)
	rnd, err := NewRandom(units.Millimeter(1), units.Millimeter(2), 9, 99)
	require.NoError(t, err)
	fe, err := NewFibonacciEllipse(units.Millimeter(1), units.Millimeter(2), 9)
	require.NoError(t, err)

	for _, p := range []Position{hex, grid, rnd, fe} {
		data, err := yaml.Marshal(p.Spec())
		require.NoError(t, err)
		var spec PositionSpec
		require.NoError(t, yaml.Unmarshal(data, &spec))
		back, err := spec.Position()
		require.NoError(t, err)
		assert.Equal(t, p.Points(), back.Points(), "%T", p)
	}

	_, err = PositionSpec{Type: "spiral"}.Position()
	assert.ErrorIs(t, err, ErrUnknownDistribution)
	_, err = PositionSpec{Type: TypeSobol}.Position()
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	e, err := EnergySpec{Type: TypeUniform, Total: units.Millijoule(5)}.Energy()
	require.NoError(t, err)
	assert.Equal(t, units.Millijoule(5), e.Total())
	_, err = EnergySpec{Type: "flat"}.Energy()
	assert.ErrorIs(t, err, ErrUnknownDistribution)

	ll, err := NewSingleLine(units.Nanometer(633))
	require.NoError(t, err)
	s, err := ll.Spec().Spectral()
	require.NoError(t, err)
	assert.Equal(t, ll.Components(), s.Components())
}
