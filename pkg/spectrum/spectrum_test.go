package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

func prep(t *testing.T) *Spectrum {
	t.Helper()
	s, err := New(units.Micrometer(1), units.Micrometer(5), units.Micrometer(0.5))
	require.NoError(t, err)
	return s
}

func constant(t *testing.T, v float64) *Spectrum {
	t.Helper()
	pts := make([]Point, 0, 8)
	for i := 0; i < 8; i++ {
		pts = append(pts, Point{Wavelength: units.Micrometer(1 + 0.5*float64(i)), Value: v})
	}
	s, err := FromPoints(pts)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := prep(t)
	assert.Equal(t, 8, s.Len())
	start, end := s.Range()
	assert.InDelta(t, 1e-6, start.Meters(), 1e-15)
	assert.InDelta(t, 4.5e-6, end.Meters(), 1e-15)
	assert.InDelta(t, 0.5, s.AverageResolution().Micrometers(), 1e-12)

	tests := []struct {
		name            string
		start, end, res units.Length
	}{
		{"negative resolution", units.Micrometer(1), units.Micrometer(5), units.Micrometer(-0.5)},
		{"zero resolution", units.Micrometer(1), units.Micrometer(5), 0},
		{"reversed range", units.Micrometer(5), units.Micrometer(1), units.Micrometer(0.5)},
		{"negative start", units.Micrometer(-1), units.Micrometer(5), units.Micrometer(0.5)},
		{"nan end", units.Micrometer(1), units.Length(math.NaN()), units.Micrometer(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.start, tt.end, tt.res)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

func TestAddSinglePeak(t *testing.T) {
	t.Run("on bin", func(t *testing.T) {
		s := prep(t)
		require.NoError(t, s.AddSinglePeak(units.Micrometer(2), units.Joule(1)))
		assert.InDelta(t, 2.0, s.values[2], 1e-12)
		assert.InDelta(t, 1.0, s.TotalEnergy().Joules(), 1e-12)
	})
	t.Run("between bins", func(t *testing.T) {
		s := prep(t)
		require.NoError(t, s.AddSinglePeak(units.Micrometer(2.25), units.Joule(1)))
		assert.InDelta(t, 1.0, s.values[2], 1e-12)
		assert.InDelta(t, 1.0, s.values[3], 1e-12)
		assert.InDelta(t, 1.0, s.TotalEnergy().Joules(), 1e-12)
	})
	t.Run("additive", func(t *testing.T) {
		s := prep(t)
		require.NoError(t, s.AddSinglePeak(units.Micrometer(2), units.Joule(1)))
		require.NoError(t, s.AddSinglePeak(units.Micrometer(2.25), units.Joule(1)))
		assert.InDelta(t, 3.0, s.values[2], 1e-12)
		assert.InDelta(t, 1.0, s.values[3], 1e-12)
	})
	t.Run("lower bound", func(t *testing.T) {
		s := prep(t)
		require.NoError(t, s.AddSinglePeak(units.Micrometer(1), units.Joule(1)))
		assert.InDelta(t, 2.0, s.values[0], 1e-12)
	})
	t.Run("out of range leaves spectrum untouched", func(t *testing.T) {
		s := prep(t)
		err := s.AddSinglePeak(units.Micrometer(7), units.Joule(1))
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.Zero(t, s.TotalEnergy())
	})
	t.Run("negative energy", func(t *testing.T) {
		s := prep(t)
		assert.ErrorIs(t, s.AddSinglePeak(units.Micrometer(2), units.Joule(-1)), ErrNegativeValue)
	})
}

func TestLorentzianPeak(t *testing.T) {
	s, err := NdGlass(units.Joule(1))
	require.NoError(t, err)
	// the tails outside the window carry a little energy away
	assert.InDelta(t, 1.0, s.TotalEnergy().Joules(), 1e-3)
	assert.InDelta(t, 1054, s.CenterWavelength().Nanometers(), 1.0)

	assert.Error(t, prep(t).AddLorentzianPeak(units.Micrometer(-1), units.Micrometer(1), 1))
	assert.Error(t, prep(t).AddLorentzianPeak(units.Micrometer(1), units.Micrometer(-1), 1))
	assert.Error(t, prep(t).AddLorentzianPeak(units.Micrometer(1), units.Micrometer(1), -1))
}

func TestFromLaserLines(t *testing.T) {
	lines := []Line{
		{Wavelength: units.Nanometer(1053), Energy: units.Joule(1)},
		{Wavelength: units.Nanometer(527), Energy: units.Joule(0.5)},
	}
	s, err := FromLaserLines(lines, units.Nanometer(1))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, s.TotalEnergy().Joules(), 1e-9)
	start, _ := s.Range()
	assert.InDelta(t, 527, start.Nanometers(), 1e-6)

	_, err = FromLaserLines(nil, units.Nanometer(1))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = FromLaserLines(lines, 0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestValue(t *testing.T) {
	s := prep(t)
	require.NoError(t, s.AddSinglePeak(units.Micrometer(2), units.Joule(1)))

	v, ok := s.Value(units.Micrometer(2))
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-12)

	v, ok = s.Value(units.Micrometer(2.25))
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-12)

	_, ok = s.Value(units.Micrometer(0.5))
	assert.False(t, ok)
	_, ok = s.Value(units.Micrometer(4.5))
	assert.True(t, ok, "last bin is inclusive")
}

func TestScaleVertical(t *testing.T) {
	s := prep(t)
	require.NoError(t, s.AddSinglePeak(units.Micrometer(2), units.Joule(1)))
	require.NoError(t, s.ScaleVertical(0.5))
	assert.InDelta(t, 0.5, s.TotalEnergy().Joules(), 1e-12)
	assert.ErrorIs(t, s.ScaleVertical(-1), ErrNegativeValue)
}

func TestResample(t *testing.T) {
	t.Run("same grid", func(t *testing.T) {
		src := prep(t)
		require.NoError(t, src.AddSinglePeak(units.Micrometer(2), units.Joule(1)))
		dst := prep(t)
		dst.Resample(src)
		assert.InDeltaSlice(t, src.values[:len(src.values)-1], dst.values[:len(dst.values)-1], 1e-12)
		assert.InDelta(t, src.TotalEnergy().Joules(), dst.TotalEnergy().Joules(), 1e-12)
	})
	t.Run("old data is cleared", func(t *testing.T) {
		dst := prep(t)
		require.NoError(t, dst.AddSinglePeak(units.Micrometer(3), units.Joule(1)))
		src := prep(t)
		require.NoError(t, src.AddSinglePeak(units.Micrometer(2), units.Joule(1)))
		dst.Resample(src)
		assert.Zero(t, dst.values[4])
		assert.InDelta(t, 1.0, dst.TotalEnergy().Joules(), 1e-12)
	})
	t.Run("finer grid keeps energy", func(t *testing.T) {
		src := prep(t)
		require.NoError(t, src.AddSinglePeak(units.Micrometer(2.25), units.Joule(1)))
		dst, err := New(units.Micrometer(1), units.Micrometer(5), units.Micrometer(0.125))
		require.NoError(t, err)
		dst.Resample(src)
		assert.InDelta(t, 1.0, dst.TotalEnergy().Joules(), 1e-9)
	})
}

func TestFilterAndSplit(t *testing.T) {
	s := prep(t)
	require.NoError(t, s.AddSinglePeak(units.Micrometer(2), units.Joule(1)))

	filtered := s.Clone()
	filtered.Filter(constant(t, 0.3))
	assert.InDelta(t, 0.3, filtered.TotalEnergy().Joules(), 1e-12)

	reflected := s.SplitBy(constant(t, 0.3))
	assert.InDelta(t, 0.3, s.TotalEnergy().Joules(), 1e-12)
	assert.InDelta(t, 0.7, reflected.TotalEnergy().Joules(), 1e-12)
	assert.True(t, constant(t, 0.3).IsTransmission())
	assert.False(t, constant(t, 1.3).IsTransmission())
}

func TestAddSub(t *testing.T) {
	a := prep(t)
	require.NoError(t, a.AddSinglePeak(units.Micrometer(2), units.Joule(1)))
	b := prep(t)
	require.NoError(t, b.AddSinglePeak(units.Micrometer(3), units.Joule(2)))

	a.Add(b)
	assert.InDelta(t, 3.0, a.TotalEnergy().Joules(), 1e-12)

	a.Sub(b)
	a.Sub(b)
	assert.InDelta(t, 1.0, a.TotalEnergy().Joules(), 1e-12, "subtraction clamps at zero")
	for _, v := range a.values {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestMerge(t *testing.T) {
	assert.Nil(t, Merge(nil, nil))
	a := prep(t)
	assert.Same(t, a, Merge(a, nil))
	assert.Same(t, a, Merge(nil, a))

	require.NoError(t, a.AddSinglePeak(units.Micrometer(2), units.Joule(1)))
	b, err := New(units.Micrometer(3), units.Micrometer(8), units.Micrometer(0.25))
	require.NoError(t, err)
	require.NoError(t, b.AddSinglePeak(units.Micrometer(6), units.Joule(2)))

	m := Merge(a, b)
	require.NotNil(t, m)
	start, end := m.Range()
	assert.InDelta(t, 1.0, start.Micrometers(), 1e-9)
	assert.Greater(t, end.Micrometers(), 7.0)
	assert.InDelta(t, 0.25, m.AverageResolution().Micrometers(), 1e-3)
	assert.InDelta(t, 3.0, m.TotalEnergy().Joules(), 1e-9)
}

func TestShortLongPass(t *testing.T) {
	sp, err := ShortPass(units.Micrometer(1), units.Micrometer(5), units.Micrometer(0.5), units.Micrometer(3))
	require.NoError(t, err)
	v, _ := sp.Value(units.Micrometer(2))
	assert.Equal(t, 1.0, v)
	v, _ = sp.Value(units.Micrometer(4))
	assert.Equal(t, 0.0, v)

	lp, err := LongPass(units.Micrometer(1), units.Micrometer(5), units.Micrometer(0.5), units.Micrometer(3))
	require.NoError(t, err)
	v, _ = lp.Value(units.Micrometer(4))
	assert.Equal(t, 1.0, v)

	_, err = ShortPass(units.Micrometer(1), units.Micrometer(5), units.Micrometer(0.5), units.Micrometer(9))
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestYAMLRoundTrip(t *testing.T) {
	s, err := HeNe(units.Millijoule(1))
	require.NoError(t, err)

	data, err := yaml.Marshal(s)
	require.NoError(t, err)

	var back Spectrum
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, s.Len(), back.Len())
	assert.InDelta(t, s.TotalEnergy().Joules(), back.TotalEnergy().Joules(), 1e-15)

	bad := []byte("wavelengths_um: [1, 2]\nvalues: [1]\n")
	assert.ErrorIs(t, yaml.Unmarshal(bad, &back), ErrInvalidRange)
}

func TestScalingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("scaling multiplies the total energy", prop.ForAll(
		func(energy, factor float64) bool {
			s, err := New(units.Micrometer(1), units.Micrometer(5), units.Micrometer(0.5))
			if err != nil {
				return false
			}
			if err := s.AddSinglePeak(units.Micrometer(2.3), units.Joule(energy)); err != nil {
				return false
			}
			before := s.TotalEnergy().Joules()
			if err := s.ScaleVertical(factor); err != nil {
				return false
			}
			return math.Abs(s.TotalEnergy().Joules()-before*factor) <= 1e-9*math.Max(1, before*factor)
		},
		gen.Float64Range(0, 1e3),
		gen.Float64Range(0, 10),
	))

	properties.TestingRun(t)
}
