package aperture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

func pt(x, y float64) geom.Point2 { return geom.Point2{X: x, Y: y} }

func TestBinaryApertures(t *testing.T) {
	circle, err := NewCircle(units.Meter(1), pt(1, 1))
	require.NoError(t, err)
	rect, err := NewRectangle(units.Meter(2), units.Meter(1), pt(0, 0))
	require.NoError(t, err)
	tri, err := NewPolygon([]geom.Point2{pt(0, 0), pt(2, 0), pt(0, 2)})
	require.NoError(t, err)

	tests := []struct {
		name string
		a    Aperture
		p    geom.Point2
		want float64
	}{
		{"circle center", circle, pt(1, 1), 1},
		{"circle outside", circle, pt(0, 0), 0},
		{"circle edge", circle, pt(2, 1), 1},
		{"rect inside", rect, pt(0.9, 0.4), 1},
		{"rect outside height", rect, pt(0, 0.6), 0},
		{"triangle inside", tri, pt(0.5, 0.5), 1},
		{"triangle outside", tri, pt(1.5, 1.5), 0},
		{"none", None{}, pt(1e6, -1e6), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Apodize(tt.p))
		})
	}
}

func TestObstruction(t *testing.T) {
	c, err := NewCircle(units.Meter(1), pt(1, 1))
	require.NoError(t, err)
	c.Kind = Obstruction
	assert.Equal(t, 0.0, c.Apodize(pt(1, 1)))
	assert.Equal(t, 1.0, c.Apodize(pt(0, 0)))
	assert.True(t, IsBlocked(c, pt(1, 1)))
	assert.True(t, IsBlocked(nil, pt(0, 0)))
}

func TestGaussian(t *testing.T) {
	g, err := NewGaussian(units.Meter(1), units.Meter(2), pt(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.Apodize(pt(0, 0)))
	assert.InDelta(t, math.Exp(-0.5), g.Apodize(pt(1, 0)), 1e-15)
	assert.InDelta(t, math.Exp(-0.5), g.Apodize(pt(0, 2)), 1e-15)

	g.Kind = Obstruction
	assert.InDelta(t, 1-math.Exp(-0.5), g.Apodize(pt(1, 0)), 1e-15)
}

func TestStack(t *testing.T) {
	outer, err := NewCircle(units.Meter(2), pt(0, 0))
	require.NoError(t, err)
	inner, err := NewCircle(units.Meter(0.5), pt(0, 0))
	require.NoError(t, err)
	inner.Kind = Obstruction

	annulus := NewStack(outer, inner)
	assert.Equal(t, 0.0, annulus.Apodize(pt(0, 0)))
	assert.Equal(t, 1.0, annulus.Apodize(pt(1, 0)))
	assert.Equal(t, 0.0, annulus.Apodize(pt(3, 0)))
	assert.Equal(t, 1.0, NewStack().Apodize(pt(5, 5)))
}

func TestConstructorsReject(t *testing.T) {
	_, err := NewCircle(0, pt(0, 0))
	assert.ErrorIs(t, err, ErrInvalidAperture)
	_, err = NewCircle(units.Meter(math.NaN()), pt(0, 0))
	assert.ErrorIs(t, err, ErrInvalidAperture)
	_, err = NewRectangle(units.Meter(1), units.Meter(-1), pt(0, 0))
	assert.ErrorIs(t, err, ErrInvalidAperture)
	_, err = NewRectangle(units.Meter(1), units.Meter(1), pt(math.Inf(1), 0))
	assert.ErrorIs(t, err, ErrInvalidAperture)
	_, err = NewPolygon([]geom.Point2{pt(0, 0), pt(1, 1)})
	assert.ErrorIs(t, err, ErrInvalidAperture)
	_, err = NewGaussian(0, units.Meter(1), pt(0, 0))
	assert.ErrorIs(t, err, ErrInvalidAperture)
}

func TestSpecRoundTrip(t *testing.T) {
	outer, err := NewCircle(units.Millimeter(12.5), pt(0, 0.001))
	require.NoError(t, err)
	rect, err := NewRectangle(units.Millimeter(1), units.Millimeter(30), pt(0, 0))
	require.NoError(t, err)
	rect.Kind = Obstruction
	poly, err := NewPolygon([]geom.Point2{pt(0, 0), pt(0.01, 0), pt(0, 0.01)})
	require.NoError(t, err)
	stack := NewStack(outer, rect, poly)

	data, err := yaml.Marshal(stack.Spec())
	require.NoError(t, err)
	var spec Spec
	require.NoError(t, yaml.Unmarshal(data, &spec))
	back, err := spec.Aperture()
	require.NoError(t, err)
	assert.Equal(t, stack, back)

	_, err = Spec{Type: "star"}.Aperture()
	assert.ErrorIs(t, err, ErrUnknownAperture)
	_, err = Spec{Type: TypeCircle, Kind: "mirror", Radius: 1}.Aperture()
	assert.ErrorIs(t, err, ErrInvalidAperture)
}
