package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"georef/internal/crs"
	"georef/internal/platform/sentinel"
)

func latLonDegrees() crs.CoordinateSystem {
	return crs.CoordinateSystem{Axes: []crs.Axis{
		{Abbrev: "Lat", Direction: crs.DirectionNorth, UnitScale: 1},
		{Abbrev: "Lon", Direction: crs.DirectionEast, UnitScale: 1},
	}}
}

func TestSwapAndScaleAxes(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		m, err := SwapAndScaleAxes(latLonDegrees(), latLonDegrees())
		require.NoError(t, err)
		require.True(t, m.IsIdentity())
	})

	t.Run("swap", func(t *testing.T) {
		lonLat := crs.CoordinateSystem{Axes: []crs.Axis{
			{Abbrev: "Lon", Direction: crs.DirectionEast, UnitScale: 1},
			{Abbrev: "Lat", Direction: crs.DirectionNorth, UnitScale: 1},
		}}
		m, err := SwapAndScaleAxes(lonLat, latLonDegrees())
		require.NoError(t, err)
		out, err := NewAffine(m).Transform([]float64{12.0, 45.0})
		require.NoError(t, err)
		require.Equal(t, []float64{45.0, 12.0}, out)
	})

	t.Run("direction flip", func(t *testing.T) {
		south := crs.CoordinateSystem{Axes: []crs.Axis{
			{Abbrev: "Lat", Direction: crs.DirectionSouth, UnitScale: 1},
			{Abbrev: "Lon", Direction: crs.DirectionEast, UnitScale: 1},
		}}
		m, err := SwapAndScaleAxes(south, latLonDegrees())
		require.NoError(t, err)
		out, err := NewAffine(m).Transform([]float64{-45.0, 12.0})
		require.NoError(t, err)
		require.InDelta(t, 45.0, out[0], 1e-12)
	})

	t.Run("unit conversion", func(t *testing.T) {
		grads := crs.CoordinateSystem{Axes: []crs.Axis{
			{Abbrev: "Lat", Direction: crs.DirectionNorth, UnitScale: 0.9},
			{Abbrev: "Lon", Direction: crs.DirectionEast, UnitScale: 0.9},
		}}
		m, err := SwapAndScaleAxes(grads, latLonDegrees())
		require.NoError(t, err)
		out, err := NewAffine(m).Transform([]float64{100.0, 50.0})
		require.NoError(t, err)
		require.InDelta(t, 90.0, out[0], 1e-12)
		require.InDelta(t, 45.0, out[1], 1e-12)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		three := crs.CoordinateSystem{Axes: []crs.Axis{
			{Direction: crs.DirectionNorth, UnitScale: 1},
			{Direction: crs.DirectionEast, UnitScale: 1},
			{Direction: crs.DirectionUp, UnitScale: 1},
		}}
		_, err := SwapAndScaleAxes(three, latLonDegrees())
		require.ErrorIs(t, err, sentinel.ErrMalformedCRS)
	})

	t.Run("incompatible axes", func(t *testing.T) {
		vertical := crs.CoordinateSystem{Axes: []crs.Axis{
			{Abbrev: "H", Direction: crs.DirectionUp, UnitScale: 1},
			{Abbrev: "t", Direction: crs.DirectionFuture, UnitScale: 1},
		}}
		_, err := SwapAndScaleAxes(vertical, latLonDegrees())
		require.ErrorIs(t, err, sentinel.ErrMalformedCRS)
	})
}

func TestAffineInverse(t *testing.T) {
	m := Identity(2)
	m.Set(0, 0, 2)
	m.Set(0, 2, 1)
	a := NewAffine(m)

	inv, err := a.Inverse()
	require.NoError(t, err)
	out, err := inv.Transform([]float64{7.0, 3.0}) // 2x+1=7 -> x=3
	require.NoError(t, err)
	require.InDelta(t, 3.0, out[0], 1e-12)
	require.InDelta(t, 3.0, out[1], 1e-12)
}

func TestConcatenate(t *testing.T) {
	shift := Identity(2)
	shift.Set(0, 2, 3)
	scale := Identity(2)
	scale.Set(0, 0, 2)

	t.Run("merges adjacent affines", func(t *testing.T) {
		got, err := Concatenate(NewAffine(shift), NewAffine(scale))
		require.NoError(t, err)
		_, ok := got.(*Affine)
		require.True(t, ok)
		out, err := got.Transform([]float64{1.0, 5.0})
		require.NoError(t, err)
		require.InDelta(t, 8.0, out[0], 1e-12) // (1+3)*2
	})

	t.Run("drops identities and nils", func(t *testing.T) {
		got, err := Concatenate(nil, NewIdentityTransform(2), NewAffine(shift), nil)
		require.NoError(t, err)
		out, err := got.Transform([]float64{1.0, 1.0})
		require.NoError(t, err)
		require.InDelta(t, 4.0, out[0], 1e-12)
	})

	t.Run("cancelling steps become identity", func(t *testing.T) {
		inv, err := NewAffine(shift).Inverse()
		require.NoError(t, err)
		got, err := Concatenate(NewAffine(shift), inv)
		require.NoError(t, err)
		require.True(t, IsIdentity(got))
	})

	t.Run("dimension continuity", func(t *testing.T) {
		drop := NewMatrix(3, 4)
		drop.Set(0, 0, 1)
		drop.Set(1, 1, 1)
		drop.Set(2, 3, 1)
		_, err := Concatenate(NewAffine(drop), NewAffine(drop))
		require.Error(t, err)
	})
}
