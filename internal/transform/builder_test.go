package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"georef/internal/crs"
	"georef/internal/platform/sentinel"
)

var (
	clarke1866 = &crs.Ellipsoid{Name: "Clarke 1866", SemiMajor: 6378206.4, InverseFlattening: 294.978698214}
	grs1980    = &crs.Ellipsoid{Name: "GRS 1980", SemiMajor: 6378137, InverseFlattening: 298.257222101}
)

func shiftAxes(srcDim, tgtDim int) Axes {
	return Axes{
		SourceEllipsoid: clarke1866,
		TargetEllipsoid: grs1980,
		SourceDim:       srcDim,
		TargetDim:       tgtDim,
	}
}

func TestBuildGeocentricTranslations(t *testing.T) {
	params := Params{
		"X-axis translation": -8,
		"Y-axis translation": 160,
		"Z-axis translation": 176,
	}
	tr, err := Build("Geocentric translations (geog2D domain)", params, shiftAxes(2, 2))
	require.NoError(t, err)
	require.Equal(t, 2, tr.SourceDim())
	require.Equal(t, 2, tr.TargetDim())

	// NAD27 to NAD83 over Texas: the shift moves the point by a few
	// arc-seconds, well under a tenth of a degree.
	out, err := tr.Transform([]float64{-100.0, 31.0})
	require.NoError(t, err)
	require.InDelta(t, -100.0, out[0], 0.1)
	require.InDelta(t, 31.0, out[1], 0.1)
	require.NotEqual(t, -100.0, out[0])

	t.Run("round trip", func(t *testing.T) {
		inv, err := tr.Inverse()
		require.NoError(t, err)
		back, err := inv.Transform(out)
		require.NoError(t, err)
		require.InDelta(t, -100.0, back[0], 1e-9)
		require.InDelta(t, 31.0, back[1], 1e-9)
	})

	t.Run("3D variant from the same parameters", func(t *testing.T) {
		tr3, err := Build("Geocentric translations (geog3D domain)", params, shiftAxes(3, 2))
		require.NoError(t, err)
		require.Equal(t, 3, tr3.SourceDim())
		out3, err := tr3.Transform([]float64{-100.0, 31.0, 200.0})
		require.NoError(t, err)
		require.InDelta(t, out[0], out3[0], 1e-4)
		require.InDelta(t, out[1], out3[1], 1e-4)
	})
}

func TestBuildRotationConventions(t *testing.T) {
	params := Params{
		"X-axis translation": 10,
		"Y-axis translation": -20,
		"Z-axis translation": 30,
		"X-axis rotation":    0.5,
		"Y-axis rotation":    -0.3,
		"Z-axis rotation":    0.2,
		"Scale difference":   2.5,
	}
	coord := []float64{7.0, 51.0}

	pv, err := Build("Position Vector transformation (geog2D domain)", params, shiftAxes(2, 2))
	require.NoError(t, err)
	cf, err := Build("Coordinate Frame rotation (geog2D domain)", params, shiftAxes(2, 2))
	require.NoError(t, err)

	pvOut, err := pv.Transform(coord)
	require.NoError(t, err)
	cfOut, err := cf.Transform(coord)
	require.NoError(t, err)
	// Opposite rotation sign conventions give different results for the
	// same parameter values.
	require.NotEqual(t, pvOut, cfOut)

	negated := Params{
		"X-axis translation": 10,
		"Y-axis translation": -20,
		"Z-axis translation": 30,
		"X-axis rotation":    -0.5,
		"Y-axis rotation":    0.3,
		"Z-axis rotation":    -0.2,
		"Scale difference":   2.5,
	}
	cfNeg, err := Build("Coordinate Frame rotation (geog2D domain)", negated, shiftAxes(2, 2))
	require.NoError(t, err)
	cfNegOut, err := cfNeg.Transform(coord)
	require.NoError(t, err)
	require.InDelta(t, pvOut[0], cfNegOut[0], 1e-12)
	require.InDelta(t, pvOut[1], cfNegOut[1], 1e-12)
}

func TestBuildLongitudeRotation(t *testing.T) {
	tr, err := Build("Longitude rotation", Params{"Longitude offset": 2.5969213}, Axes{SourceDim: 2, TargetDim: 2})
	require.NoError(t, err)
	out, err := tr.Transform([]float64{0.0, 48.8})
	require.NoError(t, err)
	require.InDelta(t, 2.5969213, out[0], 1e-12)
	require.InDelta(t, 48.8, out[1], 1e-12)

	_, err = Build("Longitude rotation", Params{}, Axes{})
	require.ErrorIs(t, err, sentinel.ErrInvalidParameter)
}

func TestBuildGeographic3DTo2D(t *testing.T) {
	tr, err := Build("Geographic3D to 2D conversion", nil, Axes{})
	require.NoError(t, err)
	out, err := tr.Transform([]float64{12.0, 42.0, 500.0})
	require.NoError(t, err)
	require.Equal(t, []float64{12.0, 42.0}, out)
}

func TestBuildRejections(t *testing.T) {
	_, err := Build("Molodensky-Badekas (geog2D domain)", Params{}, shiftAxes(2, 2))
	require.ErrorIs(t, err, sentinel.ErrInvalidParameter)

	_, err = Build("Geocentric translations (geog2D domain)", Params{}, Axes{SourceDim: 2, TargetDim: 2})
	require.ErrorIs(t, err, sentinel.ErrInvalidParameter) // missing ellipsoids

	_, err = Build("Geocentric translations (geog2D domain)", Params{}, shiftAxes(4, 2))
	require.ErrorIs(t, err, sentinel.ErrInvalidParameter)
}

func TestShiftParameters(t *testing.T) {
	params := Params{
		"X-axis translation": -8,
		"Y-axis translation": 160,
		"Z-axis translation": 176,
	}
	tr, err := Build("Geocentric translations (geog2D domain)", params, shiftAxes(2, 2))
	require.NoError(t, err)

	method, got := ParametersOf(tr)
	require.Equal(t, "Geocentric translations (geog2D domain)", method)
	require.InDelta(t, -8, got["X-axis translation"], 1e-12)
	require.InDelta(t, 160, got["Y-axis translation"], 1e-12)
	require.InDelta(t, 176, got["Z-axis translation"], 1e-12)
	require.NotContains(t, got, "X-axis rotation")

	t.Run("inverse reports negated parameters", func(t *testing.T) {
		inv, err := tr.Inverse()
		require.NoError(t, err)
		method, got := ParametersOf(inv)
		require.Equal(t, "Geocentric translations (geog2D domain)", method)
		require.InDelta(t, 8, got["X-axis translation"], 1e-12)
		require.InDelta(t, -160, got["Y-axis translation"], 1e-12)
		require.InDelta(t, -176, got["Z-axis translation"], 1e-12)
	})

	t.Run("frame rotation preserves its convention", func(t *testing.T) {
		full := Params{
			"X-axis translation": 1, "Y-axis translation": 2, "Z-axis translation": 3,
			"X-axis rotation": 0.1, "Y-axis rotation": 0.2, "Z-axis rotation": 0.3,
			"Scale difference": 1.5,
		}
		cf, err := Build("Coordinate Frame rotation (geog2D domain)", full, shiftAxes(2, 2))
		require.NoError(t, err)
		method, got := ParametersOf(cf)
		require.Equal(t, "Coordinate Frame rotation (geog2D domain)", method)
		for name, want := range full {
			require.InDelta(t, want, got[name], 1e-9, name)
		}
	})

	t.Run("affine transforms are not parameterized", func(t *testing.T) {
		method, got := ParametersOf(NewIdentityTransform(2))
		require.Empty(t, method)
		require.Nil(t, got)
	})
}

func TestParamsClone(t *testing.T) {
	require.Nil(t, Params(nil).Clone())

	p := Params{"X-axis translation": 1}
	clone := p.Clone()
	clone["X-axis translation"] = 2
	require.InDelta(t, 1, p["X-axis translation"], 1e-12)
}
