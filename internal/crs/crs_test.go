package crs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func wgs84() *Ellipsoid {
	return &Ellipsoid{Name: "WGS 84", SemiMajor: 6378137, InverseFlattening: 298.257223563}
}

func geographicCRS(name string, dim int) *CRS {
	axes := []Axis{
		{Abbrev: "Lat", Direction: DirectionNorth, UnitScale: 1},
		{Abbrev: "Lon", Direction: DirectionEast, UnitScale: 1},
	}
	kind := KindGeographic2D
	if dim == 3 {
		axes = append(axes, Axis{Abbrev: "h", Direction: DirectionUp, UnitScale: 1})
		kind = KindGeographic3D
	}
	return &CRS{
		Name: name,
		Kind: kind,
		CS:   CoordinateSystem{Axes: axes},
		Datum: DatumOrEnsemble{Datum: &Datum{
			Name: name + " frame", Kind: DatumGeodetic, Ellipsoid: wgs84(),
		}},
	}
}

func TestParseCode(t *testing.T) {
	code, err := ParseCode("epsg:4326")
	require.NoError(t, err)
	require.Equal(t, Code{Authority: "EPSG", Code: "4326"}, code)
	require.Equal(t, "EPSG:4326", code.String())

	for _, bad := range []string{"", "4326", "EPSG:", ":4326"} {
		_, err := ParseCode(bad)
		require.Error(t, err, bad)
	}
}

func TestCRSEquals(t *testing.T) {
	a := geographicCRS("WGS 84", 2)
	b := geographicCRS("WGS 84", 2)
	require.True(t, a.Equals(b, false))
	require.True(t, a.Equals(b, true))
	require.False(t, a.Equals(nil, true))

	t.Run("axis order", func(t *testing.T) {
		swapped := geographicCRS("WGS 84", 2)
		swapped.CS.Axes[0], swapped.CS.Axes[1] = swapped.CS.Axes[1], swapped.CS.Axes[0]
		require.False(t, a.Equals(swapped, false))
		require.True(t, a.Equals(swapped, true))
	})

	t.Run("unit scale", func(t *testing.T) {
		grads := geographicCRS("WGS 84", 2)
		grads.CS.Axes[0].UnitScale = 0.9
		grads.CS.Axes[1].UnitScale = 0.9
		require.False(t, a.Equals(grads, false))
		require.True(t, a.Equals(grads, true))
	})

	t.Run("dimension", func(t *testing.T) {
		require.False(t, a.Equals(geographicCRS("WGS 84", 3), true))
	})

	t.Run("datum", func(t *testing.T) {
		other := geographicCRS("WGS 84", 2)
		other.Datum.Datum.Name = "NAD83"
		require.False(t, a.Equals(other, true))
	})

	t.Run("names ignored", func(t *testing.T) {
		renamed := geographicCRS("WGS 84", 2)
		renamed.Name = "anything"
		renamed.Datum = a.Datum
		require.True(t, a.Equals(renamed, false))
	})
}

func TestCompoundEquals(t *testing.T) {
	vertical := &CRS{
		Name: "EGM96 height",
		Kind: KindVertical,
		CS:   CoordinateSystem{Axes: []Axis{{Abbrev: "H", Direction: DirectionUp, UnitScale: 1}}},
		Datum: DatumOrEnsemble{Datum: &Datum{
			Name: "EGM96 geoid", Kind: DatumVertical,
		}},
	}
	a := &CRS{Name: "compound", Kind: KindCompound, Components: []*CRS{geographicCRS("WGS 84", 2), vertical}}
	b := &CRS{Name: "other", Kind: KindCompound, Components: []*CRS{geographicCRS("WGS 84", 2), vertical}}
	require.True(t, a.Equals(b, false))
	require.Equal(t, 3, a.Dimension())

	short := &CRS{Kind: KindCompound, Components: []*CRS{geographicCRS("WGS 84", 2)}}
	require.False(t, a.Equals(short, true))
}

func TestHorizontal(t *testing.T) {
	three := geographicCRS("WGS 84", 3)
	three.Identifiers = []Code{EPSG("4979")}
	got := three.Horizontal()
	require.NotNil(t, got)
	require.Equal(t, KindGeographic2D, got.Kind)
	require.Equal(t, 2, got.Dimension())
	require.Nil(t, got.Identifiers)
	require.Equal(t, "Lat", got.CS.Axes[0].Abbrev)
	require.Equal(t, "Lon", got.CS.Axes[1].Abbrev)

	require.Nil(t, geographicCRS("WGS 84", 2).Horizontal())

	projected := &CRS{
		Kind: KindProjected,
		Base: geographicCRS("WGS 84", 2),
	}
	require.Nil(t, projected.Horizontal())

	compound := &CRS{Kind: KindCompound, Components: []*CRS{geographicCRS("WGS 84", 2)}}
	require.Nil(t, compound.Horizontal())
}

func TestDatumOrEnsembleEquals(t *testing.T) {
	nad83 := &Datum{Name: "North American Datum 1983", Kind: DatumGeodetic, Ellipsoid: wgs84()}

	t.Run("case insensitive name", func(t *testing.T) {
		other := &Datum{Name: "NORTH AMERICAN DATUM 1983", Kind: DatumGeodetic}
		require.True(t, DatumOrEnsemble{Datum: nad83}.Equals(DatumOrEnsemble{Datum: other}))
	})

	t.Run("identifier fallback", func(t *testing.T) {
		a := &Datum{Name: "NAD83", Kind: DatumGeodetic, Identifiers: []Code{EPSG("6269")}}
		b := &Datum{Name: "North American Datum 1983", Kind: DatumGeodetic, Identifiers: []Code{EPSG("6269")}}
		require.True(t, DatumOrEnsemble{Datum: a}.Equals(DatumOrEnsemble{Datum: b}))
	})

	t.Run("kind mismatch", func(t *testing.T) {
		dynamic := &Datum{Name: "North American Datum 1983", Kind: DatumDynamicGeodetic}
		require.False(t, DatumOrEnsemble{Datum: nad83}.Equals(DatumOrEnsemble{Datum: dynamic}))
	})

	t.Run("ensemble representative", func(t *testing.T) {
		ensemble := &Ensemble{Name: "WGS 84 ensemble", Members: []*Datum{nad83}}
		require.True(t, DatumOrEnsemble{Ensemble: ensemble}.Equals(DatumOrEnsemble{Datum: nad83}))
	})
}

func TestEnsembleReducers(t *testing.T) {
	g1150 := &Datum{Name: "WGS 84 (G1150)", Kind: DatumGeodetic, Ellipsoid: wgs84()}
	g1762 := &Datum{Name: "WGS 84 (G1762)", Kind: DatumGeodetic, Ellipsoid: wgs84()}
	ensemble := &Ensemble{Name: "WGS 84", Members: []*Datum{g1150, g1762}, Accuracy: 2}

	ell := ensemble.Ellipsoid()
	require.NotNil(t, ell)
	require.InDelta(t, 6378137, ell.SemiMajor, 1e-9)
	require.Equal(t, DatumGeodetic, ensemble.Kind())
	require.Same(t, g1150, DatumOrEnsemble{Ensemble: ensemble}.AsDatum())

	t.Run("disagreeing members", func(t *testing.T) {
		clarke := &Datum{Name: "odd", Kind: DatumDynamicGeodetic,
			Ellipsoid: &Ellipsoid{Name: "Clarke 1866", SemiMajor: 6378206.4, InverseFlattening: 294.978698214}}
		mixed := &Ensemble{Name: "mixed", Members: []*Datum{g1150, clarke}}
		require.Nil(t, mixed.Ellipsoid())
		require.Equal(t, DatumUnknown, mixed.Kind())
	})

	t.Run("empty", func(t *testing.T) {
		empty := &Ensemble{Name: "empty"}
		require.Nil(t, empty.Ellipsoid())
		require.Nil(t, DatumOrEnsemble{Ensemble: empty}.AsDatum())
	})
}

func TestEllipsoidSemiMinor(t *testing.T) {
	require.InDelta(t, 6356752.314245, wgs84().SemiMinor(), 1e-6)
	sphere := &Ellipsoid{Name: "sphere", SemiMajor: 6371000}
	require.InDelta(t, 6371000, sphere.SemiMinor(), 1e-9)
}
