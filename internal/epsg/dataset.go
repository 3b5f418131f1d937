package epsg

import (
	"georef/internal/crs"
	"georef/internal/operation"
	"georef/internal/transform"
)

// Well-known extents, from the EPSG usage table.
var (
	worldExtent        = crs.World
	texasExtent        = crs.Extent{West: -106.66, East: -93.5, South: 25.84, North: 36.5}
	conusExtent        = crs.Extent{West: -124.79, East: -66.91, South: 24.41, North: 49.38}
	northAmericaExtent = crs.Extent{West: -172.54, East: -47.74, South: 7.15, North: 83.17}
	europeExtent       = crs.Extent{West: -16.1, East: 40.18, South: 32.88, North: 84.73}
)

func geographic2D() crs.CoordinateSystem {
	return crs.CoordinateSystem{Axes: []crs.Axis{
		{Abbrev: "Lat", Direction: crs.DirectionNorth, UnitScale: 1},
		{Abbrev: "Lon", Direction: crs.DirectionEast, UnitScale: 1},
	}}
}

func geographic3D() crs.CoordinateSystem {
	return crs.CoordinateSystem{Axes: []crs.Axis{
		{Abbrev: "Lat", Direction: crs.DirectionNorth, UnitScale: 1},
		{Abbrev: "Lon", Direction: crs.DirectionEast, UnitScale: 1},
		{Abbrev: "h", Direction: crs.DirectionUp, UnitScale: 1},
	}}
}

func projectedEN() crs.CoordinateSystem {
	return crs.CoordinateSystem{Axes: []crs.Axis{
		{Abbrev: "E", Direction: crs.DirectionEast, UnitScale: 1},
		{Abbrev: "N", Direction: crs.DirectionNorth, UnitScale: 1},
	}}
}

// DefaultDataset returns a Memory seeded with well-known EPSG rows: the
// WGS 84, NAD27, NAD83 and ETRS89 reference systems, their datums and
// ellipsoids, and the published shifts between them. Enough of the real
// registry to run the engine without a database.
func DefaultDataset() *Memory {
	m := NewMemory()

	wgs84Ell := &crs.Ellipsoid{
		Name:              "WGS 84",
		Identifiers:       []crs.Code{crs.EPSG("7030")},
		Aliases:           []string{"WGS84", "World Geodetic System 1984"},
		SemiMajor:         6378137,
		InverseFlattening: 298.257223563,
	}
	grs80 := &crs.Ellipsoid{
		Name:              "GRS 1980",
		Identifiers:       []crs.Code{crs.EPSG("7019")},
		Aliases:           []string{"International 1979"},
		SemiMajor:         6378137,
		InverseFlattening: 298.257222101,
	}
	clarke1866 := &crs.Ellipsoid{
		Name:              "Clarke 1866",
		Identifiers:       []crs.Code{crs.EPSG("7008")},
		SemiMajor:         6378206.4,
		InverseFlattening: 294.978698214,
	}
	m.AddEllipsoid(wgs84Ell)
	m.AddEllipsoid(grs80)
	m.AddEllipsoid(clarke1866)

	wgs84Datum := &crs.Datum{
		Name:        "World Geodetic System 1984",
		Identifiers: []crs.Code{crs.EPSG("6326")},
		Aliases:     []string{"WGS 84", "WGS_1984"},
		Kind:        crs.DatumDynamicGeodetic,
		Ellipsoid:   wgs84Ell,
	}
	nad27 := &crs.Datum{
		Name:        "North American Datum 1927",
		Identifiers: []crs.Code{crs.EPSG("6267")},
		Aliases:     []string{"NAD27"},
		Kind:        crs.DatumGeodetic,
		Ellipsoid:   clarke1866,
	}
	nad83 := &crs.Datum{
		Name:        "North American Datum 1983",
		Identifiers: []crs.Code{crs.EPSG("6269")},
		Aliases:     []string{"NAD83"},
		Kind:        crs.DatumGeodetic,
		Ellipsoid:   grs80,
	}
	etrs89Datum := &crs.Datum{
		Name:        "European Terrestrial Reference System 1989",
		Identifiers: []crs.Code{crs.EPSG("6258")},
		Aliases:     []string{"ETRS89"},
		Kind:        crs.DatumGeodetic,
		Ellipsoid:   grs80,
	}
	m.AddDatum(wgs84Datum)
	m.AddDatum(nad27)
	m.AddDatum(nad83)
	m.AddDatum(etrs89Datum)

	wgs84 := &crs.CRS{
		Name:        "WGS 84",
		Identifiers: []crs.Code{crs.EPSG("4326")},
		Kind:        crs.KindGeographic2D,
		CS:          geographic2D(),
		Datum:       crs.DatumOrEnsemble{Datum: wgs84Datum},
		Domain:      &worldExtent,
	}
	wgs84_3D := &crs.CRS{
		Name:        "WGS 84",
		Identifiers: []crs.Code{crs.EPSG("4979")},
		Kind:        crs.KindGeographic3D,
		CS:          geographic3D(),
		Datum:       crs.DatumOrEnsemble{Datum: wgs84Datum},
		Domain:      &worldExtent,
	}
	nad27CRS := &crs.CRS{
		Name:        "NAD27",
		Identifiers: []crs.Code{crs.EPSG("4267")},
		Aliases:     []string{"North American Datum 1927"},
		Kind:        crs.KindGeographic2D,
		CS:          geographic2D(),
		Datum:       crs.DatumOrEnsemble{Datum: nad27},
		Domain:      &northAmericaExtent,
	}
	nad83CRS := &crs.CRS{
		Name:        "NAD83",
		Identifiers: []crs.Code{crs.EPSG("4269")},
		Aliases:     []string{"North American Datum 1983"},
		Kind:        crs.KindGeographic2D,
		CS:          geographic2D(),
		Datum:       crs.DatumOrEnsemble{Datum: nad83},
		Domain:      &northAmericaExtent,
	}
	etrs89 := &crs.CRS{
		Name:        "ETRS89",
		Identifiers: []crs.Code{crs.EPSG("4258")},
		Kind:        crs.KindGeographic2D,
		CS:          geographic2D(),
		Datum:       crs.DatumOrEnsemble{Datum: etrs89Datum},
		Domain:      &europeExtent,
	}
	utm14N := &crs.CRS{
		Name:        "WGS 84 / UTM zone 14N",
		Identifiers: []crs.Code{crs.EPSG("32614")},
		Kind:        crs.KindProjected,
		CS:          projectedEN(),
		Datum:       crs.DatumOrEnsemble{Datum: wgs84Datum},
		Base:        wgs84,
		Domain:      &crs.Extent{West: -102, East: -96, South: 0, North: 84},
	}
	m.AddCRS(wgs84)
	m.AddCRS(wgs84_3D)
	m.AddCRS(nad27CRS)
	m.AddCRS(nad83CRS)
	m.AddCRS(etrs89)
	m.AddCRS(utm14N)

	geocentricTranslations := operation.Method{
		Name: "Geocentric translations (geog2D domain)",
		Code: crs.EPSG("9603"),
	}

	m.AddOperation(OperationRecord{
		Code:      "1241",
		Name:      "NAD27 to NAD83 (1)",
		Type:      operation.TypeTransformation,
		SourceCRS: "4267",
		TargetCRS: "4269",
		Method:    geocentricTranslations,
		Params: transform.Params{
			"X-axis translation": -8,
			"Y-axis translation": 160,
			"Z-axis translation": 176,
		},
		Accuracy: 5,
		Domain:   &conusExtent,
		Scope:    "Geodesy.",
	})
	m.AddOperation(OperationRecord{
		Code:      "15851",
		Name:      "NAD27 to NAD83 (9)",
		Type:      operation.TypeTransformation,
		SourceCRS: "4267",
		TargetCRS: "4269",
		Method:    geocentricTranslations,
		Params: transform.Params{
			"X-axis translation": -9.6,
			"Y-axis translation": 160.7,
			"Z-axis translation": 176.6,
		},
		Accuracy: 3,
		Domain:   &texasExtent,
		Scope:    "Geodesy.",
	})
	m.AddOperation(OperationRecord{
		Code:      "1242",
		Name:      "NAD27 to NAD83 (2)",
		Type:      operation.TypeTransformation,
		SourceCRS: "4267",
		TargetCRS: "4269",
		Method:    geocentricTranslations,
		Params: transform.Params{
			"X-axis translation": -7,
			"Y-axis translation": 159,
			"Z-axis translation": 175,
		},
		Accuracy:   10,
		Domain:     &conusExtent,
		Scope:      "Geodesy.",
		Deprecated: true,
	})
	m.AddOperation(OperationRecord{
		Code:      "1188",
		Name:      "NAD83 to WGS 84 (1)",
		Type:      operation.TypeTransformation,
		SourceCRS: "4269",
		TargetCRS: "4326",
		Method:    geocentricTranslations,
		Params: transform.Params{
			"X-axis translation": 0,
			"Y-axis translation": 0,
			"Z-axis translation": 0,
		},
		Accuracy: 4,
		Domain:   &northAmericaExtent,
		Scope:    "Geodesy.",
	})
	m.AddOperation(OperationRecord{
		Code:      "1149",
		Name:      "ETRS89 to WGS 84 (1)",
		Type:      operation.TypeTransformation,
		SourceCRS: "4258",
		TargetCRS: "4326",
		Method:    geocentricTranslations,
		Params: transform.Params{
			"X-axis translation": 0,
			"Y-axis translation": 0,
			"Z-axis translation": 0,
		},
		Accuracy: 1,
		Domain:   &europeExtent,
		Scope:    "Approximation at the +/- 1m level.",
	})
	m.AddOperation(OperationRecord{
		Code:      "15537",
		Name:      "WGS 84 (geographic 3D) to WGS 84 (geographic 2D)",
		Type:      operation.TypeConversion,
		SourceCRS: "4979",
		TargetCRS: "4326",
		Method: operation.Method{
			Name: "Geographic3D to 2D conversion",
			Code: crs.EPSG("9659"),
		},
		Params: transform.Params{},
		Domain: &worldExtent,
		Scope:  "Change of coordinate dimension.",
	})

	return m
}
