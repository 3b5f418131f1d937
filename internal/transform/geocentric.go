package transform

import (
	"fmt"
	"math"
	"strings"

	"georef/internal/crs"
)

// datumShift is a seven-parameter Helmert transformation between two
// geographic CRS, computed through geocentric (earth-centred cartesian)
// coordinates. With zero rotations and scale it degrades to the
// three-parameter geocentric translation. Coordinates are
// (longitude, latitude[, height]) in degrees and metres; axis order and
// unit corrections are applied outside, by the completion step.
type datumShift struct {
	method         string
	source, target *crs.Ellipsoid
	sourceDim      int
	targetDim      int
	// translations in metres
	tx, ty, tz float64
	// rotations in radians, scale as a dimensionless factor
	rx, ry, rz float64
	ds         float64
}

func (d *datumShift) SourceDim() int { return d.sourceDim }
func (d *datumShift) TargetDim() int { return d.targetDim }

func (d *datumShift) Transform(coord []float64) ([]float64, error) {
	if len(coord) != d.sourceDim {
		return nil, fmt.Errorf("expected %d coordinates, got %d", d.sourceDim, len(coord))
	}
	lon := coord[0] * math.Pi / 180
	lat := coord[1] * math.Pi / 180
	h := 0.0
	if d.sourceDim == 3 {
		h = coord[2]
	}
	x, y, z := geodeticToCentric(d.source, lon, lat, h)
	s := 1 + d.ds
	x2 := s*(x-d.rz*y+d.ry*z) + d.tx
	y2 := s*(d.rz*x+y-d.rx*z) + d.ty
	z2 := s*(-d.ry*x+d.rx*y+z) + d.tz
	lon2, lat2, h2 := centricToGeodetic(d.target, x2, y2, z2)
	out := []float64{lon2 * 180 / math.Pi, lat2 * 180 / math.Pi}
	if d.targetDim == 3 {
		out = append(out, h2)
	}
	return out, nil
}

func (d *datumShift) Inverse() (MathTransform, error) {
	inv := &datumShift{
		method: d.method,
		source: d.target, target: d.source,
		sourceDim: d.targetDim, targetDim: d.sourceDim,
		tx: -d.tx, ty: -d.ty, tz: -d.tz,
		rx: -d.rx, ry: -d.ry, rz: -d.rz,
		ds: -d.ds,
	}
	return inv, nil
}

// Parameters reports the operation method and parameter values this
// transform would be rebuilt from. An inverted shift reports the negated
// parameters under the same method, which is what allows rebuilding it
// for a different dimensionality.
func (d *datumShift) Parameters() (string, Params) {
	p := Params{
		"X-axis translation": d.tx,
		"Y-axis translation": d.ty,
		"Z-axis translation": d.tz,
	}
	rx, ry, rz := d.rx, d.ry, d.rz
	if strings.HasPrefix(strings.ToLower(d.method), "coordinate frame rotation") {
		rx, ry, rz = -rx, -ry, -rz
	}
	if rx != 0 || ry != 0 || rz != 0 || d.ds != 0 {
		p["X-axis rotation"] = rx / arcSecToRad
		p["Y-axis rotation"] = ry / arcSecToRad
		p["Z-axis rotation"] = rz / arcSecToRad
		p["Scale difference"] = d.ds * 1e6
	}
	return d.method, p
}

// geodeticToCentric converts geodetic coordinates (radians, metres) to
// geocentric cartesian coordinates on the given ellipsoid.
func geodeticToCentric(ell *crs.Ellipsoid, lon, lat, h float64) (x, y, z float64) {
	a := ell.SemiMajor
	e2 := eccentricitySquared(ell)
	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	nu := a / math.Sqrt(1-e2*sinLat*sinLat)
	x = (nu + h) * cosLat * math.Cos(lon)
	y = (nu + h) * cosLat * math.Sin(lon)
	z = (nu*(1-e2) + h) * sinLat
	return x, y, z
}

// centricToGeodetic converts geocentric cartesian coordinates back to
// geodetic, iterating on the latitude until convergence.
func centricToGeodetic(ell *crs.Ellipsoid, x, y, z float64) (lon, lat, h float64) {
	a := ell.SemiMajor
	e2 := eccentricitySquared(ell)
	lon = math.Atan2(y, x)
	p := math.Hypot(x, y)
	lat = math.Atan2(z, p*(1-e2))
	for i := 0; i < 10; i++ {
		sinLat := math.Sin(lat)
		nu := a / math.Sqrt(1-e2*sinLat*sinLat)
		next := math.Atan2(z+e2*nu*sinLat, p)
		if math.Abs(next-lat) < 1e-14 {
			lat = next
			break
		}
		lat = next
	}
	sinLat := math.Sin(lat)
	nu := a / math.Sqrt(1-e2*sinLat*sinLat)
	if math.Abs(math.Cos(lat)) > 1e-9 {
		h = p/math.Cos(lat) - nu
	} else {
		h = math.Abs(z) - nu*(1-e2)
	}
	return lon, lat, h
}

func eccentricitySquared(ell *crs.Ellipsoid) float64 {
	if ell == nil || ell.InverseFlattening == 0 {
		return 0
	}
	f := 1 / ell.InverseFlattening
	return f * (2 - f)
}
