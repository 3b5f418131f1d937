package transform

import (
	"fmt"
	"math"
	"strings"

	"georef/internal/crs"
	"georef/internal/platform/sentinel"
)

// Params holds the parameter values of an operation method, keyed by EPSG
// parameter name. Values are in the units conventional for the method:
// metres for translations, arc-seconds for rotations, parts per million for
// scale differences.
type Params map[string]float64

// Clone returns a copy of the parameter set, preserving nil (a nil set
// means no parameters are recorded at all).
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Axes carries the contextual information a method needs besides its
// parameters: the ellipsoids and dimensions of the CRS on both sides.
type Axes struct {
	SourceEllipsoid *crs.Ellipsoid
	TargetEllipsoid *crs.Ellipsoid
	SourceDim       int
	TargetDim       int
}

// AxesOf extracts the builder context from a CRS pair.
func AxesOf(source, target *crs.CRS) Axes {
	return Axes{
		SourceEllipsoid: source.Datum.Ellipsoid(),
		TargetEllipsoid: target.Datum.Ellipsoid(),
		SourceDim:       source.Dimension(),
		TargetDim:       target.Dimension(),
	}
}

// Builder produces a MathTransform from an operation method name, its
// parameters and the axis context. Failures carry
// sentinel.ErrInvalidParameter.
type Builder func(method string, params Params, axes Axes) (MathTransform, error)

const arcSecToRad = math.Pi / (180 * 3600)

// Build is the default Builder. Method matching is case-insensitive and
// tolerant of the "(geog2D domain)" / "(geog3D domain)" suffixes: the
// actual dimensionality comes from the axis context, which is what lets the
// engine rebuild a 2D-defined operation for 3D CRS with the same
// parameters.
func Build(method string, params Params, axes Axes) (MathTransform, error) {
	name := strings.ToLower(method)
	switch {
	case strings.HasPrefix(name, "geocentric translations"):
		return buildShift(method, params, axes, false)
	case strings.HasPrefix(name, "position vector transformation"):
		return buildShift(method, params, axes, true)
	case strings.HasPrefix(name, "coordinate frame rotation"):
		t, err := buildShift(method, params, axes, true)
		if err != nil {
			return nil, err
		}
		// Coordinate frame rotation uses the opposite rotation sign
		// convention from position vector.
		shift := t.(*datumShift)
		shift.rx, shift.ry, shift.rz = -shift.rx, -shift.ry, -shift.rz
		return shift, nil
	case strings.HasPrefix(name, "longitude rotation"):
		offset, ok := params["Longitude offset"]
		if !ok {
			return nil, fmt.Errorf("%w: longitude rotation without Longitude offset", sentinel.ErrInvalidParameter)
		}
		dim := axes.SourceDim
		if dim == 0 {
			dim = 2
		}
		m := Identity(dim)
		m.Set(0, dim, offset)
		return NewAffine(m), nil
	case strings.HasPrefix(name, "geographic3d to 2d conversion"):
		m := NewMatrix(3, 4)
		m.Set(0, 0, 1)
		m.Set(1, 1, 1)
		m.Set(2, 3, 1)
		return NewAffine(m), nil
	case strings.HasPrefix(name, "affine"):
		return nil, fmt.Errorf("%w: affine method requires an explicit matrix", sentinel.ErrInvalidParameter)
	default:
		return nil, fmt.Errorf("%w: unsupported operation method %q", sentinel.ErrInvalidParameter, method)
	}
}

func buildShift(method string, params Params, axes Axes, rotations bool) (MathTransform, error) {
	if axes.SourceEllipsoid == nil || axes.TargetEllipsoid == nil {
		return nil, fmt.Errorf("%w: datum shift requires ellipsoids on both sides", sentinel.ErrInvalidParameter)
	}
	srcDim, tgtDim := axes.SourceDim, axes.TargetDim
	if srcDim == 0 {
		srcDim = 2
	}
	if tgtDim == 0 {
		tgtDim = 2
	}
	if srcDim < 2 || srcDim > 3 || tgtDim < 2 || tgtDim > 3 {
		return nil, fmt.Errorf("%w: datum shift supports 2 or 3 dimensions, got %d -> %d",
			sentinel.ErrInvalidParameter, srcDim, tgtDim)
	}
	shift := &datumShift{
		method: method,
		source: axes.SourceEllipsoid, target: axes.TargetEllipsoid,
		sourceDim: srcDim, targetDim: tgtDim,
		tx: params["X-axis translation"],
		ty: params["Y-axis translation"],
		tz: params["Z-axis translation"],
	}
	if rotations {
		shift.rx = params["X-axis rotation"] * arcSecToRad
		shift.ry = params["Y-axis rotation"] * arcSecToRad
		shift.rz = params["Z-axis rotation"] * arcSecToRad
		shift.ds = params["Scale difference"] * 1e-6
	}
	return shift, nil
}
