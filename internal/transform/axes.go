package transform

import (
	"fmt"

	"georef/internal/crs"
	"georef/internal/platform/sentinel"
)

// SwapAndScaleAxes returns the affine matrix mapping coordinates expressed
// in the source coordinate system to the target coordinate system. Only
// axis order, axis direction and units are taken in account; this is never
// a datum change. An error carrying sentinel.ErrMalformedCRS is returned
// when the coordinate systems are not mere variants of each other.
func SwapAndScaleAxes(source, target crs.CoordinateSystem) (*Matrix, error) {
	srcDim, tgtDim := source.Dimension(), target.Dimension()
	if srcDim != tgtDim {
		return nil, fmt.Errorf("%w: cannot map %d axes onto %d axes", sentinel.ErrMalformedCRS, srcDim, tgtDim)
	}
	m := NewMatrix(tgtDim+1, srcDim+1)
	m.Set(tgtDim, srcDim, 1)
	used := make([]bool, srcDim)
	for r, tgt := range target.Axes {
		matched := false
		for c, src := range source.Axes {
			if used[c] || !sameDimension(src.Direction, tgt.Direction) {
				continue
			}
			sign := 1.0
			if src.Direction != tgt.Direction {
				sign = -1
			}
			scale := 1.0
			if src.UnitScale != 0 && tgt.UnitScale != 0 {
				scale = src.UnitScale / tgt.UnitScale
			}
			m.Set(r, c, sign*scale)
			used[c] = true
			matched = true
			break
		}
		if !matched {
			return nil, fmt.Errorf("%w: no source axis matches target axis %q", sentinel.ErrMalformedCRS, tgt.Abbrev)
		}
	}
	return m, nil
}

func sameDimension(a, b crs.AxisDirection) bool {
	return a == b || a == b.Opposite()
}
