// Package crs models coordinate reference systems, datums and related
// geodetic objects following the ISO 19111 conceptual model. The deep
// interface hierarchies of that model are collapsed into closed tagged
// variants: a CRS carries a Kind and only the payload fields relevant to
// that kind.
package crs

import (
	"fmt"
	"strings"
)

// Code identifies a registered geodetic object as an (authority, code) pair,
// for example {"EPSG", "4326"}. Codes are immutable and used as cache and
// lookup keys throughout the resolution engine.
type Code struct {
	Authority string
	Code      string
}

// EPSG builds a code in the EPSG namespace.
func EPSG(code string) Code {
	return Code{Authority: "EPSG", Code: code}
}

func (c Code) String() string {
	return c.Authority + ":" + c.Code
}

// IsZero reports whether the code is unset.
func (c Code) IsZero() bool {
	return c.Authority == "" && c.Code == ""
}

// ParseCode parses an "AUTHORITY:code" string.
func ParseCode(s string) (Code, error) {
	authority, code, ok := strings.Cut(s, ":")
	if !ok || authority == "" || code == "" {
		return Code{}, fmt.Errorf("malformed authority code %q", s)
	}
	return Code{Authority: strings.ToUpper(authority), Code: code}, nil
}

// Kind tags the variant of a CRS.
type Kind int

const (
	KindUnknown Kind = iota
	KindGeographic2D
	KindGeographic3D
	KindGeocentric
	KindProjected
	KindVertical
	KindTemporal
	KindEngineering
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindGeographic2D:
		return "geographic 2D"
	case KindGeographic3D:
		return "geographic 3D"
	case KindGeocentric:
		return "geocentric"
	case KindProjected:
		return "projected"
	case KindVertical:
		return "vertical"
	case KindTemporal:
		return "temporal"
	case KindEngineering:
		return "engineering"
	case KindCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// IsGeographic reports whether the kind is a geographic (ellipsoidal) variant.
func (k Kind) IsGeographic() bool {
	return k == KindGeographic2D || k == KindGeographic3D
}

// IsSingle reports whether the kind denotes a single CRS (one datum, one
// coordinate system) as opposed to a compound.
func (k Kind) IsSingle() bool {
	return k != KindCompound && k != KindUnknown
}

// AxisDirection is the direction of increasing axis values.
type AxisDirection int

const (
	DirectionEast AxisDirection = iota
	DirectionWest
	DirectionNorth
	DirectionSouth
	DirectionUp
	DirectionDown
	DirectionFuture
)

// Opposite returns the reversed direction.
func (d AxisDirection) Opposite() AxisDirection {
	switch d {
	case DirectionEast:
		return DirectionWest
	case DirectionWest:
		return DirectionEast
	case DirectionNorth:
		return DirectionSouth
	case DirectionSouth:
		return DirectionNorth
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	}
	return d
}

// absolute maps a direction to its positive counterpart for axis matching.
func (d AxisDirection) absolute() AxisDirection {
	switch d {
	case DirectionWest:
		return DirectionEast
	case DirectionSouth:
		return DirectionNorth
	case DirectionDown:
		return DirectionUp
	}
	return d
}

// Axis describes one coordinate system axis. UnitScale is the factor from
// the axis unit to the canonical unit of its dimension (degrees for angular
// axes, metres for linear ones); 1 means the axis already uses the canonical
// unit.
type Axis struct {
	Abbrev    string
	Direction AxisDirection
	UnitScale float64
}

// CoordinateSystem is an ordered list of axes.
type CoordinateSystem struct {
	Axes []Axis
}

// Dimension returns the number of axes.
func (cs CoordinateSystem) Dimension() int {
	return len(cs.Axes)
}

// CRS is a coordinate reference system. Exactly one of Datum.Datum or
// Datum.Ensemble is set for single CRS; Components is set only for compound
// CRS and Base only for projected (or otherwise derived) CRS.
type CRS struct {
	Name        string
	Identifiers []Code
	Aliases     []string
	Kind        Kind
	CS          CoordinateSystem
	Datum       DatumOrEnsemble
	Base        *CRS   // base CRS of a projected/derived CRS
	Components  []*CRS // components of a compound CRS, in order
	Domain      *Extent
	Deprecated  bool
}

// Dimension returns the total number of axes, summing components for a
// compound CRS.
func (c *CRS) Dimension() int {
	if c.Kind == KindCompound {
		n := 0
		for _, comp := range c.Components {
			n += comp.Dimension()
		}
		return n
	}
	return c.CS.Dimension()
}

// IsDerived reports whether the CRS is defined by an operation applied to a
// base CRS. Searching the horizontal component of such a CRS is unreliable,
// so the decomposition strategies skip them.
func (c *CRS) IsDerived() bool {
	return c.Base != nil
}

// Identifier returns the first identifier in the given authority namespace.
func (c *CRS) Identifier(authority string) (Code, bool) {
	for _, id := range c.Identifiers {
		if strings.EqualFold(id.Authority, authority) {
			return id, true
		}
	}
	return Code{}, false
}

// Horizontal returns the two-dimensional horizontal component of the CRS,
// or nil when there is no meaningful reduction: the CRS is already 2D, is
// compound (separation of compounds belongs to higher-level logic), or is
// derived.
func (c *CRS) Horizontal() *CRS {
	if c.Kind == KindCompound || c.IsDerived() {
		return nil
	}
	if c.Kind != KindGeographic3D {
		return nil
	}
	axes := make([]Axis, 0, 2)
	for _, axis := range c.CS.Axes {
		if axis.Direction.absolute() != DirectionUp {
			axes = append(axes, axis)
		}
	}
	if len(axes) != 2 {
		return nil
	}
	reduced := *c
	reduced.Kind = KindGeographic2D
	reduced.CS = CoordinateSystem{Axes: axes}
	reduced.Identifiers = nil // the 3D identifiers do not apply to the reduction
	return &reduced
}

// Equals compares two CRS ignoring names, aliases, identifiers and domain.
// When ignoreAxes is true, coordinate systems are compared only by dimension
// so that axis-order/unit variants of the same CRS compare equal.
func (c *CRS) Equals(other *CRS, ignoreAxes bool) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil || c.Kind != other.Kind {
		return false
	}
	if c.Kind == KindCompound {
		if len(c.Components) != len(other.Components) {
			return false
		}
		for i := range c.Components {
			if !c.Components[i].Equals(other.Components[i], ignoreAxes) {
				return false
			}
		}
		return true
	}
	if !c.Datum.Equals(other.Datum) {
		return false
	}
	if c.Base != nil || other.Base != nil {
		if !c.Base.Equals(other.Base, true) {
			return false
		}
	}
	if ignoreAxes {
		return c.CS.Dimension() == other.CS.Dimension()
	}
	if c.CS.Dimension() != other.CS.Dimension() {
		return false
	}
	for i, axis := range c.CS.Axes {
		o := other.CS.Axes[i]
		if axis.Direction != o.Direction || !almostEqual(axis.UnitScale, o.UnitScale) {
			return false
		}
	}
	return true
}

func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	scale := a
	if scale < 0 {
		scale = -scale
	}
	if scale < 1 {
		scale = 1
	}
	return diff <= 1e-12*scale
}
