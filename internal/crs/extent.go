package crs

import "math"

// Extent is a geographic bounding box in decimal degrees. Bounds follow the
// EPSG usage convention: west may exceed east for boxes crossing the
// anti-meridian, but none of the datasets handled here require it, so the
// implementation assumes west <= east.
type Extent struct {
	West  float64
	East  float64
	South float64
	North float64
}

// World is the whole-planet extent used when a domain of validity is unknown.
var World = Extent{West: -180, East: 180, South: -90, North: 90}

// Intersection returns the overlapping extent, or nil when the boxes are
// disjoint.
func (e *Extent) Intersection(other *Extent) *Extent {
	if e == nil || other == nil {
		return nil
	}
	west := math.Max(e.West, other.West)
	east := math.Min(e.East, other.East)
	south := math.Max(e.South, other.South)
	north := math.Min(e.North, other.North)
	if west >= east || south >= north {
		return nil
	}
	return &Extent{West: west, East: east, South: south, North: north}
}

// Area returns a pseudo-area on the unit sphere, suitable only for ranking
// extents against each other. Larger means the box covers more of the
// planet.
func (e *Extent) Area() float64 {
	if e == nil {
		return 0
	}
	dLon := (e.East - e.West) * math.Pi / 180
	if dLon <= 0 {
		return 0
	}
	s := math.Sin(e.North * math.Pi / 180)
	t := math.Sin(e.South * math.Pi / 180)
	if s <= t {
		return 0
	}
	return dLon * (s - t)
}

// Union returns the smallest extent containing both boxes.
func (e *Extent) Union(other *Extent) *Extent {
	if e == nil {
		return other
	}
	if other == nil {
		return e
	}
	return &Extent{
		West:  math.Min(e.West, other.West),
		East:  math.Max(e.East, other.East),
		South: math.Min(e.South, other.South),
		North: math.Max(e.North, other.North),
	}
}
