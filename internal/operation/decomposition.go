package operation

import "georef/internal/crs"

// Decomposition enumerates the ways a 3D CRS pair is reduced to components
// that may be present in the authority dataset. Registries often define
// operations between 2D horizontal components only, so when the pair as
// given yields nothing, the engine retries with horizontal reductions, in
// the order declared here.
type Decomposition int

const (
	// DecomposeNone searches the pair exactly as provided.
	DecomposeNone Decomposition = iota
	// DecomposeHorizontalTarget reduces only the target to 2D. Tried
	// before reducing the source so that a source z coordinate keeps
	// participating in the computation when possible.
	DecomposeHorizontalTarget
	// DecomposeHorizontal reduces both sides to 2D.
	DecomposeHorizontal
	// DecomposeHorizontalSource reduces only the source to 2D. Rarely
	// applicable, since the target z value would appear from nowhere, but
	// tried as a matter of principle.
	DecomposeHorizontalSource
)

// decompositions is the fixed strategy order.
var decompositions = []Decomposition{
	DecomposeNone,
	DecomposeHorizontalTarget,
	DecomposeHorizontal,
	DecomposeHorizontalSource,
}

// reduceSource reports whether the strategy reduces the source CRS.
func (d Decomposition) reduceSource() bool {
	return d == DecomposeHorizontal || d == DecomposeHorizontalSource
}

// reduceTarget reports whether the strategy reduces the target CRS.
func (d Decomposition) reduceTarget() bool {
	return d == DecomposeHorizontal || d == DecomposeHorizontalTarget
}

// horizontal returns the 2D component to search instead of the given CRS,
// or nil when no search should be done: the horizontal component is the CRS
// itself (searching again would be redundant), the CRS is compound
// (separation is higher-level logic) or derived (searching an ungrounded
// derived horizontal component is unreliable).
func horizontal(c *crs.CRS) *crs.CRS {
	if c == nil || !c.Kind.IsSingle() {
		return nil
	}
	return c.Horizontal()
}
