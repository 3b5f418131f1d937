// Package epsg is the EPSG authority factory: code-based lookup of CRS,
// datums, ellipsoids and coordinate operations, plus the tiered candidate
// code search used by the resolution engine. Two backends implement the
// same interfaces: a PostgreSQL store over a simplified EPSG schema and an
// in-memory dataset seeded with well-known rows.
package epsg

const (
	// Authority is the namespace served by this package.
	Authority = "EPSG"

	// linearTolerance is the comparison tolerance, in metres, for lengths
	// measured on Earth. Scaled by authalicRadius it yields the relative
	// window used when searching ellipsoids by semi-major axis.
	linearTolerance = 0.01
	authalicRadius  = 6371007.0

	// maxPropertyDepth bounds the dependency recursion of the property
	// search tier (CRS by datum, datum by ellipsoid).
	maxPropertyDepth = 3
)

// semiMajorTolerance returns the absolute search window for a semi-major
// axis length.
func semiMajorTolerance(v float64) float64 {
	if v < 0 {
		v = -v
	}
	return linearTolerance / authalicRadius * v
}
