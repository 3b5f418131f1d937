package operation

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks CodeFinder,AuthorityLookup

import (
	"context"

	"georef/internal/crs"
)

// Domain selects how far a candidate code search is willing to go.
type Domain int

const (
	// DomainDeclaration trusts only identifiers declared on the object.
	DomainDeclaration Domain = iota
	// DomainValidDataset searches the dataset, excluding deprecated rows,
	// trusting declared identifiers when present.
	DomainValidDataset
	// DomainExhaustive searches the dataset ignoring declared identifiers,
	// re-verifying everything. Used for CRS kinds where the dataset holds
	// axis-order variants of the same definition.
	DomainExhaustive
	// DomainAll searches the whole dataset, deprecated rows included
	// (sorted last).
	DomainAll
)

// Candidate is one authority code that may identify an object equal or
// compatible to the query object.
type Candidate struct {
	Code crs.Code
	// AxisOrderMatch is set when the registered definition also matches
	// the query's axis order, which ranks the candidate ahead of
	// ignoring-axes matches.
	AxisOrderMatch bool
	Deprecated     bool
}

// CodeFinder finds candidate authority codes for a geodetic object (a
// *crs.CRS, *crs.Datum or *crs.Ellipsoid). Results are deduplicated and
// ordered cheapest-evidence first, deprecated entries last.
type CodeFinder interface {
	Candidates(ctx context.Context, object any, domain Domain) ([]Candidate, error)
}

// AuthorityLookup is the code-based face of the authority factory. Lookups
// by unknown code return an error wrapping sentinel.ErrNotFound; mechanism
// failures wrap sentinel.ErrBackend.
type AuthorityLookup interface {
	// Authority returns the namespace served, e.g. "EPSG".
	Authority() string
	// OperationsForCodePair returns the operations registered from source
	// to target, metadata-only (deferred), ordered as stored with
	// deprecated entries last. An empty list means no entry exists for
	// the pair.
	OperationsForCodePair(ctx context.Context, source, target crs.Code) ([]*Operation, error)
	// Materialize resolves a deferred operation into a full one, loading
	// its CRS, parameters and transform.
	Materialize(ctx context.Context, op *Operation) (*Operation, error)
}
