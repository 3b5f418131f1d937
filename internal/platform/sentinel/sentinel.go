package sentinel

import "errors"

// Sentinel errors for the resolution engine and its stores. Stores and the
// authority layer return these (optionally wrapped) so callers can classify
// failures without string matching.
//
// Taxonomy:
//   - ErrNotFound: no authority entry for a code or code pair; recovered
//     locally by the engine, never surfaced to API callers as a failure.
//   - ErrBackend: the lookup mechanism itself is broken (connectivity,
//     malformed dataset); logged per candidate, re-raised when it prevents
//     any progress.
//   - ErrNonInvertible: a candidate step cannot be inverted; the candidate
//     is dropped and the search continues.
//   - ErrMalformedCRS: reconciling the user CRS with the authority CRS
//     failed; always fatal, this is a caller error.
//   - ErrUnavailable: a dependent service (cache, broker) is temporarily
//     unreachable.
//   - ErrInvalidParameter: an operation method rejected its parameter
//     values; recoverable when building alternate candidates, fatal when it
//     happens in the final reconciliation step.
var (
	ErrNotFound         = errors.New("not found")
	ErrBackend          = errors.New("authority backend failure")
	ErrNonInvertible    = errors.New("non-invertible transform")
	ErrMalformedCRS     = errors.New("malformed coordinate reference system")
	ErrInvalidParameter = errors.New("invalid operation parameter")
	ErrUnavailable      = errors.New("unavailable")
)
