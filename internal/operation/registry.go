package operation

import (
	"context"
	"errors"
	"fmt"
	"log"

	"georef/internal/crs"
	"georef/internal/platform/sentinel"
	"georef/internal/transform"
)

// Registry resolves coordinate operations through the late-binding
// approach: candidate authority codes are extracted for the source and
// target CRS and submitted to the authority lookup. The registry never
// infers operations from CRS structure; when it finds nothing it returns an
// empty list and leaves early-binding inference to the caller.
//
// A Registry is safe for concurrent use; all per-call state lives in the
// Context passed to CreateOperations.
type Registry struct {
	lookup AuthorityLookup
	finder CodeFinder
	build  transform.Builder
	warn   *log.Logger
}

// NewRegistry constructs a resolution registry. The builder defaults to
// transform.Build and the warning sink to the default logger.
func NewRegistry(lookup AuthorityLookup, finder CodeFinder, build transform.Builder, warn *log.Logger) (*Registry, error) {
	if lookup == nil {
		return nil, fmt.Errorf("authority lookup is required")
	}
	if build == nil {
		build = transform.Build
	}
	if warn == nil {
		warn = log.Default()
	}
	return &Registry{lookup: lookup, finder: finder, build: build, warn: warn}, nil
}

// CreateOperations finds operations from sourceCRS to targetCRS, in
// preference order. The decomposition strategies are tried in their fixed
// order; the first strategy yielding at least one completable operation
// wins. An empty list means the registry has no explicit entry; it does not
// mean that no path exists.
func (r *Registry) CreateOperations(ctx context.Context, sc *Context, sourceCRS, targetCRS *crs.CRS) ([]*Operation, error) {
	if sourceCRS == nil || targetCRS == nil {
		return nil, fmt.Errorf("%w: source and target CRS are required", sentinel.ErrMalformedCRS)
	}
	if sc == nil {
		sc = NewContext()
	}
	var source2D, target2D *crs.CRS
	sourceCached, targetCached := false, false
	for _, decompose := range decompositions {
		source, target := sourceCRS, targetCRS
		if decompose.reduceSource() {
			if !sourceCached {
				sourceCached = true
				source2D = horizontal(sourceCRS)
			}
			source = source2D
		}
		if decompose.reduceTarget() {
			if !targetCached {
				targetCached = true
				target2D = horizontal(targetCRS)
			}
			target = target2D
		}
		if source == nil || target == nil {
			continue
		}
		operations, err := r.search(ctx, sc, source, target, sourceCRS, targetCRS)
		if err != nil {
			return nil, fmt.Errorf("operations from %q to %q: %w", sourceCRS.Name, targetCRS.Name, err)
		}
		if operations == nil {
			continue
		}
		if decompose != DecomposeNone {
			// The found operations connect the reduced components; they
			// must grow back to the user's number of dimensions. Any
			// candidate that cannot propagate the vertical dimension is
			// discarded rather than silently dropping accuracy.
			kept := make([]*Operation, 0, len(operations))
			for _, op := range operations {
				grown, err := r.propagateVertical(ctx, sourceCRS, targetCRS, op, decompose)
				if err != nil {
					return nil, fmt.Errorf("operations from %q to %q: %w", sourceCRS.Name, targetCRS.Name, err)
				}
				if grown == nil {
					continue
				}
				grown, err = r.complete(ctx, grown, sourceCRS, targetCRS)
				if err != nil {
					return nil, fmt.Errorf("operations from %q to %q: %w", sourceCRS.Name, targetCRS.Name, err)
				}
				kept = append(kept, grown)
			}
			operations = kept
		}
		if len(operations) > 0 {
			return operations, nil
		}
	}
	return []*Operation{}, nil
}

// isEasySearch reports whether a full dataset scan (ignoring axis order) is
// presumed affordable for the given CRS. Derived CRS (projections in
// particular) are expensive to search; plain geographic CRS are searched
// exhaustively because registries hold equivalent definitions differing
// only in axis order, and operations may be registered against only one of
// them.
func isEasySearch(c *crs.CRS) bool {
	if c.IsDerived() {
		return false
	}
	for _, comp := range c.Components {
		if !isEasySearch(comp) {
			return false
		}
	}
	return true
}

// findCode returns candidate authority codes for the given CRS, cached in
// the search context. Declared codes are not trusted blindly: the finder
// verifies them, and may return codes whose axis order does not match (the
// completion step reconciles that later). Candidates matching the query's
// axis order come first.
func (r *Registry) findCode(ctx context.Context, sc *Context, c *crs.CRS) ([]Candidate, error) {
	if codes, ok := sc.cachedCodes(c); ok {
		return codes, nil
	}
	if r.finder == nil {
		return nil, nil
	}
	domain := DomainValidDataset
	if isEasySearch(c) {
		domain = DomainExhaustive
	}
	found, err := r.finder.Candidates(ctx, c, domain)
	if err != nil {
		// A finder failure happens before any candidate list exists, so
		// no progress is possible for this CRS pair.
		return nil, fmt.Errorf("candidate codes for %q: %w", c.Name, err)
	}
	// Stable partition: axis-order matches keep their relative order and
	// precede the ignoring-axes matches.
	ordered := make([]Candidate, 0, len(found))
	for _, cand := range found {
		if cand.AxisOrderMatch {
			ordered = append(ordered, cand)
		}
	}
	for _, cand := range found {
		if !cand.AxisOrderMatch {
			ordered = append(ordered, cand)
		}
	}
	sc.storeCodes(c, ordered)
	return ordered, nil
}

// search returns operations between the two CRS as registered by the
// authority, or nil (without error) when the registry has no entry for any
// candidate code pair. A non-nil empty list means entries existed but none
// survived materialization and filtering.
func (r *Registry) search(ctx context.Context, sc *Context, sourceCRS, targetCRS, userSource, userTarget *crs.CRS) ([]*Operation, error) {
	sources, err := r.findCode(ctx, sc, sourceCRS)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, nil
	}
	targets, err := r.findCode(ctx, sc, targetCRS)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	var collected []*Operation
	foundDirect := false
	useDeprecated := false
	for _, src := range sources {
		for _, tgt := range targets {
			if src.Code == tgt.Code {
				// Equal codes with non-equal CRS happen when axis order
				// was declared in a non-compliant way upstream. The
				// registry must not resolve that as an identity
				// operation; abort and let the caller infer the
				// operation from the CRS structure instead.
				return nil, nil
			}
			authoritatives, err := r.lookupPair(ctx, src.Code, tgt.Code)
			if err != nil {
				continue
			}
			if len(authoritatives) == 0 {
				// No direct entry. Registries usually store one
				// direction only (e.g. geographic to projected), so try
				// the inverse pair, unless a direct operation was
				// already found for a previous code pair: direct always
				// wins.
				if foundDirect {
					continue
				}
				authoritatives, err = r.lookupPair(ctx, tgt.Code, src.Code)
				if err != nil || len(authoritatives) == 0 {
					continue
				}
			} else if !foundDirect {
				foundDirect = true
				collected = collected[:0] // discard inverse-marked results
			}
			// Deprecated entries are collected only while nothing
			// non-deprecated is known, and flushed as soon as a
			// non-deprecated entry appears. The lookup returns
			// deprecated entries last, hence the break.
			for _, candidate := range authoritatives {
				if candidate == nil {
					continue
				}
				if candidate.Deprecated {
					if !useDeprecated && len(collected) > 0 {
						break
					}
					useDeprecated = true
				} else if useDeprecated {
					useDeprecated = false
					collected = collected[:0]
				}
				collected = append(collected, candidate)
			}
		}
	}
	if len(collected) == 0 {
		return nil, nil
	}
	sortOperations(collected, r.areaOfInterest(sc, userSource, userTarget))
	// Everything so far was selected on metadata alone. Materialize the
	// survivors: resolve deferred operations, synthesize transforms from
	// defining conversions, and invert when the match came from the
	// inverse direction. Candidates failing to materialize are dropped;
	// reconciliation failures are fatal.
	result := make([]*Operation, 0, len(collected))
	for _, op := range collected {
		full := op
		if full.Deferred {
			full, err = r.lookup.Materialize(ctx, full)
			if err != nil {
				r.recoverable("materialize", err)
				continue
			}
		}
		if full.Type != TypeConcatenated && full.Transform == nil {
			defSource, defTarget := sourceCRS, targetCRS
			if !foundDirect {
				defSource, defTarget = targetCRS, sourceCRS
			}
			full, err = r.fromDefiningConversion(full, defSource, defTarget)
			if err != nil || full == nil {
				r.recoverable("defining conversion", err)
				continue
			}
		}
		if !foundDirect {
			full, err = r.Inverse(full)
			if err != nil {
				r.recoverable("inverse", err)
				continue
			}
		}
		// Reconcile against the searched pair, which under a decomposition
		// strategy is the reduced one; the caller re-completes against the
		// full user CRS after the vertical dimension is propagated back.
		full, err = r.complete(ctx, full, sourceCRS, targetCRS)
		if err != nil {
			// The reconciliation transform should have been at most a
			// simple affine; failing here means the user CRS is
			// fundamentally malformed and every other candidate would
			// fail the same way.
			return nil, err
		}
		if sc.Filter != nil && !sc.Filter(full) {
			continue
		}
		result = append(result, full)
		if sc.StopAtFirst {
			break
		}
	}
	return result, nil
}

// lookupPair queries one code pair, routing lookup failures for that pair
// through the warning sink: a missing or broken candidate never aborts the
// whole search.
func (r *Registry) lookupPair(ctx context.Context, source, target crs.Code) ([]*Operation, error) {
	ops, err := r.lookup.OperationsForCodePair(ctx, source, target)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			r.recoverable("lookup "+source.String()+" -> "+target.String(), err)
		}
		return nil, err
	}
	return ops, nil
}

// areaOfInterest returns the caller's area of interest, or derives one from
// the CRS domains of validity. Without this, a region-specific transform
// would be starved by a world-wide one of equal standing.
func (r *Registry) areaOfInterest(sc *Context, source, target *crs.CRS) *crs.Extent {
	if sc.AreaOfInterest != nil {
		return sc.AreaOfInterest
	}
	if inter := source.Domain.Intersection(target.Domain); inter != nil {
		return inter
	}
	if source.Domain != nil {
		return source.Domain
	}
	return target.Domain
}

// recoverable routes an ignorable failure through the warning sink instead
// of raising it.
func (r *Registry) recoverable(where string, err error) {
	if err != nil {
		r.warn.Printf("operation registry: %s: %v", where, err)
	}
}
