package operation

import (
	"sort"

	"georef/internal/crs"
)

// accuracyUnknown is the pessimistic accuracy assumed for a transformation
// that declares none, such as a datum change ignoring Bursa-Wolf
// parameters (historically around one kilometre of error).
const accuracyUnknown = 1000.0

// sortOperations orders candidates in preference order: largest geographic
// intersection with the area of interest first, then best (smallest)
// accuracy, then widest overall domain. The sort is stable, so the
// authority's own ordering breaks remaining ties.
func sortOperations(ops []*Operation, aoi *crs.Extent) {
	if len(ops) < 2 {
		return
	}
	sort.SliceStable(ops, func(i, j int) bool {
		a, b := ops[i], ops[j]
		if aoi != nil {
			ai := aoi.Intersection(domainOf(a)).Area()
			bi := aoi.Intersection(domainOf(b)).Area()
			if ai != bi {
				return ai > bi
			}
			// Same covered area: prefer the operation defined for that
			// region over one defined for a much wider domain, e.g. a
			// Texas-specific datum shift over the continental-wide one.
			af := ai / domainOf(a).Area()
			bf := bi / domainOf(b).Area()
			if af != bf {
				return af > bf
			}
		}
		aa, ba := rankedAccuracy(a), rankedAccuracy(b)
		if aa != ba {
			return aa < ba
		}
		return domainOf(a).Area() > domainOf(b).Area()
	})
}

// domainOf returns the operation domain of validity, assuming the whole
// planet when none is declared.
func domainOf(op *Operation) *crs.Extent {
	if op.Domain != nil {
		return op.Domain
	}
	return &crs.World
}

func rankedAccuracy(op *Operation) float64 {
	if op.HasAccuracy() {
		return op.Accuracy
	}
	if op.Type == TypeConversion {
		return 0 // conversions are exact
	}
	return accuracyUnknown
}
