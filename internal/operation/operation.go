// Package operation implements the coordinate operation resolution engine:
// given a source and target CRS, find or synthesize an ordered list of
// coordinate operations between them, preferring authority-defined entries
// (late binding) and reconciling axis order, units and dimensionality with
// the CRS supplied by the caller.
package operation

import (
	"sync"

	"georef/internal/crs"
	"georef/internal/transform"
)

// Type tags the variant of a coordinate operation.
type Type int

const (
	TypeUnknown Type = iota
	// TypeConversion is an exact operation such as a map projection or an
	// axis-order change; it carries no accuracy.
	TypeConversion
	// TypeTransformation is a stochastic operation such as a datum shift;
	// it carries an accuracy estimate.
	TypeTransformation
	// TypeConcatenated is an ordered chain of steps where each step's
	// target CRS equals the next step's source CRS.
	TypeConcatenated
)

func (t Type) String() string {
	switch t {
	case TypeConversion:
		return "conversion"
	case TypeTransformation:
		return "transformation"
	case TypeConcatenated:
		return "concatenated"
	default:
		return "unknown"
	}
}

// Classification tags operations synthesized by the engine itself, compared
// by value. Authority-defined operations are ClassNone.
type Classification int

const (
	ClassNone Classification = iota
	ClassIdentity
	ClassAxisChanges
	ClassDatumShift
	ClassUnspecifiedDatumChange
	ClassSameDatumEnsemble
	ClassGeocentricConversion
	ClassInverse
)

// IsDatumChange reports whether the classification denotes a datum change,
// which makes the synthesized operation a transformation rather than a
// conversion.
func (c Classification) IsDatumChange() bool {
	return c == ClassDatumShift || c == ClassUnspecifiedDatumChange || c == ClassSameDatumEnsemble
}

// Method names the algorithm of a single operation.
type Method struct {
	Name string
	Code crs.Code
}

// Operation is a directed coordinate operation from Source to Target.
// Instances are read-only value objects once constructed: the engine never
// mutates a returned operation, it wraps it into a new instance instead.
// The only hidden state is the cached inverse, keyed by identity.
type Operation struct {
	Name        string
	Identifiers []crs.Code
	Class       Classification
	Type        Type
	Source      *crs.CRS
	Target      *crs.CRS
	Method      Method
	Params      transform.Params
	Transform   transform.MathTransform
	// Accuracy is the positional accuracy in metres; zero means
	// unspecified, which for a conversion means exact.
	Accuracy   float64
	Domain     *crs.Extent
	Scope      string
	Deprecated bool
	// Deferred marks a metadata-only operation: identifying metadata was
	// loaded but the transform and parameters were not, to avoid paying
	// the full construction cost for candidates that will be discarded.
	Deferred bool
	Steps    []*Operation

	invMu   sync.Mutex
	inverse *Operation
}

// HasAccuracy reports whether an accuracy estimate is attached.
func (op *Operation) HasAccuracy() bool {
	return op.Accuracy > 0
}

// Identifier returns the first identifier in the given authority namespace.
func (op *Operation) Identifier(authority string) (crs.Code, bool) {
	for _, id := range op.Identifiers {
		if id.Authority == authority {
			return id, true
		}
	}
	return crs.Code{}, false
}

// cachedInverse returns the inverse operation previously attached to op.
func (op *Operation) cachedInverse() *Operation {
	op.invMu.Lock()
	defer op.invMu.Unlock()
	return op.inverse
}

// setCachedInverse stores inv as the inverse of op and back-links op as the
// inverse of inv, so that inverting twice returns the original instance.
func (op *Operation) setCachedInverse(inv *Operation) {
	op.invMu.Lock()
	op.inverse = inv
	op.invMu.Unlock()
	inv.invMu.Lock()
	if inv.inverse == nil {
		inv.inverse = op
	}
	inv.invMu.Unlock()
}

// shallowClone copies the operation value, dropping the cached inverse.
func (op *Operation) shallowClone() *Operation {
	clone := &Operation{
		Name:        op.Name,
		Identifiers: op.Identifiers,
		Class:       op.Class,
		Type:        op.Type,
		Source:      op.Source,
		Target:      op.Target,
		Method:      op.Method,
		Params:      op.Params,
		Transform:   op.Transform,
		Accuracy:    op.Accuracy,
		Domain:      op.Domain,
		Scope:       op.Scope,
		Deprecated:  op.Deprecated,
		Deferred:    op.Deferred,
		Steps:       op.Steps,
	}
	return clone
}
