package operation

import (
	"fmt"

	"georef/internal/platform/sentinel"
	"georef/internal/transform"
)

// Inverse returns the inverse of the given operation: source and target CRS
// swapped, transform inverted, domain of validity unchanged. The result is
// cached on the original (and back-linked), so inverting twice returns the
// original instance.
//
// The accuracy of the inverse is taken equal to the forward accuracy by
// policy. Inverses built from series expansions or iterative methods are
// numerically less precise than the forward operation, but that error is
// negligible compared to the stochastic uncertainty of coordinate
// transformations, so no tighter bound is attempted.
func (r *Registry) Inverse(op *Operation) (*Operation, error) {
	if op == nil {
		return nil, nil
	}
	if inv := op.cachedInverse(); inv != nil {
		return inv, nil
	}
	if op.Type == TypeConcatenated {
		return r.inverseConcatenated(op)
	}
	if op.Transform == nil {
		return nil, fmt.Errorf("%w: operation %q has no transform", sentinel.ErrNonInvertible, op.Name)
	}
	tr, err := op.Transform.Inverse()
	if err != nil {
		return nil, fmt.Errorf("invert %q: %w", op.Name, err)
	}
	inv := &Operation{
		Name:      inverseName(op.Name),
		Class:     ClassInverse,
		Type:      op.Type,
		Source:    op.Target,
		Target:    op.Source,
		Method:    Method{Name: inverseName(op.Method.Name)},
		Transform: tr,
		Accuracy:  op.Accuracy,
		Domain:    op.Domain,
		Scope:     op.Scope,
	}
	// When the inverted transform knows the parameters it would be rebuilt
	// from, record them so the vertical-propagation pass can rebuild this
	// step in three dimensions.
	if method, params := transform.ParametersOf(tr); params != nil {
		inv.Method = Method{Name: method}
		inv.Params = params
	}
	op.setCachedInverse(inv)
	return inv, nil
}

// inverseConcatenated inverts each step and reverses the order, re-deriving
// the chain transform as the inverse of the concatenation.
func (r *Registry) inverseConcatenated(op *Operation) (*Operation, error) {
	steps, err := r.steps(op, true)
	if err != nil {
		return nil, err
	}
	reversed := make([]*Operation, len(steps))
	for i, step := range steps {
		reversed[len(steps)-1-i] = step
	}
	inv, err := r.concatenated(op, reversed)
	if err != nil {
		return nil, err
	}
	inv.Name = inverseName(op.Name)
	inv.Class = ClassInverse
	op.setCachedInverse(inv)
	return inv, nil
}

func inverseName(name string) string {
	if name == "" {
		return "Inverse operation"
	}
	return "Inverse of " + name
}
