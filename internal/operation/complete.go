package operation

import (
	"context"
	"errors"
	"fmt"

	"georef/internal/crs"
	"georef/internal/platform/sentinel"
	"georef/internal/transform"
)

// complete wraps the given operation, if necessary, so that its source CRS
// is exactly the user-supplied sourceCRS and its target CRS the
// user-supplied targetCRS. In principle the CRS are already equivalent;
// discrepancies happen when the user CRS has flipped axis order or
// different units than the authority definition. The correction is always
// a plain affine (axis permutation and unit scaling), never a datum change.
func (r *Registry) complete(ctx context.Context, op *Operation, sourceCRS, targetCRS *crs.CRS) (*Operation, error) {
	source, target := op.Source, op.Target
	if source == nil {
		source = sourceCRS
	}
	if target == nil {
		target = targetCRS
	}
	prependMatrix, err := transform.SwapAndScaleAxes(sourceCRS.CS, source.CS)
	if err != nil {
		return nil, err
	}
	appendMatrix, err := transform.SwapAndScaleAxes(target.CS, targetCRS.CS)
	if err != nil {
		return nil, err
	}
	var prepend, append_ transform.MathTransform
	if !prependMatrix.IsIdentity() {
		prepend = transform.NewAffine(prependMatrix)
		source = sourceCRS
	}
	if !appendMatrix.IsIdentity() {
		append_ = transform.NewAffine(appendMatrix)
		target = targetCRS
	}
	return r.transformOp(source, prepend, op, append_, target)
}

// transformOp prepends and appends the given affine corrections to the
// operation transform. For a concatenated operation the chain is never
// wrapped as a whole: the prepend goes into the first step and the append
// into the last, keeping each intermediate step target equal to the next
// step source.
func (r *Registry) transformOp(sourceCRS *crs.CRS, prepend transform.MathTransform, op *Operation,
	append_ transform.MathTransform, targetCRS *crs.CRS) (*Operation, error) {
	if prepend == nil && append_ == nil {
		return op, nil
	}
	if op.Type == TypeConcatenated {
		steps, err := r.steps(op, false)
		if err != nil {
			return nil, err
		}
		switch len(steps) {
		case 0:
			// Malformed, but fall through to the single-operation path.
		case 1:
			op = steps[0]
		default:
			n := len(steps) - 1
			first, err := r.transformOp(sourceCRS, prepend, steps[0], nil, steps[0].Target)
			if err != nil {
				return nil, err
			}
			last, err := r.transformOp(steps[n].Source, nil, steps[n], append_, targetCRS)
			if err != nil {
				return nil, err
			}
			steps[0], steps[n] = first, last
			return r.concatenated(op, steps)
		}
	}
	tr := op.Transform
	if tr == nil {
		return nil, fmt.Errorf("%w: operation %q has no transform", sentinel.ErrBackend, op.Name)
	}
	tr, err := transform.Concatenate(prepend, tr, append_)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrMalformedCRS, err)
	}
	return r.recreate(op, sourceCRS, targetCRS, tr, Method{})
}

// recreate builds a new operation with the same method as the given one but
// different CRS: either a different number of dimensions (vertical
// passthrough) or different axis order. Identifiers are stripped, since the
// result is no longer exactly the authority definition; name, scope, domain
// of validity and accuracy are retained.
func (r *Registry) recreate(op *Operation, sourceCRS, targetCRS *crs.CRS, tr transform.MathTransform, method Method) (*Operation, error) {
	// If the user CRS is equivalent to the authority CRS, keep the
	// authority instance: it was built from the registered definition,
	// while the user CRS may come from an approximate external source.
	if crsEquals(sourceCRS, op.Source) {
		sourceCRS = op.Source
	}
	if crsEquals(targetCRS, op.Target) {
		targetCRS = op.Target
	}
	if method.Name == "" {
		method = op.Method
	}
	out := op.shallowClone()
	out.Identifiers = nil
	out.Source = sourceCRS
	out.Target = targetCRS
	out.Transform = tr
	out.Method = method
	out.Steps = nil
	out.Deferred = false
	if out.Type == TypeConcatenated {
		out.Type = TypeUnknown
	}
	return out, nil
}

// fromDefiningConversion materializes an operation stored without a
// transform (a defining conversion) by building the transform from its
// parameters in the context of the given CRS. Returns nil when the stored
// entry has no parameters.
func (r *Registry) fromDefiningConversion(op *Operation, sourceCRS, targetCRS *crs.CRS) (*Operation, error) {
	if op.Params == nil {
		r.recoverable("defining conversion", fmt.Errorf("operation %q has no parameter values", op.Name))
		return nil, nil
	}
	source, target := op.Source, op.Target
	if source == nil || crsEquals(sourceCRS, source) {
		source = sourceCRS
	}
	if target == nil || crsEquals(targetCRS, target) {
		target = targetCRS
	}
	tr, err := r.build(op.Method.Name, op.Params, transform.AxesOf(source, target))
	if err != nil {
		return nil, err
	}
	out := op.shallowClone()
	out.Source = source
	out.Target = target
	out.Transform = tr
	out.Deferred = false
	return out, nil
}

// propagateVertical returns a new operation with the ellipsoidal height
// added back on the side(s) that were reduced to 2D before the search, or
// nil when the height cannot be propagated through the operation chain.
// This is best effort; complete is invoked afterwards to make the CRS
// exactly the requested ones.
func (r *Registry) propagateVertical(ctx context.Context, sourceCRS, targetCRS *crs.CRS, op *Operation, decompose Decomposition) (*Operation, error) {
	var steps []*Operation
	var err error
	if op.Type == TypeConcatenated {
		steps, err = r.steps(op, false)
		if err != nil {
			return nil, err
		}
	} else {
		steps = []*Operation{op}
	}
	if decompose.reduceSource() {
		steps, err = r.growChain(sourceCRS, targetCRS, steps, true)
		if err != nil {
			return nil, err
		}
		if steps == nil {
			return nil, nil
		}
	}
	if decompose.reduceTarget() {
		steps, err = r.growChain(sourceCRS, targetCRS, steps, false)
		if err != nil {
			return nil, err
		}
		if steps == nil {
			return nil, nil
		}
	}
	switch len(steps) {
	case 0:
		return nil, nil
	case 1:
		return steps[0], nil
	default:
		return r.concatenated(op, steps)
	}
}

// growChain appends a vertical axis to the source CRS of the first step
// (forward) or the target CRS of the last step (backward), walking the
// chain from that end. It returns the updated chain, or nil when no step
// could absorb the extra dimension.
func (r *Registry) growChain(source3D, target3D *crs.CRS, steps []*Operation, forward bool) ([]*Operation, error) {
	i := 0
	if !forward {
		i = len(steps) - 1
	}
	for i >= 0 && i < len(steps) {
		step := steps[i]
		// The number of dimensions can grow only between geographic CRS
		// with ellipsoidal coordinate systems; for anything else there is
		// no value to give to the new dimension.
		if step.Source == nil || step.Target == nil ||
			!step.Source.Kind.IsGeographic() || !step.Target.Kind.IsGeographic() {
			break
		}
		matrix, linear := transform.MatrixOf(step.Transform)
		if !linear {
			// Non-linear step. A few methods (geocentric translations,
			// position vector, frame rotation in their geog2D variants)
			// accept being rebuilt in 3D with the same parameters.
			if step.Params == nil {
				break
			}
			src, tgt := step.Source, step.Target
			if forward {
				src = r.toGeodetic3D(src, source3D)
			} else {
				tgt = r.toGeodetic3D(tgt, target3D)
			}
			axes := transform.AxesOf(src, tgt)
			tr, err := r.build(step.Method.Name, step.Params, axes)
			if err != nil {
				if errors.Is(err, sentinel.ErrInvalidParameter) {
					r.recoverable("propagate vertical", err)
					break
				}
				return nil, err
			}
			grown, err := r.recreate(step, src, tgt, tr, step.Method)
			if err != nil {
				return nil, err
			}
			steps[i] = grown
			return steps, nil
		}
		// Linear step: either a 2D→2D operation to replace by its 3D→3D
		// passthrough form, or the very operation that changes the number
		// of dimensions (e.g. a "Geographic3D to 2D" matrix), to remove
		// or resize.
		rows, cols := matrix.Rows, matrix.Cols
		is2D := rows == 3 && cols == 3
		dimChange := false
		if forward {
			dimChange = rows == 4 && cols == 3
		} else {
			dimChange = rows == 3 && cols == 4
		}
		if !is2D && !dimChange {
			break
		}
		resized := matrix.ResizeAffine(4, 4)
		removed := resized.IsIdentity()
		if removed {
			steps = append(steps[:i:i], steps[i+1:]...)
		} else {
			src := r.toGeodetic3D(step.Source, source3D)
			tgt := r.toGeodetic3D(step.Target, target3D)
			grown, err := r.recreate(step, src, tgt, transform.NewAffine(resized), Method{})
			if err != nil {
				return nil, err
			}
			steps[i] = grown
		}
		if !is2D {
			// The dimension-changing step has been absorbed; done.
			return steps, nil
		}
		// Advance past the processed step; a removal already shifted the
		// forward neighbours into place.
		if forward {
			if !removed {
				i++
			}
		} else {
			i--
		}
	}
	return nil, nil
}

// toGeodetic3D appends an ellipsoidal height axis to a two-dimensional
// geographic CRS. When the caller's own 3D CRS fits (same datum), that
// instance is reused since it may carry useful metadata.
func (r *Registry) toGeodetic3D(c *crs.CRS, candidate *crs.CRS) *crs.CRS {
	if c == nil || c.Dimension() != 2 {
		return c
	}
	if candidate != nil && candidate.Kind == crs.KindGeographic3D && candidate.Dimension() == 3 &&
		candidate.Datum.Equals(c.Datum) {
		return candidate
	}
	grown := *c
	grown.Kind = crs.KindGeographic3D
	grown.Identifiers = nil
	axes := make([]crs.Axis, 0, 3)
	axes = append(axes, c.CS.Axes...)
	axes = append(axes, crs.Axis{Abbrev: "h", Direction: crs.DirectionUp, UnitScale: 1})
	grown.CS = crs.CoordinateSystem{Axes: axes}
	return &grown
}

// concatenated assembles a chain into a concatenated operation deriving its
// metadata from the original, with identifiers stripped. The chain
// invariant (each step target equals the next step source, ignoring
// metadata) is verified.
func (r *Registry) concatenated(original *Operation, steps []*Operation) (*Operation, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: empty operation chain", sentinel.ErrBackend)
	}
	transforms := make([]transform.MathTransform, 0, len(steps))
	accuracy := 0.0
	for i, step := range steps {
		if step.Transform == nil {
			return nil, fmt.Errorf("%w: step %q has no transform", sentinel.ErrBackend, step.Name)
		}
		if i > 0 && !steps[i-1].Target.Equals(step.Source, false) {
			return nil, fmt.Errorf("%w: step %q does not chain onto %q",
				sentinel.ErrBackend, step.Name, steps[i-1].Name)
		}
		transforms = append(transforms, step.Transform)
		if step.Accuracy > accuracy {
			accuracy = step.Accuracy
		}
	}
	tr, err := transform.Concatenate(transforms...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrBackend, err)
	}
	out := original.shallowClone()
	out.Identifiers = nil
	out.Type = TypeConcatenated
	out.Steps = steps
	out.Source = steps[0].Source
	out.Target = steps[len(steps)-1].Target
	out.Transform = tr
	out.Accuracy = accuracy
	out.Deferred = false
	return out, nil
}

// steps returns the steps of a concatenated operation oriented so that the
// first step starts at the operation source and each step target equals
// the next step source, inverting individual steps when required. With
// invert set, every step is returned inverted (element order is left to
// the caller).
func (r *Registry) steps(op *Operation, invert bool) ([]*Operation, error) {
	steps := make([]*Operation, len(op.Steps))
	copy(steps, op.Steps)
	previous := op.Source
	for i, step := range steps {
		var reversed bool
		switch {
		case previous == nil || step.Source.Equals(previous, true):
			reversed = false
		case step.Target.Equals(previous, true):
			reversed = true
		default:
			return nil, fmt.Errorf("%w: step %q does not connect to the chain", sentinel.ErrBackend, step.Name)
		}
		if reversed != invert {
			inv, err := r.Inverse(step)
			if err != nil {
				return nil, err
			}
			steps[i] = inv
		}
		if reversed {
			previous = step.Source
		} else {
			previous = step.Target
		}
	}
	return steps, nil
}

func crsEquals(a, b *crs.CRS) bool {
	return a != nil && b != nil && a.Equals(b, false)
}
