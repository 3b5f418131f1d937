package transform

import (
	"fmt"

	"georef/internal/platform/sentinel"
)

// MathTransform maps coordinates from a source space to a target space.
// Implementations are immutable and safe for concurrent use.
type MathTransform interface {
	SourceDim() int
	TargetDim() int
	Transform(coord []float64) ([]float64, error)
	Inverse() (MathTransform, error)
}

// LinearTransform is implemented by transforms representable as an affine
// matrix. The resolution engine uses the matrix form when propagating a
// vertical dimension through an operation chain.
type LinearTransform interface {
	MathTransform
	Matrix() *Matrix
}

// Parameterized is implemented by transforms that can report the operation
// method and parameter values they would be rebuilt from. An inverted
// transform reports the parameters of the inverse operation under the same
// method name.
type Parameterized interface {
	Parameters() (method string, params Params)
}

// ParametersOf returns the method and parameters of a parameterized
// transform, or ("", nil) when the transform cannot report them.
func ParametersOf(t MathTransform) (string, Params) {
	if p, ok := t.(Parameterized); ok {
		return p.Parameters()
	}
	return "", nil
}

// MatrixOf returns the affine matrix of the transform when it has one.
func MatrixOf(t MathTransform) (*Matrix, bool) {
	if lt, ok := t.(LinearTransform); ok {
		return lt.Matrix(), true
	}
	return nil, false
}

// IsIdentity reports whether the transform is a linear identity.
func IsIdentity(t MathTransform) bool {
	m, ok := MatrixOf(t)
	return ok && m.IsIdentity()
}

// Affine is a matrix-backed transform. The matrix has TargetDim+1 rows and
// SourceDim+1 columns (homogeneous coordinates).
type Affine struct {
	m *Matrix
}

// NewAffine wraps a matrix as a transform.
func NewAffine(m *Matrix) *Affine {
	return &Affine{m: m}
}

// NewIdentityTransform returns the identity transform for dim dimensions.
func NewIdentityTransform(dim int) *Affine {
	return &Affine{m: Identity(dim)}
}

func (a *Affine) SourceDim() int  { return a.m.Cols - 1 }
func (a *Affine) TargetDim() int  { return a.m.Rows - 1 }
func (a *Affine) Matrix() *Matrix { return a.m.Clone() }

func (a *Affine) Transform(coord []float64) ([]float64, error) {
	if len(coord) != a.SourceDim() {
		return nil, fmt.Errorf("expected %d coordinates, got %d", a.SourceDim(), len(coord))
	}
	out := make([]float64, a.TargetDim())
	for r := 0; r < a.TargetDim(); r++ {
		sum := a.m.At(r, a.m.Cols-1)
		for c := 0; c < a.SourceDim(); c++ {
			sum += a.m.At(r, c) * coord[c]
		}
		out[r] = sum
	}
	return out, nil
}

func (a *Affine) Inverse() (MathTransform, error) {
	if a.m.Rows != a.m.Cols {
		return nil, fmt.Errorf("%w: affine %dx%d drops dimensions", sentinel.ErrNonInvertible, a.m.Rows, a.m.Cols)
	}
	inv, err := a.m.Invert()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrNonInvertible, err)
	}
	return &Affine{m: inv}, nil
}

// Concatenated chains transforms; the output of each step feeds the next.
type Concatenated struct {
	steps []MathTransform
}

func (c *Concatenated) SourceDim() int { return c.steps[0].SourceDim() }
func (c *Concatenated) TargetDim() int { return c.steps[len(c.steps)-1].TargetDim() }

// Steps returns the individual transforms, in application order.
func (c *Concatenated) Steps() []MathTransform {
	out := make([]MathTransform, len(c.steps))
	copy(out, c.steps)
	return out
}

func (c *Concatenated) Transform(coord []float64) ([]float64, error) {
	var err error
	for _, step := range c.steps {
		coord, err = step.Transform(coord)
		if err != nil {
			return nil, err
		}
	}
	return coord, nil
}

func (c *Concatenated) Inverse() (MathTransform, error) {
	inverted := make([]MathTransform, len(c.steps))
	for i, step := range c.steps {
		inv, err := step.Inverse()
		if err != nil {
			return nil, err
		}
		inverted[len(c.steps)-1-i] = inv
	}
	return &Concatenated{steps: inverted}, nil
}

// Concatenate chains transforms, dropping identity steps and merging
// adjacent affine steps by matrix multiplication. Dimension continuity is
// verified step to step.
func Concatenate(transforms ...MathTransform) (MathTransform, error) {
	var flat []MathTransform
	for _, t := range transforms {
		if t == nil {
			continue
		}
		if c, ok := t.(*Concatenated); ok {
			flat = append(flat, c.steps...)
		} else {
			flat = append(flat, t)
		}
	}
	var steps []MathTransform
	for _, t := range flat {
		if IsIdentity(t) && t.SourceDim() == t.TargetDim() {
			continue
		}
		if len(steps) > 0 {
			prev := steps[len(steps)-1]
			if prev.TargetDim() != t.SourceDim() {
				return nil, fmt.Errorf("cannot chain %d-dim output into %d-dim input", prev.TargetDim(), t.SourceDim())
			}
			pm, pok := MatrixOf(prev)
			tm, tok := MatrixOf(t)
			if pok && tok {
				merged, err := tm.Mul(pm)
				if err != nil {
					return nil, err
				}
				if merged.IsIdentity() {
					steps = steps[:len(steps)-1]
				} else {
					steps[len(steps)-1] = NewAffine(merged)
				}
				continue
			}
		}
		steps = append(steps, t)
	}
	switch len(steps) {
	case 0:
		dim := 2
		if len(flat) > 0 {
			dim = flat[0].SourceDim()
		}
		return NewIdentityTransform(dim), nil
	case 1:
		return steps[0], nil
	default:
		return &Concatenated{steps: steps}, nil
	}
}
