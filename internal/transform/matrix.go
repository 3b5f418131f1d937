// Package transform provides the math-transform layer of the resolution
// engine: affine matrices for axis-order and unit corrections, a small
// catalog of parameterized geodetic transforms, and transform concatenation
// and inversion.
package transform

import (
	"fmt"
	"math"
)

// Matrix is a dense row-major matrix sized for affine coordinate
// corrections (typically 3x3 or 4x4, i.e. 2 or 3 dimensions plus the
// homogeneous row).
type Matrix struct {
	Rows, Cols int
	v          []float64
}

// NewMatrix returns a zero matrix of the given size.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, v: make([]float64, rows*cols)}
}

// Identity returns the identity matrix for dim dimensions (size dim+1).
func Identity(dim int) *Matrix {
	m := NewMatrix(dim+1, dim+1)
	for i := 0; i <= dim; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// At returns the element at (row, col).
func (m *Matrix) At(row, col int) float64 {
	return m.v[row*m.Cols+col]
}

// Set assigns the element at (row, col).
func (m *Matrix) Set(row, col int, value float64) {
	m.v[row*m.Cols+col] = value
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := NewMatrix(m.Rows, m.Cols)
	copy(c.v, m.v)
	return c
}

// IsIdentity reports whether the matrix is square and equal to identity
// within a small tolerance.
func (m *Matrix) IsIdentity() bool {
	if m.Rows != m.Cols {
		return false
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			want := 0.0
			if r == c {
				want = 1
			}
			if math.Abs(m.At(r, c)-want) > 1e-12 {
				return false
			}
		}
	}
	return true
}

// Mul returns m * other.
func (m *Matrix) Mul(other *Matrix) (*Matrix, error) {
	if m.Cols != other.Rows {
		return nil, fmt.Errorf("matrix size mismatch: %dx%d * %dx%d", m.Rows, m.Cols, other.Rows, other.Cols)
	}
	out := NewMatrix(m.Rows, other.Cols)
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < other.Cols; c++ {
			sum := 0.0
			for k := 0; k < m.Cols; k++ {
				sum += m.At(r, k) * other.At(k, c)
			}
			out.Set(r, c, sum)
		}
	}
	return out, nil
}

// Invert returns the inverse of a square matrix using Gauss-Jordan
// elimination with partial pivoting. Sizes here never exceed 5x5.
func (m *Matrix) Invert() (*Matrix, error) {
	if m.Rows != m.Cols {
		return nil, fmt.Errorf("cannot invert non-square %dx%d matrix", m.Rows, m.Cols)
	}
	n := m.Rows
	a := m.Clone()
	inv := Identity(n - 1)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a.At(r, col)) > math.Abs(a.At(pivot, col)) {
				pivot = r
			}
		}
		if math.Abs(a.At(pivot, col)) < 1e-15 {
			return nil, fmt.Errorf("singular matrix")
		}
		if pivot != col {
			a.swapRows(pivot, col)
			inv.swapRows(pivot, col)
		}
		scale := a.At(col, col)
		for c := 0; c < n; c++ {
			a.Set(col, c, a.At(col, c)/scale)
			inv.Set(col, c, inv.At(col, c)/scale)
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := a.At(r, col)
			if factor == 0 {
				continue
			}
			for c := 0; c < n; c++ {
				a.Set(r, c, a.At(r, c)-factor*a.At(col, c))
				inv.Set(r, c, inv.At(r, c)-factor*inv.At(col, c))
			}
		}
	}
	return inv, nil
}

func (m *Matrix) swapRows(a, b int) {
	for c := 0; c < m.Cols; c++ {
		m.v[a*m.Cols+c], m.v[b*m.Cols+c] = m.v[b*m.Cols+c], m.v[a*m.Cols+c]
	}
}

// ResizeAffine grows or shrinks an affine matrix to the requested size,
// keeping the translation column and the homogeneous row in place and
// filling any new dimension with an identity row/column, so that a 3x3
// (2D) correction becomes a 4x4 (3D) correction passing the new dimension
// through unchanged.
func (m *Matrix) ResizeAffine(rows, cols int) *Matrix {
	if rows == m.Rows && cols == m.Cols {
		return m.Clone()
	}
	out := NewMatrix(rows, cols)
	// Identity baseline, including the homogeneous corner.
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r == c || (r == rows-1 && c == cols-1) {
				out.Set(r, c, 1)
			}
		}
	}
	copyRows := min(m.Rows, rows) - 1
	copyCols := min(m.Cols, cols) - 1
	for r := 0; r < copyRows; r++ {
		for c := 0; c < copyCols; c++ {
			out.Set(r, c, m.At(r, c))
		}
		out.Set(r, cols-1, m.At(r, m.Cols-1)) // translation term
	}
	for c := 0; c < copyCols; c++ {
		out.Set(rows-1, c, m.At(m.Rows-1, c))
	}
	out.Set(rows-1, cols-1, m.At(m.Rows-1, m.Cols-1))
	return out
}

// IsAffine reports whether the last row is (0, …, 0, 1).
func (m *Matrix) IsAffine() bool {
	last := m.Rows - 1
	for c := 0; c < m.Cols-1; c++ {
		if m.At(last, c) != 0 {
			return false
		}
	}
	return m.At(last, m.Cols-1) == 1
}
