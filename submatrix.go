// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// submatrix maintains, for one task, the precision matrix with one row and
// column excluded, together with its inverse. The excluded index is reset to
// 0 at the start of every sweep and then advanced one position at a time.
type submatrix struct {
	dim int // one less than the full matrix dimension

	sub *mat.Dense
	inv *mat.Dense

	newRow, newCol []float64
	delta, scale   []float64
	gw             []float64
}

func newSubmatrix(nVar int) *submatrix {
	d := nVar - 1
	return &submatrix{
		dim:    d,
		sub:    mat.NewDense(d, d, nil),
		inv:    mat.NewDense(d, d, nil),
		newRow: make([]float64, d),
		newCol: make([]float64, d),
		delta:  make([]float64, d),
		scale:  make([]float64, d),
		gw:     make([]float64, d),
	}
}

// reset extracts the submatrix of full with row and column 0 removed and
// inverts it from scratch. The full inversion is cubic but happens only once
// per sweep, and deliberately discards any numerical drift accumulated by
// the rank-one updates of the previous sweep.
func (s *submatrix) reset(full *mat.Dense) error {
	n, _ := full.Dims()
	s.sub.Copy(full.Slice(1, n, 1, n))
	err := s.inv.Inverse(s.sub)
	if err != nil {
		// A poorly conditioned but non-singular submatrix is usable.
		if _, ok := err.(mat.Condition); !ok {
			return errors.Wrap(err, "groupsparse: precision submatrix is singular")
		}
	}
	return nil
}

// advance moves the excluded index of full from p-1 to p. Relative to the
// current submatrix exactly one row and one column change: row and column
// p-1 of full are reinserted in place of row and column p. The submatrix
// and its inverse are updated with two sequential rank-one Sherman-Morrison
// corrections, at quadratic instead of cubic cost.
func (s *submatrix) advance(full *mat.Dense, p int) {
	n := p - 1
	d := s.dim

	// Row and column n of the submatrix after the exclusion moves to p.
	for j := 0; j <= n; j++ {
		s.newRow[j] = full.At(n, j)
		s.newCol[j] = full.At(j, n)
	}
	for j := n + 1; j < d; j++ {
		s.newRow[j] = full.At(n, j+1)
		s.newCol[j] = full.At(j+1, n)
	}

	bi := blas64.Implementation()
	raw := s.inv.RawMatrix()

	// Replace row n of the submatrix.
	for j := 0; j < d; j++ {
		s.delta[j] = s.newRow[j] - s.sub.At(n, j)
		s.scale[j] = s.inv.At(j, n)
	}
	floats.Scale(1/(1+floats.Dot(s.delta, s.scale)), s.scale)
	bi.Dgemv(blas.Trans, d, d, 1, raw.Data, raw.Stride, s.delta, 1, 0, s.gw, 1)
	bi.Dger(d, d, -1, s.scale, 1, s.gw, 1, raw.Data, raw.Stride)
	s.sub.SetRow(n, s.newRow)

	// Replace column n of the submatrix.
	for j := 0; j < d; j++ {
		s.delta[j] = s.newCol[j] - s.sub.At(j, n)
		s.scale[j] = s.inv.At(n, j)
	}
	floats.Scale(1/(1+floats.Dot(s.scale, s.delta)), s.scale)
	bi.Dgemv(blas.NoTrans, d, d, 1, raw.Data, raw.Stride, s.delta, 1, 0, s.gw, 1)
	bi.Dger(d, d, -1, s.gw, 1, s.scale, 1, raw.Data, raw.Stride)
	s.sub.SetCol(n, s.newCol)
}

// quadForm returns y'*inv*y, using tmp as scratch of length dim.
func (s *submatrix) quadForm(y, tmp []float64) float64 {
	raw := s.inv.RawMatrix()
	bi := blas64.Implementation()
	bi.Dgemv(blas.NoTrans, s.dim, s.dim, 1, raw.Data, raw.Stride, y, 1, 0, tmp, 1)
	return floats.Dot(y, tmp)
}
