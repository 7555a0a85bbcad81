// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// InvariantViolation is the panic payload of the internal consistency checks
// enabled by Settings.Debug. It never escapes a solve with Debug disabled.
type InvariantViolation string

func (v InvariantViolation) Error() string { return string(v) }

// assertSPD panics if a is not symmetric positive definite.
func assertSPD(what string, a *mat.Dense) {
	n, _ := a.Dims()
	sym := mat.NewSymDense(n, nil)
	copyUpperSym(sym, a)
	var ch mat.Cholesky
	if !ch.Factorize(sym) {
		panic(InvariantViolation(fmt.Sprintf("groupsparse: %s is not positive definite", what)))
	}
}

// assertSubmatrix panics if s.sub differs from the matrix obtained by
// removing row and column p from full.
func assertSubmatrix(full *mat.Dense, s *submatrix, p int) {
	const tol = 1e-7
	for i := 0; i < s.dim; i++ {
		fi := i
		if i >= p {
			fi++
		}
		for j := 0; j < s.dim; j++ {
			fj := j
			if j >= p {
				fj++
			}
			if math.Abs(s.sub.At(i, j)-full.At(fi, fj)) > tol {
				panic(InvariantViolation(fmt.Sprintf(
					"groupsparse: submatrix excluding %d diverged at (%d,%d)", p, i, j)))
			}
		}
	}
}

// assertInverse panics if s.inv is not the inverse of s.sub within a small
// tolerance.
func assertInverse(s *submatrix) {
	const tol = 1e-8
	var prod mat.Dense
	prod.Mul(s.inv, s.sub)
	for i := 0; i < s.dim; i++ {
		for j := 0; j < s.dim; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(prod.At(i, j)-want) > tol {
				panic(InvariantViolation(fmt.Sprintf(
					"groupsparse: submatrix inverse diverged at (%d,%d)", i, j)))
			}
		}
	}
}
