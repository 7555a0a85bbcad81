// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testmat generates random matrices for tests: symmetric
// positive-definite covariance-like matrices and sample matrices drawn from
// simple linear models of them.
package testmat

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// RandSPD returns a random n×n symmetric positive-definite matrix with a
// dominant diagonal, so that it is well conditioned.
func RandSPD(n int, rnd *rand.Rand) *mat.Dense {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := rnd.Float64() - 0.5
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
	}
	var spd mat.Dense
	spd.Mul(a, a.T())
	for i := 0; i < n; i++ {
		spd.Set(i, i, spd.At(i, i)+float64(n))
	}
	return &spd
}

// RandSamples returns an nSamples×nVar matrix whose rows are Gaussian
// samples with covariance cov, built from the Cholesky factor of cov.
func RandSamples(nSamples int, cov *mat.Dense, rnd *rand.Rand) *mat.Dense {
	n, _ := cov.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, cov.At(i, j))
		}
	}
	var ch mat.Cholesky
	if !ch.Factorize(sym) {
		panic("testmat: covariance not positive definite")
	}
	var l mat.TriDense
	ch.LTo(&l)

	z := mat.NewDense(nSamples, n, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < n; j++ {
			z.Set(i, j, rnd.NormFloat64())
		}
	}
	var x mat.Dense
	x.Mul(z, l.T())
	return &x
}

// DiagDense returns an n×n diagonal matrix with the given diagonal values.
func DiagDense(diag []float64) *mat.Dense {
	n := len(diag)
	d := mat.NewDense(n, n, nil)
	for i, v := range diag {
		d.Set(i, i, v)
	}
	return d
}
