// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Cost is the value of the objective function and of the duality gap after
// one full sweep over all variables.
type Cost struct {
	// Objective is the penalized negative log-likelihood minimized by the
	// solver. Signs are inverted relative to the Honorio-Samaras paper so
	// that smaller is better.
	Objective float64
	// Gap is the difference between Objective and a feasible dual bound.
	// It is non-negative and vanishes at the optimum.
	Gap float64
}

// costEvaluator computes the primal cost and the duality gap of the current
// precision stack. All buffers are allocated at construction and reused
// across sweeps.
type costEvaluator struct {
	nVar int

	sym *mat.SymDense   // scratch for Cholesky factorizations
	inv *mat.SymDense   // inverse of one precision matrix
	a   []*mat.Dense    // dual matrices A(k), one per task
	ch  mat.Cholesky
}

func newCostEvaluator(nTasks, nVar int) *costEvaluator {
	a := make([]*mat.Dense, nTasks)
	for k := range a {
		a[k] = mat.NewDense(nVar, nVar, nil)
	}
	return &costEvaluator{
		nVar: nVar,
		sym:  mat.NewSymDense(nVar, nil),
		inv:  mat.NewSymDense(nVar, nil),
		a:    a,
	}
}

// eval returns the primal objective and the duality gap at omega. A
// non-positive-definite matrix encountered along the way yields an infinite
// objective or gap rather than an error; this does not happen on the
// iterates produced by the solver.
func (ce *costEvaluator) eval(covs []*mat.Dense, weights []float64, rho float64, omega []*mat.Dense) Cost {
	n := ce.nVar

	// Primal cost: negated sum of weighted log-likelihoods plus the group
	// penalty on off-diagonal entries.
	var ll float64
	for k, om := range omega {
		logdet := math.Inf(-1)
		copyUpperSym(ce.sym, om)
		if ce.ch.Factorize(ce.sym) {
			logdet = ce.ch.LogDet()
		}
		var tr float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				tr += om.At(i, j) * covs[k].At(i, j)
			}
		}
		ll += weights[k] * (logdet - tr)
	}
	var l12 float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			var ss float64
			for _, om := range omega {
				v := om.At(i, j)
				ss += v * v
			}
			l12 += math.Sqrt(ss)
		}
	}
	cost := -ll + rho*l12

	// Dual feasible point: A(k) = w_k (omega_k^-1 - cov_k) with every
	// off-diagonal group projected onto the l2 ball of radius rho and the
	// diagonal zeroed.
	for k, om := range omega {
		copyUpperSym(ce.sym, om)
		if !ce.ch.Factorize(ce.sym) {
			return Cost{Objective: cost, Gap: math.Inf(1)}
		}
		if err := ce.ch.InverseTo(ce.inv); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				return Cost{Objective: cost, Gap: math.Inf(1)}
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				ce.a[k].Set(i, j, weights[k]*(ce.inv.At(i, j)-covs[k].At(i, j)))
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				for k := range ce.a {
					ce.a[k].Set(i, i, 0)
				}
				continue
			}
			var ss float64
			for _, ak := range ce.a {
				v := ak.At(i, j)
				ss += v * v
			}
			norm := math.Sqrt(ss)
			if norm > rho {
				for _, ak := range ce.a {
					ak.Set(i, j, ak.At(i, j)*rho/norm)
				}
			}
		}
	}
	var dual float64
	for k := range ce.a {
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				ce.sym.SetSym(i, j, covs[k].At(i, j)+ce.a[k].At(i, j)/weights[k])
			}
		}
		logdet := math.Inf(-1)
		if ce.ch.Factorize(ce.sym) {
			logdet = ce.ch.LogDet()
		}
		dual += weights[k] * (float64(n) + logdet)
	}

	return Cost{Objective: cost, Gap: cost - dual}
}
