// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/groupsparse/internal/testmat"
)

// At omega = cov^-1 and rho = 0 the primal and dual costs coincide: the gap
// certificate vanishes at the unpenalized optimum.
func TestCostVanishingGapAtOptimum(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const n = 4
	cov := testmat.RandSPD(n, rnd)
	var omega mat.Dense
	require.NoError(t, omega.Inverse(cov))

	ce := newCostEvaluator(1, n)
	cost := ce.eval([]*mat.Dense{cov}, []float64{1}, 0, []*mat.Dense{&omega})

	sym := mat.NewSymDense(n, nil)
	copyUpperSym(sym, cov)
	var ch mat.Cholesky
	require.True(t, ch.Factorize(sym))
	wantObjective := float64(n) + ch.LogDet()

	assert.InDelta(t, wantObjective, cost.Objective, 1e-10)
	assert.InDelta(t, 0, cost.Gap, 1e-8)
}

// A diagonal precision stack pays no group penalty, so the objective must
// not depend on rho.
func TestCostDiagonalPenaltyFree(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	const n = 3
	covs := []*mat.Dense{testmat.RandSPD(n, rnd), testmat.RandSPD(n, rnd)}
	weights := []float64{0.3, 0.7}
	omega := []*mat.Dense{
		testmat.DiagDense([]float64{1, 2, 3}),
		testmat.DiagDense([]float64{2, 1, 2}),
	}

	ce := newCostEvaluator(2, n)
	c0 := ce.eval(covs, weights, 0, omega)
	c1 := ce.eval(covs, weights, 1, omega)
	assert.Equal(t, c0.Objective, c1.Objective)
}

// With off-diagonal structure the penalty term grows linearly in rho.
func TestCostPenaltyLinearInRho(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	const n = 4
	covs := []*mat.Dense{testmat.RandSPD(n, rnd)}
	weights := []float64{1}
	var omega mat.Dense
	require.NoError(t, omega.Inverse(covs[0]))
	stack := []*mat.Dense{&omega}

	var l12 float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				l12 += math.Abs(omega.At(i, j))
			}
		}
	}

	ce := newCostEvaluator(1, n)
	c0 := ce.eval(covs, weights, 0, stack)
	c2 := ce.eval(covs, weights, 2, stack)
	assert.InDelta(t, 2*l12, c2.Objective-c0.Objective, 1e-10)
}

func TestLogLikelihoodIdentity(t *testing.T) {
	const n = 3
	eye := testmat.DiagDense([]float64{1, 1, 1})
	assert.InDelta(t, -float64(n), LogLikelihood(eye, eye), 1e-15)

	// A non-positive-definite precision matrix has no likelihood.
	bad := testmat.DiagDense([]float64{1, -1, 1})
	assert.True(t, math.IsInf(LogLikelihood(eye, bad), -1))
}
