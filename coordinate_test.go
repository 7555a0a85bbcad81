// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/groupsparse/internal/testmat"
)

func TestQuadTrustRegion(t *testing.T) {
	// With a single task, c=2, q=1 and rho=1 the root of
	//  g(alpha) = 1 - 4/(1+alpha)²
	// is alpha=1.
	cc := []float64{4}
	q := []float64{1}
	if g := quadTrustRegion(1, 1, cc, q); math.Abs(g) > 1e-15 {
		t.Errorf("g(1) = %v, want 0", g)
	}
	if g := quadTrustRegion(0, 1, cc, q); g >= 0 {
		t.Errorf("g(0) = %v, want negative", g)
	}
	// The derivative 8/(1+alpha)³ at alpha=1 is 1.
	if d := quadTrustRegionDeriv(1, cc, q); math.Abs(d-1) > 1e-15 {
		t.Errorf("g'(1) = %v, want 1", d)
	}
}

// coordProblem builds a single-task coordinate subproblem at excluded index
// p=0 with the workspace extracted the way the sweep does it.
func coordProblem(t *testing.T, nVar int, rnd *rand.Rand) (covs []*mat.Dense, weights []float64, subs []*submatrix, ws *workspace) {
	t.Helper()
	cov := testmat.RandSPD(nVar, rnd)
	omega := testmat.DiagDense(diagInverse(cov))
	s := newSubmatrix(nVar)
	if err := s.reset(omega); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	ws = newWorkspace(1, nVar)
	for j := 1; j < nVar; j++ {
		ws.yRow(0)[j-1] = omega.At(j, 0)
		ws.uRow(0)[j-1] = cov.At(j, 0)
	}
	return []*mat.Dense{cov}, []float64{1}, []*submatrix{s}, ws
}

func diagInverse(cov *mat.Dense) []float64 {
	n, _ := cov.Dims()
	d := make([]float64, n)
	for i := range d {
		d[i] = 1 / cov.At(i, i)
	}
	return d
}

func TestSolveCoordinateZeroTrigger(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	covs, weights, subs, ws := coordProblem(t, 5, rnd)

	// At the diagonal initialization the gradient vector for coordinate m
	// is -u[m], so any rho at least |u[m]| must produce an exact zero.
	for m := 0; m < 4; m++ {
		rho := math.Abs(ws.uRow(0)[m]) + 1e-12
		ill := solveCoordinate(covs, weights, subs, ws, 0, m, rho)
		if ill {
			t.Errorf("m=%v: unexpected ill-conditioning report", m)
		}
		if x := ws.yRow(0)[m]; x != 0 {
			t.Errorf("m=%v: got %v, want exact zero", m, x)
		}
	}
}

func TestSolveCoordinateBoundary(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	covs, weights, subs, ws := coordProblem(t, 5, rnd)

	// Below the zero-trigger threshold the solution must lie on the
	// boundary of the trust region: sum_k (c_k/(1+alpha q_k))² = rho².
	for m := 0; m < 4; m++ {
		c := -ws.uRow(0)[m] // y is zero, so the gradient reduces to -u[m]
		rho := 0.5 * math.Abs(c)
		ill := solveCoordinate(covs, weights, subs, ws, 0, m, rho)
		if ill {
			t.Errorf("m=%v: unexpected ill-conditioning report", m)
		}
		x := ws.yRow(0)[m]
		if x == 0 {
			t.Fatalf("m=%v: unexpected zero solution", m)
		}
		q := covs[0].At(0, 0) * subs[0].inv.At(m, m)
		// Recover alpha from x = alpha c/(1+alpha q).
		alpha := x / (c - x*q)
		if alpha < 0 {
			t.Errorf("m=%v: negative root %v", m, alpha)
		}
		onBoundary := math.Abs(c / (1 + alpha*q))
		if math.Abs(onBoundary-rho) > 1e-4*rho {
			t.Errorf("m=%v: solution off the trust region boundary: |c|/(1+alpha q) = %v, rho = %v",
				m, onBoundary, rho)
		}
		ws.yRow(0)[m] = 0 // restore for the next coordinate
	}
}
