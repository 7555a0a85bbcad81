// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// Budget of the Newton-Raphson root-find of a single coordinate
	// subproblem. The tolerance applies to the step size. It has little
	// effect on numerical stability but does affect the final duality gap.
	newtonMaxIter = 50
	newtonTol     = 1.5e-6

	// A root-find whose residual exceeds this after the full budget
	// signals an ill-conditioned subproblem. The result is still used.
	newtonResidualMax = 0.1
)

// workspace holds every buffer needed by one coordinate descent sweep. It is
// allocated once per solve and mutated in place; the inner loops must not
// allocate. Matrices of shape nTasks×(nVar-1) and nTasks×(nVar-2) are stored
// row-major in flat slices.
type workspace struct {
	ld int // nVar - 1, row stride of y and u

	y, u     []float64 // nTasks × ld
	y1, h12  []float64 // nTasks × (ld-1)
	c, q, cc []float64 // nTasks
	tmp      []float64 // ld
}

func newWorkspace(nTasks, nVar int) *workspace {
	ld := nVar - 1
	return &workspace{
		ld:  ld,
		y:   make([]float64, nTasks*ld),
		u:   make([]float64, nTasks*ld),
		y1:  make([]float64, nTasks*(ld-1)),
		h12: make([]float64, nTasks*(ld-1)),
		c:   make([]float64, nTasks),
		q:   make([]float64, nTasks),
		cc:  make([]float64, nTasks),
		tmp: make([]float64, ld),
	}
}

func (ws *workspace) yRow(k int) []float64 { return ws.y[k*ws.ld : (k+1)*ws.ld] }
func (ws *workspace) uRow(k int) []float64 { return ws.u[k*ws.ld : (k+1)*ws.ld] }

// solveCoordinate solves the joint group-lasso subproblem for coordinate m
// of the row currently excluded at index p, across all tasks at once, and
// writes the result into column m of ws.y. It reports whether the root-find
// failed to reach a small residual, signaling an ill-conditioned subproblem.
//
// The subproblem minimizer is either zero in every task (when the l2 norm of
// the gradient vector c is at most rho) or
//
//	x_k = alpha c_k / (1 + alpha q_k),
//
// where alpha >= 0 is the unique root of
//
//	g(alpha) = rho² - Σ_k c_k² / (1 + alpha q_k)².
func solveCoordinate(covs []*mat.Dense, weights []float64, subs []*submatrix, ws *workspace, p, m int, rho float64) (illConditioned bool) {
	ld := ws.ld
	for k := range subs {
		inv := subs[k].inv
		yk := ws.yRow(k)
		y1 := ws.y1[k*(ld-1) : (k+1)*(ld-1)]
		h12 := ws.h12[k*(ld-1) : (k+1)*(ld-1)]
		for j := 0; j < m; j++ {
			h12[j] = inv.At(j, m)
			y1[j] = yk[j]
		}
		for j := m + 1; j < ld; j++ {
			h12[j-1] = inv.At(j, m)
			y1[j-1] = yk[j]
		}
		vpp := covs[k].At(p, p)
		ws.c[k] = -weights[k] * (vpp*floats.Dot(h12, y1) + ws.uRow(k)[m])
	}

	if floats.Norm(ws.c, 2) <= rho {
		for k := range subs {
			ws.yRow(k)[m] = 0
		}
		return false
	}

	for k := range subs {
		ws.q[k] = weights[k] * covs[k].At(p, p) * subs[k].inv.At(m, m)
		ws.cc[k] = ws.c[k] * ws.c[k]
	}

	rho2 := rho * rho
	var alpha float64
	for i := 0; i < newtonMaxIter; i++ {
		step := quadTrustRegion(alpha, rho2, ws.cc, ws.q) / quadTrustRegionDeriv(alpha, ws.cc, ws.q)
		alpha -= step
		if math.Abs(step) < newtonTol {
			break
		}
	}
	illConditioned = math.Abs(quadTrustRegion(alpha, rho2, ws.cc, ws.q)) > newtonResidualMax

	for k := range subs {
		ws.yRow(k)[m] = alpha * ws.c[k] / (1 + alpha*ws.q[k])
	}
	return illConditioned
}

// quadTrustRegion is the function whose root in alpha the Newton-Raphson
// step drives to zero.
func quadTrustRegion(alpha, rho2 float64, cc, q []float64) float64 {
	v := rho2
	for k, cck := range cc {
		r := 1 + alpha*q[k]
		v -= cck / (r * r)
	}
	return v
}

// quadTrustRegionDeriv is the derivative of quadTrustRegion with respect to
// alpha.
func quadTrustRegionDeriv(alpha float64, cc, q []float64) float64 {
	var v float64
	for k, cck := range cc {
		r := 1 + alpha*q[k]
		v += 2 * cck * q[k] / (r * r * r)
	}
	return v
}
