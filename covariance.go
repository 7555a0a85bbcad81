// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EmpiricalCovariances computes the empirical covariance matrix of every
// task together with normalized per-task sample weights.
//
// Each task is a sample×variable matrix. The number of samples can vary from
// task to task but all tasks must have the same number of variables. If
// assumeCentered is true, the sample means are not subtracted before
// computing the covariances.
//
// The returned weights are the per-task sample counts normalized to sum to
// one. Every covariance matrix is explicitly symmetrized to cancel
// floating-point asymmetry. The input tasks are not modified.
func EmpiricalCovariances(tasks []*mat.Dense, assumeCentered bool) (covs []*mat.Dense, weights []float64, err error) {
	if len(tasks) == 0 {
		return nil, nil, errors.New("groupsparse: no tasks provided")
	}
	_, nVar := tasks[0].Dims()
	for k, task := range tasks {
		if task == nil {
			return nil, nil, errors.Errorf("groupsparse: task %d is nil", k)
		}
		if _, c := task.Dims(); c != nVar {
			return nil, nil, errors.Errorf("groupsparse: task %d has %d variables, task 0 has %d", k, c, nVar)
		}
	}
	if nVar < 2 {
		return nil, nil, errors.Errorf("groupsparse: at least 2 variables are required, got %d", nVar)
	}

	covs = make([]*mat.Dense, len(tasks))
	weights = make([]float64, len(tasks))
	for k, task := range tasks {
		nSamples, _ := task.Dims()
		if nSamples == 0 {
			return nil, nil, errors.Errorf("groupsparse: task %d has no samples", k)
		}
		covs[k] = empiricalCovariance(task, assumeCentered)
		symmetrize(covs[k])
		weights[k] = float64(nSamples)
	}
	floats.Scale(1/floats.Sum(weights), weights)
	return covs, weights, nil
}

// empiricalCovariance computes the maximum-likelihood covariance estimate
// X'*X/n of a single task, centering the columns first unless the caller
// asserts the data is already centered.
func empiricalCovariance(x *mat.Dense, assumeCentered bool) *mat.Dense {
	n, p := x.Dims()
	xc := mat.DenseCopyOf(x)
	if !assumeCentered {
		col := make([]float64, n)
		for j := 0; j < p; j++ {
			mat.Col(col, j, xc)
			floats.AddConst(-floats.Sum(col)/float64(n), col)
			xc.SetCol(j, col)
		}
	}
	cov := mat.NewDense(p, p, nil)
	cov.Mul(xc.T(), xc)
	cov.Scale(1/float64(n), cov)
	return cov
}

// symmetrize replaces m with (m+m')/2.
func symmetrize(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			v := 0.5 * (m.At(i, j) + m.At(j, i))
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
}

// RhoMax returns the smallest value of the regularization parameter for
// which the estimated precision matrices are fully diagonal. covs and
// weights are the empirical covariances and normalized sample weights as
// returned by EmpiricalCovariances.
func RhoMax(covs []*mat.Dense, weights []float64) float64 {
	n, _ := covs[0].Dims()
	var max float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			var ss float64
			for k, cov := range covs {
				v := weights[k] * cov.At(i, j)
				ss += v * v
			}
			max = math.Max(max, math.Sqrt(ss))
		}
	}
	return max
}

// LogLikelihood returns the Gaussian log-likelihood of the empirical
// covariance cov under the model precision matrix, omitting constant terms:
//
//	logdet(precision) - trace(cov*precision).
//
// It returns -Inf if precision is not positive definite.
func LogLikelihood(cov, precision *mat.Dense) float64 {
	n, _ := precision.Dims()
	sym := mat.NewSymDense(n, nil)
	copyUpperSym(sym, precision)
	var ch mat.Cholesky
	if !ch.Factorize(sym) {
		return math.Inf(-1)
	}
	var tr float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			tr += cov.At(i, j) * precision.At(i, j)
		}
	}
	return ch.LogDet() - tr
}

// copyUpperSym fills dst with the symmetric matrix whose upper triangle is
// the upper triangle of src.
func copyUpperSym(dst *mat.SymDense, src *mat.Dense) {
	n := dst.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, src.At(i, j))
		}
	}
}
