// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Settings holds various settings for estimating a group-sparse precision
// stack. Zero values of the fields mean default values.
type Settings struct {
	// Tol is the duality gap threshold under which the iteration is
	// declared converged and stopped. If it is zero or negative, no
	// convergence checking is performed and the solver runs for
	// MaxIterations sweeps.
	Tol float64

	// MaxIterations is the limit on the number of full sweeps over all
	// variables. If it is zero, it will be set to 10.
	MaxIterations int

	// PrecisionsInit optionally warm-starts the iteration from a
	// previously computed precision stack instead of the default diagonal
	// initialization. If it is not nil, it must hold one nVar×nVar matrix
	// per task. The matrices are copied, not aliased.
	PrecisionsInit []*mat.Dense

	// ReturnCosts records the objective value and the duality gap after
	// every sweep into Result.Costs.
	ReturnCosts bool

	// Debug enables expensive internal consistency checks. A violated
	// invariant panics with an InvariantViolation value. Debug is meant
	// for tracking down numerical problems and increases computation time
	// considerably.
	Debug bool

	// Logger receives per-sweep progress and numeric warnings. If it is
	// nil, nothing is logged.
	Logger logrus.FieldLogger
}

func defaultSettings(s *Settings) {
	if s.MaxIterations == 0 {
		s.MaxIterations = 10
	}
}

// Stats holds statistics about a solve.
type Stats struct {
	// Sweeps is the number of full sweeps over all variables.
	Sweeps int
	// NewtonFailures counts coordinate subproblems whose root-find ended
	// with a large residual, signaling bad conditioning. The offending
	// solutions are used regardless.
	NewtonFailures int
	// StartTime is an approximate time when the solve was started.
	StartTime time.Time
	// Runtime is an approximate duration of the solve.
	Runtime time.Duration
}

// Result holds the result of a solve.
type Result struct {
	// Precisions is the estimated precision stack, one matrix per task.
	// All matrices are symmetric positive definite and share a common
	// off-diagonal sparsity pattern.
	Precisions []*mat.Dense

	// Costs holds one (objective, gap) pair per sweep. It is filled only
	// if Settings.ReturnCosts is true.
	Costs []Cost

	// Converged indicates whether the duality gap went below
	// Settings.Tol before the sweep limit was reached. Running out of
	// sweeps is not an error; inspect Gap to judge the estimate.
	Converged bool

	// Gap is the duality gap after the final sweep. It is NaN if neither
	// a tolerance nor cost recording was requested.
	Gap float64

	// Stats holds statistics of the solve.
	Stats Stats
}

// Solve estimates the group-sparse precision stack for the given empirical
// covariances by block coordinate descent.
//
// covs and weights are the per-task covariance matrices and normalized
// sample weights as returned by EmpiricalCovariances. rho is the
// regularization parameter; with normalized covariances and weights,
// sensible values lie in [0, 1], and zero means no regularization. The
// final precision stack is returned even when the duality gap never reaches
// Settings.Tol.
func Solve(covs []*mat.Dense, weights []float64, rho float64, settings Settings) (Result, error) {
	stats := Stats{StartTime: time.Now()}

	if err := checkRho(rho); err != nil {
		return Result{}, err
	}
	nTasks := len(covs)
	if nTasks == 0 {
		return Result{}, errors.New("groupsparse: no covariance matrices provided")
	}
	if len(weights) != nTasks {
		return Result{}, errors.Errorf("groupsparse: got %d weights for %d tasks", len(weights), nTasks)
	}
	nVar, _ := covs[0].Dims()
	if nVar < 2 {
		return Result{}, errors.Errorf("groupsparse: at least 2 variables are required, got %d", nVar)
	}
	for k, cov := range covs {
		if r, c := cov.Dims(); r != nVar || c != nVar {
			return Result{}, errors.Errorf("groupsparse: covariance %d has shape %d×%d, want %d×%d", k, r, c, nVar, nVar)
		}
	}
	if settings.MaxIterations < 0 {
		return Result{}, errors.Errorf("groupsparse: negative iteration limit %d", settings.MaxIterations)
	}
	defaultSettings(&settings)

	omega, err := initPrecisions(covs, settings.PrecisionsInit)
	if err != nil {
		return Result{}, err
	}

	subs := make([]*submatrix, nTasks)
	for k := range subs {
		subs[k] = newSubmatrix(nVar)
	}
	ws := newWorkspace(nTasks, nVar)

	var (
		ce        *costEvaluator
		costs     []Cost
		converged bool
	)
	gap := math.NaN()
	trackCosts := settings.ReturnCosts || settings.Tol > 0
	if trackCosts {
		ce = newCostEvaluator(nTasks, nVar)
	}
	logger := settings.Logger

sweeps:
	for n := 0; n < settings.MaxIterations; n++ {
		if logger != nil {
			logger.WithField("sweep", n).Debug("groupsparse: starting sweep")
		}
		for p := 0; p < nVar; p++ {
			if p == 0 {
				for k := range subs {
					if err := subs[k].reset(omega[k]); err != nil {
						return Result{}, err
					}
				}
			} else {
				for k := range subs {
					subs[k].advance(omega[k], p)
				}
			}
			if settings.Debug {
				for k := range subs {
					assertSubmatrix(omega[k], subs[k], p)
					assertInverse(subs[k])
					assertSPD("submatrix", subs[k].sub)
				}
			}

			// Extract the off-diagonal entries of row p of every
			// precision matrix and the matching covariance entries.
			for k := range subs {
				yk, uk := ws.yRow(k), ws.uRow(k)
				for j := 0; j < p; j++ {
					yk[j] = omega[k].At(j, p)
					uk[j] = covs[k].At(j, p)
				}
				for j := p + 1; j < nVar; j++ {
					yk[j-1] = omega[k].At(j, p)
					uk[j-1] = covs[k].At(j, p)
				}
			}

			for m := 0; m < nVar-1; m++ {
				if solveCoordinate(covs, weights, subs, ws, p, m, rho) {
					stats.NewtonFailures++
					if logger != nil {
						logger.WithFields(logrus.Fields{
							"sweep":      n,
							"variable":   p,
							"coordinate": m,
						}).Warn("groupsparse: Newton-Raphson step did not converge, badly conditioned system")
					}
				}
			}

			// Write the solved row back into row and column p, and
			// recompute the diagonal entry. The diagonal formula keeps
			// the precision matrix positive definite.
			for k := range subs {
				yk := ws.yRow(k)
				for j := 0; j < p; j++ {
					omega[k].Set(j, p, yk[j])
					omega[k].Set(p, j, yk[j])
				}
				for j := p + 1; j < nVar; j++ {
					omega[k].Set(j, p, yk[j-1])
					omega[k].Set(p, j, yk[j-1])
				}
				omega[k].Set(p, p, 1/covs[k].At(p, p)+subs[k].quadForm(yk, ws.tmp))
				if settings.Debug {
					assertSPD("precision matrix", omega[k])
				}
			}
		}
		stats.Sweeps = n + 1

		if !trackCosts {
			continue
		}
		cost := ce.eval(covs, weights, rho, omega)
		gap = cost.Gap
		if settings.ReturnCosts {
			costs = append(costs, cost)
		}
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"sweep":     n,
				"objective": cost.Objective,
				"gap":       cost.Gap,
			}).Debug("groupsparse: sweep finished")
		}
		if settings.Tol > 0 && cost.Gap < settings.Tol {
			converged = true
			break sweeps
		}
	}

	stats.Runtime = time.Since(stats.StartTime)
	return Result{
		Precisions: omega,
		Costs:      costs,
		Converged:  converged,
		Gap:        gap,
		Stats:      stats,
	}, nil
}

// SolveTasks composes EmpiricalCovariances and Solve: it computes the
// empirical covariance stack of the tasks and estimates the group-sparse
// precision stack from it. The covariance stack is returned alongside the
// solver result.
func SolveTasks(tasks []*mat.Dense, rho float64, assumeCentered bool, settings Settings) ([]*mat.Dense, Result, error) {
	if err := checkRho(rho); err != nil {
		return nil, Result{}, err
	}
	covs, weights, err := EmpiricalCovariances(tasks, assumeCentered)
	if err != nil {
		return nil, Result{}, err
	}
	result, err := Solve(covs, weights, rho, settings)
	if err != nil {
		return nil, Result{}, err
	}
	return covs, result, nil
}

func checkRho(rho float64) error {
	if math.IsNaN(rho) || math.IsInf(rho, 0) || rho < 0 {
		return errors.Errorf("groupsparse: regularization parameter must be a finite non-negative number, got %v", rho)
	}
	return nil
}

// initPrecisions returns the initial precision stack: a copy of the
// warm-start matrices when given, otherwise the inverses of the diagonals
// of the covariance matrices. Diagonal covariance entries are signal
// energies and therefore far from zero.
func initPrecisions(covs []*mat.Dense, init []*mat.Dense) ([]*mat.Dense, error) {
	nVar, _ := covs[0].Dims()
	omega := make([]*mat.Dense, len(covs))
	if init != nil {
		if len(init) != len(covs) {
			return nil, errors.Errorf("groupsparse: warm start has %d matrices for %d tasks", len(init), len(covs))
		}
		for k, om := range init {
			if r, c := om.Dims(); r != nVar || c != nVar {
				return nil, errors.Errorf("groupsparse: warm-start matrix %d has shape %d×%d, want %d×%d", k, r, c, nVar, nVar)
			}
			omega[k] = mat.DenseCopyOf(om)
		}
		return omega, nil
	}
	for k := range covs {
		omega[k] = mat.NewDense(nVar, nVar, nil)
		for i := 0; i < nVar; i++ {
			omega[k].Set(i, i, 1/covs[k].At(i, i))
		}
	}
	return omega, nil
}
