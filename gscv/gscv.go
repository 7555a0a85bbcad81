// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gscv provides model selection around the groupsparse solver: a
// warm-started regularization path, an estimator object with optional result
// caching, and cross-validated selection of the regularization parameter.
package gscv

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/groupsparse"
)

// Estimator estimates a group-sparse precision stack at a fixed
// regularization value. Fit populates the exported result fields.
type Estimator struct {
	// Rho is the regularization parameter.
	Rho float64
	// Tol is the duality gap threshold declaring convergence. Zero or
	// negative disables convergence checking.
	Tol float64
	// MaxIter limits the number of sweeps. Zero means the solver default.
	MaxIter int
	// AssumeCentered avoids re-centering the task samples.
	AssumeCentered bool
	// ReturnCosts records the per-sweep cost trace into Costs.
	ReturnCosts bool
	// Cache memoizes whole fits on their argument tuple. A nil Cache
	// disables caching; each Estimator carries its own value, there is no
	// shared default.
	Cache Cache
	// Logger receives fit progress. Nil disables logging.
	Logger logrus.FieldLogger

	// Covariances and Precisions are the empirical covariance stack and
	// the estimated precision stack, set by Fit.
	Covariances []*mat.Dense
	Precisions  []*mat.Dense
	// Costs is the per-sweep cost trace, set by Fit when ReturnCosts is
	// true.
	Costs []groupsparse.Cost
	// Converged reports whether the last Fit reached Tol.
	Converged bool
}

// Fit computes the empirical covariances of the tasks and estimates the
// precision stack. When a Cache is configured and holds a result for this
// exact input, the solve is skipped entirely.
func (e *Estimator) Fit(tasks []*mat.Dense) error {
	if e.Logger != nil {
		e.Logger.WithField("rho", e.Rho).Info("gscv: computing precision matrices")
	}

	var key string
	if e.Cache != nil {
		key = fitKey(tasks, e.Rho, e.Tol, e.MaxIter, e.AssumeCentered, e.ReturnCosts)
		if hit, ok := e.Cache.Get(key); ok {
			e.setResult(hit)
			return nil
		}
	}

	covs, result, err := groupsparse.SolveTasks(tasks, e.Rho, e.AssumeCentered, groupsparse.Settings{
		Tol:           e.Tol,
		MaxIterations: e.MaxIter,
		ReturnCosts:   e.ReturnCosts,
		Logger:        e.Logger,
	})
	if err != nil {
		return err
	}
	fr := FitResult{Covariances: covs, Result: result}
	if e.Cache != nil {
		e.Cache.Set(key, fr)
	}
	e.setResult(fr)
	return nil
}

func (e *Estimator) setResult(fr FitResult) {
	e.Covariances = fr.Covariances
	e.Precisions = fr.Result.Precisions
	e.Costs = fr.Result.Costs
	e.Converged = fr.Result.Converged
}

// CV selects the regularization parameter by k-fold cross-validation and
// fits the model on the full data at the selected value.
type CV struct {
	// NumRhos is the size of the logarithmic grid of candidate values,
	// spanning [RhoMax/100, RhoMax]. If zero, 4 is used.
	NumRhos int
	// Rhos optionally fixes the candidate values instead of the grid.
	Rhos []float64
	// Folds is the number of cross-validation folds. If zero, 3 is used.
	Folds int
	// Tol is the duality gap threshold of every solver call, both during
	// fold scoring and in the final full-data fit. Zero or negative
	// disables convergence checking.
	Tol float64
	// MaxIter limits the sweeps of every solver call.
	MaxIter int
	// AssumeCentered avoids re-centering the task samples.
	AssumeCentered bool
	// Workers bounds the number of folds scored concurrently. If zero,
	// folds are scored sequentially. Only this selection layer runs
	// solver invocations in parallel; every single solve is sequential.
	Workers int
	// Logger receives selection progress. Nil disables logging.
	Logger logrus.FieldLogger

	// Rho is the selected regularization value, set by Fit.
	Rho float64
	// CVRhos and CVScores are the explored grid and the per-fold scores,
	// with CVScores[i][f] the score of CVRhos[i] on fold f. Set by Fit.
	CVRhos   []float64
	CVScores [][]float64

	// Covariances and Precisions are the full-data fit at Rho, set by
	// Fit.
	Covariances []*mat.Dense
	Precisions  []*mat.Dense
}

// Fit explores the candidate grid, scores every fold with a warm-started
// regularization path, selects the value with the best mean test
// log-likelihood and refits on all samples.
func (cv *CV) Fit(tasks []*mat.Dense) error {
	folds := cv.Folds
	if folds == 0 {
		folds = 3
	}
	if folds < 2 {
		return errors.Errorf("gscv: need at least 2 folds, got %d", folds)
	}
	for k, task := range tasks {
		if r, _ := task.Dims(); r < folds {
			return errors.Errorf("gscv: task %d has %d samples for %d folds", k, r, folds)
		}
	}

	covs, weights, err := groupsparse.EmpiricalCovariances(tasks, cv.AssumeCentered)
	if err != nil {
		return err
	}

	rhos := cv.Rhos
	if len(rhos) == 0 {
		numRhos := cv.NumRhos
		if numRhos == 0 {
			numRhos = 4
		}
		rhoMax := groupsparse.RhoMax(covs, weights)
		if rhoMax == 0 {
			// All empirical covariances are diagonal already.
			rhos = []float64{0}
		} else {
			rhos = logspace(1e-2*rhoMax, rhoMax, numRhos)
		}
	}

	scores := make([][]float64, len(rhos))
	for i := range scores {
		scores[i] = make([]float64, folds)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, maxInt(cv.Workers, 1))
	for f := 0; f < folds; f++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(f int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			train, test := splitFold(tasks, folds, f)
			foldScores, err := Path(train, test, rhos, cv.Tol, cv.MaxIter, cv.AssumeCentered)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = errors.Wrapf(err, "gscv: scoring fold %d", f)
				}
				return
			}
			for i, s := range foldScores {
				scores[i][f] = s
			}
		}(f)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	best := 0
	bestMean := math.Inf(-1)
	for i := range rhos {
		var mean float64
		for _, s := range scores[i] {
			mean += s
		}
		mean /= float64(folds)
		if mean > bestMean {
			bestMean = mean
			best = i
		}
	}
	cv.Rho = rhos[best]
	cv.CVRhos = rhos
	cv.CVScores = scores
	if cv.Logger != nil {
		cv.Logger.WithFields(logrus.Fields{
			"rho":   cv.Rho,
			"score": bestMean,
		}).Info("gscv: selected regularization parameter")
	}

	result, err := groupsparse.Solve(covs, weights, cv.Rho, groupsparse.Settings{
		Tol:           cv.Tol,
		MaxIterations: cv.MaxIter,
		Logger:        cv.Logger,
	})
	if err != nil {
		return err
	}
	cv.Covariances = covs
	cv.Precisions = result.Precisions
	return nil
}

// splitFold partitions every task's rows into a training and a test matrix,
// with fold f of a contiguous k-fold split held out.
func splitFold(tasks []*mat.Dense, folds, f int) (train, test []*mat.Dense) {
	train = make([]*mat.Dense, len(tasks))
	test = make([]*mat.Dense, len(tasks))
	for k, task := range tasks {
		n, c := task.Dims()
		lo := f * n / folds
		hi := (f + 1) * n / folds
		test[k] = mat.DenseCopyOf(task.Slice(lo, hi, 0, c))
		tr := mat.NewDense(n-(hi-lo), c, nil)
		for i := 0; i < lo; i++ {
			tr.SetRow(i, task.RawRowView(i))
		}
		for i := hi; i < n; i++ {
			tr.SetRow(lo+i-hi, task.RawRowView(i))
		}
		train[k] = tr
	}
	return train, test
}

func logspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{hi}
	}
	v := make([]float64, n)
	llo, lhi := math.Log10(lo), math.Log10(hi)
	for i := range v {
		v[i] = math.Pow(10, llo+(lhi-llo)*float64(i)/float64(n-1))
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
