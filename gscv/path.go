// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gscv

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/groupsparse"
)

// Path fits the group-sparse model on the training tasks once per
// regularization value and scores every fit on the held-out test tasks.
//
// The values of rhos are visited from largest to smallest, each fit
// warm-started with the solution of the previous one: at a high penalty the
// solution is close to diagonal and cheap to find, and nearby penalties have
// nearby solutions. tol is the duality gap threshold of every fit; zero or
// negative disables convergence checking. The returned scores are weighted
// test log-likelihoods, one per entry of rhos, in the input order; larger is
// better.
func Path(train, test []*mat.Dense, rhos []float64, tol float64, maxIter int, assumeCentered bool) ([]float64, error) {
	if len(rhos) == 0 {
		return nil, errors.New("gscv: no regularization values provided")
	}
	if len(train) != len(test) {
		return nil, errors.Errorf("gscv: got %d training tasks and %d test tasks", len(train), len(test))
	}
	trainCovs, weights, err := groupsparse.EmpiricalCovariances(train, assumeCentered)
	if err != nil {
		return nil, err
	}
	testCovs, _, err := groupsparse.EmpiricalCovariances(test, assumeCentered)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(rhos))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return rhos[order[i]] > rhos[order[j]] })

	scores := make([]float64, len(rhos))
	var init []*mat.Dense
	for _, i := range order {
		result, err := groupsparse.Solve(trainCovs, weights, rhos[i], groupsparse.Settings{
			Tol:            tol,
			MaxIterations:  maxIter,
			PrecisionsInit: init,
		})
		if err != nil {
			return nil, err
		}
		var score float64
		for k, prec := range result.Precisions {
			score += weights[k] * groupsparse.LogLikelihood(testCovs[k], prec)
		}
		scores[i] = score
		init = result.Precisions
	}
	return scores, nil
}
