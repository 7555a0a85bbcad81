// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupsparse_test

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/groupsparse"
)

func ExampleSolveTasks() {
	// Two tasks observing the same four variables, with different sample
	// counts.
	rnd := rand.New(rand.NewSource(1))
	tasks := make([]*mat.Dense, 2)
	for k, nSamples := range []int{150, 100} {
		task := mat.NewDense(nSamples, 4, nil)
		for i := 0; i < nSamples; i++ {
			// Variables 0 and 1 are correlated, 2 and 3 are
			// independent.
			v := rnd.NormFloat64()
			task.Set(i, 0, v+0.3*rnd.NormFloat64())
			task.Set(i, 1, v+0.3*rnd.NormFloat64())
			task.Set(i, 2, rnd.NormFloat64())
			task.Set(i, 3, rnd.NormFloat64())
		}
		tasks[k] = task
	}

	covs, result, err := groupsparse.SolveTasks(tasks, 0.3, false, groupsparse.Settings{
		Tol:           1e-4,
		MaxIterations: 20,
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("covariance matrices: %d\n", len(covs))
	fmt.Printf("precision matrices: %d\n", len(result.Precisions))
	r, c := result.Precisions[0].Dims()
	fmt.Printf("matrix shape: %d×%d\n", r, c)

	// Output:
	// covariance matrices: 2
	// precision matrices: 2
	// matrix shape: 4×4
}
