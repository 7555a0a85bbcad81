// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package groupsparse estimates sparse precision (inverse covariance)
// matrices for several related datasets jointly, constraining all estimated
// matrices to share a common sparsity pattern.
//
// Each dataset ("task") is a matrix whose rows are independent samples of
// the same set of variables. The estimator minimizes a penalized negative
// log-likelihood over the stack of per-task precision matrices, with an
// l2-over-tasks group penalty on every off-diagonal entry so that an entry
// is zero either in all tasks or in none. The algorithm is the block
// coordinate descent of
//
//	Jean Honorio and Dimitris Samaras. "Simultaneous and Group-Sparse
//	Multi-Task Learning of Gaussian Graphical Models". arXiv:1207.4255.
//
// Running time is linear in the number of sweeps and tasks, and cubic in
// the number of variables.
package groupsparse
