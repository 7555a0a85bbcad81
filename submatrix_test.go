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

// excluded returns full with row and column p removed.
func excluded(full *mat.Dense, p int) *mat.Dense {
	n, _ := full.Dims()
	sub := mat.NewDense(n-1, n-1, nil)
	for i := 0; i < n-1; i++ {
		fi := i
		if i >= p {
			fi++
		}
		for j := 0; j < n-1; j++ {
			fj := j
			if j >= p {
				fj++
			}
			sub.Set(i, j, full.At(fi, fj))
		}
	}
	return sub
}

func maxDiff(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	var max float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			max = math.Max(max, math.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return max
}

// The incremental rank-one updates must reproduce a from-scratch slice and
// inversion at every position of the excluded index.
func TestSubmatrixAdvance(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, n := range []int{2, 3, 4, 5, 10, 20, 50} {
		full := testmat.RandSPD(n, rnd)
		s := newSubmatrix(n)
		if err := s.reset(full); err != nil {
			t.Fatalf("n=%v: reset failed: %v", n, err)
		}
		for p := 0; p < n; p++ {
			if p > 0 {
				s.advance(full, p)
			}
			want := excluded(full, p)
			if d := maxDiff(s.sub, want); d > 1e-10 {
				t.Errorf("n=%v p=%v: submatrix differs from direct slicing by %v", n, p, d)
			}
			var wantInv mat.Dense
			if err := wantInv.Inverse(want); err != nil {
				t.Fatalf("n=%v p=%v: direct inversion failed: %v", n, p, err)
			}
			if d := maxDiff(s.inv, &wantInv); d > 1e-10 {
				t.Errorf("n=%v p=%v: inverse differs from direct inversion by %v", n, p, d)
			}
		}
	}
}

// The updates must track a full matrix whose reinserted row and column were
// rewritten between advances, which is what the sweep does.
func TestSubmatrixAdvanceAfterRowUpdate(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	const n = 8
	full := testmat.RandSPD(n, rnd)
	s := newSubmatrix(n)
	if err := s.reset(full); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	for p := 1; p < n; p++ {
		// Shrink the off-diagonal entries of row and column p-1,
		// keeping the matrix positive definite.
		for j := 0; j < n; j++ {
			if j == p-1 {
				continue
			}
			v := 0.9 * full.At(p-1, j)
			full.Set(p-1, j, v)
			full.Set(j, p-1, v)
		}
		s.advance(full, p)

		want := excluded(full, p)
		if d := maxDiff(s.sub, want); d > 1e-10 {
			t.Errorf("p=%v: submatrix differs from direct slicing by %v", p, d)
		}
		var wantInv mat.Dense
		if err := wantInv.Inverse(want); err != nil {
			t.Fatalf("p=%v: direct inversion failed: %v", p, err)
		}
		if d := maxDiff(s.inv, &wantInv); d > 1e-10 {
			t.Errorf("p=%v: inverse differs from direct inversion by %v", p, d)
		}
	}
}

func TestSubmatrixQuadForm(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	const n = 6
	full := testmat.RandSPD(n, rnd)
	s := newSubmatrix(n)
	if err := s.reset(full); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	y := make([]float64, n-1)
	for i := range y {
		y[i] = rnd.NormFloat64()
	}
	tmp := make([]float64, n-1)
	got := s.quadForm(y, tmp)

	var want float64
	for i := 0; i < n-1; i++ {
		for j := 0; j < n-1; j++ {
			want += y[i] * s.inv.At(i, j) * y[j]
		}
	}
	if math.Abs(got-want) > 1e-12*math.Abs(want) {
		t.Errorf("unexpected quadratic form: got %v, want %v", got, want)
	}
}
