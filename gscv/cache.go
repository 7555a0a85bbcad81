// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gscv

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/groupsparse"
)

// FitResult bundles everything a fit produces, so that a cache hit can
// restore the estimator attributes without recomputation.
type FitResult struct {
	Covariances []*mat.Dense
	Result      groupsparse.Result
}

// Cache memoizes solver calls. The solver is a pure function of its
// arguments, so results can be keyed on the full argument tuple.
type Cache interface {
	Get(key string) (FitResult, bool)
	Set(key string, r FitResult)
}

// NopCache is a Cache that stores nothing.
type NopCache struct{}

func (NopCache) Get(string) (FitResult, bool) { return FitResult{}, false }
func (NopCache) Set(string, FitResult)        {}

// MemoryCache is an in-memory Cache with per-entry expiration.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache returns a MemoryCache whose entries expire after the given
// duration and are purged at the given interval. Non-positive expiration
// keeps entries forever.
func NewMemoryCache(expiration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(expiration, cleanupInterval)}
}

func (m *MemoryCache) Get(key string) (FitResult, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return FitResult{}, false
	}
	return v.(FitResult), true
}

func (m *MemoryCache) Set(key string, r FitResult) {
	m.c.Set(key, r, gocache.DefaultExpiration)
}

// fitKey fingerprints the full argument tuple of a solver call. Every input
// that can change what a fit stores must contribute to the key, including
// the flags: a fit that records the cost trace must not be answered by an
// entry that did not.
func fitKey(tasks []*mat.Dense, rho, tol float64, maxIter int, assumeCentered, returnCosts bool) string {
	h := fnv.New64a()
	buf := make([]byte, 8)
	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	putBool := func(b bool) {
		if b {
			put(1)
		} else {
			put(0)
		}
	}
	put(rho)
	put(tol)
	put(float64(maxIter))
	putBool(assumeCentered)
	putBool(returnCosts)
	for _, task := range tasks {
		r, c := task.Dims()
		put(float64(r))
		put(float64(c))
		raw := task.RawMatrix()
		for i := 0; i < r; i++ {
			for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+c] {
				put(v)
			}
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
