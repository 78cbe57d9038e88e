// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amg

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

// diagOperator is a trivial diagonal n×n operator, also exposing
// CSRPattern so it satisfies csrLike directly.
type diagOperator struct {
	d []float64
}

func (o *diagOperator) MulVec(y, x []float64) {
	for i := range y {
		y[i] = o.d[i] * x[i]
	}
}

func (o *diagOperator) CSRPattern() (rowptr, colval []int, values []float64) {
	n := len(o.d)
	rowptr = make([]int, n+1)
	colval = make([]int, n)
	values = make([]float64, n)
	for i := 0; i < n; i++ {
		rowptr[i+1] = i + 1
		colval[i] = i
		values[i] = o.d[i]
	}
	return
}

func TestApplyBeforeSetupIsIdentity(tst *testing.T) {
	chk.PrintTitle("AMG.Apply before Setup copies rp straight into dp")
	a := New(DefaultConfig())
	rp := []float64{1, 2, 3}
	dp := make([]float64, 3)
	if err := a.Apply(dp, rp); err != nil {
		tst.Fatalf("Apply failed: %v", err)
	}
	chk.Vector(tst, "dp", 1e-15, dp, rp)
}

func TestSetupAndApplyOnDiagonalOperator(tst *testing.T) {
	chk.PrintTitle("AMG V-cycle solves a diagonal system to tight tolerance")
	n := 12
	d := make([]float64, n)
	rp := make([]float64, n)
	for i := range d {
		d[i] = float64(2 + i%3)
		rp[i] = float64(i + 1)
	}
	op := &diagOperator{d: d}

	cfg := DefaultConfig()
	cfg.MaxCoarseSize = 2
	a := New(cfg)
	if err := a.Setup(op, rp, nil); err != nil {
		tst.Fatalf("Setup failed: %v", err)
	}

	dp := make([]float64, n)
	// Gauss-Seidel on a diagonal matrix converges in one sweep per level.
	// Each Apply starts from a zero guess, so every call yields the same dp.
	for iter := 0; iter < 5; iter++ {
		if err := a.Apply(dp, rp); err != nil {
			tst.Fatalf("Apply failed: %v", err)
		}
	}
	for i := 0; i < n; i++ {
		want := rp[i] / d[i]
		if math.Abs(dp[i]-want) > 1e-6 {
			tst.Fatalf("dp[%d] = %v, want %v", i, dp[i], want)
		}
	}
}

func TestPartialRefreshReusesCoarsening(tst *testing.T) {
	chk.PrintTitle("PartialRefresh keeps P/R, recomputes level values")
	n := 8
	d := make([]float64, n)
	for i := range d {
		d[i] = float64(3 + i%2)
	}
	op := &diagOperator{d: d}
	cfg := DefaultConfig()
	cfg.MaxCoarseSize = 2
	a := New(cfg)
	if err := a.Setup(op, make([]float64, n), nil); err != nil {
		tst.Fatalf("Setup failed: %v", err)
	}
	levelsBefore := len(a.levels)
	p0 := a.levels[0].p

	d2 := make([]float64, n)
	for i := range d2 {
		d2[i] = d[i] * 2
	}
	op2 := &diagOperator{d: d2}
	if err := a.PartialRefresh(op2, make([]float64, n), nil); err != nil {
		tst.Fatalf("PartialRefresh failed: %v", err)
	}
	if len(a.levels) != levelsBefore {
		tst.Fatalf("level count changed: got %d, want %d", len(a.levels), levelsBefore)
	}
	if a.levels[0].p != p0 {
		tst.Fatal("PartialRefresh should reuse the existing prolongation operator")
	}
	chk.Scalar(tst, "refreshed diag[0]", 1e-15, a.levels[0].values[a.levels[0].rowptr[0]], d2[0])
}
