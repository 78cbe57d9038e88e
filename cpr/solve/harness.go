// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solve implements the pressure-system solver harness: wrapping
// the AMG collaborator either as a direct one-cycle solve, or — when a
// relative tolerance is configured — as a right preconditioner for an
// inner flexible-GMRES tightening pass built on
// gonum.org/v1/gonum/linsolve.
package solve

import (
	"gonum.org/v1/gonum/linsolve"
	"gonum.org/v1/gonum/mat"
)

// AMG is the pressure-subsystem collaborator consumed by CPR:
// setup/apply/partial-refresh plus access to its own linear operator
// (A_p, as the AMG hierarchy sees it — used as the operator for the
// inner FGMRES tightening pass).
type AMG interface {
	Setup(Ap Operator, rp []float64, ctx any) error
	Apply(dp, rp []float64) error
	PartialRefresh(Ap Operator, rp []float64, ctx any) error
	LinearOperator() Operator
}

// Operator is any scalar linear operator exposing a matrix-vector
// product; spmat.CSC and spmat.CSR both satisfy it.
type Operator interface {
	MulVec(y, x []float64)
}

// operatorAdapter exposes an Operator as a gonum linsolve.Operator
// (MulVecTo), the shape linsolve.Iterative requires for the outer matrix.
type operatorAdapter struct {
	op Operator
	n  int
}

func (a operatorAdapter) MulVecTo(dst *mat.VecDense, _ bool, x mat.Vector) {
	src := make([]float64, a.n)
	for i := 0; i < a.n; i++ {
		src[i] = x.AtVec(i)
	}
	out := make([]float64, a.n)
	a.op.MulVec(out, src)
	for i := 0; i < a.n; i++ {
		dst.SetVec(i, out[i])
	}
}

// Harness wraps an AMG collaborator as the pressure-system solver used
// by the two-stage apply.
type Harness struct {
	AMG   AMG
	PRtol float64 // >0 enables FGMRES tightening

	gmres  *linsolve.GMRES
	warmDp *mat.VecDense
}

// NewHarness builds a harness around amg; if pRtol>0, the tightened
// FGMRES path is enabled.
func NewHarness(amg AMG, pRtol float64) *Harness {
	return &Harness{AMG: amg, PRtol: pRtol}
}

// Solve computes dp ~= Ap^-1 rp. With no tolerance configured this is a
// single AMG cycle; otherwise it runs right-preconditioned FGMRES to the
// relative tolerance PRtol, warm-started from the previous dp, itmax=20.
// No absolute tolerance is set. FGMRES non-convergence is not an error:
// the best-effort dp is still written.
func (h *Harness) Solve(dp, rp []float64) error {
	if h.PRtol <= 0 {
		return h.AMG.Apply(dp, rp)
	}
	return h.solveFGMRES(dp, rp)
}

func (h *Harness) solveFGMRES(dp, rp []float64) error {
	n := len(rp)
	if h.warmDp == nil || h.warmDp.Len() != n {
		h.warmDp = mat.NewVecDense(n, nil)
		h.warmDp.CopyVec(mat.NewVecDense(n, dp))
	}
	if h.gmres == nil {
		h.gmres = &linsolve.GMRES{}
	}

	a := operatorAdapter{op: h.AMG.LinearOperator(), n: n}
	settings := &linsolve.Settings{
		InitX:         h.warmDp,
		Tolerance:     h.PRtol,
		MaxIterations: 20,
		PreconSolve: func(dst *mat.VecDense, trans bool, rhs mat.Vector) error {
			src := make([]float64, n)
			for i := 0; i < n; i++ {
				src[i] = rhs.AtVec(i)
			}
			out := make([]float64, n)
			if err := h.AMG.Apply(out, src); err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				dst.SetVec(i, out[i])
			}
			return nil
		},
	}

	result, _ := linsolve.Iterative(a, mat.NewVecDense(n, rp), h.gmres, settings)
	if result == nil {
		// best-effort fallback: no iterate produced at all (e.g. itmax=0)
		copy(dp, rp)
		return nil
	}
	for i := 0; i < n; i++ {
		dp[i] = result.X.AtVec(i)
	}
	h.warmDp.CopyVec(&result.X)
	// FGMRES non-convergence within itmax is not an error: dp is returned
	// regardless of the error linsolve.Iterative reports.
	return nil
}
