// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package weights

import "github.com/cpmech/gosl/io"

// add strategy to registry (mirrors gofem's model-allocator init pattern)
func init() {
	register(QuasiImpes, computeQuasiImpes)
}

// computeQuasiImpes builds the quasi-IMPES weights: for each cell c,
// D_c = J[c,c]^T, solve D_c w = e1.
func computeQuasiImpes(ctx *Context) error {
	n := ctx.J.N()
	return parallelCells(n, ctx.MinBatch, func(c int) error {
		diag := ctx.J.Diag(c)
		if diag == nil {
			return &WeightSolveFailureError{Cell: c, Err: errSingular}
		}
		dt := transpose(cloneBlock(diag))
		w := ctx.W.Col(c)
		if err := solveSmall(dt, w); err != nil {
			return &WeightSolveFailureError{Cell: c, Err: err}
		}
		return nil
	})
}

// WeightSolveFailureError signals a singular per-cell weight system.
// Duplicated in this package to avoid a dependency cycle with package
// cpr, which wraps it under the same name.
type WeightSolveFailureError struct {
	Cell int
	Err  error
}

func (e *WeightSolveFailureError) Error() string {
	return io.Sf("weights: solve failed at cell %d: %v", e.Cell, e.Err)
}

func (e *WeightSolveFailureError) Unwrap() error { return e.Err }
