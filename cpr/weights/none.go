// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package weights

func init() {
	register(None, computeNone)
}

// computeNone implements the `none` strategy: select the first equation
// (the pressure row) in every cell, W[0,:] = 1 elsewhere zero. This is
// the degenerate "weight" that makes the restriction step pick the
// cell's own pressure-row residual verbatim.
func computeNone(ctx *Context) error {
	n := ctx.J.N()
	return parallelCells(n, ctx.MinBatch, func(c int) error {
		col := ctx.W.Col(c)
		col[0] = 1
		for i := 1; i < len(col); i++ {
			col[i] = 0
		}
		return nil
	})
}
