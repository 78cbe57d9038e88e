// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package weights

func init() {
	register(TrueImpes, computeTrueImpes)
}

// computeTrueImpes builds the true-IMPES weights: build M_c from the
// accumulation term's partials and solve M_c w = e1.
// M_c[0][j] = p_scale * acc[j].Partials()[0]; M_c[i][j] = acc[j].Partials()[i]
// for i>=1.
func computeTrueImpes(ctx *Context) error {
	if ctx.Acc == nil {
		return &WeightSolveFailureError{Cell: -1, Err: errSingular}
	}
	b := ctx.J.B()
	n := ctx.J.N()
	return parallelCells(n, ctx.MinBatch, func(c int) error {
		acc := ctx.Acc.Cell(c)
		var m [][]float64
		if b == 2 {
			m = buildTrueImpesB2(acc, ctx.PScale)
		} else {
			m = buildTrueImpesGeneric(acc, ctx.PScale, b)
		}
		w := ctx.W.Col(c)
		if err := solveSmall(m, w); err != nil {
			return &WeightSolveFailureError{Cell: c, Err: err}
		}
		return nil
	})
}

// buildTrueImpesGeneric is the reference b×b builder for any block size;
// the b=2 specialization below exists purely for performance and must
// stay semantically identical to this path. Sizes 3, 4, 5 and 8 are
// served by this generic path: profiling has not shown it to be a
// bottleneck relative to the per-cell dense solve itself, so no further
// unrolling has been added without benchmark evidence to justify it.
func buildTrueImpesGeneric(acc []AdCell, pScale float64, b int) [][]float64 {
	m := make([][]float64, b)
	for i := 0; i < b; i++ {
		m[i] = make([]float64, b)
		for j := 0; j < b; j++ {
			p := acc[j].Partials()[i]
			if i == 0 {
				p *= pScale
			}
			m[i][j] = p
		}
	}
	return m
}

// buildTrueImpesB2 is the unrolled b=2 specialization of the builder
// above (index math inlined, no per-element closures/bounds checks).
func buildTrueImpesB2(acc []AdCell, pScale float64) [][]float64 {
	p0 := acc[0].Partials()
	p1 := acc[1].Partials()
	return [][]float64{
		{pScale * p0[0], pScale * p1[0]},
		{p0[1], p1[1]},
	}
}
