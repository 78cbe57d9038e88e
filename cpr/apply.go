// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpr

import "golang.org/x/sync/errgroup"

// SystemOperator is the full-system linear operator A exposed by the
// outer solver's linear-system abstraction, used by the two-stage apply
// to correct the residual after the pressure solve.
type SystemOperator interface {
	MulVec(y, x []float64) // y = A*x, length n*b
}

// SystemPrecond is the full-system smoother, e.g. block-ILU(0): Setup
// (re)factorizes against the current operator A, Apply computes
// y = S^-1 x.
type SystemPrecond interface {
	Setup(A SystemOperator) error
	Apply(y, x []float64) error
}

// apply runs the two-stage CPR correction. x and r both have length
// n*b; x is both scratch (step 3) and the eventual output.
func (p *Preconditioner) apply(x, r []float64) error {
	// step 1: restrict r into r_p by the per-cell weight covector
	if err := p.restrict(r); err != nil {
		return err
	}

	// step 2: pressure solve, dp ~= Ap^-1 r_p
	if err := p.harness.Solve(p.dp, p.rp); err != nil {
		return err
	}

	// step 3: lift dp into x as scratch, then y = r - A*x (in place into x)
	p.lift(x)
	p.system.MulVec(p.buf, x)
	for i := range x {
		x[i] = r[i] - p.buf[i]
	}

	// step 4: full-system smoothing, x = S^-1 y
	if err := p.smoother.Apply(p.buf, x); err != nil {
		return err
	}
	copy(x, p.buf)

	// step 5: increment the pressure component of x by dp
	return p.incrementPressure(x)
}

// restrict computes r_p[i] = sum_j r[(i-1)*b+j] * W[j,i] (0-based:
// r[i*b+j] * W[j,i]) for every cell i, in parallel.
func (p *Preconditioner) restrict(r []float64) error {
	return p.parallelOverCells(func(c int) error {
		w := p.w.Col(c)
		var sum float64
		base := c * p.b
		for j := 0; j < p.b; j++ {
			sum += r[base+j] * w[j]
		}
		p.rp[c] = sum
		return nil
	})
}

// lift writes dp into the pressure slot of every cell's block in x,
// zeroing the rest; x is reused as scratch.
func (p *Preconditioner) lift(x []float64) {
	b := p.b
	for c := 0; c < p.n; c++ {
		base := c * b
		x[base] = p.dp[c]
		for j := 1; j < b; j++ {
			x[base+j] = 0
		}
	}
}

// incrementPressure adds dp back into the pressure component of x,
// parallel over cells.
func (p *Preconditioner) incrementPressure(x []float64) error {
	b := p.b
	return p.parallelOverCells(func(c int) error {
		x[c*b] += p.dp[c]
		return nil
	})
}

// parallelOverCells runs fn(c) for every cell, batched across goroutines
// per Options.MinParallelBatch: disjoint per-cell writes with no
// ordering needs, so a caller-tuned minimum batch size is all that's
// needed to decide whether parallelizing is worth it.
func (p *Preconditioner) parallelOverCells(fn func(c int) error) error {
	n := p.n
	batch := p.opts.MinParallelBatch
	if batch <= 0 || batch >= n {
		for c := 0; c < n; c++ {
			if err := fn(c); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	for start := 0; start < n; start += batch {
		start := start
		end := start + batch
		if end > n {
			end = n
		}
		g.Go(func() error {
			for c := start; c < end; c++ {
				if err := fn(c); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
