// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package weights computes the per-cell pressure-extraction row weights:
// quasi-IMPES, true-IMPES, analytical or none, dispatched through a
// registry in the same style as gofem's material model allocators (see
// github.com/cpmech/gofem/msolid).
package weights

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/cpmech/gosl/io"
)

// Strategy tags the four weight-computation methods.
type Strategy string

const (
	QuasiImpes Strategy = "quasi_impes"
	TrueImpes  Strategy = "true_impes"
	Analytical Strategy = "analytical"
	None       Strategy = "none"
)

// Scaling is the post-solve normalization policy.
type Scaling string

const (
	Unit    Scaling = "unit"
	NoScale Scaling = "none"
)

// BlockShell is the subset of spmat.BlockShell weight computation needs:
// block size, cell count and per-cell diagonal block access.
type BlockShell interface {
	N() int
	B() int
	Diag(c int) [][]float64
}

// AdCell is the caller-supplied automatic-differentiation abstraction for
// one scalar accumulation-term component: Partials()[i] is ∂acc/∂x_{i+1}.
// The core only ever reads it.
type AdCell interface {
	Value() float64
	Partials() []float64
}

// AccumField supplies the b accumulation-term AD numbers for each cell,
// consumed only by the true_impes strategy.
type AccumField interface {
	Cell(c int) []AdCell // length B(); Cell(c)[j] is acc_j at cell c
}

// Weights is the dense b×n matrix W: column c is the pressure-extraction
// covector for cell c.
type Weights struct {
	B, N int
	Data []float64 // column-major: Data[c*B : c*B+B] is column c
}

// NewWeights allocates a zeroed b×n weight matrix.
func NewWeights(b, n int) *Weights {
	return &Weights{B: b, N: n, Data: make([]float64, b*n)}
}

// Col returns a mutable view of column c.
func (w *Weights) Col(c int) []float64 { return w.Data[c*w.B : c*w.B+w.B] }

// Norm2 returns the Euclidean norm of column c.
func (w *Weights) Norm2(c int) float64 {
	col := w.Col(c)
	var s float64
	for _, v := range col {
		s += v * v
	}
	return math.Sqrt(s)
}

// computeFunc fills every column of ctx.W for the strategy it is
// registered under. Strategies that need nothing beyond J (None) ignore
// the rest of ctx.
type computeFunc func(ctx *Context) error

// Context bundles every input a weight strategy might need; individual
// strategies read only the fields relevant to them.
type Context struct {
	J          BlockShell
	W          *Weights
	PScale     float64
	Acc        AccumField
	Analytical func(w *Weights) error
	MinBatch   int // minimum cells per goroutine; <=0 means "no parallelism"
}

// strategies is the single dispatch-site registry, populated by each
// strategy's own init(), mirroring gofem's msolid/mdl model-allocator
// pattern.
var strategies = make(map[Strategy]computeFunc)

func register(s Strategy, fn computeFunc) { strategies[s] = fn }

// Compute fills W according to strategy, then applies the scaling policy.
// W must already be sized NewWeights(J.B(), J.N()).
func Compute(strategy Strategy, scaling Scaling, ctx *Context) error {
	fn, ok := strategies[strategy]
	if !ok {
		return &UnsupportedStrategyError{Strategy: string(strategy)}
	}
	if err := fn(ctx); err != nil {
		return err
	}
	if scaling == Unit {
		normalize(ctx.W, ctx.MinBatch)
	}
	return nil
}

// normalize rescales every column to unit 2-norm, in place, skipping
// (leaving untouched) any already-zero column — a degenerate cell the
// caller chose not to fail on (e.g. an inactive cell carried as a
// structural zero).
func normalize(w *Weights, minBatch int) {
	n := w.N
	batch := chooseBatch(n, minBatch)
	if batch >= n {
		for c := 0; c < n; c++ {
			normalizeCol(w, c)
		}
		return
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
				normalizeCol(w, c)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func normalizeCol(w *Weights, c int) {
	norm := w.Norm2(c)
	if norm == 0 {
		return
	}
	col := w.Col(c)
	for i := range col {
		col[i] /= norm
	}
}

// chooseBatch returns the number of cells handed to a single goroutine.
// minBatch<=0 disables parallelism (the whole range runs in one batch).
func chooseBatch(n, minBatch int) int {
	if minBatch <= 0 {
		return n
	}
	if minBatch >= n {
		return n
	}
	return minBatch
}

// parallelCells runs fn(c) for c in [0,n) across goroutines of minBatch
// cells each (the last one may hold fewer), propagating the first error. Grounded on
// golang.org/x/sync/errgroup (an ecosystem dependency already attested by
// the retrieval pack's janpfeifer-go-highway/go.mod).
func parallelCells(n, minBatch int, fn func(c int) error) error {
	batch := chooseBatch(n, minBatch)
	if batch >= n {
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

// UnsupportedStrategyError signals an unknown strategy tag passed to
// Compute. Duplicated (rather than imported) from package cpr to avoid a
// cyclic dependency; cpr.Preconditioner wraps this into its own error
// type of the same name when surfacing it to callers.
type UnsupportedStrategyError struct{ Strategy string }

func (e *UnsupportedStrategyError) Error() string {
	return io.Sf("weights: unsupported strategy %q", e.Strategy)
}
