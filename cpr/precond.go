// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpr implements the Constrained Pressure Residual preconditioner:
// a two-stage preconditioner combining an algebraic-multigrid solve on a
// pressure-only surrogate system with a general block preconditioner on
// the full system, for the block-sparse Jacobians that arise in fully
// implicit multiphase reservoir simulation.
package cpr

import (
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/cpr/cpr/schedule"
	"github.com/cpmech/cpr/cpr/solve"
	"github.com/cpmech/cpr/cpr/spmat"
	"github.com/cpmech/cpr/cpr/weights"
)

// AMG is the pressure-subsystem collaborator. Re-typed from package
// solve so callers never need to import it directly.
type AMG = solve.AMG

// lifecycleState is the Uninitialized -> Initialized variant from spec
// section 9: buffers are only present once the first Update call has
// seen J's dimensions.
type lifecycleState int

const (
	uninitialized lifecycleState = iota
	initialized
)

// ModelContext is the opaque per-update context forwarded to the AMG
// collaborator's Setup/PartialRefresh and, for the analytical weight
// strategy, unused directly by the core (the caller's closure reads it
// via its own closure state, not through this parameter).
type ModelContext = any

// LinearSystem is the caller's linear-system abstraction consumed by
// Update: reservoir_jacobian, reservoir_residual and linear_operator. In
// the multi-block case the caller is responsible for restricting
// Operator down to the reservoir (top-left) block before
// Jacobian/Residual/Operator are read here.
type LinearSystem interface {
	Jacobian() spmat.BlockShell
	Residual() []float64
	Operator() SystemOperator
}

// AccumProvider is an optional LinearSystem capability: when present, its
// Accum() feeds the true_impes weight strategy's AD accumulation term.
// Linear systems that never use true_impes need not implement it.
type AccumProvider interface {
	Accum() weights.AccumField
}

// Preconditioner is the CPR preconditioner: an opaque object exposing
// Update, Apply and Rows to an outer Krylov solver.
type Preconditioner struct {
	opts Options

	state lifecycleState
	n, b  int

	apCSC *spmat.CSC
	apCSR *spmat.CSR
	ap    spmat.PressureMatrix

	w  *weights.Weights
	rp []float64
	dp []float64
	buf []float64

	scheduler *schedule.Scheduler
	harness   *solve.Harness
	smoother  SystemPrecond
	system    SystemOperator

	amg AMG
}

// New constructs an empty (Uninitialized) CPR preconditioner. It may be
// constructed before J's dimensions are known; buffers are allocated
// lazily on the first Update. WithPressurePrecond and WithSystemPrecond
// are mandatory: defaultOptions leaves both nil, and the first Update
// panics on a nil collaborator if either is left unset.
func New(opts ...Option) *Preconditioner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &Preconditioner{opts: o, amg: o.PressurePrecond, smoother: o.SystemPrecond}

	partialCfg := schedule.Config{Interval: o.UpdateIntervalPartial, Frequency: o.UpdateFrequencyPartial}
	if !o.PartialUpdate {
		// Frequency<=0 makes evaluate() always report false, so
		// Decide never returns partial=true.
		partialCfg.Frequency = 0
	}
	p.scheduler = schedule.NewScheduler(
		schedule.Config{Interval: o.UpdateInterval, Frequency: o.UpdateFrequency},
		partialCfg,
	)
	p.harness = solve.NewHarness(p.amg, o.PRtol)
	return p
}

// Rows returns the operator dimension n*b.
func (p *Preconditioner) Rows() int {
	if p.state == uninitialized {
		return 0
	}
	return p.n * p.b
}

// Update classifies the call via the scheduler, then rebuilds
// weights/pressure-values/smoother/AMG to the extent the classification
// calls for. lsys.Residual() is unused by the core itself (r flows into
// Apply, not Update) but is still read from lsys here so callers get a
// single consuming interface.
func (p *Preconditioner) Update(lsys LinearSystem, mc ModelContext, rec Recorder) error {
	J := lsys.Jacobian()
	_ = lsys.Residual()

	if p.state == uninitialized {
		if err := p.initialize(J); err != nil {
			return err
		}
	} else {
		spmat.CheckDims(p.ap.NNZ(), J.NNZ())
	}
	p.system = lsys.Operator()

	var acc weights.AccumField
	if ap, ok := lsys.(AccumProvider); ok {
		acc = ap.Accum()
	}

	full, partial, err := p.scheduler.Decide(rec)
	if err != nil {
		return translateScheduleError(err)
	}

	switch {
	case full:
		if err := p.recomputeWeights(J, acc, mc); err != nil {
			return err
		}
		if err := p.rebuildValues(J); err != nil {
			return err
		}
		if err := p.smoother.Setup(p.system); err != nil {
			return err
		}
		if p.opts.Verbose {
			io.Pf(">> cpr: full update (AMG rebuild)\n")
		}
		return p.amg.Setup(p.ap, p.rp, mc)

	case partial:
		if err := p.recomputeWeights(J, acc, mc); err != nil {
			return err
		}
		if err := p.rebuildValues(J); err != nil {
			return err
		}
		if err := p.smoother.Setup(p.system); err != nil {
			return err
		}
		if p.opts.Verbose {
			io.Pf(">> cpr: partial update (AMG numerics refresh)\n")
		}
		return p.amg.PartialRefresh(p.ap, p.rp, mc)

	default:
		return p.smoother.Setup(p.system)
	}
}

// Apply runs the two-stage CPR correction. x and r must both have
// length Rows().
func (p *Preconditioner) Apply(x, r []float64) error {
	return p.apply(x, r)
}

// initialize allocates every buffer from J's dimensions on the first
// Update call.
func (p *Preconditioner) initialize(J spmat.BlockShell) error {
	p.n = J.N()
	p.b = J.B()

	switch m := J.(type) {
	case *spmat.BlockCSC:
		p.apCSC = spmat.NewCSCFromBlock(m, false)
		p.ap = p.apCSC
	case *spmat.BlockCSR:
		p.apCSR = spmat.NewCSRFromBlock(m, false)
		p.ap = p.apCSR
	default:
		return &DimensionMismatchError{ApNNZ: -1, JNNZ: J.NNZ()}
	}

	p.w = weights.NewWeights(p.b, p.n)
	p.rp = make([]float64, p.n)
	p.dp = make([]float64, p.n)
	p.buf = make([]float64, p.n*p.b)
	p.state = initialized
	return nil
}

func (p *Preconditioner) recomputeWeights(J spmat.BlockShell, acc weights.AccumField, mc ModelContext) error {
	ctx := &weights.Context{
		J:        J,
		W:        p.w,
		PScale:   p.opts.PScale,
		Acc:      acc,
		MinBatch: p.opts.MinParallelBatch,
	}
	if p.opts.analyticalFn != nil {
		ctx.Analytical = p.opts.analyticalFn
	}
	if err := weights.Compute(p.opts.Strategy, p.opts.WeightScaling, ctx); err != nil {
		return translateWeightError(err)
	}
	return nil
}

func (p *Preconditioner) rebuildValues(J spmat.BlockShell) error {
	return rebuildPressureValues(p.ap, J, p.w, p.opts.MinParallelBatch)
}

func translateScheduleError(err error) error {
	if e, ok := err.(*schedule.BadConfigError); ok {
		return &BadScheduleConfigError{Interval: e.Interval}
	}
	return err
}

func translateWeightError(err error) error {
	switch e := err.(type) {
	case *weights.UnsupportedStrategyError:
		return &UnsupportedStrategyError{Strategy: e.Strategy}
	case *weights.WeightSolveFailureError:
		return &WeightSolveFailureError{Cell: e.Cell, Err: e.Err}
	default:
		return err
	}
}
