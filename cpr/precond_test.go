// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpr

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/cpr/cpr/solve"
	"github.com/cpmech/cpr/cpr/spmat"
)

// exactAMG is a mock AMG collaborator that inverts the 2x2 dense
// pressure matrix it is handed exactly. It also counts Setup/PartialRefresh
// calls, for the full-vs-partial bookkeeping checks below.
type exactAMG struct {
	inv              [2][2]float64
	setups, partials int
}

func (a *exactAMG) Setup(ap solve.Operator, rp []float64, ctx any) error {
	a.setups++
	m := ap.(*spmat.CSC)
	var d [2][2]float64
	for c := 0; c < 2; c++ {
		for k := m.Colptr[c]; k < m.Colptr[c+1]; k++ {
			d[m.Rowval[k]][c] = m.Get(k)
		}
	}
	det := d[0][0]*d[1][1] - d[0][1]*d[1][0]
	a.inv = [2][2]float64{
		{d[1][1] / det, -d[0][1] / det},
		{-d[1][0] / det, d[0][0] / det},
	}
	return nil
}

func (a *exactAMG) PartialRefresh(ap solve.Operator, rp []float64, ctx any) error {
	a.partials++
	return a.Setup(ap, rp, ctx)
}

func (a *exactAMG) Apply(dp, rp []float64) error {
	dp[0] = a.inv[0][0]*rp[0] + a.inv[0][1]*rp[1]
	dp[1] = a.inv[1][0]*rp[0] + a.inv[1][1]*rp[1]
	return nil
}

func (a *exactAMG) LinearOperator() solve.Operator { return nil }

// identitySmoother is a trivial full-system "smoother" that leaves its
// input untouched.
type identitySmoother struct{}

func (identitySmoother) Setup(a SystemOperator) error { return nil }
func (identitySmoother) Apply(y, x []float64) error   { copy(y, x); return nil }

// twoCellScalarSystem is a b=1, n=2 LinearSystem: J = [[4,2],[1,5]]
// (row,col), dense (every structural position nonzero).
type twoCellScalarSystem struct {
	j *spmat.BlockCSC
	r []float64
}

func newTwoCellScalarSystem() *twoCellScalarSystem {
	colptr := []int{0, 2, 4}
	rowval := []int{0, 1, 0, 1}
	blocks := [][][]float64{{{4}}, {{1}}, {{2}}, {{5}}}
	j := spmat.NewBlockCSC(2, 1, colptr, rowval, blocks)
	return &twoCellScalarSystem{j: j, r: make([]float64, 2)}
}

func (s *twoCellScalarSystem) Jacobian() spmat.BlockShell   { return s.j }
func (s *twoCellScalarSystem) Residual() []float64          { return s.r }
func (s *twoCellScalarSystem) Operator() SystemOperator     { return s.j }

func TestRowsZeroBeforeInitialize(tst *testing.T) {
	chk.PrintTitle("Rows() is 0 before the first Update")
	p := New()
	if p.Rows() != 0 {
		tst.Fatalf("Rows(): got %d, want 0", p.Rows())
	}
}

// TestApplyExactAMGAndIdentitySmootherSolvesExactly covers the case
// where b=1 (so the pressure subsystem is the whole system, Ap == J
// under the :none strategy) and an AMG collaborator that inverts Ap
// exactly plus an identity smoother: apply(r) solves A x = r exactly.
func TestApplyExactAMGAndIdentitySmootherSolvesExactly(tst *testing.T) {
	chk.PrintTitle("exact AMG inverse + identity smoother solves A x = r exactly")
	sys := newTwoCellScalarSystem()
	amg := &exactAMG{}
	p := New(
		WithPressurePrecond(amg),
		WithSystemPrecond(identitySmoother{}),
		WithStrategy("none"),
	)
	rec := FixedRecorder{StepN: 1, SubstepN: 1, SubiterationN: 1}
	if err := p.Update(sys, nil, rec); err != nil {
		tst.Fatalf("Update failed: %v", err)
	}

	r := []float64{7, 3}
	x := make([]float64, 2)
	if err := p.Apply(x, r); err != nil {
		tst.Fatalf("Apply failed: %v", err)
	}
	chk.Vector(tst, "x", 1e-9, x, []float64{29.0 / 18.0, 5.0 / 18.0})

	check := make([]float64, 2)
	sys.j.MulVec(check, x)
	chk.Vector(tst, "A*x", 1e-9, check, r)
}

// TestFullThenPartialUpdateCounts checks the Preconditioner's
// full-vs-partial bookkeeping: the first Update is always a full
// rebuild; a second call in the same ministep with the next iteration
// number triggers only a partial refresh under the default scheduling
// config.
func TestFullThenPartialUpdateCounts(tst *testing.T) {
	chk.PrintTitle("first Update is full, a same-ministep reiteration is partial")
	sys := newTwoCellScalarSystem()
	amg := &exactAMG{}
	p := New(
		WithPressurePrecond(amg),
		WithSystemPrecond(identitySmoother{}),
		WithStrategy("none"),
		WithUpdateInterval("ministep"),
		WithUpdateFrequency(1),
		WithUpdateIntervalPartial("iteration"),
		WithUpdateFrequencyPartial(1),
	)

	rec := FixedRecorder{StepN: 1, SubstepN: 1, SubiterationN: 1}
	if err := p.Update(sys, nil, rec); err != nil {
		tst.Fatalf("first Update failed: %v", err)
	}
	rec.SubiterationN = 2
	if err := p.Update(sys, nil, rec); err != nil {
		tst.Fatalf("second Update failed: %v", err)
	}
	if amg.setups != 1 {
		tst.Fatalf("setups: got %d, want 1", amg.setups)
	}
	if amg.partials != 1 {
		tst.Fatalf("partials: got %d, want 1", amg.partials)
	}
}

// TestPatternPreservedAcrossUpdates checks that Ap's colptr/rowval never
// change across repeated Update calls on the same structural J.
func TestPatternPreservedAcrossUpdates(tst *testing.T) {
	chk.PrintTitle("Ap's structural pattern is stable across updates")
	sys := newTwoCellScalarSystem()
	p := New(
		WithPressurePrecond(&exactAMG{}),
		WithSystemPrecond(identitySmoother{}),
		WithStrategy("none"),
	)
	rec := FixedRecorder{StepN: 1, SubstepN: 1, SubiterationN: 1}
	if err := p.Update(sys, nil, rec); err != nil {
		tst.Fatalf("Update failed: %v", err)
	}
	colptr := append([]int(nil), p.apCSC.Colptr...)
	rowval := append([]int(nil), p.apCSC.Rowval...)

	rec.SubiterationN = 2
	if err := p.Update(sys, nil, rec); err != nil {
		tst.Fatalf("second Update failed: %v", err)
	}
	chk.Ints(tst, "colptr", p.apCSC.Colptr, colptr)
	chk.Ints(tst, "rowval", p.apCSC.Rowval, rowval)
}
