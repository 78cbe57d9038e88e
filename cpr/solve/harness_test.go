// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

// identityOperator is A_p = I, the S5 scenario's contrived operator.
type identityOperator struct{ n int }

func (o identityOperator) MulVec(y, x []float64) { copy(y, x) }

// mockAMG is a one-cycle-exact AMG stand-in: Apply just copies rp into
// dp (as if the pressure operator were the identity and AMG solved it
// exactly), letting tests exercise the harness without depending on a
// real multigrid hierarchy.
type mockAMG struct {
	setups, partials int
	op               identityOperator
}

func (m *mockAMG) Setup(Ap Operator, rp []float64, ctx any) error {
	m.setups++
	return nil
}
func (m *mockAMG) PartialRefresh(Ap Operator, rp []float64, ctx any) error {
	m.partials++
	return nil
}
func (m *mockAMG) Apply(dp, rp []float64) error {
	copy(dp, rp)
	return nil
}
func (m *mockAMG) LinearOperator() Operator { return m.op }

func TestHarnessDirectPath(tst *testing.T) {
	chk.PrintTitle("harness. PRtol<=0 delegates straight to AMG.Apply")
	amg := &mockAMG{op: identityOperator{n: 3}}
	h := NewHarness(amg, 0)
	rp := []float64{1, 2, 3}
	dp := make([]float64, 3)
	if err := h.Solve(dp, rp); err != nil {
		tst.Fatalf("Solve failed: %v", err)
	}
	chk.Vector(tst, "dp", 1e-15, dp, rp)
}

// TestFGMRESTighteningAgainstIdentityConvergesImmediately covers the
// case where A_p = I: FGMRES tightening converges immediately and dp
// ends up equal to rp.
func TestFGMRESTighteningAgainstIdentityConvergesImmediately(tst *testing.T) {
	chk.PrintTitle("FGMRES tightening against Ap=I converges to dp=rp")
	amg := &mockAMG{op: identityOperator{n: 3}}
	h := NewHarness(amg, 1e-6)
	rp := []float64{1, 2, 3}
	dp := make([]float64, 3)
	if err := h.Solve(dp, rp); err != nil {
		tst.Fatalf("Solve failed: %v", err)
	}
	chk.Vector(tst, "dp", 1e-8, dp, rp)
}
