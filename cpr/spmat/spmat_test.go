// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spmat

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

// buildTriBlockCSC builds a 3x3 tridiagonal block-CSC matrix, block size
// b=2, with distinct diagonal/off-diagonal blocks so MulVec and the
// CSC<->CSR conversions are easy to check by hand.
func buildTriBlockCSC() *BlockCSC {
	colptr := []int{0, 2, 5, 7}
	rowval := []int{0, 1, 0, 1, 2, 1, 2}
	blocks := make([][][]float64, len(rowval))
	for k := range blocks {
		blocks[k] = [][]float64{{1, 0}, {0, 1}}
	}
	// make the diagonal blocks distinguishable from off-diagonals
	blocks[0] = [][]float64{{4, 0}, {0, 4}} // (0,0)
	blocks[3] = [][]float64{{5, 0}, {0, 5}} // (1,1)
	blocks[6] = [][]float64{{6, 0}, {0, 6}} // (2,2)
	return NewBlockCSC(3, 2, colptr, rowval, blocks)
}

func TestBlockCSCDiagAndPattern(tst *testing.T) {
	chk.PrintTitle("BlockCSC diagonal lookup and pattern iteration")
	m := buildTriBlockCSC()
	chk.Matrix(tst, "D0", 1e-15, m.Diag(0), [][]float64{{4, 0}, {0, 4}})
	chk.Matrix(tst, "D1", 1e-15, m.Diag(1), [][]float64{{5, 0}, {0, 5}})
	chk.Matrix(tst, "D2", 1e-15, m.Diag(2), [][]float64{{6, 0}, {0, 6}})

	pat := m.Pattern()
	if pat.NGroups() != 3 {
		tst.Fatalf("NGroups: got %d, want 3", pat.NGroups())
	}
	start, end := pat.Group(1)
	if start != 2 || end != 5 {
		tst.Fatalf("Group(1): got (%d,%d), want (2,5)", start, end)
	}
}

func TestCSCMulVecAndCSRPattern(tst *testing.T) {
	chk.PrintTitle("CSC pressure-matrix matvec and CSC->CSR conversion")
	J := buildTriBlockCSC()
	ap := NewCSCFromBlock(J, false)
	// set the diagonal entries to the diagonal blocks' pressure entries
	// (4, 5, 6) and every off-diagonal entry to zero
	for k := 0; k < ap.NNZ(); k++ {
		row := J.Rowval[k]
		col := colOf(J, k)
		if row == col {
			ap.Set(k, float64(4+row))
		} else {
			ap.Set(k, 0)
		}
	}

	x := []float64{1, 1, 1}
	y := make([]float64, 3)
	ap.MulVec(y, x)
	chk.Vector(tst, "y = Ap*1", 1e-15, y, []float64{4, 5, 6})

	rowptr, colval, values := ap.CSRPattern()
	if len(rowptr) != 4 {
		tst.Fatalf("rowptr length: got %d, want 4", len(rowptr))
	}
	chk.Ints(tst, "rowptr", rowptr, []int{0, 2, 5, 7})
	_ = colval
	_ = values

	if !ap.SameSparsity(J) {
		tst.Fatal("expected Ap to share J's sparsity pattern")
	}
}

// colOf returns the column owning nonzero k in a BlockCSC, by scanning
// Colptr — used only to build the test fixture above.
func colOf(m *BlockCSC, k int) int {
	for c := 0; c < m.n; c++ {
		if k >= m.Colptr[c] && k < m.Colptr[c+1] {
			return c
		}
	}
	return -1
}

func TestBlockCSCMulVecFullSystem(tst *testing.T) {
	chk.PrintTitle("BlockCSC full-system matvec")
	J := buildTriBlockCSC()
	x := []float64{1, 1, 1, 1, 1, 1}
	y := make([]float64, 6)
	J.MulVec(y, x)
	// cell 0: diag(4,4)*[1,1] + offdiag(1,1 identity)*[1,1] from cell1 = [5,5]
	// cell 1: offdiag from cell0 [1,1] + diag(5,5)*[1,1] + offdiag from cell2 [1,1] = [7,7]
	// cell 2: offdiag from cell1 [1,1] + diag(6,6)*[1,1] = [7,7]
	chk.Vector(tst, "y", 1e-15, y, []float64{5, 5, 7, 7, 7, 7})
}

func TestCheckDimsPanicsOnMismatch(tst *testing.T) {
	chk.PrintTitle("CheckDims panics on nnz mismatch")
	defer func() {
		if r := recover(); r == nil {
			tst.Fatal("expected panic on dimension mismatch")
		}
	}()
	CheckDims(3, 4)
}
