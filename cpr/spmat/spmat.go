// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spmat provides the scalar and block sparse-matrix shells used by
// the CPR preconditioner: the block Jacobian (CSC or CSR, caller-owned) and
// the scalar pressure matrix mirroring its exact structural pattern.
package spmat

import "github.com/cpmech/gosl/chk"

// BlockShell is the block Jacobian J, in whichever storage format the
// caller holds it. Block size b is fixed for the lifetime of the matrix.
type BlockShell interface {
	N() int               // number of cells
	B() int                // block size
	NNZ() int               // number of structural block nonzeros
	Block(k int) [][]float64 // the k-th structural nonzero, as a b×b dense block
	Diag(c int) [][]float64  // the diagonal block J[c,c]; nil if cell c has no diagonal entry
	Pattern() Pattern
}

// Pattern lets the pressure-value rebuild (rebuildPressureValues in package
// cpr) iterate a CSC or CSR block matrix identically: both formats group
// structural nonzeros (by
// column in CSC, by row in CSR); Pattern abstracts the grouping and the
// row each nonzero belongs to.
type Pattern interface {
	NGroups() int
	Group(g int) (start, end int)
	RowOf(g, k int) int // the row owning nonzero k within group g
}

// ValueShell is a scalar sparse matrix whose values can be rewritten
// in place without touching its structural pattern.
type ValueShell interface {
	N() int
	NNZ() int
	Set(k int, v float64)
	Get(k int) float64
}

// PressureMatrix is the scalar pressure matrix A_p as consumed by the
// pressure-system solver harness: a ValueShell that is also its own
// linear operator. CSC and CSR both satisfy it.
type PressureMatrix interface {
	ValueShell
	MulVec(y, x []float64)
}

// BlockCSC is the block Jacobian in compressed-column form: column c's
// structural nonzeros are Colptr[c]..Colptr[c+1), with row indices Rowval
// and dense b×b blocks Blocks, in identical iteration order.
type BlockCSC struct {
	n, b   int
	Colptr []int
	Rowval []int
	Blocks [][][]float64
	diag   []int // diag[c] = index k of the diagonal block for column c, or -1
}

// NewBlockCSC builds a block Jacobian shell over column pointers colptr
// (length n+1), row indices rowval and dense blocks (length nnz, each
// b×b). The diagonal-block index for each column is located once here so
// weights.Compute can fetch D_c without rescanning the pattern.
func NewBlockCSC(n, b int, colptr, rowval []int, blocks [][][]float64) *BlockCSC {
	m := &BlockCSC{n: n, b: b, Colptr: colptr, Rowval: rowval, Blocks: blocks}
	m.diag = make([]int, n)
	for c := 0; c < n; c++ {
		m.diag[c] = -1
		for k := colptr[c]; k < colptr[c+1]; k++ {
			if rowval[k] == c {
				m.diag[c] = k
				break
			}
		}
	}
	return m
}

func (m *BlockCSC) N() int                 { return m.n }
func (m *BlockCSC) B() int                 { return m.b }
func (m *BlockCSC) NNZ() int               { return len(m.Rowval) }
func (m *BlockCSC) Block(k int) [][]float64 { return m.Blocks[k] }
func (m *BlockCSC) Pattern() Pattern       { return cscPattern{m} }

func (m *BlockCSC) Diag(c int) [][]float64 {
	k := m.diag[c]
	if k < 0 {
		return nil
	}
	return m.Blocks[k]
}

// RowMajor re-expresses m's structural pattern in row order, without
// transposing the individual blocks (a block at structural position
// (row,col) keeps its own orientation; only the row/column bookkeeping
// changes) — the conversion ilusmoother needs to run a row-oriented
// factorization over a column-stored Jacobian.
func (m *BlockCSC) RowMajor() (rowptr, colval []int, blocks [][][]float64) {
	counts := make([]int, m.n+1)
	for _, r := range m.Rowval {
		counts[r+1]++
	}
	for i := 1; i <= m.n; i++ {
		counts[i] += counts[i-1]
	}
	rowptr = counts
	colval = make([]int, len(m.Rowval))
	blocks = make([][][]float64, len(m.Blocks))
	next := append([]int(nil), rowptr...)
	for c := 0; c < m.n; c++ {
		for k := m.Colptr[c]; k < m.Colptr[c+1]; k++ {
			r := m.Rowval[k]
			dst := next[r]
			colval[dst] = c
			blocks[dst] = m.Blocks[k]
			next[r]++
		}
	}
	return rowptr, colval, blocks
}

// MulVec computes y = J*x over the full b*n block system, letting a
// BlockCSC double as the caller's SystemOperator when no richer operator
// is available, and letting collaborators such as ilusmoother recover
// block structure from a SystemOperator via a type assertion back to
// BlockShell.
func (m *BlockCSC) MulVec(y, x []float64) {
	b := m.b
	for i := range y {
		y[i] = 0
	}
	for c := 0; c < m.n; c++ {
		for k := m.Colptr[c]; k < m.Colptr[c+1]; k++ {
			r := m.Rowval[k]
			blk := m.Blocks[k]
			xc := x[c*b : c*b+b]
			yr := y[r*b : r*b+b]
			for i := 0; i < b; i++ {
				var s float64
				for j := 0; j < b; j++ {
					s += blk[i][j] * xc[j]
				}
				yr[i] += s
			}
		}
	}
}

type cscPattern struct{ m *BlockCSC }

func (p cscPattern) NGroups() int                  { return p.m.n }
func (p cscPattern) Group(g int) (int, int)         { return p.m.Colptr[g], p.m.Colptr[g+1] }
func (p cscPattern) RowOf(g, k int) int             { return p.m.Rowval[k] }

// BlockCSR is the block Jacobian in compressed-row form: row r's
// structural nonzeros are Rowptr[r]..Rowptr[r+1), with column indices
// Colval and dense b×b blocks Blocks.
type BlockCSR struct {
	n, b   int
	Rowptr []int
	Colval []int
	Blocks [][][]float64
	diag   []int
}

// NewBlockCSR is the CSR counterpart of NewBlockCSC.
func NewBlockCSR(n, b int, rowptr, colval []int, blocks [][][]float64) *BlockCSR {
	m := &BlockCSR{n: n, b: b, Rowptr: rowptr, Colval: colval, Blocks: blocks}
	m.diag = make([]int, n)
	for r := 0; r < n; r++ {
		m.diag[r] = -1
		for k := rowptr[r]; k < rowptr[r+1]; k++ {
			if colval[k] == r {
				m.diag[r] = k
				break
			}
		}
	}
	return m
}

func (m *BlockCSR) N() int                 { return m.n }
func (m *BlockCSR) B() int                 { return m.b }
func (m *BlockCSR) NNZ() int               { return len(m.Colval) }
func (m *BlockCSR) Block(k int) [][]float64 { return m.Blocks[k] }
func (m *BlockCSR) Pattern() Pattern       { return csrPattern{m} }

func (m *BlockCSR) Diag(r int) [][]float64 {
	k := m.diag[r]
	if k < 0 {
		return nil
	}
	return m.Blocks[k]
}

// MulVec is the BlockCSR counterpart of BlockCSC.MulVec.
func (m *BlockCSR) MulVec(y, x []float64) {
	b := m.b
	for r := 0; r < m.n; r++ {
		yr := y[r*b : r*b+b]
		for i := 0; i < b; i++ {
			yr[i] = 0
		}
		for k := m.Rowptr[r]; k < m.Rowptr[r+1]; k++ {
			c := m.Colval[k]
			blk := m.Blocks[k]
			xc := x[c*b : c*b+b]
			for i := 0; i < b; i++ {
				var s float64
				for j := 0; j < b; j++ {
					s += blk[i][j] * xc[j]
				}
				yr[i] += s
			}
		}
	}
}

type csrPattern struct{ m *BlockCSR }

func (p csrPattern) NGroups() int          { return p.m.n }
func (p csrPattern) Group(g int) (int, int) { return p.m.Rowptr[g], p.m.Rowptr[g+1] }
func (p csrPattern) RowOf(g, k int) int    { return g }

// CSC is the scalar pressure matrix A_p in compressed-column form,
// sharing its structural pattern with a BlockCSC Jacobian.
type CSC struct {
	n      int
	Colptr []int
	Rowval []int
	Values []float64
}

// NewCSCFromBlock creates the pressure-matrix shell mirroring J's exact
// structural pattern. If shareIndices is true, the column pointer and
// row index slices are reused by reference (the caller must guarantee
// they never mutate); otherwise they are copied.
func NewCSCFromBlock(J *BlockCSC, shareIndices bool) *CSC {
	cp, rv := J.Colptr, J.Rowval
	if !shareIndices {
		cp = append([]int(nil), J.Colptr...)
		rv = append([]int(nil), J.Rowval...)
	}
	return &CSC{n: J.n, Colptr: cp, Rowval: rv, Values: make([]float64, len(rv))}
}

func (m *CSC) N() int            { return m.n }
func (m *CSC) NNZ() int          { return len(m.Rowval) }
func (m *CSC) Set(k int, v float64) { m.Values[k] = v }
func (m *CSC) Get(k int) float64 { return m.Values[k] }

// MulVec computes y = m*x, satisfying solve.Operator so A_p can serve as
// the AMG collaborator's own linear operator for FGMRES tightening.
func (m *CSC) MulVec(y, x []float64) {
	for i := range y {
		y[i] = 0
	}
	for c := 0; c < m.n; c++ {
		xc := x[c]
		if xc == 0 {
			continue
		}
		for k := m.Colptr[c]; k < m.Colptr[c+1]; k++ {
			y[m.Rowval[k]] += m.Values[k] * xc
		}
	}
}

// CSRPattern returns m's entries in compressed-row form, letting a
// collaborator (e.g. package amg) consume a CSC-stored A_p without
// caring which format the caller built it in.
func (m *CSC) CSRPattern() (rowptr, colval []int, values []float64) {
	return toCSRPattern(m.n, m.Colptr, m.Rowval, m.Values)
}

// SameSparsity reports whether m shares its structural pattern with J:
// identical colptr/rowval.
func (m *CSC) SameSparsity(J *BlockCSC) bool {
	if m.n != J.n || len(m.Rowval) != len(J.Rowval) {
		return false
	}
	for i, v := range m.Colptr {
		if J.Colptr[i] != v {
			return false
		}
	}
	for i, v := range m.Rowval {
		if J.Rowval[i] != v {
			return false
		}
	}
	return true
}

// CSR is the compressed-row counterpart of CSC.
type CSR struct {
	n      int
	Rowptr []int
	Colval []int
	Values []float64
}

// NewCSRFromBlock is the CSR counterpart of NewCSCFromBlock.
func NewCSRFromBlock(J *BlockCSR, shareIndices bool) *CSR {
	rp, cv := J.Rowptr, J.Colval
	if !shareIndices {
		rp = append([]int(nil), J.Rowptr...)
		cv = append([]int(nil), J.Colval...)
	}
	return &CSR{n: J.n, Rowptr: rp, Colval: cv, Values: make([]float64, len(cv))}
}

func (m *CSR) N() int            { return m.n }
func (m *CSR) NNZ() int          { return len(m.Colval) }
func (m *CSR) Set(k int, v float64) { m.Values[k] = v }
func (m *CSR) Get(k int) float64 { return m.Values[k] }

// CSRPattern returns m's own storage; see CSC.CSRPattern.
func (m *CSR) CSRPattern() (rowptr, colval []int, values []float64) {
	return m.Rowptr, m.Colval, m.Values
}

// MulVec computes y = m*x; see CSC.MulVec.
func (m *CSR) MulVec(y, x []float64) {
	for r := 0; r < m.n; r++ {
		var sum float64
		for k := m.Rowptr[r]; k < m.Rowptr[r+1]; k++ {
			sum += m.Values[k] * x[m.Colval[k]]
		}
		y[r] = sum
	}
}

func (m *CSR) SameSparsity(J *BlockCSR) bool {
	if m.n != J.n || len(m.Colval) != len(J.Colval) {
		return false
	}
	for i, v := range m.Rowptr {
		if J.Rowptr[i] != v {
			return false
		}
	}
	for i, v := range m.Colval {
		if J.Colval[i] != v {
			return false
		}
	}
	return true
}

// CheckDims panics with a DimensionMismatch-flavoured message if Ap and J
// disagree on nnz; callers use this to guard the invariant in section 3
// before trusting pointwise alignment between the two matrices.
func CheckDims(apNNZ, jNNZ int) {
	if apNNZ != jNNZ {
		chk.Panic("pressure matrix and Jacobian disagree on nnz: %d != %d", apNNZ, jNNZ)
	}
}

// toCSRPattern converts a CSC-stored n×n matrix to CSR form.
func toCSRPattern(n int, colptr, rowval []int, values []float64) (rowptr, colval2 []int, values2 []float64) {
	counts := make([]int, n+1)
	for _, r := range rowval {
		counts[r+1]++
	}
	for i := 1; i <= n; i++ {
		counts[i] += counts[i-1]
	}
	rowptr = counts
	colval2 = make([]int, len(rowval))
	values2 = make([]float64, len(values))
	next := append([]int(nil), rowptr...)
	for c := 0; c < n; c++ {
		for k := colptr[c]; k < colptr[c+1]; k++ {
			r := rowval[k]
			dst := next[r]
			colval2[dst] = c
			values2[dst] = values[k]
			next[r]++
		}
	}
	return rowptr, colval2, values2
}
