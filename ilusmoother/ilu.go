// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ilusmoother is the default full-system collaborator for the CPR
// preconditioner: a block-incomplete-LU factorization with no structural
// fill-in, applied as a forward/backward block triangular solve.
package ilusmoother

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"

	"github.com/cpmech/cpr/cpr"
	"github.com/cpmech/cpr/cpr/spmat"
)

// Smoother is a block-ILU(0) factorization of the full system operator,
// satisfying cpr.SystemPrecond.
type Smoother struct {
	n, b int

	rowptr []int
	colval []int
	blocks [][][]float64 // L (strictly below diag, unit diag implied) and U (on/above diag), in place
	diag   []int         // diag[i] = index of the (i,i) block within blocks

	diagInv [][][]float64 // Uii^-1, cached for Apply

	buf []float64 // scratch for forward/backward substitution
}

// New constructs an empty (unfactorized) block-ILU(0) smoother.
func New() *Smoother {
	return &Smoother{}
}

// Setup factors A's structural pattern in place, rebuilding the
// smoother on every call. A must also expose its block structure
// (spmat.BlockShell) — the scalar MulVec-only view a generic
// SystemOperator offers is not enough to factor a block matrix, the
// same way package amg requires its operator to expose a CSR pattern.
func (s *Smoother) Setup(a cpr.SystemOperator) error {
	shell, ok := a.(spmat.BlockShell)
	if !ok {
		chk.Panic("ilusmoother: Setup requires an operator exposing block structure (spmat.BlockShell)")
	}

	n, b := shell.N(), shell.B()
	var rowptr, colval []int
	var blocksSrc [][][]float64
	switch m := shell.(type) {
	case *spmat.BlockCSR:
		rowptr, colval, blocksSrc = m.Rowptr, m.Colval, m.Blocks
	case *spmat.BlockCSC:
		rowptr, colval, blocksSrc = m.RowMajor()
	default:
		chk.Panic("ilusmoother: unsupported block shell concrete type")
	}

	s.n, s.b = n, b
	s.rowptr = rowptr
	s.colval = colval
	s.blocks = make([][][]float64, len(blocksSrc))
	for k, blk := range blocksSrc {
		s.blocks[k] = cloneBlock(blk)
	}
	s.diag = make([]int, n)
	for i := 0; i < n; i++ {
		s.diag[i] = -1
		for k := rowptr[i]; k < rowptr[i+1]; k++ {
			if colval[k] == i {
				s.diag[i] = k
				break
			}
		}
		if s.diag[i] < 0 {
			return &FactorizationError{Row: i, Err: errNoDiagonal}
		}
	}
	if s.buf == nil || len(s.buf) != n*b {
		s.buf = make([]float64, n*b)
	}

	if err := s.factorize(); err != nil {
		return err
	}
	return s.cacheDiagInverses()
}

// factorize runs the standard block-ILU(0) row sweep: for each row i and
// each structural predecessor k < i, eliminate using L_ik = A_ik * U_kk^-1
// and update every entry (i,j) that is structurally present in both row i
// and row k (no fill-in outside the original pattern).
func (s *Smoother) factorize() error {
	for i := 0; i < s.n; i++ {
		for k := s.rowptr[i]; k < s.rowptr[i+1] && s.colval[k] < i; k++ {
			col := s.colval[k]
			ukk := s.blocks[s.diag[col]]
			lik, err := solveRightInverse(s.blocks[k], ukk)
			if err != nil {
				return &FactorizationError{Row: i, Err: err}
			}
			s.blocks[k] = lik

			for kk := s.rowptr[col]; kk < s.rowptr[col+1]; kk++ {
				j := s.colval[kk]
				if j <= col {
					continue
				}
				pos := s.findCol(i, j)
				if pos < 0 {
					continue // no structural fill-in (ILU(0)): drop the update
				}
				ukj := s.blocks[kk]
				subtractProduct(s.blocks[pos], lik, ukj)
			}
		}
	}
	return nil
}

// findCol returns the block index of structural entry (row, col), or -1.
func (s *Smoother) findCol(row, col int) int {
	for k := s.rowptr[row]; k < s.rowptr[row+1]; k++ {
		if s.colval[k] == col {
			return k
		}
	}
	return -1
}

func (s *Smoother) cacheDiagInverses() error {
	s.diagInv = make([][][]float64, s.n)
	for i := 0; i < s.n; i++ {
		inv, err := invertBlock(s.blocks[s.diag[i]])
		if err != nil {
			return &FactorizationError{Row: i, Err: err}
		}
		s.diagInv[i] = inv
	}
	return nil
}

// Apply computes y = S^-1 x via block forward substitution (unit-diagonal
// L) followed by block backward substitution (U, diagonal from the
// cached inverses).
func (s *Smoother) Apply(y, x []float64) error {
	if s.n == 0 {
		copy(y, x)
		return nil
	}
	b := s.b
	z := s.buf
	copy(z, x)

	// forward: L t = x, unit diagonal
	for i := 0; i < s.n; i++ {
		row := z[i*b : i*b+b]
		for k := s.rowptr[i]; k < s.rowptr[i+1] && s.colval[k] < i; k++ {
			col := s.colval[k]
			lik := s.blocks[k]
			xc := z[col*b : col*b+b]
			for r := 0; r < b; r++ {
				var sum float64
				for c := 0; c < b; c++ {
					sum += lik[r][c] * xc[c]
				}
				row[r] -= sum
			}
		}
	}

	// backward: U y = t
	for i := s.n - 1; i >= 0; i-- {
		row := z[i*b : i*b+b]
		for k := s.rowptr[i]; k < s.rowptr[i+1]; k++ {
			col := s.colval[k]
			if col <= i {
				continue
			}
			ukj := s.blocks[k]
			xc := y[col*b : col*b+b] // already solved, higher index, stored in y
			for r := 0; r < b; r++ {
				var sum float64
				for c := 0; c < b; c++ {
					sum += ukj[r][c] * xc[c]
				}
				row[r] -= sum
			}
		}
		inv := s.diagInv[i]
		out := y[i*b : i*b+b]
		for r := 0; r < b; r++ {
			var sum float64
			for c := 0; c < b; c++ {
				sum += inv[r][c] * row[c]
			}
			out[r] = sum
		}
	}
	return nil
}

// FactorizationError reports a block-ILU(0) pivot failure at a given row.
type FactorizationError struct {
	Row int
	Err error
}

func (e *FactorizationError) Error() string {
	return io.Sf("ilusmoother: factorization failed at row %d: %v", e.Row, e.Err)
}

func (e *FactorizationError) Unwrap() error { return e.Err }

var errNoDiagonal = noDiagonalError{}

type noDiagonalError struct{}

func (noDiagonalError) Error() string { return "missing structural diagonal block" }

// solveRightInverse computes A * U^-1 by solving U^T X^T = A^T, i.e.
// X = A * U^-1 without forming U^-1 explicitly.
func solveRightInverse(a, u [][]float64) ([][]float64, error) {
	ut := transposeBlock(u)
	at := transposeBlock(a)
	x, err := gaussSolveMulti(ut, at)
	if err != nil {
		return nil, err
	}
	return transposeBlock(x), nil
}

// invertBlock computes m^-1 for a small dense b×b block via
// Gauss-Jordan elimination against the identity.
func invertBlock(m [][]float64) ([][]float64, error) {
	b := len(m)
	ident := la.MatAlloc(b, b)
	for i := range ident {
		ident[i][i] = 1
	}
	return gaussSolveMulti(m, ident)
}

// gaussSolveMulti solves A X = B (B and X both b×b) by Gaussian
// elimination with partial pivoting; A and B are used as scratch copies
// internally, the caller's originals are untouched.
func gaussSolveMulti(a, b [][]float64) ([][]float64, error) {
	n := len(a)
	m := cloneBlock(a)
	rhs := cloneBlock(b)

	for col := 0; col < n; col++ {
		piv := col
		best := math.Abs(m[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(m[r][col]); v > best {
				piv, best = r, v
			}
		}
		if best < 1e-300 {
			return nil, errSingular
		}
		if piv != col {
			m[col], m[piv] = m[piv], m[col]
			rhs[col], rhs[piv] = rhs[piv], rhs[col]
		}
		pivVal := m[col][col]
		for r := col + 1; r < n; r++ {
			factor := m[r][col] / pivVal
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				m[r][c] -= factor * m[col][c]
			}
			for c := 0; c < n; c++ {
				rhs[r][c] -= factor * rhs[col][c]
			}
		}
	}

	x := la.MatAlloc(n, n)
	for r := n - 1; r >= 0; r-- {
		if math.Abs(m[r][r]) < 1e-300 {
			return nil, errSingular
		}
		for c := 0; c < n; c++ {
			sum := rhs[r][c]
			for cc := r + 1; cc < n; cc++ {
				sum -= m[r][cc] * x[cc][c]
			}
			x[r][c] = sum / m[r][r]
		}
	}
	return x, nil
}

var errSingular = singularError{}

type singularError struct{}

func (singularError) Error() string { return "singular diagonal block" }

// subtractProduct computes dst -= l*u in place, l,u,dst all b×b.
func subtractProduct(dst, l, u [][]float64) {
	n := len(dst)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += l[r][k] * u[k][c]
			}
			dst[r][c] -= sum
		}
	}
}

func cloneBlock(m [][]float64) [][]float64 {
	out := la.MatAlloc(len(m), len(m))
	for i, row := range m {
		copy(out[i], row)
	}
	return out
}

func transposeBlock(m [][]float64) [][]float64 {
	n := len(m)
	out := la.MatAlloc(n, n)
	for i := range out {
		for j := 0; j < n; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}
