// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package weights

import (
	"math"

	"github.com/cpmech/gosl/la"
)

// solveSmall solves the dense b×b system M w = e1 (e1 = (1,0,...,0)) by
// Gaussian elimination with partial pivoting, writing the result into w.
// M is modified in place as scratch. b is small (typically <=8), so no
// sparse/BLAS machinery is warranted here — one small dense solve per
// cell.
func solveSmall(m [][]float64, w []float64) error {
	b := len(m)
	rhs := make([]float64, b)
	rhs[0] = 1

	for col := 0; col < b; col++ {
		piv := col
		best := math.Abs(m[col][col])
		for r := col + 1; r < b; r++ {
			if v := math.Abs(m[r][col]); v > best {
				piv, best = r, v
			}
		}
		if best < 1e-300 {
			return errSingular
		}
		if piv != col {
			m[col], m[piv] = m[piv], m[col]
			rhs[col], rhs[piv] = rhs[piv], rhs[col]
		}
		pivVal := m[col][col]
		for r := col + 1; r < b; r++ {
			factor := m[r][col] / pivVal
			if factor == 0 {
				continue
			}
			for c := col; c < b; c++ {
				m[r][c] -= factor * m[col][c]
			}
			rhs[r] -= factor * rhs[col]
		}
	}

	for r := b - 1; r >= 0; r-- {
		sum := rhs[r]
		for c := r + 1; c < b; c++ {
			sum -= m[r][c] * w[c]
		}
		if math.Abs(m[r][r]) < 1e-300 {
			return errSingular
		}
		w[r] = sum / m[r][r]
	}
	return nil
}

var errSingular = errSingularType{}

type errSingularType struct{}

func (errSingularType) Error() string { return "singular matrix" }

// cloneBlock returns a deep copy of a b×b dense block, allocated with
// la.MatAlloc, so solveSmall can destroy it as scratch without mutating
// the caller's Jacobian.
func cloneBlock(m [][]float64) [][]float64 {
	out := la.MatAlloc(len(m), len(m))
	for i, row := range m {
		copy(out[i], row)
	}
	return out
}

// transpose returns the transpose of a square dense block.
func transpose(m [][]float64) [][]float64 {
	b := len(m)
	out := la.MatAlloc(b, b)
	for i := range out {
		for j := 0; j < b; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}
