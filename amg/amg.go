// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amg is the default pressure-subsystem collaborator for the CPR
// preconditioner: aggregation AMG, V-cycle, 1 pre-/post-smooth
// Gauss-Seidel forward sweep, <=10 levels, max coarse size 10 by
// default. The prolongation is the unsmoothed (tentative) 0/1 aggregation
// operator; no prolongation smoothing step is applied. It implements cpr/solve.AMG so a *amg.AMG can be passed
// directly as Options.PressurePrecond, as an external collaborator
// wired in by the caller rather than baked into the core.
package amg

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"

	"github.com/cpmech/cpr/cpr/solve"
)

// Operator is solve.Operator under this package's name: any scalar
// linear operator exposing a matrix-vector product. Aliased (not
// redeclared) so *AMG's method set is literally identical to what
// cpr/solve.AMG requires.
type Operator = solve.Operator

// Config holds the hierarchy's tunables.
type Config struct {
	MaxLevels     int
	MaxCoarseSize int
	PreSmooth     int
	PostSmooth    int
	StrengthTheta float64 // strong-connection threshold for aggregation
}

// DefaultConfig returns the default hierarchy configuration.
func DefaultConfig() Config {
	return Config{MaxLevels: 10, MaxCoarseSize: 10, PreSmooth: 1, PostSmooth: 1, StrengthTheta: 0.25}
}

// level is one grid in the aggregation hierarchy: the Galerkin
// operator Ac, the prolongation P (coarse -> fine) and restriction R
// (fine -> coarse, R = P^T).
type level struct {
	n      int
	rowptr []int
	colval []int
	values []float64
	diag   []float64 // Gauss-Seidel uses the diagonal directly
	p      *csrMatrix // prolongation from the next-coarser level, nil at the coarsest
	r      *csrMatrix // restriction to the next-coarser level
}

// csrMatrix is a minimal CSR matrix used internally for P/R/Galerkin
// products; its MulVec makes it an Operator, which is how LinearOperator
// hands the finest level to a caller.
type csrMatrix struct {
	rows, cols int
	rowptr     []int
	colval     []int
	values     []float64
}

func (m *csrMatrix) mulVec(y, x []float64) {
	for r := 0; r < m.rows; r++ {
		var s float64
		for k := m.rowptr[r]; k < m.rowptr[r+1]; k++ {
			s += m.values[k] * x[m.colval[k]]
		}
		y[r] = s
	}
}

// MulVec computes y = m*x, satisfying Operator.
func (m *csrMatrix) MulVec(y, x []float64) { m.mulVec(y, x) }

func (m *csrMatrix) mulTVec(y, x []float64) {
	for i := range y {
		y[i] = 0
	}
	for r := 0; r < m.rows; r++ {
		xr := x[r]
		if xr == 0 {
			continue
		}
		for k := m.rowptr[r]; k < m.rowptr[r+1]; k++ {
			y[m.colval[k]] += m.values[k] * xr
		}
	}
}

// AMG is the smoothed-aggregation multigrid collaborator. It satisfies
// the three-method AMG contract (Setup, Apply, PartialRefresh) plus
// LinearOperator, matching cpr/solve.AMG structurally.
type AMG struct {
	cfg    Config
	levels []level
}

// New builds an AMG collaborator with the given configuration.
func New(cfg Config) *AMG {
	return &AMG{cfg: cfg}
}

// Setup rebuilds the entire hierarchy from scratch: aggregation,
// prolongation/restriction and Galerkin coarse operators at every level.
func (a *AMG) Setup(Ap Operator, rp []float64, ctx any) error {
	fine, ok := Ap.(csrLike)
	if !ok {
		chk.Panic("amg: Setup requires an operator exposing its CSR pattern")
	}
	a.levels = a.levels[:0]
	cur := toCSR(fine)
	for lvl := 0; lvl < a.cfg.MaxLevels; lvl++ {
		lv := level{n: cur.rows, rowptr: cur.rowptr, colval: cur.colval, values: cur.values}
		lv.diag = extractDiag(cur)
		a.levels = append(a.levels, lv)
		if cur.rows <= a.cfg.MaxCoarseSize {
			break
		}
		agg := aggregate(cur, a.cfg.StrengthTheta)
		p := prolongationFromAggregates(cur, agg)
		r := transposeCSR(p)
		coarse := galerkin(r, cur, p)
		a.levels[lvl].p = p
		a.levels[lvl].r = r
		cur = coarse
	}
	return nil
}

// PartialRefresh keeps the coarsening (P/R and the set of levels) but
// recomputes each level's fine-grid values via fresh Galerkin products
// from the new finest-level values.
func (a *AMG) PartialRefresh(Ap Operator, rp []float64, ctx any) error {
	if len(a.levels) == 0 {
		return a.Setup(Ap, rp, ctx)
	}
	fine, ok := Ap.(csrLike)
	if !ok {
		chk.Panic("amg: PartialRefresh requires an operator exposing its CSR pattern")
	}
	cur := toCSR(fine)
	a.levels[0].values = cur.values
	a.levels[0].diag = extractDiag(cur)
	for lvl := 0; lvl < len(a.levels)-1; lvl++ {
		p := a.levels[lvl].p
		r := a.levels[lvl].r
		coarse := galerkin(r, cur, p)
		a.levels[lvl+1].rowptr = coarse.rowptr
		a.levels[lvl+1].colval = coarse.colval
		a.levels[lvl+1].values = coarse.values
		a.levels[lvl+1].diag = extractDiag(coarse)
		cur = coarse
	}
	return nil
}

// Apply runs a single V-cycle: PreSmooth Gauss-Seidel sweeps going down,
// a (near-)exact solve at the coarsest level, PostSmooth sweeps going up.
func (a *AMG) Apply(dp, rp []float64) error {
	if len(a.levels) == 0 {
		copy(dp, rp)
		return nil
	}
	x := make([]float64, len(dp))
	a.vcycle(0, x, rp)
	copy(dp, x)
	return nil
}

func (a *AMG) vcycle(lvl int, x, b []float64) {
	lv := a.levels[lvl]
	if lvl == len(a.levels)-1 {
		gaussSeidel(lv, x, b, 50) // coarsest grid: many sweeps stand in for a direct solve
		return
	}
	for i := 0; i < a.cfg.PreSmooth; i++ {
		gaussSeidel(lv, x, b, 1)
	}
	res := make([]float64, lv.n)
	residual(lv, x, b, res)
	rc := make([]float64, lv.p.cols)
	lv.r.mulVec(rc, res)
	xc := make([]float64, lv.p.cols)
	a.vcycle(lvl+1, xc, rc)
	corr := make([]float64, lv.n)
	lv.p.mulVec(corr, xc)
	for i := range x {
		x[i] += corr[i]
	}
	for i := 0; i < a.cfg.PostSmooth; i++ {
		gaussSeidel(lv, x, b, 1)
	}
}

func residual(lv level, x, b, res []float64) {
	for r := 0; r < lv.n; r++ {
		s := b[r]
		for k := lv.rowptr[r]; k < lv.rowptr[r+1]; k++ {
			s -= lv.values[k] * x[lv.colval[k]]
		}
		res[r] = s
	}
}

// gaussSeidel runs sweeps forward Gauss-Seidel sweeps of A x = b.
func gaussSeidel(lv level, x, b []float64, sweeps int) {
	for s := 0; s < sweeps; s++ {
		for r := 0; r < lv.n; r++ {
			sum := b[r]
			var diag float64
			for k := lv.rowptr[r]; k < lv.rowptr[r+1]; k++ {
				c := lv.colval[k]
				if c == r {
					diag = lv.values[k]
					continue
				}
				sum -= lv.values[k] * x[c]
			}
			if diag != 0 {
				x[r] = sum / diag
			}
		}
	}
}

// LinearOperator returns the finest-level operator, used by the solver
// harness (cpr/solve) as the matrix for FGMRES tightening.
func (a *AMG) LinearOperator() Operator {
	if len(a.levels) == 0 {
		return nil
	}
	lv := a.levels[0]
	return &csrMatrix{rows: lv.n, cols: lv.n, rowptr: lv.rowptr, colval: lv.colval, values: lv.values}
}

func extractDiag(m *csrMatrix) []float64 {
	d := make([]float64, m.rows)
	for r := 0; r < m.rows; r++ {
		for k := m.rowptr[r]; k < m.rowptr[r+1]; k++ {
			if m.colval[k] == r {
				d[r] = m.values[k]
			}
		}
	}
	return d
}

// csrLike is any scalar operator that can also expose its own CSR
// pattern; spmat.CSC and spmat.CSR both offer this via a small adapter
// method set so amg.Setup can read the matrix it is handed directly
// instead of rediscovering it through matrix-vector products.
type csrLike interface {
	Operator
	CSRPattern() (rowptr, colval []int, values []float64)
}

func toCSR(m csrLike) *csrMatrix {
	rp, cv, vv := m.CSRPattern()
	return &csrMatrix{rows: len(rp) - 1, cols: len(rp) - 1, rowptr: rp, colval: cv, values: vv}
}

func transposeCSR(m *csrMatrix) *csrMatrix {
	counts := make([]int, m.cols+1)
	for _, c := range m.colval {
		counts[c+1]++
	}
	for i := 1; i <= m.cols; i++ {
		counts[i] += counts[i-1]
	}
	rowptr := counts
	colval := make([]int, len(m.colval))
	values := make([]float64, len(m.values))
	next := append([]int(nil), rowptr...)
	for r := 0; r < m.rows; r++ {
		for k := m.rowptr[r]; k < m.rowptr[r+1]; k++ {
			c := m.colval[k]
			dst := next[c]
			colval[dst] = r
			values[dst] = m.values[k]
			next[c]++
		}
	}
	return &csrMatrix{rows: m.cols, cols: m.rows, rowptr: rowptr, colval: colval, values: values}
}

// aggregate assigns each fine row to an aggregate id using a simple
// greedy strength-of-connection pass (standard aggregation seed step);
// the prolongation built from it is used as is, without smoothing.
func aggregate(m *csrMatrix, theta float64) []int {
	agg := make([]int, m.n())
	for i := range agg {
		agg[i] = -1
	}
	nextID := 0
	diag := extractDiag(m)
	for r := 0; r < m.rows; r++ {
		if agg[r] >= 0 {
			continue
		}
		id := nextID
		nextID++
		agg[r] = id
		threshold := theta * math.Sqrt(math.Abs(diag[r]))
		for k := m.rowptr[r]; k < m.rowptr[r+1]; k++ {
			c := m.colval[k]
			if c == r || agg[c] >= 0 {
				continue
			}
			if math.Abs(m.values[k]) >= threshold {
				agg[c] = id
			}
		}
	}
	return agg
}

func (m *csrMatrix) n() int { return m.rows }

// prolongationFromAggregates builds the 0/1 tentative prolongation P
// where P[i, agg[i]] = 1.
func prolongationFromAggregates(m *csrMatrix, agg []int) *csrMatrix {
	ncoarse := 0
	for _, id := range agg {
		if id+1 > ncoarse {
			ncoarse = id + 1
		}
	}
	rowptr := make([]int, m.rows+1)
	colval := make([]int, m.rows)
	values := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		rowptr[i+1] = rowptr[i] + 1
		colval[i] = agg[i]
		values[i] = 1
	}
	return &csrMatrix{rows: m.rows, cols: ncoarse, rowptr: rowptr, colval: colval, values: values}
}

// galerkin computes Ac = R * A * P via two sparse-dense-ish products,
// accumulated through a dense row scratch (grids here are small, and AMG
// is wired in as an opaque collaborator, so this implementation favors
// clarity over industrial-scale sparse-sparse multiply performance).
func galerkin(r, a, p *csrMatrix) *csrMatrix {
	nc := r.rows
	tmp := make([]float64, a.cols)
	coarse := la.MatAlloc(nc, nc)
	for i := 0; i < nc; i++ {
		for j := range tmp {
			tmp[j] = 0
		}
		for k := r.rowptr[i]; k < r.rowptr[i+1]; k++ {
			fr := r.colval[k]
			rv := r.values[k]
			for kk := a.rowptr[fr]; kk < a.rowptr[fr+1]; kk++ {
				tmp[a.colval[kk]] += rv * a.values[kk]
			}
		}
		for j := 0; j < p.rows; j++ {
			for k := p.rowptr[j]; k < p.rowptr[j+1]; k++ {
				coarse[i][p.colval[k]] += tmp[j] * p.values[k]
			}
		}
	}
	rowptr := make([]int, nc+1)
	var colval []int
	var values []float64
	for i := 0; i < nc; i++ {
		for j := 0; j < nc; j++ {
			if coarse[i][j] != 0 {
				colval = append(colval, j)
				values = append(values, coarse[i][j])
			}
		}
		rowptr[i+1] = len(colval)
	}
	return &csrMatrix{rows: nc, cols: nc, rowptr: rowptr, colval: colval, values: values}
}
