// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpr

import (
	"golang.org/x/sync/errgroup"

	"github.com/cpmech/cpr/cpr/spmat"
	"github.com/cpmech/cpr/cpr/weights"
)

// rebuildPressureValues writes every structural nonzero of Ap as the
// projection of the Jacobian block's pressure column onto the row's
// weight vector,
//
//	Ap.values[k] = sum_{i=0..b-1} J.blocks[k][i,0] * W[i, row(k)]
//
// (column 0 of each block is the pressure column). Parallel over groups
// (columns for CSC, rows for CSR); writes are disjoint so no
// synchronization is required beyond errgroup's join at the end.
func rebuildPressureValues(Ap spmat.ValueShell, J spmat.BlockShell, W *weights.Weights, minBatch int) error {
	pattern := J.Pattern()
	ngroups := pattern.NGroups()
	batch := chooseBatch(ngroups, minBatch)
	if batch >= ngroups {
		for g := 0; g < ngroups; g++ {
			rebuildGroup(Ap, J, W, pattern, g)
		}
		return nil
	}
	var g errgroup.Group
	for start := 0; start < ngroups; start += batch {
		start := start
		end := start + batch
		if end > ngroups {
			end = ngroups
		}
		g.Go(func() error {
			for grp := start; grp < end; grp++ {
				rebuildGroup(Ap, J, W, pattern, grp)
			}
			return nil
		})
	}
	return g.Wait()
}

func rebuildGroup(Ap spmat.ValueShell, J spmat.BlockShell, W *weights.Weights, pattern spmat.Pattern, g int) {
	start, end := pattern.Group(g)
	for k := start; k < end; k++ {
		row := pattern.RowOf(g, k)
		block := J.Block(k)
		w := W.Col(row)
		var sum float64
		for i := 0; i < J.B(); i++ {
			sum += block[i][0] * w[i]
		}
		Ap.Set(k, sum)
	}
}

func chooseBatch(n, minBatch int) int {
	if minBatch <= 0 || minBatch >= n {
		return n
	}
	return minBatch
}
