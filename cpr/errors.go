// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpr

import (
	"fmt"

	"github.com/cpmech/gosl/io"
)

// BadScheduleConfigError signals an unknown update_interval tag.
type BadScheduleConfigError struct{ Interval string }

func (e *BadScheduleConfigError) Error() string {
	return io.Sf("cpr: bad schedule config: unknown interval %q", e.Interval)
}

// UnsupportedStrategyError signals an unknown weight strategy tag.
type UnsupportedStrategyError struct{ Strategy string }

func (e *UnsupportedStrategyError) Error() string {
	return io.Sf("cpr: unsupported weight strategy %q", e.Strategy)
}

// WeightSolveFailureError signals a singular per-cell weight system.
type WeightSolveFailureError struct {
	Cell int
	Err  error
}

func (e *WeightSolveFailureError) Error() string {
	return io.Sf("cpr: weight solve failed at cell %d: %v", e.Cell, e.Err)
}

func (e *WeightSolveFailureError) Unwrap() error { return e.Err }

// DimensionMismatchError signals that A_p and J disagree on nnz, i.e. Ap
// no longer shares J's structural pattern — always a caller bug. The first
// Update also returns it, with ApNNZ = -1, when J is neither a
// *spmat.BlockCSC nor a *spmat.BlockCSR.
type DimensionMismatchError struct {
	ApNNZ, JNNZ int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("cpr: dimension mismatch: A_p has %d nonzeros, J has %d", e.ApNNZ, e.JNNZ)
}
