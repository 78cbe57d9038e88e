// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package weights

import "github.com/cpmech/gosl/chk"

func init() {
	register(Analytical, computeAnalytical)
}

// computeAnalytical hands control to the caller-provided closure, which
// fills W directly from physical state. The core treats it as opaque: it
// neither inspects nor constrains what the closure writes beyond the
// dimensions already allocated in ctx.W.
func computeAnalytical(ctx *Context) error {
	if ctx.Analytical == nil {
		chk.Panic("weights: analytical strategy selected without an Analytical callback")
	}
	return ctx.Analytical(ctx.W)
}
