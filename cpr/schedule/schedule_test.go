// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schedule

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

type fixedRecorder struct{ step, substep, iter int }

func (r fixedRecorder) Step() int         { return r.step }
func (r fixedRecorder) Substep() int      { return r.substep }
func (r fixedRecorder) Subiteration() int { return r.iter }

// TestIterationIntervalDecisionTable exercises evaluate directly,
// bypassing the one-shot "first call" flag in Scheduler.Decide.
func TestIterationIntervalDecisionTable(tst *testing.T) {
	chk.PrintTitle("iteration-interval decision table")
	rec := fixedRecorder{step: 1, substep: 1, iter: 3}

	full, err := evaluate(Config{Interval: Iteration, Frequency: 1}, rec)
	if err != nil || !full {
		tst.Fatalf("freq=1,it=3: got (%v,%v), want (true,nil)", full, err)
	}

	rec.iter = 2
	full, err = evaluate(Config{Interval: Iteration, Frequency: 2}, rec)
	if err != nil || full {
		tst.Fatalf("freq=2,it=2: got (%v,%v), want (false,nil)", full, err)
	}

	rec.iter = 3
	full, err = evaluate(Config{Interval: Iteration, Frequency: 2}, rec)
	if err != nil || !full {
		tst.Fatalf("freq=2,it=3: got (%v,%v), want (true,nil)", full, err)
	}
}

// TestPartialVsFullAcrossStepIterations covers update_interval=:step,
// update_interval_partial=:iteration. Across iterations 1-3 of step 1,
// iteration 1 is the scheduler's first call (always full); iterations 2
// and 3 trigger partial-only refreshes.
func TestPartialVsFullAcrossStepIterations(tst *testing.T) {
	chk.PrintTitle("partial vs full across a step's iterations")
	s := NewScheduler(
		Config{Interval: Step, Frequency: 1},
		Config{Interval: Iteration, Frequency: 1},
	)

	var setups, partials int
	for it := 1; it <= 3; it++ {
		rec := fixedRecorder{step: 1, substep: 1, iter: it}
		full, partial, err := s.Decide(rec)
		if err != nil {
			tst.Fatalf("it=%d: unexpected error %v", it, err)
		}
		if full {
			setups++
		}
		if partial {
			partials++
		}
		if full && partial {
			tst.Fatalf("it=%d: full and partial both true", it)
		}
	}
	if setups != 1 {
		tst.Fatalf("setup-count: got %d, want 1", setups)
	}
	if partials != 2 {
		tst.Fatalf("partial-refresh-count: got %d, want 2", partials)
	}
}

func TestBadConfigError(tst *testing.T) {
	chk.PrintTitle("unknown interval tag surfaces a typed error")
	rec := fixedRecorder{step: 1, substep: 1, iter: 1}
	_, err := evaluate(Config{Interval: Interval("bogus"), Frequency: 1}, rec)
	if _, ok := err.(*BadConfigError); !ok {
		tst.Fatalf("expected *BadConfigError, got %T (%v)", err, err)
	}
}
