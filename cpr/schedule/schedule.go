// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schedule implements the CPR update-scheduling state machine:
// deciding, for each call to Preconditioner.Update, whether to rebuild
// the AMG hierarchy, refresh it partially, or do neither.
package schedule

import "github.com/cpmech/gosl/io"

// Interval is the scheduling granularity for a rebuild kind.
type Interval string

const (
	Once      Interval = "once"
	Iteration Interval = "iteration"
	Ministep  Interval = "ministep"
	Step      Interval = "step"
)

// Config pairs a scheduling granularity with a frequency: a refresh of
// the associated kind fires every Frequency-th occurrence of Interval's
// counter.
type Config struct {
	Interval  Interval
	Frequency int
}

// Recorder is the minimal position reported by the outer nonlinear
// solver; duplicated here (rather than importing package cpr) to keep
// schedule free of a dependency on the rest of the CPR core.
type Recorder interface {
	Step() int
	Substep() int
	Subiteration() int
}

// Scheduler decides, per Update call, whether a full AMG rebuild and/or
// a partial AMG refresh should occur. It is stateless across calls apart
// from the one-shot "first call" flag: the first Decide always reports
// full=true regardless of configuration, since there is no hierarchy yet
// to refresh.
type Scheduler struct {
	AMG      Config
	Partial  Config
	primed   bool
}

// NewScheduler builds a Scheduler from the :amg and :partial configs.
func NewScheduler(amg, partial Config) *Scheduler {
	return &Scheduler{AMG: amg, Partial: partial}
}

// Decide returns (full, partial) — whether a full AMG rebuild and/or a
// partial refresh should occur for this call, given the recorder's
// current position. It never returns both true: a full rebuild already
// implies fresh AMG numerics, so partial is forced false when full is
// true.
func (s *Scheduler) Decide(rec Recorder) (full, partial bool, err error) {
	if !s.primed {
		s.primed = true
		return true, false, nil
	}
	full, err = evaluate(s.AMG, rec)
	if err != nil {
		return false, false, err
	}
	if full {
		return true, false, nil
	}
	partial, err = evaluate(s.Partial, rec)
	if err != nil {
		return false, false, err
	}
	return false, partial, nil
}

// evaluate applies the interval/frequency decision table to a single
// configuration.
func evaluate(cfg Config, rec Recorder) (bool, error) {
	if cfg.Frequency <= 0 {
		return false, nil
	}
	var crit bool
	var n int
	switch cfg.Interval {
	case Once:
		return false, nil // "never (after first call)" — first call handled by Scheduler.Decide
	case Iteration:
		crit = true
		n = rec.Subiteration()
	case Ministep:
		crit = rec.Subiteration() == 1
		n = rec.Substep()
	case Step:
		crit = rec.Subiteration() == 1
		n = rec.Step()
	default:
		return false, &BadConfigError{Interval: string(cfg.Interval)}
	}
	if !crit {
		return false, nil
	}
	if cfg.Frequency == 1 {
		return true, nil
	}
	return n%cfg.Frequency == 1, nil
}

// BadConfigError signals an unknown Interval tag.
type BadConfigError struct{ Interval string }

func (e *BadConfigError) Error() string {
	return io.Sf("schedule: unknown interval %q", e.Interval)
}
