// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpr

import (
	"github.com/cpmech/cpr/cpr/schedule"
	"github.com/cpmech/cpr/cpr/weights"
)

// Options collects every constructor option. It is built from functional
// Option values the way fun.Prms/prms.Connect wires named parameters in
// gofem's material models, but expressed as plain Go options since this
// option set is fixed and small.
type Options struct {
	PressurePrecond AMG
	SystemPrecond   SystemPrecond

	Strategy      weights.Strategy
	WeightScaling weights.Scaling

	UpdateFrequency        int
	UpdateInterval         schedule.Interval
	UpdateFrequencyPartial int
	UpdateIntervalPartial  schedule.Interval
	PartialUpdate          bool

	PRtol float64 // <=0 disables FGMRES tightening

	PScale float64 // pressure-scaling scalar consumed by true_impes

	MinParallelBatch int // minimum cells/columns per goroutine; <=0 disables parallelism

	Verbose bool

	analyticalFn func(w *weights.Weights) error
}

// Option mutates Options during New.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Strategy:               weights.QuasiImpes,
		WeightScaling:          weights.Unit,
		UpdateFrequency:        1,
		UpdateInterval:         schedule.Ministep,
		UpdateFrequencyPartial: 1,
		UpdateIntervalPartial:  schedule.Iteration,
		PartialUpdate:          true,
		PScale:                 1,
		MinParallelBatch:       256,
	}
}

func WithPressurePrecond(amg AMG) Option { return func(o *Options) { o.PressurePrecond = amg } }
func WithSystemPrecond(sp SystemPrecond) Option {
	return func(o *Options) { o.SystemPrecond = sp }
}
func WithStrategy(s weights.Strategy) Option    { return func(o *Options) { o.Strategy = s } }
func WithWeightScaling(s weights.Scaling) Option { return func(o *Options) { o.WeightScaling = s } }
func WithUpdateFrequency(n int) Option          { return func(o *Options) { o.UpdateFrequency = n } }
func WithUpdateInterval(i schedule.Interval) Option {
	return func(o *Options) { o.UpdateInterval = i }
}
func WithUpdateFrequencyPartial(n int) Option {
	return func(o *Options) { o.UpdateFrequencyPartial = n }
}
func WithUpdateIntervalPartial(i schedule.Interval) Option {
	return func(o *Options) { o.UpdateIntervalPartial = i }
}
func WithPartialUpdate(enabled bool) Option { return func(o *Options) { o.PartialUpdate = enabled } }
func WithPRtol(rtol float64) Option         { return func(o *Options) { o.PRtol = rtol } }
func WithPScale(s float64) Option           { return func(o *Options) { o.PScale = s } }
func WithMinParallelBatch(n int) Option {
	return func(o *Options) { o.MinParallelBatch = n }
}
func WithVerbose(v bool) Option { return func(o *Options) { o.Verbose = v } }

// AnalyticalWeights installs the caller's closure for the `analytical`
// weight strategy. It also selects that strategy.
func AnalyticalWeights(fn func(w *weights.Weights) error) Option {
	return func(o *Options) {
		o.Strategy = weights.Analytical
		o.analyticalFn = fn
	}
}
