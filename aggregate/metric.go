// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package aggregate

import (
	"fmt"
	"math"
	"reflect"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/frame"
	"github.com/grailbio/polyslice/kernel"
)

// State is the partial result of a metric over some of a column's
// values.
type State interface{}

// A Metric computes a set of named outputs from a column. Metrics are
// computed in pieces: Prepare computes the state of a chunk of the
// column, and Merge combines the states of two chunks. Merge must be
// associative and must not modify its arguments.
type Metric interface {
	// Name identifies the metric.
	Name() string
	// Outputs names the values returned by Present, in order.
	Outputs() []string
	// Accepts tells whether the metric can be computed over columns
	// with the provided element type.
	Accepts(elem reflect.Type) bool
	Prepare(col frame.Column) (State, error)
	Merge(a, b State) State
	// Present returns the metric's output values for the given state.
	// Each output has the same dynamic type for every state.
	Present(s State) []interface{}
}

// Continuous returns the metric set for numeric columns: count, sum,
// mean, std, min, max, null_count. Missing (NaN) values are counted
// in null_count only; std is the population standard deviation.
func Continuous() Metric { return continuous{} }

type continuous struct{}

func (continuous) Name() string { return "continuous" }

func (continuous) Outputs() []string {
	return []string{"count", "sum", "mean", "std", "min", "max", "null_count"}
}

func (continuous) Accepts(elem reflect.Type) bool {
	return kernel.Implements(elem, kernel.SummarizerInterface)
}

func (continuous) Prepare(col frame.Column) (State, error) {
	var s kernel.Summarizer
	if !kernel.Lookup(col.ElemType(), &s) {
		return nil, errors.E(errors.NotSupported, fmt.Sprintf("aggregate: cannot summarize %s", col.ElemType()))
	}
	return s.Summarize(col), nil
}

func (continuous) Merge(a, b State) State {
	return a.(kernel.Summary).Merge(b.(kernel.Summary))
}

func (continuous) Present(state State) []interface{} {
	s := state.(kernel.Summary)
	mean, min, max := s.Mean, s.Min, s.Max
	if s.Count == 0 {
		mean, min, max = math.NaN(), math.NaN(), math.NaN()
	}
	return []interface{}{s.Count, s.Sum, mean, s.Std(), min, max, s.NullCount}
}

// Categorical returns the metric set for categorical columns: count,
// num_unique, top, top_freq, min_len, max_len. Values are compared by
// their string representation; lengths are of that representation.
func Categorical() Metric { return categorical{} }

type categorical struct{}

func (categorical) Name() string { return "categorical" }

func (categorical) Outputs() []string {
	return []string{"count", "num_unique", "top", "top_freq", "min_len", "max_len"}
}

func (categorical) Accepts(elem reflect.Type) bool {
	return kernel.Implements(elem, kernel.CounterInterface)
}

func (categorical) Prepare(col frame.Column) (State, error) {
	var c kernel.Counter
	if !kernel.Lookup(col.ElemType(), &c) {
		return nil, errors.E(errors.NotSupported, fmt.Sprintf("aggregate: cannot count %s", col.ElemType()))
	}
	counts := make(kernel.Counts)
	c.Count(col, counts)
	return counts, nil
}

func (categorical) Merge(a, b State) State {
	out := make(kernel.Counts)
	out.Merge(a.(kernel.Counts))
	out.Merge(b.(kernel.Counts))
	return out
}

func (categorical) Present(state State) []interface{} {
	counts := state.(kernel.Counts)
	top, freq := counts.Top()
	min, max := counts.LenRange()
	return []interface{}{counts.Total(), int64(len(counts)), top, freq, int64(min), int64(max)}
}
