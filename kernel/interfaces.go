// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"math"
	"reflect"
	"sort"

	"github.com/grailbio/polyslice/frame"
)

// The following are provided as convenience types to look up
// standard kernels.
var (
	SummarizerInterface = reflect.TypeOf((*Summarizer)(nil)).Elem()
	CounterInterface    = reflect.TypeOf((*Counter)(nil)).Elem()
)

// A Summarizer computes summary statistics of numeric columns.
type Summarizer interface {
	// Summarize summarizes the values in the provided column.
	Summarize(frame.Column) Summary
}

// A Counter counts the distinct values of categorical columns.
type Counter interface {
	// Count adds the number of occurrences of each value in the
	// provided column to counts.
	Count(col frame.Column, counts Counts)
}

// Summary holds mergeable summary statistics of a set of values.
// Missing values (NaNs) are counted in NullCount and excluded from
// the other statistics.
type Summary struct {
	// Count is the number of non-missing values.
	Count int64
	// NullCount is the number of missing values.
	NullCount int64
	Sum       float64
	Mean      float64
	// M2 is the sum of squared deviations from the mean.
	M2       float64
	Min, Max float64
}

// EmptySummary is the summary of no values.
var EmptySummary = Summary{Min: math.Inf(1), Max: math.Inf(-1)}

// Add returns the summary s updated with the value v.
func (s Summary) Add(v float64) Summary {
	if math.IsNaN(v) {
		s.NullCount++
		return s
	}
	s.Count++
	s.Sum += v
	d := v - s.Mean
	s.Mean += d / float64(s.Count)
	s.M2 += d * (v - s.Mean)
	s.Min = math.Min(s.Min, v)
	s.Max = math.Max(s.Max, v)
	return s
}

// Merge returns the summary of the union of the values summarized by
// s and t.
func (s Summary) Merge(t Summary) Summary {
	out := Summary{
		Count:     s.Count + t.Count,
		NullCount: s.NullCount + t.NullCount,
		Sum:       s.Sum + t.Sum,
		Min:       math.Min(s.Min, t.Min),
		Max:       math.Max(s.Max, t.Max),
	}
	switch {
	case s.Count == 0:
		out.Mean, out.M2 = t.Mean, t.M2
	case t.Count == 0:
		out.Mean, out.M2 = s.Mean, s.M2
	default:
		n, m := float64(s.Count), float64(t.Count)
		d := t.Mean - s.Mean
		out.Mean = s.Mean + d*m/(n+m)
		out.M2 = s.M2 + t.M2 + d*d*n*m/(n+m)
	}
	return out
}

// Std returns the population standard deviation of the summarized
// values, or NaN if there are none.
func (s Summary) Std() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return math.Sqrt(s.M2 / float64(s.Count))
}

// Counts maps the string representation of values to their number of
// occurrences.
type Counts map[string]int64

// Merge adds the counts in c to d.
func (d Counts) Merge(c Counts) {
	for k, n := range c {
		d[k] += n
	}
}

// Total returns the total number of counted values.
func (d Counts) Total() int64 {
	var n int64
	for _, c := range d {
		n += c
	}
	return n
}

// Top returns the most frequent value and its count. Ties are broken
// by choosing the smallest value.
func (d Counts) Top() (string, int64) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var (
		top  string
		freq int64 = -1
	)
	for _, k := range keys {
		if d[k] > freq {
			top, freq = k, d[k]
		}
	}
	if freq < 0 {
		freq = 0
	}
	return top, freq
}

// LenRange returns the minimum and maximum length of the counted
// values, or zeros if there are none.
func (d Counts) LenRange() (min, max int) {
	first := true
	for k := range d {
		n := len(k)
		if first || n < min {
			min = n
		}
		if first || n > max {
			max = n
		}
		first = false
	}
	return
}
