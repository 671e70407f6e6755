// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"math"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/polyslice/frame"
)

var (
	typeOfString = reflect.TypeOf("")
	typeOfInt    = reflect.TypeOf(0)
	typeOfFloat  = reflect.TypeOf(0.0)
)

type concat interface {
	Concat(a, b string) string
}

type stringConcat struct{}

func (stringConcat) Concat(a, b string) string { return a + b }

func TestRegisterLookup(t *testing.T) {
	Register(typeOfString, stringConcat{})
	var concatter concat
	if !Lookup(typeOfString, &concatter) {
		t.Fatal("failed to look up concatter")
	}
	if Lookup(typeOfInt, &concatter) {
		t.Error("false concat lookup")
	}
	if got, want := concatter.Concat("x", "y"), "xy"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	var counter Counter
	if !Lookup(typeOfString, &counter) {
		t.Error("string counter was shadowed")
	}
}

func TestImplements(t *testing.T) {
	for _, c := range []struct {
		typ                 reflect.Type
		summarize, counting bool
	}{
		{typeOfFloat, true, false},
		{typeOfInt, true, true},
		{typeOfString, false, true},
		{reflect.TypeOf(struct{}{}), false, false},
	} {
		if got, want := Implements(c.typ, SummarizerInterface), c.summarize; got != want {
			t.Errorf("%s summarizer: got %v, want %v", c.typ, got, want)
		}
		if got, want := Implements(c.typ, CounterInterface), c.counting; got != want {
			t.Errorf("%s counter: got %v, want %v", c.typ, got, want)
		}
	}
	types := Types(SummarizerInterface)
	var found bool
	for _, typ := range types {
		found = found || typ == typeOfFloat
	}
	if !found {
		t.Errorf("float64 missing from %v", types)
	}
}

func TestSummarize(t *testing.T) {
	var s Summarizer
	if !Lookup(typeOfFloat, &s) {
		t.Fatal("no float64 summarizer")
	}
	sum := s.Summarize(frame.ColumnOf([]float64{2, 4, math.NaN(), 4, 4, 5, 5, 7, 9}))
	want := Summary{Count: 8, NullCount: 1, Sum: 40, Mean: 5, M2: 32, Min: 2, Max: 9}
	if !cmp.Equal(sum, want, cmpopts.EquateApprox(0, 1e-12)) {
		t.Errorf("got %+v, want %+v", sum, want)
	}
	if got, want := sum.Std(), 2.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := EmptySummary.Std(); !math.IsNaN(got) {
		t.Errorf("got %v, want NaN", got)
	}
}

func TestSummaryMerge(t *testing.T) {
	fz := fuzz.NewWithSeed(1).NilChance(0)
	vals := make([]int16, 100)
	for i := range vals {
		fz.Fuzz(&vals[i])
	}
	all, left, right := EmptySummary, EmptySummary, EmptySummary
	for i, v := range vals {
		all = all.Add(float64(v))
		if i < len(vals)/3 {
			left = left.Add(float64(v))
		} else {
			right = right.Add(float64(v))
		}
	}
	if got, want := left.Merge(right), all; !cmp.Equal(got, want, cmpopts.EquateApprox(1e-9, 1e-9)) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got, want := EmptySummary.Merge(all), all; !cmp.Equal(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCounts(t *testing.T) {
	var c Counter
	if !Lookup(typeOfString, &c) {
		t.Fatal("no string counter")
	}
	counts := make(Counts)
	c.Count(frame.ColumnOf([]string{"UK", "NL", "US", "NL"}), counts)
	more := make(Counts)
	c.Count(frame.ColumnOf([]string{"UK", "France"}), more)
	counts.Merge(more)
	if got, want := counts, (Counts{"UK": 2, "NL": 2, "US": 1, "France": 1}); !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	top, freq := counts.Top()
	if top != "NL" || freq != 2 {
		t.Errorf("got %v/%v, want NL/2", top, freq)
	}
	if min, max := counts.LenRange(); min != 2 || max != 6 {
		t.Errorf("got %v/%v, want 2/6", min, max)
	}
	if got, want := counts.Total(), int64(6); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
