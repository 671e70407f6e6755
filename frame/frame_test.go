// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package frame

import (
	"bytes"
	"encoding/gob"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grailbio/base/errors"
)

var (
	typeOfString = reflect.TypeOf("")
	typeOfInt    = reflect.TypeOf(0)
)

func TestFrame(t *testing.T) {
	f := Make([]string{"name", "count"}, []reflect.Type{typeOfString, typeOfInt}, 100)
	if got, want := f.NumColumn(), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := f.Len(), 100; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := f.Types(), map[string]reflect.Type{"name": typeOfString, "count": typeOfInt}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := f.String(), "frame[100]name:string,count:int"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNewPanics(t *testing.T) {
	for _, c := range []struct {
		names []string
		cols  []interface{}
	}{
		{[]string{"a"}, []interface{}{1}},
		{[]string{"a", "b"}, []interface{}{[]int{1}, []int{1, 2}}},
		{[]string{"a", "a"}, []interface{}{[]int{1}, []int{2}}},
		{[]string{"a"}, nil},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%v: expected panic", c.names)
				}
			}()
			New(c.names, c.cols...)
		}()
	}
}

func TestProject(t *testing.T) {
	f := New([]string{"a", "b"}, []int{1, 2}, []string{"x", "y"})
	_, err := f.Project("a", "c")
	if !errors.Is(errors.Invalid, err) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid projection") {
		t.Errorf("bad error %v", err)
	}
	g, err := f.Project("a")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := g.Names(), []string{"a"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	g, err = f.Project("b", "a")
	if err != nil {
		t.Fatal(err)
	}
	if want := New([]string{"b", "a"}, []string{"x", "y"}, []int{1, 2}); !Equal(g, want) {
		t.Errorf("got %v, want %v", g.TabString(), want.TabString())
	}
}

func TestWithAndAppend(t *testing.T) {
	f := New([]string{"a"}, []int{1, 2})
	g, err := f.With("b", []float64{0.5, 1.5})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.With("c", []int{1}); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	if got, want := f.NumColumn(), 1; got != want {
		t.Errorf("With modified its receiver: got %v, want %v", got, want)
	}
	h := New([]string{"b", "a"}, []float64{2.5}, []int{3})
	all, err := Append(g, h)
	if err != nil {
		t.Fatal(err)
	}
	want := New([]string{"a", "b"}, []int{1, 2, 3}, []float64{0.5, 1.5, 2.5})
	if !Equal(all, want) {
		t.Errorf("got %v, want %v", all.TabString(), want.TabString())
	}
	if _, err := Append(g, f); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestSliceTake(t *testing.T) {
	f := New([]string{"n", "s"}, []int{1, 2, 3, 4}, []string{"one", "two", "three", "four"})
	if got, want := f.Slice(1, 3), New([]string{"n", "s"}, []int{2, 3}, []string{"two", "three"}); !Equal(got, want) {
		t.Errorf("got %v, want %v", got.TabString(), want.TabString())
	}
	if got, want := f.Take([]int{3, 0}), New([]string{"n", "s"}, []int{4, 1}, []string{"four", "one"}); !Equal(got, want) {
		t.Errorf("got %v, want %v", got.TabString(), want.TabString())
	}
}

func TestGroupIndices(t *testing.T) {
	nan := math.NaN()
	f := New([]string{"k", "v"},
		[]float64{3, 1, nan, 3, 1, nan},
		[]int{0, 1, 2, 3, 4, 5})
	keys, groups, err := f.GroupIndices("k")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := groups, [][]int{{2, 5}, {1, 4}, {0, 3}}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := keys.Interface().([]float64); len(got) != 3 || !math.IsNaN(got[0]) || got[1] != 1 || got[2] != 3 {
		t.Errorf("bad keys %v", got)
	}
	if _, _, err := f.GroupIndices("x"); !errors.Is(errors.NotExist, err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestHashPartition(t *testing.T) {
	f := New([]string{"k"}, []string{"a", "b", "c", "a", "b", "c", "a"})
	parts, err := f.HashPartition("k", 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	var n int
	seen := make(map[string]int)
	for i, p := range parts {
		n += p.Len()
		col, _ := p.Column("k")
		for _, k := range col.Interface().([]string) {
			if j, ok := seen[k]; ok && j != i {
				t.Errorf("key %s in partitions %d and %d", k, j, i)
			}
			seen[k] = i
		}
	}
	if got, want := n, f.Len(); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestGob(t *testing.T) {
	f := New([]string{"a", "b", "c"}, []int64{1, 2}, []string{"x", "y"}, []float64{0.5, math.Inf(1)})
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(f); err != nil {
		t.Fatal(err)
	}
	var g Frame
	if err := gob.NewDecoder(&b).Decode(&g); err != nil {
		t.Fatal(err)
	}
	if !Equal(f, &g) {
		t.Errorf("got %v, want %v", g.TabString(), f.TabString())
	}
}

func TestWriteTab(t *testing.T) {
	f := New([]string{"name", "n"}, []string{"a", "bb"}, []int{1, 22})
	want := "name n\na    1\nbb   22\n"
	if got := f.TabString(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
