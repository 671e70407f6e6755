// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package crossframe

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/frame"
)

func testFrame(t *testing.T) Frame {
	t.Helper()
	f, err := FromMap(map[string]interface{}{
		"a": []int{1, 2, 3, 4},
		"b": []string{"x", "y", "x", "z"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestProjection(t *testing.T) {
	f := testFrame(t)
	_, err := f.Project("a", "c")
	if !errors.Is(errors.Invalid, err) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid projection: [a c]") {
		t.Errorf("bad error %v", err)
	}
	g, err := f.Project("a")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := g.Columns(), []string{"a"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOf(t *testing.T) {
	ff := frame.New([]string{"x"}, []float64{1})
	f, err := Of(ff)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := f.Backend(), "local"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if f.Data() != ff {
		t.Error("wrong data")
	}
	if g, err := Of(f); err != nil || g != f {
		t.Errorf("got %v, %v", g, err)
	}
	if _, err := Of([]int{1}); !errors.Is(errors.NotExist, err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

type testFrameType struct{ n int }

func TestRegisterLazy(t *testing.T) {
	var loads int
	RegisterLazy(reflect.TypeOf(testFrameType{}).PkgPath(), func() {
		loads++
		Register(reflect.TypeOf(testFrameType{}), func(data interface{}) (Frame, error) {
			n := data.(testFrameType).n
			return FromMap(map[string]interface{}{"n": make([]int, n)})
		})
	})
	for i := 0; i < 2; i++ {
		f, err := Of(testFrameType{3})
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := f.Len(); n != 3 {
			t.Errorf("got %v, want 3", n)
		}
	}
	if got, want := loads, 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAssignApply(t *testing.T) {
	f := testFrame(t)
	g, err := f.Assign("c", []float64{0.5, 1, 1.5, 2})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := g.Columns(), []string{"a", "b", "c"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	h, err := g.Apply(func(name string, col interface{}) (interface{}, error) {
		if c, ok := col.([]int); ok {
			out := make([]int, len(c))
			for i := range c {
				out[i] = c[i] * 10
			}
			return out, nil
		}
		return col, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	a, err := h.Column("a")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := a, []int{10, 20, 30, 40}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := h.Column("nope"); !errors.Is(errors.NotExist, err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestGroupby(t *testing.T) {
	f := testFrame(t)
	keys, indices, err := f.GroupbyIndices("b")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := keys, []string{"x", "y", "z"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := indices, [][]int{{0, 2}, {1}, {3}}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	_, frames, err := f.GroupbyPartition("b")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := frames[0].Column("a")
	if got, want := a, []int{1, 3}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	g, err := f.Take([]int{3, 1})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := g.Column("b")
	if got, want := b, []string{"z", "y"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := f.Take([]int{4}); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestCast(t *testing.T) {
	f := testFrame(t)
	g, err := f.Cast(map[string]reflect.Type{"a": reflect.TypeOf(0.0)})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := g.Dtypes()["a"], reflect.TypeOf(0.0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	g, err = f.Cast(map[string]reflect.Type{"a": reflect.TypeOf("")})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := g.Column("a")
	if got, want := a, []string{"1", "2", "3", "4"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := f.Cast(map[string]reflect.Type{"b": reflect.TypeOf(0)}); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected not supported, got %v", err)
	}
}

func TestConcat(t *testing.T) {
	ctx := context.Background()
	f := testFrame(t)
	g, err := Concat(ctx, []Frame{f, f})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := g.Len(); n != 8 {
		t.Errorf("got %v, want 8", n)
	}
	m, err := g.ToMap()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m["a"], []int{1, 2, 3, 4, 1, 2, 3, 4}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := Concat(ctx, nil); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

type countRows struct{}

func (countRows) Chunk(ctx context.Context, f *frame.Frame) (interface{}, error) {
	return f.Len(), nil
}

func (countRows) Combine(a, b interface{}) (interface{}, error) {
	return a.(int) + b.(int), nil
}

func (countRows) Finalize(state interface{}) (*frame.Frame, error) {
	return frame.New([]string{"rows"}, []int{state.(int)}), nil
}

func TestAggregate(t *testing.T) {
	f := testFrame(t)
	out, err := f.Aggregate(context.Background(), countRows{})
	if err != nil {
		t.Fatal(err)
	}
	if want := frame.New([]string{"rows"}, []int{4}); !frame.Equal(out, want) {
		t.Errorf("got %v, want %v", out.TabString(), want.TabString())
	}
}
