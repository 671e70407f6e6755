// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dframe

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/crossframe"
	"github.com/grailbio/polyslice/frame"
	"github.com/grailbio/polyslice/metrics"
	"github.com/grailbio/testutil"
)

func testFrame(n int) *frame.Frame {
	var (
		ints = make([]int, n)
		strs = make([]string, n)
	)
	for i := range ints {
		ints[i] = i
		strs[i] = fmt.Sprint(i % 3)
	}
	return frame.New([]string{"n", "s"}, ints, strs)
}

func TestFromFrame(t *testing.T) {
	ctx := context.Background()
	f := testFrame(10)
	for _, nparts := range []int{0, 1, 3, 10, 20} {
		df := FromFrame(f, nparts)
		want := nparts
		switch {
		case nparts < 1:
			want = 1
		case nparts > 10:
			want = 10
		}
		if got := df.NumPartitions(); got != want {
			t.Errorf("%d: got %v, want %v", nparts, got, want)
		}
		g, err := df.Compute(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !frame.Equal(f, g) {
			t.Errorf("%d: got %v, want %v", nparts, g.TabString(), f.TabString())
		}
	}
}

func TestFromPartitionsSchema(t *testing.T) {
	_, err := FromPartitions([]*frame.Frame{
		frame.New([]string{"a"}, []int{1}),
		frame.New([]string{"a"}, []string{"x"}),
	})
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	if _, err := FromPartitions(nil); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestLazy(t *testing.T) {
	ctx := context.Background()
	var calls int32
	df := FromFrame(testFrame(9), 3, Parallelism(2))
	df, err := df.Assign("m", func(f *frame.Frame) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		col, _ := f.Column("n")
		n := col.Interface().([]int)
		m := make([]float64, len(n))
		for i := range n {
			m[i] = float64(n[i]) / 2
		}
		return m, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	// Only the meta frame has been seen so far.
	if got, want := atomic.LoadInt32(&calls), int32(1); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := df.Dtypes()["m"], reflect.TypeOf(0.0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	df, err = df.Project("m")
	if err != nil {
		t.Fatal(err)
	}
	f, err := df.Compute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := atomic.LoadInt32(&calls), int32(4); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	want := frame.New([]string{"m"}, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4})
	if !frame.Equal(f, want) {
		t.Errorf("got %v, want %v", f.TabString(), want.TabString())
	}
	if _, err := df.Project("n"); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestPersist(t *testing.T) {
	ctx := context.Background()
	var calls int32
	df, err := FromFrame(testFrame(4), 2).MapPartitions(func(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
		atomic.AddInt32(&calls, 1)
		return f, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	p, err := df.Persist(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := p.Compute(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := atomic.LoadInt32(&calls), int32(3); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMapPartitionsError(t *testing.T) {
	ctx := context.Background()
	df, err := FromFrame(testFrame(4), 2).MapPartitions(func(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
		if f.Len() > 0 {
			return nil, errors.E(errors.Invalid, "bad partition")
		}
		return f, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := df.Compute(ctx); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	var vals []int16
	fuzz.NewWithSeed(1).NilChance(0).NumElements(100, 200).Fuzz(&vals)
	ints := make([]int, len(vals))
	var want int
	for i, v := range vals {
		ints[i] = int(v)
		want += int(v)
	}
	f := frame.New([]string{"v"}, ints)
	for _, nparts := range []int{1, 2, 7, 16} {
		got, err := FromFrame(f, nparts).Aggregate(ctx,
			func(_ context.Context, f *frame.Frame) (interface{}, error) {
				col, _ := f.Column("v")
				var sum int
				for _, v := range col.Interface().([]int) {
					sum += v
				}
				return sum, nil
			},
			func(a, b interface{}) (interface{}, error) {
				return a.(int) + b.(int), nil
			})
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%d: got %v, want %v", nparts, got, want)
		}
	}
}

func TestConcat(t *testing.T) {
	ctx := context.Background()
	a, b := FromFrame(testFrame(3), 2), FromFrame(testFrame(2), 1)
	df, err := Concat(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := df.NumPartitions(), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	f, err := df.Compute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	col, _ := f.Column("n")
	if got, want := col.Interface(), []int{0, 1, 2, 0, 1}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	c, err := a.Project("s")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Concat(a, c); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestWriteRead(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	prefix := filepath.Join(dir, "frame")
	f := testFrame(11)
	if err := FromFrame(f, 4).WriteTo(ctx, prefix); err != nil {
		t.Fatal(err)
	}
	df, err := Read(ctx, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := df.NumPartitions(), 4; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := df.Columns(), []string{"n", "s"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	g, err := df.Compute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !frame.Equal(f, g) {
		t.Errorf("got %v, want %v", g.TabString(), f.TabString())
	}
	if _, err := Read(ctx, filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error")
	}
}

func TestCrossFrame(t *testing.T) {
	ctx := context.Background()
	df := FromFrame(testFrame(6), 3)
	x, err := crossframe.Of(df)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := x.Backend(), BackendName; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := x.Project("n", "q"); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	if _, err := x.Len(); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected not supported, got %v", err)
	}
	if _, err := x.Take([]int{0}); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected not supported, got %v", err)
	}
	if _, _, err := x.GroupbyIndices("s"); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected not supported, got %v", err)
	}
	if _, err := x.ToMap(); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected not supported, got %v", err)
	}
	col, err := x.Column("s")
	if err != nil {
		t.Fatal(err)
	}
	sdf, ok := col.(*DataFrame)
	if !ok {
		t.Fatalf("got %T, want *DataFrame", col)
	}
	if got, want := sdf.Columns(), []string{"s"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	sf, err := sdf.Compute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := sf.Column("s"); !cmp.Equal(s.Interface(), []string{"0", "1", "2", "0", "1", "2"}) {
		t.Errorf("got %v", s.Interface())
	}
	if _, err := x.Column("q"); !errors.Is(errors.NotExist, err) {
		t.Errorf("expected not exist, got %v", err)
	}
	x, err = x.Apply(func(name string, col interface{}) (interface{}, error) {
		if n, ok := col.([]int); ok {
			out := make([]int, len(n))
			for i := range n {
				out[i] = -n[i]
			}
			return out, nil
		}
		return col, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	x, err = crossframe.Concat(ctx, []crossframe.Frame{x, x})
	if err != nil {
		t.Fatal(err)
	}
	local, err := x.Compute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := local.Backend(), "local"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	n, err := local.Column("n")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n, []int{0, -1, -2, -3, -4, -5, 0, -1, -2, -3, -4, -5}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPartitionMetrics(t *testing.T) {
	rows := metrics.NewCounter()
	df, err := FromFrame(testFrame(6), 3).MapPartitions(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		rows.Add(ctx, f.Len())
		col, _ := f.Column("n")
		if n := col.Interface().([]int); len(n) > 0 && n[0] == 2 {
			return nil, errors.E(errors.Invalid, "bad partition")
		}
		return f, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	var scope metrics.Scope
	ctx := metrics.ScopedContext(context.Background(), &scope)
	for i := 0; i < df.NumPartitions(); i++ {
		_, err := df.Partition(ctx, i)
		if got, want := err != nil, i == 1; got != want {
			t.Errorf("partition %d: got error %v", i, err)
		}
	}
	// The failed partition's rows are not counted.
	if got, want := rows.Value(&scope), uint64(4); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
