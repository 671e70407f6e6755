// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dense

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
)

func TestReductions(t *testing.T) {
	for _, c := range []struct {
		name string
		arg  interface{}
		want float64
	}{
		{"sum", []float64{1, 2, 3}, 6},
		{"sum", []int{1, 2, 3}, 6},
		{"mean", Vector(1, 2, 3, 4), 2.5},
		{"min", []float64{3, -1, 2}, -1},
		{"max", []float64{3, -1, 2}, 3},
		{"prod", []float64{2, 3, 4}, 24},
		{"var", []float64{1, 1, 3, 3}, 1},
		{"std", []float64{1, 1, 3, 3}, 1},
	} {
		got, err := Call(c.name, c.arg)
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s(%v): got %v, want %v", c.name, c.arg, got, c.want)
		}
	}
}

func TestBinaryBroadcast(t *testing.T) {
	got, err := Add(Vector(1, 2, 3), 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Vector(2, 3, 4), got); diff != "" {
		t.Errorf("add: (-want +got)\n%s", diff)
	}
	got, err = Add(6.0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 7.0 {
		t.Errorf("got %v, want 7", got)
	}
	_, err = Multiply(Vector(1, 2), Vector(1, 2, 3))
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid shape error, got %v", err)
	}
}

func TestDot(t *testing.T) {
	got, err := Dot([]float64{1, 2, 3}, []float64{4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if got != 32.0 {
		t.Errorf("got %v, want 32", got)
	}
	m := New([]float64{1, 2, 3, 4}, 2, 2)
	got, err = Dot(m, m)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(New([]float64{7, 10, 15, 22}, 2, 2), got); diff != "" {
		t.Errorf("matmul: (-want +got)\n%s", diff)
	}
}

func TestCumsumUnique(t *testing.T) {
	got, err := Call("cumsum", []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Vector(1, 3, 6), got); diff != "" {
		t.Errorf("cumsum: (-want +got)\n%s", diff)
	}
	got, err = Call("unique", []float64{3, 1, 3, 2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Vector(1, 2, 3), got); diff != "" {
		t.Errorf("unique: (-want +got)\n%s", diff)
	}
}

func TestSumFuzz(t *testing.T) {
	fz := fuzz.New().NilChance(0).NumElements(1, 100)
	var vals []int16
	for i := 0; i < 20; i++ {
		fz.Fuzz(&vals)
		var want int
		ints := make([]int, len(vals))
		for j, v := range vals {
			ints[j] = int(v)
			want += int(v)
		}
		got, err := Sum(ints)
		if err != nil {
			t.Fatal(err)
		}
		if got != float64(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestDTypeFInfo(t *testing.T) {
	dt, err := Call("dtype", "float32")
	if err != nil {
		t.Fatal(err)
	}
	if dt != Float32 {
		t.Errorf("got %v, want float32", dt)
	}
	info, err := Call("finfo", Float64)
	if err != nil {
		t.Fatal(err)
	}
	if eps := info.(FInfo).Eps; eps != math.Nextafter(1, 2)-1 {
		t.Errorf("bad eps %v", eps)
	}
	if _, err := Call("finfo", Int); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestMayShareMemory(t *testing.T) {
	a := Vector(1, 2, 3, 4)
	b := &Array{Shape: []int{2}, Data: a.Data[2:]}
	if ok, _ := Call("may_share_memory", a, b); ok != true {
		t.Error("expected shared memory")
	}
	if ok, _ := Call("may_share_memory", a, a.Copy()); ok != false {
		t.Error("expected disjoint memory")
	}
}

func TestNamespaceRestore(t *testing.T) {
	ns := NewNamespace("test")
	one := NewFunc("one", func(...interface{}) (interface{}, error) { return 1, nil })
	ns.Define(one)
	ns.Set("c", 3)
	snap := ns.Snapshot()
	ns.Delete("one")
	ns.Set("extra", 1)
	ns.Restore(snap)
	if got, want := ns.Names(), []string{"c", "one"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	fn, err := ns.Func("one")
	if err != nil {
		t.Fatal(err)
	}
	if fn != one {
		t.Error("function identity not restored")
	}
	if _, err := ns.Func("c"); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestUnknownOperation(t *testing.T) {
	if _, err := Call("no_such_function", 1); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}
