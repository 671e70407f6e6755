// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package frame

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/spaolacci/murmur3"
)

var (
	mu        sync.Mutex
	makeOps   = map[reflect.Type]reflect.Value{}
	locations = map[reflect.Type]string{}
	typeOfOps = reflect.TypeOf((*Ops)(nil)).Elem()
)

// Ops represents a set of operations on a single column. Ops are
// instantiated from implementations registered with RegisterOps.
//
// Note that not all types may support all operations.
type Ops struct {
	// Less compares two indices of a slice.
	Less func(i, j int) bool
	// HashWithSeed computes a 32-bit hash, given a seed, of an index
	// of a slice.
	HashWithSeed func(i int, seed uint32) uint32
}

// RegisterOps registers an ops implementation. The provided argument
// make should be a function of the form
//
//	func(slice []t) Ops
//
// returning operations for a t-typed slice. RegisterOps panics if
// the argument does not have the required shape or if operations
// have already been registered for type t.
func RegisterOps(make interface{}) {
	typ := reflect.TypeOf(make)
	check := func(ok bool) {
		if !ok {
			panic("frame.RegisterOps: bad type " + typ.String() + "; expected func([]t) frame.Ops")
		}
	}
	check(typ.Kind() == reflect.Func)
	check(typ.NumIn() == 1 && typ.In(0).Kind() == reflect.Slice)
	check(typ.NumOut() == 1 && typ.Out(0) == typeOfOps)
	elem := typ.In(0).Elem()
	mu.Lock()
	defer mu.Unlock()
	if _, ok := makeOps[elem]; ok {
		location, ok := locations[elem]
		if !ok {
			location = "<unknown>"
		}
		panic("frame.RegisterOps: ops already registered for type " + elem.String() + " at " + location)
	}
	makeOps[elem] = reflect.ValueOf(make)
	if _, file, line, ok := runtime.Caller(1); ok {
		locations[elem] = fmt.Sprintf("%s:%d", file, line)
	}
}

func makeSliceOps(typ reflect.Type, slice reflect.Value) Ops {
	mu.Lock()
	make, ok := makeOps[typ]
	mu.Unlock()
	if !ok {
		return Ops{}
	}
	return make.Call([]reflect.Value{slice})[0].Interface().(Ops)
}

// CanCompare returns whether values of the provided type are comparable.
func CanCompare(typ reflect.Type) bool {
	return makeSliceOps(typ, reflect.MakeSlice(reflect.SliceOf(typ), 0, 0)).Less != nil
}

// CanHash returns whether values of the provided type can be hashed.
func CanHash(typ reflect.Type) bool {
	return makeSliceOps(typ, reflect.MakeSlice(reflect.SliceOf(typ), 0, 0)).HashWithSeed != nil
}

func init() {
	RegisterOps(func(slice [][]byte) Ops {
		return Ops{
			Less:         func(i, j int) bool { return bytes.Compare(slice[i], slice[j]) < 0 },
			HashWithSeed: func(i int, seed uint32) uint32 { return murmur3.Sum32WithSeed(slice[i], seed) },
		}
	})
	RegisterOps(func(slice []bool) Ops {
		return Ops{
			Less: func(i, j int) bool { return !slice[i] && slice[j] },
			HashWithSeed: func(i int, seed uint32) uint32 {
				if slice[i] {
					return seed + 1
				}
				return seed
			},
		}
	})
	RegisterOps(func(slice []string) Ops {
		return Ops{
			Less: func(i, j int) bool { return slice[i] < slice[j] },
			HashWithSeed: func(i int, seed uint32) uint32 {
				return murmur3.Sum32WithSeed([]byte(slice[i]), seed)
			},
		}
	})
	RegisterOps(func(slice []int) Ops {
		return Ops{
			Less:         func(i, j int) bool { return slice[i] < slice[j] },
			HashWithSeed: func(i int, seed uint32) uint32 { return hash64(uint64(slice[i]), seed) },
		}
	})
	RegisterOps(func(slice []int32) Ops {
		return Ops{
			Less:         func(i, j int) bool { return slice[i] < slice[j] },
			HashWithSeed: func(i int, seed uint32) uint32 { return hash64(uint64(slice[i]), seed) },
		}
	})
	RegisterOps(func(slice []int64) Ops {
		return Ops{
			Less:         func(i, j int) bool { return slice[i] < slice[j] },
			HashWithSeed: func(i int, seed uint32) uint32 { return hash64(uint64(slice[i]), seed) },
		}
	})
	// Floating point columns use NaN as the missing value. NaNs sort
	// first and all hash alike, so that they group together.
	RegisterOps(func(slice []float32) Ops {
		return Ops{
			Less: func(i, j int) bool { return lessFloat(float64(slice[i]), float64(slice[j])) },
			HashWithSeed: func(i int, seed uint32) uint32 {
				return hashFloat(float64(slice[i]), seed)
			},
		}
	})
	RegisterOps(func(slice []float64) Ops {
		return Ops{
			Less:         func(i, j int) bool { return lessFloat(slice[i], slice[j]) },
			HashWithSeed: func(i int, seed uint32) uint32 { return hashFloat(slice[i], seed) },
		}
	})
}

func lessFloat(x, y float64) bool {
	if math.IsNaN(x) {
		return !math.IsNaN(y)
	}
	return x < y
}

func hashFloat(x float64, seed uint32) uint32 {
	if math.IsNaN(x) {
		x = math.NaN()
	}
	return hash64(math.Float64bits(x), seed)
}

func hash64(x uint64, seed uint32) uint32 {
	var b [8]byte
	for i := range b {
		b[i] = byte(x >> (8 * uint(i)))
	}
	return murmur3.Sum32WithSeed(b[:], seed)
}

// nan is the grouping key of all floating point NaNs.
type nan struct{}

// GroupIndices groups the rows of f by the values of the named
// column. It returns, for each distinct value, the indices of the
// rows holding it. Groups are ordered by value when the column type
// is comparable, and by first occurrence otherwise.
func (f *Frame) GroupIndices(name string) (keys Column, groups [][]int, err error) {
	col, ok := f.Column(name)
	if !ok {
		return Column{}, nil, errors.E(errors.NotExist, fmt.Sprintf("frame: no column %s", name))
	}
	typ := col.ElemType()
	if typ != reflect.TypeOf([]byte(nil)) && !typ.Comparable() {
		return Column{}, nil, errors.E(errors.NotSupported, fmt.Sprintf("frame: cannot group by column %s of type %s", name, typ))
	}
	var (
		index = make(map[interface{}]int)
		first []int
	)
	for i := 0; i < col.Len(); i++ {
		key := col.Index(i).Interface()
		switch v := key.(type) {
		case []byte:
			key = string(v)
		case float64:
			if math.IsNaN(v) {
				key = nan{}
			}
		case float32:
			if math.IsNaN(float64(v)) {
				key = nan{}
			}
		}
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			first = append(first, i)
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	if ops := col.Ops(); ops.Less != nil {
		order := make([]int, len(groups))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool { return ops.Less(first[order[i]], first[order[j]]) })
		var (
			sortedGroups = make([][]int, len(groups))
			sortedFirst  = make([]int, len(groups))
		)
		for i, g := range order {
			sortedGroups[i], sortedFirst[i] = groups[g], first[g]
		}
		groups, first = sortedGroups, sortedFirst
	}
	return col.Take(first), groups, nil
}

// HashPartition splits f into n frames by hashing the values of the
// named column with the provided seed. Rows with equal values are
// always assigned to the same partition. Row order is preserved
// within each partition.
func (f *Frame) HashPartition(name string, n int, seed uint32) ([]*Frame, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("frame: no column %s", name))
	}
	ops := col.Ops()
	if ops.HashWithSeed == nil {
		return nil, errors.E(errors.NotSupported, fmt.Sprintf("frame: cannot hash column %s of type %s", name, col.ElemType()))
	}
	if n <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: invalid partition count %d", n))
	}
	indices := make([][]int, n)
	for i := 0; i < col.Len(); i++ {
		p := ops.HashWithSeed(i, seed) % uint32(n)
		indices[p] = append(indices[p], i)
	}
	parts := make([]*Frame, n)
	for i := range parts {
		parts[i] = f.Take(indices[i])
	}
	return parts, nil
}
