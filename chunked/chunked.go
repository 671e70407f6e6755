// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package chunked implements a one-dimensional float64 array stored
// as a sequence of chunks. Operations process chunks in parallel and
// combine per-chunk partial results. Arrays are registered with
// package dispatch the first time one is dispatched on, so reference
// operations called inside a dispatch scope work on chunked arrays.
package chunked

import (
	"fmt"
	"math"
	"reflect"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/polyslice/dense"
	"github.com/grailbio/polyslice/dispatch"
)

// DefaultChunkSize is the chunk size used by New when none is given.
const DefaultChunkSize = 1 << 16

// Parallelism bounds the number of chunks processed concurrently.
var Parallelism = runtime.NumCPU()

var typeOfArray = reflect.TypeOf((*Array)(nil))

func init() {
	dispatch.RegisterLazy(typeOfArray.Elem().PkgPath(), func() {
		dispatch.RegisterBackend(typeOfArray, Backend())
	})
	// Concatenation takes a list of arrays as its first argument, so it
	// cannot be routed by the type of its first argument.
	if err := dispatch.Override("concatenate", typeOfArray, concatenate); err != nil {
		panic(err)
	}
	if err := dispatch.Override("concatenate", reflect.TypeOf([]interface{}(nil)), concatenateList); err != nil {
		panic(err)
	}
	var err error
	if refConcatenate, err = dense.Default.Func("concatenate"); err != nil {
		panic(err)
	}
}

// refConcatenate is the reference concatenation, used for lists that
// hold no chunked arrays.
var refConcatenate *dense.Func

// Array is a chunked one-dimensional float64 array. Arrays are
// immutable: operations return new arrays, possibly sharing chunks
// with their inputs.
type Array struct {
	chunks [][]float64
	n      int
}

// New returns a new array holding a copy of data, split into chunks of
// chunkSize elements. If chunkSize is not positive, DefaultChunkSize is
// used.
func New(data []float64, chunkSize int) *Array {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var chunks [][]float64
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, append([]float64(nil), data[:n]...))
		data = data[n:]
	}
	return FromChunks(chunks...)
}

// FromChunks returns an array made of the provided chunks. The chunks
// are not copied and must not be modified afterwards.
func FromChunks(chunks ...[]float64) *Array {
	a := &Array{chunks: make([][]float64, 0, len(chunks))}
	for _, c := range chunks {
		if len(c) == 0 {
			continue
		}
		a.chunks = append(a.chunks, c)
		a.n += len(c)
	}
	return a
}

// Len returns the number of elements in the array.
func (a *Array) Len() int { return a.n }

// NumChunk returns the number of chunks in the array.
func (a *Array) NumChunk() int { return len(a.chunks) }

// Chunk returns the i'th chunk. It must not be modified.
func (a *Array) Chunk(i int) []float64 { return a.chunks[i] }

// ChunkSizes returns the length of each chunk.
func (a *Array) ChunkSizes() []int {
	sizes := make([]int, len(a.chunks))
	for i, c := range a.chunks {
		sizes[i] = len(c)
	}
	return sizes
}

// Values returns the array's elements in a new slice.
func (a *Array) Values() []float64 {
	out := make([]float64, 0, a.n)
	for _, c := range a.chunks {
		out = append(out, c...)
	}
	return out
}

// Dense returns the array as a reference array.
func (a *Array) Dense() *dense.Array {
	return dense.Vector(a.Values()...)
}

func (a *Array) String() string {
	return fmt.Sprintf("chunked.Array(n=%d, chunks=%v)", a.n, a.ChunkSizes())
}

// each calls fn for each chunk of a, in parallel.
func (a *Array) each(fn func(i int, chunk []float64) error) error {
	return traverse.Limit(Parallelism).Each(len(a.chunks), func(i int) error {
		return fn(i, a.chunks[i])
	})
}

// mapChunks returns a new array with the same layout as a, whose i'th
// chunk is computed by fn.
func (a *Array) mapChunks(fn func(i int, in, out []float64) error) (*Array, error) {
	out := &Array{chunks: make([][]float64, len(a.chunks)), n: a.n}
	err := a.each(func(i int, chunk []float64) error {
		out.chunks[i] = make([]float64, len(chunk))
		return fn(i, chunk, out.chunks[i])
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// align returns v's values split with the same layout as a. V may be
// a chunked array or anything the reference library converts to an
// array. Scalars and single-element operands are returned as a scalar
// instead.
func (a *Array) align(name string, v interface{}) (chunks [][]float64, scalar float64, isScalar bool, err error) {
	var values []float64
	switch v := v.(type) {
	case *Array:
		if sameLayout(a, v) {
			return v.chunks, 0, false, nil
		}
		values = v.Values()
	default:
		if dense.IsScalar(v) {
			arr, err := dense.AsArray(v)
			if err != nil {
				return nil, 0, false, err
			}
			return nil, arr.Data[0], true, nil
		}
		arr, err := dense.AsArray(v)
		if err != nil {
			return nil, 0, false, errors.E(errors.Invalid, "chunked."+name, err)
		}
		values = arr.Data
	}
	if len(values) == 1 {
		return nil, values[0], true, nil
	}
	if len(values) != a.n {
		return nil, 0, false, errors.E(errors.Invalid,
			fmt.Sprintf("chunked.%s: operands could not be broadcast: %d and %d elements", name, a.n, len(values)))
	}
	chunks = make([][]float64, len(a.chunks))
	for i, c := range a.chunks {
		chunks[i], values = values[:len(c)], values[len(c):]
	}
	return chunks, 0, false, nil
}

func sameLayout(a, b *Array) bool {
	if len(a.chunks) != len(b.chunks) {
		return false
	}
	for i := range a.chunks {
		if len(a.chunks[i]) != len(b.chunks[i]) {
			return false
		}
	}
	return true
}

// moments holds streaming summary statistics of a set of values. M2
// is the sum of squared deviations from the mean.
type moments struct {
	n        float64
	mean, m2 float64
	sum      float64
	min, max float64
}

func chunkMoments(x []float64) moments {
	m := moments{min: math.Inf(1), max: math.Inf(-1)}
	for _, v := range x {
		m.n++
		m.sum += v
		d := v - m.mean
		m.mean += d / m.n
		m.m2 += d * (v - m.mean)
		m.min = math.Min(m.min, v)
		m.max = math.Max(m.max, v)
	}
	return m
}

// merge combines two sets of moments (Chan et al.).
func (m moments) merge(o moments) moments {
	if m.n == 0 {
		return o
	}
	if o.n == 0 {
		return m
	}
	n := m.n + o.n
	d := o.mean - m.mean
	return moments{
		n:    n,
		mean: m.mean + d*o.n/n,
		m2:   m.m2 + o.m2 + d*d*m.n*o.n/n,
		sum:  m.sum + o.sum,
		min:  math.Min(m.min, o.min),
		max:  math.Max(m.max, o.max),
	}
}

// summarize computes the moments of a, chunks in parallel.
func (a *Array) summarize() (moments, error) {
	parts := make([]moments, len(a.chunks))
	err := a.each(func(i int, chunk []float64) error {
		parts[i] = chunkMoments(chunk)
		return nil
	})
	if err != nil {
		return moments{}, err
	}
	var m moments
	for _, p := range parts {
		m = m.merge(p)
	}
	return m, nil
}
