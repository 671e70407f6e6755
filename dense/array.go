// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dense implements the reference array library for polyslice.
// Its function names and semantics define the generic operation
// surface that other backends emulate. Arrays are dense, in-memory,
// row-major float64 vectors with a shape.
//
// All functions are bound in a Namespace (Default), and the
// package-level helpers (Sum, Add, Call, ...) resolve their binding
// through Default each time they are called. Code that calls through
// these helpers therefore observes any substitution made to Default,
// which is what package dispatch relies on to make arbitrary user code
// backend-polymorphic.
package dense

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Array is a dense n-dimensional array of float64 values stored in
// row-major order. A zero-dimensional array (empty Shape) holds a
// single value.
type Array struct {
	Shape []int
	Data  []float64
}

// New returns a new array with the provided shape backed by data.
// New panics if the shape does not describe len(data) elements.
func New(data []float64, shape ...int) *Array {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if n := numel(shape); n != len(data) {
		panic(fmt.Sprintf("dense.New: shape %v has %d elements, data has %d", shape, n, len(data)))
	}
	return &Array{Shape: append([]int(nil), shape...), Data: data}
}

// Vector returns a one-dimensional array containing the provided values.
func Vector(vals ...float64) *Array {
	return New(vals, len(vals))
}

// Len returns the number of elements in the array.
func (a *Array) Len() int { return len(a.Data) }

// Ndim returns the number of dimensions of the array.
func (a *Array) Ndim() int { return len(a.Shape) }

// Copy returns a deep copy of the array.
func (a *Array) Copy() *Array {
	return &Array{
		Shape: append([]int(nil), a.Shape...),
		Data:  append([]float64(nil), a.Data...),
	}
}

// String returns a compact description of the array.
func (a *Array) String() string {
	vals := make([]string, len(a.Data))
	for i, v := range a.Data {
		vals[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("array%v[%s]", a.Shape, strings.Join(vals, " "))
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func sameShape(x, y []int) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// IsPlain tells whether v is a plain reference value: a *Array or a
// built-in ordered sequence ([]float64, []int). Plain values never
// need dispatch.
func IsPlain(v interface{}) bool {
	switch v.(type) {
	case *Array, []float64, []int:
		return true
	}
	return false
}

// AsArray converts v into an Array. Plain values and numeric scalars
// are supported; a scalar becomes a zero-dimensional array. Arrays
// are returned as-is, sequences are copied.
func AsArray(v interface{}) (*Array, error) {
	switch v := v.(type) {
	case *Array:
		return v, nil
	case []float64:
		return Vector(append([]float64(nil), v...)...), nil
	case []int:
		data := make([]float64, len(v))
		for i := range v {
			data[i] = float64(v[i])
		}
		return Vector(data...), nil
	case []int64:
		data := make([]float64, len(v))
		for i := range v {
			data[i] = float64(v[i])
		}
		return Vector(data...), nil
	case []float32:
		data := make([]float64, len(v))
		for i := range v {
			data[i] = float64(v[i])
		}
		return Vector(data...), nil
	}
	if f, ok := scalar(v); ok {
		return &Array{Data: []float64{f}}, nil
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("dense: cannot convert %T to an array", v))
}

func scalar(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// IsScalar tells whether v is a numeric scalar value.
func IsScalar(v interface{}) bool {
	_, ok := scalar(v)
	return ok
}

// A DType describes the element type of an array.
type DType int

const (
	// Float64 is the default element type.
	Float64 DType = iota
	Float32
	Int64
	Int
	Bool
)

var dtypeNames = [...]string{
	Float64: "float64",
	Float32: "float32",
	Int64:   "int64",
	Int:     "int",
	Bool:    "bool",
}

// String returns the dtype's canonical name.
func (d DType) String() string {
	if d < 0 || int(d) >= len(dtypeNames) {
		return fmt.Sprintf("DType(%d)", int(d))
	}
	return dtypeNames[d]
}

// ParseDType returns the dtype with the provided name.
func ParseDType(name string) (DType, error) {
	for i, n := range dtypeNames {
		if n == name {
			return DType(i), nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("dense: unknown dtype %q", name))
}

// DTypeOf returns the dtype describing values like v.
func DTypeOf(v interface{}) (DType, error) {
	switch v := v.(type) {
	case DType:
		return v, nil
	case string:
		return ParseDType(v)
	case *Array, []float64, float64:
		return Float64, nil
	case []float32, float32:
		return Float32, nil
	case []int64, int64:
		return Int64, nil
	case []int, int:
		return Int, nil
	case []bool, bool:
		return Bool, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("dense: no dtype for %T", v))
}

// FInfo describes the machine limits of a floating point dtype.
type FInfo struct {
	DType DType
	Eps   float64
	Max   float64
	Min   float64
	Bits  int
}
