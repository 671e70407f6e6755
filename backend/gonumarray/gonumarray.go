// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package gonumarray adapts gonum's dense vectors and matrices
// (*mat.VecDense and *mat.Dense) as a dispatch backend. Importing the
// package registers the backend lazily: gonum types are bound the
// first time a gonum value is dispatched on.
//
// Reductions return float64 values; element-wise operations return a
// value of the same gonum type as their first argument.
package gonumarray

import (
	"fmt"
	"math"
	"reflect"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/dense"
	"github.com/grailbio/polyslice/dispatch"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Family is the package path family for which the backend is
// registered.
const Family = "gonum.org/v1/gonum"

var (
	typeOfVec   = reflect.TypeOf((*mat.VecDense)(nil))
	typeOfDense = reflect.TypeOf((*mat.Dense)(nil))

	// loads counts how many times the backend was registered.
	loads int32
)

func init() {
	dispatch.RegisterLazy(Family, load)
}

func load() {
	atomic.AddInt32(&loads, 1)
	b := Backend()
	dispatch.RegisterBackend(typeOfVec, b)
	dispatch.RegisterBackend(typeOfDense, b)
}

// Backend returns the gonum backend's adapter.
func Backend() *dispatch.Backend {
	return dispatch.NewBackend("gonum", dispatch.Module{
		"sum":         reduce("sum", func(m mat.Matrix, x []float64) float64 { return mat.Sum(m) }),
		"mean":        reduce("mean", func(_ mat.Matrix, x []float64) float64 { return stat.Mean(x, nil) }),
		"var":         reduce("var", func(_ mat.Matrix, x []float64) float64 { return popVariance(x) }),
		"std":         reduce("std", func(_ mat.Matrix, x []float64) float64 { return math.Sqrt(popVariance(x)) }),
		"min":         nonEmpty("min", floats.Min),
		"max":         nonEmpty("max", floats.Max),
		"prod":        reduce("prod", func(_ mat.Matrix, x []float64) float64 { return floats.Prod(x) }),
		"argmin":      argReduce("argmin", floats.MinIdx),
		"argmax":      argReduce("argmax", floats.MaxIdx),
		"cumsum":      scan(floats.CumSum),
		"cumprod":     scan(floats.CumProd),
		"abs":         elementwise(math.Abs),
		"sqrt":        elementwise(math.Sqrt),
		"exp":         elementwise(math.Exp),
		"log":         elementwise(math.Log),
		"square":      elementwise(func(x float64) float64 { return x * x }),
		"negative":    elementwise(func(x float64) float64 { return -x }),
		"add":         binary("add", func(x, y float64) float64 { return x + y }),
		"subtract":    binary("subtract", func(x, y float64) float64 { return x - y }),
		"multiply":    binary("multiply", func(x, y float64) float64 { return x * y }),
		"divide":      binary("divide", func(x, y float64) float64 { return x / y }),
		"maximum":     binary("maximum", math.Max),
		"minimum":     binary("minimum", math.Min),
		"power":       binary("power", math.Pow),
		"dot":         dot,
		"clip":        clip,
		"concatenate": concatenate,
		"shape":       shape,
		"size":        size,
		"ndim":        ndim,
		"allclose":    allclose,
		"array_equal": arrayEqual,
	})
}

// FromArray returns a gonum value holding a copy of the data in a:
// a *mat.VecDense for one-dimensional arrays and a *mat.Dense for
// two-dimensional arrays.
func FromArray(a *dense.Array) (mat.Matrix, error) {
	data := append([]float64(nil), a.Data...)
	switch a.Ndim() {
	case 0, 1:
		return vector(data), nil
	case 2:
		if len(data) == 0 {
			return new(mat.Dense), nil
		}
		return mat.NewDense(a.Shape[0], a.Shape[1], data), nil
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray: cannot represent %d-dimensional array", a.Ndim()))
}

// ToArray returns a reference array holding a copy of m's data.
func ToArray(m mat.Matrix) *dense.Array {
	if v, ok := m.(*mat.VecDense); ok {
		return dense.Vector(values(v)...)
	}
	r, c := m.Dims()
	return dense.New(values(m), r, c)
}

func vector(data []float64) *mat.VecDense {
	if len(data) == 0 {
		return new(mat.VecDense)
	}
	return mat.NewVecDense(len(data), data)
}

// values returns the elements of m in row-major order.
func values(m mat.Matrix) []float64 {
	if v, ok := m.(*mat.VecDense); ok {
		out := make([]float64, v.Len())
		for i := range out {
			out[i] = v.AtVec(i)
		}
		return out
	}
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// like returns a value of the same gonum type and shape as m holding
// data.
func like(m mat.Matrix, data []float64) mat.Matrix {
	if _, ok := m.(*mat.VecDense); ok {
		return vector(data)
	}
	if len(data) == 0 {
		return new(mat.Dense)
	}
	r, c := m.Dims()
	return mat.NewDense(r, c, data)
}

func matrix(name string, v interface{}) (mat.Matrix, error) {
	switch v := v.(type) {
	case *mat.VecDense:
		return v, nil
	case *mat.Dense:
		return v, nil
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray.%s: unsupported operand type %T", name, v))
}

// operand returns the values of v, which may be a gonum value or
// anything the reference library converts to an array.
func operand(name string, v interface{}) ([]float64, error) {
	if m, ok := v.(mat.Matrix); ok {
		return values(m), nil
	}
	a, err := dense.AsArray(v)
	if err != nil {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray.%s", name), err)
	}
	return a.Data, nil
}

func nargs(name string, args []interface{}, min, max int) error {
	if len(args) < min || len(args) > max {
		return errors.E(errors.Invalid, fmt.Sprintf("gonumarray.%s: got %d arguments", name, len(args)))
	}
	return nil
}

func reduce(name string, fn func(m mat.Matrix, x []float64) float64) dense.Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 1, 1); err != nil {
			return nil, err
		}
		m, err := matrix(name, args[0])
		if err != nil {
			return nil, err
		}
		return fn(m, values(m)), nil
	}
}

func nonEmpty(name string, fn func([]float64) float64) dense.Impl {
	return reduce(name, func(_ mat.Matrix, x []float64) float64 {
		if len(x) == 0 {
			return math.NaN()
		}
		return fn(x)
	})
}

func argReduce(name string, fn func([]float64) int) dense.Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 1, 1); err != nil {
			return nil, err
		}
		m, err := matrix(name, args[0])
		if err != nil {
			return nil, err
		}
		x := values(m)
		if len(x) == 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray.%s: empty sequence", name))
		}
		return fn(x), nil
	}
}

func popVariance(x []float64) float64 {
	n := len(x)
	switch n {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	return stat.Variance(x, nil) * float64(n-1) / float64(n)
}

// scan applies a gonum prefix operation, always returning a vector.
func scan(fn func(dst, s []float64) []float64) dense.Impl {
	return func(args ...interface{}) (interface{}, error) {
		m, err := matrix("scan", args[0])
		if err != nil {
			return nil, err
		}
		x := values(m)
		return vector(fn(make([]float64, len(x)), x)), nil
	}
}

func elementwise(fn func(float64) float64) dense.Impl {
	return func(args ...interface{}) (interface{}, error) {
		if d, ok := args[0].(*mat.Dense); ok {
			if r, c := d.Dims(); r*c == 0 {
				return new(mat.Dense), nil
			}
			var out mat.Dense
			out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, d)
			return &out, nil
		}
		m, err := matrix("elementwise", args[0])
		if err != nil {
			return nil, err
		}
		x := values(m)
		for i := range x {
			x[i] = fn(x[i])
		}
		return like(m, x), nil
	}
}

// binary applies fn element-wise. The second operand must have the
// same number of elements as the first, or be a scalar.
func binary(name string, fn func(x, y float64) float64) dense.Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 2, 2); err != nil {
			return nil, err
		}
		m, err := matrix(name, args[0])
		if err != nil {
			return nil, err
		}
		x := values(m)
		y, err := operand(name, args[1])
		if err != nil {
			return nil, err
		}
		if len(y) != 1 && len(y) != len(x) {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("gonumarray.%s: operands could not be broadcast: %d and %d elements", name, len(x), len(y)))
		}
		for i := range x {
			x[i] = fn(x[i], y[i%len(y)])
		}
		return like(m, x), nil
	}
}

func dot(args ...interface{}) (interface{}, error) {
	if err := nargs("dot", args, 2, 2); err != nil {
		return nil, err
	}
	switch a := args[0].(type) {
	case *mat.VecDense:
		b, ok := args[1].(*mat.VecDense)
		if !ok {
			return nil, errors.E(errors.NotSupported, fmt.Sprintf("gonumarray.dot: cannot multiply %T by %T", a, args[1]))
		}
		if a.Len() != b.Len() {
			return nil, errors.E(errors.Invalid, "gonumarray.dot: length mismatch")
		}
		if a.Len() == 0 {
			return 0.0, nil
		}
		return mat.Dot(a, b), nil
	case *mat.Dense:
		b, err := matrix("dot", args[1])
		if err != nil {
			return nil, err
		}
		_, ac := a.Dims()
		br, _ := b.Dims()
		if ac != br {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray.dot: shapes not aligned: %d != %d", ac, br))
		}
		if ar, _ := a.Dims(); ar*ac == 0 {
			return new(mat.Dense), nil
		}
		if _, bc := b.Dims(); br*bc == 0 {
			return new(mat.Dense), nil
		}
		var out mat.Dense
		out.Mul(a, b)
		return &out, nil
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray.dot: unsupported operand type %T", args[0]))
}

func clip(args ...interface{}) (interface{}, error) {
	if err := nargs("clip", args, 3, 3); err != nil {
		return nil, err
	}
	m, err := matrix("clip", args[0])
	if err != nil {
		return nil, err
	}
	lo, err := operand("clip", args[1])
	if err != nil {
		return nil, err
	}
	hi, err := operand("clip", args[2])
	if err != nil {
		return nil, err
	}
	if len(lo) != 1 || len(hi) != 1 {
		return nil, errors.E(errors.NotSupported, "gonumarray.clip: bounds must be scalars")
	}
	x := values(m)
	for i := range x {
		x[i] = math.Min(math.Max(x[i], lo[0]), hi[0])
	}
	return like(m, x), nil
}

func concatenate(args ...interface{}) (interface{}, error) {
	if len(args) == 1 {
		if list, ok := args[0].([]interface{}); ok {
			args = list
		}
	}
	var data []float64
	for _, arg := range args {
		v, ok := arg.(*mat.VecDense)
		if !ok {
			return nil, errors.E(errors.NotSupported, fmt.Sprintf("gonumarray.concatenate: cannot concatenate %T", arg))
		}
		data = append(data, values(v)...)
	}
	return vector(data), nil
}

func shape(args ...interface{}) (interface{}, error) {
	m, err := matrix("shape", args[0])
	if err != nil {
		return nil, err
	}
	if v, ok := m.(*mat.VecDense); ok {
		return []int{v.Len()}, nil
	}
	r, c := m.Dims()
	return []int{r, c}, nil
}

func size(args ...interface{}) (interface{}, error) {
	m, err := matrix("size", args[0])
	if err != nil {
		return nil, err
	}
	r, c := m.Dims()
	return r * c, nil
}

func ndim(args ...interface{}) (interface{}, error) {
	switch args[0].(type) {
	case *mat.VecDense:
		return 1, nil
	case *mat.Dense:
		return 2, nil
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray.ndim: unsupported operand type %T", args[0]))
}

func allclose(args ...interface{}) (interface{}, error) {
	if err := nargs("allclose", args, 2, 3); err != nil {
		return nil, err
	}
	x, err := operand("allclose", args[0])
	if err != nil {
		return nil, err
	}
	y, err := operand("allclose", args[1])
	if err != nil {
		return nil, err
	}
	tol := 1e-8
	if len(args) == 3 {
		t, ok := args[2].(float64)
		if !ok {
			return nil, errors.E(errors.Invalid, "gonumarray.allclose: tolerance must be a float64")
		}
		tol = t
	}
	return len(x) == len(y) && floats.EqualApprox(x, y, tol), nil
}

func arrayEqual(args ...interface{}) (interface{}, error) {
	if err := nargs("array_equal", args, 2, 2); err != nil {
		return nil, err
	}
	a, err := matrix("array_equal", args[0])
	if err != nil {
		return nil, err
	}
	b, ok := args[1].(mat.Matrix)
	if !ok {
		return false, nil
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false, nil
	}
	return mat.Equal(a, b), nil
}
