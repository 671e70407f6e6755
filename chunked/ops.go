// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunked

import (
	"fmt"
	"math"
	"reflect"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/dense"
	"github.com/grailbio/polyslice/dispatch"
)

// Backend returns the adapter for chunked arrays.
func Backend() *dispatch.Backend {
	return dispatch.NewBackend("chunked", dispatch.Module{
		"sum":      stat("sum", func(m moments) float64 { return m.sum }),
		"mean":     stat("mean", func(m moments) float64 { return nanIfEmpty(m, m.mean) }),
		"var":      stat("var", func(m moments) float64 { return nanIfEmpty(m, m.m2/m.n) }),
		"std":      stat("std", func(m moments) float64 { return nanIfEmpty(m, math.Sqrt(m.m2/m.n)) }),
		"min":      stat("min", func(m moments) float64 { return nanIfEmpty(m, m.min) }),
		"max":      stat("max", func(m moments) float64 { return nanIfEmpty(m, m.max) }),
		"prod":     prod,
		"cumsum":   cumsum,
		"abs":      elementwise("abs", math.Abs),
		"sqrt":     elementwise("sqrt", math.Sqrt),
		"exp":      elementwise("exp", math.Exp),
		"log":      elementwise("log", math.Log),
		"square":   elementwise("square", func(x float64) float64 { return x * x }),
		"negative": elementwise("negative", func(x float64) float64 { return -x }),
		"isnan":    isnan,
		"add":      binary("add", func(x, y float64) float64 { return x + y }),
		"subtract": binary("subtract", func(x, y float64) float64 { return x - y }),
		"multiply": binary("multiply", func(x, y float64) float64 { return x * y }),
		"divide":   binary("divide", func(x, y float64) float64 { return x / y }),
		"maximum":  binary("maximum", math.Max),
		"minimum":  binary("minimum", math.Min),
		"power":    binary("power", math.Pow),
		"clip":     clip,
		"shape": unary("shape", func(a *Array) (interface{}, error) {
			return []int{a.Len()}, nil
		}),
		"size": unary("size", func(a *Array) (interface{}, error) { return a.Len(), nil }),
		"ndim": unary("ndim", func(a *Array) (interface{}, error) { return 1, nil }),
		"asarray": unary("asarray", func(a *Array) (interface{}, error) {
			return a.Dense(), nil
		}),
		"allclose": func(args ...interface{}) (interface{}, error) {
			return delegate("allclose", args)
		},
		"array_equal": func(args ...interface{}) (interface{}, error) {
			return delegate("array_equal", args)
		},
	})
}

func nanIfEmpty(m moments, v float64) float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return v
}

func nargs(name string, args []interface{}, min, max int) error {
	if len(args) < min || len(args) > max {
		return errors.E(errors.Invalid, fmt.Sprintf("chunked.%s: got %d arguments", name, len(args)))
	}
	return nil
}

func unary(name string, fn func(a *Array) (interface{}, error)) dense.Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 1, 1); err != nil {
			return nil, err
		}
		a, ok := args[0].(*Array)
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("chunked.%s: unsupported operand type %T", name, args[0]))
		}
		return fn(a)
	}
}

func stat(name string, fn func(m moments) float64) dense.Impl {
	return unary(name, func(a *Array) (interface{}, error) {
		m, err := a.summarize()
		if err != nil {
			return nil, err
		}
		return fn(m), nil
	})
}

var prod = unary("prod", func(a *Array) (interface{}, error) {
	parts := make([]float64, a.NumChunk())
	err := a.each(func(i int, chunk []float64) error {
		p := 1.0
		for _, v := range chunk {
			p *= v
		}
		parts[i] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	p := 1.0
	for _, v := range parts {
		p *= v
	}
	return p, nil
})

// cumsum computes per-chunk totals in parallel, and then each chunk's
// prefix sums offset by the totals of the chunks before it.
var cumsum = unary("cumsum", func(a *Array) (interface{}, error) {
	totals := make([]float64, a.NumChunk())
	err := a.each(func(i int, chunk []float64) error {
		for _, v := range chunk {
			totals[i] += v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	offsets := make([]float64, len(totals))
	for i := 1; i < len(totals); i++ {
		offsets[i] = offsets[i-1] + totals[i-1]
	}
	return a.mapChunks(func(i int, in, out []float64) error {
		s := offsets[i]
		for j, v := range in {
			s += v
			out[j] = s
		}
		return nil
	})
})

func elementwise(name string, fn func(float64) float64) dense.Impl {
	return unary(name, func(a *Array) (interface{}, error) {
		return a.mapChunks(func(_ int, in, out []float64) error {
			for i, v := range in {
				out[i] = fn(v)
			}
			return nil
		})
	})
}

var isnan = unary("isnan", func(a *Array) (interface{}, error) {
	return a.mapChunks(func(_ int, in, out []float64) error {
		for i, v := range in {
			if math.IsNaN(v) {
				out[i] = 1
			}
		}
		return nil
	})
})

// binary applies fn element-wise to a chunked array and a second
// operand, which is either a scalar or has the same number of
// elements.
func binary(name string, fn func(x, y float64) float64) dense.Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 2, 2); err != nil {
			return nil, err
		}
		a, ok := args[0].(*Array)
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("chunked.%s: unsupported operand type %T", name, args[0]))
		}
		other, scalar, isScalar, err := a.align(name, args[1])
		if err != nil {
			return nil, err
		}
		return a.mapChunks(func(i int, in, out []float64) error {
			for j, v := range in {
				if isScalar {
					out[j] = fn(v, scalar)
				} else {
					out[j] = fn(v, other[i][j])
				}
			}
			return nil
		})
	}
}

func clip(args ...interface{}) (interface{}, error) {
	if err := nargs("clip", args, 3, 3); err != nil {
		return nil, err
	}
	a, ok := args[0].(*Array)
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("chunked.clip: unsupported operand type %T", args[0]))
	}
	_, lo, loScalar, err := a.align("clip", args[1])
	if err != nil {
		return nil, err
	}
	_, hi, hiScalar, err := a.align("clip", args[2])
	if err != nil {
		return nil, err
	}
	if !loScalar || !hiScalar {
		return nil, errors.E(errors.NotSupported, "chunked.clip: bounds must be scalars")
	}
	return a.mapChunks(func(_ int, in, out []float64) error {
		for i, v := range in {
			out[i] = math.Min(math.Max(v, lo), hi)
		}
		return nil
	})
}

// delegate materializes chunked operands and calls the reference
// operation name.
func delegate(name string, args []interface{}) (interface{}, error) {
	fn, err := dense.Default.Func(name)
	if err != nil {
		return nil, err
	}
	if w, ok := dispatch.Unwrap(fn); ok {
		fn = w.Orig
	}
	conv := make([]interface{}, len(args))
	for i, arg := range args {
		if a, ok := arg.(*Array); ok {
			arg = a.Dense()
		}
		conv[i] = arg
	}
	return fn.Call(conv...)
}

// Concat returns the concatenation of the provided arrays. Chunks are
// shared, not copied.
func Concat(arrays ...*Array) *Array {
	var chunks [][]float64
	for _, a := range arrays {
		chunks = append(chunks, a.chunks...)
	}
	return FromChunks(chunks...)
}

func concatenate(args ...interface{}) (interface{}, error) {
	arrays := make([]*Array, len(args))
	for i, arg := range args {
		a, ok := arg.(*Array)
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("chunked.concatenate: cannot concatenate %T", arg))
		}
		arrays[i] = a
	}
	return Concat(arrays...), nil
}

// concatenateList concatenates a list of chunked arrays. Lists that
// hold no chunked arrays are routed by the type of their first
// element, so that other backends concatenate their own values.
func concatenateList(args ...interface{}) (interface{}, error) {
	if err := nargs("concatenate", args, 1, 1); err != nil {
		return nil, err
	}
	list := args[0].([]interface{})
	var n int
	for _, v := range list {
		if _, ok := v.(*Array); ok {
			n++
		}
	}
	switch n {
	case 0:
		if len(list) > 0 && !dense.IsPlain(list[0]) && dispatch.Supports(reflect.TypeOf(list[0])) {
			return dispatch.Invoke(refConcatenate, list[0], list[1:]...)
		}
		return refConcatenate.Call(args...)
	case len(list):
		return concatenate(list...)
	}
	return nil, errors.E(errors.NotSupported, "chunked.concatenate: cannot mix chunked arrays with other values")
}
