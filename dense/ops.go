// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dense

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/grailbio/base/errors"
)

// Default is the process-wide reference namespace. It is populated
// when the package is initialized.
var Default = NewNamespace("dense")

// Ndarray is bound in Default under "ndarray" as the array type
// marker.
var Ndarray = reflect.TypeOf((*Array)(nil))

// NewAxis is bound in Default under "newaxis".
type NewAxis struct{}

// ErrState describes floating point error handling; it is accepted
// for API compatibility and has no effect on computation.
type ErrState struct {
	All, Divide, Over, Under, Invalid string
}

func init() {
	for name, impl := range map[string]Impl{
		"array":            array,
		"asarray":          asarray,
		"zeros":            func(args ...interface{}) (interface{}, error) { return filled("zeros", 0, args) },
		"ones":             func(args ...interface{}) (interface{}, error) { return filled("ones", 1, args) },
		"full":             full,
		"zeros_like":       func(args ...interface{}) (interface{}, error) { return filledLike("zeros_like", 0, args) },
		"ones_like":        func(args ...interface{}) (interface{}, error) { return filledLike("ones_like", 1, args) },
		"arange":           arange,
		"linspace":         linspace,
		"sum":              reducer("sum", sum),
		"mean":             reducer("mean", mean),
		"std":              reducer("std", stddev),
		"var":              reducer("var", variance),
		"min":              reducer("min", minimum),
		"max":              reducer("max", maximum),
		"prod":             reducer("prod", prod),
		"abs":              unary("abs", math.Abs),
		"sqrt":             unary("sqrt", math.Sqrt),
		"exp":              unary("exp", math.Exp),
		"log":              unary("log", math.Log),
		"square":           unary("square", func(x float64) float64 { return x * x }),
		"negative":         unary("negative", func(x float64) float64 { return -x }),
		"add":              binary("add", func(x, y float64) float64 { return x + y }),
		"subtract":         binary("subtract", func(x, y float64) float64 { return x - y }),
		"multiply":         binary("multiply", func(x, y float64) float64 { return x * y }),
		"divide":           binary("divide", func(x, y float64) float64 { return x / y }),
		"power":            binary("power", math.Pow),
		"maximum":          binary("maximum", math.Max),
		"minimum":          binary("minimum", math.Min),
		"dot":              dot,
		"argmin":           argExtreme("argmin", func(x, y float64) bool { return x < y }),
		"argmax":           argExtreme("argmax", func(x, y float64) bool { return x > y }),
		"cumsum":           scan("cumsum", 0, func(acc, x float64) float64 { return acc + x }),
		"cumprod":          scan("cumprod", 1, func(acc, x float64) float64 { return acc * x }),
		"unique":           unique,
		"clip":             clip,
		"concatenate":      concatenate,
		"reshape":          reshape,
		"shape":            func(args ...interface{}) (interface{}, error) { return property("shape", args, func(a *Array) interface{} { return append([]int(nil), a.Shape...) }) },
		"size":             func(args ...interface{}) (interface{}, error) { return property("size", args, func(a *Array) interface{} { return a.Len() }) },
		"ndim":             func(args ...interface{}) (interface{}, error) { return property("ndim", args, func(a *Array) interface{} { return a.Ndim() }) },
		"isnan":            isnan,
		"allclose":         allclose,
		"array_equal":      arrayEqual,
		"dtype":            dtype,
		"finfo":            finfo,
		"errstate":         errstate,
		"may_share_memory": mayShareMemory,
		"isscalar":         isscalar,
	} {
		Default.Define(NewFunc(name, impl))
	}
	Default.Set("pi", math.Pi)
	Default.Set("e", math.E)
	Default.Set("inf", math.Inf(1))
	Default.Set("nan", math.NaN())
	Default.Set("newaxis", NewAxis{})
	Default.Set("ndarray", Ndarray)
}

func nargs(name string, args []interface{}, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return errors.E(errors.Invalid, fmt.Sprintf("dense.%s: wrong number of arguments: %d", name, len(args)))
	}
	return nil
}

func arrayArg(name string, v interface{}) (*Array, error) {
	a, err := AsArray(v)
	if err != nil {
		return nil, errors.E(err, "dense."+name)
	}
	return a, nil
}

func intArg(name string, v interface{}) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("dense.%s: expected integer, got %T", name, v))
}

func floatArg(name string, v interface{}) (float64, error) {
	if f, ok := scalar(v); ok {
		return f, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("dense.%s: expected scalar, got %T", name, v))
}

func shapeArgs(name string, args []interface{}) ([]int, error) {
	if len(args) == 1 {
		if s, ok := args[0].([]int); ok {
			return append([]int(nil), s...), nil
		}
	}
	shape := make([]int, len(args))
	for i, arg := range args {
		d, err := intArg(name, arg)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("dense.%s: negative dimension %d", name, d))
		}
		shape[i] = d
	}
	return shape, nil
}

func array(args ...interface{}) (interface{}, error) {
	if err := nargs("array", args, 1, 1); err != nil {
		return nil, err
	}
	a, err := arrayArg("array", args[0])
	if err != nil {
		return nil, err
	}
	if a == args[0] {
		a = a.Copy()
	}
	return a, nil
}

func asarray(args ...interface{}) (interface{}, error) {
	if err := nargs("asarray", args, 1, 1); err != nil {
		return nil, err
	}
	return arrayArg("asarray", args[0])
}

func filled(name string, val float64, args []interface{}) (interface{}, error) {
	shape, err := shapeArgs(name, args)
	if err != nil {
		return nil, err
	}
	data := make([]float64, numel(shape))
	if val != 0 {
		for i := range data {
			data[i] = val
		}
	}
	return &Array{Shape: shape, Data: data}, nil
}

func full(args ...interface{}) (interface{}, error) {
	if err := nargs("full", args, 2, 2); err != nil {
		return nil, err
	}
	val, err := floatArg("full", args[1])
	if err != nil {
		return nil, err
	}
	return filled("full", val, args[:1])
}

func filledLike(name string, val float64, args []interface{}) (interface{}, error) {
	if err := nargs(name, args, 1, 1); err != nil {
		return nil, err
	}
	a, err := arrayArg(name, args[0])
	if err != nil {
		return nil, err
	}
	return filled(name, val, []interface{}{a.Shape})
}

func arange(args ...interface{}) (interface{}, error) {
	if err := nargs("arange", args, 1, 3); err != nil {
		return nil, err
	}
	vals := make([]float64, len(args))
	for i := range args {
		var err error
		if vals[i], err = floatArg("arange", args[i]); err != nil {
			return nil, err
		}
	}
	start, stop, step := 0.0, vals[0], 1.0
	if len(vals) > 1 {
		start, stop = vals[0], vals[1]
	}
	if len(vals) > 2 {
		step = vals[2]
	}
	if step == 0 {
		return nil, errors.E(errors.Invalid, "dense.arange: zero step")
	}
	var data []float64
	for x := start; (step > 0 && x < stop) || (step < 0 && x > stop); x += step {
		data = append(data, x)
	}
	return Vector(data...), nil
}

func linspace(args ...interface{}) (interface{}, error) {
	if err := nargs("linspace", args, 3, 3); err != nil {
		return nil, err
	}
	start, err := floatArg("linspace", args[0])
	if err != nil {
		return nil, err
	}
	stop, err := floatArg("linspace", args[1])
	if err != nil {
		return nil, err
	}
	num, err := intArg("linspace", args[2])
	if err != nil {
		return nil, err
	}
	data := make([]float64, num)
	for i := range data {
		if num == 1 {
			data[i] = start
			break
		}
		data[i] = start + (stop-start)*float64(i)/float64(num-1)
	}
	return Vector(data...), nil
}

func reducer(name string, reduce func([]float64) (float64, error)) Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 1, 1); err != nil {
			return nil, err
		}
		a, err := arrayArg(name, args[0])
		if err != nil {
			return nil, err
		}
		v, err := reduce(a.Data)
		if err != nil {
			return nil, errors.E(err, "dense."+name)
		}
		return v, nil
	}
}

func sum(x []float64) (float64, error) {
	var s float64
	for _, v := range x {
		s += v
	}
	return s, nil
}

func stddev(x []float64) (float64, error) {
	v, err := variance(x)
	return math.Sqrt(v), err
}

func prod(x []float64) (float64, error) {
	p := 1.0
	for _, v := range x {
		p *= v
	}
	return p, nil
}

func mean(x []float64) (float64, error) {
	if len(x) == 0 {
		return math.NaN(), nil
	}
	s, _ := sum(x)
	return s / float64(len(x)), nil
}

func variance(x []float64) (float64, error) {
	m, _ := mean(x)
	var ss float64
	for _, v := range x {
		ss += (v - m) * (v - m)
	}
	return ss / float64(len(x)), nil
}

var errEmpty = errors.E(errors.Invalid, "zero-size array has no identity")

func minimum(x []float64) (float64, error) {
	if len(x) == 0 {
		return 0, errEmpty
	}
	m := x[0]
	for _, v := range x[1:] {
		if v < m || math.IsNaN(v) {
			m = v
		}
	}
	return m, nil
}

func maximum(x []float64) (float64, error) {
	if len(x) == 0 {
		return 0, errEmpty
	}
	m := x[0]
	for _, v := range x[1:] {
		if v > m || math.IsNaN(v) {
			m = v
		}
	}
	return m, nil
}

func unary(name string, fn func(float64) float64) Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 1, 1); err != nil {
			return nil, err
		}
		if x, ok := scalar(args[0]); ok {
			return fn(x), nil
		}
		a, err := arrayArg(name, args[0])
		if err != nil {
			return nil, err
		}
		out := &Array{Shape: append([]int(nil), a.Shape...), Data: make([]float64, len(a.Data))}
		for i, v := range a.Data {
			out.Data[i] = fn(v)
		}
		return out, nil
	}
}

func binary(name string, fn func(x, y float64) float64) Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 2, 2); err != nil {
			return nil, err
		}
		x, xok := scalar(args[0])
		y, yok := scalar(args[1])
		if xok && yok {
			return fn(x, y), nil
		}
		a, err := arrayArg(name, args[0])
		if err != nil {
			return nil, err
		}
		b, err := arrayArg(name, args[1])
		if err != nil {
			return nil, err
		}
		return Broadcast(name, a, b, fn)
	}
}

// Broadcast applies fn element-wise to a and b. Either operand may be
// zero-dimensional, in which case its single value is combined with
// every element of the other.
func Broadcast(name string, a, b *Array, fn func(x, y float64) float64) (*Array, error) {
	switch {
	case a.Ndim() == 0:
		out := &Array{Shape: append([]int(nil), b.Shape...), Data: make([]float64, len(b.Data))}
		for i, v := range b.Data {
			out.Data[i] = fn(a.Data[0], v)
		}
		return out, nil
	case b.Ndim() == 0:
		out := &Array{Shape: append([]int(nil), a.Shape...), Data: make([]float64, len(a.Data))}
		for i, v := range a.Data {
			out.Data[i] = fn(v, b.Data[0])
		}
		return out, nil
	case !sameShape(a.Shape, b.Shape):
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("dense.%s: operands could not be broadcast together with shapes %v %v", name, a.Shape, b.Shape))
	}
	out := &Array{Shape: append([]int(nil), a.Shape...), Data: make([]float64, len(a.Data))}
	for i := range a.Data {
		out.Data[i] = fn(a.Data[i], b.Data[i])
	}
	return out, nil
}

func dot(args ...interface{}) (interface{}, error) {
	if err := nargs("dot", args, 2, 2); err != nil {
		return nil, err
	}
	a, err := arrayArg("dot", args[0])
	if err != nil {
		return nil, err
	}
	b, err := arrayArg("dot", args[1])
	if err != nil {
		return nil, err
	}
	switch {
	case a.Ndim() <= 1 && b.Ndim() <= 1:
		if a.Len() != b.Len() {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("dense.dot: shapes %v and %v not aligned", a.Shape, b.Shape))
		}
		var s float64
		for i := range a.Data {
			s += a.Data[i] * b.Data[i]
		}
		return s, nil
	case a.Ndim() == 2 && b.Ndim() == 2:
		n, k, m := a.Shape[0], a.Shape[1], b.Shape[1]
		if b.Shape[0] != k {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("dense.dot: shapes %v and %v not aligned", a.Shape, b.Shape))
		}
		out := New(make([]float64, n*m), n, m)
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				var s float64
				for l := 0; l < k; l++ {
					s += a.Data[i*k+l] * b.Data[l*m+j]
				}
				out.Data[i*m+j] = s
			}
		}
		return out, nil
	}
	return nil, errors.E(errors.NotSupported, fmt.Sprintf("dense.dot: unsupported shapes %v and %v", a.Shape, b.Shape))
}

func argExtreme(name string, better func(x, y float64) bool) Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 1, 1); err != nil {
			return nil, err
		}
		a, err := arrayArg(name, args[0])
		if err != nil {
			return nil, err
		}
		if a.Len() == 0 {
			return nil, errors.E(errEmpty, "dense."+name)
		}
		best := 0
		for i, v := range a.Data {
			if better(v, a.Data[best]) {
				best = i
			}
		}
		return best, nil
	}
}

func scan(name string, init float64, fn func(acc, x float64) float64) Impl {
	return func(args ...interface{}) (interface{}, error) {
		if err := nargs(name, args, 1, 1); err != nil {
			return nil, err
		}
		a, err := arrayArg(name, args[0])
		if err != nil {
			return nil, err
		}
		out := make([]float64, a.Len())
		acc := init
		for i, v := range a.Data {
			acc = fn(acc, v)
			out[i] = acc
		}
		return Vector(out...), nil
	}
}

func unique(args ...interface{}) (interface{}, error) {
	if err := nargs("unique", args, 1, 1); err != nil {
		return nil, err
	}
	a, err := arrayArg("unique", args[0])
	if err != nil {
		return nil, err
	}
	vals := append([]float64(nil), a.Data...)
	sort.Float64s(vals)
	out := vals[:0]
	for i, v := range vals {
		if i == 0 || v != vals[i-1] {
			out = append(out, v)
		}
	}
	return Vector(out...), nil
}

func clip(args ...interface{}) (interface{}, error) {
	if err := nargs("clip", args, 3, 3); err != nil {
		return nil, err
	}
	lo, err := floatArg("clip", args[1])
	if err != nil {
		return nil, err
	}
	hi, err := floatArg("clip", args[2])
	if err != nil {
		return nil, err
	}
	return unary("clip", func(x float64) float64 { return math.Min(math.Max(x, lo), hi) })(args[0])
}

func concatenate(args ...interface{}) (interface{}, error) {
	if len(args) == 1 {
		if list, ok := args[0].([]interface{}); ok {
			args = list
		}
	}
	var data []float64
	for _, arg := range args {
		a, err := arrayArg("concatenate", arg)
		if err != nil {
			return nil, err
		}
		if a.Ndim() != 1 {
			return nil, errors.E(errors.NotSupported, fmt.Sprintf("dense.concatenate: %d-dimensional operand", a.Ndim()))
		}
		data = append(data, a.Data...)
	}
	return Vector(data...), nil
}

func reshape(args ...interface{}) (interface{}, error) {
	if err := nargs("reshape", args, 2, -1); err != nil {
		return nil, err
	}
	a, err := arrayArg("reshape", args[0])
	if err != nil {
		return nil, err
	}
	shape, err := shapeArgs("reshape", args[1:])
	if err != nil {
		return nil, err
	}
	if numel(shape) != a.Len() {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("dense.reshape: cannot reshape %d elements into %v", a.Len(), shape))
	}
	return &Array{Shape: shape, Data: a.Data}, nil
}

func property(name string, args []interface{}, get func(*Array) interface{}) (interface{}, error) {
	if err := nargs(name, args, 1, 1); err != nil {
		return nil, err
	}
	a, err := arrayArg(name, args[0])
	if err != nil {
		return nil, err
	}
	return get(a), nil
}

func isnan(args ...interface{}) (interface{}, error) {
	if err := nargs("isnan", args, 1, 1); err != nil {
		return nil, err
	}
	if x, ok := scalar(args[0]); ok {
		return math.IsNaN(x), nil
	}
	a, err := arrayArg("isnan", args[0])
	if err != nil {
		return nil, err
	}
	out := make([]bool, a.Len())
	for i, v := range a.Data {
		out[i] = math.IsNaN(v)
	}
	return out, nil
}

func allclose(args ...interface{}) (interface{}, error) {
	if err := nargs("allclose", args, 2, 4); err != nil {
		return nil, err
	}
	rtol, atol := 1e-5, 1e-8
	if len(args) > 2 {
		var err error
		if rtol, err = floatArg("allclose", args[2]); err != nil {
			return nil, err
		}
	}
	if len(args) > 3 {
		var err error
		if atol, err = floatArg("allclose", args[3]); err != nil {
			return nil, err
		}
	}
	isClose := func(x, y float64) float64 {
		if math.Abs(x-y) <= atol+rtol*math.Abs(y) {
			return 1
		}
		return 0
	}
	c, err := binary("allclose", isClose)(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if f, ok := c.(float64); ok {
		return f == 1, nil
	}
	for _, v := range c.(*Array).Data {
		if v == 0 {
			return false, nil
		}
	}
	return true, nil
}

func arrayEqual(args ...interface{}) (interface{}, error) {
	if err := nargs("array_equal", args, 2, 2); err != nil {
		return nil, err
	}
	a, err := arrayArg("array_equal", args[0])
	if err != nil {
		return nil, err
	}
	b, err := arrayArg("array_equal", args[1])
	if err != nil {
		return nil, err
	}
	if !sameShape(a.Shape, b.Shape) {
		return false, nil
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false, nil
		}
	}
	return true, nil
}

func dtype(args ...interface{}) (interface{}, error) {
	if err := nargs("dtype", args, 1, 1); err != nil {
		return nil, err
	}
	return DTypeOf(args[0])
}

func finfo(args ...interface{}) (interface{}, error) {
	if err := nargs("finfo", args, 1, 1); err != nil {
		return nil, err
	}
	dt, err := DTypeOf(args[0])
	if err != nil {
		return nil, err
	}
	switch dt {
	case Float64:
		return FInfo{DType: dt, Eps: math.Nextafter(1, 2) - 1, Max: math.MaxFloat64, Min: -math.MaxFloat64, Bits: 64}, nil
	case Float32:
		return FInfo{DType: dt, Eps: float64(math.Nextafter32(1, 2) - 1), Max: math.MaxFloat32, Min: -math.MaxFloat32, Bits: 32}, nil
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("dense.finfo: %s is not a floating point dtype", dt))
}

func errstate(args ...interface{}) (interface{}, error) {
	state := ErrState{All: "warn"}
	for _, arg := range args {
		if s, ok := arg.(ErrState); ok {
			state = s
		}
	}
	return state, nil
}

func mayShareMemory(args ...interface{}) (interface{}, error) {
	if err := nargs("may_share_memory", args, 2, 2); err != nil {
		return nil, err
	}
	data := func(v interface{}) []float64 {
		switch v := v.(type) {
		case *Array:
			return v.Data
		case []float64:
			return v
		}
		return nil
	}
	x, y := data(args[0]), data(args[1])
	if len(x) == 0 || len(y) == 0 {
		return false, nil
	}
	xs, xe := &x[0], &x[len(x)-1]
	ys, ye := &y[0], &y[len(y)-1]
	return overlaps(xs, xe, ys, ye), nil
}

func isscalar(args ...interface{}) (interface{}, error) {
	if err := nargs("isscalar", args, 1, 1); err != nil {
		return nil, err
	}
	return IsScalar(args[0]), nil
}
