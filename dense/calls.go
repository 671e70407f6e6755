// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dense

import "unsafe"

// Call invokes the function currently bound to name in Default.
func Call(name string, args ...interface{}) (interface{}, error) {
	fn, err := Default.Func(name)
	if err != nil {
		return nil, err
	}
	return fn.Call(args...)
}

// Sum returns the sum of the elements of x.
func Sum(x interface{}) (interface{}, error) { return Call("sum", x) }

// Mean returns the arithmetic mean of the elements of x.
func Mean(x interface{}) (interface{}, error) { return Call("mean", x) }

// Std returns the population standard deviation of the elements of x.
func Std(x interface{}) (interface{}, error) { return Call("std", x) }

// Min returns the smallest element of x.
func Min(x interface{}) (interface{}, error) { return Call("min", x) }

// Max returns the largest element of x.
func Max(x interface{}) (interface{}, error) { return Call("max", x) }

// Add adds x and y element-wise.
func Add(x, y interface{}) (interface{}, error) { return Call("add", x, y) }

// Subtract subtracts y from x element-wise.
func Subtract(x, y interface{}) (interface{}, error) { return Call("subtract", x, y) }

// Multiply multiplies x and y element-wise.
func Multiply(x, y interface{}) (interface{}, error) { return Call("multiply", x, y) }

// Divide divides x by y element-wise.
func Divide(x, y interface{}) (interface{}, error) { return Call("divide", x, y) }

// Sqrt computes the element-wise square root of x.
func Sqrt(x interface{}) (interface{}, error) { return Call("sqrt", x) }

// Square computes the element-wise square of x.
func Square(x interface{}) (interface{}, error) { return Call("square", x) }

// Dot computes the dot product of x and y.
func Dot(x, y interface{}) (interface{}, error) { return Call("dot", x, y) }

func overlaps(xs, xe, ys, ye *float64) bool {
	x0, x1 := uintptr(unsafe.Pointer(xs)), uintptr(unsafe.Pointer(xe))
	y0, y1 := uintptr(unsafe.Pointer(ys)), uintptr(unsafe.Pointer(ye))
	return x0 <= y1 && y0 <= x1
}
