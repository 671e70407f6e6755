// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"reflect"
	"strconv"

	"github.com/grailbio/polyslice/frame"
)

func init() {
	Register(reflect.TypeOf(float64(0)), float64Kernel{})
	Register(reflect.TypeOf(float32(0)), float32Kernel{})
	Register(reflect.TypeOf(int(0)), intKernel{})
	Register(reflect.TypeOf(int32(0)), int32Kernel{})
	Register(reflect.TypeOf(int64(0)), int64Kernel{})
	Register(reflect.TypeOf(""), stringKernel{})
	Register(reflect.TypeOf([]byte(nil)), bytesKernel{})
	Register(reflect.TypeOf(false), boolKernel{})
}

type float64Kernel struct{}

var _ Summarizer = float64Kernel{}

func (float64Kernel) Summarize(col frame.Column) Summary {
	s := EmptySummary
	for _, v := range col.Interface().([]float64) {
		s = s.Add(v)
	}
	return s
}

type float32Kernel struct{}

var _ Summarizer = float32Kernel{}

func (float32Kernel) Summarize(col frame.Column) Summary {
	s := EmptySummary
	for _, v := range col.Interface().([]float32) {
		s = s.Add(float64(v))
	}
	return s
}

// Integer columns are both continuous and categorical.

type intKernel struct{}

var (
	_ Summarizer = intKernel{}
	_ Counter    = intKernel{}
)

func (intKernel) Summarize(col frame.Column) Summary {
	s := EmptySummary
	for _, v := range col.Interface().([]int) {
		s = s.Add(float64(v))
	}
	return s
}

func (intKernel) Count(col frame.Column, counts Counts) {
	for _, v := range col.Interface().([]int) {
		counts[strconv.Itoa(v)]++
	}
}

type int32Kernel struct{}

var (
	_ Summarizer = int32Kernel{}
	_ Counter    = int32Kernel{}
)

func (int32Kernel) Summarize(col frame.Column) Summary {
	s := EmptySummary
	for _, v := range col.Interface().([]int32) {
		s = s.Add(float64(v))
	}
	return s
}

func (int32Kernel) Count(col frame.Column, counts Counts) {
	for _, v := range col.Interface().([]int32) {
		counts[strconv.FormatInt(int64(v), 10)]++
	}
}

type int64Kernel struct{}

var (
	_ Summarizer = int64Kernel{}
	_ Counter    = int64Kernel{}
)

func (int64Kernel) Summarize(col frame.Column) Summary {
	s := EmptySummary
	for _, v := range col.Interface().([]int64) {
		s = s.Add(float64(v))
	}
	return s
}

func (int64Kernel) Count(col frame.Column, counts Counts) {
	for _, v := range col.Interface().([]int64) {
		counts[strconv.FormatInt(v, 10)]++
	}
}

type stringKernel struct{}

var _ Counter = stringKernel{}

func (stringKernel) Count(col frame.Column, counts Counts) {
	for _, v := range col.Interface().([]string) {
		counts[v]++
	}
}

type bytesKernel struct{}

var _ Counter = bytesKernel{}

func (bytesKernel) Count(col frame.Column, counts Counts) {
	for _, v := range col.Interface().([][]byte) {
		counts[string(v)]++
	}
}

type boolKernel struct{}

var _ Counter = boolKernel{}

func (boolKernel) Count(col frame.Column, counts Counts) {
	for _, v := range col.Interface().([]bool) {
		counts[strconv.FormatBool(v)]++
	}
}
