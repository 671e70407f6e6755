// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset loads tabular datasets into partitioned dataframes.
// Column types are inferred from the data: a column whose values are
// all integers becomes an int64 column; one whose values are all
// numbers becomes a float64 column, with missing values represented
// by NaN; any other column becomes a string column.
package dataset

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/polyslice/dframe"
	"github.com/grailbio/polyslice/frame"
)

// Options configures dataset loading.
type Options struct {
	// Partitions is the number of partitions of the loaded dataframe.
	// It defaults to 1.
	Partitions int
	// Parallelism bounds the number of partitions that are computed
	// concurrently.
	Parallelism int
	// Comma is the CSV field separator. It defaults to ','.
	Comma rune
	// NoHeader indicates that a CSV file has no header row; its
	// columns are then named c0, c1, and so on.
	NoHeader bool
}

func (o Options) dataframe(f *frame.Frame) *dframe.DataFrame {
	var opts []dframe.Option
	if o.Parallelism > 0 {
		opts = append(opts, dframe.Parallelism(o.Parallelism))
	}
	return dframe.FromFrame(f, o.Partitions, opts...)
}

var registerS3 sync.Once

// RegisterS3 registers the "s3" file scheme, using the default AWS
// credentials provider, so that datasets may be loaded from S3 paths.
// It may be called more than once.
func RegisterS3() {
	registerS3.Do(func() {
		file.RegisterImplementation("s3", func() file.Implementation {
			return s3file.NewImplementation(
				s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
		})
	})
}

// A column accumulates the values of a column before its type is
// known. Missing values are nil. The raw field, if set, holds the
// original text of each value.
type column struct {
	vals []interface{}
	raw  []string
}

func (c *column) add(v interface{}, raw string) {
	c.vals = append(c.vals, v)
	c.raw = append(c.raw, raw)
}

var (
	typeOfInt64   = reflect.TypeOf(int64(0))
	typeOfFloat64 = reflect.TypeOf(float64(0))
	typeOfString  = reflect.TypeOf("")
)

// Type returns the inferred element type of the column.
func (c *column) Type() reflect.Type {
	var ints, floats, missing int
	for _, v := range c.vals {
		switch v.(type) {
		case nil:
			missing++
		case int64:
			ints++
		case float64:
			floats++
		}
	}
	switch {
	case ints+missing == len(c.vals) && missing == 0 && ints > 0:
		return typeOfInt64
	case ints+floats+missing == len(c.vals) && ints+floats > 0:
		return typeOfFloat64
	default:
		return typeOfString
	}
}

// Slice returns the column's values as a slice of its inferred type.
func (c *column) Slice() interface{} {
	switch c.Type() {
	case typeOfInt64:
		out := make([]int64, len(c.vals))
		for i, v := range c.vals {
			out[i] = v.(int64)
		}
		return out
	case typeOfFloat64:
		out := make([]float64, len(c.vals))
		for i, v := range c.vals {
			switch v := v.(type) {
			case nil:
				out[i] = math.NaN()
			case int64:
				out[i] = float64(v)
			case float64:
				out[i] = v
			}
		}
		return out
	default:
		out := make([]string, len(c.vals))
		for i, v := range c.vals {
			switch {
			case v == nil:
			case c.raw != nil:
				out[i] = c.raw[i]
			default:
				out[i] = fmt.Sprint(v)
			}
		}
		return out
	}
}

func makeFrame(names []string, cols []*column) (*frame.Frame, error) {
	slices := make([]interface{}, len(cols))
	for i, c := range cols {
		slices[i] = c.Slice()
	}
	return frame.FromColumns(names, slices...)
}
