// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	_ "github.com/grailbio/polyslice/backend/gonumarray"
	"github.com/grailbio/polyslice/chunked"
	"github.com/grailbio/polyslice/dense"
	"github.com/grailbio/polyslice/dispatch"
	"github.com/grailbio/polyslice/frame"
	"gonum.org/v1/gonum/mat"
)

func reduceCmd(ctx context.Context, args []string) error {
	var (
		flags      = flag.NewFlagSet("polyslice reduce", flag.ExitOnError)
		op         = flags.String("op", "sum", "reduction to compute: sum, mean, std, var, min, max, or prod")
		backend    = flags.String("backend", "chunked", "array backend: dense, chunked, or gonum")
		chunkSize  = flags.Int("chunksize", chunked.DefaultChunkSize, "chunk size of the chunked backend")
		partitions = flags.Int("partitions", 4, "number of partitions of CSV inputs")
	)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, `usage: polyslice reduce [-op name] [-backend name] dataset column`)
		flags.PrintDefaults()
		os.Exit(2)
	}
	if err := flags.Parse(args); err != nil {
		log.Fatal(err)
	}
	if flags.NArg() != 2 {
		flags.Usage()
	}
	df, err := load(ctx, flags.Arg(0), *partitions)
	if err != nil {
		return err
	}
	df, err = df.Project(flags.Arg(1))
	if err != nil {
		return err
	}
	f, err := df.Compute(ctx)
	if err != nil {
		return err
	}
	before := dispatch.Stats()
	v, err := reduceColumn(ctx, f, flags.Arg(1), *op, *backend, *chunkSize)
	if err != nil {
		return err
	}
	fmt.Printf("%s(%s) = %v\n", *op, flags.Arg(1), v)
	log.Printf("dispatch: %v", dispatch.Stats().Sub(before))
	return nil
}

// reduceColumn computes the named reduction of a numeric column. The
// column is converted to an array of the requested backend, and the
// reduction is called through the reference namespace inside a
// polymorphic scope, so that it is computed by that backend.
func reduceColumn(ctx context.Context, f *frame.Frame, column, op, backend string, chunkSize int) (interface{}, error) {
	col, ok := f.Column(column)
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("no column %s", column))
	}
	x, err := floats(col)
	if err != nil {
		return nil, err
	}
	var arg interface{}
	switch backend {
	case "dense":
		arg = dense.Vector(x...)
	case "chunked":
		arg = chunked.New(x, chunkSize)
	case "gonum":
		if len(x) == 0 {
			return nil, errors.E(errors.Invalid, "gonum vectors cannot be empty")
		}
		arg = mat.NewVecDense(len(x), x)
	default:
		return nil, errors.E(errors.Invalid, fmt.Sprintf("unknown backend %s", backend))
	}
	reduce, err := dispatch.Polymorphic(func(x interface{}) (interface{}, error) {
		return dense.Call(op, x)
	})
	if err != nil {
		return nil, err
	}
	return reduce.Apply(ctx, arg)
}

var typeOfFloat64 = reflect.TypeOf(float64(0))

func floats(col frame.Column) ([]float64, error) {
	if !col.ElemType().ConvertibleTo(typeOfFloat64) || col.ElemType().Kind() == reflect.String {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("column of type %s is not numeric", col.ElemType()))
	}
	x := make([]float64, col.Len())
	for i := range x {
		x[i] = col.Index(i).Convert(typeOfFloat64).Float()
	}
	return x, nil
}
