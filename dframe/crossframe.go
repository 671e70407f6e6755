// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dframe

import (
	"context"
	"fmt"
	"reflect"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/crossframe"
	"github.com/grailbio/polyslice/frame"
)

// BackendName is the crossframe backend name of DataFrames.
const BackendName = "dframe"

var typeOfDataFrame = reflect.TypeOf((*DataFrame)(nil))

func init() {
	crossframe.RegisterLazy(typeOfDataFrame.Elem().PkgPath(), func() {
		log.Debug.Printf("dframe: registering crossframe backend")
		crossframe.Register(typeOfDataFrame, func(data interface{}) (crossframe.Frame, error) {
			return xframe{data.(*DataFrame)}, nil
		})
	})
}

// xframe adapts a DataFrame to crossframe.Frame. Methods that would
// require the whole frame to be materialized are declined; callers
// should Compute first.
type xframe struct {
	df *DataFrame
}

var (
	_ crossframe.Frame        = xframe{}
	_ crossframe.Concatenator = xframe{}
)

func (x xframe) Data() interface{}               { return x.df }
func (xframe) Backend() string                   { return BackendName }
func (x xframe) Columns() []string               { return x.df.Columns() }
func (x xframe) Dtypes() map[string]reflect.Type { return x.df.Dtypes() }

func (xframe) Len() (int, error) {
	return 0, crossframe.Unsupported("len", BackendName)
}

// Column returns the named column as a lazy, one-column *DataFrame.
func (x xframe) Column(name string) (interface{}, error) {
	if _, ok := x.df.Dtypes()[name]; !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("dframe: no column %s", name))
	}
	return x.df.Project(name)
}

func (x xframe) Project(names ...string) (crossframe.Frame, error) {
	if err := crossframe.CheckProjection(names, x.df.Columns()); err != nil {
		return nil, err
	}
	df, err := x.df.Project(names...)
	if err != nil {
		return nil, err
	}
	return xframe{df}, nil
}

// Assign requires col to be a partition function of type
// func(*frame.Frame) (interface{}, error), as a DataFrame's rows
// are not addressable by a single slice.
func (x xframe) Assign(name string, col interface{}) (crossframe.Frame, error) {
	fn, ok := col.(func(*frame.Frame) (interface{}, error))
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("dframe: cannot assign column %s from %T; need a partition function", name, col))
	}
	df, err := x.df.Assign(name, fn)
	if err != nil {
		return nil, err
	}
	return xframe{df}, nil
}

func (x xframe) Apply(fn crossframe.ColumnFunc) (crossframe.Frame, error) {
	df, err := x.df.MapPartitions(func(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
		for i, name := range f.Names() {
			col, err := fn(name, f.ColumnAt(i).Interface())
			if err != nil {
				return nil, err
			}
			if f, err = f.With(name, col); err != nil {
				return nil, err
			}
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return xframe{df}, nil
}

func (x xframe) Aggregate(ctx context.Context, agg crossframe.Aggregation) (*frame.Frame, error) {
	state, err := x.df.Aggregate(ctx, agg.Chunk, agg.Combine)
	if err != nil {
		return nil, err
	}
	return agg.Finalize(state)
}

// Compute returns a local frame.
func (x xframe) Compute(ctx context.Context) (crossframe.Frame, error) {
	f, err := x.df.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return crossframe.Of(f)
}

func (x xframe) Persist(ctx context.Context) (crossframe.Frame, error) {
	df, err := x.df.Persist(ctx)
	if err != nil {
		return nil, err
	}
	return xframe{df}, nil
}

func (xframe) Take([]int) (crossframe.Frame, error) {
	return nil, crossframe.Unsupported("take", BackendName)
}

func (xframe) GroupbyIndices(string) (interface{}, [][]int, error) {
	return nil, nil, crossframe.Unsupported("groupby_indices", BackendName)
}

func (xframe) GroupbyPartition(string) (interface{}, []crossframe.Frame, error) {
	return nil, nil, crossframe.Unsupported("groupby_partition", BackendName)
}

func (xframe) Cast(map[string]reflect.Type) (crossframe.Frame, error) {
	return nil, crossframe.Unsupported("cast", BackendName)
}

func (xframe) ToMap() (map[string]interface{}, error) {
	return nil, crossframe.Unsupported("to_map", BackendName)
}

// Concat concatenates the partitions of frames, which must all be
// DataFrames.
func (xframe) Concat(ctx context.Context, frames []crossframe.Frame) (crossframe.Frame, error) {
	dfs := make([]*DataFrame, len(frames))
	for i, f := range frames {
		df, ok := f.Data().(*DataFrame)
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("dframe: cannot concatenate %s frame with dframe frames", f.Backend()))
		}
		dfs[i] = df
	}
	df, err := Concat(dfs...)
	if err != nil {
		return nil, err
	}
	return xframe{df}, nil
}
