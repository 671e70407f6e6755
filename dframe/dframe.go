// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dframe implements a partitioned, lazily evaluated
// dataframe. A DataFrame is a list of partitions, each of which
// computes a *frame.Frame on demand. Transformations such as
// MapPartitions and Project compose new partition functions without
// computing anything; Compute, Persist and Aggregate evaluate
// partitions in parallel.
//
// Every DataFrame carries a zero-length "meta" frame describing its
// columns. Transformations infer the meta of their result by applying
// themselves to the meta of their input, so that schema errors are
// reported when a transformation is defined rather than when it is
// computed.
package dframe

import (
	"context"
	"fmt"
	"reflect"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/polyslice/frame"
	"github.com/grailbio/polyslice/metrics"
	"golang.org/x/sync/errgroup"
)

// A partition computes one piece of a DataFrame.
type partition func(ctx context.Context) (*frame.Frame, error)

type options struct {
	parallelism int
}

// An Option configures a DataFrame.
type Option func(*options)

// Parallelism sets the maximum number of partitions that are
// evaluated concurrently. The default is the number of CPUs.
func Parallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

func makeOptions(opts []Option) options {
	o := options{parallelism: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DataFrame is a partitioned, lazily evaluated dataframe.
// DataFrames are immutable.
type DataFrame struct {
	meta  *frame.Frame
	parts []partition
	opts  options
}

// FromFrame returns a DataFrame that splits the rows of f into
// nparts partitions of nearly equal size.
func FromFrame(f *frame.Frame, nparts int, opts ...Option) *DataFrame {
	if nparts < 1 {
		nparts = 1
	}
	if n := f.Len(); n > 0 && nparts > n {
		nparts = n
	}
	parts := make([]*frame.Frame, nparts)
	for i := range parts {
		beg, end := i*f.Len()/nparts, (i+1)*f.Len()/nparts
		parts[i] = f.Slice(beg, end)
	}
	df, err := FromPartitions(parts, opts...)
	if err != nil {
		// Slices of a single frame always share a schema.
		panic(err)
	}
	return df
}

// FromPartitions returns a DataFrame with the provided, already
// computed partitions. The partitions must have the same columns.
func FromPartitions(frames []*frame.Frame, opts ...Option) (*DataFrame, error) {
	if len(frames) == 0 {
		return nil, errors.E(errors.Invalid, "dframe: no partitions")
	}
	meta := frames[0].Slice(0, 0)
	parts := make([]partition, len(frames))
	for i, f := range frames {
		if err := sameSchema(meta, f); err != nil {
			return nil, errors.E(fmt.Sprintf("dframe: partition %d", i), err)
		}
		f := f
		parts[i] = func(context.Context) (*frame.Frame, error) { return f, nil }
	}
	return &DataFrame{meta: meta, parts: parts, opts: makeOptions(opts)}, nil
}

func sameSchema(meta, f *frame.Frame) error {
	names, types := meta.Names(), meta.Types()
	if got := f.Names(); len(got) != len(names) {
		return errors.E(errors.Invalid, fmt.Sprintf("columns %v do not match %v", got, names))
	}
	for name, typ := range f.Types() {
		if types[name] != typ {
			return errors.E(errors.Invalid, fmt.Sprintf("column %s: type %v does not match %v", name, typ, types[name]))
		}
	}
	return nil
}

// NumPartitions returns the number of partitions in df.
func (df *DataFrame) NumPartitions() int { return len(df.parts) }

// Columns returns the names of df's columns.
func (df *DataFrame) Columns() []string { return df.meta.Names() }

// Dtypes returns the element type of each column.
func (df *DataFrame) Dtypes() map[string]reflect.Type { return df.meta.Types() }

// Meta returns the zero-length frame that describes df's columns.
func (df *DataFrame) Meta() *frame.Frame { return df.meta }

func (df *DataFrame) String() string {
	return fmt.Sprintf("dframe[%d]%s", len(df.parts), df.meta)
}

// Partition computes the i'th partition. The partition is computed
// with its own metrics scope, which is merged into the scope attached
// to ctx, if any, when the partition is computed successfully.
func (df *DataFrame) Partition(ctx context.Context, i int) (*frame.Frame, error) {
	var scope metrics.Scope
	f, err := df.parts[i](metrics.ScopedContext(ctx, &scope))
	if err != nil {
		return nil, errors.E(fmt.Sprintf("dframe: partition %d", i), err)
	}
	if parent := metrics.ContextScope(ctx); parent != nil {
		parent.Merge(&scope)
	}
	return f, nil
}

// MapPartitions returns a DataFrame whose partitions are the result
// of applying fn to each partition of df. Fn is also applied to df's
// meta frame to determine the result's columns; it must therefore
// accept empty frames.
func (df *DataFrame) MapPartitions(fn func(ctx context.Context, f *frame.Frame) (*frame.Frame, error)) (*DataFrame, error) {
	meta, err := fn(context.Background(), df.meta)
	if err != nil {
		return nil, errors.E("dframe: infer columns", err)
	}
	parts := make([]partition, len(df.parts))
	for i := range df.parts {
		part := df.parts[i]
		parts[i] = func(ctx context.Context) (*frame.Frame, error) {
			f, err := part(ctx)
			if err != nil {
				return nil, err
			}
			out, err := fn(ctx, f)
			if err != nil {
				return nil, err
			}
			if err := sameSchema(meta, out); err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	return &DataFrame{meta: meta.Slice(0, 0), parts: parts, opts: df.opts}, nil
}

// Project returns a DataFrame with only the named columns.
func (df *DataFrame) Project(names ...string) (*DataFrame, error) {
	return df.MapPartitions(func(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
		return f.Project(names...)
	})
}

// Assign returns a DataFrame with the column name computed for each
// partition by fn.
func (df *DataFrame) Assign(name string, fn func(f *frame.Frame) (interface{}, error)) (*DataFrame, error) {
	return df.MapPartitions(func(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
		col, err := fn(f)
		if err != nil {
			return nil, err
		}
		return f.With(name, col)
	})
}

// Concat returns a DataFrame with the partitions of each of the
// provided DataFrames, in order. The DataFrames must have the same
// columns.
func Concat(dfs ...*DataFrame) (*DataFrame, error) {
	if len(dfs) == 0 {
		return nil, errors.E(errors.Invalid, "dframe.Concat: no dataframes")
	}
	out := &DataFrame{meta: dfs[0].meta, opts: dfs[0].opts}
	for i, df := range dfs {
		if err := sameSchema(out.meta, df.meta); err != nil {
			return nil, errors.E(fmt.Sprintf("dframe.Concat: dataframe %d", i), err)
		}
		out.parts = append(out.parts, df.parts...)
	}
	return out, nil
}

// computeAll evaluates all of df's partitions, in parallel.
func (df *DataFrame) computeAll(ctx context.Context) ([]*frame.Frame, error) {
	frames := make([]*frame.Frame, len(df.parts))
	err := traverse.Limit(df.opts.parallelism).Each(len(df.parts), func(i int) (err error) {
		frames[i], err = df.Partition(ctx, i)
		return
	})
	return frames, err
}

// Compute evaluates df and returns its rows as a single frame.
func (df *DataFrame) Compute(ctx context.Context) (*frame.Frame, error) {
	frames, err := df.computeAll(ctx)
	if err != nil {
		return nil, err
	}
	out := df.meta
	for _, f := range frames {
		if out, err = frame.Append(out, f); err != nil {
			return nil, err
		}
	}
	log.Debug.Printf("dframe: computed %d rows from %d partitions", out.Len(), len(frames))
	return out, nil
}

// Persist evaluates df's partitions and returns a DataFrame that
// holds them in memory.
func (df *DataFrame) Persist(ctx context.Context) (*DataFrame, error) {
	frames, err := df.computeAll(ctx)
	if err != nil {
		return nil, err
	}
	out, err := FromPartitions(frames)
	if err != nil {
		return nil, err
	}
	out.opts = df.opts
	return out, nil
}

// Aggregate reduces df: chunk is applied to each partition in
// parallel, and the partial results are then combined pairwise, in a
// tree, until a single result remains. Combine must be associative.
func (df *DataFrame) Aggregate(ctx context.Context,
	chunk func(ctx context.Context, f *frame.Frame) (interface{}, error),
	combine func(a, b interface{}) (interface{}, error)) (interface{}, error) {
	states := make([]interface{}, len(df.parts))
	err := traverse.Limit(df.opts.parallelism).Each(len(df.parts), func(i int) error {
		f, err := df.Partition(ctx, i)
		if err != nil {
			return err
		}
		states[i], err = chunk(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	for len(states) > 1 {
		next := make([]interface{}, (len(states)+1)/2)
		g, _ := errgroup.WithContext(ctx)
		for i := range next {
			i := i
			if 2*i+1 == len(states) {
				next[i] = states[2*i]
				continue
			}
			g.Go(func() (err error) {
				next[i], err = combine(states[2*i], states[2*i+1])
				return
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		states = next
	}
	return states[0], nil
}
