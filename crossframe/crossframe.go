// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package crossframe provides a uniform dataframe facade over
// concrete dataframe backends. A backend registers a factory for its
// dataframe type; Of wraps any registered value in a Frame. Each
// backend implements the full Frame method set, but may decline
// methods that do not make sense for it (for example, methods that
// would force a partitioned frame to be fully materialized) by
// returning an error of kind errors.NotSupported.
package crossframe

import (
	"context"
	"fmt"
	"reflect"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/dispatch"
	"github.com/grailbio/polyslice/frame"
)

// Frame is the dataframe facade implemented by each backend.
type Frame interface {
	// Data returns the underlying backend value.
	Data() interface{}
	// Backend returns the backend's name.
	Backend() string
	// Columns returns the frame's column names, in order.
	Columns() []string
	// Dtypes returns the element type of each column.
	Dtypes() map[string]reflect.Type
	// Len returns the number of rows in the frame.
	Len() (int, error)
	// Column returns the values of the named column as a slice.
	Column(name string) (interface{}, error)
	// Project returns a frame with only the named columns, in the
	// order given. It fails with an error of kind errors.Invalid
	// unless the names are a subset of the frame's columns.
	Project(names ...string) (Frame, error)
	// Assign returns a frame with the column name set to col.
	Assign(name string, col interface{}) (Frame, error)
	// Apply returns a frame in which each column is replaced by the
	// result of calling fn on it.
	Apply(fn ColumnFunc) (Frame, error)
	// Aggregate reduces the frame with agg.
	Aggregate(ctx context.Context, agg Aggregation) (*frame.Frame, error)
	// Compute returns a frame whose data is held in memory.
	Compute(ctx context.Context) (Frame, error)
	// Persist returns a frame of the same backend whose data have
	// been computed and retained.
	Persist(ctx context.Context) (Frame, error)
	// Take returns a frame of the rows at the provided indices.
	Take(indices []int) (Frame, error)
	// GroupbyIndices returns the distinct values of the named column
	// and, for each, the indices of the rows holding it.
	GroupbyIndices(name string) (keys interface{}, indices [][]int, err error)
	// GroupbyPartition splits the frame by the distinct values of the
	// named column, returning the keys and one frame per key.
	GroupbyPartition(name string) (keys interface{}, frames []Frame, err error)
	// Cast returns a frame with the provided columns converted to the
	// given element types.
	Cast(types map[string]reflect.Type) (Frame, error)
	// ToMap returns the frame's columns keyed by name.
	ToMap() (map[string]interface{}, error)
}

// A ColumnFunc computes a new column from an existing one. The
// returned column must have the same length.
type ColumnFunc func(name string, col interface{}) (interface{}, error)

// An Aggregation reduces a frame to a summary. Chunk computes a
// partial state for a piece of the frame, Combine merges two partial
// states, and Finalize renders the combined state as a frame.
// Backends may chunk a frame arbitrarily; Combine must be associative.
type Aggregation interface {
	Chunk(ctx context.Context, f *frame.Frame) (interface{}, error)
	Combine(a, b interface{}) (interface{}, error)
	Finalize(state interface{}) (*frame.Frame, error)
}

// A Concatenator is a Frame that can concatenate frames of its own
// backend.
type Concatenator interface {
	Concat(ctx context.Context, frames []Frame) (Frame, error)
}

// A Factory wraps a backend value in a Frame.
type Factory func(data interface{}) (Frame, error)

var backends = dispatch.NewTable("crossframe")

// Register binds the factory to values of type typ, silently
// replacing any previous binding.
func Register(typ reflect.Type, factory Factory) {
	backends.Register(typ, factory)
}

// RegisterLazy defers registration of the frame backend for the types
// in the package family pkgPath until a value from that family is
// first passed to Of. The loader should call Register; it is run at
// most once.
func RegisterLazy(pkgPath string, load func()) {
	backends.RegisterLazy(pkgPath, load)
}

// Of returns the Frame for data. Frames are returned as-is. Of fails
// with an error of kind errors.NotExist if no backend is registered
// for data's type.
func Of(data interface{}) (Frame, error) {
	if f, ok := data.(Frame); ok {
		return f, nil
	}
	v, err := backends.Lookup(reflect.TypeOf(data))
	if err != nil {
		return nil, err
	}
	return v.(Factory)(data)
}

// FromMap returns an in-memory frame holding the provided columns,
// ordered by name.
func FromMap(cols map[string]interface{}) (Frame, error) {
	f, err := frame.FromMap(cols)
	if err != nil {
		return nil, err
	}
	return Local{f}, nil
}

// Concat concatenates the rows of the provided frames. The operation
// is dispatched on the backend of the first frame, which must
// implement Concatenator.
func Concat(ctx context.Context, frames []Frame) (Frame, error) {
	if len(frames) == 0 {
		return nil, errors.E(errors.Invalid, "crossframe.Concat: no frames")
	}
	c, ok := frames[0].(Concatenator)
	if !ok {
		return nil, Unsupported("concat", frames[0].Backend())
	}
	return c.Concat(ctx, frames)
}

// Unsupported returns the error reported by backends that decline a
// method.
func Unsupported(method, backend string) error {
	return errors.E(errors.NotSupported, fmt.Sprintf("%s not implemented for %s", method, backend))
}

// CheckProjection returns an error of kind errors.Invalid if names
// are not a subset of columns.
func CheckProjection(names, columns []string) error {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	for _, name := range names {
		if !have[name] {
			return errors.E(errors.Invalid, fmt.Sprintf("invalid projection: %v", names))
		}
	}
	return nil
}
