// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package crossframe

import (
	"context"
	"fmt"
	"reflect"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/frame"
)

func init() {
	Register(reflect.TypeOf((*frame.Frame)(nil)), func(data interface{}) (Frame, error) {
		return Local{data.(*frame.Frame)}, nil
	})
}

// Local is the in-memory frame backend. It supports every Frame
// method.
type Local struct {
	*frame.Frame
}

var (
	_ Frame        = Local{}
	_ Concatenator = Local{}
)

// Data returns the underlying *frame.Frame.
func (l Local) Data() interface{} { return l.Frame }

// Backend returns "local".
func (Local) Backend() string { return "local" }

// Columns returns the frame's column names.
func (l Local) Columns() []string { return l.Names() }

// Dtypes returns the element type of each column.
func (l Local) Dtypes() map[string]reflect.Type { return l.Types() }

// Len returns the number of rows.
func (l Local) Len() (int, error) { return l.Frame.Len(), nil }

// Column returns the named column's slice.
func (l Local) Column(name string) (interface{}, error) {
	col, ok := l.Frame.Column(name)
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("crossframe: no column %s", name))
	}
	return col.Interface(), nil
}

func (l Local) Project(names ...string) (Frame, error) {
	if err := CheckProjection(names, l.Names()); err != nil {
		return nil, err
	}
	f, err := l.Frame.Project(names...)
	if err != nil {
		return nil, err
	}
	return Local{f}, nil
}

func (l Local) Assign(name string, col interface{}) (Frame, error) {
	f, err := l.Frame.With(name, col)
	if err != nil {
		return nil, err
	}
	return Local{f}, nil
}

func (l Local) Apply(fn ColumnFunc) (Frame, error) {
	f := l.Frame
	for i, name := range l.Names() {
		col, err := fn(name, l.ColumnAt(i).Interface())
		if err != nil {
			return nil, err
		}
		if f, err = f.With(name, col); err != nil {
			return nil, err
		}
	}
	return Local{f}, nil
}

// Aggregate aggregates the frame as a single chunk.
func (l Local) Aggregate(ctx context.Context, agg Aggregation) (*frame.Frame, error) {
	state, err := agg.Chunk(ctx, l.Frame)
	if err != nil {
		return nil, err
	}
	return agg.Finalize(state)
}

// Compute returns l; local frames are always computed.
func (l Local) Compute(ctx context.Context) (Frame, error) { return l, nil }

// Persist returns l.
func (l Local) Persist(ctx context.Context) (Frame, error) { return l, nil }

func (l Local) Take(indices []int) (Frame, error) {
	n := l.Frame.Len()
	for _, i := range indices {
		if i < 0 || i >= n {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("crossframe: index %d out of range [0, %d)", i, n))
		}
	}
	return Local{l.Frame.Take(indices)}, nil
}

func (l Local) GroupbyIndices(name string) (interface{}, [][]int, error) {
	keys, indices, err := l.GroupIndices(name)
	if err != nil {
		return nil, nil, err
	}
	return keys.Interface(), indices, nil
}

func (l Local) GroupbyPartition(name string) (interface{}, []Frame, error) {
	keys, indices, err := l.GroupIndices(name)
	if err != nil {
		return nil, nil, err
	}
	frames := make([]Frame, len(indices))
	for i := range indices {
		frames[i] = Local{l.Frame.Take(indices[i])}
	}
	return keys.Interface(), frames, nil
}

// Cast converts columns between numeric types, and from any type to
// string.
func (l Local) Cast(types map[string]reflect.Type) (Frame, error) {
	f := l.Frame
	for name, typ := range types {
		col, ok := f.Column(name)
		if !ok {
			return nil, errors.E(errors.NotExist, fmt.Sprintf("crossframe: no column %s", name))
		}
		if col.ElemType() == typ {
			continue
		}
		out, err := castColumn(col, typ)
		if err != nil {
			return nil, errors.E(fmt.Sprintf("crossframe: cast column %s", name), err)
		}
		if f, err = f.With(name, out.Interface()); err != nil {
			return nil, err
		}
	}
	return Local{f}, nil
}

func castColumn(col frame.Column, typ reflect.Type) (frame.Column, error) {
	out := reflect.MakeSlice(reflect.SliceOf(typ), col.Len(), col.Len())
	switch {
	case typ.Kind() == reflect.String:
		for i := 0; i < col.Len(); i++ {
			out.Index(i).SetString(fmt.Sprint(col.Index(i)))
		}
	case isNumeric(typ) && isNumeric(col.ElemType()):
		for i := 0; i < col.Len(); i++ {
			out.Index(i).Set(col.Index(i).Convert(typ))
		}
	default:
		return frame.Column{}, errors.E(errors.NotSupported, fmt.Sprintf("cannot cast %s to %s", col.ElemType(), typ))
	}
	return frame.Column(out), nil
}

func isNumeric(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (l Local) ToMap() (map[string]interface{}, error) {
	m := make(map[string]interface{}, l.NumColumn())
	for i, name := range l.Names() {
		m[name] = l.ColumnAt(i).Interface()
	}
	return m, nil
}

// Concat appends the rows of frames, which must all be local.
func (l Local) Concat(ctx context.Context, frames []Frame) (Frame, error) {
	var out *frame.Frame
	for _, f := range frames {
		lf, ok := f.(Local)
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("crossframe: cannot concatenate %s frame with local frames", f.Backend()))
		}
		var err error
		if out, err = frame.Append(out, lf.Frame); err != nil {
			return nil, err
		}
	}
	return Local{out}, nil
}
