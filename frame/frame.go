// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package frame implements in-memory tables of named columns. Frames
// are the local data representation behind the cross-backend frame
// API (package crossframe), and the unit of data held by each
// partition of a partitioned dataframe (package dframe).
package frame

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/typecheck"
)

// Column represents a single column of values in a frame. Columns
// are always Go slices, but are represented here as a reflect.Value
// to support type polymorphism.
type Column reflect.Value

// ColumnOf returns a new column created from the given interface,
// which must be a slice.
func ColumnOf(x interface{}) Column {
	return Column(reflect.ValueOf(x))
}

// Index returns the value at index i of the column c.
func (c Column) Index(i int) reflect.Value { return reflect.Value(c).Index(i) }

// Type returns the type of the column. The returned type is always a
// slice.
func (c Column) Type() reflect.Type { return reflect.Value(c).Type() }

// ElemType returns the element type of the column.
func (c Column) ElemType() reflect.Type { return c.Type().Elem() }

// Value returns the reflect.Value that represents this column.
func (c Column) Value() reflect.Value { return reflect.Value(c) }

// Slice slices the column.
func (c Column) Slice(i, j int) Column { return Column(reflect.Value(c).Slice(i, j)) }

// Len returns the column's length.
func (c Column) Len() int { return reflect.Value(c).Len() }

// Interface returns the column value as an empty interface.
func (c Column) Interface() interface{} { return reflect.Value(c).Interface() }

// Ops returns the operations registered for the column's element
// type, bound to the column.
func (c Column) Ops() Ops {
	return makeSliceOps(c.ElemType(), c.Value())
}

// Take returns a new column holding the values at the provided
// indices, in order.
func (c Column) Take(indices []int) Column {
	out := reflect.MakeSlice(c.Type(), len(indices), len(indices))
	for i, j := range indices {
		out.Index(i).Set(c.Index(j))
	}
	return Column(out)
}

// A Frame is a list of named column vectors of equal lengths. Column
// names are unique. Frames are treated as immutable: operations that
// change a frame's shape or contents return a new frame, which may
// share column storage with the original.
type Frame struct {
	names []string
	cols  []Column
	index map[string]int
}

// Make creates a new frame with the provided column names and element
// types, and length n. Make panics if the names are not unique or if
// the number of names and types differ.
func Make(names []string, types []reflect.Type, n int) *Frame {
	if len(names) != len(types) {
		typecheck.Panicf(1, "frame.Make: %d names, %d types", len(names), len(types))
	}
	cols := make([]Column, len(types))
	for i, typ := range types {
		cols[i] = Column(reflect.MakeSlice(reflect.SliceOf(typ), n, n))
	}
	f, err := makeFrame(names, cols)
	if err != nil {
		typecheck.Panic(1, err.Error())
	}
	return f
}

// New constructs a frame from a list of names and slices. Each slice
// is the column of the corresponding name. New panics if any column
// is not a slice, if the column lengths do not match, or if the names
// are not unique.
func New(names []string, cols ...interface{}) *Frame {
	if len(names) != len(cols) {
		typecheck.Panicf(1, "frame.New: %d names, %d columns", len(names), len(cols))
	}
	columns := make([]Column, len(cols))
	for i, col := range cols {
		val := reflect.ValueOf(col)
		if val.Kind() != reflect.Slice {
			typecheck.Panicf(1, "frame.New: column %s: expected slice, got %T", names[i], col)
		}
		columns[i] = Column(val)
	}
	f, err := makeFrame(names, columns)
	if err != nil {
		typecheck.Panic(1, err.Error())
	}
	return f
}

// FromColumns is like New, but returns an error of kind errors.Invalid
// instead of panicking.
func FromColumns(names []string, cols ...interface{}) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: %d names, %d columns", len(names), len(cols)))
	}
	columns := make([]Column, len(cols))
	for i, col := range cols {
		val := reflect.ValueOf(col)
		if val.Kind() != reflect.Slice {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: column %s: expected slice, got %T", names[i], col))
		}
		columns[i] = Column(val)
	}
	return makeFrame(names, columns)
}

// FromMap constructs a frame from a map of column names to slices.
// Columns are ordered by name.
func FromMap(m map[string]interface{}) (*Frame, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	cols := make([]Column, len(names))
	for i, name := range names {
		val := reflect.ValueOf(m[name])
		if val.Kind() != reflect.Slice {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: column %s: expected slice, got %T", name, m[name]))
		}
		cols[i] = Column(val)
	}
	return makeFrame(names, cols)
}

func makeFrame(names []string, cols []Column) (*Frame, error) {
	f := &Frame{names: names, cols: cols, index: make(map[string]int, len(names))}
	for i, name := range names {
		if _, ok := f.index[name]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: duplicate column %s", name))
		}
		f.index[name] = i
		if cols[i].Len() != cols[0].Len() {
			return nil, errors.E(errors.Invalid, fmt.Sprintf(
				"frame: inconsistent column lengths: column %s has length %d, previous columns have length %d",
				name, cols[i].Len(), cols[0].Len()))
		}
	}
	return f, nil
}

// Len returns the frame's length.
func (f *Frame) Len() int {
	if f == nil || len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// NumColumn returns the number of columns in the frame.
func (f *Frame) NumColumn() int { return len(f.cols) }

// Names returns the frame's column names, in order.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Types returns the element type of each column.
func (f *Frame) Types() map[string]reflect.Type {
	types := make(map[string]reflect.Type, len(f.cols))
	for i, name := range f.names {
		types[name] = f.cols[i].ElemType()
	}
	return types
}

// Column returns the column with the provided name.
func (f *Frame) Column(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, false
	}
	return f.cols[i], true
}

// ColumnAt returns the i'th column.
func (f *Frame) ColumnAt(i int) Column { return f.cols[i] }

// Slice returns a frame with rows i to j, analagous to Go's native
// slice operation.
func (f *Frame) Slice(i, j int) *Frame {
	if i == 0 && j == f.Len() {
		return f
	}
	cols := make([]Column, len(f.cols))
	for k := range cols {
		cols[k] = f.cols[k].Slice(i, j)
	}
	return &Frame{names: f.names, cols: cols, index: f.index}
}

// Take returns a new frame holding the rows at the provided indices,
// in order.
func (f *Frame) Take(indices []int) *Frame {
	cols := make([]Column, len(f.cols))
	for k := range cols {
		cols[k] = f.cols[k].Take(indices)
	}
	return &Frame{names: f.names, cols: cols, index: f.index}
}

// Project returns a frame with only the named columns, in the order
// given. Project fails with an error of kind errors.Invalid if any of
// the names is not a column of f.
func (f *Frame) Project(names ...string) (*Frame, error) {
	var missing []string
	cols := make([]Column, len(names))
	for i, name := range names {
		col, ok := f.Column(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[i] = col
	}
	if len(missing) > 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("invalid projection: %v: no such columns %v", names, missing))
	}
	return makeFrame(append([]string(nil), names...), cols)
}

// With returns a frame with the column name set to col, which must be
// a slice of the frame's length. An existing column of that name is
// replaced in place; otherwise the column is appended.
func (f *Frame) With(name string, col interface{}) (*Frame, error) {
	val := reflect.ValueOf(col)
	if val.Kind() != reflect.Slice {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: column %s: expected slice, got %T", name, col))
	}
	if len(f.cols) > 0 && val.Len() != f.Len() {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: column %s has length %d, frame has length %d", name, val.Len(), f.Len()))
	}
	names := append([]string(nil), f.names...)
	cols := append([]Column(nil), f.cols...)
	if i, ok := f.index[name]; ok {
		cols[i] = Column(val)
	} else {
		names = append(names, name)
		cols = append(cols, Column(val))
	}
	return makeFrame(names, cols)
}

// Append returns a new frame with the rows of g appended to the rows
// of f. The frames must have the same columns with the same types,
// though not necessarily in the same order; the result has f's
// column order.
func Append(f, g *Frame) (*Frame, error) {
	if f == nil || len(f.cols) == 0 {
		return g, nil
	}
	if len(f.cols) != len(g.cols) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: cannot append %v to %v", g, f))
	}
	cols := make([]Column, len(f.cols))
	for i, name := range f.names {
		col, ok := g.Column(name)
		if !ok || col.Type() != f.cols[i].Type() {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("frame: cannot append %v to %v", g, f))
		}
		n := f.cols[i].Len() + col.Len()
		out := reflect.MakeSlice(f.cols[i].Type(), 0, n)
		out = reflect.AppendSlice(out, f.cols[i].Value())
		cols[i] = Column(reflect.AppendSlice(out, col.Value()))
	}
	return makeFrame(f.Names(), cols)
}

// String returns a descriptive string of the frame.
func (f *Frame) String() string {
	cols := make([]string, len(f.cols))
	for i := range f.cols {
		cols[i] = f.names[i] + ":" + f.cols[i].ElemType().String()
	}
	return fmt.Sprintf("frame[%d]%s", f.Len(), strings.Join(cols, ","))
}

// WriteTab writes the frame in tabular format to the provided io.Writer.
func (f *Frame) WriteTab(w io.Writer) {
	var tw tabwriter.Writer
	tw.Init(w, 4, 4, 1, ' ', 0)
	fmt.Fprintln(&tw, strings.Join(f.names, "\t"))
	values := make([]string, len(f.cols))
	for i := 0; i < f.Len(); i++ {
		for j := range f.cols {
			values[j] = fmt.Sprint(f.cols[j].Index(i))
		}
		fmt.Fprintln(&tw, strings.Join(values, "\t"))
	}
	tw.Flush()
}

// TabString returns a string representing the frame in tabular format.
func (f *Frame) TabString() string {
	var b bytes.Buffer
	f.WriteTab(&b)
	return b.String()
}

// Less compares rows i and j of the named column using the ops
// registered for its element type. Less panics if the column does not
// exist or its type cannot be compared.
func (f *Frame) Less(name string, i, j int) bool {
	col, ok := f.Column(name)
	if !ok {
		typecheck.Panicf(1, "frame.Less: no column %s", name)
	}
	ops := col.Ops()
	if ops.Less == nil {
		typecheck.Panicf(1, "frame.Less: type %s is not comparable", col.ElemType())
	}
	return ops.Less(i, j)
}

// Equal tells whether f1 and f2 are (deeply) equal, including column
// names and order.
func Equal(f1, f2 *Frame) bool {
	if len(f1.cols) != len(f2.cols) {
		return false
	}
	for i := range f1.cols {
		if f1.names[i] != f2.names[i] {
			return false
		}
		if !reflect.DeepEqual(f1.cols[i].Interface(), f2.cols[i].Interface()) {
			return false
		}
	}
	return true
}

// GobEncode implements gob.GobEncoder. Column element types must be
// gob-encodable; slices of Go's basic types need no registration.
func (f *Frame) GobEncode() ([]byte, error) {
	var (
		b   bytes.Buffer
		enc = gob.NewEncoder(&b)
	)
	if err := enc.Encode(f.names); err != nil {
		return nil, fmt.Errorf("encoding column names: %v", err)
	}
	for i, col := range f.cols {
		// Pass a pointer to an interface so that the concrete type is
		// sent along with the value.
		v := col.Interface()
		if err := enc.Encode(&v); err != nil {
			return nil, fmt.Errorf("encoding column %s: %v", f.names[i], err)
		}
	}
	return b.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (f *Frame) GobDecode(p []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(p))
	var names []string
	if err := dec.Decode(&names); err != nil {
		return fmt.Errorf("decoding column names: %v", err)
	}
	cols := make([]Column, len(names))
	for i, name := range names {
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decoding column %s: %v", name, err)
		}
		cols[i] = ColumnOf(v)
	}
	g, err := makeFrame(names, cols)
	if err != nil {
		return err
	}
	*f = *g
	return nil
}
