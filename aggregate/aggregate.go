// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package aggregate computes metrics over the columns of a frame of
// any registered crossframe backend. Aggregations are expressed as
// chunk, combine, and finalize steps, so that partitioned backends can
// compute them piecewise and in parallel.
package aggregate

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/crossframe"
	"github.com/grailbio/polyslice/frame"
)

// Aggregator computes Metrics over a frame's columns.
//
// When PerColumn is set, the result has one row per aggregated column
// and one column per metric output; only columns accepted by every
// metric are aggregated. Otherwise the result has a single row, with
// a column named "column.output" for each column and each metric
// that accepts it.
//
// When Groupby names a column, the frame is split by the distinct
// values of that column and each group is aggregated separately; the
// result then has a row (or, with PerColumn, a set of rows) per
// group, ordered by key.
type Aggregator struct {
	Metrics   []Metric
	PerColumn bool
	Groupby   string
	// Columns restricts aggregation to the named columns. All columns
	// are considered when Columns is empty.
	Columns []string
}

var _ crossframe.Aggregation = (*Aggregator)(nil)

// A cell is a metric applied to a column.
type cell struct {
	column string
	metric int
}

type group struct {
	key    interface{}
	states []State
}

type state struct {
	cells  []cell
	groups map[string]*group
}

// Result is the result of an aggregation.
type Result struct {
	// Groups holds the group key of each row, formatted, when the
	// aggregation is grouped.
	Groups []string
	// Columns holds the aggregated column of each row when the
	// aggregation is per-column.
	Columns []string
	*frame.Frame
}

// Frame computes the aggregation agg over data, which may be any
// value with a registered crossframe backend.
func Frame(ctx context.Context, data interface{}, agg *Aggregator) (*Result, error) {
	f, err := crossframe.Of(data)
	if err != nil {
		return nil, err
	}
	if err := crossframe.CheckProjection(agg.Columns, f.Columns()); err != nil {
		return nil, err
	}
	c := &collector{Aggregator: agg}
	if _, err := f.Aggregate(ctx, c); err != nil {
		return nil, err
	}
	log.Debug.Printf("aggregate: %s frame: %d rows", f.Backend(), c.result.Len())
	return c.result, nil
}

// collector retains the full result of the aggregation it finalizes.
type collector struct {
	*Aggregator
	result *Result
}

func (c *collector) Finalize(s interface{}) (*frame.Frame, error) {
	r, err := c.finalize(s.(*state))
	if err != nil {
		return nil, err
	}
	c.result = r
	return r.Frame, nil
}

func (a *Aggregator) plan(f *frame.Frame) []cell {
	names := a.Columns
	if len(names) == 0 {
		names = f.Names()
	}
	var cells []cell
	for _, name := range names {
		if name == a.Groupby {
			continue
		}
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		elem := col.ElemType()
		var accepted []cell
		for i, m := range a.Metrics {
			if m.Accepts(elem) {
				accepted = append(accepted, cell{name, i})
			}
		}
		if a.PerColumn && len(accepted) < len(a.Metrics) {
			continue
		}
		cells = append(cells, accepted...)
	}
	return cells
}

func (a *Aggregator) prepare(f *frame.Frame, cells []cell) ([]State, error) {
	states := make([]State, len(cells))
	for i, c := range cells {
		col, _ := f.Column(c.column)
		var err error
		states[i], err = a.Metrics[c.metric].Prepare(col)
		if err != nil {
			return nil, errors.E(fmt.Sprintf("aggregate: column %s", c.column), err)
		}
	}
	return states, nil
}

// Chunk computes the aggregation state of f.
func (a *Aggregator) Chunk(ctx context.Context, f *frame.Frame) (interface{}, error) {
	s := &state{cells: a.plan(f), groups: make(map[string]*group)}
	if a.Groupby == "" {
		states, err := a.prepare(f, s.cells)
		if err != nil {
			return nil, err
		}
		s.groups[""] = &group{states: states}
		return s, nil
	}
	keys, indices, err := f.GroupIndices(a.Groupby)
	if err != nil {
		return nil, err
	}
	for i := range indices {
		states, err := a.prepare(f.Take(indices[i]), s.cells)
		if err != nil {
			return nil, err
		}
		key := keys.Index(i).Interface()
		s.groups[fmt.Sprint(key)] = &group{key: key, states: states}
	}
	return s, nil
}

// Combine merges two aggregation states.
func (a *Aggregator) Combine(x, y interface{}) (interface{}, error) {
	s, t := x.(*state), y.(*state)
	if len(s.cells) != len(t.cells) {
		return nil, errors.E(errors.Invalid, "aggregate: cannot combine states of different schemas")
	}
	out := &state{cells: s.cells, groups: make(map[string]*group, len(s.groups))}
	for k, g := range s.groups {
		out.groups[k] = g
	}
	for k, g := range t.groups {
		h, ok := out.groups[k]
		if !ok {
			out.groups[k] = g
			continue
		}
		merged := &group{key: h.key, states: make([]State, len(h.states))}
		for i, c := range s.cells {
			merged.states[i] = a.Metrics[c.metric].Merge(h.states[i], g.states[i])
		}
		out.groups[k] = merged
	}
	return out, nil
}

// Finalize renders an aggregation state as a frame.
func (a *Aggregator) Finalize(s interface{}) (*frame.Frame, error) {
	r, err := a.finalize(s.(*state))
	if err != nil {
		return nil, err
	}
	return r.Frame, nil
}

func (a *Aggregator) finalize(s *state) (*Result, error) {
	if len(s.cells) == 0 {
		return nil, errors.E(errors.NotSupported, "aggregate: no columns accepted by the metrics")
	}
	groups := a.sortedGroups(s)
	if len(groups) == 0 {
		return nil, errors.E(errors.NotExist, "aggregate: no groups")
	}
	var (
		r      = new(Result)
		names  []string
		values [][]interface{}
		err    error
	)
	row := func(vals []interface{}) {
		if values == nil {
			values = make([][]interface{}, len(vals))
		}
		for i, v := range vals {
			values[i] = append(values[i], v)
		}
	}
	if a.PerColumn {
		names = a.outputNames()
		for _, g := range groups {
			for i := 0; i < len(s.cells); i += len(a.Metrics) {
				var vals []interface{}
				for j := range a.Metrics {
					vals = append(vals, a.Metrics[j].Present(g.states[i+j])...)
				}
				row(vals)
				r.Columns = append(r.Columns, s.cells[i].column)
				if a.Groupby != "" {
					r.Groups = append(r.Groups, fmt.Sprint(g.key))
				}
			}
		}
	} else {
		// Cells of a column are adjacent, in metric order.
		for i := 0; i < len(s.cells); {
			j := i
			var metrics []Metric
			for ; j < len(s.cells) && s.cells[j].column == s.cells[i].column; j++ {
				metrics = append(metrics, a.Metrics[s.cells[j].metric])
			}
			for _, out := range qualifiedOutputs(metrics) {
				names = append(names, s.cells[i].column+"."+out)
			}
			i = j
		}
		for _, g := range groups {
			var vals []interface{}
			for i, c := range s.cells {
				vals = append(vals, a.Metrics[c.metric].Present(g.states[i])...)
			}
			row(vals)
			if a.Groupby != "" {
				r.Groups = append(r.Groups, fmt.Sprint(g.key))
			}
		}
	}
	cols := make([]interface{}, len(values))
	for i, vals := range values {
		col := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(vals[0])), len(vals), len(vals))
		for j, v := range vals {
			col.Index(j).Set(reflect.ValueOf(v))
		}
		cols[i] = col.Interface()
	}
	if r.Frame, err = frame.FromColumns(names, cols...); err != nil {
		return nil, errors.E("aggregate", err)
	}
	return r, nil
}

// outputNames returns the per-column output names of the metrics.
func (a *Aggregator) outputNames() []string {
	return qualifiedOutputs(a.Metrics)
}

// qualifiedOutputs returns the output names of the provided metrics,
// in order. Names that appear in more than one metric are qualified by
// the metric's name.
func qualifiedOutputs(metrics []Metric) []string {
	seen := make(map[string]int)
	for _, m := range metrics {
		for _, out := range m.Outputs() {
			seen[out]++
		}
	}
	var names []string
	for _, m := range metrics {
		for _, out := range m.Outputs() {
			if seen[out] > 1 {
				out = m.Name() + "." + out
			}
			names = append(names, out)
		}
	}
	return names
}

func (a *Aggregator) sortedGroups(s *state) []*group {
	groups := make([]*group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	if len(groups) < 2 {
		return groups
	}
	keys := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(groups[0].key)), len(groups), len(groups))
	for i, g := range groups {
		keys.Index(i).Set(reflect.ValueOf(g.key))
	}
	less := frame.Column(keys).Ops().Less
	if less == nil {
		less = func(i, j int) bool {
			return fmt.Sprint(groups[i].key) < fmt.Sprint(groups[j].key)
		}
	}
	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return less(order[i], order[j]) })
	sorted := make([]*group, len(groups))
	for i, j := range order {
		sorted[i] = groups[j]
	}
	return sorted
}
