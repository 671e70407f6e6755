// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package report computes summary reports of dataframes.
package report

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sort"
	"text/tabwriter"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/aggregate"
	"github.com/grailbio/polyslice/crossframe"
	"github.com/grailbio/polyslice/frame"
	"github.com/grailbio/polyslice/kernel"
	"gopkg.in/yaml.v3"
)

// Options configures DataOverview.
type Options struct {
	// Groupby, if set, names a column by whose values the overview is
	// split.
	Groupby string
	// Columns restricts the overview to the named columns.
	Columns []string
}

// ContinuousStats summarizes a numeric column.
type ContinuousStats struct {
	Column    string  `yaml:"-"`
	Group     string  `yaml:"-"`
	Count     int64   `yaml:"count"`
	Sum       float64 `yaml:"sum"`
	Mean      float64 `yaml:"mean"`
	Std       float64 `yaml:"std"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
	NullCount int64   `yaml:"null_count"`
}

// CategoricalStats summarizes a categorical column.
type CategoricalStats struct {
	Column    string `yaml:"-"`
	Group     string `yaml:"-"`
	Count     int64  `yaml:"count"`
	NumUnique int64  `yaml:"num_unique"`
	Top       string `yaml:"top"`
	TopFreq   int64  `yaml:"top_freq"`
	MinLen    int64  `yaml:"min_len"`
	MaxLen    int64  `yaml:"max_len"`
}

// DataOverviewReport is an overview of the columns of a dataframe.
// Numeric columns are summarized in Continuous, and the remaining
// countable columns in Categorical. Rows are ordered by group, then
// by column.
type DataOverviewReport struct {
	Groupby     string
	Continuous  []ContinuousStats
	Categorical []CategoricalStats
}

// DataOverview computes the overview report of data, which may be any
// value with a registered crossframe backend.
func DataOverview(ctx context.Context, data interface{}, opts Options) (*DataOverviewReport, error) {
	f, err := crossframe.Of(data)
	if err != nil {
		return nil, err
	}
	names := opts.Columns
	if len(names) == 0 {
		names = f.Columns()
	}
	if err := crossframe.CheckProjection(names, f.Columns()); err != nil {
		return nil, err
	}
	var (
		types                   = f.Dtypes()
		continuous, categorical []string
	)
	for _, name := range names {
		switch typ := types[name]; {
		case name == opts.Groupby:
		case kernel.Implements(typ, kernel.SummarizerInterface):
			continuous = append(continuous, name)
		case kernel.Implements(typ, kernel.CounterInterface):
			categorical = append(categorical, name)
		default:
			log.Printf("report: skipping column %s of type %s", name, typ)
		}
	}
	r := &DataOverviewReport{Groupby: opts.Groupby}
	if len(continuous) > 0 {
		res, err := aggregate.Frame(ctx, f, &aggregate.Aggregator{
			Metrics:   []aggregate.Metric{aggregate.Continuous()},
			PerColumn: true,
			Groupby:   opts.Groupby,
			Columns:   continuous,
		})
		if err != nil {
			return nil, errors.E("report: continuous columns", err)
		}
		for i := 0; i < res.Len(); i++ {
			var s ContinuousStats
			s.Column, s.Group = rowLabels(res, i)
			scan(res.Frame, i, map[string]interface{}{
				"count": &s.Count, "sum": &s.Sum, "mean": &s.Mean, "std": &s.Std,
				"min": &s.Min, "max": &s.Max, "null_count": &s.NullCount,
			})
			r.Continuous = append(r.Continuous, s)
		}
	}
	if len(categorical) > 0 {
		res, err := aggregate.Frame(ctx, f, &aggregate.Aggregator{
			Metrics:   []aggregate.Metric{aggregate.Categorical()},
			PerColumn: true,
			Groupby:   opts.Groupby,
			Columns:   categorical,
		})
		if err != nil {
			return nil, errors.E("report: categorical columns", err)
		}
		for i := 0; i < res.Len(); i++ {
			var s CategoricalStats
			s.Column, s.Group = rowLabels(res, i)
			scan(res.Frame, i, map[string]interface{}{
				"count": &s.Count, "num_unique": &s.NumUnique, "top": &s.Top,
				"top_freq": &s.TopFreq, "min_len": &s.MinLen, "max_len": &s.MaxLen,
			})
			r.Categorical = append(r.Categorical, s)
		}
	}
	return r, nil
}

func rowLabels(r *aggregate.Result, i int) (column, group string) {
	column = r.Columns[i]
	if r.Groups != nil {
		group = r.Groups[i]
	}
	return
}

// scan stores row i of the named columns of f into the provided
// pointers.
func scan(f *frame.Frame, i int, ptrs map[string]interface{}) {
	for name, ptr := range ptrs {
		col, ok := f.Column(name)
		if !ok {
			panic("report: missing aggregate column " + name)
		}
		reflect.ValueOf(ptr).Elem().Set(col.Index(i))
	}
}

// WriteText writes a tabular, human-readable rendering of the report
// to w.
func (r *DataOverviewReport) WriteText(w io.Writer) error {
	var tw tabwriter.Writer
	tw.Init(w, 4, 4, 1, ' ', 0)
	group := func(g string) string {
		if r.Groupby == "" {
			return ""
		}
		return g + "\t"
	}
	header := func() string {
		if r.Groupby == "" {
			return ""
		}
		return r.Groupby + "\t"
	}
	if len(r.Continuous) > 0 {
		fmt.Fprintln(&tw, "# continuous")
		fmt.Fprintf(&tw, "%scolumn\tcount\tsum\tmean\tstd\tmin\tmax\tnull_count\n", header())
		for _, s := range r.Continuous {
			fmt.Fprintf(&tw, "%s%s\t%d\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%d\n",
				group(s.Group), s.Column, s.Count, s.Sum, s.Mean, s.Std, s.Min, s.Max, s.NullCount)
		}
	}
	if len(r.Categorical) > 0 {
		fmt.Fprintln(&tw, "# categorical")
		fmt.Fprintf(&tw, "%scolumn\tcount\tnum_unique\ttop\ttop_freq\tmin_len\tmax_len\n", header())
		for _, s := range r.Categorical {
			fmt.Fprintf(&tw, "%s%s\t%d\t%d\t%s\t%d\t%d\t%d\n",
				group(s.Group), s.Column, s.Count, s.NumUnique, s.Top, s.TopFreq, s.MinLen, s.MaxLen)
		}
	}
	return tw.Flush()
}

type yamlReport struct {
	Groupby     string                 `yaml:"groupby,omitempty"`
	Continuous  map[string]interface{} `yaml:"continuous,omitempty"`
	Categorical map[string]interface{} `yaml:"categorical,omitempty"`
}

// MarshalYAML renders the report as a mapping from column name to
// statistics; grouped reports map each column to a mapping from group
// key to statistics.
func (r *DataOverviewReport) MarshalYAML() (interface{}, error) {
	out := yamlReport{Groupby: r.Groupby}
	add := func(m *map[string]interface{}, column, group string, stats interface{}) {
		if *m == nil {
			*m = make(map[string]interface{})
		}
		if r.Groupby == "" {
			(*m)[column] = stats
			return
		}
		groups, ok := (*m)[column].(map[string]interface{})
		if !ok {
			groups = make(map[string]interface{})
			(*m)[column] = groups
		}
		groups[group] = stats
	}
	for _, s := range r.Continuous {
		add(&out.Continuous, s.Column, s.Group, s)
	}
	for _, s := range r.Categorical {
		add(&out.Categorical, s.Column, s.Group, s)
	}
	return out, nil
}

// WriteYAML writes the YAML rendering of the report to the provided
// path, which may be of any scheme registered with package file.
func (r *DataOverviewReport) WriteYAML(ctx context.Context, path string) (err error) {
	p, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(ctx); err == nil {
			err = cerr
		}
	}()
	_, err = f.Writer(ctx).Write(p)
	return err
}

// Columns returns the names of the columns in the report, in sorted
// order.
func (r *DataOverviewReport) Columns() []string {
	seen := make(map[string]bool)
	for _, s := range r.Continuous {
		seen[s.Column] = true
	}
	for _, s := range r.Categorical {
		seen[s.Column] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
