// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/dataset"
	"github.com/grailbio/polyslice/dframe"
	"github.com/grailbio/polyslice/report"
)

func overviewCmd(ctx context.Context, args []string) error {
	var (
		flags      = flag.NewFlagSet("polyslice overview", flag.ExitOnError)
		groupby    = flags.String("groupby", "", "column by which to group the report")
		columns    = flags.String("columns", "", "comma-separated list of columns to report on")
		yamlPath   = flags.String("yaml", "", "also write the report as YAML to this path")
		partitions = flags.Int("partitions", 4, "number of partitions of CSV inputs")
		query      = flags.String("query", "", "treat the dataset as a sqlite database and report on the rows returned by this query")
	)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, `usage: polyslice overview [-groupby column] [-columns a,b] [-yaml path] [-query sql] dataset`)
		flags.PrintDefaults()
		os.Exit(2)
	}
	if err := flags.Parse(args); err != nil {
		log.Fatal(err)
	}
	if flags.NArg() != 1 {
		flags.Usage()
	}
	var (
		df  *dframe.DataFrame
		err error
	)
	if *query != "" {
		df, err = loadSQL(ctx, flags.Arg(0), *query, *partitions)
	} else {
		df, err = load(ctx, flags.Arg(0), *partitions)
	}
	if err != nil {
		return err
	}
	opts := report.Options{Groupby: *groupby}
	if *columns != "" {
		opts.Columns = strings.Split(*columns, ",")
	}
	r, err := report.DataOverview(ctx, df, opts)
	if err != nil {
		return err
	}
	if err := r.WriteText(os.Stdout); err != nil {
		return err
	}
	if *yamlPath != "" {
		return r.WriteYAML(ctx, *yamlPath)
	}
	return nil
}

func loadSQL(ctx context.Context, path, query string, partitions int) (*dframe.DataFrame, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return dataset.LoadSQL(ctx, db, query, dataset.Options{Partitions: partitions})
}
