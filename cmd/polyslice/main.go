// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command polyslice loads datasets into partitioned dataframes,
// reports on them, and evaluates array reductions through the
// polymorphic dispatch layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/grailbio/polyslice/dataset"
	"github.com/grailbio/polyslice/dframe"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Polyslice is a tool for inspecting tabular datasets.

Usage:

	polyslice <command> [arguments]

The commands are:

	overview    print a data overview report of a dataset
	convert     write a dataset as partition files
	reduce      reduce a numeric column with a chosen array backend

Datasets are named by path. Paths ending in .csv are read as CSV
files; other paths name partition files written by convert. S3 paths
are supported.
`)
	os.Exit(2)
}

func main() {
	log.AddFlags()
	log.SetFlags(0)
	log.SetPrefix("polyslice: ")
	must.Func = log.Fatal
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
	}
	dataset.RegisterS3()

	ctx := context.Background()
	cmd, args := flag.Arg(0), flag.Args()[1:]
	var err error
	switch cmd {
	default:
		fmt.Fprintln(os.Stderr, "unknown command", cmd)
		flag.Usage()
	case "overview":
		err = overviewCmd(ctx, args)
	case "convert":
		err = convertCmd(ctx, args)
	case "reduce":
		err = reduceCmd(ctx, args)
	}
	must.Nil(err, cmd)
}

// load loads the dataset at path.
func load(ctx context.Context, path string, partitions int) (*dframe.DataFrame, error) {
	if strings.HasSuffix(path, ".csv") {
		return dataset.LoadCSV(ctx, path, dataset.Options{Partitions: partitions})
	}
	return dframe.Read(ctx, path)
}
