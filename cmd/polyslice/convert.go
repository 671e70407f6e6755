// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/dframe"
)

func convertCmd(ctx context.Context, args []string) error {
	var (
		flags      = flag.NewFlagSet("polyslice convert", flag.ExitOnError)
		partitions = flags.Int("partitions", 4, "number of output partitions")
	)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, `usage: polyslice convert [-partitions N] dataset prefix`)
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
	if df.NumPartitions() != *partitions {
		f, err := df.Compute(ctx)
		if err != nil {
			return err
		}
		df = dframe.FromFrame(f, *partitions)
	}
	if err := df.WriteTo(ctx, flags.Arg(1)); err != nil {
		return err
	}
	log.Printf("wrote %s to %s", df, flags.Arg(1))
	return nil
}
