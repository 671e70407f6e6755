// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dframe

import (
	"context"
	"encoding/gob"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/polyslice/frame"
)

// manifest is stored alongside the partition files of a written
// DataFrame.
type manifest struct {
	NumPartitions int
	Meta          *frame.Frame
}

func manifestPath(prefix string) string {
	return prefix + "-manifest"
}

func partitionPath(prefix string, n, m int) string {
	return fmt.Sprintf("%s-%04d-of-%04d", prefix, n, m)
}

// WriteTo computes df and writes each partition to its own file
// under prefix, together with a manifest that allows Read to
// reconstruct the DataFrame. Paths may be of any scheme registered
// with package file.
func (df *DataFrame) WriteTo(ctx context.Context, prefix string) error {
	m := len(df.parts)
	err := traverse.Limit(df.opts.parallelism).Each(m, func(i int) error {
		f, err := df.Partition(ctx, i)
		if err != nil {
			return err
		}
		return writeGob(ctx, partitionPath(prefix, i, m), f)
	})
	if err != nil {
		return err
	}
	return writeGob(ctx, manifestPath(prefix), manifest{NumPartitions: m, Meta: df.meta})
}

// Read returns a DataFrame backed by the files written by WriteTo
// under prefix. Only the manifest is read eagerly; partitions are
// read each time they are computed.
func Read(ctx context.Context, prefix string, opts ...Option) (*DataFrame, error) {
	var man manifest
	if err := readGob(ctx, manifestPath(prefix), &man); err != nil {
		return nil, errors.E("dframe.Read", prefix, err)
	}
	if man.NumPartitions < 1 || man.Meta == nil {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("dframe.Read %s: corrupt manifest", prefix))
	}
	df := &DataFrame{
		meta:  man.Meta.Slice(0, 0),
		parts: make([]partition, man.NumPartitions),
		opts:  makeOptions(opts),
	}
	for i := range df.parts {
		path := partitionPath(prefix, i, man.NumPartitions)
		df.parts[i] = func(ctx context.Context) (*frame.Frame, error) {
			f := new(frame.Frame)
			if err := readGob(ctx, path, f); err != nil {
				return nil, err
			}
			if err := sameSchema(df.meta, f); err != nil {
				return nil, errors.E(errors.Integrity, path, err)
			}
			return f, nil
		}
	}
	return df, nil
}

func writeGob(ctx context.Context, path string, v interface{}) (err error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(ctx); cerr != nil {
			log.Error.Printf("dframe: close %s: %v", path, cerr)
			if err == nil {
				err = cerr
			}
		}
	}()
	return gob.NewEncoder(f.Writer(ctx)).Encode(v)
}

func readGob(ctx context.Context, path string, v interface{}) error {
	f, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer f.Close(ctx)
	return gob.NewDecoder(f.Reader(ctx)).Decode(v)
}
