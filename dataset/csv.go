// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/dframe"
)

// LoadCSV loads the CSV file at path, which may be of any scheme
// registered with package file, into a dataframe.
func LoadCSV(ctx context.Context, path string, opts Options) (df *dframe.DataFrame, err error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	df, err = ReadCSV(f.Reader(ctx), opts)
	if err != nil {
		return nil, errors.E(fmt.Sprintf("dataset.LoadCSV %s", path), err)
	}
	log.Printf("dataset: loaded %s: %s", path, df)
	return df, nil
}

// ReadCSV reads CSV records from r into a dataframe.
func ReadCSV(r io.Reader, opts Options) (*dframe.DataFrame, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.ReuseRecord = true
	var (
		names []string
		cols  []*column
	)
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(errors.Invalid, err)
		}
		if cols == nil {
			cols = make([]*column, len(fields))
			for i := range cols {
				cols[i] = new(column)
			}
			if !opts.NoHeader {
				names = append([]string(nil), fields...)
				continue
			}
			for i := range fields {
				names = append(names, fmt.Sprintf("c%d", i))
			}
		}
		for i, field := range fields {
			cols[i].add(parseField(field), field)
		}
	}
	if cols == nil {
		return nil, errors.E(errors.Invalid, "empty CSV input")
	}
	f, err := makeFrame(names, cols)
	if err != nil {
		return nil, err
	}
	return opts.dataframe(f), nil
}

func parseField(field string) interface{} {
	if field == "" {
		return nil
	}
	if v, err := strconv.ParseInt(field, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(field, 64); err == nil {
		return v
	}
	return field
}
