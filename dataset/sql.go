// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/dframe"

	// Register the pure-Go sqlite driver as "sqlite".
	_ "modernc.org/sqlite"
)

// LoadSQL runs query against db and loads the resulting rows into a
// dataframe. NULL values are treated as missing.
func LoadSQL(ctx context.Context, db *sql.DB, query string, opts Options, args ...interface{}) (*dframe.DataFrame, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.E("dataset.LoadSQL", err)
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var (
		cols = make([]*column, len(names))
		vals = make([]interface{}, len(names))
		ptrs = make([]interface{}, len(names))
	)
	for i := range cols {
		cols[i] = &column{}
		ptrs[i] = &vals[i]
	}
	var n int
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.E("dataset.LoadSQL: scan", err)
		}
		for i, v := range vals {
			cols[i].vals = append(cols[i].vals, sqlValue(v))
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.E("dataset.LoadSQL", err)
	}
	f, err := makeFrame(names, cols)
	if err != nil {
		return nil, err
	}
	log.Printf("dataset: loaded %d rows from query", n)
	return opts.dataframe(f), nil
}

// sqlValue normalizes a value scanned by a database driver.
func sqlValue(v interface{}) interface{} {
	switch v := v.(type) {
	case nil, int64, float64, string:
		return v
	case []byte:
		return string(v)
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
