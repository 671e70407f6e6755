// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"context"
	"database/sql"
	"io/ioutil"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/polyslice/frame"
	"github.com/grailbio/testutil"
)

func colValues(t *testing.T, f *frame.Frame, name string) interface{} {
	t.Helper()
	col, ok := f.Column(name)
	if !ok {
		t.Fatalf("missing column %s in %v", name, f)
	}
	return col.Interface()
}

func TestLoadCSV(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "data.csv")
	const data = `id,score,name,mixed
1,0.5,alice,1
2,,bob,x
3,2,"carol, jr",3.50
`
	if err := ioutil.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	df, err := LoadCSV(ctx, path, Options{Partitions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := df.NumPartitions(), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	want := map[string]reflect.Type{
		"id":    typeOfInt64,
		"score": typeOfFloat64,
		"name":  typeOfString,
		"mixed": typeOfString,
	}
	if got := df.Dtypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	f, err := df.Compute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := colValues(t, f, "id"), []int64{1, 2, 3}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	score := colValues(t, f, "score").([]float64)
	if len(score) != 3 || score[0] != 0.5 || !math.IsNaN(score[1]) || score[2] != 2 {
		t.Errorf("bad scores %v", score)
	}
	if got, want := colValues(t, f, "name"), []string{"alice", "bob", "carol, jr"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := colValues(t, f, "mixed"), []string{"1", "x", "3.50"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := LoadCSV(ctx, filepath.Join(dir, "missing.csv"), Options{}); err == nil {
		t.Error("expected error")
	}
}

func TestReadCSV(t *testing.T) {
	ctx := context.Background()
	df, err := ReadCSV(strings.NewReader("1\ta\n2\tb\n"), Options{Comma: '\t', NoHeader: true})
	if err != nil {
		t.Fatal(err)
	}
	f, err := df.Compute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := frame.New([]string{"c0", "c1"}, []int64{1, 2}, []string{"a", "b"})
	if !frame.Equal(f, want) {
		t.Errorf("got %v, want %v", f.TabString(), want.TabString())
	}
	if _, err := ReadCSV(strings.NewReader(""), Options{}); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	if _, err := ReadCSV(strings.NewReader("a,b\n1\n"), Options{}); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	if _, err := ReadCSV(strings.NewReader("a,a\n1,2\n"), Options{}); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestLoadSQL(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	// Each connection to :memory: is a distinct database.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`CREATE TABLE events (id INTEGER, value REAL, country TEXT)`,
		`INSERT INTO events VALUES (1, 1.5, 'US'), (2, NULL, 'UK'), (3, 4, NULL)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatal(err)
		}
	}
	df, err := LoadSQL(ctx, db, `SELECT id, value, country FROM events WHERE id >= ? ORDER BY id`, Options{Partitions: 3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := df.Columns(), []string{"id", "value", "country"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	f, err := df.Compute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := colValues(t, f, "id"), []int64{1, 2, 3}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	value := colValues(t, f, "value").([]float64)
	if len(value) != 3 || value[0] != 1.5 || !math.IsNaN(value[1]) || value[2] != 4 {
		t.Errorf("bad values %v", value)
	}
	if got, want := colValues(t, f, "country"), []string{"US", "UK", ""}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := LoadSQL(ctx, db, `SELECT * FROM nope`, Options{}); err == nil {
		t.Error("expected error")
	}
}

func TestRegisterS3(t *testing.T) {
	RegisterS3()
	RegisterS3()
	impl := file.FindImplementation("s3")
	if impl == nil {
		t.Fatal("s3 not registered")
	}
	if got, want := impl.String(), "s3"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
