// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/dframe"
	"github.com/grailbio/polyslice/frame"
	"github.com/grailbio/testutil"
	"gopkg.in/yaml.v3"
)

func sampleFrame() *frame.Frame {
	const n = 1000
	var (
		con     = make([]int, n)
		cat     = make([]string, n)
		country = make([]string, n)
	)
	for i := range con {
		con[i] = 1 + i%2
		cat[i] = []string{"a", "b"}[i%2]
		country[i] = []string{"US", "UK", "NL"}[i%3]
	}
	return frame.New([]string{"con", "cat", "country"}, con, cat, country)
}

func TestDataOverview(t *testing.T) {
	ctx := context.Background()
	r, err := DataOverview(ctx, dframe.FromFrame(sampleFrame(), 2), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(r.Continuous), 1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	want := ContinuousStats{Column: "con", Count: 1000, Sum: 1500, Mean: 1.5, Std: 0.5, Min: 1, Max: 2}
	if got := r.Continuous[0]; !cmp.Equal(got, want, cmpopts.EquateApprox(0, 1e-12)) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	var columns []string
	for _, s := range r.Categorical {
		columns = append(columns, s.Column)
	}
	if got, want := columns, []string{"cat", "country"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Columns(), []string{"cat", "con", "country"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	var b bytes.Buffer
	if err := r.WriteText(&b); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# continuous", "# categorical", "num_unique", "country"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("text rendering missing %q:\n%s", want, b.String())
		}
	}
}

func TestDataOverviewGrouped(t *testing.T) {
	ctx := context.Background()
	r, err := DataOverview(ctx, dframe.FromFrame(sampleFrame(), 2), Options{Groupby: "country"})
	if err != nil {
		t.Fatal(err)
	}
	var groups []string
	for _, s := range r.Continuous {
		groups = append(groups, s.Group)
	}
	if got, want := groups, []string{"NL", "UK", "US"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := len(r.Categorical), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	p, err := yaml.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Groupby     string
		Continuous  map[string]map[string]map[string]interface{}
		Categorical map[string]map[string]map[string]interface{}
	}
	if err := yaml.Unmarshal(p, &doc); err != nil {
		t.Fatal(err)
	}
	if got, want := doc.Groupby, "country"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := doc.Continuous["con"]["US"]["count"], 334; got != want {
		t.Errorf("got %v, want %v\n%s", got, want, p)
	}
	if got, want := doc.Categorical["cat"]["NL"]["num_unique"], 2; got != want {
		t.Errorf("got %v, want %v\n%s", got, want, p)
	}
}

func TestWriteYAML(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	r, err := DataOverview(ctx, sampleFrame(), Options{Columns: []string{"con"}})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "overview.yaml")
	if err := r.WriteYAML(ctx, path); err != nil {
		t.Fatal(err)
	}
	p, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(p), "continuous:\n    con:\n") {
		t.Errorf("unexpected yaml:\n%s", p)
	}
	if strings.Contains(string(p), "categorical") {
		t.Errorf("unexpected categorical section:\n%s", p)
	}
}

func TestDataOverviewErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := DataOverview(ctx, sampleFrame(), Options{Columns: []string{"nope"}}); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	if _, err := DataOverview(ctx, []int{1}, Options{}); !errors.Is(errors.NotExist, err) {
		t.Errorf("expected not exist, got %v", err)
	}
}
