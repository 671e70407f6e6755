// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package gonumarray

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/mat"
)

func TestExactSearch(t *testing.T) {
	items := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		2, 2,
		-1, 0,
	})
	queries := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 3,
	})
	m, err := ExactSearch{K: 2}.Search(queries, items)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.Indices, [][]int{{2, 0}, {2, 1}}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := m.Scores, [][]float64{{2, 1}, {6, 3}}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	m, err = ExactSearch{K: 10, Cosine: true}.Search(queries, items)
	if err != nil {
		t.Fatal(err)
	}
	// Item 0 and item 1 are exact matches for the normalized queries.
	if got, want := m.Indices, [][]int{{0, 2, 1, 3}, {1, 2, 0, 3}}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := m.Scores[0][0], 1.0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExactSearchMatchesSort(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	const n, d, k = 100, 8, 5
	data := make([]float64, n*d)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	items := mat.NewDense(n, d, data)
	query := mat.NewDense(1, d, data[:d])
	m, err := ExactSearch{K: k}.Search(query, items)
	if err != nil {
		t.Fatal(err)
	}
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = mat.Dot(query.RowView(0), items.RowView(i))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	if got, want := m.Scores[0], scores[:k]; !cmp.Equal(got, want, cmpopts.EquateApprox(0, 1e-12)) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExactSearchErrors(t *testing.T) {
	items := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if _, err := (ExactSearch{}).Search(items, items); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	if _, err := (ExactSearch{K: 1}).Search(mat.NewDense(1, 3, nil), items); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	if _, err := (ExactSearch{K: 1}).Search(items, new(mat.Dense)); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid, got %v", err)
	}
	m, err := ExactSearch{K: 1}.Search(new(mat.Dense), items)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Indices) != 0 {
		t.Errorf("got %v, want no matches", m.Indices)
	}
}
