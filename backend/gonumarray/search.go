// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package gonumarray

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ExactSearch finds, for each query vector, the K item vectors with
// the highest scores, by comparing every query with every item. The
// score is the dot product of the two vectors, or their cosine
// similarity when Cosine is set.
type ExactSearch struct {
	K      int
	Cosine bool
}

// Matches holds the results of a search, one row per query, ordered by
// decreasing score. Ties are ordered by item index.
type Matches struct {
	Indices [][]int
	Scores  [][]float64
}

// Search matches the rows of queries against the rows of items. Both
// must have the same number of columns. When there are fewer than K
// items, every item is returned.
func (s ExactSearch) Search(queries, items *mat.Dense) (*Matches, error) {
	if s.K <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray.ExactSearch: k must be positive, got %d", s.K))
	}
	nq, dq := queries.Dims()
	ni, di := items.Dims()
	if nq*dq == 0 {
		return new(Matches), nil
	}
	if ni*di == 0 {
		return nil, errors.E(errors.Invalid, "gonumarray.ExactSearch: no items")
	}
	if dq != di {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("gonumarray.ExactSearch: dimension mismatch: %d != %d", dq, di))
	}
	if s.Cosine {
		queries, items = normalizeRows(queries), normalizeRows(items)
	}
	var scores mat.Dense
	scores.Mul(queries, items.T())
	k := s.K
	if k > ni {
		k = ni
	}
	m := &Matches{Indices: make([][]int, nq), Scores: make([][]float64, nq)}
	order := make([]int, ni)
	for i := 0; i < nq; i++ {
		row := mat.Row(nil, i, &scores)
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool { return row[order[a]] > row[order[b]] })
		m.Indices[i] = append([]int(nil), order[:k]...)
		m.Scores[i] = make([]float64, k)
		for j, idx := range m.Indices[i] {
			m.Scores[i][j] = row[idx]
		}
	}
	return m, nil
}

// normalizeRows returns a copy of m whose rows have unit length. Zero
// rows are left as is.
func normalizeRows(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		if n := floats.Norm(row, 2); n > 0 {
			floats.Scale(1/n, row)
		}
		out.SetRow(i, row)
	}
	return out
}
