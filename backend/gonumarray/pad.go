// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package gonumarray

import (
	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/mat"
)

// Pad returns copies of the provided matrices, each widened with
// columns of value on the right so that all have as many columns as
// the widest. Row counts are unchanged. Empty matrices stay empty.
func Pad(ms []*mat.Dense, value float64) ([]*mat.Dense, error) {
	if len(ms) == 0 {
		return nil, errors.E(errors.Invalid, "gonumarray.Pad: no matrices")
	}
	width := maxCols(ms)
	padded := make([]*mat.Dense, len(ms))
	for i, m := range ms {
		r, c := m.Dims()
		if r*c == 0 {
			padded[i] = new(mat.Dense)
			continue
		}
		padded[i] = fill(r, width, value)
		padded[i].Slice(0, r, 0, c).(*mat.Dense).Copy(m)
	}
	return padded, nil
}

// ConcatAndPad pads the provided matrices as Pad does, and then
// stacks their rows into a single matrix.
func ConcatAndPad(ms []*mat.Dense, value float64) (*mat.Dense, error) {
	padded, err := Pad(ms, value)
	if err != nil {
		return nil, err
	}
	var rows int
	for _, m := range padded {
		r, _ := m.Dims()
		rows += r
	}
	width := maxCols(padded)
	if rows*width == 0 {
		return new(mat.Dense), nil
	}
	out := mat.NewDense(rows, width, nil)
	var off int
	for _, m := range padded {
		r, _ := m.Dims()
		if r == 0 {
			continue
		}
		out.Slice(off, off+r, 0, width).(*mat.Dense).Copy(m)
		off += r
	}
	return out, nil
}

func maxCols(ms []*mat.Dense) int {
	var width int
	for _, m := range ms {
		if r, c := m.Dims(); r > 0 && c > width {
			width = c
		}
	}
	return width
}

func fill(r, c int, value float64) *mat.Dense {
	data := make([]float64, r*c)
	if value != 0 {
		for i := range data {
			data[i] = value
		}
	}
	return mat.NewDense(r, c, data)
}
