// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package metrics provides user-defined metrics that functions
// evaluated over dataframe partitions may update. Metric instances
// live in a Scope, which is attached to the context passed to
// partition functions. Each partition is computed in its own scope,
// and the scope of a partition that completes successfully is merged
// into the scope of the computation's caller, so that partitions that
// fail do not contribute to a metric's value.
package metrics

import (
	"context"
	"sync"
	"sync/atomic"
)

var (
	mu sync.Mutex
	// metrics holds all registered metrics by id. Id 0 is reserved so
	// that zero-valued metrics are never mistaken for registered ones.
	metrics = []Metric{nil}
)

func newMetric(makeMetric func(id int) Metric) {
	mu.Lock()
	metrics = append(metrics, makeMetric(len(metrics)))
	mu.Unlock()
}

func lookup(id int) Metric {
	mu.Lock()
	defer mu.Unlock()
	return metrics[id]
}

// Metric is the interface implemented by all metric types.
type Metric interface {
	metricID() int
	newInstance() interface{}
	merge(x, y interface{})
}

// Counter is a monotonically increasing count.
type Counter struct {
	id int
}

// NewCounter registers and returns a new counter. Counters are
// typically created once, at package initialization.
func NewCounter() Counter {
	var c Counter
	newMetric(func(id int) Metric {
		c.id = id
		return c
	})
	return c
}

// Value returns the counter's value in the provided scope.
func (c Counter) Value(scope *Scope) uint64 {
	return atomic.LoadUint64(scope.instance(c).(*uint64))
}

// Incr increments the counter in the provided scope by n.
func (c Counter) Incr(scope *Scope, n int) {
	atomic.AddUint64(scope.instance(c).(*uint64), uint64(n))
}

// Add increments the counter by n in the scope attached to ctx. It
// does nothing if ctx has no scope.
func (c Counter) Add(ctx context.Context, n int) {
	if scope := ContextScope(ctx); scope != nil {
		c.Incr(scope, n)
	}
}

func (c Counter) metricID() int { return c.id }

func (c Counter) newInstance() interface{} { return new(uint64) }

func (c Counter) merge(x, y interface{}) {
	atomic.AddUint64(x.(*uint64), atomic.LoadUint64(y.(*uint64)))
}
