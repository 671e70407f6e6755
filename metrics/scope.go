// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"sync"
)

// Scope is a collection of metric instances. The zero Scope is empty
// and ready to use.
type Scope struct {
	mu        sync.Mutex
	instances map[int]interface{}
}

// Merge merges the instances of scope u into scope s.
func (s *Scope) Merge(u *Scope) {
	for id, inst := range u.snapshot() {
		m := lookup(id)
		m.merge(s.instance(m), inst)
	}
}

// Reset resets s to its initial, empty state.
func (s *Scope) Reset() {
	s.mu.Lock()
	s.instances = nil
	s.mu.Unlock()
}

// instance returns the instance of metric m in s, creating it if
// needed.
func (s *Scope) instance(m Metric) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[m.metricID()]; ok {
		return inst
	}
	if s.instances == nil {
		s.instances = make(map[int]interface{})
	}
	inst := m.newInstance()
	if inst == nil {
		panic("metrics: metric returned nil instance")
	}
	s.instances[m.metricID()] = inst
	return inst
}

func (s *Scope) snapshot() map[int]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]interface{}, len(s.instances))
	for id, inst := range s.instances {
		out[id] = inst
	}
	return out
}

type contextKeyType struct{}

var contextKey contextKeyType

// ScopedContext returns a context with the provided scope attached.
func ScopedContext(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, contextKey, scope)
}

// ContextScope returns the scope attached to the provided context, or
// nil if there is none.
func ContextScope(ctx context.Context) *Scope {
	s, _ := ctx.Value(contextKey).(*Scope)
	return s
}
