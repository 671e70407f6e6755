// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dispatch

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/dense"
)

// A Module is a backend library's own function table: the functions
// through which the backend emulates reference operations, keyed by
// the reference operation's name.
type Module map[string]dense.Impl

// A Handler translates a generic call of the reference operation op on
// arg (and the remaining arguments) into a backend-native call.
type Handler func(op *dense.Func, arg interface{}, rest ...interface{}) (interface{}, error)

// A Backend adapts an array library to the reference operation
// surface. Each backend exposes an explicit capability set: the
// operations in its module. Calls to operations outside of it fail
// with errors.NotSupported.
type Backend struct {
	// Name names the backend in errors, logs, and counters.
	Name string
	// Module holds the backend's implementations.
	Module Module
}

// NewBackend returns a new backend with the provided name and module.
func NewBackend(name string, module Module) *Backend {
	return &Backend{Name: name, Module: module}
}

// Supports tells whether the backend can perform the named operation.
// Operations that are never dispatched (see Bypass and NoDispatch)
// are supported by every backend.
func (b *Backend) Supports(name string) bool {
	if _, ok := b.Module[name]; ok {
		return true
	}
	return bypass[name] || noDispatch[name]
}

// Ops returns the sorted names of the operations implemented by the
// backend's module.
func (b *Backend) Ops() []string {
	ops := make([]string, 0, len(b.Module))
	for name := range b.Module {
		ops = append(ops, name)
	}
	sort.Strings(ops)
	return ops
}

// Call invokes the backend's implementation of the named operation.
func (b *Backend) Call(name string, args ...interface{}) (interface{}, error) {
	impl, ok := b.Module[name]
	if !ok {
		return nil, errors.E(errors.NotSupported, fmt.Sprintf("function %s not implemented for backend %s", name, b.Name))
	}
	return impl(args...)
}

// Handler returns a Handler that performs operations through the
// backend's module. Operations that are never dispatched are
// performed by the reference implementation.
func (b *Backend) Handler() Handler {
	return func(op *dense.Func, arg interface{}, rest ...interface{}) (interface{}, error) {
		args := append([]interface{}{arg}, rest...)
		if _, ok := b.Module[op.Name]; !ok && (bypass[op.Name] || noDispatch[op.Name]) {
			return op.Call(args...)
		}
		return b.Call(op.Name, args...)
	}
}

// String returns the backend's name.
func (b *Backend) String() string { return b.Name }
