// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package kernel provides a mechanism to register and look up column
// kernels. Each kernel is associated with an element type and
// provides a set of operations over columns of that type, exposed
// through interfaces. Package kernel also includes the standard
// kernel interfaces used by aggregation, and implementations of these
// for Go's primitive types.
package kernel

import (
	"reflect"
	"sync"
)

var (
	mu      sync.RWMutex
	kernels = map[reflect.Type][]reflect.Value{}
)

// Register associates the provided kernel with the provided type.
// Interfaces implemented by ops are defined for the given type.
// Kernels registered earlier take precedence.
func Register(typ reflect.Type, ops interface{}) {
	mu.Lock()
	defer mu.Unlock()
	kernels[typ] = append(kernels[typ], reflect.ValueOf(ops))
}

// Lookup retrieves a kernel implementing the operations in the
// interface pointed to by the provided pointer. If no such kernel
// exists, Lookup returns false. If a non-pointer is passed, Lookup
// panics.
func Lookup(typ reflect.Type, ptr interface{}) bool {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr {
		panic("kernel.Lookup: passed non-pointer")
	}
	iface := v.Type().Elem()
	if iface.Kind() != reflect.Interface {
		panic("kernel.Lookup: non-interface pointer")
	}
	mu.RLock()
	defer mu.RUnlock()
	for _, k := range kernels[typ] {
		if k.Type().Implements(iface) {
			v.Elem().Set(k)
			return true
		}
	}
	return false
}

// Implements reports whether the provided interface is
// implemented for the provided type.
func Implements(typ, iface reflect.Type) bool {
	if iface.Kind() != reflect.Interface {
		panic("kernel.Implements: non-interface type")
	}
	mu.RLock()
	defer mu.RUnlock()
	for _, k := range kernels[typ] {
		if k.Type().Implements(iface) {
			return true
		}
	}
	return false
}

// Types returns the types for which iface is implemented, in no
// particular order.
func Types(iface reflect.Type) []reflect.Type {
	if iface.Kind() != reflect.Interface {
		panic("kernel.Types: non-interface type")
	}
	mu.RLock()
	defer mu.RUnlock()
	var types []reflect.Type
	for typ, ks := range kernels {
		for _, k := range ks {
			if k.Type().Implements(iface) {
				types = append(types, typ)
				break
			}
		}
	}
	return types
}
