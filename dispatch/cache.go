// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dispatch

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/polyslice/dense"
)

// noDispatch names operations that are meaningless or unsafe to
// redirect. A Cache returns their reference implementation as-is.
var noDispatch = map[string]bool{
	"errstate":         true,
	"may_share_memory": true,
	"finfo":            true,
}

// A Cache memoizes dispatching versions of the functions in a
// namespace. The first request for a name wraps the namespace's
// function; later requests return the very same function.
type Cache struct {
	ns *dense.Namespace

	mu  sync.Mutex
	fns map[string]*Wrapped
}

// NewCache returns a new cache over the namespace ns.
func NewCache(ns *dense.Namespace) *Cache {
	return &Cache{ns: ns, fns: make(map[string]*Wrapped)}
}

var defaultCache = NewCache(dense.Default)

// Get returns the dispatching version of the reference operation
// name, from the process-wide cache over dense.Default.
func Get(name string) (*dense.Func, error) {
	return defaultCache.Get(name)
}

// Override registers impl as the implementation of the reference
// operation name for values of type typ.
func Override(name string, typ reflect.Type, impl dense.Impl) error {
	w, err := defaultCache.Wrapped(name)
	if err != nil {
		return err
	}
	w.Register(typ, impl)
	return nil
}

// Get returns the dispatching version of the operation name. Get
// fails with an error of kind errors.Invalid if the namespace does
// not define a function with this name. Operations that are never
// dispatched are returned unwrapped.
func (c *Cache) Get(name string) (*dense.Func, error) {
	if noDispatch[name] {
		return c.reference(name)
	}
	w, err := c.Wrapped(name)
	if err != nil {
		return nil, err
	}
	return w.Func(), nil
}

// Wrapped returns the Wrapped for operation name, creating it if
// needed.
func (c *Cache) Wrapped(name string) (*Wrapped, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.fns[name]; ok {
		return w, nil
	}
	fn, err := c.reference(name)
	if err != nil {
		return nil, err
	}
	w := Wrap(fn)
	c.fns[name] = w
	return w, nil
}

// reference returns the reference function bound to name, looking
// through wrappers installed by an active Scope.
func (c *Cache) reference(name string) (*dense.Func, error) {
	v, ok := c.ns.Lookup(name)
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("unknown operation %q", name))
	}
	fn, ok := v.(*dense.Func)
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%s.%s is not an operation", c.ns.Name(), name))
	}
	if w, ok := Unwrap(fn); ok {
		fn = w.Orig
	}
	return fn, nil
}
