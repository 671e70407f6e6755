// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dispatch

import (
	"reflect"
	"sync"

	"github.com/grailbio/polyslice/dense"
)

// bypass is the set of operations that are backend-agnostic by
// construction. Wrapped versions of these always call the reference
// implementation.
var bypass = map[string]bool{
	"dtype": true,
}

// wrappers maps each wrapper function to its Wrapped.
var wrappers sync.Map // *dense.Func -> *Wrapped

// Wrapped is a dispatching version of a reference operation.
type Wrapped struct {
	// Orig is the wrapped reference operation.
	Orig *dense.Func

	fn        *dense.Func
	overrides *Table
}

// Wrap returns a dispatching version of the reference operation
// orig. When the returned function is called:
//
//   - bypass operations (dtype) call orig directly;
//   - plain reference values (see dense.IsPlain) call orig directly;
//   - values with a per-function override (see Register) use it;
//   - anything else is routed by Invoke.
//
// Wrapping a function returned by Wrap wraps its original instead.
func Wrap(orig *dense.Func) *Wrapped {
	if w, ok := Unwrap(orig); ok {
		orig = w.Orig
	}
	w := &Wrapped{Orig: orig, overrides: NewTable("dispatch." + orig.Name)}
	w.fn = dense.NewFunc(orig.Name, w.call)
	wrappers.Store(w.fn, w)
	return w
}

// Unwrap returns the Wrapped that produced fn, if any.
func Unwrap(fn *dense.Func) (*Wrapped, bool) {
	w, ok := wrappers.Load(fn)
	if !ok {
		return nil, false
	}
	return w.(*Wrapped), true
}

// Func returns the dispatching function. Func always returns the
// same *dense.Func.
func (w *Wrapped) Func() *dense.Func { return w.fn }

// Call calls the dispatching function.
func (w *Wrapped) Call(args ...interface{}) (interface{}, error) {
	return w.call(args...)
}

// Register registers impl as this operation's implementation for
// values of type typ, taking precedence over the backend registered
// for typ.
func (w *Wrapped) Register(typ reflect.Type, impl dense.Impl) {
	w.overrides.Register(typ, impl)
}

// RegisterLazy defers registration of per-function overrides for the
// package family pkgPath. See Table.RegisterLazy.
func (w *Wrapped) RegisterLazy(pkgPath string, load func()) {
	w.overrides.RegisterLazy(pkgPath, load)
}

// Supports tells whether arg has a per-function override.
func (w *Wrapped) Supports(arg interface{}) bool {
	return w.overrides.Has(reflect.TypeOf(arg))
}

func (w *Wrapped) call(args ...interface{}) (interface{}, error) {
	if len(args) == 0 || bypass[w.Orig.Name] || dense.IsPlain(args[0]) {
		counters.Incr("direct")
		return w.Orig.Call(args...)
	}
	if impl, err := w.overrides.Lookup(reflect.TypeOf(args[0])); err == nil {
		counters.Incr("override." + w.Orig.Name)
		return impl.(dense.Impl)(args...)
	}
	return Invoke(w.Orig, args[0], args[1:]...)
}
