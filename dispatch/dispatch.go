// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dispatch routes generically named array operations to the
// backend that holds the data. Operations are named after the
// functions of the reference library (package dense). A call is
// routed by the runtime type of its first argument: plain reference
// values go straight to the reference implementation; values of a
// registered backend type go to that backend's adapter; anything else
// falls back to the reference implementation.
//
// Backends register themselves by type, either eagerly with
// RegisterBackend or lazily with RegisterLazy, in which case the
// backend is set up the first time one of its values is seen.
//
// Get returns the dispatching version of a reference operation, and
// Polymorphic makes an arbitrary function that calls reference
// operations through package dense work across backends, by patching
// the reference namespace for the duration of each call.
package dispatch

import (
	"reflect"

	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/dense"
	"github.com/grailbio/polyslice/stats"
)

type binding struct {
	name    string
	handler Handler
	backend *Backend
}

var (
	backends = NewTable("dispatch")
	counters = stats.NewMap()
)

// Register binds typ to the provided handler. Counters and logs refer
// to the handler by name.
func Register(typ reflect.Type, name string, h Handler) {
	backends.Register(typ, binding{name: name, handler: h})
}

// RegisterBackend binds typ to the backend b.
func RegisterBackend(typ reflect.Type, b *Backend) {
	log.Debug.Printf("dispatch: registered backend %s for %s", b.Name, typ)
	backends.Register(typ, binding{name: b.Name, handler: b.Handler(), backend: b})
}

// RegisterLazy defers registration of all types in the package family
// pkgPath until a value from that family is first dispatched on. The
// loader should call Register or RegisterBackend for the family's
// types; it is run at most once.
func RegisterLazy(pkgPath string, load func()) {
	backends.RegisterLazy(pkgPath, load)
}

// Lookup returns the handler registered for typ. It fails with an
// error of kind errors.NotExist if there is none.
func Lookup(typ reflect.Type) (Handler, error) {
	b, err := backends.Lookup(typ)
	if err != nil {
		return nil, err
	}
	return b.(binding).handler, nil
}

// BackendFor returns the backend registered for typ. Types registered
// with a bare Handler have no backend; BackendFor returns nil for
// them.
func BackendFor(typ reflect.Type) (*Backend, error) {
	b, err := backends.Lookup(typ)
	if err != nil {
		return nil, err
	}
	return b.(binding).backend, nil
}

// Supports tells whether values of type typ are handled by a
// registered backend.
func Supports(typ reflect.Type) bool {
	return backends.Has(typ)
}

// Invoke calls op on value and the remaining arguments, routed by the
// runtime type of value. If no handler is registered for the type,
// op itself is called.
func Invoke(op *dense.Func, value interface{}, rest ...interface{}) (interface{}, error) {
	b, err := backends.Lookup(reflect.TypeOf(value))
	if err != nil {
		counters.Incr("dispatch.reference")
		return op.Call(append([]interface{}{value}, rest...)...)
	}
	bind := b.(binding)
	counters.Incr("dispatch." + bind.name)
	return bind.handler(op, value, rest...)
}

// Stats returns a snapshot of the routing counters: how many calls
// went to each backend ("dispatch.<name>"), the reference fallback
// ("dispatch.reference"), the direct reference path for plain values
// ("direct"), and per-function overrides ("override.<op>").
func Stats() stats.Values {
	return counters.Snapshot()
}
