// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dispatch

import (
	"context"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/polyslice/ctxsync"
	"github.com/grailbio/polyslice/dense"
	"github.com/grailbio/polyslice/polyfunc"
	"github.com/grailbio/polyslice/typecheck"
)

// noPatch names bindings that a Scope never replaces.
var noPatch = map[string]bool{
	"dtype":            true,
	"errstate":         true,
	"may_share_memory": true,
	"finfo":            true,
	"ndarray":          true,
	"isscalar":         true,
}

// A patchState tracks the scopes entered on one namespace. The first
// scope to enter snapshots and patches the namespace; the last to exit
// restores the snapshot.
type patchState struct {
	mu       ctxsync.Mutex
	active   int
	snapshot map[string]interface{}
}

// states holds the patch state of each namespace.
var states sync.Map // *dense.Namespace -> *patchState

func stateFor(ns *dense.Namespace) *patchState {
	st, _ := states.LoadOrStore(ns, new(patchState))
	return st.(*patchState)
}

type scopeKey struct{ ns *dense.Namespace }

// A Scope temporarily replaces every function in a namespace with its
// dispatching version. While a scope is entered, code that calls
// reference operations through the namespace (for example
// dense.Sum) is routed to the backend holding its arguments.
//
// Scopes on the same namespace share a single patch: a scope entered
// while another is active, whether nested in it or running
// concurrently with it, joins the active patch instead of taking a
// new snapshot. The namespace is restored to the snapshot taken by the
// first scope when the last active scope exits.
type Scope struct {
	ns    *dense.Namespace
	cache *Cache

	entered bool
}

// NewScope returns a new scope that patches ns with functions from
// cache.
func NewScope(ns *dense.Namespace, cache *Cache) *Scope {
	return &Scope{ns: ns, cache: cache}
}

// DefaultScope returns a new scope over dense.Default.
func DefaultScope() *Scope {
	return NewScope(dense.Default, defaultCache)
}

// Enter installs dispatching versions of all of the namespace's public
// functions, except for those that are never patched, or joins the
// patch of an already active scope. Enter returns a context that
// marks the scope as active. Enter fails with the context's error if
// the context is done, and entering a scope twice fails with an error
// of kind errors.Precondition.
func (s *Scope) Enter(ctx context.Context) (context.Context, error) {
	if s.entered {
		return ctx, errors.E(errors.Precondition, "dispatch: scope already entered")
	}
	if err := ctx.Err(); err != nil {
		return ctx, err
	}
	st := stateFor(s.ns)
	if err := st.mu.Lock(ctx); err != nil {
		return ctx, err
	}
	defer st.mu.Unlock()
	if st.active == 0 {
		snapshot := s.ns.Snapshot()
		patch, err := s.patchSet(snapshot)
		if err != nil {
			return ctx, err
		}
		s.ns.Update(patch)
		st.snapshot = snapshot
		log.Debug.Printf("dispatch: patched %d functions in %s", len(patch), s.ns.Name())
	}
	st.active++
	s.entered = true
	return context.WithValue(ctx, scopeKey{s.ns}, s), nil
}

// Exit leaves the scope. When it is the last active scope on its
// namespace, the namespace is restored to the snapshot taken when it
// was patched: bindings added in the meantime are dropped, and changed
// or removed bindings are reinstated. Exit must be called exactly once
// for each successful Enter, on every exit path.
func (s *Scope) Exit() error {
	if !s.entered {
		return errors.E(errors.Precondition, "dispatch: exit of a scope that was not entered")
	}
	s.entered = false
	st := stateFor(s.ns)
	// Lock waits only on other Enter and Exit calls.
	_ = st.mu.Lock(context.Background())
	defer st.mu.Unlock()
	st.active--
	if st.active > 0 {
		return nil
	}
	s.ns.Restore(st.snapshot)
	st.snapshot = nil
	log.Debug.Printf("dispatch: restored %s", s.ns.Name())
	return nil
}

// Active tells whether a scope is entered on ns.
func Active(ns *dense.Namespace) bool {
	st := stateFor(ns)
	if err := st.mu.Lock(context.Background()); err != nil {
		return false
	}
	defer st.mu.Unlock()
	return st.active > 0
}

// patchSet returns the dispatching replacements for the function
// bindings in snapshot.
func (s *Scope) patchSet(snapshot map[string]interface{}) (map[string]interface{}, error) {
	patch := make(map[string]interface{})
	for name, v := range snapshot {
		if _, ok := v.(*dense.Func); !ok || noPatch[name] || strings.HasPrefix(name, "_") {
			continue
		}
		fn, err := s.cache.Get(name)
		if err != nil {
			return nil, err
		}
		patch[name] = fn
	}
	return patch, nil
}

// Polymorphic returns a backend-polymorphic version of fn. If fn is a
// reference operation bound in dense.Default, Polymorphic returns its
// cached dispatching version. Otherwise fn may be any function (see
// package polyfunc for the accepted shapes), and each call of the
// returned function runs fn inside a DefaultScope: the scope is
// entered before fn is called and exited when it returns, fails, or
// panics.
//
// Polymorphic functions may call other polymorphic functions, and
// polymorphic functions may be called concurrently: every call joins
// the active patch, and the namespace is restored when the last call
// returns.
func Polymorphic(fn interface{}) (polyfunc.Func, error) {
	return polymorphic(fn, 1)
}

// MustPolymorphic is like Polymorphic but panics if fn is not a
// function.
func MustPolymorphic(fn interface{}) polyfunc.Func {
	f, err := polymorphic(fn, 1)
	if err != nil {
		panic(err)
	}
	return f
}

func polymorphic(fn interface{}, calldepth int) (polyfunc.Func, error) {
	if op, ok := fn.(*dense.Func); ok {
		if v, ok := dense.Default.Lookup(op.Name); ok && sameOp(op, v) {
			wrapped, err := Get(op.Name)
			if err != nil {
				return polyfunc.Nil, err
			}
			f, _ := polyfunc.Of(wrapped.Impl)
			return f, nil
		}
	}
	inner, ok := polyfunc.Of(fn)
	if !ok {
		return polyfunc.Nil, typecheck.Errorf(calldepth+1, "dispatch.Polymorphic: %T is not a function", fn)
	}
	f, _ := polyfunc.Of(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		scope := DefaultScope()
		ctx, err := scope.Enter(ctx)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := scope.Exit(); err != nil {
				log.Error.Printf("dispatch: %v", err)
			}
		}()
		return inner.Apply(ctx, args...)
	})
	return f, nil
}

// sameOp tells whether op and the binding v are the same reference
// operation, looking through dispatching wrappers.
func sameOp(op *dense.Func, v interface{}) bool {
	other, ok := v.(*dense.Func)
	if !ok {
		return false
	}
	if w, ok := Unwrap(op); ok {
		op = w.Orig
	}
	if w, ok := Unwrap(other); ok {
		other = w.Orig
	}
	return op == other
}
