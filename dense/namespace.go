// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dense

import (
	"fmt"
	"sort"
	"sync"

	"github.com/grailbio/base/errors"
)

// Impl is the calling convention shared by all array operations.
type Impl func(args ...interface{}) (interface{}, error)

// A Func is a named array operation. Funcs are always handled by
// pointer: the identity of a function is the identity of its *Func.
type Func struct {
	// Name is the operation's name in the reference namespace.
	Name string
	// Impl implements the operation.
	Impl Impl
}

// NewFunc returns a new function with the provided name and
// implementation.
func NewFunc(name string, impl Impl) *Func {
	return &Func{Name: name, Impl: impl}
}

// Call invokes the function with the provided arguments.
func (f *Func) Call(args ...interface{}) (interface{}, error) {
	return f.Impl(args...)
}

// String returns the function's name.
func (f *Func) String() string { return "func " + f.Name }

// A Namespace is a mutable table of named bindings. Bindings are
// either functions (*Func) or arbitrary values such as constants and
// type markers. Namespaces are safe for concurrent use, though
// mutating a namespace that other code is calling through changes
// what that code calls.
type Namespace struct {
	name     string
	mu       sync.RWMutex
	bindings map[string]interface{}
}

// NewNamespace returns a new, empty namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{name: name, bindings: make(map[string]interface{})}
}

// Name returns the namespace's name.
func (n *Namespace) Name() string { return n.name }

// Lookup returns the binding for name.
func (n *Namespace) Lookup(name string) (interface{}, bool) {
	n.mu.RLock()
	v, ok := n.bindings[name]
	n.mu.RUnlock()
	return v, ok
}

// Func returns the function bound to name. An error with kind
// errors.Invalid is returned if name is unbound or bound to a
// non-function value.
func (n *Namespace) Func(name string) (*Func, error) {
	v, ok := n.Lookup(name)
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("unknown operation %q in namespace %s", name, n.name))
	}
	fn, ok := v.(*Func)
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%s.%s is a %T, not a function", n.name, name, v))
	}
	return fn, nil
}

// Set binds name to v, replacing any existing binding.
func (n *Namespace) Set(name string, v interface{}) {
	n.mu.Lock()
	n.bindings[name] = v
	n.mu.Unlock()
}

// Define binds fn under its own name.
func (n *Namespace) Define(fn *Func) {
	n.Set(fn.Name, fn)
}

// Delete removes the binding for name.
func (n *Namespace) Delete(name string) {
	n.mu.Lock()
	delete(n.bindings, name)
	n.mu.Unlock()
}

// Names returns the sorted names of all bindings.
func (n *Namespace) Names() []string {
	n.mu.RLock()
	names := make([]string, 0, len(n.bindings))
	for name := range n.bindings {
		names = append(names, name)
	}
	n.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of bindings in the namespace.
func (n *Namespace) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.bindings)
}

// Snapshot returns a copy of the namespace's bindings.
func (n *Namespace) Snapshot() map[string]interface{} {
	n.mu.RLock()
	defer n.mu.RUnlock()
	snap := make(map[string]interface{}, len(n.bindings))
	for k, v := range n.bindings {
		snap[k] = v
	}
	return snap
}

// Update binds every entry in bindings, leaving other bindings as-is.
func (n *Namespace) Update(bindings map[string]interface{}) {
	n.mu.Lock()
	for k, v := range bindings {
		n.bindings[k] = v
	}
	n.mu.Unlock()
}

// Restore replaces the namespace's bindings with the provided
// snapshot. Bindings added since the snapshot are dropped; removed
// ones reappear. Readers never observe the intermediate, empty
// namespace.
func (n *Namespace) Restore(snapshot map[string]interface{}) {
	n.mu.Lock()
	n.bindings = make(map[string]interface{}, len(snapshot))
	for k, v := range snapshot {
		n.bindings[k] = v
	}
	n.mu.Unlock()
}
