// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dispatch

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// A Table maps runtime types to entries. Entries are registered
// either eagerly, by type, or lazily, by package path: a lazy loader
// is run the first time a value whose type belongs to its package
// family is looked up, and is expected to register the family's
// types. Tables are safe for concurrent use.
type Table struct {
	name string

	mu      sync.RWMutex
	entries map[reflect.Type]interface{}
	// ifaces lists registered interface types in registration order.
	// A type without an exact entry matches the first interface it
	// implements.
	ifaces []reflect.Type
	lazy   map[string]*family
}

// A family is a lazily registered set of types that share a package
// path prefix.
type family struct {
	once sync.Once
	load func()
}

// NewTable returns a new, empty table. The name is used in error
// messages and logs.
func NewTable(name string) *Table {
	return &Table{
		name:    name,
		entries: make(map[reflect.Type]interface{}),
		lazy:    make(map[string]*family),
	}
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Register binds typ to the entry v, silently replacing any previous
// binding. If typ is an interface type, v is also used for any
// otherwise unregistered type that implements it.
func (t *Table) Register(typ reflect.Type, v interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[typ]; !ok && typ.Kind() == reflect.Interface {
		t.ifaces = append(t.ifaces, typ)
	}
	t.entries[typ] = v
}

// RegisterLazy defers registration of the family of types whose
// package path is pkgPath, or is nested below it, until a value of
// such a type is first looked up. The loader runs at most once, and
// is not run at all if no such value is ever looked up.
func (t *Table) RegisterLazy(pkgPath string, load func()) {
	t.mu.Lock()
	t.lazy[strings.TrimSuffix(pkgPath, "/")] = &family{load: load}
	t.mu.Unlock()
}

// Lookup returns the entry for typ. If typ is not registered but
// belongs to a lazily registered family, the family is loaded first.
// Lookup returns an error of kind errors.NotExist if no entry
// matches.
func (t *Table) Lookup(typ reflect.Type) (interface{}, error) {
	if typ == nil {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("%s: no handler registered for nil", t.name))
	}
	if v, ok := t.lookup(typ); ok {
		return v, nil
	}
	if pkg, fam := t.family(typ); fam != nil {
		fam.once.Do(func() {
			log.Debug.Printf("%s: loading %s for type %s", t.name, pkg, typ)
			fam.load()
		})
		t.mu.Lock()
		if t.lazy[pkg] == fam {
			delete(t.lazy, pkg)
		}
		t.mu.Unlock()
		if v, ok := t.lookup(typ); ok {
			return v, nil
		}
	}
	return nil, errors.E(errors.NotExist, fmt.Sprintf("%s: no handler registered for type %s", t.name, typ))
}

// Has tells whether Lookup would succeed for typ.
func (t *Table) Has(typ reflect.Type) bool {
	_, err := t.Lookup(typ)
	return err == nil
}

func (t *Table) lookup(typ reflect.Type) (interface{}, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.entries[typ]; ok {
		return v, true
	}
	for _, iface := range t.ifaces {
		if typ.Implements(iface) {
			return t.entries[iface], true
		}
	}
	return nil, false
}

// family returns the lazily registered family with the longest
// package path that covers typ.
func (t *Table) family(typ reflect.Type) (string, *family) {
	path := pkgPath(typ)
	if path == "" {
		return "", nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var (
		best string
		fam  *family
	)
	for pkg, f := range t.lazy {
		if (path == pkg || strings.HasPrefix(path, pkg+"/")) && len(pkg) > len(best) {
			best, fam = pkg, f
		}
	}
	return best, fam
}

// pkgPath returns the package path of the named type underlying typ,
// looking through pointers.
func pkgPath(typ reflect.Type) string {
	for typ.Kind() == reflect.Ptr && typ.Name() == "" {
		typ = typ.Elem()
	}
	return typ.PkgPath()
}
