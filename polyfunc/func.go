// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package polyfunc provides types and code to call arbitrary
// user-defined functions through a uniform calling convention. It is
// used to wrap user functions that should become backend-polymorphic.
package polyfunc

import (
	"context"
	"fmt"
	"reflect"

	"github.com/grailbio/base/errors"
)

// Nil is a nil Func.
var Nil Func

var (
	typeOfContext = reflect.TypeOf((*context.Context)(nil)).Elem()
	typeOfError   = reflect.TypeOf((*error)(nil)).Elem()
)

// Func represents a user-defined function. A function may optionally
// take a context.Context as its first argument, in which case the
// context passed to Call or Apply is supplied; and it may optionally
// return an error as its last result, in which case Apply reports it
// as the call's error.
type Func struct {
	// In holds the function's argument types, excluding a leading
	// context. If the function is variadic, the last type is the
	// variadic slice type.
	In []reflect.Type
	// Out holds the function's result types, excluding a trailing
	// error.
	Out []reflect.Type
	// IsVariadic is whether the function's final parameter is variadic.
	IsVariadic bool

	fn          reflect.Value
	contextFunc bool
	errorFunc   bool
}

// Of creates a Func from the provided function, along with a bool
// indicating whether fn is a valid function. If it is not, the
// returned Func is invalid.
func Of(fn interface{}) (Func, bool) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return Func{}, false
	}
	v := reflect.ValueOf(fn)
	if v.IsNil() {
		return Func{}, false
	}
	in := make([]reflect.Type, t.NumIn())
	for i := range in {
		in[i] = t.In(i)
	}
	context := len(in) > 0 && in[0] == typeOfContext
	if context {
		in = in[1:]
	}
	out := make([]reflect.Type, t.NumOut())
	for i := range out {
		out[i] = t.Out(i)
	}
	errorFunc := len(out) > 0 && out[len(out)-1] == typeOfError
	if errorFunc {
		out = out[:len(out)-1]
	}
	return Func{
		In:          in,
		Out:         out,
		IsVariadic:  t.IsVariadic(),
		fn:          v,
		contextFunc: context,
		errorFunc:   errorFunc,
	}, true
}

// Call invokes the function with the provided arguments, and returns
// the reflected return values, including a trailing error if the
// function returns one.
func (f Func) Call(ctx context.Context, args []reflect.Value) []reflect.Value {
	if f.contextFunc {
		return f.fn.Call(append([]reflect.Value{reflect.ValueOf(ctx)}, args...))
	}
	return f.fn.Call(args)
}

// Apply typechecks the provided arguments against the function's
// signature and invokes it. Functions without results return nil;
// functions with a single result return it directly; functions with
// more results return them as a []interface{}.
func (f Func) Apply(ctx context.Context, args ...interface{}) (interface{}, error) {
	if f.IsNil() {
		return nil, errors.E(errors.Invalid, "polyfunc: apply on nil func")
	}
	argv, err := f.values(args)
	if err != nil {
		return nil, err
	}
	rv := f.Call(ctx, argv)
	if f.errorFunc {
		last := rv[len(rv)-1]
		rv = rv[:len(rv)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}
	switch len(rv) {
	case 0:
		return nil, nil
	case 1:
		return rv[0].Interface(), nil
	}
	out := make([]interface{}, len(rv))
	for i := range rv {
		out[i] = rv[i].Interface()
	}
	return out, nil
}

func (f Func) values(args []interface{}) ([]reflect.Value, error) {
	nfixed := len(f.In)
	if f.IsVariadic {
		nfixed--
		if len(args) < nfixed {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("polyfunc: wrong number of arguments: function takes at least %d arguments, got %d", nfixed, len(args)))
		}
	} else if len(args) != nfixed {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("polyfunc: wrong number of arguments: function takes %d arguments, got %d", nfixed, len(args)))
	}
	argv := make([]reflect.Value, len(args))
	for i, arg := range args {
		var typ reflect.Type
		if i < nfixed {
			typ = f.In[i]
		} else {
			typ = f.In[len(f.In)-1].Elem()
		}
		if arg == nil {
			switch typ.Kind() {
			case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
				argv[i] = reflect.Zero(typ)
				continue
			}
			return nil, errors.E(errors.Invalid, fmt.Sprintf("polyfunc: argument %d: nil is not a valid %s", i, typ))
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(typ) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("polyfunc: wrong type for argument %d: expected %s, got %s", i, typ, v.Type()))
		}
		argv[i] = v
	}
	return argv, nil
}

// Interface returns the underlying function value.
func (f Func) Interface() interface{} {
	if f.IsNil() {
		return nil
	}
	return f.fn.Interface()
}

// IsNil returns whether the Func f is nil.
func (f Func) IsNil() bool {
	return f.fn == reflect.Value{}
}

// String returns the function's type.
func (f Func) String() string {
	if f.IsNil() {
		return "polyfunc.Nil"
	}
	return f.fn.Type().String()
}
