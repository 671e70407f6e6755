// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package typecheck

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

func errorCaller(calldepth int, err error) (e *Error, file string, line int) {
	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		panic("not ok")
	}
	return NewError(calldepth+1, err), file, line
}

func TestError(t *testing.T) {
	e := errors.New("hello world")
	err, file, line := errorCaller(1, e)
	if got, want := err.Err, e; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := file, err.File; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := line, err.Line; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func check(ok bool) (err error) {
	defer Recover(&err)
	if !ok {
		Panicf(0, "bad value %d", 42)
	}
	return nil
}

func TestRecover(t *testing.T) {
	if err := check(true); err != nil {
		t.Fatal(err)
	}
	err := check(false)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasSuffix(err.Error(), "bad value 42") || !strings.Contains(err.Error(), "error_test.go:") {
		t.Errorf("bad error %v", err)
	}
}

func TestRecoverPropagates(t *testing.T) {
	defer func() {
		if e := recover(); e != "other" {
			t.Errorf("got %v, want other", e)
		}
	}()
	func() (err error) {
		defer Recover(&err)
		panic("other")
	}()
}
