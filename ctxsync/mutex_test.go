// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package ctxsync

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMutex(t *testing.T) {
	var (
		mu      Mutex
		wg      sync.WaitGroup
		counter int
	)
	const N = 50
	wg.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer wg.Done()
			if err := mu.Lock(context.Background()); err != nil {
				t.Error(err)
				return
			}
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()
	if got, want := counter, N; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMutexContext(t *testing.T) {
	var mu Mutex
	if !mu.TryLock() {
		t.Fatal("expected lock")
	}
	if mu.TryLock() {
		t.Fatal("locked twice")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if got, want := mu.Lock(ctx), context.DeadlineExceeded; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	mu.Unlock()
	if err := mu.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	mu.Unlock()
}

func TestUnlockPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	var mu Mutex
	mu.Unlock()
}
