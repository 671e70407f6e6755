// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package ctxsync provides synchronization primitives whose blocking
// operations respect context cancellation.
package ctxsync

import (
	"context"
	"sync"
)

// A Mutex is a mutual exclusion lock whose Lock may be abandoned
// when a context is done. The zero Mutex is unlocked.
type Mutex struct {
	mu     sync.Mutex
	locked bool
	// waitc is closed and cleared on each Unlock, waking every waiter
	// blocked in Lock at that time.
	waitc chan struct{}
}

// Lock locks m, waiting for it to be unlocked if it is already
// locked. If the context is done first, Lock returns the context's
// error and m is not locked.
func (m *Mutex) Lock(ctx context.Context) error {
	m.mu.Lock()
	for m.locked {
		if m.waitc == nil {
			m.waitc = make(chan struct{})
		}
		waitc := m.waitc
		m.mu.Unlock()
		select {
		case <-waitc:
		case <-ctx.Done():
			return ctx.Err()
		}
		m.mu.Lock()
	}
	m.locked = true
	m.mu.Unlock()
	return nil
}

// TryLock locks m if it is unlocked, and reports whether it did.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}

// Unlock unlocks m, waking any waiters. Unlock panics if m is not
// locked.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		panic("ctxsync: unlock of unlocked mutex")
	}
	m.locked = false
	if m.waitc != nil {
		close(m.waitc)
		m.waitc = nil
	}
}
