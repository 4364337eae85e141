// Package xsync provides a mutex whose acquisition can be interrupted by
// context cancellation, so a caller blocked on a lock during shutdown
// never holds it and can propagate acerr.KindInterrupted instead of
// hanging.
package xsync

import (
	"context"
	"sync"

	"github.com/bsaravanan-aesd/aesdsocket/internal/acerr"
)

// InterruptibleMutex is a mutex built on a one-slot channel, with a
// context-aware Lock. The zero value is ready to use.
type InterruptibleMutex struct {
	ch   chan struct{}
	once sync.Once
}

func (m *InterruptibleMutex) init() {
	m.once.Do(func() {
		m.ch = make(chan struct{}, 1)
		m.ch <- struct{}{}
	})
}

// Lock blocks until the mutex is acquired or ctx is done, whichever comes
// first. On cancellation it returns acerr.KindInterrupted without having
// acquired the lock.
func (m *InterruptibleMutex) Lock(ctx context.Context) error {
	m.init()
	select {
	case <-m.ch:
		return nil
	default:
	}

	select {
	case <-m.ch:
		return nil
	case <-ctx.Done():
		return acerr.New("xsync.Lock", acerr.KindInterrupted, "lock acquisition interrupted")
	}
}

// Unlock releases the mutex. Unlock without a prior successful Lock is a
// programmer error, matching sync.Mutex's contract.
func (m *InterruptibleMutex) Unlock() {
	m.init()
	select {
	case m.ch <- struct{}{}:
	default:
		panic("xsync: Unlock of unlocked InterruptibleMutex")
	}
}
