// Package mailbox provides a single-slot, latest-wins handoff between one
// producer and one consumer goroutine.
package mailbox

import (
	"sync"
	"sync/atomic"
)

// Mailbox holds at most one pending item. Put never blocks: a new item
// overwrites an unconsumed one and the overwrite is counted as a drop.
// Take blocks until an item is available or the mailbox is closed.
//
// Items must not be modified after Put.
type Mailbox[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	item    T
	pending bool
	closed  bool

	puts  atomic.Uint64
	drops atomic.Uint64
}

// New returns an empty mailbox.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put stores item, replacing any pending one. It reports whether a pending
// item was dropped. Put on a closed mailbox is a no-op and returns false.
func (m *Mailbox[T]) Put(item T) (dropped bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if m.pending {
		dropped = true
		m.drops.Add(1)
	}
	m.item = item
	m.pending = true
	m.puts.Add(1)
	m.cond.Signal()
	m.mu.Unlock()
	return dropped
}

// Take waits for the pending item and removes it. ok is false once the
// mailbox is closed; a pending item at close time is discarded.
func (m *Mailbox[T]) Take() (item T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.pending && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		var zero T
		return zero, false
	}
	item = m.item
	m.item = *new(T)
	m.pending = false
	return item, true
}

// Close wakes any waiting Take and rejects further Puts. It reports whether
// an item was still pending. Close is idempotent.
func (m *Mailbox[T]) Close() (discarded bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.closed = true
	discarded = m.pending
	m.pending = false
	m.item = *new(T)
	m.cond.Broadcast()
	m.mu.Unlock()
	return discarded
}

// Puts is the number of accepted items.
func (m *Mailbox[T]) Puts() uint64 { return m.puts.Load() }

// Drops is the number of items overwritten before being taken.
func (m *Mailbox[T]) Drops() uint64 { return m.drops.Load() }
