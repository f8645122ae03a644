// Package snapshot holds the latest face detection snapshot shared between
// the metadata and video delivery goroutines.
//
// The store gives eventual, not frame-exact, correlation: a frame is paired
// with whatever snapshot was published most recently when the frame was read,
// which may lag the true face positions by one detection interval. Readers
// never wait for a fresher value.
package snapshot

import (
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Store is a single-value, last-writer-wins holder for face.Snapshot.
//
// Publish and Current are lock-free; a reader always sees one complete
// published snapshot. The version is carried by the stored snapshot itself
// and advanced with a compare-and-swap, so concurrent publishers still leave
// Current().Version() equal to Version() and never moving backwards.
type Store struct {
	cur atomic.Pointer[face.Snapshot]

	mu      sync.Mutex
	waiters []chan struct{}
}

// New returns a store holding the empty snapshot at version 0.
func New() *Store {
	s := &Store{}
	empty := face.EmptySnapshot()
	s.cur.Store(&empty)
	return s
}

// Publish replaces the stored snapshot and returns it stamped with its
// publish version.
func (s *Store) Publish(snap face.Snapshot) face.Snapshot {
	for {
		old := s.cur.Load()
		var v uint64
		if old != nil {
			v = old.Version()
		}
		next := snap.WithVersion(v + 1)
		if s.cur.CompareAndSwap(old, &next) {
			s.notify()
			return next
		}
	}
}

// Current returns the most recently published snapshot.
func (s *Store) Current() face.Snapshot {
	if p := s.cur.Load(); p != nil {
		return *p
	}
	return face.EmptySnapshot()
}

// Version returns the version of the last publish, 0 before the first.
func (s *Store) Version() uint64 {
	return s.Current().Version()
}

// Reset publishes the empty snapshot. The session calls it on stop so a
// restarted session never extracts against boxes from a previous run.
func (s *Store) Reset() {
	s.Publish(face.EmptySnapshot())
}

// Changed returns a channel closed on the next publish. It lets tests and the
// status stream wait for a publish without polling; the hot path never uses it.
func (s *Store) Changed() <-chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify() {
	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
}
