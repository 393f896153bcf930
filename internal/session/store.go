package session

import (
	"context"
	"sync"
)

// Store holds the snapshot of one job and fans out change notifications.
// All mutation goes through Update; readers get deep copies and must not be
// able to reach the live value.
type Store struct {
	mu       sync.RWMutex
	snap     Snapshot
	watchers map[int]chan Snapshot
	nextID   int
}

func NewStore() *Store {
	return &Store{
		snap:     NewSnapshot(),
		watchers: make(map[int]chan Snapshot),
	}
}

// Current returns a copy of the snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Update applies fn to the snapshot and notifies watchers with the result.
// fn receives a copy, so an fn that returns its argument unchanged is a no-op
// on the stored value.
func (s *Store) Update(fn func(Snapshot) Snapshot) Snapshot {
	s.mu.Lock()
	s.snap = fn(s.snap.Clone())
	next := s.snap.Clone()
	watchers := make([]chan Snapshot, 0, len(s.watchers))
	for _, ch := range s.watchers {
		watchers = append(watchers, ch)
	}
	s.mu.Unlock()

	for _, ch := range watchers {
		// drop the stale value if the watcher is lagging
		select {
		case ch <- next.Clone():
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next.Clone():
			default:
			}
		}
	}
	return next
}

// Reset puts the store back to the initial idle snapshot, used when the user
// discards a job or starts a new one.
func (s *Store) Reset() Snapshot {
	return s.Update(func(Snapshot) Snapshot {
		return NewSnapshot()
	})
}

// Watch delivers a copy of every snapshot change until ctx is done. The
// current value is delivered first. Slow consumers observe the latest value,
// not every intermediate one.
func (s *Store) Watch(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.snap.Clone()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}()

	return ch
}
