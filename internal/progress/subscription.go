package progress

import (
	"context"
	"sync"
)

// maxQueued bounds the backlog of a slow subscriber. Past it, consecutive
// snapshots with the same status are collapsed so no status transition is
// ever dropped.
const maxQueued = 4096

// Subscription delivers every snapshot published by the store, in order.
type Subscription struct {
	store  *Store
	mu     sync.Mutex
	queue  []State
	notify chan struct{}
	closed bool
}

// Subscribe registers a subscriber. The first snapshot delivered is the
// state at the time of the call.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{
		store:  s,
		notify: make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	sub.push(s.state.Clone())
	s.mu.Unlock()

	return sub
}

// Next blocks until a snapshot is available or ctx is done.
func (sub *Subscription) Next(ctx context.Context) (State, error) {
	for {
		sub.mu.Lock()
		if len(sub.queue) > 0 {
			st := sub.queue[0]
			sub.queue[0] = State{}
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()
			return st, nil
		}
		sub.mu.Unlock()

		select {
		case <-ctx.Done():
			return State{}, ctx.Err()
		case <-sub.notify:
		}
	}
}

// Close unregisters the subscriber. Pending snapshots are discarded.
func (sub *Subscription) Close() {
	sub.store.mu.Lock()
	delete(sub.store.subs, sub)
	sub.store.mu.Unlock()

	sub.mu.Lock()
	sub.closed = true
	sub.queue = nil
	sub.mu.Unlock()
}

func (sub *Subscription) push(st State) {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.queue = append(sub.queue, st)
	if len(sub.queue) > maxQueued {
		sub.queue = collapse(sub.queue)
	}
	sub.mu.Unlock()

	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

// collapse drops the oldest snapshot that is followed by one with the same
// status and operation.
func collapse(q []State) []State {
	for i := 0; i < len(q)-1; i++ {
		if q[i].Status == q[i+1].Status && q[i].ID == q[i+1].ID {
			return append(q[:i], q[i+1:]...)
		}
	}
	return q
}
