// Package observable provides named, independently updatable values that
// consumers subscribe to for replay-then-live updates.
package observable

import (
	"sync"
	"sync/atomic"
)

// Dispatcher runs a delivery on the consumer's preferred goroutine.
// Implementations must run functions in the order they were dispatched.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts an ordinary function to the Dispatcher interface.
type DispatcherFunc func(fn func())

// Dispatch calls f(fn).
func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Observable is the read-only view of a Field.
type Observable[T any] interface {
	// Subscribe delivers the last known value (if any) and then every
	// subsequent change, synchronously on the publishing goroutine.
	Subscribe(fn func(T)) *Subscription

	// SubscribeOn is Subscribe with deliveries handed to d.
	SubscribeOn(d Dispatcher, fn func(T)) *Subscription

	// Value returns the last value and whether one was ever set.
	Value() (T, bool)
}

type subscriber[T any] struct {
	fn       atomic.Pointer[func(T)]
	dispatch Dispatcher
	joined   uint64 // sequence number current when the subscriber joined
}

func (s *subscriber[T]) deliver(v T) {
	if s.dispatch == nil {
		s.call(v)
		return
	}
	s.dispatch.Dispatch(func() { s.call(v) })
}

// call is a no-op once the subscription has been released, which also
// covers deliveries still sitting in a dispatcher's queue.
func (s *subscriber[T]) call(v T) {
	if fn := s.fn.Load(); fn != nil {
		(*fn)(v)
	}
}

type delivery[T any] struct {
	value T
	seq   uint64
	to    *subscriber[T] // nil broadcasts to every subscriber
}

// Field holds a value and pushes every change to its subscribers in the
// order the changes were made. The zero value is ready to use.
//
// Deliveries for one field never overlap: a Set made from inside a
// subscriber callback (or concurrently from another goroutine) is queued
// and delivered by whichever caller is already draining the queue.
type Field[T any] struct {
	mu       sync.Mutex
	value    T
	seq      uint64
	subs     []*subscriber[T]
	queue    []delivery[T]
	draining bool
}

// NewField returns an empty field.
func NewField[T any]() *Field[T] {
	return &Field[T]{}
}

// NewFieldWith returns a field that already holds v.
func NewFieldWith[T any](v T) *Field[T] {
	return &Field[T]{value: v, seq: 1}
}

// Value returns the last value and whether one was ever set.
func (f *Field[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.seq > 0
}

// Set stores v and delivers it to every current subscriber.
func (f *Field[T]) Set(v T) {
	f.mu.Lock()
	f.value = v
	f.seq++
	f.queue = append(f.queue, delivery[T]{value: v, seq: f.seq})
	f.drainLocked()
}

// Subscribe implements Observable.
func (f *Field[T]) Subscribe(fn func(T)) *Subscription {
	return f.SubscribeOn(nil, fn)
}

// SubscribeOn implements Observable.
func (f *Field[T]) SubscribeOn(d Dispatcher, fn func(T)) *Subscription {
	s := &subscriber[T]{dispatch: d}
	s.fn.Store(&fn)

	f.mu.Lock()
	s.joined = f.seq
	f.subs = append(f.subs, s)
	if f.seq > 0 {
		f.queue = append(f.queue, delivery[T]{value: f.value, seq: f.seq, to: s})
	}
	sub := NewSubscription(func() {
		s.fn.Store(nil)
		f.remove(s)
	})
	f.drainLocked()

	return sub
}

// Subscribers reports how many subscriptions are currently active.
func (f *Field[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// drainLocked delivers queued values until the queue is empty.
// Must be called with f.mu held; returns with it released.
func (f *Field[T]) drainLocked() {
	if f.draining {
		f.mu.Unlock()
		return
	}
	f.draining = true

	for len(f.queue) > 0 {
		d := f.queue[0]
		f.queue[0] = delivery[T]{}
		f.queue = f.queue[1:]

		var targets []*subscriber[T]
		if d.to != nil {
			targets = []*subscriber[T]{d.to}
		} else {
			// Skip subscribers that joined after this value was set; their
			// replay already carries it or something newer.
			for _, s := range f.subs {
				if d.seq > s.joined {
					targets = append(targets, s)
				}
			}
		}

		f.mu.Unlock()
		for _, s := range targets {
			s.deliver(d.value)
		}
		f.mu.Lock()
	}

	f.queue = nil
	f.draining = false
	f.mu.Unlock()
}

func (f *Field[T]) remove(s *subscriber[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, cur := range f.subs {
		if cur == s {
			f.subs[i] = f.subs[len(f.subs)-1]
			f.subs[len(f.subs)-1] = nil
			f.subs = f.subs[:len(f.subs)-1]
			return
		}
	}
}
