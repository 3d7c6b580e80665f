package observable

import "sync"

// Subscription is a handle on an active subscription.
type Subscription struct {
	once    sync.Once
	release func()
}

// NewSubscription wraps release so it runs at most once.
func NewSubscription(release func()) *Subscription {
	return &Subscription{release: release}
}

// Release stops delivery. Safe to call more than once and on nil.
func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release()
			s.release = nil
		}
	})
}

// Scope owns a group of subscriptions and releases them together when its
// owner is torn down.
type Scope struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewScope returns an open scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add ties subs to the scope. Subscriptions added after Close are
// released immediately.
func (sc *Scope) Add(subs ...*Subscription) {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		for _, s := range subs {
			s.Release()
		}
		return
	}
	sc.subs = append(sc.subs, subs...)
	sc.mu.Unlock()
}

// Defer runs fn when the scope closes.
func (sc *Scope) Defer(fn func()) {
	sc.Add(NewSubscription(fn))
}

// Close releases every subscription in reverse order of addition.
func (sc *Scope) Close() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.closed = true
	subs := sc.subs
	sc.subs = nil
	sc.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Release()
	}
}

// Closed reports whether Close has been called.
func (sc *Scope) Closed() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.closed
}
