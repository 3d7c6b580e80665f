package observable

import "sync/atomic"

// Event wraps content that should be acted on once, such as a navigation
// request, even if the field holding it is replayed to a new subscriber.
type Event[T any] struct {
	content T
	handled atomic.Bool
}

// NewEvent returns an unhandled event carrying content.
func NewEvent[T any](content T) *Event[T] {
	return &Event[T]{content: content}
}

// ContentIfNotHandled returns the content and marks the event handled.
// Every later call returns false.
func (e *Event[T]) ContentIfNotHandled() (T, bool) {
	if e.handled.Swap(true) {
		var zero T
		return zero, false
	}
	return e.content, true
}

// Peek returns the content regardless of whether it was handled.
func (e *Event[T]) Peek() T {
	return e.content
}
