package tui

import (
	"context"
	"sync"
)

// uiDispatcher hands subscriber deliveries to the tview event goroutine in
// the order they were dispatched. Dispatch never blocks, so it is safe to
// call from the event goroutine itself.
type uiDispatcher struct {
	queue func(func())

	mu      sync.Mutex
	pending []func()
	signal  chan struct{}
}

func newUIDispatcher(queue func(func())) *uiDispatcher {
	return &uiDispatcher{
		queue:  queue,
		signal: make(chan struct{}, 1),
	}
}

// Dispatch implements observable.Dispatcher.
func (d *uiDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	d.pending = append(d.pending, fn)
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// run forwards pending deliveries in batches until ctx is cancelled
func (d *uiDispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.signal:
			d.mu.Lock()
			batch := d.pending
			d.pending = nil
			d.mu.Unlock()

			if len(batch) == 0 {
				continue
			}
			d.queue(func() {
				for _, fn := range batch {
					fn()
				}
			})
		}
	}
}
