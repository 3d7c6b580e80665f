package observable

import (
	"reflect"
	"sync"
	"testing"
)

func TestSubscribe_ReplaysLastValue(t *testing.T) {
	f := NewField[int]()
	f.Set(1)
	f.Set(2)

	var got []int
	sub := f.Subscribe(func(v int) { got = append(got, v) })
	defer sub.Release()

	f.Set(3)

	want := []int{2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSubscribe_EmptyFieldDeliversNothingUntilSet(t *testing.T) {
	f := NewField[string]()

	var got []string
	sub := f.Subscribe(func(v string) { got = append(got, v) })
	defer sub.Release()

	if len(got) != 0 {
		t.Fatalf("expected no replay on empty field, got %v", got)
	}

	f.Set("a")
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("got %v, want [a]", got)
	}
}

func TestNewFieldWith_HasValue(t *testing.T) {
	f := NewFieldWith(42)

	v, ok := f.Value()
	if !ok || v != 42 {
		t.Errorf("Value() = %d, %v; want 42, true", v, ok)
	}

	var got int
	f.Subscribe(func(v int) { got = v }).Release()
	if got != 42 {
		t.Errorf("replay = %d, want 42", got)
	}
}

func TestRelease_StopsDelivery(t *testing.T) {
	f := NewField[int]()

	var got []int
	sub := f.Subscribe(func(v int) { got = append(got, v) })
	f.Set(1)
	sub.Release()
	sub.Release() // idempotent
	f.Set(2)

	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("got %v, want [1]", got)
	}
	if n := f.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d after release, want 0", n)
	}
}

func TestRelease_NilSubscription(t *testing.T) {
	var sub *Subscription
	sub.Release()
}

func TestSet_ReentrantIsQueuedInOrder(t *testing.T) {
	f := NewField[int]()

	var first, second []int
	s1 := f.Subscribe(func(v int) {
		first = append(first, v)
		if v == 1 {
			f.Set(2)
		}
	})
	defer s1.Release()
	s2 := f.Subscribe(func(v int) { second = append(second, v) })
	defer s2.Release()

	f.Set(1)

	// The nested Set must not overtake the delivery of 1 to s2.
	if !reflect.DeepEqual(first, []int{1, 2}) {
		t.Errorf("first = %v, want [1 2]", first)
	}
	if !reflect.DeepEqual(second, []int{1, 2}) {
		t.Errorf("second = %v, want [1 2]", second)
	}
}

func TestSubscribe_FromCallbackNeverSeesOlderValue(t *testing.T) {
	f := NewField[int]()

	var late []int
	var lateSub *Subscription
	outer := f.Subscribe(func(v int) {
		if v == 1 {
			f.Set(2)
			lateSub = f.Subscribe(func(v int) { late = append(late, v) })
		}
	})
	defer outer.Release()

	f.Set(1)
	f.Set(3)
	lateSub.Release()

	// Joined while 2 was queued: sees 2 via replay, never 1, then 3.
	if !reflect.DeepEqual(late, []int{2, 3}) {
		t.Errorf("late = %v, want [2 3]", late)
	}
}

type queueDispatcher struct {
	mu      sync.Mutex
	pending []func()
}

func (q *queueDispatcher) Dispatch(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

func (q *queueDispatcher) run() {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func TestSubscribeOn_DeliversThroughDispatcher(t *testing.T) {
	f := NewField[int]()
	d := &queueDispatcher{}

	var got []int
	sub := f.SubscribeOn(d, func(v int) { got = append(got, v) })
	defer sub.Release()

	f.Set(1)
	f.Set(2)
	if len(got) != 0 {
		t.Fatalf("delivered before dispatcher ran: %v", got)
	}

	d.run()
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("got %v, want [1 2]", got)
	}
}

func TestSubscribeOn_ReleaseDropsQueuedDeliveries(t *testing.T) {
	f := NewField[int]()
	d := &queueDispatcher{}

	var got []int
	sub := f.SubscribeOn(d, func(v int) { got = append(got, v) })
	f.Set(1)
	sub.Release()
	d.run()

	if len(got) != 0 {
		t.Errorf("released subscriber still received %v", got)
	}
}

func TestSet_ConcurrentPublishersKeepOrderPerSubscriber(t *testing.T) {
	f := NewField[int]()

	var mu sync.Mutex
	var got []int
	sub := f.Subscribe(func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	defer sub.Release()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.Set(base*1000 + j)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 800 {
		t.Fatalf("received %d values, want 800", len(got))
	}

	// Values from one publisher must arrive in the order it set them.
	last := make(map[int]int)
	for _, v := range got {
		base, j := v/1000, v%1000
		if prev, ok := last[base]; ok && j <= prev {
			t.Fatalf("publisher %d out of order: %d after %d", base, j, prev)
		}
		last[base] = j
	}

	final, _ := f.Value()
	if got[len(got)-1] != final {
		t.Errorf("last delivered %d, but Value() = %d", got[len(got)-1], final)
	}
}

func TestScope_CloseReleasesAll(t *testing.T) {
	a := NewField[int]()
	b := NewField[string]()
	sc := NewScope()

	var ints []int
	var strs []string
	sc.Add(
		a.Subscribe(func(v int) { ints = append(ints, v) }),
		b.Subscribe(func(v string) { strs = append(strs, v) }),
	)

	var deferred bool
	sc.Defer(func() { deferred = true })

	a.Set(1)
	b.Set("x")
	sc.Close()
	sc.Close()
	a.Set(2)
	b.Set("y")

	if !reflect.DeepEqual(ints, []int{1}) || !reflect.DeepEqual(strs, []string{"x"}) {
		t.Errorf("deliveries after Close: ints=%v strs=%v", ints, strs)
	}
	if !deferred {
		t.Error("deferred func did not run on Close")
	}
	if !sc.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestScope_AddAfterCloseReleasesImmediately(t *testing.T) {
	f := NewField[int]()
	sc := NewScope()
	sc.Close()

	var got []int
	sc.Add(f.Subscribe(func(v int) { got = append(got, v) }))
	f.Set(7)

	if f.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", f.Subscribers())
	}
	if len(got) != 0 {
		t.Errorf("got %v after Close, want nothing", got)
	}
}

func TestMap_TransformsEveryValue(t *testing.T) {
	src := NewField[int]()
	src.Set(5)

	doubled, sub := Map[int, int](src, func(v int) int { return v * 2 })

	var got []int
	out := doubled.Subscribe(func(v int) { got = append(got, v) })
	defer out.Release()

	src.Set(6)
	sub.Release()
	src.Set(7)

	if !reflect.DeepEqual(got, []int{10, 12}) {
		t.Errorf("got %v, want [10 12]", got)
	}
}

func TestEvent_HandledOnce(t *testing.T) {
	e := NewEvent("album:1")

	if v, ok := e.ContentIfNotHandled(); !ok || v != "album:1" {
		t.Fatalf("first ContentIfNotHandled() = %q, %v", v, ok)
	}
	if _, ok := e.ContentIfNotHandled(); ok {
		t.Error("second ContentIfNotHandled() returned content")
	}
	if e.Peek() != "album:1" {
		t.Errorf("Peek() = %q", e.Peek())
	}
}
