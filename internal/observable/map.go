package observable

// Map derives a field whose value is fn applied to every value of src.
// Releasing the returned subscription detaches it from src.
func Map[S, T any](src Observable[S], fn func(S) T) (Observable[T], *Subscription) {
	dst := NewField[T]()
	sub := src.Subscribe(func(v S) {
		dst.Set(fn(v))
	})
	return dst, sub
}
