package reactive

// Derived is a read-only cell whose value is computed from source streams.
// Closing it releases every source subscription.
type Derived[T any] struct {
	cell   *Cell[T]
	unsubs []func()
}

// Combine derives a value from the latest value of every source. The result
// is recomputed whenever any source emits and published only when equal
// reports a change. combine receives a fresh slice on each call.
func Combine[S, T any](sources []Observable[S], combine func([]S) T, equal func(a, b T) bool) *Derived[T] {
	latest := make([]S, len(sources))
	for i, src := range sources {
		latest[i] = src.Get()
	}

	d := &Derived[T]{cell: NewCell(combine(cloneSlice(latest)), equal)}

	// Subscriptions replay immediately; hold recomputation until all are in
	ready := false
	for i, src := range sources {
		unsub := src.Subscribe(func(v S) {
			latest[i] = v
			if ready {
				d.cell.Set(combine(cloneSlice(latest)))
			}
		})
		d.unsubs = append(d.unsubs, unsub)
	}
	ready = true
	d.cell.Set(combine(cloneSlice(latest)))

	return d
}

// Map derives a value from a single source.
func Map[S, T any](src Observable[S], fn func(S) T, equal func(a, b T) bool) *Derived[T] {
	return Combine([]Observable[S]{src}, func(v []S) T { return fn(v[0]) }, equal)
}

// Get returns the current derived value.
func (d *Derived[T]) Get() T {
	return d.cell.Get()
}

// Subscribe implements Observable.
func (d *Derived[T]) Subscribe(fn func(T)) func() {
	return d.cell.Subscribe(fn)
}

// Close unsubscribes from all sources and completes the derived cell.
func (d *Derived[T]) Close() {
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
	d.cell.Close()
}

// Closed reports whether Close has been called.
func (d *Derived[T]) Closed() bool {
	return d.cell.Closed()
}

func cloneSlice[S any](s []S) []S {
	out := make([]S, len(s))
	copy(out, s)
	return out
}
