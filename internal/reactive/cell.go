package reactive

// Observable is a readable value stream with last-value replay.
type Observable[T any] interface {
	// Get returns the current value.
	Get() T
	// Subscribe calls fn with the current value immediately and again on
	// every change. The returned function unsubscribes; it is idempotent.
	Subscribe(fn func(T)) (unsubscribe func())
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Cell is a mutable observable value.
//
// A Cell is not safe for concurrent use; it belongs to the loop goroutine.
type Cell[T any] struct {
	value   T
	equal   func(a, b T) bool
	subs    []subscriber[T]
	nextID  int
	version uint64
	closed  bool
}

// NewCell creates a cell holding initial. equal decides whether Set is a
// no-op; nil means every Set notifies.
func NewCell[T any](initial T, equal func(a, b T) bool) *Cell[T] {
	return &Cell[T]{value: initial, equal: equal}
}

// NewValueCell creates a cell for a comparable type that suppresses
// notifications when the value does not change.
func NewValueCell[T comparable](initial T) *Cell[T] {
	return NewCell(initial, func(a, b T) bool { return a == b })
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	return c.value
}

// Set stores v and notifies subscribers unless v equals the current value
// or the cell is closed.
func (c *Cell[T]) Set(v T) {
	if c.closed {
		return
	}
	if c.equal != nil && c.equal(c.value, v) {
		return
	}
	c.value = v
	c.version++
	c.notify()
}

// notify delivers the current value to a snapshot of the subscribers. If a
// callback sets the cell again, the nested Set already delivered the newer
// value to everyone, so the outer delivery stops.
func (c *Cell[T]) notify() {
	version := c.version
	value := c.value
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)

	for _, s := range subs {
		if c.closed || c.version != version {
			return
		}
		if !c.subscribed(s.id) {
			continue
		}
		s.fn(value)
	}
}

func (c *Cell[T]) subscribed(id int) bool {
	for _, s := range c.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

// Subscribe registers fn and replays the current value to it. Subscribing
// to a closed cell replays the final value and registers nothing.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	if c.closed {
		fn(c.value)
		return func() {}
	}

	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})
	fn(c.value)

	return func() { c.unsubscribe(id) }
}

func (c *Cell[T]) unsubscribe(id int) {
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// Close completes the cell: subscribers are dropped and later Sets are
// ignored. The last value remains readable.
func (c *Cell[T]) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.subs = nil
}

// Closed reports whether Close has been called.
func (c *Cell[T]) Closed() bool {
	return c.closed
}

// Subscribers returns the number of live subscribers.
func (c *Cell[T]) Subscribers() int {
	return len(c.subs)
}
