package exchange

import "sync"

// Exchange hands the most recent snapshot from one producer goroutine to one
// consumer goroutine. Publishes are coalesced: a value that is overwritten
// before it is consumed is dropped, never queued.
type Exchange[T any] struct {
	mu sync.Mutex

	pending    T
	hasPending bool

	delivered    T
	hasDelivered bool

	spare    T
	hasSpare bool

	clone func(T) T
	stats Stats
}

// Stats counts exchange traffic since creation.
type Stats struct {
	Published uint64
	Consumed  uint64
	Coalesced uint64
	Cleared   uint64
}

type Option[T any] func(*Exchange[T])

// WithClone installs a copy strategy applied to every published value, so the
// producer may keep mutating its own containers after Publish returns.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(e *Exchange[T]) {
		e.clone = clone
	}
}

func New[T any](opts ...Option[T]) *Exchange[T] {
	e := &Exchange[T]{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Publish makes v the pending snapshot, replacing any unconsumed one.
func (e *Exchange[T]) Publish(v T) {
	if e.clone != nil {
		v = e.clone(v)
	}

	e.mu.Lock()
	if e.hasPending {
		e.stats.Coalesced++
	}
	e.pending = v
	e.hasPending = true
	e.stats.Published++
	e.mu.Unlock()
}

// PublishOptional publishes v when ok is set and clears the exchange otherwise.
func (e *Exchange[T]) PublishOptional(v T, ok bool) {
	if !ok {
		e.Clear()
		return
	}
	e.Publish(v)
}

// Clear drops every held value, signalling that there is nothing to show.
func (e *Exchange[T]) Clear() {
	var zero T

	e.mu.Lock()
	e.pending, e.hasPending = zero, false
	e.delivered, e.hasDelivered = zero, false
	e.spare, e.hasSpare = zero, false
	e.stats.Cleared++
	e.mu.Unlock()
}

// ConsumeLatest returns the newest published snapshot exactly once. A second
// call without an intervening Publish reports false.
func (e *Exchange[T]) ConsumeLatest() (T, bool) {
	v, ok, _ := e.ConsumeLatestGen()
	return v, ok
}

// ConsumeLatestGen is ConsumeLatest that also returns the Clear count observed
// under the same lock, so a consumer can tell a clear apart from an idle frame
// without racing a Clear followed by a Publish.
func (e *Exchange[T]) ConsumeLatestGen() (T, bool, uint64) {
	var zero T

	e.mu.Lock()
	defer e.mu.Unlock()

	gen := e.stats.Cleared
	if e.hasPending {
		e.delivered, e.hasDelivered = e.pending, true
		e.pending, e.hasPending = zero, false
	}
	if !e.hasDelivered {
		return zero, false, gen
	}

	v := e.delivered
	e.delivered, e.hasDelivered = zero, false
	e.stats.Consumed++
	return v, true, gen
}

// Recycle hands a consumed snapshot back so the producer can reuse its storage.
// Only the most recent recycled value is kept.
func (e *Exchange[T]) Recycle(v T) {
	e.mu.Lock()
	e.spare, e.hasSpare = v, true
	e.mu.Unlock()
}

// Spare takes the recycled snapshot, if any.
func (e *Exchange[T]) Spare() (T, bool) {
	var zero T

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasSpare {
		return zero, false
	}
	v := e.spare
	e.spare, e.hasSpare = zero, false
	return v, true
}

// Pending reports whether an unconsumed snapshot is waiting.
func (e *Exchange[T]) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasPending
}

func (e *Exchange[T]) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
