// Package snapshot implements lock-free copy-on-write containers.
// A container holds a single atomically swappable reference to an
// immutable slice. Writers copy the current slice, extend the copy and
// publish the new reference with a compare-and-swap; readers load the
// current reference and never block. The atomic pointer operations
// provide the acquire/release ordering that makes the freshly built
// slice visible to any goroutine observing the new reference.
package snapshot

import "sync/atomic"

// Buffer is an unbounded copy-on-write container of T.
type Buffer[T any] struct {
	items atomic.Pointer[[]T]
}

func NewBuffer[T any]() *Buffer[T] {
	b := &Buffer[T]{}
	b.items.Store(&[]T{})
	return b
}

// Append publishes a new snapshot containing the current items plus item.
// Concurrent appenders retry on a lost compare-and-swap, so no append is
// ever dropped. Readers holding the prior reference keep seeing a
// consistent, unmodified slice.
func (b *Buffer[T]) Append(item T) {
	for {
		cur := b.items.Load()
		next := make([]T, len(*cur)+1)
		copy(next, *cur)
		next[len(*cur)] = item
		if b.items.CompareAndSwap(cur, &next) {
			return
		}
	}
}

// Drain atomically replaces the current snapshot with an empty one and
// returns the prior items for exclusive processing. An append racing
// with the swap lands in the post-swap snapshot and is picked up by a
// later drain.
func (b *Buffer[T]) Drain() []T {
	return *b.items.Swap(&[]T{})
}

// Snapshot returns the current items without blocking. The returned
// slice is immutable.
func (b *Buffer[T]) Snapshot() []T {
	return *b.items.Load()
}

func (b *Buffer[T]) Len() int {
	return len(*b.items.Load())
}

// Log is a bounded copy-on-write container of T. Appending beyond the
// capacity evicts the oldest entry.
type Log[T any] struct {
	limit int
	items atomic.Pointer[[]T]
}

func NewLog[T any](limit int) *Log[T] {
	l := &Log[T]{limit: limit}
	l.items.Store(&[]T{})
	return l
}

func (l *Log[T]) Append(item T) {
	for {
		cur := l.items.Load()
		next := make([]T, len(*cur)+1)
		copy(next, *cur)
		next[len(*cur)] = item
		if len(next) > l.limit {
			next = next[1:]
		}
		if l.items.CompareAndSwap(cur, &next) {
			return
		}
	}
}

func (l *Log[T]) Snapshot() []T {
	return *l.items.Load()
}

func (l *Log[T]) Len() int {
	return len(*l.items.Load())
}
