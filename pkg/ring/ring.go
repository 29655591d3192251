// Package ring implements a bounded FIFO that drops its oldest entry when full.
package ring

// Buffer keeps the most recent Cap() values in insertion order.
type Buffer[T any] struct {
	items []T
	head  int // index of the oldest item
	size  int
}

// New creates a buffer holding at most capacity items. Capacity below 1 is treated as 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v, discarding the oldest item if the buffer is full.
func (b *Buffer[T]) Push(v T) {
	if b.size < len(b.items) {
		b.items[(b.head+b.size)%len(b.items)] = v
		b.size++
		return
	}
	b.items[b.head] = v
	b.head = (b.head + 1) % len(b.items)
}

// Items returns a copy of the buffered values, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := range out {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int { return b.size }

// Cap returns the maximum number of items.
func (b *Buffer[T]) Cap() int { return len(b.items) }
