// Package queue provides a small thread-safe FIFO used for staging work from
// producer threads toward a single consumer on the engine thread.
package queue

import "sync"

// Queue is a multi-producer, single-consumer FIFO. A single mutex protects an
// internal slice; drains swap the slice out under the lock and process items
// outside it, so callbacks may safely re-enqueue.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty Queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue appends an item. Safe to call from any goroutine, including from
// inside a drain callback.
//
// Parameters:
//   - item: the item to append
func (q *Queue[T]) Enqueue(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// Drain removes all queued items and invokes fn on each, in insertion order.
// The internal buffer is swapped out under the lock and processed outside it,
// keeping the critical section minimal. Items enqueued during processing stay
// queued for the next drain.
//
// Parameters:
//   - fn: invoked once per drained item
//
// Returns:
//   - int: the number of items processed
func (q *Queue[T]) Drain(fn func(T)) int {
	q.mu.Lock()
	batch := q.items
	q.items = nil
	q.mu.Unlock()

	for _, item := range batch {
		fn(item)
	}
	return len(batch)
}

// DrainIf removes and processes only the items matching pred, preserving the
// insertion order of the items that stay. Items enqueued while fn runs are
// appended after the preserved ones.
//
// Parameters:
//   - pred: selects which items to drain
//   - fn: invoked once per drained item
//
// Returns:
//   - int: the number of items processed
func (q *Queue[T]) DrainIf(pred func(T) bool, fn func(T)) int {
	q.mu.Lock()
	var matched, kept []T
	for _, item := range q.items {
		if pred(item) {
			matched = append(matched, item)
		} else {
			kept = append(kept, item)
		}
	}
	q.items = kept
	q.mu.Unlock()

	for _, item := range matched {
		fn(item)
	}
	return len(matched)
}

// Clear discards all queued items.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// IsEmpty reports whether the queue currently holds no items.
func (q *Queue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the current number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
