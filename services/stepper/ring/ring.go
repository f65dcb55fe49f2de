// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ring provides a fixed-capacity circular buffer.
//
// The buffer backs two things: the queue and deque producers, which need
// the physical slot layout (front index, wrap-around) to draw the array,
// and the per-structure event history kept by the service, which uses the
// overwrite-oldest Push.
package ring

import "errors"

var (
	// ErrFull is returned by strict inserts on a full buffer.
	ErrFull = errors.New("ring buffer is full")

	// ErrEmpty is returned by removals on an empty buffer.
	ErrEmpty = errors.New("ring buffer is empty")
)

// Buffer is a fixed-size circular buffer.
//
// # Description
//
// Elements occupy count consecutive slots starting at front, wrapping at
// the end of the slot array. Push overwrites the oldest element when full;
// PushBack and PushFront refuse instead.
//
// # Thread Safety
//
// NOT safe for concurrent use; caller must synchronize.
type Buffer[T any] struct {
	data  []T
	front int // First element position
	count int // Current number of elements
}

// New creates a buffer with the given capacity. Non-positive capacities
// default to 16.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = 16
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// FromSlots adopts an existing slot layout. The buffer uses slots directly.
//
// # Inputs
//
//   - slots: Physical slots; len(slots) is the capacity.
//   - front: Physical index of the first element.
//   - count: Number of elements.
//
// # Outputs
//
//   - *Buffer[T]: Buffer over slots. front and count are clamped into range.
func FromSlots[T any](slots []T, front, count int) *Buffer[T] {
	b := &Buffer[T]{data: slots}
	if len(slots) == 0 {
		return b
	}
	b.front = ((front % len(slots)) + len(slots)) % len(slots)
	b.count = max(0, min(count, len(slots)))
	return b
}

// Wrap maps a logical offset from the front to a physical slot index.
func (b *Buffer[T]) Wrap(offset int) int {
	n := len(b.data)
	return ((b.front+offset)%n + n) % n
}

// FrontIndex is the physical slot of the oldest element.
func (b *Buffer[T]) FrontIndex() int { return b.front }

// RearIndex is the physical slot of the newest element, or the slot before
// the front when empty.
func (b *Buffer[T]) RearIndex() int { return b.Wrap(b.count - 1) }

// Push appends item, overwriting the oldest element when full.
func (b *Buffer[T]) Push(item T) {
	if len(b.data) == 0 {
		return
	}
	if b.count == len(b.data) {
		b.data[b.front] = item
		b.front = b.Wrap(1)
		return
	}
	b.data[b.Wrap(b.count)] = item
	b.count++
}

// PushBack appends item at the rear.
func (b *Buffer[T]) PushBack(item T) error {
	if b.IsFull() {
		return ErrFull
	}
	b.data[b.Wrap(b.count)] = item
	b.count++
	return nil
}

// PushFront prepends item before the front.
func (b *Buffer[T]) PushFront(item T) error {
	if b.IsFull() {
		return ErrFull
	}
	b.front = b.Wrap(-1)
	b.data[b.front] = item
	b.count++
	return nil
}

// Pop removes and returns the oldest item.
func (b *Buffer[T]) Pop() (T, error) {
	var zero T
	if b.count == 0 {
		return zero, ErrEmpty
	}
	item := b.data[b.front]
	b.data[b.front] = zero
	b.front = b.Wrap(1)
	b.count--
	return item, nil
}

// PopBack removes and returns the newest item.
func (b *Buffer[T]) PopBack() (T, error) {
	var zero T
	if b.count == 0 {
		return zero, ErrEmpty
	}
	idx := b.RearIndex()
	item := b.data[idx]
	b.data[idx] = zero
	b.count--
	return item, nil
}

// Peek returns the oldest item without removing it.
func (b *Buffer[T]) Peek() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.data[b.front], true
}

// PeekNewest returns the newest item without removing it.
func (b *Buffer[T]) PeekNewest() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.data[b.RearIndex()], true
}

// Slice returns all items from oldest to newest as a new slice.
func (b *Buffer[T]) Slice() []T {
	if b.count == 0 {
		return nil
	}
	out := make([]T, 0, b.count)
	for i := 0; i < b.count; i++ {
		out = append(out, b.data[b.Wrap(i)])
	}
	return out
}

// Last returns up to n items, newest first.
func (b *Buffer[T]) Last(n int) []T {
	if n <= 0 || b.count == 0 {
		return nil
	}
	n = min(n, b.count)
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.data[b.Wrap(b.count-1-i)]
	}
	return out
}

// Slots returns the physical slot array. It aliases the buffer.
func (b *Buffer[T]) Slots() []T { return b.data }

// Len returns the current number of elements.
func (b *Buffer[T]) Len() int { return b.count }

// Cap returns the maximum capacity.
func (b *Buffer[T]) Cap() int { return len(b.data) }

// IsFull returns true if the buffer is at capacity.
func (b *Buffer[T]) IsFull() bool { return b.count == len(b.data) }

// IsEmpty returns true if the buffer has no elements.
func (b *Buffer[T]) IsEmpty() bool { return b.count == 0 }

// Clear removes all elements.
func (b *Buffer[T]) Clear() {
	clear(b.data)
	b.front = 0
	b.count = 0
}
