// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package queues produces traces for a queue and a deque stored in a
// fixed-capacity circular array.
//
// The container keeps every physical slot (len(Cells) == Capacity) so that
// wrap-around is visible; Front and Count locate the elements and the Front
// and Rear labels mark the ends.
package queues

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/ring"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpEnqueue   = "ENQUEUE"
	OpDequeue   = "DEQUEUE"
	OpPeek      = "PEEK"
	OpPushFront = "PUSH_FRONT"
	OpPushBack  = "PUSH_BACK"
	OpPopFront  = "POP_FRONT"
	OpPopBack   = "POP_BACK"
)

// ErrCapacity is returned by New when the values do not fit.
var ErrCapacity = errors.New("values exceed queue capacity")

// New lays values out in a circular array of the given capacity, front at
// slot 0.
func New(values []int, capacity int) (*snapshot.ArrayState, error) {
	if capacity <= 0 || len(values) > capacity {
		return nil, fmt.Errorf("%w: %d values, capacity %d", ErrCapacity, len(values), capacity)
	}
	cells := make([]snapshot.Cell, capacity)
	ids := identity.AllocateN(len(values))
	for i := range cells {
		if i < len(values) {
			cells[i] = snapshot.Cell{ID: ids[i], Value: values[i]}
		} else {
			cells[i] = snapshot.Cell{Empty: true}
		}
	}
	return &snapshot.ArrayState{Cells: cells, Capacity: capacity, Count: len(values), Circular: true}, nil
}

// Enqueue adds value at the rear. Overflow when full.
func Enqueue(a *snapshot.ArrayState, value int) trace.Sequence {
	return run(a, "queue", func(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell]) {
		insert(rec, work, b, "queue", value, false)
	})
}

// Dequeue removes the front element. Underflow when empty.
func Dequeue(a *snapshot.ArrayState) trace.Sequence {
	return run(a, "queue", func(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell]) {
		extract(rec, work, b, "queue", false)
	})
}

// Peek reads the front element.
func Peek(a *snapshot.ArrayState) trace.Sequence {
	return run(a, "queue", func(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell]) {
		if b.IsEmpty() {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Underflow: queue is empty"))
			return
		}
		f := b.FrontIndex()
		rec.Emit(view(work, b, "Front is %d at slot %d", work.Cells[f].Value, f).
			Mark(snapshot.RoleFound, f).WithResult(work.Cells[f].Value).Done())
	})
}

// PushFront adds value before the front of a deque.
func PushFront(a *snapshot.ArrayState, value int) trace.Sequence {
	return run(a, "deque", func(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell]) {
		insert(rec, work, b, "deque", value, true)
	})
}

// PushBack adds value after the rear of a deque.
func PushBack(a *snapshot.ArrayState, value int) trace.Sequence {
	return run(a, "deque", func(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell]) {
		insert(rec, work, b, "deque", value, false)
	})
}

// PopFront removes the front element of a deque.
func PopFront(a *snapshot.ArrayState) trace.Sequence {
	return run(a, "deque", func(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell]) {
		extract(rec, work, b, "deque", false)
	})
}

// PopBack removes the rear element of a deque.
func PopBack(a *snapshot.ArrayState) trace.Sequence {
	return run(a, "deque", func(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell]) {
		extract(rec, work, b, "deque", true)
	})
}

func insert(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell], noun string, value int, front bool) {
	if b.IsFull() {
		rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Overflow: %s is full (capacity %d)", noun, b.Cap()))
		return
	}
	slot := b.Wrap(b.Len())
	end := "rear"
	if front {
		slot = b.Wrap(-1)
		end = "front"
	}
	if !rec.Emit(view(work, b, "Insert %d at the %s: slot %d", value, end, slot).Mark(snapshot.RoleWriting, slot)) {
		return
	}

	cell := snapshot.Cell{ID: identity.Allocate(), Value: value}
	if front {
		_ = b.PushFront(cell)
	} else {
		_ = b.PushBack(cell)
	}
	sync(work, b)
	rec.Emit(view(work, b, "Stored %d in slot %d; %d of %d slots used", value, slot, b.Len(), b.Cap()).
		Mark(snapshot.RoleHighlight, slot).Done())
}

func extract(rec *trace.Recorder, work *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell], noun string, back bool) {
	if b.IsEmpty() {
		rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Underflow: %s is empty", noun))
		return
	}
	slot := b.FrontIndex()
	end := "front"
	if back {
		slot = b.RearIndex()
		end = "rear"
	}
	value := work.Cells[slot].Value
	if !rec.Emit(view(work, b, "Read %d at the %s: slot %d", value, end, slot).Mark(snapshot.RoleReading, slot)) {
		return
	}

	if back {
		_, _ = b.PopBack()
	} else {
		_, _ = b.Pop()
	}
	work.Cells[slot] = snapshot.Cell{Empty: true}
	sync(work, b)
	rec.Emit(view(work, b, "Removed %d; %d of %d slots used", value, b.Len(), b.Cap()).
		Mark(snapshot.RoleWriting, slot).WithResult(value).Done())
}

// run clones a and rejects layouts that are not circular buffers.
func run(a *snapshot.ArrayState, noun string, body func(*trace.Recorder, *snapshot.ArrayState, *ring.Buffer[snapshot.Cell])) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		rec := trace.NewRecorder(yield)
		work := base.Clone()
		if !work.Circular || len(work.Cells) == 0 {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "A %s needs a circular array with positive capacity", noun))
			return
		}
		body(rec, work, ring.FromSlots(work.Cells, work.Front, work.Count))
	}
}

func sync(a *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell]) {
	a.Cells = b.Slots()
	a.Front = b.FrontIndex()
	a.Count = b.Len()
}

func view(a *snapshot.ArrayState, b *ring.Buffer[snapshot.Cell], format string, args ...any) snapshot.Step {
	s := snapshot.New(snapshot.OfArray(a), format, args...)
	if b.Len() > 0 {
		s = s.Label(b.FrontIndex(), "Front").Label(b.RearIndex(), "Rear")
	}
	return s
}
