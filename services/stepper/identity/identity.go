// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity issues stable identifiers for logical elements.
//
// An ID names one array cell, list node, tree node, graph vertex or edge for
// as long as that element exists. Consumers correlate "the same element"
// across snapshots purely by ID, never by position or value.
//
// # Invariants
//
//   - IDs are never reused within the lifetime of an Allocator.
//   - The zero ID (None) is never allocated and means "no element".
//   - IDs loaded from storage are passed to Observe so that later
//     allocations never collide with them.
//
// # Thread Safety
//
// Allocator is safe for concurrent use.
package identity

import (
	"strconv"
	"sync/atomic"
)

// ID is an opaque, process-unique element identifier.
type ID uint64

// None is the zero ID. It marks an absent link (nil successor, empty child).
const None ID = 0

// IsNone reports whether the ID is the absent marker.
func (id ID) IsNone() bool {
	return id == None
}

// String renders the ID as "#n", or "nil" for None.
func (id ID) String() string {
	if id == None {
		return "nil"
	}
	return "#" + strconv.FormatUint(uint64(id), 10)
}

// Allocator hands out monotonically increasing IDs.
//
// The zero value is ready to use.
type Allocator struct {
	last atomic.Uint64
}

// NewAllocator returns a fresh allocator whose first ID is #1.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocate returns an ID distinct from every ID previously returned by a.
func (a *Allocator) Allocate() ID {
	return ID(a.last.Add(1))
}

// AllocateN returns n consecutive fresh IDs. n <= 0 returns nil.
func (a *Allocator) AllocateN(n int) []ID {
	if n <= 0 {
		return nil
	}
	end := a.last.Add(uint64(n))
	ids := make([]ID, n)
	for i := range ids {
		ids[i] = ID(end - uint64(n) + uint64(i) + 1)
	}
	return ids
}

// Observe raises the allocator so that every later ID is greater than id.
// Observing an ID at or below Last is a no-op.
func (a *Allocator) Observe(id ID) {
	for {
		cur := a.last.Load()
		if uint64(id) <= cur || a.last.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

// Last returns the most recently allocated ID, or None if nothing was allocated.
func (a *Allocator) Last() ID {
	return ID(a.last.Load())
}

var process Allocator

// Allocate returns a fresh ID from the process-wide allocator.
func Allocate() ID {
	return process.Allocate()
}

// AllocateN returns n fresh IDs from the process-wide allocator.
func AllocateN(n int) []ID {
	return process.AllocateN(n)
}

// Observe reserves every ID up to id in the process-wide allocator.
func Observe(id ID) {
	process.Observe(id)
}

// Max returns the largest of ids, or None for an empty slice.
func Max(ids []ID) ID {
	var m ID
	for _, id := range ids {
		m = max(m, id)
	}
	return m
}
