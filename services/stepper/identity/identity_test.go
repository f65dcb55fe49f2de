// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_String(t *testing.T) {
	tests := []struct {
		name     string
		id       ID
		expected string
	}{
		{"none", None, "nil"},
		{"one", ID(1), "#1"},
		{"large", ID(4096), "#4096"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.id.String())
		})
	}
}

func TestAllocator_Monotonic(t *testing.T) {
	a := NewAllocator()
	assert.Equal(t, None, a.Last())

	first := a.Allocate()
	second := a.Allocate()
	assert.Equal(t, ID(1), first)
	assert.Equal(t, ID(2), second)
	assert.False(t, first.IsNone())
	assert.Equal(t, second, a.Last())
}

func TestAllocator_AllocateN(t *testing.T) {
	a := NewAllocator()
	a.Allocate()

	ids := a.AllocateN(3)
	require.Len(t, ids, 3)
	assert.Equal(t, []ID{2, 3, 4}, ids)
	assert.Nil(t, a.AllocateN(0))
	assert.Equal(t, ID(5), a.Allocate())
}

func TestAllocator_ConcurrentUnique(t *testing.T) {
	a := NewAllocator()
	const workers = 8
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[ID]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]ID, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, a.Allocate())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	_, hasNone := seen[None]
	assert.False(t, hasNone)
}

func TestProcessAllocator_NeverRepeats(t *testing.T) {
	a := Allocate()
	batch := AllocateN(4)
	b := Allocate()

	require.Len(t, batch, 4)
	assert.Less(t, uint64(a), uint64(batch[0]))
	assert.Less(t, uint64(batch[3]), uint64(b))
}

func TestAllocator_Observe(t *testing.T) {
	a := NewAllocator()
	a.Observe(ID(40))
	assert.Equal(t, ID(41), a.Allocate())

	a.Observe(ID(7))
	assert.Equal(t, ID(42), a.Allocate(), "observing a lower id does not rewind")
	assert.Equal(t, []ID{43, 44}, a.AllocateN(2))
}

func TestAllocator_ObserveConcurrent(t *testing.T) {
	a := NewAllocator()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			a.Observe(ID(n * 10))
			a.Allocate()
		}(i)
	}
	wg.Wait()
	require.GreaterOrEqual(t, uint64(a.Last()), uint64(500))
}

func TestMax(t *testing.T) {
	assert.Equal(t, None, Max(nil))
	assert.Equal(t, ID(9), Max([]ID{3, 9, 1}))
}
