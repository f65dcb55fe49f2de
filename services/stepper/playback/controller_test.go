// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// fakeScheduler records scheduled calls and runs them on demand.
type fakeScheduler struct {
	mu      sync.Mutex
	pending []*fakeTimer
	delays  []time.Duration
}

type fakeTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: fn}
	s.pending = append(s.pending, t)
	s.delays = append(s.delays, d)
	return t
}

// fire runs the oldest live timer. It reports false when none is pending.
func (s *fakeScheduler) fire() bool {
	s.mu.Lock()
	var next *fakeTimer
	for len(s.pending) > 0 {
		t := s.pending[0]
		s.pending = s.pending[1:]
		if !t.stopped {
			next = t
			break
		}
	}
	s.mu.Unlock()
	if next == nil {
		return false
	}
	next.fired = true
	next.fn()
	return true
}

// fireStale runs every scheduled callback, stopped or not, to simulate
// ticks that were already in flight.
func (s *fakeScheduler) fireStale() {
	s.mu.Lock()
	all := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, t := range all {
		t.fn()
	}
}

func (s *fakeScheduler) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

type recorder struct {
	mu      sync.Mutex
	commits []snapshot.Container
	err     error
}

func (r *recorder) commit(c snapshot.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.commits = append(r.commits, c)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commits)
}

// sample returns an n-step trace over arrays [0], [1], ..., [n-1].
func sample(t *testing.T, n int) trace.Trace {
	t.Helper()
	seq := func(yield func(snapshot.Step) bool) {
		for i := range n {
			s := snapshot.New(snapshot.OfArray(snapshot.NewArray([]int{i}, 0)), "step %d", i)
			if i == n-1 {
				s = s.Done()
			}
			if !yield(s) {
				return
			}
		}
	}
	tr, err := trace.Materialize("array", "TEST", seq)
	require.NoError(t, err)
	return tr
}

func newController(t *testing.T) (*Controller, *fakeScheduler, *recorder) {
	t.Helper()
	sched := &fakeScheduler{}
	rec := &recorder{}
	c, err := NewController(Config{}, sched, rec.commit, nil)
	require.NoError(t, err)
	return c, sched, rec
}

func TestNewController_Config(t *testing.T) {
	c, err := NewController(Config{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, c.Period())
	assert.Equal(t, PhaseIdle, c.Phase())

	_, err = NewController(Config{Period: 50 * time.Millisecond}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewController(Config{MinPeriod: 3 * time.Second, MaxPeriod: time.Second, Period: 2 * time.Second}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestController_PlayToFinish(t *testing.T) {
	c, sched, rec := newController(t)
	require.NoError(t, c.Load(sample(t, 4)))
	assert.Equal(t, PhaseLoaded, c.Phase())
	assert.Equal(t, 0, c.Cursor())
	assert.Equal(t, 4, c.Len())

	require.NoError(t, c.Play())
	assert.Equal(t, PhaseRunning, c.Phase())

	for want := 1; want <= 3; want++ {
		require.True(t, sched.fire())
		assert.Equal(t, want, c.Cursor())
		assert.Equal(t, PhaseRunning, c.Phase(), "the last step is shown for a full period")
		assert.Equal(t, 0, rec.count())
	}

	require.True(t, sched.fire())
	assert.Equal(t, 3, c.Cursor())
	assert.Equal(t, PhaseFinished, c.Phase())
	require.Equal(t, 1, rec.count())
	assert.Equal(t, []int{3}, rec.commits[0].Array.Values())

	assert.False(t, sched.fire(), "no tick after finishing")
	assert.ErrorIs(t, c.Play(), ErrFinished)
	assert.ErrorIs(t, c.Commit(), ErrAlreadyCommitted)
	assert.Equal(t, 1, rec.count())
}

func TestController_SingleStepTrace(t *testing.T) {
	c, sched, rec := newController(t)
	require.NoError(t, c.Load(sample(t, 1)))
	require.NoError(t, c.Play())
	require.True(t, sched.fire())
	assert.Equal(t, PhaseFinished, c.Phase())
	assert.Equal(t, 1, rec.count())
}

func TestController_PauseStopsTicks(t *testing.T) {
	c, sched, rec := newController(t)
	require.NoError(t, c.Load(sample(t, 5)))
	require.NoError(t, c.Play())
	require.True(t, sched.fire())
	require.NoError(t, c.Pause())
	assert.Equal(t, PhasePaused, c.Phase())
	assert.Equal(t, 0, sched.live())

	sched.fireStale()
	assert.Equal(t, 1, c.Cursor())
	assert.Equal(t, PhasePaused, c.Phase())

	require.NoError(t, c.Play())
	require.True(t, sched.fire())
	assert.Equal(t, 2, c.Cursor())
	assert.Equal(t, 0, rec.count())
}

func TestController_OneTickInFlight(t *testing.T) {
	c, sched, _ := newController(t)
	require.NoError(t, c.Load(sample(t, 10)))
	require.NoError(t, c.Play())
	require.NoError(t, c.Play())
	require.NoError(t, c.SetSpeed(200*time.Millisecond))
	require.NoError(t, c.SetSpeed(300*time.Millisecond))
	assert.Equal(t, 1, sched.live())

	sched.fireStale()
	assert.Equal(t, 1, c.Cursor(), "only the live tick advances")
	assert.Equal(t, 1, sched.live())
}

func TestController_SeekClampsAndKeepsPhase(t *testing.T) {
	c, sched, rec := newController(t)
	_, err := c.Seek(1)
	assert.ErrorIs(t, err, ErrNoTrace)

	require.NoError(t, c.Load(sample(t, 5)))
	tests := []struct {
		to, want int
	}{
		{3, 3},
		{-4, 0},
		{99, 4},
		{2, 2},
	}
	for _, tt := range tests {
		got, err := c.Seek(tt.to)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, PhaseLoaded, c.Phase())
	}

	got, err := c.Step(-1)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	require.NoError(t, c.Play())
	_, err = c.Seek(4)
	require.NoError(t, err)
	assert.Equal(t, PhaseRunning, c.Phase())
	assert.Equal(t, 0, rec.count(), "seeking to the end does not commit")

	require.True(t, sched.fire())
	assert.Equal(t, PhaseFinished, c.Phase())
	assert.Equal(t, 1, rec.count())
}

func TestController_SetSpeed(t *testing.T) {
	c, sched, _ := newController(t)
	require.NoError(t, c.Load(sample(t, 3)))

	assert.ErrorIs(t, c.SetSpeed(99*time.Millisecond), ErrPeriodOutOfRange)
	assert.ErrorIs(t, c.SetSpeed(2001*time.Millisecond), ErrPeriodOutOfRange)
	require.NoError(t, c.SetSpeed(100*time.Millisecond))
	require.NoError(t, c.SetSpeed(2*time.Second))
	assert.Equal(t, 2*time.Second, c.Period())

	require.NoError(t, c.Play())
	require.NoError(t, c.SetSpeed(250*time.Millisecond))
	sched.mu.Lock()
	last := sched.delays[len(sched.delays)-1]
	sched.mu.Unlock()
	assert.Equal(t, 250*time.Millisecond, last)
}

func TestController_Cancel(t *testing.T) {
	c, sched, rec := newController(t)
	assert.False(t, c.Cancel())

	require.NoError(t, c.Load(sample(t, 4)))
	require.NoError(t, c.Play())
	require.True(t, sched.fire())
	assert.True(t, c.Cancel())
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, 0, c.Len())

	sched.fireStale()
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, 0, rec.count(), "cancelled playback never commits")

	_, ok := c.CurrentSnapshot()
	assert.False(t, ok)
	assert.ErrorIs(t, c.Play(), ErrNoTrace)
	assert.ErrorIs(t, c.Pause(), ErrNoTrace)
	assert.ErrorIs(t, c.Commit(), ErrNoTrace)
}

func TestController_LoadReplacesSession(t *testing.T) {
	c, sched, rec := newController(t)
	require.NoError(t, c.Load(sample(t, 3)))
	require.NoError(t, c.Play())

	require.NoError(t, c.Load(sample(t, 2)))
	assert.Equal(t, PhaseLoaded, c.Phase())
	sched.fireStale()
	assert.Equal(t, 0, c.Cursor())
	assert.Equal(t, 0, rec.count())

	assert.Error(t, c.Load(trace.Trace{}))
}

func TestController_ExplicitCommit(t *testing.T) {
	c, sched, rec := newController(t)
	require.NoError(t, c.Load(sample(t, 5)))
	require.NoError(t, c.Play())
	require.True(t, sched.fire())

	require.NoError(t, c.Commit())
	assert.Equal(t, PhaseFinished, c.Phase())
	assert.Equal(t, 4, c.Cursor())
	require.Equal(t, 1, rec.count())
	assert.Equal(t, []int{4}, rec.commits[0].Array.Values())

	sched.fireStale()
	assert.Equal(t, 1, rec.count())
	assert.ErrorIs(t, c.Commit(), ErrAlreadyCommitted)

	// Scrubbing after the commit is allowed.
	got, err := c.Seek(0)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.Equal(t, PhaseFinished, c.Phase())
}

func TestController_CommitFailureCanRetry(t *testing.T) {
	c, _, rec := newController(t)
	rec.err = errors.New("disk full")
	require.NoError(t, c.Load(sample(t, 2)))

	err := c.Commit()
	require.Error(t, err)
	st := c.Status()
	assert.False(t, st.Committed)
	assert.Equal(t, "disk full", st.Error)

	rec.err = nil
	require.NoError(t, c.Commit())
	assert.True(t, c.Status().Committed)
	assert.Equal(t, 1, rec.count())
}

func TestController_Subscribe(t *testing.T) {
	c, sched, _ := newController(t)
	updates, stop := c.Subscribe(16)

	require.NoError(t, c.Load(sample(t, 2)))
	require.NoError(t, c.Play())
	require.True(t, sched.fire())
	require.True(t, sched.fire())

	var phases []Phase
	for range 4 {
		select {
		case st := <-updates:
			phases = append(phases, st.Phase)
		case <-time.After(time.Second):
			t.Fatal("missing update")
		}
	}
	assert.Equal(t, []Phase{PhaseLoaded, PhaseRunning, PhaseRunning, PhaseFinished}, phases)

	stop()
	stop()
	_, open := <-updates
	assert.False(t, open)
}

func TestController_StatusCarriesStep(t *testing.T) {
	c, _, _ := newController(t)
	assert.Nil(t, c.Status().Step)

	require.NoError(t, c.Load(sample(t, 3)))
	_, err := c.Seek(2)
	require.NoError(t, err)
	st := c.Status()
	require.NotNil(t, st.Step)
	assert.Equal(t, "step 2", st.Step.Message)
	assert.Equal(t, "array", st.Family)
	assert.Equal(t, 3, st.Len)

	step, ok := c.CurrentSnapshot()
	require.True(t, ok)
	assert.Equal(t, "step 2", step.Message)
}

func TestPhase_String(t *testing.T) {
	for p, want := range map[Phase]string{
		PhaseIdle: "idle", PhaseLoaded: "loaded", PhaseRunning: "running",
		PhasePaused: "paused", PhaseFinished: "finished", Phase(42): "unknown",
	} {
		assert.Equal(t, want, p.String())
	}
}

func TestController_WithCommitOverridesPerLoad(t *testing.T) {
	c, _, rec := newController(t)
	var own []snapshot.Container
	require.NoError(t, c.Load(sample(t, 3), WithCommit(func(final snapshot.Container) error {
		own = append(own, final)
		return nil
	})))
	require.NoError(t, c.Commit())
	require.Len(t, own, 1)
	assert.Equal(t, []int{2}, own[0].Array.Values())
	assert.Equal(t, 0, rec.count())

	require.NoError(t, c.Load(sample(t, 2)))
	require.NoError(t, c.Commit())
	assert.Equal(t, 1, rec.count(), "the next load falls back to the controller's commit")
	assert.Len(t, own, 1)
}

func TestController_WaitCommit(t *testing.T) {
	c, _, _ := newController(t)
	require.NoError(t, c.WaitCommit(context.Background()), "nothing running")

	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, c.Load(sample(t, 2), WithCommit(func(snapshot.Container) error {
		close(entered)
		<-release
		return nil
	})))

	committed := make(chan error, 1)
	go func() { committed <- c.Commit() }()
	<-entered

	assert.True(t, c.Cancel(), "cancel does not wait for a running commit")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.WaitCommit(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, c.WaitCommit(context.Background()))
	select {
	case err := <-committed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("commit did not return")
	}
}
