// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stepper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
	"github.com/AleutianAI/AlgoTrace/services/stepper/playback"
	"github.com/AleutianAI/AlgoTrace/services/stepper/store"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// manualScheduler queues ticks until the test fires them.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *manualScheduler) AfterFunc(_ time.Duration, fn func()) playback.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{fn: fn}
	s.pending = append(s.pending, t)
	return t
}

// drain fires live ticks until none are left.
func (s *manualScheduler) drain() {
	for {
		s.mu.Lock()
		var next *manualTimer
		for len(s.pending) > 0 && next == nil {
			t := s.pending[0]
			s.pending = s.pending[1:]
			t.mu.Lock()
			if !t.stopped {
				t.stopped = true
				next = t
			}
			t.mu.Unlock()
		}
		s.mu.Unlock()
		if next == nil {
			return
		}
		next.fn()
	}
}

func newTestService(t *testing.T, mutate ...func(*ServiceConfig)) (*Service, *manualScheduler) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sched := &manualScheduler{}
	cfg := DefaultServiceConfig()
	cfg.Scheduler = sched
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := NewService(engine.New(), st, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, sched
}

func createStack(t *testing.T, svc *Service, name string, values ...int) {
	t.Helper()
	_, err := svc.CreateStructure(context.Background(), name, engine.Spec{
		Family:   engine.FamilyStack,
		Values:   values,
		Capacity: 4,
	})
	require.NoError(t, err)
}

func stackValues(t *testing.T, svc *Service, name string) []int {
	t.Helper()
	rec, err := svc.store.Get(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, rec.Container.Array)
	return rec.Container.Array.Values()
}

func eventKinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil, nil, ServiceConfig{}, nil)
	assert.Error(t, err)

	st, err := store.OpenInMemory()
	require.NoError(t, err)
	defer st.Close()

	_, err = NewService(engine.New(), st, ServiceConfig{Playback: playback.Config{Period: time.Millisecond}}, nil)
	assert.ErrorIs(t, err, playback.ErrInvalidConfig)
}

func TestService_LaunchAndCommit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1, 2)

	launch, err := svc.Launch(ctx, "s", "PUSH", engine.Params{Value: engine.Int(3)}, false)
	require.NoError(t, err)
	assert.NotEmpty(t, launch.TraceID)
	assert.Equal(t, 2, launch.Len)
	assert.Equal(t, "completed", launch.Outcome)

	st, err := svc.Status("s")
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseLoaded, st.Phase)
	assert.Equal(t, []int{1, 2}, stackValues(t, svc, "s"), "nothing is stored before commit")

	st, err = svc.Control(ctx, "s", ControlRequest{Action: ActionCommit})
	require.NoError(t, err)
	assert.True(t, st.Committed)
	assert.Equal(t, playback.PhaseFinished, st.Phase)
	assert.Equal(t, []int{1, 2, 3}, stackValues(t, svc, "s"))

	history, err := svc.History(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "PUSH", history[0].Op)
	assert.Equal(t, "value=3", history[0].Params)
	assert.Equal(t, 2, history[0].Version)

	assert.Equal(t, []EventKind{EventCreated, EventLaunched, EventCommitted}, eventKinds(svc.Events("s")))
}

func TestService_AutoplayCommitsAtEnd(t *testing.T) {
	svc, sched := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1)

	_, err := svc.Launch(ctx, "s", "PUSH", engine.Params{Value: engine.Int(9)}, true)
	require.NoError(t, err)
	st, _ := svc.Status("s")
	assert.Equal(t, playback.PhaseRunning, st.Phase)

	sched.drain()

	st, _ = svc.Status("s")
	assert.Equal(t, playback.PhaseFinished, st.Phase)
	assert.Equal(t, []int{1, 9}, stackValues(t, svc, "s"))
}

func TestService_LaunchCancelsPrevious(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1, 2)

	_, err := svc.Launch(ctx, "s", "PUSH", engine.Params{Value: engine.Int(3)}, false)
	require.NoError(t, err)
	pop, err := svc.Launch(ctx, "s", "POP", engine.Params{}, false)
	require.NoError(t, err)
	require.NotNil(t, pop.Result)
	assert.Equal(t, 2, *pop.Result, "runs against the committed state, not the abandoned push")

	_, err = svc.Control(ctx, "s", ControlRequest{Action: ActionCommit})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, stackValues(t, svc, "s"))
	assert.Equal(t, []EventKind{EventCreated, EventLaunched, EventCancelled, EventLaunched, EventCommitted},
		eventKinds(svc.Events("s")))
}

func TestService_RejectedOperation(t *testing.T) {
	svc, _ := newTestService(t)
	createStack(t, svc, "s")

	launch, err := svc.Launch(context.Background(), "s", "POP", engine.Params{}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, launch.Len)
	assert.Equal(t, "rejected", launch.Outcome)
}

func TestService_LaunchErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1)

	tests := []struct {
		name   string
		target string
		op     engine.Op
		params engine.Params
		want   error
	}{
		{"unknown structure", "missing", "PUSH", engine.Params{Value: engine.Int(1)}, store.ErrNotFound},
		{"unknown op", "s", "ENQUEUE", engine.Params{Value: engine.Int(1)}, engine.ErrUnknownOp},
		{"missing param", "s", "PUSH", engine.Params{}, engine.ErrMissingParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Launch(ctx, tt.target, tt.op, tt.params, false)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_ControlErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1)

	_, err := svc.Control(ctx, "s", ControlRequest{Action: ActionPlay})
	assert.ErrorIs(t, err, playback.ErrNoTrace)

	_, err = svc.Control(ctx, "missing", ControlRequest{Action: ActionPlay})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Launch(ctx, "s", "PEEK", engine.Params{}, false)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  ControlRequest
		want error
	}{
		{"unknown action", ControlRequest{Action: "rewind"}, ErrUnknownAction},
		{"seek without index", ControlRequest{Action: ActionSeek}, ErrInvalidArgument},
		{"speed without period", ControlRequest{Action: ActionSpeed}, ErrInvalidArgument},
		{"speed out of range", ControlRequest{Action: ActionSpeed, PeriodMs: engine.Int(5)}, playback.ErrPeriodOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Control(ctx, "s", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_ControlNavigation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1, 2)
	_, err := svc.Launch(ctx, "s", "PUSH", engine.Params{Value: engine.Int(3)}, false)
	require.NoError(t, err)

	st, err := svc.Control(ctx, "s", ControlRequest{Action: ActionStep})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Cursor)

	st, err = svc.Control(ctx, "s", ControlRequest{Action: ActionSeek, Index: engine.Int(-5)})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Cursor)

	st, err = svc.Control(ctx, "s", ControlRequest{Action: ActionSpeed, PeriodMs: engine.Int(250)})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, st.Period)

	st, err = svc.Control(ctx, "s", ControlRequest{Action: ActionCancel})
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseIdle, st.Phase)
	assert.Equal(t, []int{1, 2}, stackValues(t, svc, "s"))
}

func TestService_TraceCache(t *testing.T) {
	svc, _ := newTestService(t, func(c *ServiceConfig) { c.TraceCacheSize = 1 })
	ctx := context.Background()
	createStack(t, svc, "s", 1, 2)

	first, err := svc.Launch(ctx, "s", "PUSH", engine.Params{Value: engine.Int(3)}, false)
	require.NoError(t, err)

	tr, err := svc.Trace(first.TraceID)
	require.NoError(t, err)
	assert.Equal(t, "stack", tr.Family)

	step, n, err := svc.TraceStep(first.TraceID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, step.Terminal)

	_, _, err = svc.TraceStep(first.TraceID, 2)
	assert.ErrorIs(t, err, trace.ErrIndexOutOfRange)

	second, err := svc.Launch(ctx, "s", "PEEK", engine.Params{}, false)
	require.NoError(t, err)
	_, err = svc.Trace(first.TraceID)
	assert.ErrorIs(t, err, ErrTraceNotFound, "evicted by the newer trace")
	_, err = svc.Trace(second.TraceID)
	assert.NoError(t, err)
}

func TestService_CreateReplacesStructure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1, 2)
	_, err := svc.Launch(ctx, "s", "POP", engine.Params{}, false)
	require.NoError(t, err)

	createStack(t, svc, "s", 7)
	st, err := svc.Status("s")
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseIdle, st.Phase)
	assert.Equal(t, []int{7}, stackValues(t, svc, "s"))

	_, err = svc.CreateStructure(ctx, "bad name", engine.Spec{Family: engine.FamilyStack})
	assert.ErrorIs(t, err, store.ErrInvalidName)
	_, err = svc.CreateStructure(ctx, "x", engine.Spec{Family: "splay"})
	assert.ErrorIs(t, err, engine.ErrUnknownFamily)
}

func TestService_StructuresAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "a", 1)
	createStack(t, svc, "b", 2)

	recs, err := svc.Structures(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	resp, err := svc.Structure(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "stack", resp.Family)
	assert.Equal(t, playback.PhaseIdle, resp.Status.Phase)

	require.NoError(t, svc.DeleteStructure(ctx, "a"))
	_, err = svc.Structure(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Nil(t, svc.Events("a"))
	assert.ErrorIs(t, svc.DeleteStructure(ctx, "a"), store.ErrNotFound)
}

func TestService_Families(t *testing.T) {
	svc, _ := newTestService(t)
	var stack *FamilyInfo
	families := svc.Families()
	for i := range families {
		if families[i].Family == engine.FamilyStack {
			stack = &families[i]
		}
	}
	require.NotNil(t, stack)
	assert.True(t, stack.Bounded)
	require.NotEmpty(t, stack.Ops)
	assert.Equal(t, engine.Op("PUSH"), stack.Ops[0].Op)
	assert.Equal(t, []engine.Param{engine.ParamValue}, stack.Ops[0].Needs)
}

func TestService_Subscribe(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1)

	updates, unsubscribe, err := svc.Subscribe(ctx, "s")
	require.NoError(t, err)
	defer unsubscribe()

	_, err = svc.Launch(ctx, "s", "PEEK", engine.Params{}, false)
	require.NoError(t, err)

	select {
	case st := <-updates:
		assert.Equal(t, playback.PhaseLoaded, st.Phase)
		assert.Equal(t, "PEEK", st.Op)
	case <-time.After(time.Second):
		t.Fatal("no status update")
	}

	_, _, err = svc.Subscribe(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_Close(t *testing.T) {
	svc, _ := newTestService(t)
	createStack(t, svc, "s", 1)
	svc.Close()
	svc.Close()

	_, err := svc.Status("s")
	assert.ErrorIs(t, err, ErrServiceClosed)
	_, err = svc.Launch(context.Background(), "s", "PEEK", engine.Params{}, false)
	assert.ErrorIs(t, err, ErrServiceClosed)
}

func TestService_ReplaceWaitsForRunningCommit(t *testing.T) {
	for round := range 10 {
		t.Run(fmt.Sprintf("round %d", round), func(t *testing.T) {
			svc, sched := newTestService(t)
			ctx := context.Background()
			createStack(t, svc, "s", 1)

			_, err := svc.Launch(ctx, "s", "PUSH", engine.Params{Value: engine.Int(5)}, true)
			require.NoError(t, err)

			// The push may finish and commit while the peek replaces it.
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				sched.drain()
			}()
			peek, err := svc.Launch(ctx, "s", "PEEK", engine.Params{}, false)
			wg.Wait()
			require.NoError(t, err)
			_, err = svc.Control(ctx, "s", ControlRequest{Action: ActionCommit})
			require.NoError(t, err)

			values := stackValues(t, svc, "s")
			require.NotNil(t, peek.Result)
			assert.Equal(t, values[len(values)-1], *peek.Result, "peek ran on the committed state")

			hist, err := svc.History(ctx, "s", 0)
			require.NoError(t, err)
			var ops []string
			for _, e := range hist {
				ops = append(ops, e.Op)
			}
			if len(values) == 2 {
				assert.Equal(t, []string{"PUSH", "PEEK"}, ops)
				assert.Equal(t, "value=5", hist[0].Params)
			} else {
				assert.Equal(t, []int{1}, values)
				assert.Equal(t, []string{"PEEK"}, ops)
			}
		})
	}
}

func TestService_CommitKeepsItsOwnLaunch(t *testing.T) {
	svc, sched := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1)

	_, err := svc.Launch(ctx, "s", "PUSH", engine.Params{Value: engine.Int(2)}, true)
	require.NoError(t, err)
	sched.drain()

	_, err = svc.Launch(ctx, "s", "POP", engine.Params{}, false)
	require.NoError(t, err)

	hist, err := svc.History(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "PUSH", hist[0].Op, "a later launch does not relabel an earlier commit")
	assert.Equal(t, []int{1, 2}, stackValues(t, svc, "s"))
}

func TestService_FailedLaunchKeepsSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createStack(t, svc, "s", 1)

	_, err := svc.Launch(ctx, "s", "PUSH", engine.Params{Value: engine.Int(2)}, false)
	require.NoError(t, err)
	_, err = svc.Launch(ctx, "s", "PUSH", engine.Params{}, false)
	require.ErrorIs(t, err, engine.ErrMissingParam)

	st, err := svc.Status("s")
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseLoaded, st.Phase, "an invalid request leaves the loaded trace alone")
	assert.Equal(t, "PUSH", st.Op)
}
