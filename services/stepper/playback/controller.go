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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepper_playback_ticks_total",
		Help: "Total ticks that advanced a cursor",
	})

	staleTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepper_playback_stale_ticks_total",
		Help: "Ticks dropped because the session was paused, cancelled or reloaded",
	})

	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepper_playback_commits_total",
		Help: "Total commits by trigger and result",
	}, []string{"trigger", "result"})

	cancelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepper_playback_cancels_total",
		Help: "Total sessions cancelled before finishing",
	})

	droppedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepper_playback_dropped_updates_total",
		Help: "Status updates dropped because a subscriber was slow",
	})
)

// Controller steps through one materialized trace at a fixed cadence and
// commits its final container exactly once.
//
// Description:
//
//	Each scheduled tick carries the generation it was scheduled under. Pause,
//	Cancel, Load and SetSpeed bump the generation, so a tick that was already
//	in flight finds a stale generation and does nothing. This keeps at most
//	one live tick per controller.
//
//	A tick advances the cursor while it is before the last step. The tick
//	after that finishes playback and commits the result, so the last step
//	stays on screen for a full period. Commit finishes early. Seek only
//	moves the cursor and never commits.
//
// Thread Safety: Safe for concurrent use. CommitFunc is called without the
// controller lock held.
type Controller struct {
	config Config
	sched  Scheduler
	commit CommitFunc
	logger *slog.Logger

	mu         sync.Mutex
	tr         trace.Trace
	phase      Phase
	cursor     int
	period     time.Duration
	generation uint64
	epoch      uint64
	timer      Timer
	committed  bool
	commitErr  error
	commitFn   CommitFunc
	inflight   chan struct{}

	subs    map[int]chan Status
	nextSub int
}

// NewController creates an idle controller.
//
// Inputs:
//   - config: Tick bounds. Zero fields use DefaultConfig.
//   - sched: Tick scheduler. nil uses ClockScheduler.
//   - commit: Called with the final container. May be nil.
//   - logger: nil uses slog.Default().
//
// Outputs:
//   - *Controller: Idle controller.
//   - error: ErrInvalidConfig.
func NewController(config Config, sched Scheduler, commit CommitFunc, logger *slog.Logger) (*Controller, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if sched == nil {
		sched = ClockScheduler{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		config: config,
		sched:  sched,
		commit: commit,
		logger: logger.With(slog.String("component", "playback")),
		period: config.Period,
		subs:   make(map[int]chan Status),
	}, nil
}

// LoadOption adjusts a single Load.
type LoadOption func(*Controller)

// WithCommit commits the loaded trace through fn instead of the controller's
// CommitFunc. The option lasts until the next Load.
func WithCommit(fn CommitFunc) LoadOption {
	return func(c *Controller) { c.commitFn = fn }
}

// Load replaces the current trace. Any playback in flight is cancelled
// without committing. The cursor starts at step 0 in PhaseLoaded.
func (c *Controller) Load(tr trace.Trace, opts ...LoadOption) error {
	if err := tr.Validate(); err != nil {
		return fmt.Errorf("load %s/%s: %w", tr.Family, tr.Op, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle && c.phase != PhaseFinished {
		cancelsTotal.Inc()
	}
	c.stopLocked()
	c.epoch++
	c.tr = tr
	c.phase = PhaseLoaded
	c.cursor = 0
	c.committed = false
	c.commitErr = nil
	c.commitFn = c.commit
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug("trace loaded",
		slog.String("family", tr.Family),
		slog.String("op", tr.Op),
		slog.Int("steps", tr.Len()),
	)
	c.publishLocked()
	return nil
}

// Play starts or resumes ticking.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseIdle:
		return ErrNoTrace
	case PhaseFinished:
		return ErrFinished
	case PhaseRunning:
		return nil
	}
	c.phase = PhaseRunning
	c.scheduleLocked()
	c.publishLocked()
	return nil
}

// Pause suspends ticking. Pausing a controller that is not running is a
// no-op.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseIdle {
		return ErrNoTrace
	}
	if c.phase != PhaseRunning {
		return nil
	}
	c.stopLocked()
	c.phase = PhasePaused
	c.publishLocked()
	return nil
}

// Seek moves the cursor to i clamped to [0, Len()-1] and returns the new
// cursor. The phase is unchanged.
func (c *Controller) Seek(i int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseIdle {
		return 0, ErrNoTrace
	}
	c.cursor = min(max(i, 0), c.tr.Len()-1)
	c.publishLocked()
	return c.cursor, nil
}

// Step moves the cursor by delta, clamped.
func (c *Controller) Step(delta int) (int, error) {
	c.mu.Lock()
	cur := c.cursor
	c.mu.Unlock()
	return c.Seek(cur + delta)
}

// SetSpeed changes the tick period. A running controller reschedules its
// next tick with the new period.
func (c *Controller) SetSpeed(period time.Duration) error {
	if period < c.config.MinPeriod || period > c.config.MaxPeriod {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrPeriodOutOfRange, period, c.config.MinPeriod, c.config.MaxPeriod)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.period = period
	if c.phase == PhaseRunning {
		c.scheduleLocked()
	}
	c.publishLocked()
	return nil
}

// Cancel stops playback and unloads the trace without committing. It
// reports whether a trace was loaded.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseIdle {
		return false
	}
	if c.phase != PhaseFinished {
		cancelsTotal.Inc()
	}
	c.stopLocked()
	c.epoch++
	c.tr = trace.Trace{}
	c.phase = PhaseIdle
	c.cursor = 0
	c.committed = false
	c.commitErr = nil
	c.publishLocked()
	return true
}

// Commit finishes playback early: the cursor jumps to the last step and
// the final container is committed. Returns ErrAlreadyCommitted on a second
// call, or the CommitFunc's error.
func (c *Controller) Commit() error {
	c.mu.Lock()
	if c.phase == PhaseIdle {
		c.mu.Unlock()
		return ErrNoTrace
	}
	if c.committed {
		c.mu.Unlock()
		return ErrAlreadyCommitted
	}
	c.stopLocked()
	p := c.finishLocked()
	c.publishLocked()
	c.mu.Unlock()

	return c.runCommit("explicit", p)
}

// WaitCommit blocks until a commit that is already running returns. It
// returns at once when none is running. Call it after Cancel to be sure
// the previous trace has stopped writing.
func (c *Controller) WaitCommit(ctx context.Context) error {
	c.mu.Lock()
	done := c.inflight
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels playback and closes every subscription.
func (c *Controller) Close() {
	c.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// -----------------------------------------------------------------------------
// Ticking
// -----------------------------------------------------------------------------

// scheduleLocked replaces any pending tick with a new one.
func (c *Controller) scheduleLocked() {
	c.stopLocked()
	gen := c.generation
	c.timer = c.sched.AfterFunc(c.period, func() { c.tick(gen) })
}

// stopLocked invalidates the pending tick.
func (c *Controller) stopLocked() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.phase != PhaseRunning {
		c.mu.Unlock()
		staleTicks.Inc()
		return
	}
	c.timer = nil
	ticksTotal.Inc()

	if c.cursor < c.tr.Len()-1 {
		c.cursor++
		c.scheduleLocked()
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	p := c.finishLocked()
	c.publishLocked()
	c.mu.Unlock()
	_ = c.runCommit("finished", p)
}

// pendingCommit is a commit claimed under the lock and run outside it.
type pendingCommit struct {
	final snapshot.Container
	epoch uint64
	fn    CommitFunc
	done  chan struct{}
}

// finishLocked enters PhaseFinished at the last step and claims the commit.
func (c *Controller) finishLocked() pendingCommit {
	c.phase = PhaseFinished
	c.cursor = c.tr.Len() - 1
	c.committed = true
	c.commitErr = nil
	c.inflight = make(chan struct{})
	return pendingCommit{final: c.tr.Final(), epoch: c.epoch, fn: c.commitFn, done: c.inflight}
}

// runCommit calls the claimed CommitFunc outside the lock. On failure the
// claim is released so that Commit can retry, unless a newer trace was
// loaded meanwhile.
func (c *Controller) runCommit(trigger string, p pendingCommit) error {
	var err error
	if p.fn != nil {
		err = p.fn(p.final)
	}

	c.mu.Lock()
	if c.inflight == p.done {
		c.inflight = nil
	}
	if err != nil && c.epoch == p.epoch {
		c.committed = false
		c.commitErr = err
		c.publishLocked()
	}
	c.mu.Unlock()
	close(p.done)

	switch {
	case p.fn == nil:
		commitsTotal.WithLabelValues(trigger, "skipped").Inc()
		return nil
	case err == nil:
		commitsTotal.WithLabelValues(trigger, "ok").Inc()
		c.logger.Debug("result committed", slog.String("trigger", trigger))
		return nil
	}
	commitsTotal.WithLabelValues(trigger, "error").Inc()
	c.logger.Warn("commit failed",
		slog.String("trigger", trigger),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("commit: %w", err)
}

// -----------------------------------------------------------------------------
// Observation
// -----------------------------------------------------------------------------

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	st := Status{
		Phase:     c.phase,
		Family:    c.tr.Family,
		Op:        c.tr.Op,
		Cursor:    c.cursor,
		Len:       c.tr.Len(),
		Period:    c.period,
		Committed: c.committed,
	}
	if c.phase != PhaseIdle {
		step := c.tr.Steps[c.cursor].Clone()
		st.Step = &step
	}
	if c.commitErr != nil {
		st.Error = c.commitErr.Error()
	}
	return st
}

// CurrentSnapshot returns the step under the cursor. ok is false when idle.
func (c *Controller) CurrentSnapshot() (step snapshot.Step, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseIdle {
		return snapshot.Step{}, false
	}
	return c.tr.Steps[c.cursor].Clone(), true
}

// Cursor returns the current step index.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Len returns the number of steps in the loaded trace, or 0.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr.Len()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Period returns the current tick period.
func (c *Controller) Period() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.period
}

// Config returns the tick period bounds.
func (c *Controller) Config() Config {
	return c.config
}

// Trace returns the loaded trace. ok is false when idle.
func (c *Controller) Trace() (trace.Trace, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr, c.phase != PhaseIdle
}

// Subscribe returns a channel receiving a Status after every change, and a
// function that ends the subscription. Updates are dropped while the
// channel is full.
func (c *Controller) Subscribe(buffer int) (<-chan Status, func()) {
	ch := make(chan Status, max(buffer, 1))
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	st := c.statusLocked()
	for _, ch := range c.subs {
		select {
		case ch <- st:
		default:
			droppedUpdates.Inc()
		}
	}
}
