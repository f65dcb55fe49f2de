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
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNoTrace is returned when an operation needs a loaded trace.
	ErrNoTrace = errors.New("no trace loaded")

	// ErrFinished is returned by Play after the trace has finished.
	ErrFinished = errors.New("playback already finished")

	// ErrAlreadyCommitted is returned by Commit when the result is already committed.
	ErrAlreadyCommitted = errors.New("result already committed")

	// ErrPeriodOutOfRange is returned by SetSpeed for a period outside the bounds.
	ErrPeriodOutOfRange = errors.New("tick period out of range")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// -----------------------------------------------------------------------------
// Phase
// -----------------------------------------------------------------------------

// Phase is the controller's position in its lifecycle.
//
//	Idle -> Loaded -> Running <-> Paused -> Finished
type Phase int

const (
	// PhaseIdle means no trace is loaded.
	PhaseIdle Phase = iota

	// PhaseLoaded means a trace is loaded at step 0 and has not started.
	PhaseLoaded

	// PhaseRunning means ticks are advancing the cursor.
	PhaseRunning

	// PhasePaused means ticks are suspended.
	PhasePaused

	// PhaseFinished means the result has been committed or playback ended.
	PhaseFinished
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoaded:
		return "loaded"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// -----------------------------------------------------------------------------
// Scheduler
// -----------------------------------------------------------------------------

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call if it has not run yet.
	Stop() bool
}

// Scheduler runs a function once after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// ClockScheduler schedules on the wall clock.
type ClockScheduler struct{}

// AfterFunc implements Scheduler with time.AfterFunc.
func (ClockScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

// Config bounds the tick period.
type Config struct {
	// Period is the initial delay between ticks.
	Period time.Duration

	// MinPeriod and MaxPeriod bound SetSpeed.
	MinPeriod time.Duration
	MaxPeriod time.Duration
}

// DefaultConfig returns 500ms ticks bounded to [100ms, 2s].
func DefaultConfig() Config {
	return Config{
		Period:    500 * time.Millisecond,
		MinPeriod: 100 * time.Millisecond,
		MaxPeriod: 2 * time.Second,
	}
}

// ApplyDefaults fills zero fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Period == 0 {
		c.Period = d.Period
	}
	if c.MinPeriod == 0 {
		c.MinPeriod = d.MinPeriod
	}
	if c.MaxPeriod == 0 {
		c.MaxPeriod = d.MaxPeriod
	}
}

// Validate checks that the bounds are ordered and contain Period.
func (c Config) Validate() error {
	if c.MinPeriod <= 0 || c.MinPeriod > c.MaxPeriod {
		return fmt.Errorf("%w: period bounds [%v, %v]", ErrInvalidConfig, c.MinPeriod, c.MaxPeriod)
	}
	if c.Period < c.MinPeriod || c.Period > c.MaxPeriod {
		return fmt.Errorf("%w: period %v outside [%v, %v]", ErrInvalidConfig, c.Period, c.MinPeriod, c.MaxPeriod)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status is a point-in-time view of a controller.
type Status struct {
	Phase     Phase          `json:"phase"`
	Family    string         `json:"family,omitempty"`
	Op        string         `json:"op,omitempty"`
	Cursor    int            `json:"cursor"`
	Len       int            `json:"len"`
	Period    time.Duration  `json:"period_ns"`
	Committed bool           `json:"committed"`
	Step      *snapshot.Step `json:"step,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// CommitFunc persists the container of the trace's last step.
type CommitFunc func(snapshot.Container) error
