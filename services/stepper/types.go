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
	"time"

	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
	"github.com/AleutianAI/AlgoTrace/services/stepper/playback"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/store"
)

// =============================================================================
// Playback actions
// =============================================================================

// Action names a playback control.
type Action string

const (
	ActionPlay   Action = "play"
	ActionPause  Action = "pause"
	ActionSeek   Action = "seek"
	ActionStep   Action = "step"
	ActionSpeed  Action = "speed"
	ActionCancel Action = "cancel"
	ActionCommit Action = "commit"
)

// ControlRequest is a playback control with its optional argument.
type ControlRequest struct {
	// Action selects the control.
	Action Action `json:"action"`

	// Index is the target step for seek.
	Index *int `json:"index,omitempty"`

	// Delta is the cursor offset for step. Defaults to 1.
	Delta *int `json:"delta,omitempty"`

	// PeriodMs is the new tick period for speed.
	PeriodMs *int `json:"period_ms,omitempty"`
}

// =============================================================================
// Sessions
// =============================================================================

// Launch describes the trace loaded into a session.
type Launch struct {
	TraceID string        `json:"trace_id"`
	Name    string        `json:"name"`
	Family  string        `json:"family"`
	Op      string        `json:"op"`
	Params  engine.Params `json:"params"`
	Len     int           `json:"len"`
	Outcome string        `json:"outcome"`
	Result  *int          `json:"result,omitempty"`
}

// EventKind classifies session events.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventLaunched     EventKind = "launched"
	EventCancelled    EventKind = "cancelled"
	EventCommitted    EventKind = "committed"
	EventCommitFailed EventKind = "commit_failed"
)

// Event is one entry of a structure's recent activity.
type Event struct {
	At      time.Time `json:"at"`
	Kind    EventKind `json:"kind"`
	TraceID string    `json:"trace_id,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// =============================================================================
// HTTP request / response types
// =============================================================================

// CreateStructureRequest is the body of POST /v1/stepper/structures.
type CreateStructureRequest struct {
	Name     string        `json:"name" binding:"required"`
	Family   engine.Family `json:"family" binding:"required"`
	Values   []int         `json:"values,omitempty"`
	Capacity int           `json:"capacity,omitempty"`
	Text     string        `json:"text,omitempty"`
	Edges    string        `json:"edges,omitempty"`
	Directed bool          `json:"directed,omitempty"`
}

// Spec converts the request to an engine build spec.
func (r CreateStructureRequest) Spec() engine.Spec {
	return engine.Spec{
		Family:   r.Family,
		Values:   r.Values,
		Capacity: r.Capacity,
		Text:     r.Text,
		Edges:    r.Edges,
		Directed: r.Directed,
	}
}

// RunRequest is the body of POST /v1/stepper/structures/:name/run.
type RunRequest struct {
	Op       engine.Op     `json:"op" binding:"required"`
	Params   engine.Params `json:"params"`
	Autoplay bool          `json:"autoplay,omitempty"`
}

// StructureResponse is a stored structure with its playback status.
type StructureResponse struct {
	store.Record
	Status playback.Status `json:"status"`
}

// StatusResponse is a playback status with the current step rendered as
// text.
type StatusResponse struct {
	playback.Status
	Text string `json:"text,omitempty"`
}

// StepResponse is one step of a cached trace.
type StepResponse struct {
	TraceID string        `json:"trace_id"`
	Index   int           `json:"index"`
	Len     int           `json:"len"`
	Step    snapshot.Step `json:"step"`
	Text    string        `json:"text"`
}

// FamilyInfo describes a family and its operations.
type FamilyInfo struct {
	Family  engine.Family `json:"family"`
	Kind    snapshot.Kind `json:"kind"`
	Bounded bool          `json:"bounded"`
	Ops     []OpInfo      `json:"ops"`
}

// OpInfo names an operation and its required parameters.
type OpInfo struct {
	Op    engine.Op      `json:"op"`
	Needs []engine.Param `json:"needs,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}
