// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stepper provides the step-trace HTTP service.
//
// The service exposes endpoints for:
//   - Creating and persisting named data structures
//   - Running operations on them as materialized step traces
//   - Controlling playback of the loaded trace, per structure
//   - Scrubbing cached traces step by step
//   - Streaming playback status over a websocket
package stepper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
	"github.com/AleutianAI/AlgoTrace/services/stepper/playback"
	"github.com/AleutianAI/AlgoTrace/services/stepper/ring"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/store"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// ServiceConfig configures the stepper service.
type ServiceConfig struct {
	// Playback bounds the tick period of every session.
	Playback playback.Config

	// TraceCacheSize is the number of materialized traces kept for
	// scrubbing.
	// Default: 256
	TraceCacheSize int

	// EventHistory is the number of recent events kept per structure.
	// Default: 64
	EventHistory int

	// CommitTimeout bounds a store commit.
	// Default: 5s
	CommitTimeout time.Duration

	// Scheduler drives playback ticks. nil uses the wall clock.
	Scheduler playback.Scheduler
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Playback:       playback.DefaultConfig(),
		TraceCacheSize: 256,
		EventHistory:   64,
		CommitTimeout:  5 * time.Second,
	}
}

// Service is the stepper service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Each structure has at most one
//	session; its controller serializes playback.
type Service struct {
	config ServiceConfig
	engine *engine.Engine
	store  *store.Store
	traces *lru.Cache[string, trace.Trace]
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// Session is the playback state of one named structure.
type Session struct {
	name       string
	controller *playback.Controller

	// replace serializes Launch and CreateStructure on the structure.
	replace sync.Mutex

	mu     sync.Mutex
	launch *Launch
	events *ring.Buffer[Event]
}

// NewService creates a service over an engine and a store.
//
// Inputs:
//
//	eng - Engine that builds structures and runs operations. Required.
//	st - Store for structures and history. Required.
//	config - Service configuration; zero fields take defaults.
//	logger - nil uses slog.Default().
//
// Outputs:
//
//	*Service - Ready service. Call Close when done.
//	error - Invalid playback bounds.
func NewService(eng *engine.Engine, st *store.Store, config ServiceConfig, logger *slog.Logger) (*Service, error) {
	if eng == nil || st == nil {
		return nil, errors.New("engine and store are required")
	}
	defaults := DefaultServiceConfig()
	if config.TraceCacheSize <= 0 {
		config.TraceCacheSize = defaults.TraceCacheSize
	}
	if config.EventHistory <= 0 {
		config.EventHistory = defaults.EventHistory
	}
	if config.CommitTimeout <= 0 {
		config.CommitTimeout = defaults.CommitTimeout
	}
	config.Playback.ApplyDefaults()
	if err := config.Playback.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, trace.Trace](config.TraceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create trace cache: %w", err)
	}

	return &Service{
		config:   config,
		engine:   eng,
		store:    st,
		traces:   cache,
		logger:   logger.With(slog.String("component", "stepper")),
		sessions: make(map[string]*Session),
	}, nil
}

// Engine returns the service's engine.
func (s *Service) Engine() *engine.Engine { return s.engine }

// =============================================================================
// Structures
// =============================================================================

// Families describes every registered family and its operations.
func (s *Service) Families() []FamilyInfo {
	reg := s.engine.Registry()
	var out []FamilyInfo
	for _, f := range reg.Families() {
		info := FamilyInfo{Family: f, Kind: f.Kind(), Bounded: f.Bounded()}
		for _, op := range reg.Ops(f) {
			h, err := reg.Lookup(f, op)
			if err != nil {
				continue
			}
			info.Ops = append(info.Ops, OpInfo{Op: op, Needs: slices.Clone(h.Needs)})
		}
		out = append(out, info)
	}
	return out
}

// CreateStructure builds a fresh structure and stores it under name,
// replacing any previous structure of that name. A loaded trace on the
// structure is cancelled.
func (s *Service) CreateStructure(ctx context.Context, name string, spec engine.Spec) (store.Record, error) {
	if err := store.ValidateName(name); err != nil {
		return store.Record{}, err
	}
	c, err := s.engine.Build(spec)
	if err != nil {
		return store.Record{}, err
	}

	sess, err := s.session(name)
	if err != nil {
		return store.Record{}, err
	}
	sess.replace.Lock()
	defer sess.replace.Unlock()
	if err := s.stopSession(ctx, sess, "structure replaced"); err != nil {
		return store.Record{}, err
	}

	rec, err := s.store.Put(ctx, name, string(spec.Family), c)
	if err != nil {
		return store.Record{}, err
	}
	sess.record(Event{Kind: EventCreated, Detail: string(spec.Family)})

	s.logger.Info("structure created",
		slog.String("name", name),
		slog.String("family", string(spec.Family)),
		slog.Int("values", len(spec.Values)),
	)
	return rec, nil
}

// Structure returns the stored structure and its playback status.
func (s *Service) Structure(ctx context.Context, name string) (StructureResponse, error) {
	rec, err := s.store.Get(ctx, name)
	if err != nil {
		return StructureResponse{}, err
	}
	st, err := s.Status(name)
	if err != nil {
		return StructureResponse{}, err
	}
	return StructureResponse{Record: rec, Status: st}, nil
}

// Structures lists every stored structure.
func (s *Service) Structures(ctx context.Context) ([]store.Record, error) {
	return s.store.List(ctx)
}

// DeleteStructure closes the structure's session and deletes it with its
// history.
func (s *Service) DeleteStructure(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}
	s.mu.Lock()
	sess, ok := s.sessions[name]
	delete(s.sessions, name)
	s.mu.Unlock()
	if ok {
		sess.controller.Close()
	}
	s.logger.Info("structure deleted", slog.String("name", name))
	return nil
}

// History returns the newest limit committed operations, oldest first.
func (s *Service) History(ctx context.Context, name string, limit int) ([]store.Entry, error) {
	return s.store.History(ctx, name, limit)
}

// Events returns the structure's recent session events, oldest first.
func (s *Service) Events(name string) []Event {
	s.mu.Lock()
	sess, ok := s.sessions[name]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.events.Slice()
}

// =============================================================================
// Operations
// =============================================================================

// Launch runs op on the stored structure and loads the trace for playback.
//
// Description:
//
//	Validates the request, then cancels any trace already loaded on the
//	structure and waits for a commit it may have started. Its uncommitted
//	result is discarded. The trace is materialized from the container as
//	committed at that point, cached for scrubbing under a fresh id, and
//	commits under this launch's metadata only. When autoplay is set,
//	playback starts immediately.
//
// Inputs:
//
//	ctx - Bounds materialization.
//	name - Stored structure.
//	op - Operation of the structure's family.
//	params - Operation arguments.
//	autoplay - Start playing after loading.
//
// Outputs:
//
//	Launch - Trace id, length and outcome.
//	error - store.ErrNotFound, engine validation errors, or ctx.Err().
func (s *Service) Launch(ctx context.Context, name string, op engine.Op, params engine.Params, autoplay bool) (Launch, error) {
	rec, err := s.store.Get(ctx, name)
	if err != nil {
		return Launch{}, err
	}
	if err := s.engine.Check(engine.Family(rec.Family), op, params); err != nil {
		return Launch{}, err
	}

	sess, err := s.session(name)
	if err != nil {
		return Launch{}, err
	}
	sess.replace.Lock()
	defer sess.replace.Unlock()
	if err := s.stopSession(ctx, sess, "replaced by "+string(op)); err != nil {
		return Launch{}, err
	}

	// Read again: the stopped session may have committed meanwhile.
	rec, err = s.store.Get(ctx, name)
	if err != nil {
		return Launch{}, err
	}
	family := engine.Family(rec.Family)
	tr, err := s.engine.RunOperation(ctx, rec.Container, family, op, params)
	if err != nil {
		return Launch{}, err
	}

	last := tr.Last()
	l := Launch{
		TraceID: uuid.NewString(),
		Name:    name,
		Family:  rec.Family,
		Op:      string(op),
		Params:  params,
		Len:     tr.Len(),
		Outcome: string(last.Outcome),
		Result:  last.Result,
	}
	s.traces.Add(l.TraceID, tr)

	if err := sess.controller.Load(tr, playback.WithCommit(s.commitFunc(sess, l))); err != nil {
		return Launch{}, err
	}
	sess.setLaunch(&l)
	sess.record(Event{Kind: EventLaunched, TraceID: l.TraceID, Detail: fmt.Sprintf("%s %s", op, params)})

	if autoplay {
		if err := sess.controller.Play(); err != nil {
			return Launch{}, err
		}
	}

	s.logger.Info("operation launched",
		slog.String("name", name),
		slog.String("family", rec.Family),
		slog.String("op", string(op)),
		slog.String("trace_id", l.TraceID),
		slog.Int("steps", l.Len),
		slog.String("outcome", l.Outcome),
	)
	return l, nil
}

// Control applies a playback action to the structure's session and
// returns the resulting status.
func (s *Service) Control(ctx context.Context, name string, req ControlRequest) (playback.Status, error) {
	if _, err := s.store.Get(ctx, name); err != nil {
		return playback.Status{}, err
	}
	sess, err := s.session(name)
	if err != nil {
		return playback.Status{}, err
	}
	c := sess.controller

	switch req.Action {
	case ActionPlay:
		err = c.Play()
	case ActionPause:
		err = c.Pause()
	case ActionSeek:
		if req.Index == nil {
			return playback.Status{}, fmt.Errorf("%w: seek needs index", ErrInvalidArgument)
		}
		_, err = c.Seek(*req.Index)
	case ActionStep:
		delta := 1
		if req.Delta != nil {
			delta = *req.Delta
		}
		_, err = c.Step(delta)
	case ActionSpeed:
		if req.PeriodMs == nil {
			return playback.Status{}, fmt.Errorf("%w: speed needs period_ms", ErrInvalidArgument)
		}
		err = c.SetSpeed(time.Duration(*req.PeriodMs) * time.Millisecond)
	case ActionCancel:
		if c.Cancel() {
			sess.record(Event{Kind: EventCancelled, TraceID: sess.traceID(), Detail: "cancelled"})
			sess.setLaunch(nil)
		}
	case ActionCommit:
		err = c.Commit()
	default:
		return playback.Status{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if err != nil {
		return c.Status(), err
	}
	return c.Status(), nil
}

// Status returns the structure's playback status. A structure that never
// ran an operation is idle.
func (s *Service) Status(name string) (playback.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return playback.Status{}, ErrServiceClosed
	}
	sess, ok := s.sessions[name]
	if !ok {
		return playback.Status{Phase: playback.PhaseIdle, Period: s.config.Playback.Period}, nil
	}
	return sess.controller.Status(), nil
}

// Subscribe streams the structure's playback status after every change.
func (s *Service) Subscribe(ctx context.Context, name string) (<-chan playback.Status, func(), error) {
	if _, err := s.store.Get(ctx, name); err != nil {
		return nil, nil, err
	}
	sess, err := s.session(name)
	if err != nil {
		return nil, nil, err
	}
	ch, unsubscribe := sess.controller.Subscribe(32)
	return ch, unsubscribe, nil
}

// =============================================================================
// Traces
// =============================================================================

// Trace returns a cached trace.
func (s *Service) Trace(id string) (trace.Trace, error) {
	tr, ok := s.traces.Get(id)
	if !ok {
		return trace.Trace{}, fmt.Errorf("%w: %s", ErrTraceNotFound, id)
	}
	return tr, nil
}

// TraceStep returns step i of a cached trace.
func (s *Service) TraceStep(id string, i int) (snapshot.Step, int, error) {
	tr, err := s.Trace(id)
	if err != nil {
		return snapshot.Step{}, 0, err
	}
	step, err := tr.At(i)
	if err != nil {
		return snapshot.Step{}, tr.Len(), err
	}
	return step, tr.Len(), nil
}

// Close stops every session.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sessions := s.sessions
	s.sessions = map[string]*Session{}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.controller.Close()
	}
}

// =============================================================================
// Sessions
// =============================================================================

// session returns the structure's session, creating it on first use.
func (s *Service) session(name string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServiceClosed
	}
	if sess, ok := s.sessions[name]; ok {
		return sess, nil
	}

	sess := &Session{
		name:   name,
		events: ring.New[Event](s.config.EventHistory),
	}
	ctrl, err := playback.NewController(s.config.Playback, s.config.Scheduler, nil,
		s.logger.With(slog.String("structure", name)))
	if err != nil {
		return nil, err
	}
	sess.controller = ctrl
	s.sessions[name] = sess
	return sess, nil
}

// stopSession cancels the session's trace and waits until a commit it
// already started has been written. Callers hold sess.replace.
func (s *Service) stopSession(ctx context.Context, sess *Session, reason string) error {
	if sess.controller.Cancel() {
		sess.record(Event{Kind: EventCancelled, TraceID: sess.traceID(), Detail: reason})
	}
	wctx, cancel := context.WithTimeout(ctx, s.config.CommitTimeout)
	defer cancel()
	if err := sess.controller.WaitCommit(wctx); err != nil {
		return fmt.Errorf("wait for previous commit: %w", err)
	}
	sess.setLaunch(nil)
	return nil
}

// commitFunc persists the final container of launch l with a history entry.
func (s *Service) commitFunc(sess *Session, l Launch) playback.CommitFunc {
	return func(c snapshot.Container) error {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.CommitTimeout)
		defer cancel()

		rec, err := s.store.Commit(ctx, sess.name, c, store.Entry{
			Family:  l.Family,
			Op:      l.Op,
			Params:  l.Params.String(),
			Steps:   l.Len,
			Outcome: l.Outcome,
		})
		if err != nil {
			sess.record(Event{Kind: EventCommitFailed, TraceID: l.TraceID, Detail: err.Error()})
			return err
		}
		sess.record(Event{Kind: EventCommitted, TraceID: l.TraceID, Detail: fmt.Sprintf("version %d", rec.Version)})
		s.logger.Info("result committed",
			slog.String("name", sess.name),
			slog.String("op", l.Op),
			slog.Int("version", rec.Version),
		)
		return nil
	}
}

func (sess *Session) record(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.events.Push(e)
}

func (sess *Session) setLaunch(l *Launch) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.launch = l
}

func (sess *Session) current() *Launch {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.launch
}

func (sess *Session) traceID() string {
	if l := sess.current(); l != nil {
		return l.TraceID
	}
	return ""
}
