// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine is the inbound boundary of the stepper: it validates an
// operation request, runs the matching producer and materializes its trace.
//
// # Description
//
// Callers name a family ("min-heap"), an operation ("INSERT") and primitive
// parameters. RunOperation rejects malformed requests with sentinel errors
// before any producer runs. Everything past that point, including domain
// failures such as an empty stack, is reported inside the trace.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/arrays"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	// operationsTotal counts materialized traces by family, op and outcome.
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepper_operations_total",
		Help: "Total operations run by family, op and outcome",
	}, []string{"family", "op", "outcome"})

	// operationSteps tracks trace length per operation.
	operationSteps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stepper_operation_steps",
		Help:    "Number of steps per materialized trace",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
	}, []string{"family"})

	// operationDuration tracks producer plus materialization latency.
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stepper_operation_duration_seconds",
		Help:    "Operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	}, []string{"family"})

	// operationErrors counts rejected requests by reason.
	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepper_operation_errors_total",
		Help: "Total operation requests rejected before a producer ran",
	}, []string{"reason"})
)

var engineTracer = otel.Tracer("stepper.engine")

// Engine runs operations against the producers in a Registry.
//
// # Thread Safety
//
// Safe for concurrent use. An Engine holds no per-operation state.
type Engine struct {
	registry *Registry
	limits   Limits
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry replaces the default registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLimits replaces the default structure limits.
func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithLogger sets the parent logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an Engine over DefaultRegistry and DefaultLimits.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: DefaultRegistry(),
		limits:   DefaultLimits(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "engine"))
	return e
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Limits returns the engine's structure limits.
func (e *Engine) Limits() Limits { return e.limits }

// Check validates family, op and params without running anything. It
// returns the same errors as RunOperation, except ErrKindMismatch, which
// needs the state.
func (e *Engine) Check(family Family, op Op, params Params) error {
	h, err := e.registry.Lookup(family, op)
	if err != nil {
		return err
	}
	if err := params.Require(h.Needs...); err != nil {
		return fmt.Errorf("%s/%s: %w", family, op, err)
	}
	return nil
}

// RunOperation validates a request and materializes the producer's trace.
//
// # Description
//
// Looks up the handler, checks that state belongs to family and that every
// required parameter is present, then runs the producer to exhaustion. state
// is never modified; the trace's last step holds the container to commit.
//
// # Inputs
//
//   - ctx: Cancelling ctx abandons materialization.
//   - state: Current structure.
//   - family, op: Operation to run.
//   - params: Primitive arguments; see Handler.Needs.
//
// # Outputs
//
//   - trace.Trace: Non-empty trace ending in a terminal step.
//   - error: ErrUnknownFamily, ErrUnknownOp, ErrKindMismatch,
//     ErrMissingParam, or ctx.Err().
//
// # Example
//
//	tr, err := e.RunOperation(ctx, snapshot.OfArray(a), engine.FamilyArray,
//	    "INSERT", engine.Params{Index: engine.Int(1), Value: engine.Int(5)})
func (e *Engine) RunOperation(ctx context.Context, state snapshot.Container, family Family, op Op, params Params) (trace.Trace, error) {
	ctx, span := engineTracer.Start(ctx, "engine.Engine.RunOperation")
	defer span.End()
	span.SetAttributes(
		attribute.String("family", string(family)),
		attribute.String("op", string(op)),
	)

	fail := func(reason string, err error) (trace.Trace, error) {
		operationErrors.WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		e.logger.Debug("operation rejected",
			slog.String("family", string(family)),
			slog.String("op", string(op)),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return trace.Trace{}, err
	}

	h, err := e.registry.Lookup(family, op)
	if err != nil {
		return fail("unknown_op", err)
	}
	if !family.Accepts(state) {
		return fail("kind_mismatch", fmt.Errorf("%w: %s expects a %s container, got %q",
			ErrKindMismatch, family, family.Kind(), state.Kind))
	}
	if err := params.Require(h.Needs...); err != nil {
		return fail("missing_param", fmt.Errorf("%s/%s: %w", family, op, err))
	}
	if err := ctx.Err(); err != nil {
		return fail("cancelled", err)
	}

	start := time.Now()
	tr, err := trace.Materialize(string(family), string(op), withContext(ctx, h.Run(state, params)))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fail("cancelled", ctxErr)
	}
	if err != nil {
		return fail("invalid_trace", err)
	}
	elapsed := time.Since(start)

	outcome := string(tr.Last().Outcome)
	operationsTotal.WithLabelValues(string(family), string(op), outcome).Inc()
	operationSteps.WithLabelValues(string(family)).Observe(float64(tr.Len()))
	operationDuration.WithLabelValues(string(family)).Observe(elapsed.Seconds())

	span.SetAttributes(
		attribute.Int("steps", tr.Len()),
		attribute.String("outcome", outcome),
	)
	span.SetStatus(codes.Ok, "trace materialized")
	e.logger.Debug("operation materialized",
		slog.String("family", string(family)),
		slog.String("op", string(op)),
		slog.String("params", params.String()),
		slog.Int("steps", tr.Len()),
		slog.String("outcome", outcome),
		slog.Duration("elapsed", elapsed),
	)
	return tr, nil
}

// withContext stops pulling seq once ctx is done.
func withContext(ctx context.Context, seq trace.Sequence) trace.Sequence {
	return func(yield func(snapshot.Step) bool) {
		for s := range seq {
			if ctx.Err() != nil || !yield(s) {
				return
			}
		}
	}
}

// Pseudocode returns the numbered pseudo-code lines for an operation, or
// nil when the family has none. Step.CodeLine indexes it from 1.
func Pseudocode(f Family, op Op) []string {
	if f == FamilyArray {
		return arrays.Code[string(op)]
	}
	return nil
}
