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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
	"github.com/AleutianAI/AlgoTrace/services/stepper/playback"
	"github.com/AleutianAI/AlgoTrace/services/stepper/render"
	"github.com/AleutianAI/AlgoTrace/services/stepper/store"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// ServiceVersion is the stepper service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the stepper service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleHealth handles GET /v1/stepper/health.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleFamilies handles GET /v1/stepper/families.
//
// Response:
//
//	200 OK: []FamilyInfo
func (h *Handlers) HandleFamilies(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Families())
}

// HandleCreateStructure handles POST /v1/stepper/structures.
//
// Description:
//
//	Builds a fresh structure and stores it under the requested name,
//	replacing any previous structure of that name.
//
// Request Body:
//
//	CreateStructureRequest
//
// Response:
//
//	201 Created: store.Record
//	400 Bad Request: Invalid body, name, family, capacity or edges
func (h *Handlers) HandleCreateStructure(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateStructure")

	var req CreateStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	rec, err := h.svc.CreateStructure(c.Request.Context(), req.Name, req.Spec())
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// HandleListStructures handles GET /v1/stepper/structures.
func (h *Handlers) HandleListStructures(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListStructures")
	recs, err := h.svc.Structures(c.Request.Context())
	if err != nil {
		writeError(c, logger, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	c.JSON(http.StatusOK, recs)
}

// HandleGetStructure handles GET /v1/stepper/structures/:name.
//
// Response:
//
//	200 OK: StructureResponse
//	404 Not Found: Unknown structure
func (h *Handlers) HandleGetStructure(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleGetStructure")
	resp, err := h.svc.Structure(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDeleteStructure handles DELETE /v1/stepper/structures/:name.
func (h *Handlers) HandleDeleteStructure(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteStructure")
	if err := h.svc.DeleteStructure(c.Request.Context(), c.Param("name")); err != nil {
		writeError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHistory handles GET /v1/stepper/structures/:name/history.
//
// Query Parameters:
//
//	limit: Maximum number of entries, newest kept (optional, default all)
func (h *Handlers) HandleHistory(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleHistory")
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: "INVALID_LIMIT"})
			return
		}
		limit = n
	}
	entries, err := h.svc.History(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// HandleEvents handles GET /v1/stepper/structures/:name/events.
func (h *Handlers) HandleEvents(c *gin.Context) {
	events := h.svc.Events(c.Param("name"))
	if events == nil {
		events = []Event{}
	}
	c.JSON(http.StatusOK, events)
}

// HandleRun handles POST /v1/stepper/structures/:name/run.
//
// Description:
//
//	Runs an operation on the stored structure and loads its trace for
//	playback, cancelling any trace already loaded on the structure.
//
// Request Body:
//
//	RunRequest
//
// Response:
//
//	200 OK: Launch
//	400 Bad Request: Unknown op, kind mismatch or missing parameter
//	404 Not Found: Unknown structure
func (h *Handlers) HandleRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRun")

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	launch, err := h.svc.Launch(c.Request.Context(), c.Param("name"), req.Op, req.Params, req.Autoplay)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, launch)
}

// HandlePlayback handles POST /v1/stepper/structures/:name/playback/:action.
//
// Description:
//
//	Applies play, pause, seek, step, speed, cancel or commit. The body is
//	optional and carries the action's argument.
//
// Response:
//
//	200 OK: StatusResponse
//	400 Bad Request: Unknown action or missing argument
//	409 Conflict: No trace loaded, finished, or already committed
func (h *Handlers) HandlePlayback(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandlePlayback")

	var req ControlRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Invalid request body",
				Code:  "INVALID_REQUEST",
			})
			return
		}
	}
	req.Action = Action(c.Param("action"))

	st, err := h.svc.Control(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse(st))
}

// HandleStatus handles GET /v1/stepper/structures/:name/status.
func (h *Handlers) HandleStatus(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleStatus")
	if _, err := h.svc.store.Get(c.Request.Context(), c.Param("name")); err != nil {
		writeError(c, logger, err)
		return
	}
	st, err := h.svc.Status(c.Param("name"))
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse(st))
}

// HandleTrace handles GET /v1/stepper/traces/:id.
//
// Response:
//
//	200 OK: trace.Trace
//	404 Not Found: Unknown or evicted trace
func (h *Handlers) HandleTrace(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleTrace")
	tr, err := h.svc.Trace(c.Param("id"))
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, tr)
}

// HandleTraceStep handles GET /v1/stepper/traces/:id/steps/:index.
//
// Response:
//
//	200 OK: StepResponse
//	400 Bad Request: Non-numeric index
//	404 Not Found: Unknown trace or index out of range
func (h *Handlers) HandleTraceStep(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleTraceStep")
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "index must be an integer", Code: "INVALID_INDEX"})
		return
	}
	step, n, err := h.svc.TraceStep(c.Param("id"), i)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, StepResponse{
		TraceID: c.Param("id"),
		Index:   i,
		Len:     n,
		Step:    step,
		Text:    render.Step(step),
	})
}

// =============================================================================
// Helpers
// =============================================================================

func statusResponse(st playback.Status) StatusResponse {
	resp := StatusResponse{Status: st}
	if st.Step != nil {
		resp.Text = render.Step(*st.Step)
	}
	return resp
}

// writeError maps service errors to status codes and error codes.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "code", code)
	} else {
		logger.Debug("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "STRUCTURE_NOT_FOUND"
	case errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest, "INVALID_NAME"
	case errors.Is(err, ErrTraceNotFound):
		return http.StatusNotFound, "TRACE_NOT_FOUND"
	case errors.Is(err, trace.ErrIndexOutOfRange):
		return http.StatusNotFound, "STEP_OUT_OF_RANGE"
	case errors.Is(err, engine.ErrUnknownFamily):
		return http.StatusBadRequest, "UNKNOWN_FAMILY"
	case errors.Is(err, engine.ErrUnknownOp):
		return http.StatusBadRequest, "UNKNOWN_OP"
	case errors.Is(err, engine.ErrKindMismatch):
		return http.StatusBadRequest, "KIND_MISMATCH"
	case errors.Is(err, engine.ErrMissingParam):
		return http.StatusBadRequest, "MISSING_PARAM"
	case errors.Is(err, engine.ErrCapacity):
		return http.StatusBadRequest, "CAPACITY"
	case errors.Is(err, engine.ErrInvalidStructure):
		return http.StatusBadRequest, "INVALID_STRUCTURE"
	case errors.Is(err, ErrUnknownAction):
		return http.StatusBadRequest, "UNKNOWN_ACTION"
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, playback.ErrPeriodOutOfRange):
		return http.StatusBadRequest, "PERIOD_OUT_OF_RANGE"
	case errors.Is(err, playback.ErrNoTrace):
		return http.StatusConflict, "NO_TRACE"
	case errors.Is(err, playback.ErrFinished):
		return http.StatusConflict, "FINISHED"
	case errors.Is(err, playback.ErrAlreadyCommitted):
		return http.StatusConflict, "ALREADY_COMMITTED"
	case errors.Is(err, ErrServiceClosed), errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// getOrCreateRequestID returns the request's X-Request-ID, creating one if
// absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	c.Set(requestIDKey, requestID)
	return requestID
}
