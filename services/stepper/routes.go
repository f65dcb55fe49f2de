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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName names the otelgin server spans.
	ServiceName string

	// RatePerSecond and Burst limit /v1/stepper requests. A zero rate
	// disables limiting.
	RatePerSecond float64
	Burst         int

	// Limiter, when set, replaces RatePerSecond and Burst so the caller
	// can retune it while serving.
	Limiter *rate.Limiter

	// Metrics serves GET /metrics. nil skips the route.
	Metrics http.Handler
}

// NewRouter builds the gin engine with middleware and every route.
//
// Description:
//
//	Installs recovery, otelgin tracing and request IDs on every route and
//	rate limiting on the API group, then registers the stepper routes
//	under /v1 and the metrics handler at /metrics.
func NewRouter(handlers *Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(RequestID())

	v1 := router.Group("/v1")
	switch {
	case cfg.Limiter != nil:
		v1.Use(RateLimit(cfg.Limiter))
	case cfg.RatePerSecond > 0:
		v1.Use(RateLimit(rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(cfg.Burst, 1))))
	}
	RegisterRoutes(v1, handlers)

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	return router
}

// RegisterRoutes registers all stepper routes with the router.
//
// Description:
//
//	Registers all /v1/stepper/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET    /v1/stepper/health - Health check
//	GET    /v1/stepper/families - Families and their operations
//	POST   /v1/stepper/structures - Create or reset a structure
//	GET    /v1/stepper/structures - List structures
//	GET    /v1/stepper/structures/:name - Structure with playback status
//	DELETE /v1/stepper/structures/:name - Delete a structure
//	GET    /v1/stepper/structures/:name/history - Committed operations
//	GET    /v1/stepper/structures/:name/events - Recent session events
//	POST   /v1/stepper/structures/:name/run - Launch an operation
//	GET    /v1/stepper/structures/:name/status - Playback status
//	POST   /v1/stepper/structures/:name/playback/:action - Control playback
//	GET    /v1/stepper/structures/:name/stream - Websocket status stream
//	GET    /v1/stepper/traces/:id - Cached trace
//	GET    /v1/stepper/traces/:id/steps/:index - One step of a cached trace
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	stepper := rg.Group("/stepper")
	{
		stepper.GET("/health", handlers.HandleHealth)
		stepper.GET("/families", handlers.HandleFamilies)

		// Structures
		stepper.POST("/structures", handlers.HandleCreateStructure)
		stepper.GET("/structures", handlers.HandleListStructures)
		stepper.GET("/structures/:name", handlers.HandleGetStructure)
		stepper.DELETE("/structures/:name", handlers.HandleDeleteStructure)
		stepper.GET("/structures/:name/history", handlers.HandleHistory)
		stepper.GET("/structures/:name/events", handlers.HandleEvents)

		// Operations and playback
		stepper.POST("/structures/:name/run", handlers.HandleRun)
		stepper.GET("/structures/:name/status", handlers.HandleStatus)
		stepper.POST("/structures/:name/playback/:action", handlers.HandlePlayback)
		stepper.GET("/structures/:name/stream", handlers.HandleStream)

		// Trace scrubbing
		stepper.GET("/traces/:id", handlers.HandleTrace)
		stepper.GET("/traces/:id/steps/:index", handlers.HandleTraceStep)
	}
}
