// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AlgoTrace/pkg/ux"
	"github.com/AleutianAI/AlgoTrace/services/stepper"
	"github.com/AleutianAI/AlgoTrace/services/stepper/config"
	"github.com/AleutianAI/AlgoTrace/services/stepper/store"
	"github.com/AleutianAI/AlgoTrace/services/stepper/telemetry"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stepper HTTP API",
		Long: `Serves /v1/stepper with persistent structures, per-structure
playback and a websocket status stream. Prometheus metrics are served at
/metrics. Editing the config file retunes the rate limiter in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from server.port)")
	return cmd
}

// openStore opens the configured store.
func (a *app) openStore() (*store.Store, error) {
	if a.cfg.Store.InMemory {
		return store.OpenInMemory()
	}
	sc := store.DefaultConfig()
	sc.Path = a.cfg.Store.Path
	sc.Logger = slog.Default()
	return store.Open(sc)
}

// serve runs the API until SIGINT or SIGTERM.
//
// Description:
//
//	Starts telemetry, opens the store, builds the service and router, and
//	runs the HTTP server next to the config watcher in one errgroup. The
//	first failure or a signal shuts everything down.
func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceName = cfg.Telemetry.ServiceName
	tcfg.ServiceVersion = stepper.ServiceVersion
	tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tcfg.OTLPInsecure = cfg.Telemetry.Insecure
	shutdownTelemetry, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := stepper.NewService(a.engine(), st, stepper.ServiceConfig{
		Playback:       cfg.PlaybackBounds(),
		TraceCacheSize: cfg.Server.TraceCacheSize,
		EventHistory:   cfg.Server.HistorySize,
	}, slog.Default())
	if err != nil {
		return err
	}
	defer svc.Close()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.Burst)
	router := stepper.NewRouter(stepper.NewHandlers(svc), stepper.RouterConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Limiter:     limiter,
		Metrics:     telemetry.MetricsHandler(),
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting stepper server", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down stepper server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if _, err := os.Stat(a.configPath); err == nil {
		g.Go(func() error {
			err := config.Watch(gctx, a.configPath, func(next config.Config) {
				limiter.SetLimit(rate.Limit(next.Server.RatePerSecond))
				limiter.SetBurst(next.Server.Burst)
				slog.Info("rate limit updated",
					slog.Float64("rate_per_second", next.Server.RatePerSecond),
					slog.Int("burst", next.Server.Burst),
				)
			}, slog.Default())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		ux.Warning(fmt.Sprintf("no config file at %s; rate limits will not hot-reload", a.configPath))
	}

	ux.Success(fmt.Sprintf("stepper listening on http://%s/v1/stepper", addr))
	return g.Wait()
}
