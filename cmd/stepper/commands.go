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
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AlgoTrace/pkg/logging"
	"github.com/AleutianAI/AlgoTrace/pkg/ux"
	"github.com/AleutianAI/AlgoTrace/services/stepper/config"
	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
)

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath       string
	personalityLevel string
	logLevel         string

	cfg           config.Config
	logger        *logging.Logger
	restoreOutput func()
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "stepper",
		Short:         "Step through textbook algorithms one snapshot at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.restoreOutput != nil {
				a.restoreOutput()
			}
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "Path to stepper.yaml")
	rootCmd.PersistentFlags().StringVar(&a.personalityLevel, "personality", "", "Output style (standard, minimal, machine)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		a.familiesCmd(),
		a.runCmd(),
		a.playCmd(),
		a.interactiveCmd(),
		a.serveCmd(),
		a.stateCmd(),
	)

	return rootCmd
}

// setup initializes output style, configuration and logging.
func (a *app) setup(cmd *cobra.Command) error {
	if a.personalityLevel != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(a.personalityLevel))
	} else {
		ux.InitPersonality()
	}
	a.restoreOutput = ux.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	a.logger = logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		JSON:    cfg.Logging.JSON,
		Service: "stepper-" + cmd.Name(),
	})
	slog.SetDefault(a.logger.Slog())
	return nil
}

// engine builds an engine bounded by the configured capacities.
func (a *app) engine() *engine.Engine {
	return engine.New(
		engine.WithLimits(a.cfg.EngineLimits()),
		engine.WithLogger(slog.Default()),
	)
}

func defaultConfigPath() string {
	if p := os.Getenv("STEPPER_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "stepper.yaml"
	}
	return filepath.Join(home, ".aleutian", "stepper", "stepper.yaml")
}
