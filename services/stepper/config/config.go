// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the stepper configuration from YAML with STEPPER_*
// environment overrides, and can watch the file for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
	"github.com/AleutianAI/AlgoTrace/services/stepper/playback"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// validate is the shared validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the root of stepper.yaml.
type Config struct {
	Playback  PlaybackConfig  `yaml:"playback"`
	Capacity  CapacityConfig  `yaml:"capacity"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PlaybackConfig bounds the playback cadence.
type PlaybackConfig struct {
	Period    time.Duration `yaml:"period" validate:"gte=100ms,lte=2s"`
	MinPeriod time.Duration `yaml:"min_period" validate:"gte=100ms,lte=2s"`
	MaxPeriod time.Duration `yaml:"max_period" validate:"gte=100ms,lte=2s"`
}

// CapacityConfig holds default capacities per bounded family.
type CapacityConfig struct {
	Array       int `yaml:"array" validate:"gte=1,lte=1024"`
	Stack       int `yaml:"stack" validate:"gte=1,lte=1024"`
	Queue       int `yaml:"queue" validate:"gte=1,lte=1024"`
	Deque       int `yaml:"deque" validate:"gte=1,lte=1024"`
	Heap        int `yaml:"heap" validate:"gte=1,lte=1024"`
	Max         int `yaml:"max" validate:"gte=1,lte=1024"`
	MaxElements int `yaml:"max_elements" validate:"gte=1,lte=1024"`
	ForestSize  int `yaml:"forest_size" validate:"gte=1,lte=1024"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port" validate:"gte=1,lte=65535"`
	RatePerSecond  float64 `yaml:"rate_per_second" validate:"gt=0"`
	Burst          int     `yaml:"burst" validate:"gte=1"`
	TraceCacheSize int     `yaml:"trace_cache_size" validate:"gte=1"`
	HistorySize    int     `yaml:"history_size" validate:"gte=1"`
}

// StoreConfig selects where structures persist.
type StoreConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// TelemetryConfig selects exporters.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Playback: PlaybackConfig{
			Period:    500 * time.Millisecond,
			MinPeriod: 100 * time.Millisecond,
			MaxPeriod: 2 * time.Second,
		},
		Capacity: CapacityConfig{
			Array:       10,
			Stack:       8,
			Queue:       8,
			Deque:       8,
			Heap:        15,
			Max:         64,
			MaxElements: 64,
			ForestSize:  8,
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           12230,
			RatePerSecond:  20,
			Burst:          40,
			TraceCacheSize: 256,
			HistorySize:    64,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "stepper",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
			Insecure:       true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "stepper", "store")
	}
	return filepath.Join(home, ".aleutian", "stepper", "store")
}

// ApplyDefaults fills zero fields from Default.
func (c *Config) ApplyDefaults() {
	d := Default()
	setDuration(&c.Playback.Period, d.Playback.Period)
	setDuration(&c.Playback.MinPeriod, d.Playback.MinPeriod)
	setDuration(&c.Playback.MaxPeriod, d.Playback.MaxPeriod)

	setInt(&c.Capacity.Array, d.Capacity.Array)
	setInt(&c.Capacity.Stack, d.Capacity.Stack)
	setInt(&c.Capacity.Queue, d.Capacity.Queue)
	setInt(&c.Capacity.Deque, d.Capacity.Deque)
	setInt(&c.Capacity.Heap, d.Capacity.Heap)
	setInt(&c.Capacity.Max, d.Capacity.Max)
	setInt(&c.Capacity.MaxElements, d.Capacity.MaxElements)
	setInt(&c.Capacity.ForestSize, d.Capacity.ForestSize)

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	setInt(&c.Server.Port, d.Server.Port)
	if c.Server.RatePerSecond == 0 {
		c.Server.RatePerSecond = d.Server.RatePerSecond
	}
	setInt(&c.Server.Burst, d.Server.Burst)
	setInt(&c.Server.TraceCacheSize, d.Server.TraceCacheSize)
	setInt(&c.Server.HistorySize, d.Server.HistorySize)

	if c.Store.Path == "" && !c.Store.InMemory {
		c.Store.Path = d.Store.Path
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = d.Telemetry.ServiceName
	}
	if c.Telemetry.TraceExporter == "" {
		c.Telemetry.TraceExporter = d.Telemetry.TraceExporter
	}
	if c.Telemetry.MetricExporter == "" {
		c.Telemetry.MetricExporter = d.Telemetry.MetricExporter
	}
	if c.Telemetry.OTLPEndpoint == "" {
		c.Telemetry.OTLPEndpoint = d.Telemetry.OTLPEndpoint
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

func setInt(v *int, d int) {
	if *v == 0 {
		*v = d
	}
}

func setDuration(v *time.Duration, d time.Duration) {
	if *v == 0 {
		*v = d
	}
}

// Validate checks struct tags and the cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	p := c.Playback
	if p.MinPeriod > p.MaxPeriod {
		return fmt.Errorf("%w: playback.min_period %v exceeds max_period %v", ErrInvalidConfig, p.MinPeriod, p.MaxPeriod)
	}
	if p.Period < p.MinPeriod || p.Period > p.MaxPeriod {
		return fmt.Errorf("%w: playback.period %v outside [%v, %v]", ErrInvalidConfig, p.Period, p.MinPeriod, p.MaxPeriod)
	}
	k := c.Capacity
	for name, v := range map[string]int{"array": k.Array, "stack": k.Stack, "queue": k.Queue, "deque": k.Deque, "heap": k.Heap} {
		if v > k.Max {
			return fmt.Errorf("%w: capacity.%s %d exceeds capacity.max %d", ErrInvalidConfig, name, v, k.Max)
		}
	}
	if k.ForestSize > k.MaxElements {
		return fmt.Errorf("%w: capacity.forest_size %d exceeds capacity.max_elements %d", ErrInvalidConfig, k.ForestSize, k.MaxElements)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required unless store.in_memory is set", ErrInvalidConfig)
	}
	if c.Telemetry.TraceExporter == "otlp" && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("%w: telemetry.otlp_endpoint is required for the otlp exporter", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnv overrides fields from STEPPER_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = b
		return nil
	}

	str("STEPPER_HOST", &c.Server.Host)
	str("STEPPER_STORE_PATH", &c.Store.Path)
	str("STEPPER_LOG_LEVEL", &c.Logging.Level)
	str("STEPPER_LOG_DIR", &c.Logging.Dir)
	str("STEPPER_TRACE_EXPORTER", &c.Telemetry.TraceExporter)
	str("STEPPER_METRIC_EXPORTER", &c.Telemetry.MetricExporter)
	str("STEPPER_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)

	if v, ok := lookup("STEPPER_PERIOD"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: STEPPER_PERIOD: %w", ErrInvalidConfig, err)
		}
		c.Playback.Period = d
	}
	for key, dst := range map[string]*int{
		"STEPPER_PORT":             &c.Server.Port,
		"STEPPER_BURST":            &c.Server.Burst,
		"STEPPER_TRACE_CACHE_SIZE": &c.Server.TraceCacheSize,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*bool{
		"STEPPER_IN_MEMORY": &c.Store.InMemory,
		"STEPPER_LOG_JSON":  &c.Logging.JSON,
	} {
		if err := flag(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Load reads path (a missing file yields the defaults), applies STEPPER_*
// overrides from the process environment and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// EngineLimits converts the capacity section.
func (c Config) EngineLimits() engine.Limits {
	k := c.Capacity
	return engine.Limits{
		Capacity: map[engine.Family]int{
			engine.FamilyArray:   k.Array,
			engine.FamilyStack:   k.Stack,
			engine.FamilyQueue:   k.Queue,
			engine.FamilyDeque:   k.Deque,
			engine.FamilyMinHeap: k.Heap,
			engine.FamilyMaxHeap: k.Heap,
		},
		MaxCapacity: k.Max,
		MaxElements: k.MaxElements,
		ForestSize:  k.ForestSize,
	}
}

// PlaybackBounds converts the playback section.
func (c Config) PlaybackBounds() playback.Config {
	return playback.Config{
		Period:    c.Playback.Period,
		MinPeriod: c.Playback.MinPeriod,
		MaxPeriod: c.Playback.MaxPeriod,
	}
}
