// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists named structures and their operation history in
// BadgerDB.
//
// Keys:
//
//	structure/<name>          -> Record (JSON)
//	history/<name>/<seq:%016x> -> Entry (JSON)
//
// A record's Version increases by one on every commit, so a client can tell
// whether the structure it rendered is still current.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AlgoTrace/pkg/validation"
	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

var (
	// ErrNotFound is returned when no structure has the given name.
	ErrNotFound = errors.New("structure not found")

	// ErrInvalidName is returned for names that cannot be used as a key segment.
	ErrInvalidName = errors.New("invalid structure name")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")
)

const (
	structurePrefix = "structure/"
	historyPrefix   = "history/"
)

// Config holds configuration for a Store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// SyncWrites makes every commit durable before returning.
	SyncWrites bool

	// GCInterval is how often value log GC runs. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	GCDiscardRatio float64

	// Logger receives BadgerDB's internal logs. nil silences them.
	Logger *slog.Logger
}

// DefaultConfig returns durable settings with a 5-minute GC.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Record is a persisted structure.
type Record struct {
	Name      string             `json:"name"`
	Family    string             `json:"family"`
	Container snapshot.Container `json:"container"`
	Version   int                `json:"version"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Entry is one committed operation in a structure's history.
type Entry struct {
	Seq       uint64    `json:"seq"`
	Family    string    `json:"family"`
	Op        string    `json:"op"`
	Params    string    `json:"params,omitempty"`
	Steps     int       `json:"steps"`
	Outcome   string    `json:"outcome"`
	Version   int       `json:"version"`
	Committed time.Time `json:"committed"`
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is a BadgerDB-backed structure repository.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger

	stopGC chan struct{}
	gcDone chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// Open opens or creates a store.
//
// Description:
//
//	Opens BadgerDB at cfg.Path, or in memory. Creates the directory if it
//	doesn't exist and starts value log GC when configured.
//
// Outputs:
//
//	*Store - Caller must Close it.
//	error - Non-nil if the path is missing or the database cannot be opened.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence([]byte("meta/history-seq"), 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open history sequence: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		db:     db,
		seq:    seq,
		logger: logger.With(slog.String("component", "store")),
		closed: make(chan struct{}),
	}
	if err := s.reserveIDs(); err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, err
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// OpenInMemory opens an in-memory store.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops GC and closes the database. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.stopGC != nil {
			close(s.stopGC)
			<-s.gcDone
		}
		err = errors.Join(s.seq.Release(), s.db.Close())
	})
	return err
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// ValidateName checks that name can be used as a key segment.
func ValidateName(name string) error {
	if err := validation.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return nil
}

// Put stores a structure under name, replacing any previous one. The
// version restarts at 1. History is kept.
func (s *Store) Put(ctx context.Context, name, family string, c snapshot.Container) (Record, error) {
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	if err := s.ready(ctx); err != nil {
		return Record{}, err
	}
	rec := Record{Name: name, Family: family, Container: c.Clone(), Version: 1, UpdatedAt: time.Now().UTC()}
	err := s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, structurePrefix+name, rec)
	})
	if err != nil {
		return Record{}, fmt.Errorf("put %s: %w", name, err)
	}
	return rec, nil
}

// Commit replaces the container of an existing structure and appends a
// history entry in the same transaction.
func (s *Store) Commit(ctx context.Context, name string, c snapshot.Container, e Entry) (Record, error) {
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	if err := s.ready(ctx); err != nil {
		return Record{}, err
	}
	seq, err := s.seq.Next()
	if err != nil {
		return Record{}, fmt.Errorf("next history seq: %w", err)
	}

	var rec Record
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, structurePrefix+name, &rec); err != nil {
			return err
		}
		rec.Container = c.Clone()
		rec.Version++
		rec.UpdatedAt = time.Now().UTC()
		if err := putJSON(txn, structurePrefix+name, rec); err != nil {
			return err
		}
		e.Seq = seq
		e.Version = rec.Version
		e.Committed = rec.UpdatedAt
		return putJSON(txn, historyKey(name, seq), e)
	})
	if err != nil {
		return Record{}, fmt.Errorf("commit %s: %w", name, err)
	}
	return rec, nil
}

// Get returns the structure stored under name.
func (s *Store) Get(ctx context.Context, name string) (Record, error) {
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	if err := s.ready(ctx); err != nil {
		return Record{}, err
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, structurePrefix+name, &rec)
	})
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", name, err)
	}
	observe(rec)
	return rec, nil
}

// List returns every structure ordered by name.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, structurePrefix, func(val []byte) error {
			var rec Record
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			observe(rec)
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list structures: %w", err)
	}
	return out, nil
}

// Delete removes a structure and its history.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.ready(ctx); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(structurePrefix + name)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		var keys [][]byte
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(historyPrefix + name + "/")})
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// History returns the committed operations of name, oldest first. limit
// <= 0 returns all of them; otherwise the newest limit entries.
func (s *Store) History(ctx context.Context, name string, limit int) ([]Entry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var out []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, historyPrefix+name+"/", func(val []byte) error {
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", name, err)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// reserveIDs moves the process identity allocator past every element id
// already persisted, so that structures loaded from an earlier run never
// share an id with elements allocated in this one.
func (s *Store) reserveIDs() error {
	var highest identity.ID
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, structurePrefix, func(val []byte) error {
			var rec Record
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			highest = max(highest, identity.Max(rec.Container.IDs()))
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("reserve element ids: %w", err)
	}
	identity.Observe(highest)
	if highest != identity.None {
		s.logger.Debug("element ids reserved", slog.String("highest", highest.String()))
	}
	return nil
}

func observe(rec Record) {
	identity.Observe(identity.Max(rec.Container.IDs()))
}

func historyKey(name string, seq uint64) string {
	return fmt.Sprintf("%s%s/%016x", historyPrefix, name, seq)
}

func putJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func scan(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix), PrefetchValues: true, PrefetchSize: 32})
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
