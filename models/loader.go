// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"llmshield/platform/shared/logger"
)

// SessionLoader is the loading surface scanners depend on. *Loader is
// the production implementation; tests substitute failing or canned
// loaders.
type SessionLoader interface {
	Load(ctx context.Context, key ModelKey) (Session, error)
}

// LoaderStats is a point-in-time snapshot of loader activity.
type LoaderStats struct {
	Loaded []ModelKey `json:"loaded"`
	Hits   uint64     `json:"hits"`
	Misses uint64     `json:"misses"`
}

// Loader caches constructed inference sessions by (task, variant).
// Construction is expensive (download, verify, parse the graph), so a
// session is built once and shared; Session implementations allow
// concurrent Run. Safe for concurrent use.
type Loader struct {
	registry *Registry
	log      *logger.Logger

	mu       sync.RWMutex
	sessions map[ModelKey]Session
	hits     uint64
	misses   uint64

	// newSession is swapped in tests; production uses the build-tagged
	// backend constructor.
	newSession func(path string) (Session, error)
}

// NewLoader creates a Loader over a registry. Pass a nil log to keep
// the loader quiet.
func NewLoader(registry *Registry, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		registry:   registry,
		log:        log,
		sessions:   make(map[ModelKey]Session),
		newSession: newSession,
	}
}

// Load returns a ready session for the key, constructing and caching it
// on first use. Concurrent callers for the same cold key may each build
// a session; exactly one wins the insert and the losers close theirs,
// so at most one live session per key is ever cached.
func (l *Loader) Load(ctx context.Context, key ModelKey) (Session, error) {
	l.mu.RLock()
	sess, ok := l.sessions[key]
	l.mu.RUnlock()
	if ok {
		l.mu.Lock()
		l.hits++
		l.mu.Unlock()
		promSessionCacheHits.Inc()
		return sess, nil
	}

	path, err := l.registry.EnsureAvailable(ctx, key)
	if err != nil {
		return nil, err
	}

	fresh, err := l.newSession(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if existing, raced := l.sessions[key]; raced {
		l.hits++
		l.mu.Unlock()
		fresh.Close()
		promSessionCacheHits.Inc()
		return existing, nil
	}
	l.sessions[key] = fresh
	l.misses++
	l.mu.Unlock()

	promSessionLoads.WithLabelValues(string(key.Task), string(key.Variant)).Inc()
	l.log.Info("", "model session loaded", map[string]any{"model": key.String()})
	return fresh, nil
}

// Preload warms the cache for a set of keys so first scans do not pay
// the load cost. Every key is attempted; failures are collected per key
// and returned joined, so one bad key never blocks the rest of the
// batch.
func (l *Loader) Preload(ctx context.Context, keys ...ModelKey) error {
	var errs []error
	for _, key := range keys {
		if _, err := l.Load(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("preload %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Unload closes and removes a cached session. It returns false when the
// key was not loaded.
func (l *Loader) Unload(key ModelKey) bool {
	l.mu.Lock()
	sess, ok := l.sessions[key]
	if ok {
		delete(l.sessions, key)
	}
	l.mu.Unlock()

	if !ok {
		return false
	}
	if err := sess.Close(); err != nil {
		l.log.Error("", "session close failed", err, map[string]any{"model": key.String()})
	}
	return true
}

// Close releases every cached session. The loader remains usable;
// subsequent Loads rebuild.
func (l *Loader) Close() {
	l.mu.Lock()
	sessions := l.sessions
	l.sessions = make(map[ModelKey]Session)
	l.mu.Unlock()

	for key, sess := range sessions {
		if err := sess.Close(); err != nil {
			l.log.Error("", "session close failed", err, map[string]any{"model": key.String()})
		}
	}
}

// Len returns the number of cached sessions.
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}

// LoadedModels returns the keys of all cached sessions, sorted.
func (l *Loader) LoadedModels() []ModelKey {
	return l.Stats().Loaded
}

// IsLoaded reports whether a session for the key is currently cached.
func (l *Loader) IsLoaded(key ModelKey) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.sessions[key]
	return ok
}

// Stats returns a snapshot of loaded keys (sorted) and hit/miss counts.
func (l *Loader) Stats() LoaderStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]ModelKey, 0, len(l.sessions))
	for k := range l.sessions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	return LoaderStats{Loaded: keys, Hits: l.hits, Misses: l.misses}
}
