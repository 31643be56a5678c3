// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"

	"llmshield/platform/shared/logger"
)

// registryFile is the YAML catalog wire format.
type registryFile struct {
	CacheDir string          `yaml:"cache_dir,omitempty"`
	Models   []ModelMetadata `yaml:"models"`
}

// Registry is the authoritative catalog of known models and their
// retrieval. The catalog is immutable after creation, so concurrent
// reads need no locking; side effects are confined to the cache
// directory.
type Registry struct {
	models   map[ModelKey]ModelMetadata
	cacheDir string
	client   *http.Client
	log      *logger.Logger
}

// LoadRegistry reads a YAML model catalog from disk.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read catalog %q: %v", ErrRegistryInvalid, path, err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses a YAML model catalog. It fails with
// ErrRegistryInvalid on malformed YAML, on a record with a missing or
// unknown field, and on a duplicate (task, variant) pair.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %v", ErrRegistryInvalid, err)
	}

	models := make(map[ModelKey]ModelMetadata, len(file.Models))
	for _, m := range file.Models {
		if !m.Task.IsValid() {
			return nil, fmt.Errorf("%w: unknown task %q", ErrRegistryInvalid, m.Task)
		}
		if !m.Variant.IsValid() {
			return nil, fmt.Errorf("%w: unknown variant %q for task %q", ErrRegistryInvalid, m.Variant, m.Task)
		}
		if m.URL == "" {
			return nil, fmt.Errorf("%w: model %s has no url", ErrRegistryInvalid, m.Key())
		}
		if m.SHA256 == "" {
			return nil, fmt.Errorf("%w: model %s has no sha256", ErrRegistryInvalid, m.Key())
		}
		key := m.Key()
		if _, dup := models[key]; dup {
			return nil, fmt.Errorf("%w: duplicate model %s", ErrRegistryInvalid, key)
		}
		models[key] = m
	}

	cacheDir := file.CacheDir
	if cacheDir == "" {
		cacheDir = defaultCacheDir()
	}

	return &Registry{
		models:   models,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 5 * time.Minute},
		log:      logger.New("model-registry"),
	}, nil
}

// SetLogger replaces the registry logger. Pass nil to silence it.
func (r *Registry) SetLogger(log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	r.log = log
}

// CacheDir returns the on-disk cache root.
func (r *Registry) CacheDir() string {
	return r.cacheDir
}

// Metadata returns the catalog entry for a key, or ErrModelNotFound.
func (r *Registry) Metadata(key ModelKey) (ModelMetadata, error) {
	m, ok := r.models[key]
	if !ok {
		return ModelMetadata{}, fmt.Errorf("%w: %s", ErrModelNotFound, key)
	}
	return m, nil
}

// HasModel reports whether the key is present in the catalog.
func (r *Registry) HasModel(key ModelKey) bool {
	_, ok := r.models[key]
	return ok
}

// Len returns the number of catalog entries.
func (r *Registry) Len() int {
	return len(r.models)
}

// ListModels returns all catalog entries, sorted by key for
// deterministic iteration.
func (r *Registry) ListModels() []ModelMetadata {
	out := make([]ModelMetadata, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

// ModelsForTask returns all catalog entries for one task.
func (r *Registry) ModelsForTask(task ModelTask) []ModelMetadata {
	var out []ModelMetadata
	for _, m := range r.ListModels() {
		if m.Task == task {
			out = append(out, m)
		}
	}
	return out
}

// VariantsForTask returns the available variants for one task.
func (r *Registry) VariantsForTask(task ModelTask) []ModelVariant {
	var out []ModelVariant
	for _, m := range r.ModelsForTask(task) {
		out = append(out, m.Variant)
	}
	return out
}

// EnsureAvailable returns the local path of a verified model file,
// downloading it first when needed.
//
// A cached copy is re-verified by SHA-256 before it is trusted; on a
// stale or corrupt cache file the model is re-downloaded. Downloads
// stream into a temp file in the cache directory and are renamed into
// place only after the checksum matches, so a cancelled or corrupted
// download never pollutes the cache. Concurrent callers requesting the
// same cold key each perform their own download; the rename makes the
// final state idempotent.
func (r *Registry) EnsureAvailable(ctx context.Context, key ModelKey) (string, error) {
	meta, err := r.Metadata(key)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(r.cacheDir, key.Filename())
	if _, err := os.Stat(dest); err == nil {
		ok, verr := fileChecksumMatches(dest, meta.SHA256)
		if verr == nil && ok {
			r.log.Debug("", "model found in cache", map[string]any{"path": dest})
			return dest, nil
		}
		r.log.Warn("", "cached model failed verification, re-downloading", map[string]any{
			"path": dest,
		})
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir %q: %w", r.cacheDir, err)
	}

	start := time.Now()
	r.log.Info("", "downloading model", map[string]any{
		"model": key.String(),
		"url":   meta.URL,
	})

	tmp, err := os.CreateTemp(r.cacheDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	// The temp file is removed on every failure path below.
	fail := func(reason string, err error) (string, error) {
		tmp.Close()
		os.Remove(tmpPath)
		promModelDownloadFailures.WithLabelValues(string(key.Task), string(key.Variant), reason).Inc()
		return "", err
	}

	hasher := sha256.New()
	sink := io.MultiWriter(tmp, hasher)

	if err := r.fetch(ctx, meta.URL, sink); err != nil {
		return fail("fetch", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("io", fmt.Errorf("flush download: %w", err))
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(got, meta.SHA256) {
		_, err := fail("checksum", fmt.Errorf("%w: %s: got %s, want %s", ErrChecksumMismatch, key, got, meta.SHA256))
		return "", err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fail("io", fmt.Errorf("move model into cache: %w", err))
	}

	promModelDownloads.WithLabelValues(string(key.Task), string(key.Variant)).Inc()
	promDownloadDuration.Observe(time.Since(start).Seconds())
	r.log.InfoWithDuration("", "model downloaded and verified",
		float64(time.Since(start).Milliseconds()), map[string]any{
			"model": key.String(),
			"path":  dest,
		})
	return dest, nil
}

// fetch streams the source into w. file:// sources are read directly
// so tests never require network access; http(s) sources are retried
// with exponential backoff on transient failures.
func (r *Registry) fetch(ctx context.Context, url string, w io.Writer) error {
	if strings.HasPrefix(url, "file://") {
		src, err := os.Open(strings.TrimPrefix(url, "file://"))
		if err != nil {
			return fmt.Errorf("open model source: %w", err)
		}
		defer src.Close()
		if _, err := io.Copy(w, src); err != nil {
			return fmt.Errorf("copy model source: %w", err)
		}
		return nil
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%w: unsupported url scheme in %q", ErrRegistryInvalid, url)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("download %q: HTTP %d", url, resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		if _, err := io.Copy(w, resp.Body); err != nil {
			// A short read mid-stream cannot be resumed into the same
			// writer; surface it and let the caller retry from scratch.
			return backoff.Permanent(fmt.Errorf("read response body: %w", err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, bo)
}

// fileChecksumMatches streams the file through SHA-256 and compares
// against the expected hex digest (case-insensitive).
func fileChecksumMatches(path, expected string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return false, err
	}
	return strings.EqualFold(hex.EncodeToString(hasher.Sum(nil)), expected), nil
}

// defaultCacheDir is <user cache dir>/llmshield/models, falling back to
// a relative .cache directory when the platform reports none.
func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = ".cache"
	}
	return filepath.Join(base, "llmshield", "models")
}
