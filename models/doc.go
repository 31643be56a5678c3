// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package models provides the ML inference infrastructure for LLM Shield:
the subsystem that turns a pre-trained classifier model into a cached,
thread-safe, lazily-loaded inference service consumable by any scanner.

# Components

  - Registry: model catalog with verified download and on-disk caching.
    Catalogs are YAML files listing (task, variant, url, sha256) records;
    downloads are streamed to a temp file, SHA-256 verified, and moved
    into the cache directory atomically.
  - Tokenizer: deterministic text to token-id/attention-mask encoding
    with configurable truncation and padding.
  - Loader: lazy, cached, thread-safe access to loaded inference
    sessions, keyed by (task, variant).
  - Engine: executes one inference call against a loaded session and
    post-processes raw logits with softmax (single-label) or sigmoid
    (multi-label) into bounded confidence scores.
  - ResultCache: LRU + TTL memoization of finished scan results keyed by
    an input fingerprint, with an optional Redis-backed variant.

# Scan call path

	key := models.HashKey(input)
	if r, ok := cache.Get(key); ok { return r }
	session, err := loader.Load(ctx, modelKey)
	enc, err := tok.Encode(input)
	res, err := engine.Infer(session, enc, labels, models.PostSoftmax)
	// caller applies its threshold, builds a ScanResult
	cache.Insert(key, res)

# Cross-runtime support

Registry, Tokenizer, ResultCache, and configuration work on every
platform including js/wasm. Native session construction and execution
require the ONNX runtime and are compiled out under js/wasm, where
Loader.Load returns ErrInferenceUnsupported; browser deployments are
expected to delegate inference to a backend service.
*/
package models
