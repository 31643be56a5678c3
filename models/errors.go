// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import "errors"

// Error taxonomy for the inference core. Errors are wrapped with
// fmt.Errorf("...: %w", ...) at the failure site and matched with
// errors.Is. The core never substitutes a different model or variant on
// failure; the only sanctioned recovery is the scanner-level
// fallback-to-heuristic switch, which is a caller decision.
var (
	// ErrRegistryInvalid indicates a malformed model catalog or a
	// duplicate (task, variant) pair.
	ErrRegistryInvalid = errors.New("invalid model registry")

	// ErrModelNotFound indicates a (task, variant) pair absent from the
	// catalog.
	ErrModelNotFound = errors.New("model not found in registry")

	// ErrChecksumMismatch indicates downloaded bytes disagree with the
	// declared SHA-256. Always fatal to that download attempt; the file
	// is never retained.
	ErrChecksumMismatch = errors.New("model checksum mismatch")

	// ErrModelLoad indicates inference session construction failed
	// (corrupt file, unsupported op).
	ErrModelLoad = errors.New("model load failed")

	// ErrTokenizerLoad indicates an unresolvable or corrupt tokenizer
	// definition.
	ErrTokenizerLoad = errors.New("tokenizer load failed")

	// ErrShapeMismatch indicates encoded input incompatible with the
	// session's expected shape.
	ErrShapeMismatch = errors.New("input shape mismatch")

	// ErrInferenceUnsupported indicates the current runtime cannot
	// execute native inference (js/wasm); inference must be delegated
	// to a backend service.
	ErrInferenceUnsupported = errors.New("native inference not supported in this runtime")

	// ErrCache is reserved for persistence-backed caches. The in-memory
	// ResultCache is infallible and never returns it.
	ErrCache = errors.New("cache backend error")
)
