// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

// Package scanner implements input scanners for LLM prompts.
//
// Scanners are hybrid: each one carries fast heuristic pattern
// detection and can layer ML inference from the models package on top.
// The MLConfig passed at construction decides the mix. When ML is
// enabled and fails at any step (load, encode, infer), behavior follows
// FallbackToHeuristic: fall back to pattern detection, or surface the
// error. A failure is never silently reported as "input is safe".
package scanner
