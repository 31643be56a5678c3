// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

// Package types provides shared type definitions used across LLM Shield
// components. This package defines the scan result value types exchanged
// between scanners, the result cache, and API layers.
package types
