// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"context"

	"llmshield/platform/models"
	"llmshield/platform/shared/types"
)

// Scanner checks one input and returns a verdict. Implementations are
// safe for concurrent use.
type Scanner interface {
	// Name identifies the scanner in results and logs.
	Name() string

	// Scan evaluates the input. The returned result is only meaningful
	// when err is nil; scanners never encode "scan failed" as a passing
	// result.
	Scan(ctx context.Context, input string) (types.ScanResult, error)
}

// Encoder converts text into model input. *models.Tokenizer is the
// production implementation.
type Encoder interface {
	Encode(text string) (models.Encoding, error)
}
