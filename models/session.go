// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

// Session is a loaded model ready to score encoded input. Run returns
// the raw logits; post-processing is the engine's job. Implementations
// are safe for concurrent Run calls but not for Run concurrent with
// Close.
type Session interface {
	// Run executes the model over one encoding and returns raw logits.
	Run(enc Encoding) ([]float32, error)

	// Close releases the backing runtime resources. The session must
	// not be used afterwards.
	Close() error
}
