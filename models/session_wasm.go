// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

//go:build js && wasm

package models

import "fmt"

// NativeInferenceAvailable reports whether this build can execute ONNX
// models in-process. Browser/wasm builds cannot; callers should scan
// heuristically or delegate inference to a backend service.
func NativeInferenceAvailable() bool {
	return false
}

func newSession(path string) (Session, error) {
	return nil, fmt.Errorf("%w: %q", ErrInferenceUnsupported, path)
}
