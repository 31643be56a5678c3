// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(js && wasm)

package models

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// NativeInferenceAvailable reports whether this build can execute ONNX
// models in-process.
func NativeInferenceAvailable() bool {
	return true
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initializes the ONNX Runtime environment once per
// process. The environment is never torn down; sessions come and go,
// the runtime stays.
func initRuntime() error {
	ortInitOnce.Do(func() {
		if !ort.IsInitialized() {
			ortInitErr = ort.InitializeEnvironment()
		}
	})
	return ortInitErr
}

// onnxSession runs a transformer classifier through ONNX Runtime. The
// models in the catalog all take (input_ids, attention_mask) int64
// tensors of shape [1, seq] and emit a float32 logits tensor.
type onnxSession struct {
	sess *ort.DynamicAdvancedSession
}

func newSession(path string) (Session, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("%w: initialize onnx runtime: %v", ErrModelLoad, err)
	}

	sess, err := ort.NewDynamicAdvancedSession(path,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrModelLoad, path, err)
	}
	return &onnxSession{sess: sess}, nil
}

func (s *onnxSession) Run(enc Encoding) ([]float32, error) {
	shape := ort.NewShape(1, int64(len(enc.IDs)))

	ids, err := ort.NewTensor(shape, enc.IDs)
	if err != nil {
		return nil, fmt.Errorf("%w: input_ids tensor: %v", ErrShapeMismatch, err)
	}
	defer ids.Destroy()

	mask, err := ort.NewTensor(shape, enc.AttentionMask)
	if err != nil {
		return nil, fmt.Errorf("%w: attention_mask tensor: %v", ErrShapeMismatch, err)
	}
	defer mask.Destroy()

	outputs := []ort.Value{nil}
	if err := s.sess.Run([]ort.Value{ids, mask}, outputs); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		outputs[0].Destroy()
		return nil, fmt.Errorf("%w: model emitted non-float32 logits", ErrShapeMismatch)
	}
	defer out.Destroy()

	data := out.GetData()
	logits := make([]float32, len(data))
	copy(logits, data)
	return logits, nil
}

func (s *onnxSession) Close() error {
	return s.sess.Destroy()
}
