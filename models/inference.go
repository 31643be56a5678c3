// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"context"
	"fmt"
	"math"

	"llmshield/platform/shared/logger"
)

// Engine turns raw session output into labeled, post-processed scores.
// The engine never decides pass/fail; thresholding belongs to the
// caller. Stateless and safe for concurrent use.
type Engine struct {
	log *logger.Logger
}

// NewEngine creates an Engine. Pass a nil log to keep it quiet.
func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{log: log}
}

// Infer runs one encoding through a session and post-processes the
// logits into per-label scores.
//
// Input validation happens before the session runs: an empty encoding
// or mismatched ids/mask lengths fail with ErrShapeMismatch. The same
// error covers a session emitting a logit count different from the
// label count, so a miswired catalog surfaces as an error instead of
// silently misaligned scores.
func (e *Engine) Infer(sess Session, enc Encoding, labels []string, post PostProcessing) (InferenceResult, error) {
	if len(enc.IDs) == 0 {
		return InferenceResult{}, fmt.Errorf("%w: empty encoding", ErrShapeMismatch)
	}
	if len(enc.IDs) != len(enc.AttentionMask) {
		return InferenceResult{}, fmt.Errorf("%w: %d ids vs %d mask values",
			ErrShapeMismatch, len(enc.IDs), len(enc.AttentionMask))
	}
	if len(labels) == 0 {
		return InferenceResult{}, fmt.Errorf("%w: no labels", ErrShapeMismatch)
	}

	logits, err := sess.Run(enc)
	if err != nil {
		return InferenceResult{}, err
	}
	if len(logits) != len(labels) {
		return InferenceResult{}, fmt.Errorf("%w: %d logits for %d labels",
			ErrShapeMismatch, len(logits), len(labels))
	}

	var scores []float32
	switch post {
	case PostSoftmax:
		scores = softmax(logits)
	case PostSigmoid:
		scores = sigmoid(logits)
	default:
		return InferenceResult{}, fmt.Errorf("unknown post-processing strategy %d", post)
	}

	idx := argmax(scores)
	return InferenceResult{
		Labels:         labels,
		Scores:         scores,
		PredictedIndex: idx,
		MaxScore:       scores[idx],
	}, nil
}

// InferContext is Infer with cancellation. The session run proceeds in
// a goroutine; when ctx expires first, the call returns ctx.Err() and
// the run's eventual result is discarded.
func (e *Engine) InferContext(ctx context.Context, sess Session, enc Encoding, labels []string, post PostProcessing) (InferenceResult, error) {
	type outcome struct {
		res InferenceResult
		err error
	}

	done := make(chan outcome, 1)
	go func() {
		res, err := e.Infer(sess, enc, labels, post)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return InferenceResult{}, ctx.Err()
	case out := <-done:
		return out.res, out.err
	}
}

// softmax normalizes logits into a distribution summing to 1. The max
// logit is subtracted first so large values cannot overflow exp.
func softmax(logits []float32) []float32 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - max))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// sigmoid maps each logit independently into (0, 1).
func sigmoid(logits []float32) []float32 {
	out := make([]float32, len(logits))
	for i, v := range logits {
		out[i] = float32(1 / (1 + math.Exp(-float64(v))))
	}
	return out
}

// argmax returns the index of the largest score; ties break toward the
// first occurrence for determinism.
func argmax(scores []float32) int {
	idx := 0
	for i, v := range scores {
		if v > scores[idx] {
			idx = i
		}
	}
	return idx
}
