// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"fmt"
	"strings"
)

// ModelTask identifies the classification purpose of a model.
type ModelTask string

const (
	TaskPromptInjection ModelTask = "prompt_injection"
	TaskToxicity        ModelTask = "toxicity"
	TaskSentiment       ModelTask = "sentiment"
)

// IsValid returns true if the task is a known value
func (t ModelTask) IsValid() bool {
	switch t {
	case TaskPromptInjection, TaskToxicity, TaskSentiment:
		return true
	default:
		return false
	}
}

// String returns the string representation of the task
func (t ModelTask) String() string {
	return string(t)
}

// ModelVariant identifies a numeric-precision tradeoff.
type ModelVariant string

const (
	// VariantFP32 is 32-bit floating point (highest accuracy)
	VariantFP32 ModelVariant = "fp32"
	// VariantFP16 is 16-bit floating point (balanced)
	VariantFP16 ModelVariant = "fp16"
	// VariantINT8 is 8-bit integer quantization (smallest, for edge)
	VariantINT8 ModelVariant = "int8"
)

// IsValid returns true if the variant is a known value
func (v ModelVariant) IsValid() bool {
	switch v {
	case VariantFP32, VariantFP16, VariantINT8:
		return true
	default:
		return false
	}
}

// String returns the string representation of the variant
func (v ModelVariant) String() string {
	return string(v)
}

// ModelKey is the (task, variant) pair identifying a specific model
// configuration. It is comparable and used for metadata lookup,
// loaded-session caching, and statistics.
type ModelKey struct {
	Task    ModelTask
	Variant ModelVariant
}

// String returns "task/variant", e.g. "prompt_injection/fp16".
func (k ModelKey) String() string {
	return string(k.Task) + "/" + string(k.Variant)
}

// Filename is the deterministic on-disk cache filename for the key, so
// repeated runs reuse the same path.
func (k ModelKey) Filename() string {
	return fmt.Sprintf("%s-%s.onnx", k.Task, k.Variant)
}

// ModelMetadata describes one catalog entry: where a model lives and
// how to verify it.
type ModelMetadata struct {
	Task      ModelTask    `yaml:"task" json:"task"`
	Variant   ModelVariant `yaml:"variant" json:"variant"`
	URL       string       `yaml:"url" json:"url"`
	SHA256    string       `yaml:"sha256" json:"sha256"`
	Version   string       `yaml:"version,omitempty" json:"version,omitempty"`
	SizeBytes int64        `yaml:"size_bytes,omitempty" json:"size_bytes,omitempty"`
}

// Key returns the (task, variant) identity of the entry.
func (m ModelMetadata) Key() ModelKey {
	return ModelKey{Task: m.Task, Variant: m.Variant}
}

// Encoding is the tokenizer output for one input string: token ids and
// the matching attention mask (1 for real tokens, 0 for padding). Both
// slices always have equal length. Encodings are ephemeral and owned by
// the caller of Infer.
type Encoding struct {
	IDs           []int64
	AttentionMask []int64
}

// PostProcessing selects the transform applied to raw model output.
// The set of strategies is fixed and small, so this is a closed enum
// rather than a plugin interface.
type PostProcessing int

const (
	// PostSoftmax normalizes outputs to sum to 1; for single-label
	// classification where exactly one label is true.
	PostSoftmax PostProcessing = iota
	// PostSigmoid passes each output through an independent logistic
	// function; for multi-label classification where labels can
	// co-occur (e.g. toxicity categories).
	PostSigmoid
)

// String returns the strategy name
func (p PostProcessing) String() string {
	switch p {
	case PostSoftmax:
		return "softmax"
	case PostSigmoid:
		return "sigmoid"
	default:
		return "unknown"
	}
}

// InferenceResult maps label names to confidence scores in [0, 1],
// with the arg-max label precomputed. Immutable value type; safe to
// clone and cache.
type InferenceResult struct {
	// Labels in catalog order
	Labels []string `json:"labels"`

	// Scores aligned with Labels
	Scores []float32 `json:"scores"`

	// PredictedIndex is the arg-max of Scores; ties break toward the
	// first label for determinism
	PredictedIndex int `json:"predicted_index"`

	// MaxScore is Scores[PredictedIndex]
	MaxScore float32 `json:"max_score"`
}

// PredictedLabel returns the arg-max label, or "" when the result is
// empty.
func (r InferenceResult) PredictedLabel() string {
	if r.PredictedIndex < 0 || r.PredictedIndex >= len(r.Labels) {
		return ""
	}
	return r.Labels[r.PredictedIndex]
}

// ExceedsThreshold reports whether the top score reaches the caller's
// threshold. Thresholding is caller policy; the engine never decides
// pass/fail itself.
func (r InferenceResult) ExceedsThreshold(threshold float32) bool {
	return r.MaxScore >= threshold
}

// Score returns the confidence for a label by name (case-insensitive),
// or 0 if the label is absent.
func (r InferenceResult) Score(label string) float32 {
	for i, l := range r.Labels {
		if strings.EqualFold(l, label) {
			return r.Scores[i]
		}
	}
	return 0
}
