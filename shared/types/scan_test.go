// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassAndFail(t *testing.T) {
	pass := Pass("prompt_injection", "hello", MethodHeuristic)
	assert.True(t, pass.Valid)
	assert.Equal(t, float32(0), pass.RiskScore)
	assert.Equal(t, MethodHeuristic, pass.Method)

	fail := Fail("prompt_injection", "bad", 0.95, MethodML)
	assert.False(t, fail.Valid)
	assert.Equal(t, float32(0.95), fail.RiskScore)
}

func TestSeverityBuckets(t *testing.T) {
	tests := []struct {
		risk float32
		want Severity
	}{
		{0.0, SeverityNone},
		{0.1, SeverityLow},
		{0.4, SeverityMedium},
		{0.69, SeverityMedium},
		{0.7, SeverityHigh},
		{0.9, SeverityCritical},
		{1.0, SeverityCritical},
	}

	for _, tt := range tests {
		r := ScanResult{RiskScore: tt.risk}
		assert.Equal(t, tt.want, r.Severity(), "risk %v", tt.risk)
	}
}

func TestWithMetadataDoesNotMutateReceiver(t *testing.T) {
	base := Pass("s", "text", MethodML)
	withMeta := base.WithMetadata("model", "fp16")

	assert.Nil(t, base.Metadata)
	assert.Equal(t, "fp16", withMeta.Metadata["model"])

	// Adding to the copy must not leak into earlier copies either.
	second := withMeta.WithMetadata("threshold", "0.5")
	assert.NotContains(t, withMeta.Metadata, "threshold")
	assert.Equal(t, "0.5", second.Metadata["threshold"])
}

func TestScanResultJSONRoundTrip(t *testing.T) {
	orig := Fail("toxicity", "text", 0.8, MethodMLFallback).
		WithMetadata("matched", "instruction_override")

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded ScanResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, orig, decoded)
}

func TestDetectionMethodIsValid(t *testing.T) {
	assert.True(t, MethodHeuristic.IsValid())
	assert.True(t, MethodML.IsValid())
	assert.True(t, MethodMLFallback.IsValid())
	assert.False(t, DetectionMethod("telepathy").IsValid())
}
