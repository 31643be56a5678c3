// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []int64
		max  int
		want []int64
	}{
		{"under limit", []int64{1, 2, 3}, 5, []int64{1, 2, 3}},
		{"at limit", []int64{1, 2, 3}, 3, []int64{1, 2, 3}},
		{"over limit", []int64{1, 2, 3, 4, 5}, 3, []int64{1, 2, 3}},
		{"zero max means unlimited", []int64{1, 2, 3}, 0, []int64{1, 2, 3}},
		{"empty input", []int64{}, 3, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateIDs(tt.ids, tt.max))
		})
	}
}

func TestPadIDs(t *testing.T) {
	tests := []struct {
		name   string
		ids    []int64
		length int
		pad    int64
		want   []int64
	}{
		{"shorter than target", []int64{1, 2}, 4, 0, []int64{1, 2, 0, 0}},
		{"already at target", []int64{1, 2, 3}, 3, 0, []int64{1, 2, 3}},
		{"longer than target unchanged", []int64{1, 2, 3}, 2, 0, []int64{1, 2, 3}},
		{"custom pad id", []int64{7}, 3, 9, []int64{7, 9, 9}},
		{"empty to padded", []int64{}, 2, 0, []int64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, padIDs(tt.ids, tt.length, tt.pad))
		})
	}
}

func TestDefaultTokenizerConfig(t *testing.T) {
	cfg := DefaultTokenizerConfig()
	assert.Equal(t, 512, cfg.MaxLength)
	assert.Equal(t, int64(0), cfg.PadID)
	assert.True(t, cfg.AddSpecialTokens)
}

func TestLoadTokenizerMissingFile(t *testing.T) {
	_, err := LoadTokenizer("/nonexistent/tokenizer.json", DefaultTokenizerConfig())
	assert.ErrorIs(t, err, ErrTokenizerLoad)
}
