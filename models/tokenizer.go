// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// TokenizerConfig controls encoding length handling.
type TokenizerConfig struct {
	// MaxLength is the hard cap on token count; longer inputs are
	// truncated, never rejected
	MaxLength int

	// PadID is the token id used to pad batch encodings
	PadID int64

	// AddSpecialTokens controls [CLS]/[SEP] insertion
	AddSpecialTokens bool
}

// DefaultTokenizerConfig matches the BERT-family models in the catalog:
// 512-token cap, pad id 0, special tokens on.
func DefaultTokenizerConfig() TokenizerConfig {
	return TokenizerConfig{
		MaxLength:        512,
		PadID:            0,
		AddSpecialTokens: true,
	}
}

// Tokenizer converts text into the fixed-vocabulary token ids a model
// expects. It wraps a HuggingFace tokenizer.json definition; the
// definition must be the one the model was trained with, or scores are
// garbage. Safe for concurrent use once constructed.
type Tokenizer struct {
	tk  *tokenizer.Tokenizer
	cfg TokenizerConfig
}

// LoadTokenizer reads a tokenizer.json definition from disk.
func LoadTokenizer(path string, cfg TokenizerConfig) (*Tokenizer, error) {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultTokenizerConfig().MaxLength
	}

	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrTokenizerLoad, path, err)
	}
	return &Tokenizer{tk: tk, cfg: cfg}, nil
}

// MaxLength returns the configured truncation cap.
func (t *Tokenizer) MaxLength() int {
	return t.cfg.MaxLength
}

// Encode tokenizes a single input. Inputs longer than MaxLength are
// truncated; empty input yields a valid (possibly empty) encoding. The
// ids and attention mask always have equal length.
func (t *Tokenizer) Encode(text string) (Encoding, error) {
	enc, err := t.tk.EncodeSingle(text, t.cfg.AddSpecialTokens)
	if err != nil {
		return Encoding{}, fmt.Errorf("%w: encode: %v", ErrTokenizerLoad, err)
	}

	ids := truncateIDs(toInt64(enc.Ids), t.cfg.MaxLength)
	mask := truncateIDs(toInt64(enc.AttentionMask), t.cfg.MaxLength)
	return Encoding{IDs: ids, AttentionMask: mask}, nil
}

// EncodeBatch tokenizes several inputs and pads every encoding to the
// longest in the batch, so the results can share one input tensor.
func (t *Tokenizer) EncodeBatch(texts []string) ([]Encoding, error) {
	encs := make([]Encoding, len(texts))
	longest := 0
	for i, text := range texts {
		enc, err := t.Encode(text)
		if err != nil {
			return nil, err
		}
		encs[i] = enc
		if len(enc.IDs) > longest {
			longest = len(enc.IDs)
		}
	}

	for i := range encs {
		encs[i].IDs = padIDs(encs[i].IDs, longest, t.cfg.PadID)
		encs[i].AttentionMask = padIDs(encs[i].AttentionMask, longest, 0)
	}
	return encs, nil
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

// truncateIDs caps ids at max tokens; max <= 0 means unlimited.
func truncateIDs(ids []int64, max int) []int64 {
	if max <= 0 || len(ids) <= max {
		return ids
	}
	return ids[:max]
}

// padIDs extends ids to length with the pad value. Already-long-enough
// slices are returned unchanged.
func padIDs(ids []int64, length int, pad int64) []int64 {
	for len(ids) < length {
		ids = append(ids, pad)
	}
	return ids
}
