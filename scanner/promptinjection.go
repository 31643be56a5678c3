// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"llmshield/platform/models"
	"llmshield/platform/shared/logger"
	"llmshield/platform/shared/types"
)

const promptInjectionName = "PromptInjection"

// injectionLabels is the output head of the prompt-injection models in
// the catalog: binary classification, softmax over the pair.
var injectionLabels = []string{"SAFE", "INJECTION"}

// PromptInjection detects attempts to override, extract, or confuse an
// LLM's instructions.
//
// With ML enabled it tokenizes the input, scores it with a transformer
// classifier, and thresholds the INJECTION probability; repeated inputs
// are answered from the result cache without re-running inference. With
// ML disabled (or after an ML failure when FallbackToHeuristic is set)
// it falls back to pattern-based detection. Safe for concurrent use.
type PromptInjection struct {
	cfg     models.MLConfig
	loader  models.SessionLoader
	encoder Encoder
	engine  *models.Engine
	cache   *models.ResultCache
	log     *logger.Logger
}

// NewPromptInjection builds the scanner. loader and encoder may be nil
// when cfg.Enabled is false; with ML enabled both are required. Pass a
// nil log to keep the scanner quiet.
func NewPromptInjection(cfg models.MLConfig, loader models.SessionLoader, encoder Encoder, log *logger.Logger) (*PromptInjection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Enabled {
		if loader == nil {
			return nil, fmt.Errorf("%w: ml enabled but no session loader", models.ErrRegistryInvalid)
		}
		if encoder == nil {
			return nil, fmt.Errorf("%w: ml enabled but no encoder", models.ErrRegistryInvalid)
		}
	}
	if log == nil {
		log = logger.Nop()
	}

	var cache *models.ResultCache
	if cfg.CacheEnabled && cfg.Cache.MaxSize > 0 {
		cache = models.NewResultCache(cfg.Cache)
	}

	return &PromptInjection{
		cfg:     cfg,
		loader:  loader,
		encoder: encoder,
		engine:  models.NewEngine(log),
		cache:   cache,
		log:     log,
	}, nil
}

// Name implements Scanner.
func (s *PromptInjection) Name() string {
	return promptInjectionName
}

// CacheStats exposes result-cache counters; zero when caching is off.
func (s *PromptInjection) CacheStats() models.CacheStats {
	if s.cache == nil {
		return models.CacheStats{}
	}
	return s.cache.Stats()
}

// Scan implements Scanner.
func (s *PromptInjection) Scan(ctx context.Context, input string) (types.ScanResult, error) {
	scanID := uuid.NewString()

	if !s.cfg.Enabled {
		return s.scanHeuristic(scanID, input, types.MethodHeuristic), nil
	}

	fingerprint := models.HashKey(input)
	if s.cache != nil {
		if cached, ok := s.cache.Get(fingerprint); ok {
			s.log.Debug(scanID, "result cache hit", nil)
			return s.verdict(input, cached, types.MethodML).
				WithMetadata("cached", "true"), nil
		}
	}

	inference, err := s.scanML(ctx, input)
	if err != nil {
		if s.cfg.FallbackToHeuristic {
			s.log.Warn(scanID, "ml detection failed, falling back to heuristics", map[string]any{
				"error": err.Error(),
			})
			return s.scanHeuristic(scanID, input, types.MethodMLFallback), nil
		}
		return types.ScanResult{}, fmt.Errorf("prompt injection scan: %w", err)
	}

	if s.cache != nil {
		s.cache.Insert(fingerprint, inference)
	}
	return s.verdict(input, inference, types.MethodML), nil
}

// scanML runs the full inference path: load session, encode, infer.
func (s *PromptInjection) scanML(ctx context.Context, input string) (models.InferenceResult, error) {
	key := models.ModelKey{Task: models.TaskPromptInjection, Variant: s.cfg.Variant}

	sess, err := s.loader.Load(ctx, key)
	if err != nil {
		return models.InferenceResult{}, err
	}

	enc, err := s.encoder.Encode(input)
	if err != nil {
		return models.InferenceResult{}, err
	}

	return s.engine.InferContext(ctx, sess, enc, injectionLabels, models.PostSoftmax)
}

// verdict thresholds the INJECTION probability into a pass/fail result.
func (s *PromptInjection) verdict(input string, res models.InferenceResult, method types.DetectionMethod) types.ScanResult {
	score := res.Score("INJECTION")

	var out types.ScanResult
	if score < s.cfg.Threshold {
		out = types.Pass(promptInjectionName, input, method)
		out.RiskScore = score
	} else {
		out = types.Fail(promptInjectionName, input, score, method)
	}
	return out.
		WithMetadata("model_score", formatScore(score)).
		WithMetadata("predicted_label", res.PredictedLabel()).
		WithMetadata("threshold", formatScore(s.cfg.Threshold))
}

// scanHeuristic runs pattern detection and thresholds its score.
func (s *PromptInjection) scanHeuristic(scanID, input string, method types.DetectionMethod) types.ScanResult {
	score, indicators := detectInjectionHeuristics(input)

	var out types.ScanResult
	if score < s.cfg.Threshold {
		out = types.Pass(promptInjectionName, input, method)
		out.RiskScore = score
	} else {
		s.log.Info(scanID, "prompt injection detected", map[string]any{
			"score":      score,
			"indicators": len(indicators),
		})
		out = types.Fail(promptInjectionName, input, score, method)
	}

	out = out.
		WithMetadata("injection_score", formatScore(score)).
		WithMetadata("indicator_count", strconv.Itoa(len(indicators)))
	if len(indicators) > 0 {
		out = out.WithMetadata("categories", joinCategories(indicators))
	}
	return out
}

func joinCategories(indicators []indicator) string {
	seen := make(map[string]bool, len(indicators))
	var cats []string
	for _, ind := range indicators {
		if !seen[ind.Category] {
			seen[ind.Category] = true
			cats = append(cats, ind.Category)
		}
	}
	return strings.Join(cats, ",")
}

func formatScore(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 4, 32)
}
