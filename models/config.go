// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheConfig configures a ResultCache.
type CacheConfig struct {
	// MaxSize is the maximum number of live entries; 0 disables caching
	// (the cache behaves as always-miss)
	MaxSize int `yaml:"max_size" json:"max_size"`

	// TTL is the time-to-live for entries; expired entries are treated
	// as absent on next access and removed lazily
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// UnmarshalYAML accepts TTL either as a Go duration string ("10m",
// "1h30m") or as a plain number of seconds.
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxSize int    `yaml:"max_size"`
		TTL     string `yaml:"ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.MaxSize = raw.MaxSize
	if raw.TTL == "" {
		c.TTL = 0
		return nil
	}

	d, err := time.ParseDuration(raw.TTL)
	if err != nil {
		var secs int64
		if _, serr := fmt.Sscanf(raw.TTL, "%d", &secs); serr != nil {
			return fmt.Errorf("cache ttl %q: %w", raw.TTL, err)
		}
		d = time.Duration(secs) * time.Second
	}
	c.TTL = d
	return nil
}

// DefaultCacheConfig returns balanced cache settings: 1000 entries,
// 1 hour TTL.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: 1000, TTL: time.Hour}
}

// EdgeCacheConfig returns settings for edge/low-memory deployments:
// 100 entries, 10 minute TTL.
func EdgeCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: 100, TTL: 10 * time.Minute}
}

// AggressiveCacheConfig returns settings for high-traffic scenarios:
// 10000 entries, 2 hour TTL.
func AggressiveCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: 10000, TTL: 2 * time.Hour}
}

// MinimalCacheConfig returns settings for tests and memory-constrained
// environments: 10 entries, 1 minute TTL.
func MinimalCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: 10, TTL: time.Minute}
}

// DisabledCacheConfig returns a zero-capacity configuration; every Get
// misses and every Insert is dropped.
func DisabledCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: 0, TTL: 0}
}

// MLConfig is the configuration surface scanners consume to decide how
// (and whether) to run ML detection.
type MLConfig struct {
	// Enabled gates the ML path entirely; when false scanners run
	// heuristic-only
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Variant selects model precision (fp32, fp16, int8)
	Variant ModelVariant `yaml:"variant" json:"variant"`

	// Threshold is the decision boundary in [0, 1]; higher means fewer
	// false positives, more false negatives
	Threshold float32 `yaml:"threshold" json:"threshold"`

	// FallbackToHeuristic lets a scanner silently fall back to its
	// heuristic logic when any ML step fails. When false, ML failure
	// surfaces as a scan failure, never as "input is safe".
	FallbackToHeuristic bool `yaml:"fallback_to_heuristic" json:"fallback_to_heuristic"`

	// CacheEnabled gates result caching for repeated inputs
	CacheEnabled bool `yaml:"cache_enabled" json:"cache_enabled"`

	// Cache configures the result cache when enabled
	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// Validate checks the configuration for out-of-range values.
func (c MLConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be in [0.0, 1.0], got %v", ErrRegistryInvalid, c.Threshold)
	}
	if c.Enabled && !c.Variant.IsValid() {
		return fmt.Errorf("%w: unknown model variant %q", ErrRegistryInvalid, c.Variant)
	}
	if c.Cache.MaxSize < 0 {
		return fmt.Errorf("%w: cache max_size must be >= 0, got %d", ErrRegistryInvalid, c.Cache.MaxSize)
	}
	return nil
}

// ProductionConfig returns the balanced preset: fp16, 0.5 threshold,
// heuristic fallback, 1000-entry / 1 hour cache.
func ProductionConfig() MLConfig {
	return MLConfig{
		Enabled:             true,
		Variant:             VariantFP16,
		Threshold:           0.5,
		FallbackToHeuristic: true,
		CacheEnabled:        true,
		Cache:               DefaultCacheConfig(),
	}
}

// EdgeConfig returns the edge/low-memory preset: int8, 0.6 threshold,
// heuristic fallback, 100-entry / 10 minute cache.
func EdgeConfig() MLConfig {
	return MLConfig{
		Enabled:             true,
		Variant:             VariantINT8,
		Threshold:           0.6,
		FallbackToHeuristic: true,
		CacheEnabled:        true,
		Cache:               EdgeCacheConfig(),
	}
}

// HighAccuracyConfig returns the high-accuracy preset: fp32, 0.3
// threshold (very sensitive), no heuristic fallback, aggressive cache.
func HighAccuracyConfig() MLConfig {
	return MLConfig{
		Enabled:             true,
		Variant:             VariantFP32,
		Threshold:           0.3,
		FallbackToHeuristic: false,
		CacheEnabled:        true,
		Cache:               AggressiveCacheConfig(),
	}
}

// DisabledConfig returns the heuristic-only preset; no ML is invoked.
func DisabledConfig() MLConfig {
	return MLConfig{
		Enabled:             false,
		Variant:             VariantFP16,
		Threshold:           0.5,
		FallbackToHeuristic: true,
		CacheEnabled:        true,
		Cache:               DefaultCacheConfig(),
	}
}

// LoadMLConfig reads an MLConfig from a YAML file and validates it.
func LoadMLConfig(path string) (MLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MLConfig{}, fmt.Errorf("read ml config %q: %w", path, err)
	}

	cfg := DisabledConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MLConfig{}, fmt.Errorf("parse ml config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return MLConfig{}, err
	}
	return cfg, nil
}
