// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisResultCache shares inference results across scanner instances
// through Redis. Entries are JSON values under a common prefix with the
// TTL enforced server-side, so horizontally scaled deployments stop
// re-scoring inputs another instance already scored. Unlike the
// in-memory ResultCache it is fallible: callers treat a cache error as
// a miss and proceed to inference.
type RedisResultCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisResultCache creates a cache over an existing client. The
// prefix namespaces keys; pass "" for the default "llmshield:result:".
func NewRedisResultCache(client *redis.Client, prefix string, ttl time.Duration) *RedisResultCache {
	if prefix == "" {
		prefix = "llmshield:result:"
	}
	return &RedisResultCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached result for a fingerprint. A missing key is
// (zero, false, nil); a backend failure is reported as an error
// wrapping ErrCache.
func (c *RedisResultCache) Get(ctx context.Context, key string) (InferenceResult, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		promResultCacheMisses.Inc()
		return InferenceResult{}, false, nil
	}
	if err != nil {
		return InferenceResult{}, false, fmt.Errorf("%w: get: %v", ErrCache, err)
	}

	var result InferenceResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt value is useless; drop it and miss.
		c.client.Del(ctx, c.prefix+key)
		promResultCacheMisses.Inc()
		return InferenceResult{}, false, nil
	}

	promResultCacheHits.Inc()
	return result, true, nil
}

// Insert stores a result under a fingerprint with the configured TTL.
func (c *RedisResultCache) Insert(ctx context.Context, key string, result InferenceResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrCache, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrCache, err)
	}
	return nil
}

// Remove drops one entry; it returns false when the key was absent.
func (c *RedisResultCache) Remove(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: del: %v", ErrCache, err)
	}
	return n > 0, nil
}

// Clear removes every entry under the cache prefix. Uses SCAN rather
// than KEYS so a shared Redis is not blocked.
func (c *RedisResultCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: clear: %v", ErrCache, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: scan: %v", ErrCache, err)
	}
	return nil
}

// Len returns the number of entries under the cache prefix.
func (c *RedisResultCache) Len(ctx context.Context) (int, error) {
	var count int
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("%w: scan: %v", ErrCache, err)
	}
	return count, nil
}
