// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the inference core. These are observability
// only and never affect control flow.
var (
	promModelDownloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmshield_model_downloads_total",
			Help: "Total number of completed model downloads",
		},
		[]string{"task", "variant"},
	)
	promModelDownloadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmshield_model_download_failures_total",
			Help: "Total number of failed model downloads, by reason",
		},
		[]string{"task", "variant", "reason"},
	)
	promDownloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llmshield_model_download_duration_seconds",
			Help:    "Model download duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
	promSessionLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmshield_session_loads_total",
			Help: "Total number of inference session constructions",
		},
		[]string{"task", "variant"},
	)
	promSessionCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "llmshield_session_cache_hits_total",
			Help: "Total number of loader cache hits",
		},
	)
	promResultCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "llmshield_result_cache_hits_total",
			Help: "Total number of result cache hits",
		},
	)
	promResultCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "llmshield_result_cache_misses_total",
			Help: "Total number of result cache misses",
		},
	)
	promResultCacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "llmshield_result_cache_evictions_total",
			Help: "Total number of LRU evictions from the result cache",
		},
	)
)

func init() {
	prometheus.MustRegister(promModelDownloads)
	prometheus.MustRegister(promModelDownloadFailures)
	prometheus.MustRegister(promDownloadDuration)
	prometheus.MustRegister(promSessionLoads)
	prometheus.MustRegister(promSessionCacheHits)
	prometheus.MustRegister(promResultCacheHits)
	prometheus.MustRegister(promResultCacheMisses)
	prometheus.MustRegister(promResultCacheEvictions)
}
