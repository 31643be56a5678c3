// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package logger provides structured JSON logging for LLM Shield components.

Each log entry is a single JSON line on stdout containing a timestamp
(RFC3339Nano), level, component name, host, an optional scan id for
request correlation, the message, and free-form fields:

	log := logger.New("model-registry")
	log.Info("", "model downloaded", map[string]any{
	    "task":    "prompt_injection",
	    "variant": "fp16",
	})

Output:

	{"timestamp":"2025-01-15T10:30:00.123456789Z","level":"INFO",
	 "component":"model-registry","host":"worker-1",
	 "message":"model downloaded","fields":{"task":"prompt_injection","variant":"fp16"}}

Logger instances are safe for concurrent use from multiple goroutines.
*/
package logger
