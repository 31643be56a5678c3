// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Level represents the severity of a log entry
type Level string

const (
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
)

// Logger provides structured logging for scan-pipeline components
// (registry, loader, cache, scanners). Entries are single-line JSON so
// they can be shipped to any log aggregation system unchanged.
type Logger struct {
	Component string
	Host      string

	mu  sync.Mutex
	out io.Writer
}

// Entry is the wire format of a single log line.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     Level          `json:"level"`
	Component string         `json:"component"`
	Host      string         `json:"host"`
	ScanID    string         `json:"scan_id,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// New creates a Logger for the specified component, writing to stdout.
func New(component string) *Logger {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return &Logger{
		Component: component,
		Host:      host,
		out:       os.Stdout,
	}
}

// WithOutput returns a Logger that writes to w instead of stdout.
// Used by tests to capture entries.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	return &Logger{
		Component: l.Component,
		Host:      l.Host,
		out:       w,
	}
}

// Log writes a structured entry. scanID may be empty for entries not tied
// to a single scan (startup, preload, eviction sweeps).
func (l *Logger) Log(level Level, scanID, message string, fields map[string]any) {
	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: l.Component,
		Host:      l.Host,
		ScanID:    scanID,
		Message:   message,
		Fields:    fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		log.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(jsonBytes, '\n'))
}

// Info logs an informational message
func (l *Logger) Info(scanID, message string, fields map[string]any) {
	l.Log(INFO, scanID, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(scanID, message string, fields map[string]any) {
	l.Log(WARN, scanID, message, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(scanID, message string, fields map[string]any) {
	l.Log(DEBUG, scanID, message, fields)
}

// Error logs an error message, attaching err under the "error" field.
func (l *Logger) Error(scanID, message string, err error, fields map[string]any) {
	if err != nil {
		if fields == nil {
			fields = make(map[string]any)
		}
		fields["error"] = err.Error()
	}
	l.Log(ERROR, scanID, message, fields)
}

// InfoWithDuration logs an info message with a duration_ms field.
func (l *Logger) InfoWithDuration(scanID, message string, durationMS float64, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["duration_ms"] = durationMS
	l.Info(scanID, message, fields)
}

// Nop returns a logger that discards all output. Components accept a
// *Logger and use Nop when the caller passes nil.
func Nop() *Logger {
	return &Logger{Component: "nop", Host: "nop", out: io.Discard}
}
