// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package types

// DetectionMethod records which detection path produced a scan result.
// Useful for monitoring and debugging hybrid scanners.
type DetectionMethod string

const (
	// MethodHeuristic means only pattern matching was used
	MethodHeuristic DetectionMethod = "heuristic"
	// MethodML means only model inference was used
	MethodML DetectionMethod = "ml"
	// MethodMLFallback means ML was attempted but failed, and the scanner
	// fell back to its heuristic logic
	MethodMLFallback DetectionMethod = "ml_fallback_to_heuristic"
)

// IsValid returns true if the DetectionMethod is a known value
func (m DetectionMethod) IsValid() bool {
	switch m {
	case MethodHeuristic, MethodML, MethodMLFallback:
		return true
	default:
		return false
	}
}

// Severity buckets a risk score for reporting
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ScanResult is the outcome of one scanner run over one input.
//
// It is an immutable value type: scanners build it once and callers
// (including the result cache) copy it freely. All fields serialize to
// JSON so results can be cached in external stores or returned over the
// wire unchanged.
type ScanResult struct {
	// Scanner is the name of the scanner that produced this result
	Scanner string `json:"scanner"`

	// SanitizedText is the (possibly modified) input text
	SanitizedText string `json:"sanitized_text"`

	// Valid reports whether the input passed the scan
	Valid bool `json:"valid"`

	// RiskScore is in [0.0, 1.0]; 0 is no risk
	RiskScore float32 `json:"risk_score"`

	// Method records which detection path produced the result
	Method DetectionMethod `json:"method"`

	// Metadata holds scanner-specific details (matched patterns,
	// model scores, thresholds)
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Pass builds a passing result with zero risk.
func Pass(scanner, text string, method DetectionMethod) ScanResult {
	return ScanResult{
		Scanner:       scanner,
		SanitizedText: text,
		Valid:         true,
		RiskScore:     0,
		Method:        method,
	}
}

// Fail builds a failing result with the given risk score.
func Fail(scanner, text string, risk float32, method DetectionMethod) ScanResult {
	return ScanResult{
		Scanner:       scanner,
		SanitizedText: text,
		Valid:         false,
		RiskScore:     risk,
		Method:        method,
	}
}

// WithMetadata returns a copy of the result with the key set. The
// receiver is not modified.
func (r ScanResult) WithMetadata(key, value string) ScanResult {
	meta := make(map[string]string, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta[key] = value
	r.Metadata = meta
	return r
}

// Severity buckets the risk score.
func (r ScanResult) Severity() Severity {
	switch {
	case r.RiskScore >= 0.9:
		return SeverityCritical
	case r.RiskScore >= 0.7:
		return SeverityHigh
	case r.RiskScore >= 0.4:
		return SeverityMedium
	case r.RiskScore > 0:
		return SeverityLow
	default:
		return SeverityNone
	}
}
