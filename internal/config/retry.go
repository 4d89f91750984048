package config

import "strings"

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RetryBackoffFixed):
		return RetryBackoffFixed
	case string(RetryBackoffLinear):
		return RetryBackoffLinear
	case string(RetryBackoffExponential):
		return RetryBackoffExponential
	default:
		return ""
	}
}

// ExternalMode decides what an unreachable external reference does to the build.
type ExternalMode string

const (
	ExternalModeWarn ExternalMode = "warn"
	ExternalModeFail ExternalMode = "fail"
)

// NormalizeExternalMode returns empty string for unknown input.
func NormalizeExternalMode(raw string) ExternalMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ExternalModeWarn):
		return ExternalModeWarn
	case string(ExternalModeFail):
		return ExternalModeFail
	default:
		return ""
	}
}
