package config

import (
	"log/slog"
	"os"
	"strings"
)

// LogLevelEnv overrides the CLI verbosity flag when set.
const LogLevelEnv = "SITELINKS_LOG_LEVEL"

// ParseLogLevel resolves the slog level from the verbose flag and SITELINKS_LOG_LEVEL.
func ParseLogLevel(verbose bool) slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
