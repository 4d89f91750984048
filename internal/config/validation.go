package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
	"git.home.luguber.info/inful/sitelinks/internal/route"
)

// Validate checks the configuration for errors. Route and taxonomy patterns
// are parsed here so a malformed pattern aborts before any build starts.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Content.Directory) == "" {
		return errors.ConfigError("content.directory is required").Build()
	}
	if strings.TrimSpace(cfg.Output.Directory) == "" {
		return errors.ConfigError("output.directory is required").Build()
	}

	for i, r := range cfg.Routes {
		if err := validateGlob(r.Match); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid route match").
				WithContext("index", i).WithContext("match", r.Match).Fatal().Build()
		}
		if _, err := route.Parse(r.Pattern); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid route pattern").
				WithContext("index", i).WithContext("pattern", r.Pattern).Fatal().Build()
		}
	}

	seen := make(map[string]struct{}, len(cfg.Taxonomies))
	for i, tax := range cfg.Taxonomies {
		if tax.Name == "" {
			return errors.ConfigError(fmt.Sprintf("taxonomies[%d].name is required", i)).Build()
		}
		if _, dup := seen[tax.Name]; dup {
			return errors.ConfigError("duplicate taxonomy name").WithContext("taxonomy", tax.Name).Build()
		}
		seen[tax.Name] = struct{}{}
		if err := validateGlob(tax.Source); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid taxonomy source").
				WithContext("taxonomy", tax.Name).Fatal().Build()
		}
		for _, p := range []string{tax.Pattern, tax.IndexPattern} {
			if p == "" {
				continue
			}
			if _, err := route.Parse(p); err != nil {
				return errors.WrapError(err, errors.CategoryConfig, "invalid taxonomy pattern").
					WithContext("taxonomy", tax.Name).WithContext("pattern", p).Fatal().Build()
			}
		}
	}

	for i, rep := range cfg.Replacements {
		if err := validateGlob(rep.File); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid replacement file glob").
				WithContext("index", i).Fatal().Build()
		}
		if _, err := regexp.Compile(rep.Pattern); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid replacement pattern").
				WithContext("index", i).WithContext("pattern", rep.Pattern).Fatal().Build()
		}
	}

	if cfg.Feed.Enabled() {
		if cfg.Site.URL == "" {
			return errors.ConfigError("feed requires site.url").WithContext("path", cfg.Feed.Path).Build()
		}
		if err := validateGlob(cfg.Feed.Source); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid feed source").Fatal().Build()
		}
	}

	return validateExternal(&cfg.Validation.External)
}

func validateExternal(ext *ExternalConfig) error {
	if NormalizeExternalMode(string(ext.Mode)) == "" {
		return errors.ConfigError("validation.external.mode must be warn or fail").
			WithContext("mode", string(ext.Mode)).Build()
	}
	ext.Mode = NormalizeExternalMode(string(ext.Mode))
	if NormalizeRetryBackoff(string(ext.Retry.Mode)) == "" {
		return errors.ConfigError("validation.external.retry.mode must be fixed, linear or exponential").
			WithContext("mode", string(ext.Retry.Mode)).Build()
	}
	ext.Retry.Mode = NormalizeRetryBackoff(string(ext.Retry.Mode))
	if ext.Retry.MaxRetries < 0 {
		return errors.ConfigError("validation.external.retry.max_retries must be >= 0").Build()
	}

	durations := map[string]string{
		"timeout":       ext.Timeout,
		"retry.initial": ext.Retry.Initial,
		"retry.max":     ext.Retry.Max,
		"cache.ttl":     ext.Cache.TTL,
		"cache.failure": ext.Cache.FailureTTL,
	}
	for field, raw := range durations {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid duration").
				WithContext("field", "validation.external."+field).WithContext("value", raw).Fatal().Build()
		}
	}
	return nil
}

func validateGlob(pattern string) error {
	if pattern == "" {
		return nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("malformed glob %q", pattern)
	}
	return nil
}

// Duration parses a duration string, falling back when empty or invalid.
// Values have already been checked by Validate.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
