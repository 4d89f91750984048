package config

// Default values applied by ApplyDefaults.
const (
	DefaultContentDir      = "content"
	DefaultOutputDir       = "public"
	DefaultCatchAllMatch   = "**/*.md"
	DefaultCatchAllPattern = ":dir/:basename.html"
	DefaultExternalTimeout = "10s"
	DefaultRateLimit       = 5.0
	DefaultBurst           = 5
	DefaultMaxConcurrent   = 8
	DefaultMaxRedirects    = 5
	DefaultRetryInitial    = "500ms"
	DefaultRetryMax        = "5s"
	DefaultRetryMaxRetries = 2
	DefaultKVBucket        = "sitelinks-probes"
	DefaultCacheTTL        = "24h"
	DefaultCacheFailureTTL = "1h"
	DefaultUserAgent       = "sitelinks-linkverify/1.0"
	DefaultFeedLimit       = 5
)

// DefaultMarkdownExtensions lists the source extensions treated as markdown.
var DefaultMarkdownExtensions = []string{".md", ".markdown"}

// ApplyDefaults fills zero-valued fields. It is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Content.Directory == "" {
		cfg.Content.Directory = DefaultContentDir
	}
	if len(cfg.Content.MarkdownExtensions) == 0 {
		cfg.Content.MarkdownExtensions = append([]string(nil), DefaultMarkdownExtensions...)
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDir
	}
	if len(cfg.Routes) == 0 {
		cfg.Routes = []RouteConfig{{Match: DefaultCatchAllMatch, Pattern: DefaultCatchAllPattern}}
	}

	for i := range cfg.Taxonomies {
		tax := &cfg.Taxonomies[i]
		if tax.Singular == "" {
			tax.Singular = tax.Name
		}
		if len(tax.Fields) == 0 && tax.Name != "" {
			tax.Fields = []string{tax.Name}
		}
		if tax.Pattern == "" && tax.Name != "" {
			tax.Pattern = tax.Name + "/:term/index.html"
		}
		if tax.TopLimit == 0 {
			tax.TopLimit = 10
		}
	}

	if cfg.Feed.Enabled() && cfg.Feed.Limit <= 0 {
		cfg.Feed.Limit = DefaultFeedLimit
	}

	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = 4
	}

	ext := &cfg.Validation.External
	if ext.Mode == "" {
		ext.Mode = ExternalModeWarn
	}
	if ext.Timeout == "" {
		ext.Timeout = DefaultExternalTimeout
	}
	if ext.RateLimit <= 0 {
		ext.RateLimit = DefaultRateLimit
	}
	if ext.Burst <= 0 {
		ext.Burst = DefaultBurst
	}
	if ext.MaxConcurrent <= 0 {
		ext.MaxConcurrent = DefaultMaxConcurrent
	}
	if ext.MaxRedirects <= 0 {
		ext.MaxRedirects = DefaultMaxRedirects
	}
	if ext.UserAgent == "" {
		ext.UserAgent = DefaultUserAgent
	}
	if ext.Retry.Mode == "" {
		ext.Retry.Mode = RetryBackoffExponential
	}
	if ext.Retry.Initial == "" {
		ext.Retry.Initial = DefaultRetryInitial
	}
	if ext.Retry.Max == "" {
		ext.Retry.Max = DefaultRetryMax
	}
	if ext.Retry.MaxRetries == 0 {
		ext.Retry.MaxRetries = DefaultRetryMaxRetries
	}
	if ext.Cache.Enabled() {
		if ext.Cache.KVBucket == "" {
			ext.Cache.KVBucket = DefaultKVBucket
		}
		if ext.Cache.TTL == "" {
			ext.Cache.TTL = DefaultCacheTTL
		}
		if ext.Cache.FailureTTL == "" {
			ext.Cache.FailureTTL = DefaultCacheFailureTTL
		}
	}
}
