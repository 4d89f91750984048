package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Site         SiteConfig          `yaml:"site"`
	Content      ContentConfig       `yaml:"content"`
	Output       OutputConfig        `yaml:"output"`
	Routes       []RouteConfig       `yaml:"routes,omitempty"`
	Taxonomies   []TaxonomyConfig    `yaml:"taxonomies,omitempty"`
	Render       RenderConfig        `yaml:"render"`
	Replacements []ReplacementConfig `yaml:"replacements,omitempty"`
	Validation   ValidationConfig    `yaml:"validation"`
	Build        BuildConfig         `yaml:"build"`
	Metrics      MetricsConfig       `yaml:"metrics"`
	Feed         FeedConfig          `yaml:"feed"`
}

// SiteConfig holds site-wide values used for derived link fields.
type SiteConfig struct {
	Title       string `yaml:"title"`
	URL         string `yaml:"url,omitempty"` // Absolute site root, enables linkAbsolute
	Description string `yaml:"description,omitempty"`
}

// ContentConfig describes the source content tree.
type ContentConfig struct {
	Directory          string   `yaml:"directory"`
	IncludeDrafts      bool     `yaml:"include_drafts"`
	MarkdownExtensions []string `yaml:"markdown_extensions,omitempty"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before writing
}

// RouteConfig is one ordered route rule. Match selects items by original path
// (doublestar glob, empty matches everything); Pattern produces the output path.
type RouteConfig struct {
	Match    string            `yaml:"match,omitempty"`
	Pattern  string            `yaml:"pattern"`
	Defaults map[string]string `yaml:"defaults,omitempty"`
}

// TaxonomyConfig declares a classification dimension.
type TaxonomyConfig struct {
	Name         string   `yaml:"name"`
	Singular     string   `yaml:"singular,omitempty"`
	Source       string   `yaml:"source,omitempty"` // doublestar glob over item original paths
	Fields       []string `yaml:"fields,omitempty"` // metadata fields supplying terms, defaults to [name]
	Pattern      string   `yaml:"pattern,omitempty"`
	IndexPattern string   `yaml:"index_pattern,omitempty"` // optional overview page listing all terms
	TopLimit     int      `yaml:"top_limit,omitempty"`
}

// RenderConfig controls the markdown renderer.
type RenderConfig struct {
	Unsafe bool `yaml:"unsafe"` // pass raw HTML through
}

// ReplacementConfig is a post-render regexp replacement applied to matching items.
type ReplacementConfig struct {
	File        string `yaml:"file"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// ValidationConfig controls the final link validation pass.
type ValidationConfig struct {
	Enabled  bool           `yaml:"enabled"`
	External ExternalConfig `yaml:"external"`
}

// ExternalConfig controls probing of external references.
type ExternalConfig struct {
	Enabled        bool         `yaml:"enabled"`
	Mode           ExternalMode `yaml:"mode"` // warn|fail
	AllowRedirects bool         `yaml:"allow_redirects"`
	MaxRedirects   int          `yaml:"max_redirects"`
	Timeout        string       `yaml:"timeout"`
	RateLimit      float64      `yaml:"rate_limit"` // requests per second
	Burst          int          `yaml:"burst"`
	MaxConcurrent  int          `yaml:"max_concurrent"`
	SkipHosts      []string     `yaml:"skip_hosts,omitempty"`
	UserAgent      string       `yaml:"user_agent,omitempty"`
	Retry          RetryConfig  `yaml:"retry"`
	Cache          CacheConfig  `yaml:"cache"`
}

// RetryConfig controls retries of transient probe failures.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode"`
	Initial    string           `yaml:"initial"`
	Max        string           `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
}

// CacheConfig enables the cross-build probe cache in a NATS KV bucket.
type CacheConfig struct {
	NATSURL    string `yaml:"nats_url,omitempty"`
	KVBucket   string `yaml:"kv_bucket,omitempty"`
	TTL        string `yaml:"ttl,omitempty"`
	FailureTTL string `yaml:"failure_ttl,omitempty"`
	Subject    string `yaml:"subject,omitempty"` // JetStream subject for broken link events
}

// Enabled reports whether a NATS cache is configured.
func (c CacheConfig) Enabled() bool { return c.NATSURL != "" }

// BuildConfig holds engine tuning knobs.
type BuildConfig struct {
	Workers int `yaml:"workers"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"` // node-exporter textfile path
}

// FeedConfig enables an RSS document listing the newest pages of a collection.
type FeedConfig struct {
	Path   string `yaml:"path,omitempty"`   // output path of the feed, empty disables it
	Source string `yaml:"source,omitempty"` // doublestar glob over original paths
	Limit  int    `yaml:"limit,omitempty"`
}

// Enabled reports whether a feed is written.
func (f FeedConfig) Enabled() bool { return f.Path != "" }

// Load loads, defaults and validates configuration from the specified file.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	// #nosec G304 -- config path is user-supplied by design of the CLI
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Example()
	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	// #nosec G306 -- config file is not secret
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Example returns the configuration written by `sitelinks init`.
func Example() Config {
	cfg := Config{
		Site:    SiteConfig{Title: "My Site", URL: "https://example.com/"},
		Content: ContentConfig{Directory: "content"},
		Output:  OutputConfig{Directory: "out", Clean: true},
		Routes: []RouteConfig{
			{Match: "posts/**/*.md", Pattern: "posts/:category/:basename/index.html"},
			{Match: "**/*.md", Pattern: "(:dir/):basename.html"},
		},
		Taxonomies: []TaxonomyConfig{
			{Name: "tags", Singular: "tag", Source: "posts/**/*.md", Pattern: "tags/:term/index.html", IndexPattern: "tags/index.html"},
			{Name: "categories", Singular: "category", Source: "posts/**/*.md", Fields: []string{"category"}, Pattern: "categories/:term/index.html"},
		},
		Validation: ValidationConfig{
			Enabled:  true,
			External: ExternalConfig{Enabled: true, Mode: ExternalModeWarn, AllowRedirects: true},
		},
		Feed: FeedConfig{Path: "feed.xml", Source: "posts/**/*.md"},
	}
	ApplyDefaults(&cfg)
	return cfg
}
